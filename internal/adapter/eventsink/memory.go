// Package eventsink provides EventSink implementations: an in-memory
// journal used for replay and the read API, a fanout composite, and a
// structured-log audit sink.
package eventsink

import (
	"context"
	"io"
	"sync"

	"github.com/iho/goaccounts/internal/domain"
)

// Memory is an in-memory event journal. With capacity <= 0 it retains
// every appended event; with a positive capacity it retains only the most
// recent events and counts the rest as dropped. Replay verification needs
// the full sequence, so wire an unbounded journal when verifying.
type Memory struct {
	mu       sync.RWMutex
	events   []domain.Event
	capacity int
	dropped  uint64
}

// NewMemory creates a new Memory journal.
func NewMemory(capacity int) *Memory {
	return &Memory{capacity: capacity}
}

// Append records the event.
func (m *Memory) Append(ctx context.Context, ev domain.Event) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	m.events = append(m.events, ev)
	if m.capacity > 0 && len(m.events) > m.capacity {
		overflow := len(m.events) - m.capacity
		m.events = append(m.events[:0], m.events[overflow:]...)
		m.dropped += uint64(overflow)
	}

	return nil
}

// Events returns a copy of the retained events in emission order.
func (m *Memory) Events() []domain.Event {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]domain.Event, len(m.events))
	copy(out, m.events)
	return out
}

// Len returns the number of retained events.
func (m *Memory) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.events)
}

// Dropped returns the number of events evicted by the capacity bound.
func (m *Memory) Dropped() uint64 {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.dropped
}

// Source returns an EventSource over a snapshot of the retained events.
func (m *Memory) Source() *MemorySource {
	return &MemorySource{events: m.Events()}
}

// MemorySource streams a recorded event sequence.
type MemorySource struct {
	events []domain.Event
	next   int
}

// NewMemorySource creates a source over the given events.
func NewMemorySource(events []domain.Event) *MemorySource {
	return &MemorySource{events: events}
}

// Next returns the next recorded event, or io.EOF once exhausted.
func (s *MemorySource) Next(ctx context.Context) (domain.Event, error) {
	if err := ctx.Err(); err != nil {
		return domain.Event{}, err
	}
	if s.next >= len(s.events) {
		return domain.Event{}, io.EOF
	}

	ev := s.events[s.next]
	s.next++
	return ev, nil
}
