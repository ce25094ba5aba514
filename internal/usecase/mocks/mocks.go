package mocks

import (
	"context"
	"fmt"
	"io"
	"sync"

	"github.com/iho/goaccounts/internal/domain"
)

// ScriptedSource is a CommandSource fed from a fixed command slice.
type ScriptedSource struct {
	mu       sync.Mutex
	commands []domain.Command
	pos      int

	NextFunc func(ctx context.Context) (domain.Command, error)
}

func NewScriptedSource(commands ...domain.Command) *ScriptedSource {
	return &ScriptedSource{commands: commands}
}

func (s *ScriptedSource) Next(ctx context.Context) (domain.Command, error) {
	if s.NextFunc != nil {
		return s.NextFunc(ctx)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.pos >= len(s.commands) {
		return domain.Command{}, io.EOF
	}
	cmd := s.commands[s.pos]
	s.pos++
	return cmd, nil
}

// ScriptedEventSource is an EventSource fed from a fixed event slice.
type ScriptedEventSource struct {
	mu     sync.Mutex
	events []domain.Event
	pos    int

	NextFunc func(ctx context.Context) (domain.Event, error)
}

func NewScriptedEventSource(events ...domain.Event) *ScriptedEventSource {
	return &ScriptedEventSource{events: events}
}

func (s *ScriptedEventSource) Next(ctx context.Context) (domain.Event, error) {
	if s.NextFunc != nil {
		return s.NextFunc(ctx)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.pos >= len(s.events) {
		return domain.Event{}, io.EOF
	}
	ev := s.events[s.pos]
	s.pos++
	return ev, nil
}

// RecordingSink is an EventSink that keeps every appended event.
type RecordingSink struct {
	mu     sync.Mutex
	events []domain.Event

	AppendFunc func(ctx context.Context, ev domain.Event) error
}

func NewRecordingSink() *RecordingSink {
	return &RecordingSink{}
}

func (s *RecordingSink) Append(ctx context.Context, ev domain.Event) error {
	if s.AppendFunc != nil {
		return s.AppendFunc(ctx, ev)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, ev)
	return nil
}

// Events returns the appended events in order.
func (s *RecordingSink) Events() []domain.Event {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]domain.Event, len(s.events))
	copy(out, s.events)
	return out
}

// Source returns an event source replaying the recorded events.
func (s *RecordingSink) Source() *ScriptedEventSource {
	return NewScriptedEventSource(s.Events()...)
}

// RecordingSnapshotWriter is a SnapshotWriter that keeps the last snapshot.
type RecordingSnapshotWriter struct {
	mu       sync.Mutex
	accounts []*domain.Account

	WriteAccountsFunc func(ctx context.Context, accounts []*domain.Account) error
}

func NewRecordingSnapshotWriter() *RecordingSnapshotWriter {
	return &RecordingSnapshotWriter{}
}

func (w *RecordingSnapshotWriter) WriteAccounts(ctx context.Context, accounts []*domain.Account) error {
	if w.WriteAccountsFunc != nil {
		return w.WriteAccountsFunc(ctx, accounts)
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	w.accounts = accounts
	return nil
}

// Accounts returns the last written snapshot.
func (w *RecordingSnapshotWriter) Accounts() []*domain.Account {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.accounts
}

// SequenceIDGenerator is an IDGenerator producing deterministic ids.
type SequenceIDGenerator struct {
	mu      sync.Mutex
	counter int

	GenerateFunc func() string
}

func NewSequenceIDGenerator() *SequenceIDGenerator {
	return &SequenceIDGenerator{}
}

func (g *SequenceIDGenerator) Generate() string {
	if g.GenerateFunc != nil {
		return g.GenerateFunc()
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	g.counter++
	return fmt.Sprintf("event-%04d", g.counter)
}
