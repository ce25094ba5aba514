package eventsink

import (
	"context"
	"fmt"

	"github.com/iho/goaccounts/internal/domain"
	"github.com/iho/goaccounts/internal/usecase"
)

// Fanout appends every event to each wrapped sink in order. The first
// sink failure aborts the append; a run cannot continue once any journal
// has missed an event.
type Fanout struct {
	sinks []usecase.EventSink
}

// NewFanout creates a Fanout over the given sinks. Nil sinks are skipped.
func NewFanout(sinks ...usecase.EventSink) *Fanout {
	f := &Fanout{}
	for _, s := range sinks {
		if s != nil {
			f.sinks = append(f.sinks, s)
		}
	}
	return f
}

// Append writes the event to every sink.
func (f *Fanout) Append(ctx context.Context, ev domain.Event) error {
	for i, s := range f.sinks {
		if err := s.Append(ctx, ev); err != nil {
			return fmt.Errorf("sink %d: %w", i, err)
		}
	}
	return nil
}
