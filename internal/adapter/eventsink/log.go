package eventsink

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/iho/goaccounts/internal/domain"
)

// Log writes every appended event to a structured audit log.
type Log struct {
	logger zerolog.Logger
}

// NewLog creates a new Log sink.
func NewLog(logger zerolog.Logger) *Log {
	return &Log{logger: logger}
}

// Append logs the event.
func (l *Log) Append(ctx context.Context, ev domain.Event) error {
	e := l.logger.Info().
		Str("event_id", ev.ID).
		Str("kind", string(ev.Kind)).
		Uint16("client", uint16(ev.Client)).
		Uint32("tx", uint32(ev.Tx)).
		Str("amount", ev.Amount.String()).
		Time("occurred_at", ev.OccurredAt)
	if ev.Reason != "" {
		e = e.Str("reason", string(ev.Reason))
	}
	e.Msg("event appended")

	return nil
}
