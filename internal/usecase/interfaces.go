package usecase

import (
	"context"

	"github.com/iho/goaccounts/internal/domain"
)

// CommandSource yields stream commands in arrival order. Next returns io.EOF
// once the source is exhausted and *domain.RecordError for records that
// cannot be parsed; any other error aborts the run.
type CommandSource interface {
	Next(ctx context.Context) (domain.Command, error)
}

// EventSource yields recorded events in emission order. Next returns io.EOF
// once the sequence is exhausted.
type EventSource interface {
	Next(ctx context.Context) (domain.Event, error)
}

// EventSink receives every emitted event, rejections included.
type EventSink interface {
	Append(ctx context.Context, ev domain.Event) error
}

// SnapshotWriter receives the final projected accounts of a run.
type SnapshotWriter interface {
	WriteAccounts(ctx context.Context, accounts []*domain.Account) error
}

// IDGenerator generates unique IDs.
type IDGenerator interface {
	Generate() string
}

// EventJournal exposes the recorded event sequence for read queries.
type EventJournal interface {
	Events() []domain.Event
	Len() int
}
