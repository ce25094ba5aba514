package usecase

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/iho/goaccounts/internal/domain"
	"github.com/iho/goaccounts/internal/projection"
)

// ReplayUseCase rebuilds projections by folding recorded events. The
// projection is a pure function of the event sequence, so a rebuild from
// the events of a finished run must match that run's store exactly.
type ReplayUseCase struct{}

// NewReplayUseCase creates a new ReplayUseCase.
func NewReplayUseCase() *ReplayUseCase {
	return &ReplayUseCase{}
}

// Rebuild folds every event from src into a fresh store and returns the
// store and the number of events folded.
func (uc *ReplayUseCase) Rebuild(ctx context.Context, src EventSource) (*projection.Store, int, error) {
	store := projection.NewStore()
	count := 0

	for {
		if err := ctx.Err(); err != nil {
			return nil, 0, err
		}

		ev, err := src.Next(ctx)
		if errors.Is(err, io.EOF) {
			break
		}

		if err != nil {
			return nil, 0, fmt.Errorf("read event: %w", err)
		}

		if _, err := store.Fold(ev); err != nil {
			return nil, 0, fmt.Errorf("fold event %s: %w", ev.ID, err)
		}

		count++
	}

	return store, count, nil
}

// Divergence records one field where a live projection and its replay
// disagree.
type Divergence struct {
	Client   domain.ClientID
	Field    string
	Live     string
	Replayed string
}

// ReplayReport is the outcome of a replay verification.
type ReplayReport struct {
	Events      int
	Accounts    int
	Divergences []Divergence
	CheckedAt   time.Time
}

// Deterministic reports whether the replay reproduced the live projection.
func (r *ReplayReport) Deterministic() bool {
	return len(r.Divergences) == 0
}

// Verify rebuilds the projection from src and compares it field by field
// against live.
func (uc *ReplayUseCase) Verify(ctx context.Context, src EventSource, live *projection.Store) (*ReplayReport, error) {
	replayed, count, err := uc.Rebuild(ctx, src)
	if err != nil {
		return nil, err
	}

	report := &ReplayReport{
		Events:    count,
		Accounts:  live.Len(),
		CheckedAt: time.Now().UTC(),
	}

	for _, want := range live.Accounts() {
		got, ok := replayed.Get(want.Client)
		if !ok {
			report.Divergences = append(report.Divergences, Divergence{
				Client: want.Client, Field: "account", Live: "present", Replayed: "missing",
			})
			continue
		}

		if !got.Available.Equal(want.Available) {
			report.Divergences = append(report.Divergences, Divergence{
				Client: want.Client, Field: "available", Live: want.Available.String(), Replayed: got.Available.String(),
			})
		}

		if !got.Held.Equal(want.Held) {
			report.Divergences = append(report.Divergences, Divergence{
				Client: want.Client, Field: "held", Live: want.Held.String(), Replayed: got.Held.String(),
			})
		}

		if got.Locked != want.Locked {
			report.Divergences = append(report.Divergences, Divergence{
				Client: want.Client, Field: "locked", Live: strconv.FormatBool(want.Locked), Replayed: strconv.FormatBool(got.Locked),
			})
		}

		if got.Version != want.Version {
			report.Divergences = append(report.Divergences, Divergence{
				Client: want.Client, Field: "version", Live: strconv.FormatUint(want.Version, 10), Replayed: strconv.FormatUint(got.Version, 10),
			})
		}
	}

	for _, got := range replayed.Accounts() {
		if _, ok := live.Get(got.Client); !ok {
			report.Divergences = append(report.Divergences, Divergence{
				Client: got.Client, Field: "account", Live: "missing", Replayed: "present",
			})
		}
	}

	return report, nil
}
