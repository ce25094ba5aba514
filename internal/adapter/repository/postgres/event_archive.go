package postgres

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/iho/goaccounts/internal/domain"
	"github.com/iho/goaccounts/internal/infrastructure/metrics"
)

const (
	insertEventSQL = `
		INSERT INTO events (id, kind, client, tx, amount, reason, occurred_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (id) DO NOTHING`

	selectEventsSQL = `
		SELECT id, kind, client, tx, amount, reason, occurred_at
		FROM events
		ORDER BY seq`

	countEventsSQL = `SELECT COUNT(*) FROM events`
)

// EventArchive persists emitted events to PostgreSQL and streams them
// back in emission order. It implements usecase.EventSink.
type EventArchive struct {
	pool    *pgxpool.Pool
	retrier *Retrier
	metrics *metrics.Metrics
}

// NewEventArchive creates a new EventArchive.
func NewEventArchive(pool *pgxpool.Pool, m *metrics.Metrics) *EventArchive {
	return &EventArchive{
		pool:    pool,
		retrier: NewRetrier(),
		metrics: m,
	}
}

// Append inserts one event. Transient database errors are retried with
// backoff. Re-archiving an already stored event id is a no-op, so
// replaying a stream into the same database cannot fail.
func (a *EventArchive) Append(ctx context.Context, ev domain.Event) error {
	start := time.Now()

	err := a.retrier.Retry(ctx, func() error {
		_, execErr := a.pool.Exec(ctx, insertEventSQL,
			ev.ID,
			string(ev.Kind),
			int32(ev.Client),
			int64(ev.Tx),
			decimalToNumeric(ev.Amount),
			reasonToText(ev.Reason),
			timeToPgTimestamptz(ev.OccurredAt),
		)

		return execErr
	})

	if a.metrics != nil {
		a.metrics.ArchiveLatency.Observe(time.Since(start).Seconds())

		status := "ok"
		if err != nil {
			status = "error"
		}
		a.metrics.ArchiveAppends.WithLabelValues(status).Inc()
	}

	if err != nil {
		return fmt.Errorf("archive append: %w", err)
	}

	return nil
}

// Count returns the number of archived events.
func (a *EventArchive) Count(ctx context.Context) (int64, error) {
	var n int64
	if err := a.pool.QueryRow(ctx, countEventsSQL).Scan(&n); err != nil {
		return 0, fmt.Errorf("archive count: %w", err)
	}

	return n, nil
}

// Source streams the archived events in emission order.
func (a *EventArchive) Source(ctx context.Context) (*ArchiveSource, error) {
	rows, err := a.pool.Query(ctx, selectEventsSQL)
	if err != nil {
		return nil, fmt.Errorf("archive select: %w", err)
	}

	return &ArchiveSource{rows: rows}, nil
}

// ArchiveSource implements usecase.EventSource over an archive cursor.
type ArchiveSource struct {
	rows pgx.Rows
	done bool
}

// Next returns the next archived event, or io.EOF once exhausted.
func (s *ArchiveSource) Next(ctx context.Context) (domain.Event, error) {
	if s.done {
		return domain.Event{}, io.EOF
	}

	if err := ctx.Err(); err != nil {
		s.done = true
		s.rows.Close()
		return domain.Event{}, err
	}

	if !s.rows.Next() {
		s.done = true
		s.rows.Close()
		if err := s.rows.Err(); err != nil {
			return domain.Event{}, fmt.Errorf("archive scan: %w", err)
		}

		return domain.Event{}, io.EOF
	}

	var (
		ev         domain.Event
		kind       string
		client     int32
		tx         int64
		amount     pgtype.Numeric
		reason     pgtype.Text
		occurredAt pgtype.Timestamptz
	)

	if err := s.rows.Scan(&ev.ID, &kind, &client, &tx, &amount, &reason, &occurredAt); err != nil {
		s.done = true
		s.rows.Close()
		return domain.Event{}, fmt.Errorf("archive scan: %w", err)
	}

	ev.Kind = domain.EventKind(kind)
	ev.Client = domain.ClientID(client)
	ev.Tx = domain.TransactionID(tx)
	ev.Amount = numericToDecimal(amount)
	if reason.Valid {
		ev.Reason = domain.RejectReason(reason.String)
	}
	ev.OccurredAt = occurredAt.Time

	return ev, nil
}

// Type conversion helpers.
func decimalToNumeric(d decimal.Decimal) pgtype.Numeric {
	var n pgtype.Numeric

	_ = n.Scan(d.String())

	return n
}

func numericToDecimal(n pgtype.Numeric) decimal.Decimal {
	if !n.Valid {
		return decimal.Zero
	}

	d, _ := decimal.NewFromString(n.Int.String())
	if n.Exp != 0 {
		d = d.Shift(n.Exp)
	}

	return d
}

func reasonToText(reason domain.RejectReason) pgtype.Text {
	return pgtype.Text{String: string(reason), Valid: reason != ""}
}

func timeToPgTimestamptz(t time.Time) pgtype.Timestamptz {
	return pgtype.Timestamptz{Time: t, Valid: true}
}
