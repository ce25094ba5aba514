package redis

import (
	"context"
	"strconv"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/redis/go-redis/v9"

	"github.com/iho/goaccounts/internal/domain"
	"github.com/iho/goaccounts/internal/infrastructure/metrics"
)

// SnapshotMirror mirrors projected accounts to Redis hashes so external
// consumers can read balances without replaying the stream. It implements
// usecase.SnapshotWriter.
type SnapshotMirror struct {
	client  *redis.Client
	prefix  string
	ttl     time.Duration
	metrics *metrics.Metrics
}

// NewSnapshotMirror creates a new SnapshotMirror. A zero ttl keeps the
// mirrored hashes until the next run overwrites them.
func NewSnapshotMirror(client *redis.Client, ttl time.Duration, m *metrics.Metrics) *SnapshotMirror {
	return &SnapshotMirror{
		client:  client,
		prefix:  "account:",
		ttl:     ttl,
		metrics: m,
	}
}

// WriteAccounts mirrors every account in one pipelined write. Transient
// failures are retried with exponential backoff until the context ends.
func (m *SnapshotMirror) WriteAccounts(ctx context.Context, accounts []*domain.Account) error {
	op := func() error {
		_, err := m.client.Pipelined(ctx, func(pipe redis.Pipeliner) error {
			for _, acc := range accounts {
				key := m.key(acc.Client)
				pipe.HSet(ctx, key, map[string]any{
					"available": acc.Available.String(),
					"held":      acc.Held.String(),
					"total":     acc.Total().String(),
					"locked":    strconv.FormatBool(acc.Locked),
					"version":   strconv.FormatUint(acc.Version, 10),
				})
				if m.ttl > 0 {
					pipe.Expire(ctx, key, m.ttl)
				}
			}
			return nil
		})
		if err != nil && m.metrics != nil {
			m.metrics.MirrorRetries.Inc()
		}

		return err
	}

	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 50 * time.Millisecond
	b.MaxInterval = 1 * time.Second
	b.MaxElapsedTime = 10 * time.Second

	err := backoff.Retry(op, backoff.WithContext(b, ctx))

	if m.metrics != nil {
		status := "ok"
		if err != nil {
			status = "error"
		}
		m.metrics.MirrorWrites.WithLabelValues(status).Inc()
	}

	return err
}

// Account reads one mirrored account hash.
func (m *SnapshotMirror) Account(ctx context.Context, client domain.ClientID) (map[string]string, error) {
	return m.client.HGetAll(ctx, m.key(client)).Result()
}

func (m *SnapshotMirror) key(client domain.ClientID) string {
	return m.prefix + strconv.FormatUint(uint64(client), 10)
}
