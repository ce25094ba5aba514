package redis

import (
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	redislib "github.com/redis/go-redis/v9"
)

// newTestMirror builds a SnapshotMirror backed by an in-process server.
// The server and client are torn down with the test.
func newTestMirror(t *testing.T, ttl time.Duration) (*SnapshotMirror, *miniredis.Miniredis) {
	t.Helper()

	mr := miniredis.RunT(t)
	client := redislib.NewClient(&redislib.Options{
		Addr: mr.Addr(),
	})
	t.Cleanup(func() { _ = client.Close() })

	return NewSnapshotMirror(client, ttl, nil), mr
}
