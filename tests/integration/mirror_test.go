package integration

import (
	"context"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	redislib "github.com/redis/go-redis/v9"

	redisrepo "github.com/iho/goaccounts/internal/adapter/repository/redis"
	"github.com/iho/goaccounts/tests/testutil"
)

func TestSnapshotMirror(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}

	ctx := context.Background()

	p := testutil.RunCSV(t, `type,client,tx,amount
deposit,1,1,10.0
deposit,2,2,3.25
dispute,1,1,
chargeback,1,1,
`)

	mr := miniredis.RunT(t)
	client := redislib.NewClient(&redislib.Options{Addr: mr.Addr()})
	defer client.Close()

	mirror := redisrepo.NewSnapshotMirror(client, time.Hour, nil)

	if err := mirror.WriteAccounts(ctx, p.Engine.Store().Accounts()); err != nil {
		t.Fatalf("failed to mirror snapshot: %v", err)
	}

	locked, err := mirror.Account(ctx, 1)
	if err != nil {
		t.Fatalf("failed to read mirrored account: %v", err)
	}

	if locked["available"] != "0" || locked["locked"] != "true" {
		t.Fatalf("unexpected mirrored account 1: %+v", locked)
	}

	open, err := mirror.Account(ctx, 2)
	if err != nil {
		t.Fatalf("failed to read mirrored account: %v", err)
	}

	if open["available"] != "3.25" || open["held"] != "0" || open["locked"] != "false" {
		t.Fatalf("unexpected mirrored account 2: %+v", open)
	}

	if ttl := mr.TTL("account:1"); ttl != time.Hour {
		t.Fatalf("expected 1h ttl, got %s", ttl)
	}
}
