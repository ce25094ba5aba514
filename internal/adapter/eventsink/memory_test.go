package eventsink

import (
	"context"
	"errors"
	"fmt"
	"io"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/iho/goaccounts/internal/domain"
)

func testEvent(tx uint32) domain.Event {
	return domain.Event{
		ID:     fmt.Sprintf("event-%04d", tx),
		Kind:   domain.EventDeposited,
		Client: 1,
		Tx:     domain.TransactionID(tx),
		Amount: decimal.NewFromInt(int64(tx)),
	}
}

func TestMemoryRetainsEverythingWhenUnbounded(t *testing.T) {
	journal := NewMemory(0)
	ctx := context.Background()

	for tx := uint32(1); tx <= 100; tx++ {
		if err := journal.Append(ctx, testEvent(tx)); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}

	if journal.Len() != 100 {
		t.Fatalf("expected 100 events, got %d", journal.Len())
	}
	if journal.Dropped() != 0 {
		t.Fatalf("expected no drops, got %d", journal.Dropped())
	}

	events := journal.Events()
	if events[0].Tx != 1 || events[99].Tx != 100 {
		t.Fatalf("events out of order: first %d last %d", events[0].Tx, events[99].Tx)
	}
}

func TestMemoryBoundedKeepsMostRecent(t *testing.T) {
	journal := NewMemory(3)
	ctx := context.Background()

	for tx := uint32(1); tx <= 5; tx++ {
		if err := journal.Append(ctx, testEvent(tx)); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}

	if journal.Len() != 3 {
		t.Fatalf("expected 3 retained events, got %d", journal.Len())
	}
	if journal.Dropped() != 2 {
		t.Fatalf("expected 2 dropped events, got %d", journal.Dropped())
	}

	events := journal.Events()
	for i, wantTx := range []uint32{3, 4, 5} {
		if uint32(events[i].Tx) != wantTx {
			t.Fatalf("event %d: expected tx %d, got %d", i, wantTx, events[i].Tx)
		}
	}
}

func TestMemoryEventsReturnsCopy(t *testing.T) {
	journal := NewMemory(0)
	ctx := context.Background()

	if err := journal.Append(ctx, testEvent(1)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	events := journal.Events()
	events[0].Tx = 999

	if journal.Events()[0].Tx != 1 {
		t.Fatal("mutating the returned slice changed the journal")
	}
}

func TestMemoryAppendRespectsContext(t *testing.T) {
	journal := NewMemory(0)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if err := journal.Append(ctx, testEvent(1)); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if journal.Len() != 0 {
		t.Fatalf("expected empty journal, got %d events", journal.Len())
	}
}

func TestMemorySourceStreamsSnapshot(t *testing.T) {
	journal := NewMemory(0)
	ctx := context.Background()

	for tx := uint32(1); tx <= 3; tx++ {
		if err := journal.Append(ctx, testEvent(tx)); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}

	source := journal.Source()

	// Later appends must not leak into an already taken snapshot.
	if err := journal.Append(ctx, testEvent(4)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var seen []uint32
	for {
		ev, err := source.Next(ctx)
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		seen = append(seen, uint32(ev.Tx))
	}

	if len(seen) != 3 {
		t.Fatalf("expected 3 events, got %d", len(seen))
	}
	for i, wantTx := range []uint32{1, 2, 3} {
		if seen[i] != wantTx {
			t.Fatalf("event %d: expected tx %d, got %d", i, wantTx, seen[i])
		}
	}
}
