package domain

import (
	"errors"
	"testing"
)

func TestLedger_PutAndGet(t *testing.T) {
	l := NewLedger()

	entry := &LedgerEntry{Client: 1, Kind: CommandDeposit, Amount: amt("10")}
	if err := l.Put(100, entry); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	got, ok := l.Get(100)
	if !ok {
		t.Fatal("expected entry to be found")
	}

	if got != entry {
		t.Error("expected the stored entry to be returned")
	}

	if _, ok := l.Get(101); ok {
		t.Error("expected miss for unknown tx")
	}
}

func TestLedger_PutDuplicate(t *testing.T) {
	l := NewLedger()

	if err := l.Put(1, &LedgerEntry{Client: 1, Kind: CommandDeposit, Amount: amt("10")}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	err := l.Put(1, &LedgerEntry{Client: 1, Kind: CommandDeposit, Amount: amt("20")})
	if !errors.Is(err, ErrDuplicateTransaction) {
		t.Errorf("expected ErrDuplicateTransaction, got %v", err)
	}

	entry, _ := l.Get(1)
	if !entry.Amount.Equal(amt("10")) {
		t.Errorf("original entry should be untouched, got amount %s", entry.Amount)
	}
}

func TestLedger_GetReturnsMutableEntry(t *testing.T) {
	l := NewLedger()

	if err := l.Put(5, &LedgerEntry{Client: 2, Kind: CommandWithdrawal, Amount: amt("7.5")}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	entry, _ := l.Get(5)
	entry.Disputed = true

	again, _ := l.Get(5)
	if !again.Disputed {
		t.Error("mutation through Get should persist")
	}
}

func TestLedger_Evict(t *testing.T) {
	l := NewLedger()

	if err := l.Put(1, &LedgerEntry{Client: 1, Kind: CommandDeposit, Amount: amt("10")}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	l.Evict(1)

	if l.Has(1) {
		t.Error("entry should be gone after eviction")
	}

	if l.Len() != 0 {
		t.Errorf("expected empty ledger, got %d entries", l.Len())
	}

	// absent id is a no-op
	l.Evict(42)
}

func TestLedger_EvictClient(t *testing.T) {
	l := NewLedger()

	entries := map[TransactionID]*LedgerEntry{
		1: {Client: 1, Kind: CommandDeposit, Amount: amt("10")},
		2: {Client: 1, Kind: CommandWithdrawal, Amount: amt("5")},
		3: {Client: 2, Kind: CommandDeposit, Amount: amt("30")},
	}
	for tx, entry := range entries {
		if err := l.Put(tx, entry); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}

	evicted := l.EvictClient(1)
	if evicted != 2 {
		t.Errorf("expected 2 evictions, got %d", evicted)
	}

	if l.Has(1) || l.Has(2) {
		t.Error("client 1 entries should be gone")
	}

	if !l.Has(3) {
		t.Error("client 2 entry should survive")
	}

	if l.EvictClient(99) != 0 {
		t.Error("unknown client should evict nothing")
	}
}

func TestLedger_DisputedTotal(t *testing.T) {
	l := NewLedger()

	if err := l.Put(1, &LedgerEntry{Client: 1, Kind: CommandDeposit, Amount: amt("10"), Disputed: true}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := l.Put(2, &LedgerEntry{Client: 1, Kind: CommandDeposit, Amount: amt("4.5")}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := l.Put(3, &LedgerEntry{Client: 1, Kind: CommandWithdrawal, Amount: amt("2"), Disputed: true}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if got := l.DisputedTotal(1); !got.Equal(amt("12")) {
		t.Errorf("expected disputed total 12, got %s", got)
	}

	if got := l.DisputedTotal(2); !got.IsZero() {
		t.Errorf("expected zero for client without entries, got %s", got)
	}
}
