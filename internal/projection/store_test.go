package projection

import (
	"testing"

	"github.com/shopspring/decimal"

	"github.com/iho/goaccounts/internal/domain"
)

func amt(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func TestStore_AccountCreatesLazily(t *testing.T) {
	s := NewStore()

	acc := s.Account(1)
	if acc == nil {
		t.Fatal("expected account")
	}

	if s.Len() != 1 {
		t.Errorf("expected 1 account, got %d", s.Len())
	}

	if again := s.Account(1); again != acc {
		t.Error("expected the same account on second lookup")
	}
}

func TestStore_GetDoesNotCreate(t *testing.T) {
	s := NewStore()

	if _, ok := s.Get(1); ok {
		t.Error("expected miss for unknown client")
	}

	if s.Len() != 0 {
		t.Errorf("Get should not create accounts, got %d", s.Len())
	}
}

func TestStore_FoldCreatesSlotForRejection(t *testing.T) {
	s := NewStore()

	ev := domain.Event{Kind: domain.EventRejected, Client: 9, Tx: 1, Reason: domain.ReasonUnknownTransaction}
	if _, err := s.Fold(ev); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	acc, ok := s.Get(9)
	if !ok {
		t.Fatal("rejection should still create the account slot")
	}

	if !acc.Available.IsZero() || !acc.Held.IsZero() || acc.Locked {
		t.Error("rejected event must not change balances")
	}

	if acc.Version != 1 {
		t.Errorf("expected version 1, got %d", acc.Version)
	}
}

func TestStore_FoldSequence(t *testing.T) {
	events := []domain.Event{
		{Kind: domain.EventDeposited, Client: 1, Tx: 1, Amount: amt("10")},
		{Kind: domain.EventDeposited, Client: 2, Tx: 2, Amount: amt("4.5")},
		{Kind: domain.EventDisputed, Client: 1, Tx: 1, Amount: amt("10")},
		{Kind: domain.EventChargedBack, Client: 1, Tx: 1, Amount: amt("10")},
	}

	first := NewStore()
	second := NewStore()

	for _, ev := range events {
		if _, err := first.Fold(ev); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if _, err := second.Fold(ev); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}

	if first.Len() != second.Len() {
		t.Fatalf("folds diverged: %d vs %d accounts", first.Len(), second.Len())
	}

	for _, want := range first.Accounts() {
		got, ok := second.Get(want.Client)
		if !ok {
			t.Fatalf("client %d missing from second fold", want.Client)
		}

		if !got.Available.Equal(want.Available) || !got.Held.Equal(want.Held) || got.Locked != want.Locked {
			t.Errorf("client %d diverged: %+v vs %+v", want.Client, got, want)
		}
	}

	one, _ := first.Get(1)
	if !one.Locked {
		t.Error("client 1 should be locked")
	}
}

func TestStore_AccountsOrdered(t *testing.T) {
	s := NewStore()

	for _, client := range []domain.ClientID{40, 2, 17, 1} {
		s.Account(client)
	}

	accounts := s.Accounts()
	for i := 1; i < len(accounts); i++ {
		if accounts[i-1].Client >= accounts[i].Client {
			t.Fatalf("accounts not ordered by client id: %d before %d", accounts[i-1].Client, accounts[i].Client)
		}
	}
}
