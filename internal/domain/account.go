package domain

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// ClientID identifies the owner of an account. IDs arrive on the stream and
// are never allocated by this system.
type ClientID uint16

// Account is the per-client aggregate rebuilt from the command stream.
// Available is spendable, Held is frozen under open disputes, and a locked
// account accepts no further commands.
type Account struct {
	Client    ClientID
	Available decimal.Decimal
	Held      decimal.Decimal
	Locked    bool
	Version   uint64
}

// NewAccount returns an empty account for client.
func NewAccount(client ClientID) *Account {
	return &Account{Client: client}
}

// Total returns available plus held funds.
func (a *Account) Total() decimal.Decimal {
	return a.Available.Add(a.Held)
}

// ValidateDeposit checks whether a deposit of amount may be applied.
func (a *Account) ValidateDeposit(amount decimal.Decimal) error {
	if a.Locked {
		return ErrAccountLocked
	}

	if amount.LessThanOrEqual(decimal.Zero) {
		return ErrNonPositiveAmount
	}

	return nil
}

// ValidateWithdrawal checks whether a withdrawal of amount may be applied.
func (a *Account) ValidateWithdrawal(amount decimal.Decimal) error {
	if a.Locked {
		return ErrAccountLocked
	}

	if amount.LessThanOrEqual(decimal.Zero) {
		return ErrNonPositiveAmount
	}

	if a.Available.LessThan(amount) {
		return ErrInsufficientFunds
	}

	return nil
}

// ValidateDispute checks whether the referenced settled transaction may be
// placed under dispute. entry is nil when the reference is unknown.
// There is no available-funds check here: disputing may drive available
// temporarily negative while the disputed amount sits in held.
func (a *Account) ValidateDispute(entry *LedgerEntry) error {
	if a.Locked {
		return ErrAccountLocked
	}

	if entry == nil {
		return ErrTransactionNotFound
	}

	if entry.Client != a.Client {
		return ErrClientMismatch
	}

	if entry.Disputed {
		return ErrAlreadyDisputed
	}

	return nil
}

// ValidateResolve checks whether the referenced dispute may be released.
func (a *Account) ValidateResolve(entry *LedgerEntry) error {
	if a.Locked {
		return ErrAccountLocked
	}

	if entry == nil {
		return ErrTransactionNotFound
	}

	if entry.Client != a.Client {
		return ErrClientMismatch
	}

	if !entry.Disputed {
		return ErrNotDisputed
	}

	return nil
}

// ValidateChargeback checks whether the referenced dispute may be charged back.
func (a *Account) ValidateChargeback(entry *LedgerEntry) error {
	if a.Locked {
		return ErrAccountLocked
	}

	if entry == nil {
		return ErrTransactionNotFound
	}

	if entry.Client != a.Client {
		return ErrClientMismatch
	}

	if !entry.Disputed {
		return ErrNotDisputed
	}

	return nil
}

// Apply folds one event into the account. Events carry their resolved
// amounts, so folding needs no other state; replaying the event sequence
// through Apply reproduces the account exactly. Rejected events bump the
// version but leave balances untouched.
func (a *Account) Apply(ev Event) error {
	switch ev.Kind {
	case EventDeposited:
		a.Available = a.Available.Add(ev.Amount)
	case EventWithdrawn:
		a.Available = a.Available.Sub(ev.Amount)
	case EventDisputed:
		a.Available = a.Available.Sub(ev.Amount)
		a.Held = a.Held.Add(ev.Amount)
	case EventResolved:
		a.Held = a.Held.Sub(ev.Amount)
		a.Available = a.Available.Add(ev.Amount)
	case EventChargedBack:
		a.Held = a.Held.Sub(ev.Amount)
		a.Locked = true
	case EventRejected:
		// audit record only
	default:
		return fmt.Errorf("%w: %s", ErrUnknownEventKind, ev.Kind)
	}

	a.Version++

	return nil
}
