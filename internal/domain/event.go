package domain

import (
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// EventKind discriminates the closed set of emitted events.
type EventKind string

// Event kinds
const (
	EventDeposited   EventKind = "account.deposited"
	EventWithdrawn   EventKind = "account.withdrawn"
	EventDisputed    EventKind = "account.disputed"
	EventResolved    EventKind = "account.resolved"
	EventChargedBack EventKind = "account.charged_back"
	EventRejected    EventKind = "account.rejected"
)

// RejectReason classifies why a command was rejected.
type RejectReason string

const (
	ReasonAccountLocked        RejectReason = "account_locked"
	ReasonInsufficientFunds    RejectReason = "insufficient_funds"
	ReasonNonPositiveAmount    RejectReason = "non_positive_amount"
	ReasonUnknownTransaction   RejectReason = "unknown_transaction"
	ReasonClientMismatch       RejectReason = "client_mismatch"
	ReasonAlreadyDisputed      RejectReason = "already_disputed"
	ReasonNotDisputed          RejectReason = "not_disputed"
	ReasonNotDisputable        RejectReason = "not_disputable"
	ReasonDuplicateTransaction RejectReason = "duplicate_transaction"
	ReasonInternal             RejectReason = "internal_error"
)

// Event is one immutable outcome on the account event stream. It mirrors the
// command that produced it and records what was actually applied. Amount is
// resolved (dispute-family events carry the disputed transaction's amount),
// so the projection can be rebuilt from events alone.
type Event struct {
	ID         string          `json:"id"`
	Kind       EventKind       `json:"kind"`
	Client     ClientID        `json:"client"`
	Tx         TransactionID   `json:"tx"`
	Amount     decimal.Decimal `json:"amount"`
	Reason     RejectReason    `json:"reason,omitempty"`
	OccurredAt time.Time       `json:"occurred_at"`
}

// Rejected reports whether the event records a rejected command.
func (e *Event) Rejected() bool {
	return e.Kind == EventRejected
}

// EventKindForCommand maps a command kind to the event emitted when the
// command is applied successfully.
func EventKindForCommand(k CommandKind) (EventKind, error) {
	switch k {
	case CommandDeposit:
		return EventDeposited, nil
	case CommandWithdrawal:
		return EventWithdrawn, nil
	case CommandDispute:
		return EventDisputed, nil
	case CommandResolve:
		return EventResolved, nil
	case CommandChargeback:
		return EventChargedBack, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownCommandKind, k)
	}
}

// ReasonForError maps a validation error to its reject reason.
func ReasonForError(err error) RejectReason {
	switch {
	case errors.Is(err, ErrAccountLocked):
		return ReasonAccountLocked
	case errors.Is(err, ErrInsufficientFunds):
		return ReasonInsufficientFunds
	case errors.Is(err, ErrNonPositiveAmount):
		return ReasonNonPositiveAmount
	case errors.Is(err, ErrTransactionNotFound):
		return ReasonUnknownTransaction
	case errors.Is(err, ErrClientMismatch):
		return ReasonClientMismatch
	case errors.Is(err, ErrAlreadyDisputed):
		return ReasonAlreadyDisputed
	case errors.Is(err, ErrNotDisputed):
		return ReasonNotDisputed
	case errors.Is(err, ErrNotDisputable):
		return ReasonNotDisputable
	case errors.Is(err, ErrDuplicateTransaction):
		return ReasonDuplicateTransaction
	default:
		return ReasonInternal
	}
}
