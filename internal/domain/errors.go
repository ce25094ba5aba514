package domain

import (
	"errors"
	"fmt"
)

var (
	// Aggregate validation errors
	ErrAccountLocked     = errors.New("account is locked")
	ErrInsufficientFunds = errors.New("insufficient available funds")
	ErrNonPositiveAmount = errors.New("amount must be positive")

	// Dispute-family errors
	ErrTransactionNotFound  = errors.New("referenced transaction not found")
	ErrClientMismatch       = errors.New("transaction belongs to another client")
	ErrAlreadyDisputed      = errors.New("transaction is already under dispute")
	ErrNotDisputed          = errors.New("transaction is not under dispute")
	ErrNotDisputable        = errors.New("transaction kind is not disputable")
	ErrDuplicateTransaction = errors.New("transaction id already recorded")

	// Stream errors
	ErrUnknownCommandKind = errors.New("unknown command kind")
	ErrUnknownEventKind   = errors.New("unknown event kind")
	ErrAccountNotFound    = errors.New("account not found")
)

// RecordError marks one malformed source record. The engine reports and
// skips these; they never abort a run.
type RecordError struct {
	Line int
	Err  error
}

func (e *RecordError) Error() string {
	return fmt.Sprintf("record %d: %v", e.Line, e.Err)
}

func (e *RecordError) Unwrap() error {
	return e.Err
}
