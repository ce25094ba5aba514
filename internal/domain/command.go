package domain

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// TransactionID identifies one deposit or withdrawal. Dispute-family commands
// reference the id of the transaction they act on.
type TransactionID uint32

// CommandKind discriminates the closed set of stream commands.
type CommandKind string

const (
	CommandDeposit    CommandKind = "deposit"
	CommandWithdrawal CommandKind = "withdrawal"
	CommandDispute    CommandKind = "dispute"
	CommandResolve    CommandKind = "resolve"
	CommandChargeback CommandKind = "chargeback"
)

// DefaultAmountPrecision is the number of fractional digits carried by
// stream amounts.
const DefaultAmountPrecision = 4

// Monetary reports whether the kind carries its own amount.
func (k CommandKind) Monetary() bool {
	return k == CommandDeposit || k == CommandWithdrawal
}

// References reports whether the kind acts on a prior transaction.
func (k CommandKind) References() bool {
	return k == CommandDispute || k == CommandResolve || k == CommandChargeback
}

// ParseCommandKind maps a stream record type to a CommandKind. The legacy
// spelling "withdraw" is accepted alongside "withdrawal".
func ParseCommandKind(s string) (CommandKind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "deposit":
		return CommandDeposit, nil
	case "withdrawal", "withdraw":
		return CommandWithdrawal, nil
	case "dispute":
		return CommandDispute, nil
	case "resolve":
		return CommandResolve, nil
	case "chargeback":
		return CommandChargeback, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownCommandKind, s)
	}
}

// Command is one record of the ordered stream. Monetary kinds carry Amount;
// referencing kinds carry only the Tx they act on.
type Command struct {
	Kind   CommandKind
	Client ClientID
	Tx     TransactionID
	Amount decimal.Decimal
}

// Validate checks structural validity. Business rules (funds, locks,
// dispute state) are the aggregate's concern, not the command's.
func (c *Command) Validate() error {
	switch c.Kind {
	case CommandDeposit, CommandWithdrawal, CommandDispute, CommandResolve, CommandChargeback:
		return nil
	default:
		return fmt.Errorf("%w: %q", ErrUnknownCommandKind, c.Kind)
	}
}
