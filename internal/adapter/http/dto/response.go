package dto

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/iho/goaccounts/internal/domain"
	"github.com/iho/goaccounts/internal/usecase"
)

// AccountResponse represents a projected account in API responses.
type AccountResponse struct {
	Client    uint16          `json:"client"`
	Available decimal.Decimal `json:"available"`
	Held      decimal.Decimal `json:"held"`
	Total     decimal.Decimal `json:"total"`
	Locked    bool            `json:"locked"`
	Version   uint64          `json:"version"`
}

// AccountFromDomain converts a domain account to a response.
func AccountFromDomain(a *domain.Account) *AccountResponse {
	return &AccountResponse{
		Client:    uint16(a.Client),
		Available: a.Available,
		Held:      a.Held,
		Total:     a.Total(),
		Locked:    a.Locked,
		Version:   a.Version,
	}
}

// AccountsFromDomain converts domain accounts to responses.
func AccountsFromDomain(accounts []*domain.Account) []*AccountResponse {
	result := make([]*AccountResponse, len(accounts))
	for i, a := range accounts {
		result[i] = AccountFromDomain(a)
	}
	return result
}

// ListAccountsResponse represents a page of accounts.
type ListAccountsResponse struct {
	Accounts []*AccountResponse `json:"accounts"`
	Total    int64              `json:"total"`
}

// EventResponse represents a recorded event in API responses.
type EventResponse struct {
	ID         string          `json:"id"`
	Kind       string          `json:"kind"`
	Client     uint16          `json:"client"`
	Tx         uint32          `json:"tx"`
	Amount     decimal.Decimal `json:"amount"`
	Reason     string          `json:"reason,omitempty"`
	OccurredAt time.Time       `json:"occurred_at"`
}

// EventFromDomain converts a domain event to a response.
func EventFromDomain(ev domain.Event) *EventResponse {
	return &EventResponse{
		ID:         ev.ID,
		Kind:       string(ev.Kind),
		Client:     uint16(ev.Client),
		Tx:         uint32(ev.Tx),
		Amount:     ev.Amount,
		Reason:     string(ev.Reason),
		OccurredAt: ev.OccurredAt,
	}
}

// EventsFromDomain converts domain events to responses.
func EventsFromDomain(events []domain.Event) []*EventResponse {
	result := make([]*EventResponse, len(events))
	for i, ev := range events {
		result[i] = EventFromDomain(ev)
	}
	return result
}

// ListEventsResponse represents a page of recorded events.
type ListEventsResponse struct {
	Events []*EventResponse `json:"events"`
	Total  int64            `json:"total"`
}

// StatsResponse represents the run summary in API responses.
type StatsResponse struct {
	Commands         int            `json:"commands"`
	Applied          int            `json:"applied"`
	Rejected         int            `json:"rejected"`
	Malformed        int            `json:"malformed"`
	Accounts         int            `json:"accounts"`
	LockedAccounts   int            `json:"locked_accounts"`
	LedgerEntries    int            `json:"ledger_entries"`
	EventsByKind     map[string]int `json:"events_by_kind"`
	RejectedByReason map[string]int `json:"rejected_by_reason"`
	StartedAt        time.Time      `json:"started_at"`
	DurationMillis   int64          `json:"duration_ms"`
}

// StatsFromReport converts a run report to a response.
func StatsFromReport(report usecase.RunReport) *StatsResponse {
	kinds := make(map[string]int, len(report.EventsByKind))
	for kind, n := range report.EventsByKind {
		kinds[string(kind)] = n
	}

	reasons := make(map[string]int, len(report.RejectedByReason))
	for reason, n := range report.RejectedByReason {
		reasons[string(reason)] = n
	}

	return &StatsResponse{
		Commands:         report.Commands,
		Applied:          report.Applied,
		Rejected:         report.Rejected,
		Malformed:        report.Malformed,
		Accounts:         report.Accounts,
		LockedAccounts:   report.LockedAccounts,
		LedgerEntries:    report.LedgerEntries,
		EventsByKind:     kinds,
		RejectedByReason: reasons,
		StartedAt:        report.StartedAt,
		DurationMillis:   report.Duration.Milliseconds(),
	}
}

// ErrorResponse represents an error in API responses.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}
