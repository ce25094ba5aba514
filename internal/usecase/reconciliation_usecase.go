package usecase

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/shopspring/decimal"

	"github.com/iho/goaccounts/internal/domain"
	"github.com/iho/goaccounts/internal/projection"
)

// ReconciliationUseCase checks the conservation law over a finished run:
// for every client, available+held must equal net deposits minus
// withdrawals minus chargebacks, and held must equal the sum of open
// disputes. Dispute/resolve cycling never changes the total.
type ReconciliationUseCase struct{}

// NewReconciliationUseCase creates a new reconciliation use case.
func NewReconciliationUseCase() *ReconciliationUseCase {
	return &ReconciliationUseCase{}
}

// ReconciliationResult represents the conservation check for one account.
type ReconciliationResult struct {
	Client         domain.ClientID
	ProjectedTotal decimal.Decimal
	ExpectedTotal  decimal.Decimal
	ProjectedHeld  decimal.Decimal
	ExpectedHeld   decimal.Decimal
	Difference     decimal.Decimal
	IsReconciled   bool
}

// ReconciliationReport represents a full conservation report.
type ReconciliationReport struct {
	TotalAccounts      int
	ReconciledAccounts int
	Discrepancies      []*ReconciliationResult
	Consistent         bool
	CheckedAt          time.Time
}

// CheckConservation folds the event stream into per-client net effects and
// compares them with the projected balances.
func (uc *ReconciliationUseCase) CheckConservation(ctx context.Context, events EventSource, store *projection.Store) (*ReconciliationReport, error) {
	totals := make(map[domain.ClientID]decimal.Decimal)
	helds := make(map[domain.ClientID]decimal.Decimal)

	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		ev, err := events.Next(ctx)
		if errors.Is(err, io.EOF) {
			break
		}

		if err != nil {
			return nil, fmt.Errorf("read event: %w", err)
		}

		switch ev.Kind {
		case domain.EventDeposited:
			totals[ev.Client] = totals[ev.Client].Add(ev.Amount)
		case domain.EventWithdrawn:
			totals[ev.Client] = totals[ev.Client].Sub(ev.Amount)
		case domain.EventDisputed:
			helds[ev.Client] = helds[ev.Client].Add(ev.Amount)
		case domain.EventResolved:
			helds[ev.Client] = helds[ev.Client].Sub(ev.Amount)
		case domain.EventChargedBack:
			totals[ev.Client] = totals[ev.Client].Sub(ev.Amount)
			helds[ev.Client] = helds[ev.Client].Sub(ev.Amount)
		}
	}

	report := &ReconciliationReport{
		TotalAccounts: store.Len(),
		Discrepancies: make([]*ReconciliationResult, 0),
		CheckedAt:     time.Now().UTC(),
	}

	for _, acc := range store.Accounts() {
		result := &ReconciliationResult{
			Client:         acc.Client,
			ProjectedTotal: acc.Total(),
			ExpectedTotal:  totals[acc.Client],
			ProjectedHeld:  acc.Held,
			ExpectedHeld:   helds[acc.Client],
		}

		result.Difference = result.ProjectedTotal.Sub(result.ExpectedTotal)
		result.IsReconciled = result.Difference.IsZero() && result.ProjectedHeld.Equal(result.ExpectedHeld)

		if result.IsReconciled {
			report.ReconciledAccounts++
		} else {
			report.Discrepancies = append(report.Discrepancies, result)
		}
	}

	report.Consistent = len(report.Discrepancies) == 0

	return report, nil
}
