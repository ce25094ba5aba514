package usecase

import (
	"context"

	"github.com/iho/goaccounts/internal/domain"
	"github.com/iho/goaccounts/internal/projection"
)

// QueryUseCase serves read requests over the projected accounts and the
// recorded event sequence.
type QueryUseCase struct {
	store   *projection.Store
	journal EventJournal
}

// NewQueryUseCase creates a new QueryUseCase. The journal may be nil when
// no event journal is wired; event queries then return empty results.
func NewQueryUseCase(store *projection.Store, journal EventJournal) *QueryUseCase {
	return &QueryUseCase{
		store:   store,
		journal: journal,
	}
}

// ListAccountsInput represents input for listing accounts.
type ListAccountsInput struct {
	Limit  int
	Offset int
}

// ListAccounts returns one page of projected accounts ordered by client id,
// plus the total account count.
func (uc *QueryUseCase) ListAccounts(ctx context.Context, input ListAccountsInput) ([]*domain.Account, int, error) {
	if input.Limit <= 0 {
		input.Limit = 20
	}

	if input.Limit > 100 {
		input.Limit = 100
	}

	if input.Offset < 0 {
		input.Offset = 0
	}

	accounts := uc.store.Accounts()
	total := len(accounts)

	if input.Offset >= total {
		return nil, total, nil
	}

	end := input.Offset + input.Limit
	if end > total {
		end = total
	}

	return accounts[input.Offset:end], total, nil
}

// GetAccount returns the projected account for a client.
func (uc *QueryUseCase) GetAccount(ctx context.Context, client domain.ClientID) (*domain.Account, error) {
	acc, ok := uc.store.Get(client)
	if !ok {
		return nil, domain.ErrAccountNotFound
	}

	return acc, nil
}

// ListEventsInput represents input for listing recorded events.
type ListEventsInput struct {
	Client *domain.ClientID
	Kind   domain.EventKind
	Limit  int
	Offset int
}

// ListEvents returns one page of recorded events in emission order, plus
// the total count matching the filter.
func (uc *QueryUseCase) ListEvents(ctx context.Context, input ListEventsInput) ([]domain.Event, int, error) {
	if input.Limit <= 0 {
		input.Limit = 50
	}

	if input.Limit > 500 {
		input.Limit = 500
	}

	if input.Offset < 0 {
		input.Offset = 0
	}

	if uc.journal == nil {
		return nil, 0, nil
	}

	var matched []domain.Event
	for _, ev := range uc.journal.Events() {
		if input.Client != nil && ev.Client != *input.Client {
			continue
		}
		if input.Kind != "" && ev.Kind != input.Kind {
			continue
		}
		matched = append(matched, ev)
	}

	total := len(matched)
	if input.Offset >= total {
		return nil, total, nil
	}

	end := input.Offset + input.Limit
	if end > total {
		end = total
	}

	return matched[input.Offset:end], total, nil
}
