// Package projection holds the read-side account state folded from the
// event stream.
package projection

import (
	"sort"

	"github.com/iho/goaccounts/internal/domain"
)

// Store maps clients to their projected accounts. It is a pure function of
// the event sequence folded into it and is owned by a single engine run;
// there is no internal locking.
type Store struct {
	accounts map[domain.ClientID]*domain.Account
}

// NewStore returns an empty store.
func NewStore() *Store {
	return &Store{accounts: make(map[domain.ClientID]*domain.Account)}
}

// Account returns the account for client, creating an empty one on first
// sight. Accounts exist from the first command that names them, even when
// that command is rejected.
func (s *Store) Account(client domain.ClientID) *domain.Account {
	acc, ok := s.accounts[client]
	if !ok {
		acc = domain.NewAccount(client)
		s.accounts[client] = acc
	}

	return acc
}

// Get returns the account for client without creating one.
func (s *Store) Get(client domain.ClientID) (*domain.Account, bool) {
	acc, ok := s.accounts[client]
	return acc, ok
}

// Fold applies one event to its client's account, creating the account
// slot if needed.
func (s *Store) Fold(ev domain.Event) (*domain.Account, error) {
	acc := s.Account(ev.Client)
	if err := acc.Apply(ev); err != nil {
		return nil, err
	}

	return acc, nil
}

// Len returns the number of projected accounts.
func (s *Store) Len() int {
	return len(s.accounts)
}

// Accounts returns every projected account ordered by client id.
func (s *Store) Accounts() []*domain.Account {
	out := make([]*domain.Account, 0, len(s.accounts))
	for _, acc := range s.accounts {
		out = append(out, acc)
	}

	sort.Slice(out, func(i, j int) bool { return out[i].Client < out[j].Client })

	return out
}
