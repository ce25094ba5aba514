package domain

import (
	"github.com/shopspring/decimal"
)

// LedgerEntry records one settled deposit or withdrawal that may still be
// referenced by a dispute, resolve, or chargeback.
type LedgerEntry struct {
	Client   ClientID
	Kind     CommandKind
	Amount   decimal.Decimal
	Disputed bool
}

// Ledger indexes settled transactions by id for dispute-family lookups.
// It is the pipeline's only unbounded structure, so entries that can never
// be referenced again must be evicted.
type Ledger struct {
	entries  map[TransactionID]*LedgerEntry
	byClient map[ClientID]map[TransactionID]struct{}
}

// NewLedger returns an empty ledger.
func NewLedger() *Ledger {
	return &Ledger{
		entries:  make(map[TransactionID]*LedgerEntry),
		byClient: make(map[ClientID]map[TransactionID]struct{}),
	}
}

// Put records a settled transaction. Transaction ids are unique for the
// whole stream; a duplicate id is refused.
func (l *Ledger) Put(tx TransactionID, entry *LedgerEntry) error {
	if _, ok := l.entries[tx]; ok {
		return ErrDuplicateTransaction
	}

	l.entries[tx] = entry

	txs, ok := l.byClient[entry.Client]
	if !ok {
		txs = make(map[TransactionID]struct{})
		l.byClient[entry.Client] = txs
	}
	txs[tx] = struct{}{}

	return nil
}

// Get returns the entry for tx. The entry is mutable in place; dispute state
// transitions flip its Disputed flag.
func (l *Ledger) Get(tx TransactionID) (*LedgerEntry, bool) {
	entry, ok := l.entries[tx]
	return entry, ok
}

// Has reports whether tx is recorded.
func (l *Ledger) Has(tx TransactionID) bool {
	_, ok := l.entries[tx]
	return ok
}

// Evict drops the entry for tx. Evicting an absent id is a no-op; eviction
// never changes balances.
func (l *Ledger) Evict(tx TransactionID) {
	entry, ok := l.entries[tx]
	if !ok {
		return
	}

	delete(l.entries, tx)

	if txs, ok := l.byClient[entry.Client]; ok {
		delete(txs, tx)
		if len(txs) == 0 {
			delete(l.byClient, entry.Client)
		}
	}
}

// EvictClient drops every entry held for client and returns how many were
// dropped. Once an account locks, none of its transactions can be referenced
// again.
func (l *Ledger) EvictClient(client ClientID) int {
	txs, ok := l.byClient[client]
	if !ok {
		return 0
	}

	for tx := range txs {
		delete(l.entries, tx)
	}

	n := len(txs)
	delete(l.byClient, client)

	return n
}

// Len returns the number of live entries.
func (l *Ledger) Len() int {
	return len(l.entries)
}

// DisputedTotal sums the amounts currently under dispute for client.
func (l *Ledger) DisputedTotal(client ClientID) decimal.Decimal {
	total := decimal.Zero

	for tx := range l.byClient[client] {
		if entry := l.entries[tx]; entry != nil && entry.Disputed {
			total = total.Add(entry.Amount)
		}
	}

	return total
}
