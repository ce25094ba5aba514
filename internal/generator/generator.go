// Package generator produces synthetic command streams for load and
// soak testing.
package generator

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math/rand"
	"time"

	"github.com/shopspring/decimal"

	"github.com/iho/goaccounts/internal/domain"
)

const openingChunk = 50

// Amount bounds are fixed-point units at four decimal places.
const (
	minDepositUnits    = 300000
	maxDepositUnits    = 5000000
	minWithdrawalUnits = 100000
	maxWithdrawalUnits = 4000000
)

// Config bounds the generated stream.
type Config struct {
	Clients      uint16
	Transactions uint32
	Seed         int64 // 0 derives a seed from the clock
}

// DefaultConfig returns a Config sized for a quick local run.
func DefaultConfig() Config {
	return Config{
		Clients:      100,
		Transactions: 10000,
	}
}

// Generator yields a synthetic stream: one opening deposit per client,
// then a mixed phase of deposits, withdrawals and dispute-family
// commands, topped up with deposits until the requested count is
// reached. Withdrawals can overdraw and chargebacks lock accounts, so
// a realistic share of commands is rejected downstream.
//
// Generator implements the command source contract, so a stream can be
// processed directly without touching disk. The same seed reproduces
// the same stream.
type Generator struct {
	cfg  Config
	seed int64
	rng  *rand.Rand

	written uint32
	pending []domain.Command

	opening []domain.ClientID
	cursor  int

	deposits    uint32
	withdrawals uint32
	disputes    uint32
	resolves    uint32
	chargebacks uint32
	mixed       uint32
}

// New validates cfg and plans the stream.
func New(cfg Config) (*Generator, error) {
	if cfg.Clients < 2 {
		return nil, fmt.Errorf("generator requires at least 2 clients, got %d", cfg.Clients)
	}

	if cfg.Transactions == 0 {
		return nil, errors.New("generator requires at least 1 transaction")
	}

	seed := cfg.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}

	g := &Generator{
		cfg:  cfg,
		seed: seed,
		rng:  rand.New(rand.NewSource(seed)),
	}
	g.plan()

	return g, nil
}

// Seed returns the seed in effect, derived or configured.
func (g *Generator) Seed() int64 {
	return g.seed
}

// Total returns the number of commands the stream will carry.
func (g *Generator) Total() uint32 {
	return g.cfg.Transactions
}

// plan shuffles the opening deposit order and splits the remaining
// budget into per-kind buckets.
func (g *Generator) plan() {
	opening := uint32(g.cfg.Clients) - 1
	if opening > g.cfg.Transactions {
		opening = g.cfg.Transactions
	}

	g.opening = make([]domain.ClientID, 0, opening)
	for client := uint16(1); uint32(len(g.opening)) < opening; client++ {
		g.opening = append(g.opening, domain.ClientID(client))
	}

	// shuffle within chunks so low client ids still land early
	for start := 0; start < len(g.opening); start += openingChunk {
		end := start + openingChunk
		if end > len(g.opening) {
			end = len(g.opening)
		}

		chunk := g.opening[start:end]
		g.rng.Shuffle(len(chunk), func(i, j int) {
			chunk[i], chunk[j] = chunk[j], chunk[i]
		})
	}

	remaining := g.cfg.Transactions - opening
	g.deposits = uint32(float64(remaining) * 0.4)
	g.withdrawals = uint32(float64(remaining) * 0.4)
	g.disputes = uint32(float64(remaining) * 0.15)
	g.resolves = uint32(float64(remaining) * 0.025)
	g.chargebacks = uint32(float64(remaining) * 0.025)
	g.mixed = g.deposits + g.withdrawals + g.disputes + g.resolves + g.chargebacks
}

// Next returns the next command, io.EOF once the stream is exhausted.
func (g *Generator) Next(ctx context.Context) (domain.Command, error) {
	if err := ctx.Err(); err != nil {
		return domain.Command{}, err
	}

	if len(g.pending) == 0 {
		g.refill()
	}

	if len(g.pending) == 0 {
		return domain.Command{}, io.EOF
	}

	cmd := g.pending[0]
	g.pending = g.pending[1:]

	return cmd, nil
}

func (g *Generator) refill() {
	switch {
	case g.cursor < len(g.opening):
		client := g.opening[g.cursor]
		g.cursor++
		g.emitDeposit(client)
	case g.mixed > 0:
		g.mixedRound()
	case g.written < g.cfg.Transactions:
		g.emitDeposit(g.randomClient())
	}
}

// mixedRound emits up to one command per bucket: a deposit, a
// withdrawal, and a dispute that targets the round's own deposit,
// optionally followed by a resolve or chargeback of that dispute.
func (g *Generator) mixedRound() {
	client := g.randomClient()

	if g.deposits > 0 {
		g.emitDeposit(client)
		g.deposits--
		g.mixed--
	}

	if g.mixed > 0 && g.withdrawals > 0 {
		g.emit(domain.Command{
			Kind:   domain.CommandWithdrawal,
			Client: client,
			Tx:     domain.TransactionID(g.written + 1),
			Amount: g.amount(minWithdrawalUnits, maxWithdrawalUnits),
		})
		g.withdrawals--
		g.mixed--
	}

	if g.mixed > 0 && g.disputes > 0 {
		disputed := domain.TransactionID(g.written - 1)

		g.emit(domain.Command{
			Kind:   domain.CommandDispute,
			Client: client,
			Tx:     disputed,
		})
		g.disputes--
		g.mixed--

		switch {
		case g.mixed > 0 && g.resolves > 0:
			g.emit(domain.Command{
				Kind:   domain.CommandResolve,
				Client: client,
				Tx:     disputed,
			})
			g.resolves--
			g.mixed--
		case g.mixed > 0 && g.chargebacks > 0:
			g.emit(domain.Command{
				Kind:   domain.CommandChargeback,
				Client: client,
				Tx:     disputed,
			})
			g.chargebacks--
			g.mixed--
		}
	}
}

func (g *Generator) emitDeposit(client domain.ClientID) {
	g.emit(domain.Command{
		Kind:   domain.CommandDeposit,
		Client: client,
		Tx:     domain.TransactionID(g.written + 1),
		Amount: g.amount(minDepositUnits, maxDepositUnits),
	})
}

// emit queues cmd and advances the record counter. Dispute-family
// commands consume a record slot without consuming a transaction id.
func (g *Generator) emit(cmd domain.Command) {
	g.pending = append(g.pending, cmd)
	g.written++
}

func (g *Generator) randomClient() domain.ClientID {
	return domain.ClientID(1 + g.rng.Intn(int(g.cfg.Clients)-1))
}

func (g *Generator) amount(lo, hi int64) decimal.Decimal {
	return decimal.New(lo+g.rng.Int63n(hi-lo), -domain.DefaultAmountPrecision)
}
