package usecase

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/iho/goaccounts/internal/domain"
	"github.com/iho/goaccounts/internal/infrastructure/metrics"
	"github.com/iho/goaccounts/internal/projection"
)

// StreamOptions tune one engine run.
type StreamOptions struct {
	// WithdrawalDisputes allows dispute-family commands to reference
	// withdrawals as well as deposits.
	WithdrawalDisputes bool

	// EvictOnLock drops all of a client's ledger entries once a chargeback
	// locks the account. A locked account rejects every later command, so
	// its entries can never be referenced again.
	EvictOnLock bool
}

// DefaultStreamOptions returns the options used by the CLI and server.
func DefaultStreamOptions() StreamOptions {
	return StreamOptions{
		WithdrawalDisputes: true,
		EvictOnLock:        true,
	}
}

// StreamUseCase is the engine at the center of the pipeline. It consumes
// commands strictly in arrival order, validates each against its account
// aggregate, folds the outcome event into the projection, and maintains the
// transaction ledger. One instance owns one run; it is not safe for
// concurrent use.
type StreamUseCase struct {
	store   *projection.Store
	ledger  *domain.Ledger
	sink    EventSink
	idGen   IDGenerator
	metrics *metrics.Metrics
	logger  zerolog.Logger
	opts    StreamOptions
}

// NewStreamUseCase creates a new StreamUseCase. sink may be nil when no
// event consumer is wired.
func NewStreamUseCase(
	sink EventSink,
	idGen IDGenerator,
	m *metrics.Metrics,
	logger zerolog.Logger,
	opts StreamOptions,
) *StreamUseCase {
	return &StreamUseCase{
		store:   projection.NewStore(),
		ledger:  domain.NewLedger(),
		sink:    sink,
		idGen:   idGen,
		metrics: m,
		logger:  logger,
		opts:    opts,
	}
}

// Store returns the projection owned by this run.
func (uc *StreamUseCase) Store() *projection.Store {
	return uc.store
}

// RunReport summarizes one stream run.
type RunReport struct {
	Commands         int
	Applied          int
	Rejected         int
	Malformed        int
	Accounts         int
	LockedAccounts   int
	LedgerEntries    int
	EventsByKind     map[domain.EventKind]int
	RejectedByReason map[domain.RejectReason]int
	StartedAt        time.Time
	Duration         time.Duration
}

// Process drains the source. Malformed records are reported and skipped;
// rejected commands become Rejected events and the run continues. Only
// source or sink I/O failures abort.
func (uc *StreamUseCase) Process(ctx context.Context, source CommandSource) (*RunReport, error) {
	report := &RunReport{
		EventsByKind:     make(map[domain.EventKind]int),
		RejectedByReason: make(map[domain.RejectReason]int),
		StartedAt:        time.Now().UTC(),
	}

	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		cmd, err := source.Next(ctx)
		if errors.Is(err, io.EOF) {
			break
		}

		var recErr *domain.RecordError
		if errors.As(err, &recErr) {
			report.Malformed++
			if uc.metrics != nil {
				uc.metrics.RecordsMalformed.Inc()
			}
			uc.logger.Warn().Int("line", recErr.Line).Err(recErr.Err).Msg("skipping malformed record")
			continue
		}

		if err != nil {
			return nil, fmt.Errorf("read command: %w", err)
		}

		report.Commands++
		if uc.metrics != nil {
			uc.metrics.CommandsProcessed.WithLabelValues(string(cmd.Kind)).Inc()
		}

		ev, err := uc.applyCommand(cmd)
		if err != nil {
			return nil, err
		}

		if uc.sink != nil {
			if err := uc.sink.Append(ctx, ev); err != nil {
				return nil, fmt.Errorf("append event: %w", err)
			}
		}

		uc.observe(report, cmd, ev)
	}

	uc.finishReport(report)

	uc.logger.Info().
		Int("commands", report.Commands).
		Int("applied", report.Applied).
		Int("rejected", report.Rejected).
		Int("malformed", report.Malformed).
		Int("accounts", report.Accounts).
		Int("ledger_entries", report.LedgerEntries).
		Dur("duration", report.Duration).
		Msg("stream run completed")

	return report, nil
}

// WriteSnapshot hands the final projection to w.
func (uc *StreamUseCase) WriteSnapshot(ctx context.Context, w SnapshotWriter) error {
	return w.WriteAccounts(ctx, uc.store.Accounts())
}

// applyCommand routes one command through validation and folds the outcome.
// Every command yields exactly one event; only invariant breaches (an event
// the projection cannot fold) return an error.
func (uc *StreamUseCase) applyCommand(cmd domain.Command) (domain.Event, error) {
	acc := uc.store.Account(cmd.Client)

	if verr := uc.validate(acc, cmd); verr != nil {
		ev := uc.newEvent(domain.EventRejected, cmd, cmd.Amount)
		ev.Reason = domain.ReasonForError(verr)

		if _, err := uc.store.Fold(ev); err != nil {
			return domain.Event{}, err
		}

		return ev, nil
	}

	kind, err := domain.EventKindForCommand(cmd.Kind)
	if err != nil {
		return domain.Event{}, err
	}

	amount := cmd.Amount
	if cmd.Kind.References() {
		// present and owned by this client: validated above
		entry, _ := uc.ledger.Get(cmd.Tx)
		amount = entry.Amount
	}

	ev := uc.newEvent(kind, cmd, amount)

	if _, err := uc.store.Fold(ev); err != nil {
		return domain.Event{}, err
	}

	uc.foldLedger(cmd, ev)

	return ev, nil
}

// validate applies the aggregate's decision procedure. Stream-wide
// transaction-id uniqueness is checked first; the rest is the account's
// call.
func (uc *StreamUseCase) validate(acc *domain.Account, cmd domain.Command) error {
	switch cmd.Kind {
	case domain.CommandDeposit:
		if uc.ledger.Has(cmd.Tx) {
			return domain.ErrDuplicateTransaction
		}
		return acc.ValidateDeposit(cmd.Amount)

	case domain.CommandWithdrawal:
		if uc.ledger.Has(cmd.Tx) {
			return domain.ErrDuplicateTransaction
		}
		return acc.ValidateWithdrawal(cmd.Amount)

	case domain.CommandDispute:
		entry, _ := uc.ledger.Get(cmd.Tx)
		if err := acc.ValidateDispute(entry); err != nil {
			return err
		}
		if entry.Kind == domain.CommandWithdrawal && !uc.opts.WithdrawalDisputes {
			return domain.ErrNotDisputable
		}
		return nil

	case domain.CommandResolve:
		entry, _ := uc.ledger.Get(cmd.Tx)
		return acc.ValidateResolve(entry)

	case domain.CommandChargeback:
		entry, _ := uc.ledger.Get(cmd.Tx)
		return acc.ValidateChargeback(entry)

	default:
		return fmt.Errorf("%w: %q", domain.ErrUnknownCommandKind, cmd.Kind)
	}
}

// foldLedger maintains the transaction ledger for an applied event.
func (uc *StreamUseCase) foldLedger(cmd domain.Command, ev domain.Event) {
	switch ev.Kind {
	case domain.EventDeposited, domain.EventWithdrawn:
		entry := &domain.LedgerEntry{Client: cmd.Client, Kind: cmd.Kind, Amount: ev.Amount}
		if err := uc.ledger.Put(cmd.Tx, entry); err != nil {
			// unreachable: duplicates are rejected during validation
			uc.logger.Error().Uint32("tx", uint32(cmd.Tx)).Err(err).Msg("ledger put failed")
		}

	case domain.EventDisputed:
		if entry, ok := uc.ledger.Get(cmd.Tx); ok {
			entry.Disputed = true
		}

	case domain.EventResolved:
		if entry, ok := uc.ledger.Get(cmd.Tx); ok {
			entry.Disputed = false
		}

	case domain.EventChargedBack:
		evicted := 1
		uc.ledger.Evict(cmd.Tx)
		if uc.opts.EvictOnLock {
			evicted += uc.ledger.EvictClient(cmd.Client)
		}
		if uc.metrics != nil {
			uc.metrics.LedgerEvictions.Add(float64(evicted))
		}
	}

	if uc.metrics != nil {
		uc.metrics.LedgerEntries.Set(float64(uc.ledger.Len()))
	}
}

func (uc *StreamUseCase) observe(report *RunReport, cmd domain.Command, ev domain.Event) {
	report.EventsByKind[ev.Kind]++

	if uc.metrics != nil {
		uc.metrics.EventsEmitted.WithLabelValues(string(ev.Kind)).Inc()
	}

	if ev.Rejected() {
		report.Rejected++
		report.RejectedByReason[ev.Reason]++

		if uc.metrics != nil {
			uc.metrics.CommandsRejected.WithLabelValues(string(ev.Reason)).Inc()
		}

		uc.logger.Debug().
			Str("kind", string(cmd.Kind)).
			Uint16("client", uint16(cmd.Client)).
			Uint32("tx", uint32(cmd.Tx)).
			Str("reason", string(ev.Reason)).
			Msg("command rejected")

		return
	}

	report.Applied++

	if uc.metrics != nil {
		if cmd.Kind.Monetary() {
			f, _ := ev.Amount.Float64()
			uc.metrics.CommandAmount.Observe(f)
		}

		switch ev.Kind {
		case domain.EventDisputed:
			uc.metrics.DisputesOpened.Inc()
		case domain.EventResolved:
			uc.metrics.DisputesResolved.Inc()
		case domain.EventChargedBack:
			uc.metrics.Chargebacks.Inc()
			uc.metrics.AccountsLocked.Inc()
		}
	}
}

func (uc *StreamUseCase) finishReport(report *RunReport) {
	report.Accounts = uc.store.Len()
	report.LedgerEntries = uc.ledger.Len()
	report.Duration = time.Since(report.StartedAt)

	for _, acc := range uc.store.Accounts() {
		if acc.Locked {
			report.LockedAccounts++
		}
	}

	if uc.metrics != nil {
		uc.metrics.AccountsProjected.Set(float64(report.Accounts))
		uc.metrics.LedgerEntries.Set(float64(report.LedgerEntries))
		uc.metrics.RunDuration.Observe(report.Duration.Seconds())
	}
}

func (uc *StreamUseCase) newEvent(kind domain.EventKind, cmd domain.Command, amount decimal.Decimal) domain.Event {
	var id string
	if uc.idGen != nil {
		id = uc.idGen.Generate()
	}

	return domain.Event{
		ID:         id,
		Kind:       kind,
		Client:     cmd.Client,
		Tx:         cmd.Tx,
		Amount:     amount,
		OccurredAt: time.Now().UTC(),
	}
}
