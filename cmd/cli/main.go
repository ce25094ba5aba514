package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/iho/goaccounts/internal/adapter/eventsink"
	"github.com/iho/goaccounts/internal/adapter/idgen"
	"github.com/iho/goaccounts/internal/adapter/sink"
	"github.com/iho/goaccounts/internal/adapter/source"
	"github.com/iho/goaccounts/internal/domain"
	"github.com/iho/goaccounts/internal/generator"
	"github.com/iho/goaccounts/internal/infrastructure/metrics"
	"github.com/iho/goaccounts/internal/usecase"
)

// engineMetrics is shared across command invocations; the collectors
// register once per process.
var engineMetrics = metrics.New()

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var verbosity int

	rootCmd := &cobra.Command{
		Use:   "goaccounts",
		Short: "Payments stream processing engine",
		Long:  `Processes ordered transaction streams into account snapshots and generates synthetic streams for testing.`,
	}

	rootCmd.PersistentFlags().CountVarP(&verbosity, "verbose", "v", "Increase logging verbosity")

	rootCmd.AddCommand(newProcessCmd(&verbosity))
	rootCmd.AddCommand(newGenerateCmd(&verbosity))

	return rootCmd
}

// newLogger writes console diagnostics to stderr so stdout stays
// reserved for snapshot and stream output.
func newLogger(verbosity int) zerolog.Logger {
	level := zerolog.ErrorLevel
	switch {
	case verbosity >= 3:
		level = zerolog.TraceLevel
	case verbosity == 2:
		level = zerolog.DebugLevel
	case verbosity == 1:
		level = zerolog.InfoLevel
	}

	return zerolog.New(zerolog.ConsoleWriter{
		Out:        os.Stderr,
		TimeFormat: time.RFC3339,
	}).Level(level).With().Timestamp().Logger()
}

type processOptions struct {
	output             string
	precision          int
	verify             bool
	reconcile          bool
	withdrawalDisputes bool
	evictOnLock        bool
}

func newProcessCmd(verbosity *int) *cobra.Command {
	var opts processOptions

	cmd := &cobra.Command{
		Use:   "process <source>",
		Short: "Process a command stream into an account snapshot",
		Long: `Reads CSV commands from <source> ("-" for stdin), applies them in
order, and writes the final account snapshot as CSV. Rejected commands
are recorded and the run continues; only I/O failures abort.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runProcess(cmd, args[0], opts, newLogger(*verbosity))
		},
	}

	cmd.Flags().StringVarP(&opts.output, "output", "o", "-", `Snapshot destination, "-" for stdout`)
	cmd.Flags().IntVar(&opts.precision, "precision", domain.DefaultAmountPrecision, "Fractional digits amounts are truncated to")
	cmd.Flags().BoolVar(&opts.verify, "verify", false, "Replay the run's events and check the snapshot matches")
	cmd.Flags().BoolVar(&opts.reconcile, "reconcile", false, "Check balance conservation against the event stream")
	cmd.Flags().BoolVar(&opts.withdrawalDisputes, "withdrawal-disputes", true, "Allow dispute-family commands to reference withdrawals")
	cmd.Flags().BoolVar(&opts.evictOnLock, "evict-on-lock", true, "Drop ledger entries of accounts locked by a chargeback")

	return cmd
}

func runProcess(cmd *cobra.Command, sourcePath string, opts processOptions, logger zerolog.Logger) error {
	ctx := cmd.Context()

	var in io.Reader = cmd.InOrStdin()
	if sourcePath != "-" {
		f, err := os.Open(sourcePath)
		if err != nil {
			return fmt.Errorf("open source: %w", err)
		}
		defer f.Close()
		in = f
	}

	journal := eventsink.NewMemory(0)
	engine := usecase.NewStreamUseCase(journal, idgen.NewULIDGenerator(), engineMetrics, logger, usecase.StreamOptions{
		WithdrawalDisputes: opts.withdrawalDisputes,
		EvictOnLock:        opts.evictOnLock,
	})

	report, err := engine.Process(ctx, source.NewCSVSource(in, int32(opts.precision)))
	if err != nil {
		return fmt.Errorf("process stream: %w", err)
	}

	logger.Info().
		Int("commands", report.Commands).
		Int("applied", report.Applied).
		Int("rejected", report.Rejected).
		Int("malformed", report.Malformed).
		Int("accounts", report.Accounts).
		Dur("duration", report.Duration).
		Msg("stream processed")

	if opts.verify {
		replay, err := usecase.NewReplayUseCase().Verify(ctx, journal.Source(), engine.Store())
		if err != nil {
			return fmt.Errorf("verify replay: %w", err)
		}

		if !replay.Deterministic() {
			for _, d := range replay.Divergences {
				logger.Error().
					Uint16("client", uint16(d.Client)).
					Str("field", d.Field).
					Str("live", d.Live).
					Str("replayed", d.Replayed).
					Msg("replay divergence")
			}
			return fmt.Errorf("replay diverged on %d fields", len(replay.Divergences))
		}

		logger.Info().Int("events", replay.Events).Msg("replay verified")
	}

	if opts.reconcile {
		recon, err := usecase.NewReconciliationUseCase().CheckConservation(ctx, journal.Source(), engine.Store())
		if err != nil {
			return fmt.Errorf("check conservation: %w", err)
		}

		if !recon.Consistent {
			for _, d := range recon.Discrepancies {
				logger.Error().
					Uint16("client", uint16(d.Client)).
					Str("projected", d.ProjectedTotal.String()).
					Str("expected", d.ExpectedTotal.String()).
					Msg("conservation discrepancy")
			}
			return fmt.Errorf("conservation check failed for %d accounts", len(recon.Discrepancies))
		}

		logger.Info().Int("accounts", recon.TotalAccounts).Msg("conservation verified")
	}

	var out io.Writer = cmd.OutOrStdout()
	if opts.output != "-" {
		f, err := os.Create(opts.output)
		if err != nil {
			return fmt.Errorf("create output: %w", err)
		}
		defer f.Close()
		out = f
	}

	if err := engine.WriteSnapshot(ctx, sink.NewCSVWriter(out, int32(opts.precision))); err != nil {
		return fmt.Errorf("write snapshot: %w", err)
	}

	return nil
}

func newGenerateCmd(verbosity *int) *cobra.Command {
	defaults := generator.DefaultConfig()

	var (
		clients      uint16
		transactions uint32
		seed         int64
		output       string
	)

	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Generate a synthetic command stream",
		Long: `Writes a synthetic CSV command stream: one opening deposit per
client followed by a mix of deposits, withdrawals and dispute-family
commands. The same seed reproduces the same stream.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := newLogger(*verbosity)

			g, err := generator.New(generator.Config{
				Clients:      clients,
				Transactions: transactions,
				Seed:         seed,
			})
			if err != nil {
				return err
			}

			logger.Info().
				Uint16("clients", clients).
				Uint32("transactions", transactions).
				Int64("seed", g.Seed()).
				Msg("generating stream")

			var out io.Writer = cmd.OutOrStdout()
			if output != "-" {
				f, err := os.Create(output)
				if err != nil {
					return fmt.Errorf("create output: %w", err)
				}
				defer f.Close()
				out = f
			}

			if err := generator.WriteCSV(cmd.Context(), out, g); err != nil {
				return fmt.Errorf("generate stream: %w", err)
			}

			logger.Info().Msg("stream generated")

			return nil
		},
	}

	cmd.Flags().Uint16VarP(&clients, "clients", "c", defaults.Clients, "Number of clients")
	cmd.Flags().Uint32VarP(&transactions, "transactions", "t", defaults.Transactions, "Number of transactions")
	cmd.Flags().Int64Var(&seed, "seed", 0, "Random seed, 0 derives one from the clock")
	cmd.Flags().StringVarP(&output, "output", "o", "-", `Stream destination, "-" for stdout`)

	return cmd
}
