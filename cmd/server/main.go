package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/jackc/pgx/v5/pgxpool"
	goredis "github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/iho/goaccounts/internal/adapter/eventsink"
	httpAdapter "github.com/iho/goaccounts/internal/adapter/http"
	"github.com/iho/goaccounts/internal/adapter/http/handler"
	"github.com/iho/goaccounts/internal/adapter/http/middleware"
	"github.com/iho/goaccounts/internal/adapter/idgen"
	postgresRepo "github.com/iho/goaccounts/internal/adapter/repository/postgres"
	redisRepo "github.com/iho/goaccounts/internal/adapter/repository/redis"
	"github.com/iho/goaccounts/internal/adapter/source"
	"github.com/iho/goaccounts/internal/infrastructure/config"
	"github.com/iho/goaccounts/internal/infrastructure/logger"
	"github.com/iho/goaccounts/internal/infrastructure/metrics"
	"github.com/iho/goaccounts/internal/infrastructure/postgres"
	"github.com/iho/goaccounts/internal/infrastructure/redis"
	"github.com/iho/goaccounts/internal/projection"
	"github.com/iho/goaccounts/internal/usecase"
)

// serverMetrics registers its collectors once per process.
var serverMetrics = metrics.New()

func main() {
	// Setup logger
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load configuration")
	}

	log.Logger = logger.New(logger.Config{Level: cfg.LogLevel, Format: cfg.LogFormat})

	ctx := context.Background()

	// Event consumers: the in-memory journal always, the postgres
	// archive when configured
	journal := eventsink.NewMemory(cfg.JournalCapacity)
	sinks := []usecase.EventSink{journal, eventsink.NewLog(log.Logger)}

	var (
		pool    *pgxpool.Pool
		archive *postgresRepo.EventArchive
	)
	if cfg.ArchiveEnabled() {
		if cfg.MigrateOnStart {
			if err := postgres.RunMigrations(cfg.DatabaseURL); err != nil {
				log.Fatal().Err(err).Msg("failed to run migrations")
			}
		}

		pool, err = postgres.NewPool(ctx, cfg.DatabaseURL, cfg.DatabaseMaxConns, cfg.DatabaseMinConns)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to connect to postgres")
		}
		defer pool.Close()
		log.Info().Msg("connected to postgres")

		archive = postgresRepo.NewEventArchive(pool, serverMetrics)
		sinks = append(sinks, archive)
	}

	// Connect to Redis
	var redisClient *goredis.Client
	if cfg.MirrorEnabled() {
		redisClient, err = redis.NewClient(ctx, cfg.RedisURL)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to connect to redis")
		}
		defer redisClient.Close()
		log.Info().Msg("connected to redis")
	}

	// Build the engine and process the configured source
	engine := usecase.NewStreamUseCase(
		eventsink.NewFanout(sinks...),
		idgen.NewULIDGenerator(),
		serverMetrics,
		log.Logger,
		usecase.StreamOptions{
			WithdrawalDisputes: cfg.WithdrawalDisputes,
			EvictOnLock:        cfg.EvictOnLock,
		},
	)

	report, err := runStream(ctx, engine, cfg.SourcePath, cfg.AmountPrecision)
	if err != nil {
		log.Fatal().Err(err).Str("source", cfg.SourcePath).Msg("failed to process stream")
	}

	log.Info().
		Int("commands", report.Commands).
		Int("applied", report.Applied).
		Int("rejected", report.Rejected).
		Int("malformed", report.Malformed).
		Int("accounts", report.Accounts).
		Dur("duration", report.Duration).
		Msg("stream processed")

	if cfg.VerifyOnBoot {
		if err := verifyReplay(ctx, engine, journal); err != nil {
			log.Fatal().Err(err).Msg("replay verification failed")
		}
	}

	// Without a source the archive is the system of record: rebuild the
	// projection from its events.
	store := engine.Store()
	if cfg.SourcePath == "" && archive != nil {
		store, err = rebuildFromArchive(ctx, archive)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to rebuild projection from archive")
		}
	}

	if archive != nil {
		if total, err := archive.Count(ctx); err == nil {
			log.Info().Int64("events", total).Msg("event archive size")
		}
	}

	// Mirror the final snapshot to Redis
	if redisClient != nil {
		mirror := redisRepo.NewSnapshotMirror(redisClient, cfg.SnapshotTTL, serverMetrics)
		if err := mirror.WriteAccounts(ctx, store.Accounts()); err != nil {
			log.Error().Err(err).Msg("failed to mirror snapshot")
		} else {
			log.Info().Int("accounts", store.Len()).Msg("snapshot mirrored")
		}
	}

	// Wire the read API
	queryUC := usecase.NewQueryUseCase(store, journal)

	accountHandler := handler.NewAccountHandler(queryUC)
	eventHandler := handler.NewEventHandler(queryUC)
	statsHandler := handler.NewStatsHandler(*report)
	healthHandler := handler.NewHealthHandler(pool, redisClient)

	routerCfg := httpAdapter.RouterConfig{
		AccountHandler: accountHandler,
		EventHandler:   eventHandler,
		StatsHandler:   statsHandler,
		HealthHandler:  healthHandler,
		Logger:         log.Logger,
		Metrics:        serverMetrics,
	}
	if cfg.RateLimitRPS > 0 {
		routerCfg.RateLimiter = middleware.NewRateLimiter(cfg.RateLimitRPS, cfg.RateLimitBurst)
	}

	router := httpAdapter.NewRouter(routerCfg)

	// Create server
	server := &http.Server{
		Addr:         fmt.Sprintf(":%s", cfg.HTTPPort),
		Handler:      router,
		ReadTimeout:  cfg.HTTPReadTimeout,
		WriteTimeout: cfg.HTTPWriteTimeout,
		IdleTimeout:  cfg.HTTPIdleTimeout,
	}

	// Start server in goroutine
	go func() {
		log.Info().Str("port", cfg.HTTPPort).Msg("starting server")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("server failed")
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("shutting down server...")

	// Graceful shutdown
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTPShutdownTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Fatal().Err(err).Msg("server forced to shutdown")
	}

	log.Info().Msg("server stopped")
}

// runStream processes the configured source, or returns an empty report
// when none is configured.
func runStream(ctx context.Context, engine *usecase.StreamUseCase, path string, precision int) (*usecase.RunReport, error) {
	if path == "" {
		log.Info().Msg("no source configured")
		return &usecase.RunReport{}, nil
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open source: %w", err)
	}
	defer f.Close()

	return engine.Process(ctx, source.NewCSVSource(f, int32(precision)))
}

// verifyReplay rebuilds the projection from the journal and compares it
// against the live store.
func verifyReplay(ctx context.Context, engine *usecase.StreamUseCase, journal *eventsink.Memory) error {
	if journal.Dropped() > 0 {
		log.Warn().Uint64("dropped", journal.Dropped()).Msg("journal is bounded, skipping replay verification")
		return nil
	}

	replay, err := usecase.NewReplayUseCase().Verify(ctx, journal.Source(), engine.Store())
	if err != nil {
		return err
	}

	if !replay.Deterministic() {
		for _, d := range replay.Divergences {
			log.Error().
				Uint16("client", uint16(d.Client)).
				Str("field", d.Field).
				Str("live", d.Live).
				Str("replayed", d.Replayed).
				Msg("replay divergence")
		}
		return fmt.Errorf("replay diverged on %d fields", len(replay.Divergences))
	}

	log.Info().Int("events", replay.Events).Msg("replay verified")

	recon, err := usecase.NewReconciliationUseCase().CheckConservation(ctx, journal.Source(), engine.Store())
	if err != nil {
		return err
	}

	if !recon.Consistent {
		for _, d := range recon.Discrepancies {
			log.Error().
				Uint16("client", uint16(d.Client)).
				Str("projected", d.ProjectedTotal.String()).
				Str("expected", d.ExpectedTotal.String()).
				Msg("conservation discrepancy")
		}
		return fmt.Errorf("conservation check failed for %d accounts", len(recon.Discrepancies))
	}

	log.Info().Int("accounts", recon.TotalAccounts).Msg("conservation verified")

	return nil
}

func rebuildFromArchive(ctx context.Context, archive *postgresRepo.EventArchive) (*projection.Store, error) {
	src, err := archive.Source(ctx)
	if err != nil {
		return nil, err
	}

	store, count, err := usecase.NewReplayUseCase().Rebuild(ctx, src)
	if err != nil {
		return nil, err
	}

	log.Info().Int("events", count).Msg("projection rebuilt from archive")

	return store, nil
}
