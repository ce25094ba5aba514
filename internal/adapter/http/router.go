package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/iho/goaccounts/internal/adapter/http/handler"
	"github.com/iho/goaccounts/internal/adapter/http/middleware"
	"github.com/iho/goaccounts/internal/infrastructure/metrics"
)

// RouterConfig holds dependencies for the router.
type RouterConfig struct {
	AccountHandler *handler.AccountHandler
	EventHandler   *handler.EventHandler
	StatsHandler   *handler.StatsHandler
	HealthHandler  *handler.HealthHandler
	Logger         zerolog.Logger
	Metrics        *metrics.Metrics
	RateLimiter    *middleware.RateLimiter
}

// NewRouter creates a new HTTP router.
func NewRouter(cfg RouterConfig) http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.NewLoggingMiddleware(cfg.Logger).Wrap)
	r.Use(middleware.NewMetricsMiddleware(cfg.Metrics).Wrap)
	r.Use(middleware.NewRecoveryMiddleware(cfg.Logger).Wrap)
	if cfg.RateLimiter != nil {
		r.Use(cfg.RateLimiter.Limit)
	}

	// Health and operational endpoints
	r.Get("/health", cfg.HealthHandler.Liveness)
	r.Get("/ready", cfg.HealthHandler.Readiness)
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	// API v1
	r.Route("/api/v1", func(r chi.Router) {
		r.Route("/accounts", func(r chi.Router) {
			r.Get("/", cfg.AccountHandler.List)
			r.Get("/{client}", cfg.AccountHandler.Get)
			r.Get("/{client}/events", cfg.EventHandler.ListByClient)
		})

		r.Get("/events", cfg.EventHandler.List)
		r.Get("/stats", cfg.StatsHandler.Get)
	})

	return r
}
