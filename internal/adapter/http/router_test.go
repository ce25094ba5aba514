package http

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/iho/goaccounts/internal/adapter/http/handler"
	apimiddleware "github.com/iho/goaccounts/internal/adapter/http/middleware"
	"github.com/iho/goaccounts/internal/domain"
	"github.com/iho/goaccounts/internal/usecase"
)

func TestNewRouter_HealthEndpointAvailable(t *testing.T) {
	router := NewRouter(newRouterConfig())

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected /health to return 200, got %d", rec.Code)
	}
}

func TestNewRouter_ReadyReportsDisabledBackends(t *testing.T) {
	router := NewRouter(newRouterConfig())

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/ready", nil)
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected /ready to return 200, got %d", rec.Code)
	}

	var status map[string]string
	if err := json.Unmarshal(rec.Body.Bytes(), &status); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if status["postgres"] != "disabled" || status["redis"] != "disabled" {
		t.Fatalf("expected unwired backends to report disabled, got %+v", status)
	}
}

func TestNewRouter_RateLimiterBlocksExcessRequests(t *testing.T) {
	rl := apimiddleware.NewRateLimiter(1, 1)
	router := NewRouter(newRouterConfig(func(cfg *RouterConfig) {
		cfg.RateLimiter = rl
	}))

	req1 := httptest.NewRequest(http.MethodGet, "/health", nil)
	req1.RemoteAddr = "1.2.3.4:1234"
	rec1 := httptest.NewRecorder()
	router.ServeHTTP(rec1, req1)
	if rec1.Code != http.StatusOK {
		t.Fatalf("expected first request to succeed, got %d", rec1.Code)
	}

	req2 := httptest.NewRequest(http.MethodGet, "/health", nil)
	req2.RemoteAddr = "1.2.3.4:1234"
	rec2 := httptest.NewRecorder()
	router.ServeHTTP(rec2, req2)
	if rec2.Code != http.StatusTooManyRequests {
		t.Fatalf("expected second request to be throttled, got %d", rec2.Code)
	}
}

func TestNewRouter_StatsEndpointServesReport(t *testing.T) {
	router := NewRouter(newRouterConfig(func(cfg *RouterConfig) {
		cfg.StatsHandler = handler.NewStatsHandler(usecase.RunReport{Commands: 12, Applied: 10, Rejected: 2})
	}))

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/v1/stats", nil)
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected /api/v1/stats to return 200, got %d", rec.Code)
	}

	var stats map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &stats); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if stats["commands"] != float64(12) {
		t.Fatalf("expected 12 commands in stats, got %v", stats["commands"])
	}
}

func TestNewRouter_RegistersKeyRoutes(t *testing.T) {
	router := NewRouter(newRouterConfig())

	chiRoutes, ok := router.(chi.Router)
	if !ok {
		t.Fatal("router does not implement chi.Routes")
	}

	seen := map[string]bool{}
	if err := chi.Walk(chiRoutes, func(method string, route string, _ http.Handler, _ ...func(http.Handler) http.Handler) error {
		seen[method+" "+route] = true
		return nil
	}); err != nil {
		t.Fatalf("walk failed: %v", err)
	}

	expected := []string{
		"GET /health",
		"GET /ready",
		"GET /metrics",
		"GET /api/v1/accounts/",
		"GET /api/v1/accounts/{client}",
		"GET /api/v1/accounts/{client}/events",
		"GET /api/v1/events",
		"GET /api/v1/stats",
	}

	for _, route := range expected {
		if !seen[route] {
			t.Fatalf("expected route %s to be registered", route)
		}
	}
}

func newRouterConfig(opts ...func(*RouterConfig)) RouterConfig {
	accountHandler := handler.NewAccountHandler(&stubQueryService{})
	eventHandler := handler.NewEventHandler(&stubQueryService{})

	cfg := RouterConfig{
		AccountHandler: accountHandler,
		EventHandler:   eventHandler,
		StatsHandler:   handler.NewStatsHandler(usecase.RunReport{}),
		HealthHandler:  handler.NewHealthHandler(nil, nil),
		Logger:         zerolog.Nop(),
	}

	for _, opt := range opts {
		opt(&cfg)
	}

	return cfg
}

type stubQueryService struct{}

func (stubQueryService) ListAccounts(ctx context.Context, input usecase.ListAccountsInput) ([]*domain.Account, int, error) {
	return []*domain.Account{}, 0, nil
}

func (stubQueryService) GetAccount(ctx context.Context, client domain.ClientID) (*domain.Account, error) {
	return domain.NewAccount(client), nil
}

func (stubQueryService) ListEvents(ctx context.Context, input usecase.ListEventsInput) ([]domain.Event, int, error) {
	return []domain.Event{}, 0, nil
}
