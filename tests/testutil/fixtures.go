// Package testutil wires complete in-memory pipelines for integration
// tests.
package testutil

import (
	"context"
	"net/http"
	"strings"
	"testing"

	"github.com/rs/zerolog"

	"github.com/iho/goaccounts/internal/adapter/eventsink"
	adaptershttp "github.com/iho/goaccounts/internal/adapter/http"
	"github.com/iho/goaccounts/internal/adapter/http/handler"
	"github.com/iho/goaccounts/internal/adapter/idgen"
	"github.com/iho/goaccounts/internal/adapter/source"
	"github.com/iho/goaccounts/internal/domain"
	"github.com/iho/goaccounts/internal/infrastructure/metrics"
	"github.com/iho/goaccounts/internal/usecase"
)

// engineMetrics is shared by every pipeline in a test binary; the
// collectors register once.
var engineMetrics = metrics.New()

// Pipeline bundles the artifacts of one processed stream.
type Pipeline struct {
	Engine  *usecase.StreamUseCase
	Journal *eventsink.Memory
	Report  *usecase.RunReport
}

// RunCSV processes a CSV stream with default options.
func RunCSV(t *testing.T, stream string) *Pipeline {
	t.Helper()

	return RunCSVWithOptions(t, stream, usecase.DefaultStreamOptions())
}

// RunCSVWithOptions processes a CSV stream with the given options.
func RunCSVWithOptions(t *testing.T, stream string, opts usecase.StreamOptions) *Pipeline {
	t.Helper()

	return RunSource(t, source.NewCSVSource(strings.NewReader(stream), domain.DefaultAmountPrecision), opts)
}

// RunSource drains src through a fresh engine.
func RunSource(t *testing.T, src usecase.CommandSource, opts usecase.StreamOptions) *Pipeline {
	t.Helper()

	journal := eventsink.NewMemory(0)
	engine := usecase.NewStreamUseCase(journal, idgen.NewULIDGenerator(), engineMetrics, zerolog.Nop(), opts)

	report, err := engine.Process(context.Background(), src)
	if err != nil {
		t.Fatalf("failed to process stream: %v", err)
	}

	return &Pipeline{Engine: engine, Journal: journal, Report: report}
}

// Account fails the test when client is missing from the projection.
func (p *Pipeline) Account(t *testing.T, client domain.ClientID) *domain.Account {
	t.Helper()

	acc, ok := p.Engine.Store().Get(client)
	if !ok {
		t.Fatalf("expected account %d in projection", client)
	}

	return acc
}

// Router wires the read API over the processed projection.
func (p *Pipeline) Router() http.Handler {
	queryUC := usecase.NewQueryUseCase(p.Engine.Store(), p.Journal)

	return adaptershttp.NewRouter(adaptershttp.RouterConfig{
		AccountHandler: handler.NewAccountHandler(queryUC),
		EventHandler:   handler.NewEventHandler(queryUC),
		StatsHandler:   handler.NewStatsHandler(*p.Report),
		HealthHandler:  handler.NewHealthHandler(nil, nil),
		Logger:         zerolog.Nop(),
		Metrics:        engineMetrics,
	})
}
