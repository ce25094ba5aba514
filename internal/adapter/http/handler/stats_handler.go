package handler

import (
	"net/http"

	"github.com/iho/goaccounts/internal/adapter/http/dto"
	"github.com/iho/goaccounts/internal/usecase"
)

// StatsHandler serves the summary of the ingested run.
type StatsHandler struct {
	stats *dto.StatsResponse
}

// NewStatsHandler creates a new StatsHandler.
func NewStatsHandler(report usecase.RunReport) *StatsHandler {
	return &StatsHandler{stats: dto.StatsFromReport(report)}
}

// Get returns the run summary.
func (h *StatsHandler) Get(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.stats)
}
