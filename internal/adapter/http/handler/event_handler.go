package handler

import (
	"context"
	"net/http"

	"github.com/iho/goaccounts/internal/adapter/http/dto"
	"github.com/iho/goaccounts/internal/domain"
	"github.com/iho/goaccounts/internal/usecase"
)

// EventService defines the behavior needed by EventHandler.
type EventService interface {
	ListEvents(ctx context.Context, input usecase.ListEventsInput) ([]domain.Event, int, error)
}

// EventHandler handles event-related HTTP requests.
type EventHandler struct {
	queryUC EventService
}

// NewEventHandler creates a new EventHandler.
func NewEventHandler(queryUC EventService) *EventHandler {
	return &EventHandler{queryUC: queryUC}
}

// List lists recorded events, optionally filtered by kind.
func (h *EventHandler) List(w http.ResponseWriter, r *http.Request) {
	input := usecase.ListEventsInput{
		Kind:   domain.EventKind(r.URL.Query().Get("kind")),
		Limit:  parseIntQuery(r, "limit", 50),
		Offset: parseIntQuery(r, "offset", 0),
	}

	h.list(w, r, input)
}

// ListByClient lists the recorded events of one client.
func (h *EventHandler) ListByClient(w http.ResponseWriter, r *http.Request) {
	client, err := parseClientParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid client id", err.Error())
		return
	}

	input := usecase.ListEventsInput{
		Client: &client,
		Kind:   domain.EventKind(r.URL.Query().Get("kind")),
		Limit:  parseIntQuery(r, "limit", 50),
		Offset: parseIntQuery(r, "offset", 0),
	}

	h.list(w, r, input)
}

func (h *EventHandler) list(w http.ResponseWriter, r *http.Request, input usecase.ListEventsInput) {
	events, total, err := h.queryUC.ListEvents(r.Context(), input)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to list events", err.Error())
		return
	}

	writeJSON(w, http.StatusOK, dto.ListEventsResponse{
		Events: dto.EventsFromDomain(events),
		Total:  int64(total),
	})
}
