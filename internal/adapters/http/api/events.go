package api

import (
	"context"
	"net/http"

	"github.com/okian/eventscore/internal/domain/model"
)

// EventDependencies defines the interface for stored result lookups.
type EventDependencies interface {
	Lookup(ctx context.Context, name string) (model.ScoredEvent, error)
}

// EventsHandler handles stored event requests.
type EventsHandler struct {
	deps EventDependencies
}

// NewEventsHandler creates a new events handler.
func NewEventsHandler(deps EventDependencies) *EventsHandler {
	return &EventsHandler{deps: deps}
}

// HandleGetEvent handles GET /events/{name} requests.
func (h *EventsHandler) HandleGetEvent(w http.ResponseWriter, r *http.Request) {
	const op = "api.get_event"

	ev, err := h.deps.Lookup(r.Context(), r.PathValue("name"))
	if err != nil {
		writeKind(w, classify(op, err))
		return
	}
	writeJSON(w, http.StatusOK, ev)
}
