// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	eventqueue "github.com/okian/eventscore/internal/adapters/mq/queue"
	repository "github.com/okian/eventscore/internal/adapters/repository"
	service "github.com/okian/eventscore/internal/app"
	"github.com/okian/eventscore/internal/domain/model"
	"github.com/okian/eventscore/internal/domain/types"
)

// Dependencies required by HTTP handlers. Using an interface bundle keeps
// the handler layer loosely coupled to the service implementation.
type Dependencies interface {
	RunDependencies
	LeaderboardDependencies
	EventDependencies
	StatsProvider
}

// Entry mirrors the read shape returned by leaderboard queries.
type Entry = types.Entry

// Server wires HTTP routes for the business API.
type Server struct {
	healthHandler      *HealthHandler
	statsHandler       *StatsHandler
	runsHandler        *RunsHandler
	leaderboardHandler *LeaderboardHandler
	eventsHandler      *EventsHandler
}

// NewServer creates a new API server with all handlers.
func NewServer(deps Dependencies, maxLeaderboardLimit int) *Server {
	return &Server{
		healthHandler:      NewHealthHandler(),
		statsHandler:       NewStatsHandler(deps),
		runsHandler:        NewRunsHandler(deps),
		leaderboardHandler: NewLeaderboardHandler(deps, maxLeaderboardLimit),
		eventsHandler:      NewEventsHandler(deps),
	}
}

// Register attaches all HTTP routes to mux.
func (s *Server) Register(_ context.Context, mux *http.ServeMux) {
	mux.HandleFunc("GET /healthz", MetricsMiddleware(s.healthHandler.HandleHealth, "healthz"))
	mux.HandleFunc("GET /stats", MetricsMiddleware(s.statsHandler.HandleStats, "stats"))
	mux.HandleFunc("POST /runs", MetricsMiddleware(s.runsHandler.HandlePostRun, "runs"))
	mux.HandleFunc("GET /runs/{id}", MetricsMiddleware(s.runsHandler.HandleGetRun, "run"))
	mux.HandleFunc("DELETE /runs/{id}", MetricsMiddleware(s.runsHandler.HandleCancelRun, "run"))
	mux.HandleFunc("GET /runs/{id}/report", MetricsMiddleware(s.runsHandler.HandleGetReport, "run_report"))
	mux.HandleFunc("GET /leaderboard", MetricsMiddleware(s.leaderboardHandler.HandleGetLeaderboard, "leaderboard"))
	mux.HandleFunc("GET /events/{name}", MetricsMiddleware(s.eventsHandler.HandleGetEvent, "event"))
}

// runRequest mirrors the OpenAPI schema for POST /runs.
type runRequest struct {
	IdempotencyKey string                 `json:"idempotency_key"`
	Events         []model.EventRecord    `json:"events"`
	Contacts       []model.ContactRecord  `json:"contacts"`
	Criteria       *model.ScoringCriteria `json:"criteria"`
}

type ackResponse struct {
	RunID     string `json:"run_id"`
	Status    string `json:"status"`
	Duplicate bool   `json:"duplicate"`
	Events    int    `json:"events"`
}

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code string, err error) {
	msg := http.StatusText(status)
	if err != nil {
		msg = err.Error()
	}
	writeJSON(w, status, errorResponse{Code: code, Message: msg})
}

// writeKind maps an error kind to its status code.
func writeKind(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrBadRequest):
		writeError(w, http.StatusBadRequest, "bad_request", err)
	case errors.Is(err, ErrNotFound):
		writeError(w, http.StatusNotFound, "not_found", err)
	case errors.Is(err, ErrConflict):
		writeError(w, http.StatusConflict, "conflict", err)
	case errors.Is(err, ErrBackpressure):
		writeError(w, http.StatusTooManyRequests, "backpressure", err)
	case errors.Is(err, ErrUnavailable):
		writeError(w, http.StatusServiceUnavailable, "unavailable", err)
	default:
		writeError(w, http.StatusInternalServerError, "internal_error", err)
	}
}

// classify tags a service error with the kind the HTTP layer reports.
func classify(op string, err error) error {
	var kind error
	switch {
	case service.IsClientError(err):
		kind = ErrBadRequest
	case errors.Is(err, service.ErrRunNotFound), errors.Is(err, repository.ErrNotFound):
		kind = ErrNotFound
	case errors.Is(err, service.ErrRunFinished):
		kind = ErrConflict
	case errors.Is(err, service.ErrNotStarted), errors.Is(err, eventqueue.ErrQueueClosed):
		kind = ErrUnavailable
	case errors.Is(err, eventqueue.ErrQueueFull):
		kind = ErrBackpressure
	default:
		return Wrap(op, err)
	}
	return WrapKind(op, kind, err)
}
