package api

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"strings"

	service "github.com/okian/eventscore/internal/app"
	"github.com/okian/eventscore/internal/domain/report"
)

// maxRunBody bounds POST /runs payloads.
const maxRunBody = 32 << 20

// IdempotencyHeader may carry the idempotency key instead of the body.
const IdempotencyHeader = "Idempotency-Key"

// RunDependencies defines the interface for run operations.
type RunDependencies interface {
	Submit(ctx context.Context, req service.SubmitRequest) (service.SubmitResult, error)
	Run(ctx context.Context, id string) (service.RunView, error)
	Cancel(ctx context.Context, id string) error
}

// RunsHandler handles run requests.
type RunsHandler struct {
	deps RunDependencies
}

// NewRunsHandler creates a new runs handler.
func NewRunsHandler(deps RunDependencies) *RunsHandler {
	return &RunsHandler{deps: deps}
}

// HandlePostRun handles POST /runs requests.
func (h *RunsHandler) HandlePostRun(w http.ResponseWriter, r *http.Request) {
	const op = "api.post_run"

	var req runRequest
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxRunBody))
	if err := dec.Decode(&req); err != nil {
		writeKind(w, WrapKind(op, ErrBadRequest, err))
		return
	}
	key := strings.TrimSpace(r.Header.Get(IdempotencyHeader))
	if key == "" {
		key = req.IdempotencyKey
	}

	res, err := h.deps.Submit(r.Context(), service.SubmitRequest{
		IdempotencyKey: key,
		Events:         req.Events,
		Contacts:       req.Contacts,
		Criteria:       req.Criteria,
	})
	if err != nil {
		writeKind(w, classify(op, err))
		return
	}

	w.Header().Set("Location", "/runs/"+res.RunID)
	if res.Duplicate {
		writeJSON(w, http.StatusOK, ackResponse{RunID: res.RunID, Status: "duplicate", Duplicate: true, Events: res.Events})
		return
	}
	writeJSON(w, http.StatusAccepted, ackResponse{RunID: res.RunID, Status: "accepted", Events: res.Events})
}

// HandleGetRun handles GET /runs/{id} requests. While a rate-limit signal is
// active the response carries a Retry-After header.
func (h *RunsHandler) HandleGetRun(w http.ResponseWriter, r *http.Request) {
	const op = "api.get_run"

	v, err := h.deps.Run(r.Context(), r.PathValue("id"))
	if err != nil {
		writeKind(w, classify(op, err))
		return
	}
	if v.RateLimit != nil && v.RateLimit.RetryAfterSeconds > 0 && v.FinishedAt == nil {
		w.Header().Set("Retry-After", strconv.Itoa(v.RateLimit.RetryAfterSeconds))
	}
	writeJSON(w, http.StatusOK, v)
}

// HandleGetReport handles GET /runs/{id}/report requests. Markdown by
// default, JSON with ?format=json.
func (h *RunsHandler) HandleGetReport(w http.ResponseWriter, r *http.Request) {
	const op = "api.get_report"

	v, err := h.deps.Run(r.Context(), r.PathValue("id"))
	if err != nil {
		writeKind(w, classify(op, err))
		return
	}
	rep := report.Assemble(nil, v.Counts.Total, 0)
	if v.Report != nil {
		rep = *v.Report
	}

	switch r.URL.Query().Get("format") {
	case "", "markdown", "md":
		w.Header().Set("Content-Type", "text/markdown; charset=utf-8")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(rep.Markdown()))
	case "json":
		writeJSON(w, http.StatusOK, rep)
	default:
		writeKind(w, NewKind(op, ErrBadRequest))
	}
}

// HandleCancelRun handles DELETE /runs/{id} requests.
func (h *RunsHandler) HandleCancelRun(w http.ResponseWriter, r *http.Request) {
	const op = "api.cancel_run"

	id := r.PathValue("id")
	if err := h.deps.Cancel(r.Context(), id); err != nil {
		writeKind(w, classify(op, err))
		return
	}
	writeJSON(w, http.StatusAccepted, ackResponse{RunID: id, Status: "cancelling"})
}
