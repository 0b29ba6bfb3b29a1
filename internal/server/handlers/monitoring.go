package handlers

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"git.home.luguber.info/inful/statekeeper/internal/foundation/errors"
	"git.home.luguber.info/inful/statekeeper/internal/history"
	"git.home.luguber.info/inful/statekeeper/internal/server/responses"
	"git.home.luguber.info/inful/statekeeper/internal/version"
)

// TransitionSource defines the history methods needed by monitoring handlers.
type TransitionSource interface {
	Recent(ctx context.Context, limit int) ([]history.Transition, error)
}

// MonitoringHandlers contains health and history handlers.
type MonitoringHandlers struct {
	store        StateInterface
	transitions  TransitionSource // nil when history is not configured
	statePath    string
	startTime    time.Time
	errorAdapter *errors.HTTPErrorAdapter
}

// NewMonitoringHandlers creates a new monitoring handlers instance.
// transitions may be nil; the history endpoint then reports 404.
func NewMonitoringHandlers(store StateInterface, transitions TransitionSource, statePath string) *MonitoringHandlers {
	return &MonitoringHandlers{
		store:        store,
		transitions:  transitions,
		statePath:    statePath,
		startTime:    time.Now(),
		errorAdapter: errors.NewHTTPErrorAdapter(slog.Default()),
	}
}

// HandleHealth handles the health check endpoint.
func (h *MonitoringHandlers) HandleHealth(w http.ResponseWriter, r *http.Request) {
	resp := &responses.HealthResponse{
		Status:       "healthy",
		Timestamp:    time.Now().UTC(),
		Version:      version.Version,
		Uptime:       time.Since(h.startTime).Seconds(),
		ServiceCount: h.store.Snapshot().ServiceCount(),
		StateFile:    h.statePath,
	}

	if err := writeJSONPretty(w, r, http.StatusOK, resp); err != nil {
		internalErr := errors.WrapError(err, errors.CategoryInternal, "failed to write health response").
			Build()
		h.errorAdapter.WriteErrorResponse(w, r, internalErr)
	}
}

// HandleHistory returns recent state transitions, newest first. The optional
// limit query parameter caps the result (default 20).
func (h *MonitoringHandlers) HandleHistory(w http.ResponseWriter, r *http.Request) {
	if h.transitions == nil {
		err := errors.NotFoundError("transition history is not enabled").Build()
		h.errorAdapter.WriteErrorResponse(w, r, err)
		return
	}

	limit := 20
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			verr := errors.ValidationError("limit must be a positive integer").
				WithContext("limit", raw).
				Build()
			h.errorAdapter.WriteErrorResponse(w, r, verr)
			return
		}
		limit = parsed
	}

	transitions, err := h.transitions.Recent(r.Context(), limit)
	if err != nil {
		h.errorAdapter.WriteErrorResponse(w, r, err)
		return
	}

	resp := &responses.HistoryResponse{
		Status:      "ok",
		Transitions: make([]responses.TransitionResponse, len(transitions)),
		Timestamp:   time.Now().UTC(),
	}
	for i, tr := range transitions {
		services := make([]responses.ServiceResponse, len(tr.Services))
		for j, svc := range tr.Services {
			services[j] = responses.ServiceResponse{Name: svc.Name, Version: svc.Version}
		}
		resp.Transitions[i] = responses.TransitionResponse{
			ID:            tr.ID,
			SchemaVersion: tr.SchemaVersion,
			Services:      services,
			OccurredAt:    tr.OccurredAt,
		}
	}

	if err := writeJSONPretty(w, r, http.StatusOK, resp); err != nil {
		internalErr := errors.WrapError(err, errors.CategoryInternal, "failed to write history response").
			Build()
		h.errorAdapter.WriteErrorResponse(w, r, internalErr)
	}
}
