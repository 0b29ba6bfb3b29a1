package handlers

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"git.home.luguber.info/inful/statekeeper/internal/desired"
	"git.home.luguber.info/inful/statekeeper/internal/events"
	"git.home.luguber.info/inful/statekeeper/internal/foundation/errors"
	"git.home.luguber.info/inful/statekeeper/internal/server/responses"
)

// StateInterface defines the store methods needed by service handlers.
type StateInterface interface {
	List() []desired.Service
	Set(name, requirement string) (desired.Service, error)
	Remove(name string) (bool, error)
	Snapshot() events.StateUpdated
}

// ServiceHandlers contains the desired state CRUD handlers.
type ServiceHandlers struct {
	store        StateInterface
	errorAdapter *errors.HTTPErrorAdapter
}

// NewServiceHandlers creates a new service handlers instance.
func NewServiceHandlers(store StateInterface) *ServiceHandlers {
	return &ServiceHandlers{
		store:        store,
		errorAdapter: errors.NewHTTPErrorAdapter(slog.Default()),
	}
}

// HandleList returns the full desired state, sorted by service name.
func (h *ServiceHandlers) HandleList(w http.ResponseWriter, r *http.Request) {
	snap := h.store.Snapshot()
	resp := &responses.ServiceListResponse{
		Status:        "ok",
		SchemaVersion: snap.SchemaVersion,
		Services:      serviceResponses(snap.Services),
		Timestamp:     time.Now().UTC(),
	}

	if err := writeJSONPretty(w, r, http.StatusOK, resp); err != nil {
		internalErr := errors.WrapError(err, errors.CategoryInternal, "failed to write service list response").
			Build()
		h.errorAdapter.WriteErrorResponse(w, r, internalErr)
	}
}

// HandleSet creates or updates one service requirement. The body carries the
// requirement expression; the service name comes from the URL path.
func (h *ServiceHandlers) HandleSet(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("name")
	if name == "" {
		err := errors.ValidationError("service name must not be empty").Build()
		h.errorAdapter.WriteErrorResponse(w, r, err)
		return
	}

	var req responses.ServiceSetRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		verr := errors.WrapError(err, errors.CategoryValidation, "invalid request body").
			WithContext("expected", `{"version": "<requirement>"}`).
			Build()
		h.errorAdapter.WriteErrorResponse(w, r, verr)
		return
	}

	svc, err := h.store.Set(name, req.Version)
	if err != nil {
		h.errorAdapter.WriteErrorResponse(w, r, err)
		return
	}

	resp := responses.ServiceResponse{Name: svc.Name, Version: svc.RequirementString()}
	if err := writeJSONPretty(w, r, http.StatusOK, resp); err != nil {
		internalErr := errors.WrapError(err, errors.CategoryInternal, "failed to write service response").
			Build()
		h.errorAdapter.WriteErrorResponse(w, r, internalErr)
	}
}

// HandleRemove deletes one service from the desired state. Removing a service
// that is not tracked is reported as 404; removing a tracked one returns 204.
func (h *ServiceHandlers) HandleRemove(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("name")
	if name == "" {
		err := errors.ValidationError("service name must not be empty").Build()
		h.errorAdapter.WriteErrorResponse(w, r, err)
		return
	}

	existed, err := h.store.Remove(name)
	if err != nil {
		h.errorAdapter.WriteErrorResponse(w, r, err)
		return
	}
	if !existed {
		nfErr := errors.NotFoundError("service is not tracked").
			WithContext("service", name).
			Build()
		h.errorAdapter.WriteErrorResponse(w, r, nfErr)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func serviceResponses(services []desired.Service) []responses.ServiceResponse {
	out := make([]responses.ServiceResponse, len(services))
	for i, svc := range services {
		out[i] = responses.ServiceResponse{Name: svc.Name, Version: svc.RequirementString()}
	}
	return out
}
