package httpserver

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"git.home.luguber.info/inful/statekeeper/internal/events"
	"git.home.luguber.info/inful/statekeeper/internal/history"
	"git.home.luguber.info/inful/statekeeper/internal/metrics"
	"git.home.luguber.info/inful/statekeeper/internal/server/responses"
	"git.home.luguber.info/inful/statekeeper/internal/state"
	"git.home.luguber.info/inful/statekeeper/internal/statefile"
)

func newTestServer(t *testing.T) (*Server, *state.Store, *history.Log) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "desired_state.yml")
	hub := events.NewHub(nil)
	t.Cleanup(hub.Close)

	store, err := state.NewStore(statefile.New(path), hub, nil)
	require.NoError(t, err)

	log, err := history.Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = log.Close() })

	rec := metrics.NewPrometheusRecorder(nil)
	srv := New(store, Options{
		Addr:           ":0",
		Transitions:    log,
		MetricsHandler: rec.Handler(),
	})
	return srv, store, log
}

func do(t *testing.T, h http.Handler, method, target, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, target, nil)
	} else {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
	}
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	return rr
}

func TestServices_EmptyList(t *testing.T) {
	srv, _, _ := newTestServer(t)
	rr := do(t, srv.Handler(), http.MethodGet, "/services", "")

	require.Equal(t, http.StatusOK, rr.Code)
	var resp responses.ServiceListResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	assert.Equal(t, "ok", resp.Status)
	assert.Empty(t, resp.Services)
	assert.NotEmpty(t, resp.SchemaVersion)
}

func TestServices_SetThenList(t *testing.T) {
	srv, _, _ := newTestServer(t)
	h := srv.Handler()

	rr := do(t, h, http.MethodPut, "/services/api", `{"version": "^1.2.3"}`)
	require.Equal(t, http.StatusOK, rr.Code)
	var svc responses.ServiceResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &svc))
	assert.Equal(t, "api", svc.Name)
	assert.Equal(t, "^1.2.3", svc.Version)

	rr = do(t, h, http.MethodGet, "/services", "")
	require.Equal(t, http.StatusOK, rr.Code)
	var resp responses.ServiceListResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	require.Len(t, resp.Services, 1)
	assert.Equal(t, "api", resp.Services[0].Name)
}

func TestServices_SetMalformedRequirement(t *testing.T) {
	srv, store, _ := newTestServer(t)

	rr := do(t, srv.Handler(), http.MethodPut, "/services/api", `{"version": "not-a-range"}`)
	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Empty(t, store.List(), "rejected requirement must not change state")
}

func TestServices_SetInvalidBody(t *testing.T) {
	srv, _, _ := newTestServer(t)

	rr := do(t, srv.Handler(), http.MethodPut, "/services/api", `{{{`)
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestServices_RemovePresent(t *testing.T) {
	srv, store, _ := newTestServer(t)
	_, err := store.Set("api", "^1.2.3")
	require.NoError(t, err)

	rr := do(t, srv.Handler(), http.MethodDelete, "/services/api", "")
	assert.Equal(t, http.StatusNoContent, rr.Code)
	assert.Empty(t, store.List())
}

func TestServices_RemoveAbsent(t *testing.T) {
	srv, _, _ := newTestServer(t)

	rr := do(t, srv.Handler(), http.MethodDelete, "/services/ghost", "")
	assert.Equal(t, http.StatusNotFound, rr.Code)
}

func TestHealthz(t *testing.T) {
	srv, store, _ := newTestServer(t)
	_, err := store.Set("api", "^1.2.3")
	require.NoError(t, err)

	rr := do(t, srv.Handler(), http.MethodGet, "/healthz", "")
	require.Equal(t, http.StatusOK, rr.Code)
	var resp responses.HealthResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	assert.Equal(t, "healthy", resp.Status)
	assert.Equal(t, 1, resp.ServiceCount)
	assert.NotEmpty(t, resp.StateFile)
}

func TestHistory_ReturnsRecordedTransitions(t *testing.T) {
	srv, store, log := newTestServer(t)
	_, err := store.Set("api", "^1.2.3")
	require.NoError(t, err)
	require.NoError(t, log.Append(context.Background(), store.Snapshot()))

	rr := do(t, srv.Handler(), http.MethodGet, "/history?limit=5", "")
	require.Equal(t, http.StatusOK, rr.Code)
	var resp responses.HistoryResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	require.Len(t, resp.Transitions, 1)
	require.Len(t, resp.Transitions[0].Services, 1)
	assert.Equal(t, "api", resp.Transitions[0].Services[0].Name)
}

func TestHistory_InvalidLimit(t *testing.T) {
	srv, _, _ := newTestServer(t)

	rr := do(t, srv.Handler(), http.MethodGet, "/history?limit=zero", "")
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestHistory_DisabledWithoutLog(t *testing.T) {
	path := filepath.Join(t.TempDir(), "desired_state.yml")
	store, err := state.NewStore(statefile.New(path), events.NewHub(nil), nil)
	require.NoError(t, err)

	srv := New(store, Options{Addr: ":0"})
	rr := do(t, srv.Handler(), http.MethodGet, "/history", "")
	assert.Equal(t, http.StatusNotFound, rr.Code)
}

func TestMetrics_Exposed(t *testing.T) {
	srv, _, _ := newTestServer(t)

	rr := do(t, srv.Handler(), http.MethodGet, "/metrics", "")
	assert.Equal(t, http.StatusOK, rr.Code)
}

func TestMetrics_DisabledWithoutHandler(t *testing.T) {
	path := filepath.Join(t.TempDir(), "desired_state.yml")
	store, err := state.NewStore(statefile.New(path), events.NewHub(nil), nil)
	require.NoError(t, err)

	srv := New(store, Options{Addr: ":0"})
	rr := do(t, srv.Handler(), http.MethodGet, "/metrics", "")
	assert.Equal(t, http.StatusNotFound, rr.Code)
}

func TestStartStop(t *testing.T) {
	srv, _, _ := newTestServer(t)
	srv.opts.Addr = "127.0.0.1:0"

	ctx := context.Background()
	require.NoError(t, srv.Start(ctx))
	require.NoError(t, srv.Stop(ctx))
}
