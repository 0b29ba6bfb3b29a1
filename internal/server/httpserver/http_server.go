// Package httpserver wires the statekeeper HTTP API: desired state CRUD,
// health, transition history, and Prometheus metrics on a single listener.
package httpserver

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"net/http"

	ferrors "git.home.luguber.info/inful/statekeeper/internal/foundation/errors"
	"git.home.luguber.info/inful/statekeeper/internal/server/handlers"
	smw "git.home.luguber.info/inful/statekeeper/internal/server/middleware"
	"git.home.luguber.info/inful/statekeeper/internal/state"
)

// Options configures the HTTP server.
type Options struct {
	// Addr is the listen address, e.g. ":8080".
	Addr string
	// Transitions backs the history endpoint; nil disables it.
	Transitions handlers.TransitionSource
	// MetricsHandler serves GET /metrics; nil disables the endpoint.
	MetricsHandler http.Handler
}

// Server manages the statekeeper HTTP endpoints.
type Server struct {
	httpServer   *http.Server
	opts         Options
	errorAdapter *ferrors.HTTPErrorAdapter

	serviceHandlers    *handlers.ServiceHandlers
	monitoringHandlers *handlers.MonitoringHandlers

	mchain func(http.Handler) http.Handler
}

// New constructs the HTTP server wiring for a store.
func New(store *state.Store, opts Options) *Server {
	s := &Server{
		opts:               opts,
		errorAdapter:       ferrors.NewHTTPErrorAdapter(slog.Default()),
		serviceHandlers:    handlers.NewServiceHandlers(store),
		monitoringHandlers: handlers.NewMonitoringHandlers(store, opts.Transitions, store.Path()),
	}
	s.mchain = smw.Chain(slog.Default(), s.errorAdapter)
	return s
}

// Handler returns the fully wired handler, middleware included. Exposed so
// tests can drive the routes without binding a port.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /services", s.serviceHandlers.HandleList)
	mux.HandleFunc("PUT /services/{name}", s.serviceHandlers.HandleSet)
	mux.HandleFunc("DELETE /services/{name}", s.serviceHandlers.HandleRemove)
	mux.HandleFunc("GET /healthz", s.monitoringHandlers.HandleHealth)
	mux.HandleFunc("GET /history", s.monitoringHandlers.HandleHistory)
	if s.opts.MetricsHandler != nil {
		mux.Handle("GET /metrics", s.opts.MetricsHandler)
	}
	return s.mchain(mux)
}

// Start binds the listen address and begins serving. The port is pre-bound so
// an occupied address fails fast instead of surfacing later from a goroutine.
func (s *Server) Start(ctx context.Context) error {
	lc := net.ListenConfig{}
	ln, err := lc.Listen(ctx, "tcp", s.opts.Addr)
	if err != nil {
		return fmt.Errorf("http startup failed: %w", err)
	}

	s.httpServer = &http.Server{
		Addr:    s.opts.Addr,
		Handler: s.Handler(),
	}

	go func() {
		if serveErr := s.httpServer.Serve(ln); serveErr != nil && serveErr != http.ErrServerClosed {
			slog.Error("HTTP server error", "error", serveErr)
		}
	}()

	slog.Info("HTTP server started", slog.String("addr", s.opts.Addr))
	return nil
}

// Stop gracefully shuts down the HTTP server.
func (s *Server) Stop(ctx context.Context) error {
	if s.httpServer == nil {
		return nil
	}
	if err := s.httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("http server shutdown: %w", err)
	}
	slog.Info("HTTP server stopped")
	return nil
}
