package commands

import (
	"context"
	"fmt"
	"log/slog"
	"os/signal"
	"syscall"
	"time"

	"git.home.luguber.info/inful/statekeeper/internal/config"
	"git.home.luguber.info/inful/statekeeper/internal/events"
	"git.home.luguber.info/inful/statekeeper/internal/history"
	"git.home.luguber.info/inful/statekeeper/internal/logfields"
	"git.home.luguber.info/inful/statekeeper/internal/metrics"
	"git.home.luguber.info/inful/statekeeper/internal/reconciler"
	"git.home.luguber.info/inful/statekeeper/internal/server/handlers"
	"git.home.luguber.info/inful/statekeeper/internal/server/httpserver"
	"git.home.luguber.info/inful/statekeeper/internal/state"
	"git.home.luguber.info/inful/statekeeper/internal/statefile"
)

// ServeCmd implements the 'serve' command.
type ServeCmd struct {
	Listen    string `short:"l" help:"HTTP listen address (overrides STATEKEEPER_LISTEN)"`
	HistoryDB string `name:"history-db" help:"Sqlite history database path (overrides STATEKEEPER_HISTORY_DB)"`
}

func (s *ServeCmd) Run(_ *Global, root *CLI) error {
	cfg := config.Resolve(root.File, s.Listen, s.HistoryDB)
	return RunServe(cfg)
}

// RunServe wires the daemon: store, event hub, reconciliation loop, optional
// transition log, and the HTTP API, then blocks until a shutdown signal.
func RunServe(cfg *config.Config) error {
	slog.Info("Starting statekeeper daemon",
		logfields.Path(cfg.StateFile),
		slog.String("listen", cfg.Listen))

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	recorder := metrics.NewPrometheusRecorder(nil)
	hub := events.NewHub(recorder)
	defer hub.Close()

	store, err := state.NewStore(statefile.New(cfg.StateFile), hub, recorder)
	if err != nil {
		return err
	}

	var transitions handlers.TransitionSource
	if cfg.HistoryDB != "" {
		log, err := history.Open(cfg.HistoryDB)
		if err != nil {
			return err
		}
		defer func() { _ = log.Close() }()
		transitions = log

		// The log trails the hub: it records what subscribers were told, so
		// it subscribes before the loop emits the startup snapshot.
		ch, unsubscribe := hub.Subscribe()
		defer unsubscribe()
		go log.Consume(ctx, ch)
	}

	loop, err := reconciler.New(store)
	if err != nil {
		return err
	}

	srv := httpserver.New(store, httpserver.Options{
		Addr:           cfg.Listen,
		Transitions:    transitions,
		MetricsHandler: recorder.Handler(),
	})
	if err := srv.Start(ctx); err != nil {
		return err
	}

	errChan := make(chan error, 1)
	go func() {
		errChan <- loop.Run(ctx)
	}()

	slog.Info("Daemon started, waiting for shutdown signal...")

	var runErr error
	select {
	case err := <-errChan:
		if err != nil {
			runErr = fmt.Errorf("reconciliation loop error: %w", err)
		}
	case <-ctx.Done():
		slog.Info("Shutdown signal received, stopping daemon...")
	}

	stopCtx, stopCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer stopCancel()
	if err := srv.Stop(stopCtx); err != nil {
		slog.Warn("HTTP server shutdown error", logfields.Error(err))
	}

	if runErr != nil {
		return runErr
	}
	slog.Info("Daemon stopped successfully")
	return nil
}
