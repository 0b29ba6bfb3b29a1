// Package reconciler keeps the in-memory desired state aligned with external
// edits to the backing file.
//
// The loop is level-triggered: every accepted filesystem notification results
// in a full re-read and diff through the store, so duplicate or coalesced
// notifications are naturally absorbed by the no-change branch.
package reconciler

import (
	"context"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"

	ferrors "git.home.luguber.info/inful/statekeeper/internal/foundation/errors"
	"git.home.luguber.info/inful/statekeeper/internal/logfields"
	"git.home.luguber.info/inful/statekeeper/internal/state"
)

// EventLoopTick bounds how long the loop blocks between wakeups. The tick
// exists so the loop surfaces liveness periodically; it never polls the file.
const EventLoopTick = time.Second

// Loop watches the desired state file and drives store reloads.
type Loop struct {
	store   *state.Store
	watcher *fsnotify.Watcher
	target  string
}

// New creates a Loop for the store's backing file. The path is resolved to a
// canonical absolute target once, insulating the loop from unrelated files in
// the watched directory and from symlink artifacts. The parent directory is
// watched rather than the file itself so replace-by-rename edits (editors,
// our own atomic writes) stay visible.
func New(store *state.Store) (*Loop, error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, ferrors.WrapError(err, ferrors.CategoryWatch, "failed to create file watcher").Build()
	}

	target, err := canonicalize(store.Path())
	if err != nil {
		_ = watcher.Close()
		return nil, ferrors.WrapError(err, ferrors.CategoryWatch, "failed to resolve watch target").
			WithContext("path", store.Path()).
			Build()
	}

	dir := filepath.Dir(target)
	if err := watcher.Add(dir); err != nil {
		_ = watcher.Close()
		return nil, ferrors.WrapError(err, ferrors.CategoryWatch, "failed to watch state file directory").
			WithContext("dir", dir).
			Build()
	}

	return &Loop{store: store, watcher: watcher, target: target}, nil
}

// Run blocks until the context is canceled (returns nil) or the watch source
// disconnects (returns a fatal CategoryWatch error). It first publishes the
// current state unconditionally so already-registered subscribers observe the
// startup snapshot.
func (l *Loop) Run(ctx context.Context) error {
	defer l.close()

	l.store.EmitCurrent()
	slog.Info("Watching desired state file", logfields.Path(l.target))

	ticker := time.NewTicker(EventLoopTick)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			slog.Info("Reconciliation loop stopping", logfields.Path(l.target))
			return nil

		case <-ticker.C:
			// Periodic wakeup only; reloads are driven by notifications.

		case event, ok := <-l.watcher.Events:
			if !ok {
				return ferrors.WatchError("file watcher event channel closed unexpectedly").Build()
			}
			l.handleEvent(event)

		case err, ok := <-l.watcher.Errors:
			if !ok {
				return ferrors.WatchError("file watcher error channel closed unexpectedly").Build()
			}
			slog.Warn("File watch error", logfields.Error(err))
		}
	}
}

func (l *Loop) handleEvent(event fsnotify.Event) {
	slog.Debug("Filesystem event",
		logfields.Op(event.Op.String()),
		logfields.Path(event.Name))

	if !l.affectsTarget(event) || !isContentChange(event.Op) {
		return
	}

	changed, err := l.store.ReloadFromDisk()
	switch {
	case err != nil:
		// Background reload failures never crash the loop; the store's last
		// good snapshot remains authoritative.
		slog.Warn("Failed to reload desired state", logfields.Error(err))
	case changed:
		slog.Info("Reloaded desired state after file change", logfields.Path(l.target))
	default:
		slog.Debug("File notification produced no state change", logfields.Path(l.target))
	}
}

// affectsTarget accepts events without path information conservatively, and
// otherwise requires the event path to canonicalize to the watch target.
func (l *Loop) affectsTarget(event fsnotify.Event) bool {
	if event.Name == "" {
		return true
	}
	resolved, err := canonicalize(event.Name)
	if err != nil {
		return false
	}
	return resolved == l.target
}

// isContentChange reports whether the operation can alter file content:
// create, write, remove, or rename. Chmod-only events are metadata and never
// warrant a reload.
func isContentChange(op fsnotify.Op) bool {
	return op.Has(fsnotify.Create) || op.Has(fsnotify.Write) ||
		op.Has(fsnotify.Remove) || op.Has(fsnotify.Rename)
}

// canonicalize resolves a path to an absolute, symlink-free form. The file
// itself may not exist (template not created yet, or just removed), so
// symlink resolution is applied to the parent directory and the base name
// joined back on.
func canonicalize(path string) (string, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", err
	}
	dir := filepath.Dir(abs)
	if resolved, err := filepath.EvalSymlinks(dir); err == nil {
		dir = resolved
	}
	return filepath.Join(dir, filepath.Base(abs)), nil
}

func (l *Loop) close() {
	if err := l.watcher.Close(); err != nil {
		slog.Warn("Error closing file watcher", logfields.Error(err))
	}
}
