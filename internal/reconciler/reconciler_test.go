package reconciler

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"git.home.luguber.info/inful/statekeeper/internal/events"
	"git.home.luguber.info/inful/statekeeper/internal/state"
	"git.home.luguber.info/inful/statekeeper/internal/statefile"
)

// startLoop builds a store on a fresh temp file, subscribes before the loop
// starts, runs the loop, and consumes the unconditional startup event so
// tests only observe transitions they cause themselves.
func startLoop(t *testing.T) (*state.Store, <-chan events.StateUpdated, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "desired_state.yml")
	hub := events.NewHub(nil)
	t.Cleanup(hub.Close)

	store, err := state.NewStore(statefile.New(path), hub, nil)
	require.NoError(t, err)

	ch, cancelSub := hub.Subscribe()
	t.Cleanup(cancelSub)

	loop, err := New(store)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- loop.Run(ctx) }()

	t.Cleanup(func() {
		cancel()
		select {
		case err := <-done:
			assert.NoError(t, err)
		case <-time.After(2 * time.Second):
			t.Error("reconciliation loop did not stop")
		}
	})

	evt := waitForEvent(t, ch)
	require.Empty(t, evt.Services, "startup snapshot of a fresh file must be empty")
	return store, ch, path
}

func waitForEvent(t *testing.T, ch <-chan events.StateUpdated) events.StateUpdated {
	t.Helper()
	select {
	case evt := <-ch:
		return evt
	case <-time.After(3 * time.Second):
		t.Fatal("timed out waiting for state event")
		return events.StateUpdated{}
	}
}

func assertQuiet(t *testing.T, ch <-chan events.StateUpdated) {
	t.Helper()
	time.Sleep(500 * time.Millisecond)
	select {
	case evt := <-ch:
		t.Fatalf("unexpected state event: %+v", evt)
	default:
	}
}

func TestRun_EmitsCurrentStateOnStart(t *testing.T) {
	path := filepath.Join(t.TempDir(), "desired_state.yml")
	hub := events.NewHub(nil)
	defer hub.Close()
	store, err := state.NewStore(statefile.New(path), hub, nil)
	require.NoError(t, err)
	_, err = store.Set("api", "^1.2.3")
	require.NoError(t, err)

	ch, cancelSub := hub.Subscribe()
	defer cancelSub()

	loop, err := New(store)
	require.NoError(t, err)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- loop.Run(ctx) }()
	defer func() { cancel(); <-done }()

	evt := waitForEvent(t, ch)
	require.Len(t, evt.Services, 1)
	assert.Equal(t, "api", evt.Services[0].Name)
}

func TestRun_ExternalEditTriggersExactlyOneEvent(t *testing.T) {
	_, ch, path := startLoop(t)

	content := "version: 0.1.0\nservices:\n    - name: api\n      version: '^1.2.3'\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	evt := waitForEvent(t, ch)
	require.Len(t, evt.Services, 1)
	assert.Equal(t, "api", evt.Services[0].Name)
	assert.Equal(t, "^1.2.3", evt.Services[0].RequirementString())

	// Duplicate notifications for the same content are absorbed by the
	// no-change branch: no further events may arrive.
	assertQuiet(t, ch)
}

func TestRun_ExternalRemovalObserved(t *testing.T) {
	store, ch, path := startLoop(t)

	_, err := store.Set("api", "^1.2.3")
	require.NoError(t, err)
	waitForEvent(t, ch)
	_, err = store.Set("web", ">2.0.0")
	require.NoError(t, err)
	waitForEvent(t, ch)

	// External process rewrites the file without "api".
	content := "version: 0.1.0\nservices:\n    - name: web\n      version: '>2.0.0'\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	evt := waitForEvent(t, ch)
	require.Len(t, evt.Services, 1)
	assert.Equal(t, "web", evt.Services[0].Name)
	assertQuiet(t, ch)
}

func TestRun_UnrelatedFileIgnored(t *testing.T) {
	store, ch, path := startLoop(t)

	other := filepath.Join(filepath.Dir(path), "unrelated.yml")
	require.NoError(t, os.WriteFile(other, []byte("services:\n    - name: ghost\n      version: '*'\n"), 0o644))

	assertQuiet(t, ch)
	assert.Empty(t, store.List())
}

func TestRun_MalformedEditKeepsStateAndLoopAlive(t *testing.T) {
	store, ch, path := startLoop(t)

	_, err := store.Set("api", "^1.2.3")
	require.NoError(t, err)
	waitForEvent(t, ch)

	require.NoError(t, os.WriteFile(path, []byte("::: broken {{{"), 0o644))
	assertQuiet(t, ch)
	require.Len(t, store.List(), 1)

	// The loop must still react to a subsequent good edit.
	content := "version: 0.1.0\nservices:\n    - name: web\n      version: '*'\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	evt := waitForEvent(t, ch)
	require.Len(t, evt.Services, 1)
	assert.Equal(t, "web", evt.Services[0].Name)
}

func TestRun_OwnPersistDoesNotReEmit(t *testing.T) {
	store, ch, _ := startLoop(t)

	// A Set persists through the codec, which itself raises filesystem
	// notifications; the resulting reload must hit the no-change branch.
	_, err := store.Set("api", "^1.2.3")
	require.NoError(t, err)
	waitForEvent(t, ch) // the Set's own emit
	assertQuiet(t, ch)
}

func TestRun_ContextCancellationStopsCleanly(t *testing.T) {
	path := filepath.Join(t.TempDir(), "desired_state.yml")
	store, err := state.NewStore(statefile.New(path), events.NewHub(nil), nil)
	require.NoError(t, err)

	loop, err := New(store)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- loop.Run(ctx) }()

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("loop did not stop on cancellation")
	}
}

func TestIsContentChange(t *testing.T) {
	assert.True(t, isContentChange(fsnotify.Create))
	assert.True(t, isContentChange(fsnotify.Write))
	assert.True(t, isContentChange(fsnotify.Remove))
	assert.True(t, isContentChange(fsnotify.Rename))
	assert.False(t, isContentChange(fsnotify.Chmod))
}

func TestCanonicalize_StableAcrossFileCreation(t *testing.T) {
	dir := t.TempDir()
	missing := filepath.Join(dir, "not_yet.yml")

	before, err := canonicalize(missing)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(missing, []byte(""), 0o644))
	after, err := canonicalize(missing)
	require.NoError(t, err)

	assert.Equal(t, before, after)
}
