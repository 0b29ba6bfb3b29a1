// Package state owns the authoritative in-memory desired state and
// serializes every read and write against it.
package state

import (
	"log/slog"
	"sync"
	"time"

	"github.com/Masterminds/semver/v3"

	"git.home.luguber.info/inful/statekeeper/internal/desired"
	"git.home.luguber.info/inful/statekeeper/internal/events"
	ferrors "git.home.luguber.info/inful/statekeeper/internal/foundation/errors"
	"git.home.luguber.info/inful/statekeeper/internal/logfields"
	"git.home.luguber.info/inful/statekeeper/internal/metrics"
	"git.home.luguber.info/inful/statekeeper/internal/statefile"
)

// Store is the single source of truth for the desired state. One coarse
// mutex covers read, mutate, persist, and notify: no two mutations
// interleave and no reader observes a state mid-mutation. Emission through
// the hub never blocks, so holding the lock across notify is safe.
type Store struct {
	mu       sync.Mutex
	codec    *statefile.Codec
	hub      *events.Hub
	recorder metrics.Recorder

	schemaVersion *semver.Version
	services      map[string]desired.Service
}

// NewStore loads the initial desired state through the codec. A missing file
// results in a template being created and an empty state; malformed content
// is absorbed as empty. Only template-creation failures are returned.
func NewStore(codec *statefile.Codec, hub *events.Hub, recorder metrics.Recorder) (*Store, error) {
	if recorder == nil {
		recorder = metrics.NoopRecorder{}
	}
	version, services, err := codec.Read()
	if err != nil {
		if !ferrors.HasCategory(err, ferrors.CategoryParse) {
			return nil, err
		}
		// Malformed content at startup is absorbed as an empty state rather
		// than refusing to start; the file is left intact for the operator.
		slog.Warn("Desired state file is malformed; starting with empty state",
			logfields.Path(codec.Path()), logfields.Error(err))
		version = statefile.CurrentSchemaVersion()
		services = map[string]desired.Service{}
	}
	return &Store{
		codec:         codec,
		hub:           hub,
		recorder:      recorder,
		schemaVersion: version,
		services:      services,
	}, nil
}

// Path returns the backing file path, the reconciliation loop's watch target.
func (s *Store) Path() string { return s.codec.Path() }

// List returns a snapshot of all services sorted by name.
func (s *Store) List() []desired.Service {
	s.mu.Lock()
	defer s.mu.Unlock()
	return desired.Sorted(s.services)
}

// Set parses the requirement expression and upserts the service. The staged
// mapping is persisted before the in-memory state is committed: a persist
// failure leaves the prior state fully intact and emits nothing. A successful
// Set always emits, even when the value is unchanged, because it is
// caller-initiated rather than reconciliation-driven.
func (s *Store) Set(name, expr string) (desired.Service, error) {
	req, err := desired.ParseRequirement(expr)
	if err != nil {
		s.recorder.IncMutation("set", metrics.MutationValidation)
		return desired.Service{}, err
	}
	svc := desired.Service{Name: name, Requirement: req}

	s.mu.Lock()
	defer s.mu.Unlock()

	staged := desired.Clone(s.services)
	staged[name] = svc

	if err := s.persist(staged); err != nil {
		s.recorder.IncMutation("set", metrics.MutationIO)
		return desired.Service{}, err
	}

	s.services = staged
	s.recorder.IncMutation("set", metrics.MutationOK)
	slog.Info("Set service requirement",
		logfields.Service(name),
		logfields.Requirement(svc.RequirementString()))
	s.emitLocked()
	return svc, nil
}

// Remove deletes the named service. Removing an absent name is a no-op that
// reports false without persisting or emitting. Persist-before-commit applies
// as in Set.
func (s *Store) Remove(name string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.services[name]; !ok {
		s.recorder.IncMutation("remove", metrics.MutationNoop)
		return false, nil
	}

	staged := desired.Clone(s.services)
	delete(staged, name)

	if err := s.persist(staged); err != nil {
		s.recorder.IncMutation("remove", metrics.MutationIO)
		return false, err
	}

	s.services = staged
	s.recorder.IncMutation("remove", metrics.MutationOK)
	slog.Info("Removed service", logfields.Service(name))
	s.emitLocked()
	return true, nil
}

// ReloadFromDisk re-reads the document and swaps the in-memory state when the
// schema version or the (name, requirement) set actually differs, emitting
// exactly one event for the transition. An unchanged read is a silent no-op.
// Malformed external content is logged and ignored, leaving the last good
// snapshot authoritative; only I/O-class failures surface here.
func (s *Store) ReloadFromDisk() (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	version, services, err := s.codec.Read()
	if err != nil {
		if ferrors.HasCategory(err, ferrors.CategoryParse) {
			// A malformed external edit must not displace the last good
			// snapshot; warn and report no change.
			s.recorder.IncReload(metrics.ReloadError)
			slog.Warn("Ignoring malformed desired state file; keeping last good state",
				logfields.Path(s.codec.Path()), logfields.Error(err))
			return false, nil
		}
		s.recorder.IncReload(metrics.ReloadError)
		return false, err
	}

	if version.String() == s.schemaVersion.String() && desired.Equal(services, s.services) {
		s.recorder.IncReload(metrics.ReloadUnchanged)
		return false, nil
	}

	s.schemaVersion = version
	s.services = services
	s.recorder.IncReload(metrics.ReloadChanged)
	slog.Info("Reloaded desired state from disk",
		logfields.SchemaVersion(version.String()),
		logfields.ServiceCount(len(services)))
	s.emitLocked()
	return true, nil
}

// Snapshot returns the current state as an immutable event value.
func (s *Store) Snapshot() events.StateUpdated {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

// EmitCurrent publishes the current state unconditionally. The reconciliation
// loop uses this once at startup so already-registered subscribers see the
// initial state without waiting for a transition.
func (s *Store) EmitCurrent() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.emitLocked()
}

func (s *Store) persist(services map[string]desired.Service) error {
	start := time.Now()
	err := s.codec.Write(s.schemaVersion, services)
	s.recorder.ObservePersistDuration(time.Since(start))
	return err
}

func (s *Store) snapshotLocked() events.StateUpdated {
	return events.StateUpdated{
		SchemaVersion: s.schemaVersion.String(),
		Services:      desired.Sorted(s.services),
		OccurredAt:    time.Now(),
	}
}

func (s *Store) emitLocked() {
	if s.hub == nil {
		return
	}
	s.hub.Emit(s.snapshotLocked())
}
