package events

import (
	"time"

	"git.home.luguber.info/inful/statekeeper/internal/desired"
)

// StateUpdated announces that the desired state actually changed. It carries
// an immutable point-in-time snapshot sorted by service name, never a live
// reference into the store.
type StateUpdated struct {
	SchemaVersion string
	Services      []desired.Service
	OccurredAt    time.Time
}

// ServiceCount returns the number of services in the snapshot.
func (e StateUpdated) ServiceCount() int { return len(e.Services) }
