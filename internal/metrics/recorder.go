package metrics

import "time"

// ReloadResult enumerates reconciliation reload outcomes for counters.
type ReloadResult string

const (
	ReloadChanged   ReloadResult = "changed"
	ReloadUnchanged ReloadResult = "unchanged"
	ReloadError     ReloadResult = "error"
)

// MutationResult enumerates caller-initiated mutation outcomes.
type MutationResult string

const (
	MutationOK         MutationResult = "ok"
	MutationValidation MutationResult = "validation_error"
	MutationIO         MutationResult = "io_error"
	MutationNoop       MutationResult = "noop"
)

// Recorder defines observability hooks for store and reconciler metrics.
// Implementations may forward to Prometheus, OpenTelemetry, etc. The
// NoopRecorder allows optional injection.
type Recorder interface {
	IncReload(result ReloadResult)
	IncMutation(op string, result MutationResult) // op: set|remove
	IncEventEmitted()
	IncEventDropped()
	SetSubscribers(n int)
	ObservePersistDuration(d time.Duration)
}

// NoopRecorder is a Recorder that does nothing (default when metrics not configured).
type NoopRecorder struct{}

func (NoopRecorder) IncReload(ReloadResult)              {}
func (NoopRecorder) IncMutation(string, MutationResult)  {}
func (NoopRecorder) IncEventEmitted()                    {}
func (NoopRecorder) IncEventDropped()                    {}
func (NoopRecorder) SetSubscribers(int)                  {}
func (NoopRecorder) ObservePersistDuration(time.Duration) {}
