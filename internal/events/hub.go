// Package events provides the in-process pub/sub hub that fans out desired
// state transitions to interested observers.
package events

import (
	"log/slog"
	"sync"

	"git.home.luguber.info/inful/statekeeper/internal/metrics"
)

// SubscriberBuffer is the per-subscriber channel capacity. When a subscriber
// falls this far behind, further events are dropped for that subscriber
// rather than blocking the emitter: Emit runs inside the store's critical
// section and must never stall the mutation path.
const SubscriberBuffer = 16

// Hub fans out StateUpdated events to zero or more subscribers.
//
// Delivery policy: bounded per-subscriber buffering, drop-newest on overflow.
// Each individual channel preserves emission order; order across channels is
// unspecified. Unsubscribed endpoints are removed from the registry and their
// channels closed exactly once.
type Hub struct {
	mu       sync.Mutex
	subs     map[uint64]chan StateUpdated
	nextID   uint64
	closed   bool
	recorder metrics.Recorder
}

// NewHub creates a Hub. A nil recorder defaults to NoopRecorder.
func NewHub(recorder metrics.Recorder) *Hub {
	if recorder == nil {
		recorder = metrics.NoopRecorder{}
	}
	return &Hub{
		subs:     make(map[uint64]chan StateUpdated),
		recorder: recorder,
	}
}

// Subscribe registers a new delivery endpoint. The returned cancel func
// unsubscribes and closes the channel; it is safe to call more than once.
func (h *Hub) Subscribe() (<-chan StateUpdated, func()) {
	h.mu.Lock()
	defer h.mu.Unlock()

	ch := make(chan StateUpdated, SubscriberBuffer)
	if h.closed {
		close(ch)
		return ch, func() {}
	}

	h.nextID++
	id := h.nextID
	h.subs[id] = ch
	h.recorder.SetSubscribers(len(h.subs))

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			h.mu.Lock()
			defer h.mu.Unlock()
			if _, ok := h.subs[id]; ok {
				delete(h.subs, id)
				close(ch)
				h.recorder.SetSubscribers(len(h.subs))
			}
		})
	}
	return ch, cancel
}

// Emit delivers the event to every live subscriber without blocking. A
// subscriber whose buffer is full misses this event; the drop is counted and
// logged at debug level.
func (h *Hub) Emit(evt StateUpdated) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.closed {
		return
	}

	h.recorder.IncEventEmitted()
	for id, ch := range h.subs {
		select {
		case ch <- evt:
		default:
			h.recorder.IncEventDropped()
			slog.Debug("Dropped state event for slow subscriber",
				"subscriber_id", id,
				"schema_version", evt.SchemaVersion,
				"service_count", evt.ServiceCount())
		}
	}
}

// SubscriberCount returns the number of live subscribers. Intended for tests
// and diagnostics.
func (h *Hub) SubscriberCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subs)
}

// Close closes every subscriber channel and rejects further emits.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.closed {
		return
	}
	h.closed = true
	for id, ch := range h.subs {
		delete(h.subs, id)
		close(ch)
	}
	h.recorder.SetSubscribers(0)
}
