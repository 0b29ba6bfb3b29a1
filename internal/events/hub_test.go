package events

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func updated(version string) StateUpdated {
	return StateUpdated{SchemaVersion: version, OccurredAt: time.Now()}
}

func TestHub_EmitReachesAllSubscribers(t *testing.T) {
	h := NewHub(nil)
	defer h.Close()

	ch1, cancel1 := h.Subscribe()
	defer cancel1()
	ch2, cancel2 := h.Subscribe()
	defer cancel2()

	h.Emit(updated("0.1.0"))

	for _, ch := range []<-chan StateUpdated{ch1, ch2} {
		select {
		case got := <-ch:
			assert.Equal(t, "0.1.0", got.SchemaVersion)
		case <-time.After(250 * time.Millisecond):
			t.Fatal("timed out waiting for event")
		}
	}
}

func TestHub_PerChannelOrderPreserved(t *testing.T) {
	h := NewHub(nil)
	defer h.Close()

	ch, cancel := h.Subscribe()
	defer cancel()

	h.Emit(updated("0.1.0"))
	h.Emit(updated("0.2.0"))
	h.Emit(updated("0.3.0"))

	assert.Equal(t, "0.1.0", (<-ch).SchemaVersion)
	assert.Equal(t, "0.2.0", (<-ch).SchemaVersion)
	assert.Equal(t, "0.3.0", (<-ch).SchemaVersion)
}

func TestHub_EmitNeverBlocksOnFullBuffer(t *testing.T) {
	h := NewHub(nil)
	defer h.Close()

	ch, cancel := h.Subscribe()
	defer cancel()

	// Fill the buffer past capacity without a consumer; the extra emits must
	// return immediately and drop.
	for i := 0; i < SubscriberBuffer+5; i++ {
		h.Emit(updated("0.1.0"))
	}

	received := 0
	for {
		select {
		case <-ch:
			received++
		default:
			assert.Equal(t, SubscriberBuffer, received)
			return
		}
	}
}

func TestHub_UnsubscribeClosesChannelAndPrunes(t *testing.T) {
	h := NewHub(nil)
	defer h.Close()

	ch, cancel := h.Subscribe()
	require.Equal(t, 1, h.SubscriberCount())

	cancel()
	cancel() // idempotent

	_, open := <-ch
	assert.False(t, open)
	assert.Equal(t, 0, h.SubscriberCount())

	// Emits after unsubscribe must not panic or deliver.
	h.Emit(updated("0.1.0"))
}

func TestHub_CloseClosesSubscribers(t *testing.T) {
	h := NewHub(nil)

	ch, cancel := h.Subscribe()
	h.Close()

	_, open := <-ch
	assert.False(t, open)

	// Cancel after close must be a no-op, and late subscribers get a closed channel.
	cancel()
	late, _ := h.Subscribe()
	_, open = <-late
	assert.False(t, open)

	h.Emit(updated("0.1.0")) // no-op after close
}
