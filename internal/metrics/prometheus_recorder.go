package metrics

import (
	"net/http"
	"time"

	prom "github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// PrometheusRecorder implements Recorder using Prometheus metrics.
type PrometheusRecorder struct {
	registry        *prom.Registry
	reloads         *prom.CounterVec
	mutations       *prom.CounterVec
	eventsEmitted   prom.Counter
	eventsDropped   prom.Counter
	subscribers     prom.Gauge
	persistDuration prom.Histogram
}

// NewPrometheusRecorder constructs and registers Prometheus metrics.
func NewPrometheusRecorder(reg *prom.Registry) *PrometheusRecorder {
	if reg == nil {
		reg = prom.NewRegistry()
	}
	pr := &PrometheusRecorder{registry: reg}
	pr.reloads = prom.NewCounterVec(prom.CounterOpts{
		Namespace: "statekeeper",
		Name:      "reloads_total",
		Help:      "Desired state reloads from disk by outcome",
	}, []string{"result"})
	pr.mutations = prom.NewCounterVec(prom.CounterOpts{
		Namespace: "statekeeper",
		Name:      "mutations_total",
		Help:      "Caller-initiated state mutations by operation and outcome",
	}, []string{"op", "result"})
	pr.eventsEmitted = prom.NewCounter(prom.CounterOpts{
		Namespace: "statekeeper",
		Name:      "events_emitted_total",
		Help:      "State transition events emitted to subscribers",
	})
	pr.eventsDropped = prom.NewCounter(prom.CounterOpts{
		Namespace: "statekeeper",
		Name:      "events_dropped_total",
		Help:      "Events dropped because a subscriber buffer was full",
	})
	pr.subscribers = prom.NewGauge(prom.GaugeOpts{
		Namespace: "statekeeper",
		Name:      "subscribers",
		Help:      "Currently registered event subscribers",
	})
	pr.persistDuration = prom.NewHistogram(prom.HistogramOpts{
		Namespace: "statekeeper",
		Name:      "persist_duration_seconds",
		Help:      "Duration of desired state file writes",
		Buckets:   prom.DefBuckets,
	})
	reg.MustRegister(pr.reloads, pr.mutations, pr.eventsEmitted, pr.eventsDropped, pr.subscribers, pr.persistDuration)
	return pr
}

// Handler returns an HTTP handler exposing the registry in Prometheus text format.
func (pr *PrometheusRecorder) Handler() http.Handler {
	return promhttp.HandlerFor(pr.registry, promhttp.HandlerOpts{})
}

func (pr *PrometheusRecorder) IncReload(result ReloadResult) {
	pr.reloads.WithLabelValues(string(result)).Inc()
}

func (pr *PrometheusRecorder) IncMutation(op string, result MutationResult) {
	pr.mutations.WithLabelValues(op, string(result)).Inc()
}

func (pr *PrometheusRecorder) IncEventEmitted() { pr.eventsEmitted.Inc() }
func (pr *PrometheusRecorder) IncEventDropped() { pr.eventsDropped.Inc() }

func (pr *PrometheusRecorder) SetSubscribers(n int) { pr.subscribers.Set(float64(n)) }

func (pr *PrometheusRecorder) ObservePersistDuration(d time.Duration) {
	pr.persistDuration.Observe(d.Seconds())
}
