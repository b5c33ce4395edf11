package events

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	publishesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "relayroom_events_published_total",
			Help: "Publish calls by backend and terminal outcome",
		},
		[]string{"backend", "outcome"},
	)

	publishDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "relayroom_events_publish_duration_seconds",
			Help:    "Duration of individual transport publish attempts",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"backend"},
	)

	queueDepth = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "relayroom_events_queue_depth",
			Help: "Current depth of the high-performance intake queue",
		},
	)

	queueCapacity = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "relayroom_events_queue_capacity",
			Help: "Capacity of the high-performance intake queue",
		},
	)

	circuitTransitions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "relayroom_events_circuit_transitions_total",
			Help: "Circuit breaker transitions by subject and resulting state",
		},
		[]string{"subject", "state"},
	)

	failovers = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "relayroom_events_failovers_total",
			Help: "Per-call failovers to the other backend",
		},
	)

	activeBackend = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "relayroom_events_active_backend",
			Help: "Currently selected backend (1 = active)",
		},
		[]string{"backend"},
	)
)

func recordOutcome(b Backend, res PublishResult) {
	publishesTotal.WithLabelValues(b.String(), res.Outcome.String()).Inc()
}

func setActiveBackend(b Backend) {
	activeBackend.WithLabelValues(BackendHighPerformance.String()).Set(0)
	activeBackend.WithLabelValues(BackendLegacy.String()).Set(0)
	activeBackend.WithLabelValues(b.String()).Set(1)
}
