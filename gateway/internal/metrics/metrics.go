package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	RequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "relayroom_gateway_requests_total",
			Help: "Total number of proxied requests",
		},
		[]string{"method", "status"},
	)

	RequestDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "relayroom_gateway_request_duration_seconds",
			Help:    "Duration of proxied requests in seconds",
			Buckets: prometheus.DefBuckets,
		},
	)

	RateLimitHits = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "relayroom_gateway_rate_limit_hits_total",
			Help: "Total number of rate limit hits by route class",
		},
		[]string{"rule"},
	)

	UpstreamErrors = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "relayroom_gateway_upstream_errors_total",
			Help: "Total number of upstream request failures",
		},
	)
)
