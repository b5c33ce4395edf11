package indexer

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	eventsConsumed = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "relayroom_indexer_events_consumed_total",
		Help: "Total chat events consumed from the broker by subject",
	}, []string{"subject"})

	eventsDeduped = promauto.NewCounter(prometheus.CounterOpts{
		Name: "relayroom_indexer_events_deduped_total",
		Help: "Events skipped because their event_id was already processed",
	})

	documentsIndexed = promauto.NewCounter(prometheus.CounterOpts{
		Name: "relayroom_indexer_documents_indexed_total",
		Help: "Documents written to the search index",
	})

	indexErrors = promauto.NewCounter(prometheus.CounterOpts{
		Name: "relayroom_indexer_index_errors_total",
		Help: "Bulk write failures against the search backend",
	})

	operationsShed = promauto.NewCounter(prometheus.CounterOpts{
		Name: "relayroom_indexer_operations_shed_total",
		Help: "Operations dropped because the retry backlog overflowed",
	})

	flushDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "relayroom_indexer_flush_duration_seconds",
		Help:    "Time spent writing a bulk batch",
		Buckets: prometheus.DefBuckets,
	})
)
