// Package metrics exposes the engine's prometheus collectors.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Searches counts recognition requests by outcome ("hit" or "miss").
	Searches = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "fingerprint_searches_total",
		Help: "Recognition requests processed, labeled by outcome.",
	}, []string{"outcome"})

	// SearchDuration observes end-to-end recognition latency.
	SearchDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "fingerprint_search_duration_seconds",
		Help:    "End-to-end recognition latency.",
		Buckets: prometheus.DefBuckets,
	})

	// TracksIndexed counts successfully indexed tracks.
	TracksIndexed = promauto.NewCounter(prometheus.CounterOpts{
		Name: "fingerprint_tracks_indexed_total",
		Help: "Tracks successfully indexed.",
	})

	// IndexFailures counts per-file indexing failures.
	IndexFailures = promauto.NewCounter(prometheus.CounterOpts{
		Name: "fingerprint_index_failures_total",
		Help: "Files that failed to index.",
	})
)
