package querycache

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	cacheHits = promauto.NewCounter(prometheus.CounterOpts{
		Name: "query_cache_hits_total",
		Help: "Reads served from a fresh cache entry",
	})

	cacheMisses = promauto.NewCounter(prometheus.CounterOpts{
		Name: "query_cache_misses_total",
		Help: "Reads that fell through to the fetch function",
	})

	cacheRestores = promauto.NewCounter(prometheus.CounterOpts{
		Name: "query_cache_restores_total",
		Help: "Snapshot rollbacks after a failed optimistic write",
	})

	cacheFencedFetches = promauto.NewCounter(prometheus.CounterOpts{
		Name: "query_cache_fenced_fetches_total",
		Help: "In-flight fetches discarded because their region was fenced",
	})

	cacheFetchDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "query_cache_fetch_duration_seconds",
		Help:    "Latency of cache fill fetches",
		Buckets: prometheus.DefBuckets,
	})
)
