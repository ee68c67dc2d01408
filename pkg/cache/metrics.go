package cache

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// CacheHits tracks lookups served from an in-memory cache.
	CacheHits = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "feed_cache_hits_total",
			Help: "Total number of in-memory cache hits",
		},
		[]string{"cache"},
	)

	// CacheMisses tracks lookups that found nothing valid.
	CacheMisses = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "feed_cache_misses_total",
			Help: "Total number of in-memory cache misses",
		},
		[]string{"cache"},
	)

	// CacheEvictions tracks entries removed by the cache itself.
	CacheEvictions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "feed_cache_evictions_total",
			Help: "Total number of cache entries evicted",
		},
		[]string{"cache", "reason"}, // "capacity", "expired"
	)

	// CacheEntries tracks the current entry count.
	CacheEntries = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "feed_cache_entries",
			Help: "Current number of entries in the in-memory cache",
		},
		[]string{"cache"},
	)

	// PageStoreOperations tracks Redis page store calls by outcome.
	PageStoreOperations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "feed_page_store_operations_total",
			Help: "Total number of shared page store operations",
		},
		[]string{"operation", "result"}, // "get", "set", "delete" / "hit", "miss", "ok", "error"
	)
)
