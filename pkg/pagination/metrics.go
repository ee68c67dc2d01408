package pagination

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	pagesFetchedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "feed_pages_fetched_total",
		Help: "Total page fetches completed by kind, mode and outcome",
	}, []string{"kind", "mode", "outcome"}) // outcome: "ok", "error", "stale"

	pageFetchDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "feed_page_fetch_duration_seconds",
		Help:    "Page fetch duration in seconds by kind and mode",
		Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5},
	}, []string{"kind", "mode"})

	queryResetsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "feed_query_resets_total",
		Help: "Total accumulated state resets by reason",
	}, []string{"reason"}) // "query", "refetch"

	loadMoreSkippedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "feed_load_more_skipped_total",
		Help: "Total LoadMore calls that did not start a fetch, by reason",
	}, []string{"reason"}) // "guard", "spacing"

	prefetchPagesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "feed_prefetch_pages_total",
		Help: "Total pages requested by the prefetcher by outcome",
	}, []string{"outcome"}) // "ok", "error", "skipped"
)
