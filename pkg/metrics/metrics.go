// Package metrics exposes the feed's Prometheus metrics over HTTP.
// All metrics are defined in their respective packages (cache, ratelimit,
// viewport, pagination, client, telemetry) and registered via promauto.
//
// This package provides the scrape handler and a reference for all
// available metrics.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Registry is the registry every feed metric is registered with.
var Registry = prometheus.DefaultRegisterer

// Gatherer is the gatherer Handler serves from.
var Gatherer = prometheus.DefaultGatherer

// Handler returns the /metrics scrape handler.
func Handler() http.Handler {
	return promhttp.HandlerFor(Gatherer, promhttp.HandlerOpts{})
}

// Metrics Documentation
//
// Cache Metrics (pkg/cache):
//   - feed_cache_hits_total{cache} (Counter): ExpiringCache hits
//   - feed_cache_misses_total{cache} (Counter): ExpiringCache misses, including expired entries
//   - feed_cache_evictions_total{cache, reason} (Counter): Removals by reason (capacity, expired)
//   - feed_cache_entries{cache} (Gauge): Current entry count
//   - feed_page_store_operations_total{operation, result} (Counter): Redis page store calls
//
// Rate Limiter Metrics (pkg/ratelimit):
//   - feed_debounce_superseded_total (Counter): Debounced calls replaced by a newer call
//   - feed_throttle_dropped_total (Counter): Throttled calls dropped inside the window
//
// Scroll Trigger Metrics (pkg/viewport):
//   - feed_scroll_triggers_total{reason} (Counter): Load triggers by reason (scroll, mount, ready, cooldown, intersect)
//   - feed_scroll_cooldown_skips_total (Counter): Checks suppressed by the minimum trigger interval
//
// Pagination Metrics (pkg/pagination):
//   - feed_pages_fetched_total{kind, mode, outcome} (Counter): Completed fetches (ok, error, stale)
//   - feed_page_fetch_duration_seconds{kind, mode} (Histogram): Page fetch duration
//   - feed_query_resets_total{reason} (Counter): Accumulated state resets (query, refetch)
//   - feed_load_more_skipped_total{reason} (Counter): LoadMore calls not started (guard, spacing)
//   - feed_prefetch_pages_total{outcome} (Counter): Prefetched pages (ok, error, skipped)
//
// Upstream Metrics (pkg/client):
//   - feed_upstream_requests_total{source, status} (Counter): Requests by source and HTTP status
//   - feed_upstream_request_duration_seconds{source} (Histogram): Request duration including retries
//   - feed_upstream_errors_total{class} (Counter): Errors by class (client, server, rate_limit, network, decode)
//   - feed_upstream_retries_total{error_class} (Counter): Retry attempts
//   - feed_upstream_retry_backoff_seconds{error_class} (Histogram): Backoff duration
//   - feed_upstream_retry_exhausted_total{error_class} (Counter): Requests that exhausted retries
//
// Telemetry Metrics (pkg/telemetry):
//   - feed_item_interactions_total{kind} (Counter): Item interactions recorded
//
// Example Prometheus Queries:
//
//   # Page cache hit rate
//   sum(rate(feed_cache_hits_total{cache="pages"}[5m])) /
//   (sum(rate(feed_cache_hits_total{cache="pages"}[5m])) + sum(rate(feed_cache_misses_total{cache="pages"}[5m])))
//
//   # Share of responses dropped as stale
//   rate(feed_pages_fetched_total{outcome="stale"}[5m]) / rate(feed_pages_fetched_total[5m])
//
//   # P95 upstream latency
//   histogram_quantile(0.95, rate(feed_upstream_request_duration_seconds_bucket[5m]))
