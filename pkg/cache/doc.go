// Package cache provides the in-memory caching layer that sits in front of
// page fetchers, plus an optional Redis-backed page store shared between
// processes.
//
// # Expiring cache
//
// ExpiringCache is a bounded key/value store with a per-cache TTL. Entries
// are expired lazily: a Get that finds an entry older than the TTL deletes
// it and reports a miss. When the cache is full, inserting a new key evicts
// the oldest-inserted entry (FIFO). Overwriting an existing key refreshes
// its value and timestamp but keeps its original eviction position.
//
//	c := cache.NewExpiring[string, int](cache.Config{
//		Name:    "search",
//		MaxSize: 100,
//		TTL:     5 * time.Minute,
//	})
//	c.Set("shoes", 42)
//	v, ok := c.Get("shoes")
//
// # Memoization
//
// Memoize wraps a pure function with an ExpiringCache keyed by a structural
// serialization of its argument. MemoizeFetch does the same for fallible,
// context-aware fetch functions: errors are never cached and concurrent
// misses for the same key share one call.
//
//	fetch := cache.MemoizeFetch(c, client.FetchRequest, nil)
//	page, err := fetch(ctx, req)
//
// # Shared page store
//
// PageStore keeps serialized pages in Redis with a TTL so that several
// proxy instances can share upstream results.
//
// # Metrics
//
//   - feed_cache_hits_total{cache}
//   - feed_cache_misses_total{cache}
//   - feed_cache_evictions_total{cache,reason} (reason: capacity, expired)
//   - feed_cache_entries{cache}
//   - feed_page_store_operations_total{operation,result}
package cache
