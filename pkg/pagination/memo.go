package pagination

import (
	"context"

	"github.com/Sternrassler/storefront-feed/pkg/cache"
)

type pageRequest struct {
	page, size int
	query      Query
}

type memoFetcher[T any] struct {
	fetch cache.FetchFunc[pageRequest, Page[T]]
}

// Memoized wraps fetcher with an in-memory page cache. Pages are keyed by
// query, page index and size; failed fetches are not cached, and concurrent
// requests for one page share a single upstream call.
func Memoized[T any](fetcher PageFetcher[T], c *cache.ExpiringCache[string, Page[T]]) PageFetcher[T] {
	fetch := func(ctx context.Context, r pageRequest) (Page[T], error) {
		return fetcher.FetchPage(ctx, r.page, r.size, r.query)
	}
	key := func(r pageRequest) string {
		return r.query.PageKey(r.page, r.size).String()
	}
	return &memoFetcher[T]{fetch: cache.MemoizeFetch(c, fetch, key)}
}

func (m *memoFetcher[T]) FetchPage(ctx context.Context, page, size int, q Query) (Page[T], error) {
	return m.fetch(ctx, pageRequest{page: page, size: size, query: q})
}
