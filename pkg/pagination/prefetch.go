package pagination

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/Sternrassler/storefront-feed/pkg/logging"
)

// PrefetchConfig holds prefetcher configuration.
type PrefetchConfig struct {
	// MaxConcurrency is the maximum number of parallel page fetches.
	MaxConcurrency int
	// Timeout per page fetch.
	Timeout time.Duration
}

// DefaultPrefetchConfig returns the default prefetcher configuration.
func DefaultPrefetchConfig() PrefetchConfig {
	return PrefetchConfig{
		MaxConcurrency: 4,
		Timeout:        10 * time.Second,
	}
}

// Prefetcher fetches a run of pages of one query in parallel, typically to
// warm a cache in front of fetcher before a client scrolls there.
type Prefetcher[T any] struct {
	fetcher PageFetcher[T]
	config  PrefetchConfig
	logger  zerolog.Logger
}

// NewPrefetcher creates a Prefetcher. Non-positive config fields take their
// defaults.
func NewPrefetcher[T any](fetcher PageFetcher[T], config PrefetchConfig) *Prefetcher[T] {
	defaults := DefaultPrefetchConfig()
	if config.MaxConcurrency <= 0 {
		config.MaxConcurrency = defaults.MaxConcurrency
	}
	if config.Timeout <= 0 {
		config.Timeout = defaults.Timeout
	}

	return &Prefetcher[T]{
		fetcher: fetcher,
		config:  config,
		logger:  logging.NewLogger("prefetch"),
	}
}

// Prefetch fetches pages first through first+count-1 of q. It returns the
// pages that succeeded keyed by page index, and an error describing the
// first failure when any page failed. A page reporting the end of the
// results stops further pages from being requested.
func (p *Prefetcher[T]) Prefetch(ctx context.Context, q Query, first, count, size int) (map[int]Page[T], error) {
	if count <= 0 {
		return map[int]Page[T]{}, nil
	}
	start := time.Now()

	var (
		mu      sync.Mutex
		results = make(map[int]Page[T], count)
		// lastPage is the smallest page index known to end the results.
		lastPage = first + count
		firstErr error
	)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.config.MaxConcurrency)

	for page := first; page < first+count; page++ {
		mu.Lock()
		beyondEnd := page > lastPage
		mu.Unlock()
		if beyondEnd || gctx.Err() != nil {
			prefetchPagesTotal.WithLabelValues("skipped").Inc()
			continue
		}

		page := page
		g.Go(func() error {
			pageCtx, cancel := context.WithTimeout(gctx, p.config.Timeout)
			defer cancel()

			result, err := p.fetcher.FetchPage(pageCtx, page, size, q)

			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				prefetchPagesTotal.WithLabelValues("error").Inc()
				p.logger.Warn().
					Err(err).
					Str("query", q.Fingerprint()).
					Int("page", page).
					Msg("Prefetch page failed")
				if firstErr == nil {
					firstErr = &FetchError{Query: q, Page: page, Err: err}
				}
				// A failed page does not cancel its siblings.
				return nil
			}

			prefetchPagesTotal.WithLabelValues("ok").Inc()
			results[page] = result
			// Pages are numbered from 1, so page ends at row (page-1)*size+rows.
			loaded := (page-1)*size + len(result.Rows)
			if !hasNextPage(result, size, loaded) && page < lastPage {
				lastPage = page
			}
			return nil
		})
	}
	_ = g.Wait()

	// Pages fetched past the end are empty by definition.
	for page := range results {
		if page > lastPage {
			delete(results, page)
		}
	}

	p.logger.Debug().
		Str("query", q.Fingerprint()).
		Int("first", first).
		Int("requested", count).
		Int("fetched", len(results)).
		Dur("duration", time.Since(start)).
		Msg("Prefetch complete")

	if firstErr != nil {
		return results, fmt.Errorf("prefetch partial (%d/%d pages): %w", len(results), count, firstErr)
	}
	if err := ctx.Err(); err != nil {
		return results, err
	}
	return results, nil
}
