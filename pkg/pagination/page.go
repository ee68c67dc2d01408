package pagination

import (
	"context"
	"errors"
	"fmt"
)

// ErrUnknownSource is returned by Sources when no fetcher is registered
// for a query's (kind, mode).
var ErrUnknownSource = errors.New("no fetcher registered for source")

// Page is one fetched batch of rows.
type Page[T any] struct {
	Rows  []T `json:"rows"`
	Total int `json:"total"`
	// HasMore is the backend's own end-of-results flag, when it sends one.
	HasMore *bool `json:"hasMore,omitempty"`
}

// Bool returns a pointer to v, for building Page.HasMore.
func Bool(v bool) *bool {
	return &v
}

// PageFetcher fetches one page of a query. It must not retain or modify q.
type PageFetcher[T any] interface {
	FetchPage(ctx context.Context, page, size int, q Query) (Page[T], error)
}

// FetcherFunc adapts a function to the PageFetcher interface.
type FetcherFunc[T any] func(ctx context.Context, page, size int, q Query) (Page[T], error)

// FetchPage calls f.
func (f FetcherFunc[T]) FetchPage(ctx context.Context, page, size int, q Query) (Page[T], error) {
	return f(ctx, page, size, q)
}

// Sources routes each query to the fetcher registered for its (kind, mode).
type Sources[T any] map[Source]PageFetcher[T]

// FetchPage dispatches to the fetcher for q.Source().
func (s Sources[T]) FetchPage(ctx context.Context, page, size int, q Query) (Page[T], error) {
	fetcher, ok := s[q.Source()]
	if !ok {
		return Page[T]{}, fmt.Errorf("%w: %s", ErrUnknownSource, q.Source())
	}
	return fetcher.FetchPage(ctx, page, size, q)
}

// FetchError records a failed page fetch.
type FetchError struct {
	Query Query
	Page  int
	Err   error
}

// Error implements the error interface.
func (e *FetchError) Error() string {
	return fmt.Sprintf("fetch %s page %d: %v", e.Query.Source(), e.Page, e.Err)
}

// Unwrap implements error unwrapping for errors.Is/As.
func (e *FetchError) Unwrap() error {
	return e.Err
}

// hasNextPage decides whether another page exists after p. The backend's
// flag wins; otherwise an empty or short page ends the results, and a known
// total is compared with the number of loaded items.
func hasNextPage[T any](p Page[T], size, loaded int) bool {
	if p.HasMore != nil {
		return *p.HasMore
	}
	if len(p.Rows) == 0 || len(p.Rows) < size {
		return false
	}
	if p.Total > 0 {
		return loaded < p.Total
	}
	return true
}
