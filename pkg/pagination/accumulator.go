package pagination

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/Sternrassler/storefront-feed/pkg/clock"
	"github.com/Sternrassler/storefront-feed/pkg/logging"
	"github.com/Sternrassler/storefront-feed/pkg/ratelimit"
)

// Config holds accumulator configuration. Zero values take defaults.
type Config struct {
	// PageSize is the number of rows requested per page. Must be positive.
	PageSize int

	// FirstPage is the index of the first page (default: 1). Page indexes
	// start at 1 or above.
	FirstPage int

	// LoadMoreSpacing is the minimum time between two accepted LoadMore calls.
	LoadMoreSpacing time.Duration

	// DispatchDelay defers an accepted LoadMore before the fetch starts.
	DispatchDelay time.Duration

	// FilterDebounce delays refetches caused by SetSort and SetScope.
	FilterDebounce time.Duration

	// FetchTimeout bounds a single page fetch. Zero means no timeout.
	FetchTimeout time.Duration
}

// DefaultConfig returns the default accumulator configuration.
func DefaultConfig() Config {
	return Config{
		PageSize:        20,
		FirstPage:       1,
		LoadMoreSpacing: 500 * time.Millisecond,
		DispatchDelay:   100 * time.Millisecond,
		FilterDebounce:  300 * time.Millisecond,
	}
}

// withDefaults fills zero fields with their defaults. Negative durations
// turn the corresponding delay off.
func (c Config) withDefaults() Config {
	d := DefaultConfig()
	if c.PageSize <= 0 {
		c.PageSize = d.PageSize
	}
	if c.FirstPage <= 0 {
		c.FirstPage = d.FirstPage
	}
	c.LoadMoreSpacing = durationOrDefault(c.LoadMoreSpacing, d.LoadMoreSpacing)
	c.DispatchDelay = durationOrDefault(c.DispatchDelay, d.DispatchDelay)
	c.FilterDebounce = durationOrDefault(c.FilterDebounce, d.FilterDebounce)
	if c.FetchTimeout < 0 {
		c.FetchTimeout = 0
	}
	return c
}

func durationOrDefault(v, def time.Duration) time.Duration {
	switch {
	case v < 0:
		return 0
	case v == 0:
		return def
	default:
		return v
	}
}

// State is a snapshot of the accumulated results for one query.
type State[T any] struct {
	Query Query
	Items []T
	// Total is the backend's total from the most recent page.
	Total int
	// Page is the index of the last loaded page; valid when PagesLoaded > 0.
	Page             int
	PagesLoaded      int
	HasNextPage      bool
	IsLoadingInitial bool
	IsLoadingMore    bool
	// Err is the last fetch failure, cleared by the next successful page.
	Err error
	// Generation increases with every reset.
	Generation uint64
}

// Loading reports whether any fetch is in flight or scheduled.
func (s State[T]) Loading() bool {
	return s.IsLoadingInitial || s.IsLoadingMore
}

// Option configures an Accumulator.
type Option func(*options)

type options struct {
	clk    clock.Clock
	logger *zerolog.Logger
}

// WithClock sets the clock driving spacing, dispatch delay and debounce.
func WithClock(clk clock.Clock) Option {
	return func(o *options) { o.clk = clk }
}

// WithLogger sets the accumulator's logger.
func WithLogger(logger zerolog.Logger) Option {
	return func(o *options) { o.logger = &logger }
}

// Accumulator maintains the growing item sequence for the current query.
// It is safe for concurrent use. Subscribers are notified from a single
// goroutine, in order, with the latest state; intermediate states may be
// coalesced.
type Accumulator[T any] struct {
	mu      sync.Mutex
	cfg     Config
	clk     clock.Clock
	logger  zerolog.Logger
	fetcher PageFetcher[T]

	ctx    context.Context
	cancel context.CancelFunc

	state   State[T]
	started bool
	closed  bool
	// pending is the query that debounced filter changes build on.
	pending Query

	spacing  *ratelimit.Throttler[*loadRequest]
	filters  *ratelimit.Debouncer[Query]
	dispatch clock.Timer

	subs    map[int]func(State[T])
	nextSub int
	notify  chan struct{}
	done    chan struct{}
}

// New creates an Accumulator fetching through fetcher. No fetch happens
// until SetQuery.
func New[T any](fetcher PageFetcher[T], cfg Config, opts ...Option) *Accumulator[T] {
	o := options{clk: clock.Real()}
	for _, opt := range opts {
		opt(&o)
	}

	cfg = cfg.withDefaults()

	logger := logging.NewLogger("pagination")
	if o.logger != nil {
		logger = *o.logger
	}

	ctx, cancel := context.WithCancel(context.Background())
	a := &Accumulator[T]{
		cfg:     cfg,
		clk:     o.clk,
		logger:  logger,
		fetcher: fetcher,
		ctx:     ctx,
		cancel:  cancel,
		subs:    make(map[int]func(State[T])),
		notify:  make(chan struct{}, 1),
		done:    make(chan struct{}),
	}
	a.spacing = ratelimit.NewThrottler(a.clk, cfg.LoadMoreSpacing, a.acceptLoadMore)
	a.filters = ratelimit.NewDebouncer(a.clk, cfg.FilterDebounce, a.applyFilters)

	go a.run()
	return a
}

// Config returns the effective configuration.
func (a *Accumulator[T]) Config() Config {
	return a.cfg
}

// State returns a snapshot of the current state. Items is a copy.
func (a *Accumulator[T]) State() State[T] {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.snapshotLocked()
}

// Query returns the query filter changes are applied to, including changes
// still waiting for their debounce.
func (a *Accumulator[T]) Query() Query {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.pending
}

// SetQuery switches to q. A different query resets the state and fetches
// its first page immediately; responses for the previous query are dropped.
// Setting the current query again is a no-op. Pending SetSort/SetScope
// changes are discarded.
func (a *Accumulator[T]) SetQuery(q Query) {
	a.filters.Cancel()

	a.mu.Lock()
	if a.closed || (a.started && a.state.Query == q) {
		a.pending = a.state.Query
		a.mu.Unlock()
		return
	}
	a.resetLocked(q, "query")
	a.mu.Unlock()

	a.publish()
}

// SetSort changes the sort option after the filter debounce.
func (a *Accumulator[T]) SetSort(sort string) {
	a.updateFilters(func(q *Query) { q.Sort = sort })
}

// SetScope changes the scope filter after the filter debounce.
func (a *Accumulator[T]) SetScope(scopeID string) {
	a.updateFilters(func(q *Query) { q.ScopeID = scopeID })
}

// Refetch discards the accumulated state of the current query and fetches
// its first page again.
func (a *Accumulator[T]) Refetch() {
	a.filters.Cancel()

	a.mu.Lock()
	if a.closed || !a.started {
		a.mu.Unlock()
		return
	}
	a.resetLocked(a.state.Query, "refetch")
	a.mu.Unlock()

	a.publish()
}

// LoadMore requests the next page. It is a no-op while a page is loading,
// when no further pages exist, or within LoadMoreSpacing of the previous
// accepted call. It reports whether the request was accepted.
func (a *Accumulator[T]) LoadMore() bool {
	a.mu.Lock()
	ok := a.canLoadMoreLocked()
	gen := a.state.Generation
	a.mu.Unlock()

	if !ok {
		loadMoreSkippedTotal.WithLabelValues("guard").Inc()
		return false
	}
	return a.requestLoad(&loadRequest{gen: gen})
}

// requestLoad passes req through the spacing throttle. A request the
// throttle lets through but acceptLoadMore rejects, because a reset landed
// after the guard check, does not start a spacing window.
func (a *Accumulator[T]) requestLoad(req *loadRequest) bool {
	if !a.spacing.Call(req) {
		loadMoreSkippedTotal.WithLabelValues("spacing").Inc()
		return false
	}
	if !req.accepted {
		a.spacing.Reset()
		loadMoreSkippedTotal.WithLabelValues("guard").Inc()
	}
	return req.accepted
}

// loadRequest carries one LoadMore call through the spacing throttle.
type loadRequest struct {
	gen      uint64
	accepted bool
}

// Subscribe registers fn for state updates and returns a function that
// removes it. fn runs on the accumulator's notification goroutine and must
// not call Close.
func (a *Accumulator[T]) Subscribe(fn func(State[T])) (cancel func()) {
	a.mu.Lock()
	id := a.nextSub
	a.nextSub++
	a.subs[id] = fn
	a.mu.Unlock()

	a.publish()

	return func() {
		a.mu.Lock()
		delete(a.subs, id)
		a.mu.Unlock()
	}
}

// Close stops all timers, cancels in-flight fetches and stops notifying
// subscribers. Results arriving after Close are dropped.
func (a *Accumulator[T]) Close() {
	a.filters.Cancel()

	a.mu.Lock()
	if a.closed {
		a.mu.Unlock()
		return
	}
	a.closed = true
	a.stopDispatchLocked()
	close(a.notify)
	a.mu.Unlock()

	a.cancel()
	<-a.done
}

func (a *Accumulator[T]) updateFilters(change func(*Query)) {
	a.mu.Lock()
	if a.closed || !a.started {
		a.mu.Unlock()
		return
	}
	q := a.pending
	change(&q)
	a.pending = q
	a.mu.Unlock()

	a.filters.Call(q)
}

// applyFilters runs when the filter debounce settles.
func (a *Accumulator[T]) applyFilters(q Query) {
	a.mu.Lock()
	if a.closed || a.state.Query == q {
		a.mu.Unlock()
		return
	}
	a.resetLocked(q, "query")
	a.mu.Unlock()

	a.publish()
}

// resetLocked replaces the state with an empty one for q and starts the
// first page fetch.
func (a *Accumulator[T]) resetLocked(q Query, reason string) {
	a.stopDispatchLocked()
	a.spacing.Reset()

	gen := a.state.Generation + 1
	a.state = State[T]{
		Query:            q,
		HasNextPage:      true,
		IsLoadingInitial: true,
		Generation:       gen,
	}
	a.pending = q
	a.started = true

	queryResetsTotal.WithLabelValues(reason).Inc()
	a.logger.Info().
		Str("reason", reason).
		Str("kind", string(q.Kind)).
		Str("mode", string(q.Mode)).
		Str("query", q.Fingerprint()).
		Uint64("generation", gen).
		Msg("Query reset")

	go a.fetch(gen, q, a.cfg.FirstPage)
}

func (a *Accumulator[T]) canLoadMoreLocked() bool {
	return a.started && !a.closed &&
		a.state.HasNextPage &&
		!a.state.IsLoadingInitial &&
		!a.state.IsLoadingMore
}

// acceptLoadMore runs when a LoadMore call passes the spacing throttle.
func (a *Accumulator[T]) acceptLoadMore(req *loadRequest) {
	gen := req.gen
	a.mu.Lock()
	if a.state.Generation != gen || !a.canLoadMoreLocked() {
		a.mu.Unlock()
		return
	}
	req.accepted = true

	page := a.cfg.FirstPage + a.state.PagesLoaded
	q := a.state.Query
	a.state.IsLoadingMore = true
	a.dispatch = a.clk.AfterFunc(a.cfg.DispatchDelay, func() {
		a.dispatchLoad(gen, q, page)
	})
	a.mu.Unlock()

	a.logger.Debug().
		Str("query", q.Fingerprint()).
		Int("page", page).
		Msg("Load more accepted")
	a.publish()
}

func (a *Accumulator[T]) dispatchLoad(gen uint64, q Query, page int) {
	a.mu.Lock()
	if a.closed || a.state.Generation != gen {
		a.mu.Unlock()
		return
	}
	a.dispatch = nil
	a.mu.Unlock()

	go a.fetch(gen, q, page)
}

func (a *Accumulator[T]) stopDispatchLocked() {
	if a.dispatch != nil {
		a.dispatch.Stop()
		a.dispatch = nil
	}
}

// fetch calls the fetcher and applies the result if gen is still current.
func (a *Accumulator[T]) fetch(gen uint64, q Query, page int) {
	ctx := a.ctx
	if a.cfg.FetchTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, a.cfg.FetchTimeout)
		defer cancel()
	}

	start := time.Now()
	result, err := a.fetcher.FetchPage(ctx, page, a.cfg.PageSize, q)
	pageFetchDuration.WithLabelValues(string(q.Kind), string(q.Mode)).Observe(time.Since(start).Seconds())

	a.complete(gen, q, page, result, err)
}

func (a *Accumulator[T]) complete(gen uint64, q Query, page int, result Page[T], err error) {
	a.mu.Lock()
	if a.closed || a.state.Generation != gen {
		a.mu.Unlock()
		pagesFetchedTotal.WithLabelValues(string(q.Kind), string(q.Mode), "stale").Inc()
		a.logger.Debug().
			Str("query", q.Fingerprint()).
			Int("page", page).
			Uint64("generation", gen).
			Msg("Discarding stale page")
		return
	}

	a.state.IsLoadingInitial = false
	a.state.IsLoadingMore = false

	if err != nil {
		a.state.Err = &FetchError{Query: q, Page: page, Err: err}
		a.mu.Unlock()

		pagesFetchedTotal.WithLabelValues(string(q.Kind), string(q.Mode), "error").Inc()
		a.logger.Warn().
			Err(err).
			Str("kind", string(q.Kind)).
			Str("mode", string(q.Mode)).
			Int("page", page).
			Msg("Page fetch failed")
		a.publish()
		return
	}

	a.state.Items = append(a.state.Items, result.Rows...)
	a.state.Total = result.Total
	a.state.Page = page
	a.state.PagesLoaded++
	a.state.HasNextPage = hasNextPage(result, a.cfg.PageSize, len(a.state.Items))
	a.state.Err = nil
	items := len(a.state.Items)
	hasNext := a.state.HasNextPage
	a.mu.Unlock()

	pagesFetchedTotal.WithLabelValues(string(q.Kind), string(q.Mode), "ok").Inc()
	a.logger.Info().
		Str("kind", string(q.Kind)).
		Str("mode", string(q.Mode)).
		Int("page", page).
		Int("rows", len(result.Rows)).
		Int("items", items).
		Int("total", result.Total).
		Bool("has_more", hasNext).
		Msg("Page appended")
	a.publish()
}

func (a *Accumulator[T]) snapshotLocked() State[T] {
	s := a.state
	if a.state.Items != nil {
		s.Items = make([]T, len(a.state.Items))
		copy(s.Items, a.state.Items)
	}
	return s
}

// publish wakes the notification goroutine. Bursts coalesce into one
// delivery of the latest state.
func (a *Accumulator[T]) publish() {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.closed {
		return
	}
	select {
	case a.notify <- struct{}{}:
	default:
	}
}

func (a *Accumulator[T]) run() {
	defer close(a.done)

	for range a.notify {
		a.mu.Lock()
		snapshot := a.snapshotLocked()
		subs := make([]func(State[T]), 0, len(a.subs))
		for _, fn := range a.subs {
			subs = append(subs, fn)
		}
		a.mu.Unlock()

		for _, fn := range subs {
			fn(snapshot)
		}
	}
}
