// Package feed wires pagination, the scroll trigger, the virtual window and
// interaction telemetry into one infinite-scroll session.
//
// A Session is the unit a view binds to: it is told about searches, filter
// changes and scroll events, and it exposes the accumulated rows and the
// slice of them worth rendering.
package feed

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/rs/zerolog"

	"github.com/Sternrassler/storefront-feed/pkg/clock"
	"github.com/Sternrassler/storefront-feed/pkg/logging"
	"github.com/Sternrassler/storefront-feed/pkg/pagination"
	"github.com/Sternrassler/storefront-feed/pkg/telemetry"
	"github.com/Sternrassler/storefront-feed/pkg/viewport"
	"github.com/Sternrassler/storefront-feed/pkg/virtualscroll"
)

// ErrNoItem is returned by Click for an index outside the loaded rows.
var ErrNoItem = errors.New("no item at index")

// Config holds session configuration.
type Config struct {
	Pagination pagination.Config
	Viewport   viewport.Config
	Window     virtualscroll.Window
}

// DefaultConfig returns the default session configuration.
func DefaultConfig() Config {
	return Config{
		Pagination: pagination.DefaultConfig(),
		Viewport:   viewport.DefaultConfig(),
		Window: virtualscroll.Window{
			ItemHeight:      120,
			ContainerHeight: 800,
			Overscan:        5,
		},
	}
}

// Option configures a Session.
type Option func(*options)

type options struct {
	clk    clock.Clock
	logger *zerolog.Logger
	sink   telemetry.Sink
}

// WithClock sets the clock shared by the accumulator and the scheduler.
func WithClock(clk clock.Clock) Option {
	return func(o *options) { o.clk = clk }
}

// WithLogger sets the logger for the session and its components.
func WithLogger(logger zerolog.Logger) Option {
	return func(o *options) { o.logger = &logger }
}

// WithSink sets the telemetry sink for Click. Clicks are counted in
// feed_item_interactions_total whether or not sink is wrapped in
// telemetry.Counting, and never twice.
func WithSink(sink telemetry.Sink) Option {
	return func(o *options) { o.sink = sink }
}

// Session is one infinite-scroll feed.
type Session[T any] struct {
	cfg    Config
	clk    clock.Clock
	logger zerolog.Logger
	sink   telemetry.Sink
	itemID func(T) string

	acc         *pagination.Accumulator[T]
	unsubscribe func()
	schedOpts   []viewport.Option

	mu    sync.Mutex
	sched *viewport.Scheduler
}

// New creates a Session fetching through fetcher. itemID names a row in
// telemetry events.
func New[T any](fetcher pagination.PageFetcher[T], itemID func(T) string, cfg Config, opts ...Option) *Session[T] {
	o := options{clk: clock.Real()}
	for _, opt := range opts {
		opt(&o)
	}

	logger := logging.NewLogger("feed")
	if o.logger != nil {
		logger = *o.logger
	}
	if o.sink == nil {
		o.sink = telemetry.Nop()
	}
	if cfg.Window.ItemHeight <= 0 {
		cfg.Window = DefaultConfig().Window
	}

	accOpts := []pagination.Option{pagination.WithClock(o.clk)}
	schedOpts := []viewport.Option{viewport.WithClock(o.clk)}
	if o.logger != nil {
		accOpts = append(accOpts, pagination.WithLogger(logger))
		schedOpts = append(schedOpts, viewport.WithLogger(logger))
	}

	s := &Session[T]{
		cfg:       cfg,
		clk:       o.clk,
		logger:    logger,
		sink:      telemetry.Counting(o.sink),
		itemID:    itemID,
		acc:       pagination.New(fetcher, cfg.Pagination, accOpts...),
		schedOpts: schedOpts,
	}
	s.unsubscribe = s.acc.Subscribe(s.onState)
	return s
}

// Search starts a new query. Accumulated rows of the previous query are
// dropped immediately.
func (s *Session[T]) Search(q pagination.Query) {
	s.acc.SetQuery(q)
}

// SetSort changes the sort option of the current query after a debounce.
func (s *Session[T]) SetSort(sort string) {
	s.acc.SetSort(sort)
}

// SetScope restricts the current query to a parent container after a debounce.
func (s *Session[T]) SetScope(scopeID string) {
	s.acc.SetScope(scopeID)
}

// Refetch reloads the current query from its first page.
func (s *Session[T]) Refetch() {
	s.acc.Refetch()
}

// LoadMore requests the next page directly, bypassing the scroll trigger.
func (s *Session[T]) LoadMore() bool {
	return s.acc.LoadMore()
}

// Mount binds the session to a scroll container. A previously mounted
// container is detached first.
func (s *Session[T]) Mount(vp viewport.Viewport) {
	sched := viewport.New(vp, func() { s.acc.LoadMore() }, s.cfg.Viewport, s.schedOpts...)
	state := s.acc.State()
	sched.SetFlags(state.HasNextPage, state.Loading())

	s.mu.Lock()
	prev := s.sched
	s.sched = sched
	s.mu.Unlock()

	if prev != nil {
		prev.Detach()
	}
	sched.Mount()
}

// Detach unbinds the scroll container. No further loads are triggered by
// scrolling until the next Mount.
func (s *Session[T]) Detach() {
	s.mu.Lock()
	sched := s.sched
	s.sched = nil
	s.mu.Unlock()

	if sched != nil {
		sched.Detach()
	}
}

// Scroll reports a scroll event on the mounted container.
func (s *Session[T]) Scroll() {
	if sched := s.scheduler(); sched != nil {
		sched.OnScroll()
	}
}

// Intersect reports the end-of-list sentinel entering or leaving view.
func (s *Session[T]) Intersect(visible bool) {
	if sched := s.scheduler(); sched != nil {
		sched.OnIntersect(visible)
	}
}

// SetEnabled turns scroll-triggered loading on or off.
func (s *Session[T]) SetEnabled(enabled bool) {
	if sched := s.scheduler(); sched != nil {
		sched.SetEnabled(enabled)
	}
}

// Visible returns the render range at scrollTop and the rows inside it.
func (s *Session[T]) Visible(scrollTop float64) (virtualscroll.Range, []T) {
	items := s.acc.State().Items
	r := s.cfg.Window.Range(scrollTop, len(items))
	if r.Empty() {
		return r, nil
	}
	return r, items[r.Start : r.End+1]
}

// TotalHeight returns the scroll height of the loaded rows.
func (s *Session[T]) TotalHeight() float64 {
	return s.cfg.Window.TotalHeight(len(s.acc.State().Items))
}

// Click records an interaction with the row at index.
func (s *Session[T]) Click(ctx context.Context, index int, metadata map[string]string) error {
	state := s.acc.State()
	if index < 0 || index >= len(state.Items) {
		return fmt.Errorf("%w: %d of %d", ErrNoItem, index, len(state.Items))
	}

	id := s.itemID(state.Items[index])
	s.sink.Record(ctx, telemetry.NewEvent(string(state.Query.Kind), id, metadata, s.clk.Now()))
	return nil
}

// State returns a snapshot of the accumulated rows and flags.
func (s *Session[T]) State() pagination.State[T] {
	return s.acc.State()
}

// Subscribe registers fn for state updates. See pagination.Accumulator.Subscribe.
func (s *Session[T]) Subscribe(fn func(pagination.State[T])) (cancel func()) {
	return s.acc.Subscribe(fn)
}

// Close detaches the container and stops all fetching.
func (s *Session[T]) Close() {
	s.Detach()
	s.unsubscribe()
	s.acc.Close()
}

func (s *Session[T]) scheduler() *viewport.Scheduler {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sched
}

// onState forwards accumulator flags to the scroll trigger.
func (s *Session[T]) onState(state pagination.State[T]) {
	if sched := s.scheduler(); sched != nil {
		sched.SetFlags(state.HasNextPage, state.Loading())
	}
	s.logger.Debug().
		Int("items", len(state.Items)).
		Bool("has_next", state.HasNextPage).
		Bool("loading", state.Loading()).
		Msg("Feed state")
}
