package viewport

import (
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/Sternrassler/storefront-feed/pkg/clock"
	"github.com/Sternrassler/storefront-feed/pkg/logging"
	"github.com/Sternrassler/storefront-feed/pkg/ratelimit"
)

// State is the scheduler's trigger state.
type State int

const (
	// Idle means no check is pending and no cooldown is active.
	Idle State = iota
	// ArmedWaitingDebounce means a scroll event is waiting for the debounce to settle.
	ArmedWaitingDebounce
	// Cooldown means a trigger fired less than MinTriggerInterval ago.
	Cooldown
)

// String returns the state name.
func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case ArmedWaitingDebounce:
		return "armed"
	case Cooldown:
		return "cooldown"
	default:
		return "unknown"
	}
}

// Option configures a Scheduler.
type Option func(*Scheduler)

// WithClock sets the clock driving debounce, cooldown and frame deferral.
func WithClock(clk clock.Clock) Option {
	return func(s *Scheduler) { s.clk = clk }
}

// WithLogger sets the scheduler's logger.
func WithLogger(logger zerolog.Logger) Option {
	return func(s *Scheduler) { s.logger = logger }
}

// Scheduler calls loadMore when the viewport nears the end of the content.
// Scroll events are debounced; triggers are spaced by MinTriggerInterval and
// suppressed while disabled, fetching, or out of pages.
type Scheduler struct {
	mu       sync.Mutex
	cfg      Config
	clk      clock.Clock
	logger   zerolog.Logger
	viewport Viewport
	loadMore func()

	debounce *ratelimit.Debouncer[struct{}]
	gate     *ratelimit.Gate
	frame    clock.Timer

	mounted  bool
	enabled  bool
	hasMore  bool
	fetching bool
}

// New creates a Scheduler reading samples from vp and calling loadMore.
// Zero config fields take their defaults. The scheduler is inert until Mount.
func New(vp Viewport, loadMore func(), cfg Config, opts ...Option) *Scheduler {
	s := &Scheduler{
		cfg:      cfg.withDefaults(),
		clk:      clock.Real(),
		logger:   logging.NewLogger("viewport"),
		viewport: vp,
		loadMore: loadMore,
		enabled:  !cfg.Disabled,
		hasMore:  true,
	}
	for _, opt := range opts {
		opt(s)
	}

	s.gate = ratelimit.NewGate(s.cfg.MinTriggerInterval)
	s.debounce = ratelimit.NewDebouncer(s.clk, s.cfg.Debounce, func(struct{}) {
		s.check("scroll")
	})
	return s
}

// Config returns the effective configuration.
func (s *Scheduler) Config() Config {
	return s.cfg
}

// Mount attaches the scheduler and schedules a frame-deferred check so a
// first page that does not fill the viewport still loads more.
func (s *Scheduler) Mount() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.mounted {
		return
	}
	s.mounted = true
	s.scheduleFrameLocked("mount")
}

// Detach stops all pending work. No trigger fires after Detach returns,
// except one whose check was already running.
func (s *Scheduler) Detach() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.mounted = false
	s.cancelLocked()
}

// OnScroll records a scroll event. The check runs once scrolling has been
// quiet for the debounce interval.
func (s *Scheduler) OnScroll() {
	s.mu.Lock()
	active := s.mounted && s.enabled
	s.mu.Unlock()

	if !active {
		return
	}
	s.debounce.Call(struct{}{})
}

// OnIntersect handles a sentinel element entering or leaving the viewport.
// Entering counts as reaching the end of the content; the proximity
// thresholds are skipped but all other guards apply.
func (s *Scheduler) OnIntersect(visible bool) {
	if !visible {
		return
	}
	s.evaluate("intersect", true)
}

// SetHasMore updates whether more pages exist.
func (s *Scheduler) SetHasMore(hasMore bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	wasReady := s.readyLocked()
	s.hasMore = hasMore
	s.onFlagsChangedLocked(wasReady)
}

// SetFetching updates whether a fetch is in flight.
func (s *Scheduler) SetFetching(fetching bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	wasReady := s.readyLocked()
	s.fetching = fetching
	s.onFlagsChangedLocked(wasReady)
}

// SetFlags updates hasMore and fetching together.
func (s *Scheduler) SetFlags(hasMore, fetching bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	wasReady := s.readyLocked()
	s.hasMore = hasMore
	s.fetching = fetching
	s.onFlagsChangedLocked(wasReady)
}

// SetEnabled turns triggering on or off. Disabling cancels pending checks.
func (s *Scheduler) SetEnabled(enabled bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.enabled == enabled {
		return
	}
	wasReady := s.readyLocked()
	s.enabled = enabled
	if !enabled {
		s.cancelLocked()
		return
	}
	s.onFlagsChangedLocked(wasReady)
}

// State reports the current trigger state.
func (s *Scheduler) State() State {
	if s.debounce.Pending() {
		return ArmedWaitingDebounce
	}
	if !s.gate.Ready(s.clk.Now()) {
		return Cooldown
	}
	return Idle
}

// LastTriggerAt returns the time of the last trigger, if any.
func (s *Scheduler) LastTriggerAt() (time.Time, bool) {
	return s.gate.LastTriggerAt()
}

func (s *Scheduler) readyLocked() bool {
	return s.mounted && s.enabled && s.hasMore && !s.fetching
}

// onFlagsChangedLocked schedules a frame-deferred check when the scheduler
// becomes ready, covering content that no longer fills the viewport after
// a page lands.
func (s *Scheduler) onFlagsChangedLocked(wasReady bool) {
	if !wasReady && s.readyLocked() {
		s.scheduleFrameLocked("ready")
	}
}

func (s *Scheduler) scheduleFrameLocked(reason string) {
	s.scheduleCheckLocked(s.cfg.FrameDelay, reason)
}

func (s *Scheduler) scheduleCheckLocked(delay time.Duration, reason string) {
	if s.frame != nil {
		s.frame.Stop()
	}
	s.frame = s.clk.AfterFunc(delay, func() {
		s.check(reason)
	})
}

func (s *Scheduler) cancelLocked() {
	s.debounce.Cancel()
	if s.frame != nil {
		s.frame.Stop()
		s.frame = nil
	}
}

func (s *Scheduler) check(reason string) {
	s.evaluate(reason, false)
}

// evaluate runs the trigger algorithm. loadMore is called without holding
// the scheduler lock.
func (s *Scheduler) evaluate(reason string, atBoundary bool) {
	s.mu.Lock()
	if !s.readyLocked() {
		s.mu.Unlock()
		return
	}

	now := s.clk.Now()
	if !s.gate.Ready(now) {
		// Re-check once the cooldown ends so a viewport left at the end
		// of the content still loads without another scroll event.
		last, _ := s.gate.LastTriggerAt()
		s.scheduleCheckLocked(last.Add(s.cfg.MinTriggerInterval).Sub(now), "cooldown")
		s.mu.Unlock()
		cooldownSkipsTotal.Inc()
		s.logger.Debug().Str("reason", reason).Msg("Trigger suppressed by cooldown")
		return
	}

	if !atBoundary {
		sample := s.viewport.Sample()
		if !ShouldTrigger(sample, s.cfg.Threshold, s.cfg.PercentageThreshold) {
			s.mu.Unlock()
			s.logger.Debug().
				Str("reason", reason).
				Float64("distance", sample.DistanceFromBottom()).
				Float64("percentage", sample.ScrollPercentage()).
				Msg("Viewport not near end")
			return
		}
	}

	s.gate.Allow(now)
	s.mu.Unlock()

	triggersTotal.WithLabelValues(reason).Inc()
	s.logger.Debug().Str("reason", reason).Msg("Load more triggered")
	s.loadMore()
}
