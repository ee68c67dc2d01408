package ratelimit

import (
	"sync"
	"time"

	"github.com/Sternrassler/storefront-feed/pkg/clock"
)

// Throttler runs fn on the leading edge and drops every call that arrives
// within delay of the last executed call. Dropped calls are not queued.
type Throttler[A any] struct {
	mu      sync.Mutex
	clk     clock.Clock
	delay   time.Duration
	fn      func(A)
	lastRun time.Time
	everRan bool
}

// NewThrottler creates a Throttler around fn.
func NewThrottler[A any](clk clock.Clock, delay time.Duration, fn func(A)) *Throttler[A] {
	if clk == nil {
		clk = clock.Real()
	}
	return &Throttler[A]{
		clk:   clk,
		delay: delay,
		fn:    fn,
	}
}

// Call runs fn(args) if the suppression window has passed and reports
// whether it ran.
func (t *Throttler[A]) Call(args A) bool {
	t.mu.Lock()
	now := t.clk.Now()
	if t.everRan && now.Sub(t.lastRun) < t.delay {
		t.mu.Unlock()
		throttleDroppedTotal.Inc()
		return false
	}
	t.lastRun = now
	t.everRan = true
	t.mu.Unlock()

	t.fn(args)
	return true
}

// Reset clears the suppression window so the next call runs immediately.
func (t *Throttler[A]) Reset() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.everRan = false
	t.lastRun = time.Time{}
}
