package ratelimit

import (
	"sync"
	"time"

	"github.com/Sternrassler/storefront-feed/pkg/clock"
)

// Debouncer collapses bursts of calls into one trailing call. Each Call
// cancels the pending one and schedules fn delay later with the newest
// arguments.
type Debouncer[A any] struct {
	mu      sync.Mutex
	clk     clock.Clock
	delay   time.Duration
	fn      func(A)
	timer   clock.Timer
	pending bool
	args    A
	// gen invalidates callbacks whose timer lost a Stop race.
	gen uint64
}

// NewDebouncer creates a Debouncer around fn.
func NewDebouncer[A any](clk clock.Clock, delay time.Duration, fn func(A)) *Debouncer[A] {
	if clk == nil {
		clk = clock.Real()
	}
	return &Debouncer[A]{
		clk:   clk,
		delay: delay,
		fn:    fn,
	}
}

// Call schedules fn(args) after the delay, replacing any pending call.
func (d *Debouncer[A]) Call(args A) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.pending {
		d.timer.Stop()
		debounceSupersededTotal.Inc()
	}

	d.gen++
	gen := d.gen
	d.args = args
	d.pending = true
	d.timer = d.clk.AfterFunc(d.delay, func() { d.fire(gen) })
}

// Cancel drops the pending call, if any. It reports whether a call was pending.
func (d *Debouncer[A]) Cancel() bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	if !d.pending {
		return false
	}
	d.timer.Stop()
	d.gen++
	d.pending = false
	var zero A
	d.args = zero
	return true
}

// Pending reports whether a call is scheduled.
func (d *Debouncer[A]) Pending() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.pending
}

func (d *Debouncer[A]) fire(gen uint64) {
	d.mu.Lock()
	if !d.pending || gen != d.gen {
		d.mu.Unlock()
		return
	}
	args := d.args
	d.pending = false
	var zero A
	d.args = zero
	d.mu.Unlock()

	d.fn(args)
}
