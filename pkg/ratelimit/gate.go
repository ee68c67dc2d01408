package ratelimit

import (
	"sync"
	"time"
)

// DefaultMinTriggerInterval is the minimum spacing between two scroll-driven
// load triggers.
const DefaultMinTriggerInterval = 1 * time.Second

// Gate enforces that no two triggers are recorded closer together than
// MinInterval, independent of any debounce in front of it.
type Gate struct {
	mu            sync.Mutex
	minInterval   time.Duration
	lastTriggerAt time.Time
	triggered     bool
}

// NewGate creates a Gate. A non-positive interval disables the cooldown.
func NewGate(minInterval time.Duration) *Gate {
	return &Gate{minInterval: minInterval}
}

// Ready reports whether a trigger at now would be allowed.
func (g *Gate) Ready(now time.Time) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.readyLocked(now)
}

// Allow records a trigger at now if the gate is ready and reports whether
// it did.
func (g *Gate) Allow(now time.Time) bool {
	g.mu.Lock()
	defer g.mu.Unlock()

	if !g.readyLocked(now) {
		return false
	}
	g.lastTriggerAt = now
	g.triggered = true
	return true
}

// LastTriggerAt returns the time of the last recorded trigger and whether
// one has been recorded.
func (g *Gate) LastTriggerAt() (time.Time, bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.lastTriggerAt, g.triggered
}

// Reset forgets the last trigger.
func (g *Gate) Reset() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.triggered = false
	g.lastTriggerAt = time.Time{}
}

func (g *Gate) readyLocked(now time.Time) bool {
	if !g.triggered || g.minInterval <= 0 {
		return true
	}
	return now.Sub(g.lastTriggerAt) >= g.minInterval
}
