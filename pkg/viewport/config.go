package viewport

import "time"

// Defaults for the scroll trigger.
const (
	DefaultThreshold           = 200.0
	DefaultPercentageThreshold = 85.0
	DefaultDebounce            = 100 * time.Millisecond
	DefaultMinTriggerInterval  = 1 * time.Second
	// DefaultFrameDelay approximates one animation frame at 60Hz.
	DefaultFrameDelay = 16 * time.Millisecond
)

// Config holds scroll trigger configuration. Zero values take defaults.
type Config struct {
	// Threshold triggers when the bottom of the content is at most this
	// many pixels below the viewport.
	Threshold float64

	// PercentageThreshold triggers when at least this percentage of the
	// content has been scrolled through (0-100).
	PercentageThreshold float64

	// Debounce is the quiet period after the last scroll event before a check.
	Debounce time.Duration

	// MinTriggerInterval is the minimum spacing between two triggers.
	MinTriggerInterval time.Duration

	// FrameDelay defers the mount and readiness checks until layout settles.
	FrameDelay time.Duration

	// Disabled starts the scheduler switched off.
	Disabled bool
}

// DefaultConfig returns the default scroll trigger configuration.
func DefaultConfig() Config {
	return Config{
		Threshold:           DefaultThreshold,
		PercentageThreshold: DefaultPercentageThreshold,
		Debounce:            DefaultDebounce,
		MinTriggerInterval:  DefaultMinTriggerInterval,
		FrameDelay:          DefaultFrameDelay,
	}
}

func (c Config) withDefaults() Config {
	if c.Threshold <= 0 {
		c.Threshold = DefaultThreshold
	}
	if c.PercentageThreshold <= 0 || c.PercentageThreshold > 100 {
		c.PercentageThreshold = DefaultPercentageThreshold
	}
	if c.Debounce <= 0 {
		c.Debounce = DefaultDebounce
	}
	if c.MinTriggerInterval <= 0 {
		c.MinTriggerInterval = DefaultMinTriggerInterval
	}
	if c.FrameDelay <= 0 {
		c.FrameDelay = DefaultFrameDelay
	}
	return c
}
