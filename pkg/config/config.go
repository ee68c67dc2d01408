// Package config loads feed and service settings from the environment.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/go-ozzo/ozzo-validation/v4/is"

	"github.com/Sternrassler/storefront-feed/pkg/cache"
	"github.com/Sternrassler/storefront-feed/pkg/feed"
	"github.com/Sternrassler/storefront-feed/pkg/logging"
	"github.com/Sternrassler/storefront-feed/pkg/pagination"
	"github.com/Sternrassler/storefront-feed/pkg/viewport"
)

// Feed holds the infinite-scroll settings.
type Feed struct {
	// ThresholdPx triggers a load this many pixels before the end.
	ThresholdPx float64
	// PercentageThreshold triggers a load past this scroll percentage.
	PercentageThreshold float64
	// Enabled turns scroll-triggered loading on.
	Enabled            bool
	Debounce           time.Duration
	MinTriggerInterval time.Duration
	PageSize           int
	CacheMaxSize       int
	CacheTTL           time.Duration
}

// Config holds all settings.
type Config struct {
	Port        string
	RedisURL    string
	UpstreamURL string
	UserAgent   string
	LogLevel    string
	LogPretty   bool
	// PrefetchPages is how many pages after a requested one are warmed in
	// the background. Zero turns prefetching off.
	PrefetchPages int

	Feed Feed
}

// Default returns the default configuration.
func Default() Config {
	return Config{
		Port:          "8080",
		RedisURL:      "localhost:6379",
		UpstreamURL:   "http://localhost:9000",
		UserAgent:     "storefront-feed/0.1.0",
		LogLevel:      string(logging.LevelInfo),
		PrefetchPages: 2,
		Feed: Feed{
			ThresholdPx:         viewport.DefaultThreshold,
			PercentageThreshold: viewport.DefaultPercentageThreshold,
			Enabled:             true,
			Debounce:            viewport.DefaultDebounce,
			MinTriggerInterval:  viewport.DefaultMinTriggerInterval,
			PageSize:            pagination.DefaultConfig().PageSize,
			CacheMaxSize:        cache.DefaultMaxSize,
			CacheTTL:            cache.DefaultTTL,
		},
	}
}

// Load reads the configuration from the environment on top of Default and
// validates it.
func Load() (Config, error) {
	return load(os.Getenv)
}

func load(getenv func(string) string) (Config, error) {
	cfg := Default()
	env := envReader{getenv: getenv}

	cfg.Port = env.str("PORT", cfg.Port)
	cfg.RedisURL = env.str("REDIS_URL", cfg.RedisURL)
	cfg.UpstreamURL = env.str("UPSTREAM_URL", cfg.UpstreamURL)
	cfg.UserAgent = env.str("USER_AGENT", cfg.UserAgent)
	cfg.LogLevel = env.str("LOG_LEVEL", cfg.LogLevel)
	cfg.LogPretty = env.boolean("LOG_PRETTY", cfg.LogPretty)
	cfg.PrefetchPages = env.integer("PREFETCH_PAGES", cfg.PrefetchPages)

	cfg.Feed.ThresholdPx = env.float("FEED_THRESHOLD_PX", cfg.Feed.ThresholdPx)
	cfg.Feed.PercentageThreshold = env.float("FEED_PERCENTAGE_THRESHOLD", cfg.Feed.PercentageThreshold)
	cfg.Feed.Enabled = env.boolean("FEED_ENABLED", cfg.Feed.Enabled)
	cfg.Feed.Debounce = env.duration("FEED_DEBOUNCE", cfg.Feed.Debounce)
	cfg.Feed.MinTriggerInterval = env.duration("FEED_MIN_TRIGGER_INTERVAL", cfg.Feed.MinTriggerInterval)
	cfg.Feed.PageSize = env.integer("FEED_PAGE_SIZE", cfg.Feed.PageSize)
	cfg.Feed.CacheMaxSize = env.integer("FEED_CACHE_MAX_SIZE", cfg.Feed.CacheMaxSize)
	cfg.Feed.CacheTTL = env.duration("FEED_CACHE_TTL", cfg.Feed.CacheTTL)

	if env.err != nil {
		return Config{}, env.err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// Validate checks that every setting is usable.
func (c Config) Validate() error {
	return validation.ValidateStruct(&c,
		validation.Field(&c.Port, validation.Required, is.Port),
		validation.Field(&c.RedisURL, validation.Required),
		validation.Field(&c.UpstreamURL, validation.Required, is.URL),
		validation.Field(&c.UserAgent, validation.Required),
		validation.Field(&c.LogLevel, validation.In(
			string(logging.LevelDebug),
			string(logging.LevelInfo),
			string(logging.LevelWarn),
			string(logging.LevelError),
			string(logging.LevelDisabled),
		)),
		validation.Field(&c.PrefetchPages, validation.Min(0), validation.Max(10)),
		validation.Field(&c.Feed),
	)
}

// Validate checks the feed settings.
func (f Feed) Validate() error {
	return validation.ValidateStruct(&f,
		validation.Field(&f.ThresholdPx, validation.Required, validation.Min(0.0)),
		validation.Field(&f.PercentageThreshold, validation.Required, validation.Min(0.0), validation.Max(100.0)),
		validation.Field(&f.Debounce, validation.Required, validation.Min(time.Millisecond)),
		validation.Field(&f.MinTriggerInterval, validation.Required, validation.Min(time.Millisecond)),
		validation.Field(&f.PageSize, validation.Required, validation.Min(1), validation.Max(200)),
		validation.Field(&f.CacheMaxSize, validation.Required, validation.Min(1)),
		validation.Field(&f.CacheTTL, validation.Required, validation.Min(time.Second)),
	)
}

// Logging returns the logger configuration.
func (c Config) Logging() logging.Config {
	cfg := logging.DefaultConfig()
	cfg.Level = logging.LogLevel(c.LogLevel)
	cfg.Pretty = c.LogPretty
	cfg.Service = "storefront-feed"
	return cfg
}

// Viewport returns the scroll trigger configuration.
func (c Config) Viewport() viewport.Config {
	cfg := viewport.DefaultConfig()
	cfg.Threshold = c.Feed.ThresholdPx
	cfg.PercentageThreshold = c.Feed.PercentageThreshold
	cfg.Debounce = c.Feed.Debounce
	cfg.MinTriggerInterval = c.Feed.MinTriggerInterval
	cfg.Disabled = !c.Feed.Enabled
	return cfg
}

// Pagination returns the accumulator configuration.
func (c Config) Pagination() pagination.Config {
	cfg := pagination.DefaultConfig()
	cfg.PageSize = c.Feed.PageSize
	return cfg
}

// Session returns the feed session configuration: scroll trigger and
// pagination settings on top of the default render window.
func (c Config) Session() feed.Config {
	cfg := feed.DefaultConfig()
	cfg.Viewport = c.Viewport()
	cfg.Pagination = c.Pagination()
	return cfg
}

// Cache returns the configuration of a named page cache.
func (c Config) Cache(name string) cache.Config {
	cfg := cache.DefaultConfig(name)
	cfg.MaxSize = c.Feed.CacheMaxSize
	cfg.TTL = c.Feed.CacheTTL
	return cfg
}

// envReader parses variables and keeps the first parse error.
type envReader struct {
	getenv func(string) string
	err    error
}

func (r *envReader) str(key, def string) string {
	if v := r.getenv(key); v != "" {
		return v
	}
	return def
}

func (r *envReader) integer(key string, def int) int {
	v := r.getenv(key)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		r.fail(key, v, err)
		return def
	}
	return n
}

func (r *envReader) float(key string, def float64) float64 {
	v := r.getenv(key)
	if v == "" {
		return def
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		r.fail(key, v, err)
		return def
	}
	return f
}

func (r *envReader) boolean(key string, def bool) bool {
	v := r.getenv(key)
	if v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		r.fail(key, v, err)
		return def
	}
	return b
}

// duration accepts Go duration strings ("250ms") or plain milliseconds.
func (r *envReader) duration(key string, def time.Duration) time.Duration {
	v := r.getenv(key)
	if v == "" {
		return def
	}
	if ms, err := strconv.Atoi(v); err == nil {
		return time.Duration(ms) * time.Millisecond
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		r.fail(key, v, err)
		return def
	}
	return d
}

func (r *envReader) fail(key, value string, err error) {
	if r.err == nil {
		r.err = fmt.Errorf("parse %s=%q: %w", key, value, err)
	}
}
