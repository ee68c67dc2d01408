package cache

import (
	"container/list"
	"sync"
	"time"

	"github.com/Sternrassler/storefront-feed/pkg/clock"
)

const (
	// DefaultMaxSize is the default entry bound of an ExpiringCache.
	DefaultMaxSize = 100

	// DefaultTTL is the default entry lifetime of an ExpiringCache.
	DefaultTTL = 5 * time.Minute
)

// Config holds ExpiringCache configuration.
type Config struct {
	// Name labels the cache in metrics and logs.
	Name string

	// MaxSize bounds the number of entries (default: 100).
	MaxSize int

	// TTL is the maximum age of an entry returned by Get (default: 5m).
	TTL time.Duration

	// Clock supplies the current time (default: real time).
	Clock clock.Clock
}

// DefaultConfig returns the default cache configuration.
func DefaultConfig(name string) Config {
	return Config{
		Name:    name,
		MaxSize: DefaultMaxSize,
		TTL:     DefaultTTL,
	}
}

type item[K comparable, V any] struct {
	key   K
	entry Entry[V]
}

// ExpiringCache is a bounded, TTL-checked key/value store with FIFO
// eviction. It is safe for concurrent use.
type ExpiringCache[K comparable, V any] struct {
	mu      sync.Mutex
	name    string
	maxSize int
	ttl     time.Duration
	clk     clock.Clock

	entries map[K]*list.Element
	// order holds items oldest-inserted first.
	order *list.List
}

// NewExpiring creates an ExpiringCache. Non-positive MaxSize and TTL fall
// back to the defaults.
func NewExpiring[K comparable, V any](cfg Config) *ExpiringCache[K, V] {
	if cfg.MaxSize <= 0 {
		cfg.MaxSize = DefaultMaxSize
	}
	if cfg.TTL <= 0 {
		cfg.TTL = DefaultTTL
	}
	if cfg.Clock == nil {
		cfg.Clock = clock.Real()
	}
	if cfg.Name == "" {
		cfg.Name = "default"
	}

	return &ExpiringCache[K, V]{
		name:    cfg.Name,
		maxSize: cfg.MaxSize,
		ttl:     cfg.TTL,
		clk:     cfg.Clock,
		entries: make(map[K]*list.Element, cfg.MaxSize),
		order:   list.New(),
	}
}

// Get returns the value stored under key. An entry older than the TTL is
// deleted and reported as absent.
func (c *ExpiringCache[K, V]) Get(key K) (V, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	var zero V
	el, ok := c.entries[key]
	if !ok {
		CacheMisses.WithLabelValues(c.name).Inc()
		return zero, false
	}

	it := el.Value.(*item[K, V])
	if it.entry.Expired(c.clk.Now(), c.ttl) {
		c.removeElement(el)
		CacheEvictions.WithLabelValues(c.name, "expired").Inc()
		CacheMisses.WithLabelValues(c.name).Inc()
		return zero, false
	}

	CacheHits.WithLabelValues(c.name).Inc()
	return it.entry.Value, true
}

// Set stores value under key. Inserting a new key into a full cache first
// evicts the oldest-inserted entry.
func (c *ExpiringCache[K, V]) Set(key K, value V) {
	c.mu.Lock()
	defer c.mu.Unlock()

	entry := Entry[V]{Value: value, InsertedAt: c.clk.Now()}

	if el, ok := c.entries[key]; ok {
		// Overwrite keeps the original eviction position.
		el.Value.(*item[K, V]).entry = entry
		return
	}

	if len(c.entries) >= c.maxSize {
		if oldest := c.order.Front(); oldest != nil {
			c.removeElement(oldest)
			CacheEvictions.WithLabelValues(c.name, "capacity").Inc()
		}
	}

	c.entries[key] = c.order.PushBack(&item[K, V]{key: key, entry: entry})
	CacheEntries.WithLabelValues(c.name).Set(float64(len(c.entries)))
}

// Delete removes key and reports whether it was present.
func (c *ExpiringCache[K, V]) Delete(key K) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	el, ok := c.entries[key]
	if !ok {
		return false
	}
	c.removeElement(el)
	return true
}

// Clear removes all entries.
func (c *ExpiringCache[K, V]) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries = make(map[K]*list.Element, c.maxSize)
	c.order.Init()
	CacheEntries.WithLabelValues(c.name).Set(0)
}

// Len returns the number of stored entries, including expired entries
// that have not been looked up yet.
func (c *ExpiringCache[K, V]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// Name returns the cache's metric label.
func (c *ExpiringCache[K, V]) Name() string {
	return c.name
}

func (c *ExpiringCache[K, V]) removeElement(el *list.Element) {
	it := c.order.Remove(el).(*item[K, V])
	delete(c.entries, it.key)
	CacheEntries.WithLabelValues(c.name).Set(float64(len(c.entries)))
}
