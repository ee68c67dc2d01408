package cache

import (
	"time"
)

// Entry is a cached value together with the time it was stored.
type Entry[V any] struct {
	// Value is the cached value.
	Value V

	// InsertedAt is when the value was last set.
	InsertedAt time.Time
}

// Age returns how long ago the entry was stored.
func (e Entry[V]) Age(now time.Time) time.Duration {
	return now.Sub(e.InsertedAt)
}

// Expired reports whether the entry is older than ttl at now.
// An entry exactly ttl old is still valid.
func (e Entry[V]) Expired(now time.Time, ttl time.Duration) bool {
	return e.Age(now) > ttl
}
