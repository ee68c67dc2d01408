package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

var (
	// ErrCacheMiss indicates the requested key was not found in the store.
	ErrCacheMiss = errors.New("cache miss")

	// ErrInvalidEntry indicates the stored entry is invalid or corrupted.
	ErrInvalidEntry = errors.New("invalid cache entry")
)

// StoredPage is a serialized page kept in the shared page store.
type StoredPage struct {
	// Data is the page payload as returned by the upstream.
	Data json.RawMessage `json:"data"`

	// StoredAt is when the page was written.
	StoredAt time.Time `json:"stored_at"`

	// Expires is when the page becomes stale.
	Expires time.Time `json:"expires"`
}

// IsExpired returns true if the page has expired at now.
func (p *StoredPage) IsExpired(now time.Time) bool {
	return now.After(p.Expires)
}

// PageStore keeps serialized pages in Redis so several processes can share
// upstream results.
type PageStore struct {
	redis *redis.Client
	ttl   time.Duration
	now   func() time.Time
}

// NewPageStore creates a PageStore. A non-positive ttl uses DefaultTTL.
func NewPageStore(redisClient *redis.Client, ttl time.Duration) *PageStore {
	if redisClient == nil {
		panic("redis client cannot be nil")
	}
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &PageStore{
		redis: redisClient,
		ttl:   ttl,
		now:   time.Now,
	}
}

// TTL returns the lifetime applied to stored pages.
func (s *PageStore) TTL() time.Duration {
	return s.ttl
}

// Get retrieves a page by key.
// Returns ErrCacheMiss if the key doesn't exist or the page is expired.
func (s *PageStore) Get(ctx context.Context, key Key) (*StoredPage, error) {
	storeKey := key.String()

	data, err := s.redis.Get(ctx, storeKey).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			PageStoreOperations.WithLabelValues("get", "miss").Inc()
			return nil, ErrCacheMiss
		}
		PageStoreOperations.WithLabelValues("get", "error").Inc()
		return nil, fmt.Errorf("redis get: %w", err)
	}

	var page StoredPage
	if err := json.Unmarshal(data, &page); err != nil {
		PageStoreOperations.WithLabelValues("get", "error").Inc()
		return nil, fmt.Errorf("%w: %v", ErrInvalidEntry, err)
	}

	// Redis expiry has second granularity; check our own timestamp too.
	if page.IsExpired(s.now()) {
		_ = s.Delete(ctx, key)
		PageStoreOperations.WithLabelValues("get", "miss").Inc()
		return nil, ErrCacheMiss
	}

	PageStoreOperations.WithLabelValues("get", "hit").Inc()
	return &page, nil
}

// Set stores a page payload under key with the store's TTL.
func (s *PageStore) Set(ctx context.Context, key Key, data []byte) error {
	if len(data) == 0 {
		return fmt.Errorf("page data cannot be empty")
	}

	now := s.now()
	page := StoredPage{
		Data:     json.RawMessage(data),
		StoredAt: now,
		Expires:  now.Add(s.ttl),
	}

	encoded, err := json.Marshal(page)
	if err != nil {
		PageStoreOperations.WithLabelValues("set", "error").Inc()
		return fmt.Errorf("marshal page: %w", err)
	}

	if err := s.redis.Set(ctx, key.String(), encoded, s.ttl).Err(); err != nil {
		PageStoreOperations.WithLabelValues("set", "error").Inc()
		return fmt.Errorf("redis set: %w", err)
	}

	PageStoreOperations.WithLabelValues("set", "ok").Inc()
	return nil
}

// Delete removes a page.
func (s *PageStore) Delete(ctx context.Context, key Key) error {
	if err := s.redis.Del(ctx, key.String()).Err(); err != nil {
		PageStoreOperations.WithLabelValues("delete", "error").Inc()
		return fmt.Errorf("redis del: %w", err)
	}

	PageStoreOperations.WithLabelValues("delete", "ok").Inc()
	return nil
}
