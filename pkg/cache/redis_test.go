package cache

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
)

// setupTestRedis connects to a local Redis on DB 15 and skips the test when
// none is running. The integration build tag runs the same checks against
// a container.
func setupTestRedis(t *testing.T) *redis.Client {
	t.Helper()

	client := redis.NewClient(&redis.Options{
		Addr: "localhost:6379",
		DB:   15,
	})

	ctx := context.Background()
	if err := client.Ping(ctx).Err(); err != nil {
		t.Skipf("Redis not available for testing: %v", err)
	}

	if err := client.FlushDB(ctx).Err(); err != nil {
		t.Fatalf("Failed to flush test DB: %v", err)
	}

	t.Cleanup(func() {
		client.FlushDB(context.Background())
		client.Close()
	})

	return client
}

func TestNewPageStore_Panic(t *testing.T) {
	defer func() {
		if r := recover(); r == nil {
			t.Error("NewPageStore should panic with nil redis client")
		}
	}()
	NewPageStore(nil, time.Minute)
}

func TestNewPageStore_DefaultTTL(t *testing.T) {
	client := redis.NewClient(&redis.Options{Addr: "localhost:6379"})
	defer client.Close()

	store := NewPageStore(client, 0)
	if store.TTL() != DefaultTTL {
		t.Errorf("TTL() = %v, want %v", store.TTL(), DefaultTTL)
	}
}

func TestStoredPage_IsExpired(t *testing.T) {
	page := &StoredPage{Expires: epoch}

	if page.IsExpired(epoch) {
		t.Error("page is valid up to and including Expires")
	}
	if !page.IsExpired(epoch.Add(time.Millisecond)) {
		t.Error("page past Expires should be expired")
	}
}

func TestPageStore_SetAndGet(t *testing.T) {
	runPageStoreSetAndGet(t, setupTestRedis(t))
}

func TestPageStore_Miss(t *testing.T) {
	runPageStoreMiss(t, setupTestRedis(t))
}

func TestPageStore_Delete(t *testing.T) {
	runPageStoreDelete(t, setupTestRedis(t))
}

func TestPageStore_ExpiredByTimestamp(t *testing.T) {
	client := setupTestRedis(t)
	store := NewPageStore(client, time.Minute)
	ctx := context.Background()
	key := Key{Namespace: "search/products/keyword", Params: map[string]string{"page": "1"}}

	if err := store.Set(ctx, key, []byte(`{"rows":[]}`)); err != nil {
		t.Fatalf("Set failed: %v", err)
	}

	store.now = func() time.Time { return time.Now().Add(2 * time.Minute) }
	if _, err := store.Get(ctx, key); !errors.Is(err, ErrCacheMiss) {
		t.Errorf("expected ErrCacheMiss for expired page, got %v", err)
	}
}

func TestPageStore_Set_EmptyData(t *testing.T) {
	client := redis.NewClient(&redis.Options{Addr: "localhost:6379"})
	defer client.Close()
	store := NewPageStore(client, time.Minute)

	if err := store.Set(context.Background(), Key{Namespace: "x"}, nil); err == nil {
		t.Error("Set with empty data should return error")
	}
}

func runPageStoreSetAndGet(t *testing.T, client *redis.Client) {
	t.Helper()
	store := NewPageStore(client, time.Minute)
	ctx := context.Background()

	key := Key{
		Namespace: "search/products/keyword",
		Params:    map[string]string{"q": "lamp", "page": "1", "size": "20"},
	}
	payload := []byte(`{"rows":[{"id":"p1"}],"total":1,"hasMore":false}`)

	if err := store.Set(ctx, key, payload); err != nil {
		t.Fatalf("Set failed: %v", err)
	}

	page, err := store.Get(ctx, key)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if string(page.Data) != string(payload) {
		t.Errorf("Data mismatch: got %s, want %s", page.Data, payload)
	}
	if page.Expires.Sub(page.StoredAt) != time.Minute {
		t.Errorf("Expires - StoredAt = %v, want 1m", page.Expires.Sub(page.StoredAt))
	}

	ttl, err := client.TTL(ctx, key.String()).Result()
	if err != nil {
		t.Fatalf("TTL failed: %v", err)
	}
	if ttl <= 0 || ttl > time.Minute {
		t.Errorf("redis TTL = %v, want (0, 1m]", ttl)
	}
}

func runPageStoreMiss(t *testing.T, client *redis.Client) {
	t.Helper()
	store := NewPageStore(client, time.Minute)

	_, err := store.Get(context.Background(), Key{Namespace: "nonexistent"})
	if !errors.Is(err, ErrCacheMiss) {
		t.Errorf("Expected ErrCacheMiss, got %v", err)
	}
}

func runPageStoreDelete(t *testing.T, client *redis.Client) {
	t.Helper()
	store := NewPageStore(client, time.Minute)
	ctx := context.Background()
	key := Key{Namespace: "search/booths/keyword", Params: map[string]string{"page": "3"}}

	if err := store.Set(ctx, key, []byte(`{"rows":[]}`)); err != nil {
		t.Fatalf("Set failed: %v", err)
	}
	if err := store.Delete(ctx, key); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	if _, err := store.Get(ctx, key); !errors.Is(err, ErrCacheMiss) {
		t.Errorf("Expected ErrCacheMiss after Delete, got %v", err)
	}
}
