package cache

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Sternrassler/storefront-feed/pkg/clock"
)

func TestMemoize_CyclicArgument(t *testing.T) {
	c := NewExpiring[string, string](Config{Name: t.Name(), MaxSize: 10, TTL: time.Minute, Clock: clock.NewFake(epoch)})

	type node struct {
		ID   string
		Next *node
	}
	ring := &node{ID: "a"}
	ring.Next = &node{ID: "b", Next: ring}

	calls := 0
	id := Memoize(c, func(n *node) string {
		calls++
		return n.ID
	}, nil)

	assert.Equal(t, "a", id(ring))
	assert.Equal(t, "a", id(ring))
	assert.Equal(t, 1, calls)
}

func TestMemoize_CallsOncePerKey(t *testing.T) {
	clk := clock.NewFake(epoch)
	c := NewExpiring[string, int](Config{Name: t.Name(), MaxSize: 10, TTL: time.Minute, Clock: clk})

	calls := 0
	square := Memoize(c, func(n int) int {
		calls++
		return n * n
	}, nil)

	assert.Equal(t, 9, square(3))
	assert.Equal(t, 9, square(3))
	assert.Equal(t, 16, square(4))
	assert.Equal(t, 2, calls)

	clk.Advance(2 * time.Minute)
	assert.Equal(t, 9, square(3))
	assert.Equal(t, 3, calls, "expired entry must be recomputed")
}

func TestMemoize_CustomKey(t *testing.T) {
	c := NewExpiring[string, string](Config{Name: t.Name(), MaxSize: 10, TTL: time.Minute})

	calls := 0
	upper := Memoize(c, func(s string) string {
		calls++
		return s + "!"
	}, func(s string) string { return "const" })

	assert.Equal(t, "a!", upper("a"))
	assert.Equal(t, "a!", upper("b"), "custom key maps every argument to one entry")
	assert.Equal(t, 1, calls)
}

func TestMemoize_EvictionRecomputes(t *testing.T) {
	c := NewExpiring[string, int](Config{Name: t.Name(), MaxSize: 1, TTL: time.Minute})

	calls := 0
	id := Memoize(c, func(n int) int {
		calls++
		return n
	}, nil)

	id(1)
	id(2) // evicts 1
	id(1)
	assert.Equal(t, 3, calls)
}

func TestMemoizeFetch_ErrorsNotCached(t *testing.T) {
	c := NewExpiring[string, string](Config{Name: t.Name(), MaxSize: 10, TTL: time.Minute})

	calls := 0
	fail := true
	fetch := MemoizeFetch(c, func(ctx context.Context, q string) (string, error) {
		calls++
		if fail {
			return "", errors.New("upstream down")
		}
		return "rows:" + q, nil
	}, nil)

	_, err := fetch(context.Background(), "lamp")
	require.Error(t, err)
	assert.Equal(t, 0, c.Len())

	fail = false
	v, err := fetch(context.Background(), "lamp")
	require.NoError(t, err)
	assert.Equal(t, "rows:lamp", v)

	v, err = fetch(context.Background(), "lamp")
	require.NoError(t, err)
	assert.Equal(t, "rows:lamp", v)
	assert.Equal(t, 2, calls)
}

func TestMemoizeFetch_CollapsesConcurrentMisses(t *testing.T) {
	c := NewExpiring[string, int](Config{Name: t.Name(), MaxSize: 10, TTL: time.Minute})

	var calls atomic.Int32
	release := make(chan struct{})
	fetch := MemoizeFetch(c, func(ctx context.Context, page int) (int, error) {
		calls.Add(1)
		<-release
		return page * 10, nil
	}, nil)

	const waiters = 8
	var wg sync.WaitGroup
	results := make([]int, waiters)
	for i := 0; i < waiters; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			v, err := fetch(context.Background(), 2)
			assert.NoError(t, err)
			results[i] = v
		}(i)
	}

	// Give the goroutines time to pile up behind the first call.
	time.Sleep(50 * time.Millisecond)
	close(release)
	wg.Wait()

	assert.Equal(t, int32(1), calls.Load())
	for _, r := range results {
		assert.Equal(t, 20, r)
	}
}
