package cache

import (
	"context"

	"golang.org/x/sync/singleflight"
)

// Memoize wraps fn with c. The key is keyFn(arg), or SerializeKey(arg)
// when keyFn is nil. For a fixed key fn runs at most once while the entry
// is retained; fn must be pure for that to be meaningful.
func Memoize[A, R any](c *ExpiringCache[string, R], fn func(A) R, keyFn KeyFunc[A]) func(A) R {
	if keyFn == nil {
		keyFn = func(arg A) string { return SerializeKey(arg) }
	}

	return func(arg A) R {
		key := keyFn(arg)
		if v, ok := c.Get(key); ok {
			return v
		}

		v := fn(arg)
		c.Set(key, v)
		return v
	}
}

// FetchFunc is a fallible, context-aware function such as a page fetch.
type FetchFunc[A, R any] func(ctx context.Context, arg A) (R, error)

// MemoizeFetch wraps fn with c. Successful results are cached; errors are
// returned to every waiter but never stored. Concurrent misses for the same
// key share a single call to fn.
func MemoizeFetch[A, R any](c *ExpiringCache[string, R], fn FetchFunc[A, R], keyFn KeyFunc[A]) FetchFunc[A, R] {
	if keyFn == nil {
		keyFn = func(arg A) string { return SerializeKey(arg) }
	}
	var group singleflight.Group

	return func(ctx context.Context, arg A) (R, error) {
		key := keyFn(arg)
		if v, ok := c.Get(key); ok {
			return v, nil
		}

		v, err, _ := group.Do(key, func() (any, error) {
			// A waiter that lost the race to a finished call finds the
			// stored value here.
			if v, ok := c.Get(key); ok {
				return v, nil
			}
			r, err := fn(ctx, arg)
			if err != nil {
				return r, err
			}
			c.Set(key, r)
			return r, nil
		})
		if err != nil {
			var zero R
			return zero, err
		}
		r, _ := v.(R)
		return r, nil
	}
}
