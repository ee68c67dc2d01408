package cache

import (
	"fmt"
	"sort"
	"strings"
)

// Key identifies a cached page in the shared page store.
type Key struct {
	// Namespace groups keys of one source (e.g., "search/products/keyword").
	Namespace string

	// Params are the query parameters that select the page
	// (e.g., {"q": "lamp", "page": "2"}).
	Params map[string]string
}

// String generates a deterministic key string.
// Format: feed:namespace:param1=val1:param2=val2
//
// Example:
//
//	feed:search/products/keyword:page=2:q=lamp:size=20
func (k Key) String() string {
	parts := []string{"feed"}

	namespace := strings.Trim(k.Namespace, "/")
	if namespace != "" {
		parts = append(parts, namespace)
	}

	// Sorted for determinism; empty values are dropped so that an unset
	// filter and a missing filter share a key.
	if len(k.Params) > 0 {
		keys := make([]string, 0, len(k.Params))
		for key, value := range k.Params {
			if value == "" {
				continue
			}
			keys = append(keys, key)
		}
		sort.Strings(keys)

		for _, key := range keys {
			parts = append(parts, fmt.Sprintf("%s=%s", key, k.Params[key]))
		}
	}

	return strings.Join(parts, ":")
}
