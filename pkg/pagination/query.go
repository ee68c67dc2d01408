package pagination

import (
	"fmt"
	"strconv"

	"github.com/cespare/xxhash/v2"

	"github.com/Sternrassler/storefront-feed/pkg/cache"
)

// Kind is the entity kind being listed.
type Kind string

const (
	// KindProduct lists products.
	KindProduct Kind = "product"
	// KindBooth lists booths (seller storefronts).
	KindBooth Kind = "booth"
)

// Mode is the search mode.
type Mode string

const (
	// ModeKeyword searches by text.
	ModeKeyword Mode = "keyword"
	// ModeImage searches by image similarity.
	ModeImage Mode = "image"
)

// Source selects the fetcher for a (kind, mode) combination.
type Source struct {
	Kind Kind
	Mode Mode
}

// String returns "kind/mode".
func (s Source) String() string {
	return string(s.Kind) + "/" + string(s.Mode)
}

// Query is a query identity. Two queries share accumulated state only if
// they are equal.
type Query struct {
	Kind     Kind
	Mode     Mode
	Keyword  string
	ImageRef string
	Sort     string
	// ScopeID restricts results to a parent container such as a booth.
	ScopeID string
}

// Source returns the query's (kind, mode) pair.
func (q Query) Source() Source {
	return Source{Kind: q.Kind, Mode: q.Mode}
}

// Fingerprint returns a short stable identifier for logs and metrics.
func (q Query) Fingerprint() string {
	return fmt.Sprintf("%016x", xxhash.Sum64String(cache.SerializeKey(q)))
}

// PageKey returns the shared page store key for one page of the query.
func (q Query) PageKey(page, size int) cache.Key {
	return cache.Key{
		Namespace: "search/" + string(q.Kind) + "/" + string(q.Mode),
		Params: map[string]string{
			"q":     q.Keyword,
			"image": q.ImageRef,
			"sort":  q.Sort,
			"scope": q.ScopeID,
			"page":  strconv.Itoa(page),
			"size":  strconv.Itoa(size),
		},
	}
}
