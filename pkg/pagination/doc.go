// Package pagination accumulates paged search results into one growing,
// ordered item sequence per query.
//
// A query identity is the entity kind (product, booth), search mode
// (keyword, image), keyword or image reference, sort option and scope
// filter. Each identity gets its own accumulated state; changing any part
// of it discards the old state and fetches the first page again.
//
// Example usage:
//
//	acc := pagination.New[Item](client, pagination.DefaultConfig())
//	defer acc.Close()
//
//	acc.SetQuery(pagination.Query{Kind: pagination.KindProduct, Mode: pagination.ModeKeyword, Keyword: "lamp"})
//	acc.Subscribe(func(s pagination.State[Item]) { render(s.Items) })
//
//	// from the scroll scheduler or a "load more" button
//	acc.LoadMore()
//
// The accumulator:
//   - Guards LoadMore against duplicate triggers (in-flight, no more pages,
//     minimum spacing) and defers the dispatch briefly so pending updates
//     settle before the next page is requested
//   - Debounces sort and scope changes before refetching
//   - Drops responses that arrive for a superseded query
//   - Records fetch failures as state; loading flags are always cleared
//
// Prefetcher warms a range of pages concurrently, typically through a
// memoized fetcher so later LoadMore calls are served from cache.
package pagination
