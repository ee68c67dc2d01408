// Package viewport implements the infinite-scroll trigger.
//
// A Scheduler watches scroll events (or a sentinel intersecting the
// viewport) and calls a load-more callback when the user nears the end of
// the content:
//
//	sched := viewport.New(vp, acc.LoadMore, viewport.DefaultConfig())
//	sched.Mount()
//	defer sched.Detach()
//
//	// from the scroll handler
//	sched.OnScroll()
//
//	// from the accumulator's state updates
//	sched.SetFlags(state.HasNextPage, state.Loading())
//
// A check triggers when the remaining distance is within Threshold pixels
// or the scroll percentage reaches PercentageThreshold. Scroll checks are
// debounced, triggers are at least MinTriggerInterval apart, and nothing
// fires while disabled, fetching, or without further pages. Mounting and
// becoming ready again both schedule a frame-deferred check so short
// content keeps loading until it fills the viewport.
package viewport
