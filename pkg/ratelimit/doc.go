// Package ratelimit implements the timing primitives that keep scroll and
// UI triggers from flooding the page fetcher: a trailing-edge Debouncer, a
// leading-edge Throttler, and a Gate enforcing a minimum interval between
// triggers.
//
// All primitives take a clock.Clock so they can be driven by clock.Fake in
// tests. They are safe for concurrent use.
package ratelimit
