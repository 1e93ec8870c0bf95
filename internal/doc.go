// Package internal contains helpers private to goGuard: token generation and
// requester identifier derivation.
//
// # Sub-packages
//
//   - audit: async event dispatch (Dispatcher + Sink implementations)
//   - clientip: ordered client address resolution
//   - csrf: anti-forgery token guard
//   - metrics: lock-free counters and latency histograms
//   - rate: fixed-window request counting
//   - stores: versioned CSRF token records over cache.Store
//
// # What this package must NOT do
//
//   - Export types that appear in the public goGuard API.
//   - Be imported by any package outside the goGuard module.
package internal
