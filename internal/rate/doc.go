// Package rate implements the fixed-window request counter used for request
// admission, on top of the cache.Store contract.
//
// # Window semantics
//
// One record per identifier under "<prefix>:<identifier>". The first request
// opens a window of the configured length; later requests increment the count
// and re-store the record with the TTL that is left until the window closes
// (never less than one second, so a backend never sees a zero TTL that it would
// read as "no expiry"). A record whose reset time has passed is treated as
// absent even if the backend has not evicted it yet.
//
// # Concurrency
//
// Counting is get-then-set. Two simultaneous requests for the same identifier
// can both observe count N and both write N+1. The counter is approximate by
// design; callers that need exact counting must use an atomic backend primitive.
//
// # What this package must NOT do
//
//   - Decide fail-open vs fail-closed. Backend faults are returned wrapped with
//     [ErrBackendUnavailable]; the engine applies the configured policy.
//   - Resolve client identities. Identifiers are supplied by the caller.
package rate
