// Package goGuard provides request admission control for HTTP services:
// anti-forgery (CSRF) tokens bound to a requester, and fixed-window rate
// limiting keyed by client address or user id. Both guards persist to a
// pluggable keyed cache (in-memory, Redis or PostgreSQL).
//
// Engine methods are safe to call from multiple goroutines once an Engine is
// obtained from [Builder.Build].
//
// # Architecture boundaries
//
// goGuard is the public surface: [Engine], [Builder], [Config] and value types
// such as [Requester], [CSRFToken] and [RateLimitDecision]. Token records,
// window encoding, client address resolution and audit dispatch live under
// internal/.
//
// # Failure policy
//
// When the cache fails during a check, [FailClosed] rejects the request with
// [ErrBackendUnavailable] and [FailOpen] admits it and counts
// [MetricFailOpen]. Issuing and clearing always surface the error.
package goGuard
