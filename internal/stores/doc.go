// Package stores persists short-lived CSRF token records on top of the
// cache.Store contract.
//
// # Design
//
// Each token is one versioned, binary-encoded record under "<prefix>:<token>"
// with a TTL equal to its remaining lifetime, so any backend with native
// expiry drops it on time. Marking a token used rewrites the record with the
// TTL that is left. Identifier-scoped operations scan the prefix and decode
// each record.
//
// # Architecture boundaries
//
// This package owns persistence only. It does NOT generate tokens, decide
// whether a token is valid for a requester, or log.
//
// # What this package must NOT do
//
//   - Import goGuard or any sibling internal package other than cache.
//   - Treat a missing record as a backend fault.
package stores
