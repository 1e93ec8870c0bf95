// Package csrf implements the anti-forgery token guard: issuance, validation,
// extraction from requests and administrative clearing.
//
// Tokens are bound to a requester identifier computed by the caller. Validation
// failures are reported in a fixed order: unknown token, expired token (the
// record is deleted), reused single-use token, identifier mismatch.
//
// Backend faults are returned wrapped with [ErrBackendUnavailable]; the engine
// decides whether they fail open or closed.
package csrf
