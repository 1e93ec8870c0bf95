// Package middleware adapts goGuard.Engine checks to net/http handlers.
//
//   - [RateLimit] rejects with 429 and retry guidance.
//   - [CSRF] rejects state-changing requests without a valid token with 403.
//   - [Authenticate] resolves an optional bearer token into a goGuard.User.
//   - [RequireUser] rejects anonymous requests with 401.
//   - [CSRFTokenHandler] issues a token for the current requester.
//
// Cache faults under the fail-closed policy become 503. Response bodies are
// JSON written with go-chi/render.
//
// This package translates HTTP semantics into Engine calls and holds no
// admission logic of its own.
package middleware
