package goGuard

import (
	"errors"

	"github.com/MrEthical07/goGuard/internal/csrf"
	"github.com/MrEthical07/goGuard/internal/rate"
)

var (
	// ErrCSRFTokenMissing means a state-changing request carried no token.
	ErrCSRFTokenMissing = csrf.ErrTokenMissing
	// ErrCSRFTokenNotFound means the token is unknown or malformed.
	ErrCSRFTokenNotFound = csrf.ErrTokenNotFound
	// ErrCSRFTokenExpired means the token outlived its lifetime. The record is deleted.
	ErrCSRFTokenExpired = csrf.ErrTokenExpired
	// ErrCSRFTokenAlreadyUsed means a single-use token was presented again.
	ErrCSRFTokenAlreadyUsed = csrf.ErrTokenAlreadyUsed
	// ErrCSRFIdentifierMismatch means the token was issued to another requester.
	ErrCSRFIdentifierMismatch = csrf.ErrIdentifierMismatch

	// ErrRateLimited is matched by every *RateLimitError.
	ErrRateLimited = rate.ErrRateLimited
	// ErrInvalidLimit rejects non-positive budgets or sub-second windows.
	ErrInvalidLimit = rate.ErrInvalidLimit

	ErrBackendUnavailable = errors.New("guard backend unavailable")
	ErrEngineNotReady     = errors.New("engine not initialized")
)

// RateLimitError carries retry guidance for a rejected request.
type RateLimitError = rate.ExceededError

// IsCSRFRejection reports whether err is a CSRF token failure, as opposed to a
// backend fault.
func IsCSRFRejection(err error) bool {
	return csrf.IsRejection(err)
}

func isGuardBackendError(err error) bool {
	return errors.Is(err, csrf.ErrBackendUnavailable) || errors.Is(err, rate.ErrBackendUnavailable)
}
