package csrf

import "errors"

var (
	ErrTokenMissing       = errors.New("csrf token missing")
	ErrTokenNotFound      = errors.New("csrf token not found")
	ErrTokenExpired       = errors.New("csrf token expired")
	ErrTokenAlreadyUsed   = errors.New("csrf token already used")
	ErrIdentifierMismatch = errors.New("csrf token identifier mismatch")
	ErrBackendUnavailable = errors.New("csrf backend unavailable")
	ErrTokenGeneration    = errors.New("csrf token generation failed")
)

// IsRejection reports whether err is a token failure rather than a backend fault.
func IsRejection(err error) bool {
	return errors.Is(err, ErrTokenMissing) ||
		errors.Is(err, ErrTokenNotFound) ||
		errors.Is(err, ErrTokenExpired) ||
		errors.Is(err, ErrTokenAlreadyUsed) ||
		errors.Is(err, ErrIdentifierMismatch)
}
