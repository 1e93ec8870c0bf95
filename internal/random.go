package internal

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
)

// MinTokenBytes is the smallest amount of entropy accepted for a CSRF token.
const MinTokenBytes = 32

// NewToken returns size random bytes encoded as lowercase hex.
func NewToken(size int) (string, error) {
	if size < MinTokenBytes {
		return "", errors.New("token size below minimum")
	}

	raw := make([]byte, size)
	if _, err := rand.Read(raw); err != nil {
		return "", err
	}
	return hex.EncodeToString(raw), nil
}

// ValidTokenFormat reports whether token looks like a value NewToken could
// have produced. It lets callers skip a cache round trip for garbage input.
func ValidTokenFormat(token string) bool {
	if len(token) < 2*MinTokenBytes || len(token)%2 != 0 || len(token) > 1024 {
		return false
	}
	for i := 0; i < len(token); i++ {
		c := token[i]
		if (c < '0' || c > '9') && (c < 'a' || c > 'f') {
			return false
		}
	}
	return true
}
