package internal

import (
	"crypto/sha256"
	"encoding/hex"
)

// UserIdentifierPrefix marks identifiers derived from an authenticated user.
const UserIdentifierPrefix = "user_"

// FingerprintIdentifier derives the anonymous requester identifier from the
// client address and user agent.
func FingerprintIdentifier(ip, userAgent string) string {
	sum := sha256.Sum256([]byte(ip + userAgent))
	return hex.EncodeToString(sum[:])
}

// UserIdentifier derives the identifier of an authenticated user.
func UserIdentifier(userID string) string {
	return UserIdentifierPrefix + userID
}
