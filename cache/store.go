package cache

import (
	"context"
	"errors"
	"strings"
	"time"
)

var (
	// ErrNotFound is returned by Get when the key is absent or expired.
	ErrNotFound = errors.New("cache key not found")
	// ErrUnavailable wraps backend faults (network, driver, serialization).
	ErrUnavailable = errors.New("cache backend unavailable")
	// ErrInvalidPattern is returned for patterns with a wildcard anywhere but the end.
	ErrInvalidPattern = errors.New("invalid cache key pattern")
)

// Store is the keyed cache consumed by the guards.
type Store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
	Flush(ctx context.Context, pattern string) error
	Keys(ctx context.Context, pattern string) ([]string, error)
}

// ParsePattern splits a key pattern into its literal prefix and whether it
// ends in a wildcard. "csrf:*" yields ("csrf:", true); "csrf:abc" yields
// ("csrf:abc", false).
func ParsePattern(pattern string) (string, bool, error) {
	if pattern == "" {
		return "", false, ErrInvalidPattern
	}

	wildcard := strings.HasSuffix(pattern, "*")
	literal := pattern
	if wildcard {
		literal = pattern[:len(pattern)-1]
	}
	if strings.ContainsAny(literal, "*?[") {
		return "", false, ErrInvalidPattern
	}

	return literal, wildcard, nil
}

// Match reports whether key satisfies pattern. Invalid patterns never match.
func Match(pattern, key string) bool {
	literal, wildcard, err := ParsePattern(pattern)
	if err != nil {
		return false
	}
	if wildcard {
		return strings.HasPrefix(key, literal)
	}
	return key == literal
}
