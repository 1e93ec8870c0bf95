package rate

import (
	"errors"
	"fmt"
	"time"
)

var (
	// ErrRateLimited marks a request that exceeded its window budget.
	ErrRateLimited = errors.New("rate limited")
	// ErrBackendUnavailable wraps cache faults seen while counting.
	ErrBackendUnavailable = errors.New("rate limit backend unavailable")
	// ErrInvalidLimit rejects non-positive budgets or sub-second windows.
	ErrInvalidLimit = errors.New("invalid rate limit")
)

// ExceededError carries retry guidance for a rejected request.
// It unwraps to ErrRateLimited.
type ExceededError struct {
	Identifier string
	Limit      int
	Window     time.Duration
	ResetAt    time.Time
	RetryAfter time.Duration
}

func (e *ExceededError) Error() string {
	return fmt.Sprintf("rate limited: %d requests per %s exceeded, retry after %ds",
		e.Limit, e.Window, e.RetryAfterSeconds())
}

func (e *ExceededError) Unwrap() error {
	return ErrRateLimited
}

// RetryAfterSeconds rounds RetryAfter up to whole seconds. A non-positive
// value means the window has already closed and the caller may retry now.
func (e *ExceededError) RetryAfterSeconds() int {
	if e == nil {
		return 0
	}
	return ceilSeconds(e.RetryAfter)
}

// WindowSeconds reports the window length in whole seconds.
func (e *ExceededError) WindowSeconds() int {
	if e == nil {
		return 0
	}
	return int(e.Window / time.Second)
}

func ceilSeconds(d time.Duration) int {
	if d <= 0 {
		return int(d / time.Second)
	}
	return int((d + time.Second - 1) / time.Second)
}
