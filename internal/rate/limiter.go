package rate

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/MrEthical07/goGuard/cache"
)

const (
	// DefaultPrefix namespaces window records in the cache.
	DefaultPrefix = "ratelimit"

	minTTL = time.Second
)

// Limit is a request budget per fixed window.
type Limit struct {
	MaxRequests int
	Window      time.Duration
}

// Validate rejects budgets that cannot be enforced.
func (l Limit) Validate() error {
	if l.MaxRequests <= 0 {
		return fmt.Errorf("%w: max requests must be > 0", ErrInvalidLimit)
	}
	if l.Window < time.Second {
		return fmt.Errorf("%w: window must be >= 1s", ErrInvalidLimit)
	}
	return nil
}

// Decision describes an admitted request.
type Decision struct {
	Identifier string
	Limit      int
	Count      int
	Remaining  int
	ResetAt    time.Time
}

// Status is a read-only view of an identifier's window.
// ResetAt is zero when no window is active.
type Status struct {
	Requests  int
	Remaining int
	ResetAt   time.Time
}

// Limiter counts requests per identifier in fixed windows.
type Limiter struct {
	store  cache.Store
	prefix string
	now    func() time.Time
}

// Option configures a Limiter.
type Option func(*Limiter)

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(l *Limiter) {
		if now != nil {
			l.now = now
		}
	}
}

// New creates a Limiter on store. An empty prefix selects DefaultPrefix.
func New(store cache.Store, prefix string, opts ...Option) *Limiter {
	if prefix == "" {
		prefix = DefaultPrefix
	}
	l := &Limiter{
		store:  store,
		prefix: prefix,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Key returns the cache key holding identifier's window.
func (l *Limiter) Key(identifier string) string {
	return l.prefix + ":" + identifier
}

// Check counts one request for identifier. It returns an *ExceededError when
// the window budget is spent.
func (l *Limiter) Check(ctx context.Context, identifier string, limit Limit) (Decision, error) {
	if err := limit.Validate(); err != nil {
		return Decision{}, err
	}

	key := l.Key(identifier)
	now := l.now()

	w, err := l.load(ctx, key)
	if err != nil {
		return Decision{}, err
	}

	if w == nil || !w.Open(now) {
		w = &Window{
			Identifier:   identifier,
			Count:        1,
			ResetAt:      now.Add(limit.Window),
			FirstRequest: now,
		}
		if err := l.save(ctx, key, w, limit.Window); err != nil {
			return Decision{}, err
		}
		return decisionFor(w, limit), nil
	}

	if w.Count >= limit.MaxRequests {
		return Decision{}, &ExceededError{
			Identifier: identifier,
			Limit:      limit.MaxRequests,
			Window:     limit.Window,
			ResetAt:    w.ResetAt,
			RetryAfter: w.ResetAt.Sub(now),
		}
	}

	w.Count++
	if err := l.save(ctx, key, w, remainingTTL(w.ResetAt, now)); err != nil {
		return Decision{}, err
	}
	return decisionFor(w, limit), nil
}

// Status inspects identifier's window without counting.
func (l *Limiter) Status(ctx context.Context, identifier string, maxRequests int) (Status, error) {
	if maxRequests < 0 {
		maxRequests = 0
	}

	w, err := l.load(ctx, l.Key(identifier))
	if err != nil {
		return Status{}, err
	}
	if w == nil || !w.Open(l.now()) {
		return Status{Requests: 0, Remaining: maxRequests}, nil
	}

	remaining := maxRequests - w.Count
	if remaining < 0 {
		remaining = 0
	}
	return Status{
		Requests:  w.Count,
		Remaining: remaining,
		ResetAt:   w.ResetAt,
	}, nil
}

// Clear deletes identifier's window, or every window when identifier is empty.
func (l *Limiter) Clear(ctx context.Context, identifier string) error {
	var err error
	if identifier == "" {
		err = l.store.Flush(ctx, l.prefix+":*")
	} else {
		err = l.store.Delete(ctx, l.Key(identifier))
	}
	if err != nil {
		return fmt.Errorf("%w: %v", ErrBackendUnavailable, err)
	}
	return nil
}

func (l *Limiter) load(ctx context.Context, key string) (*Window, error) {
	data, err := l.store.Get(ctx, key)
	if err != nil {
		if errors.Is(err, cache.ErrNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("%w: %v", ErrBackendUnavailable, err)
	}

	w, err := decodeWindow(data)
	if err != nil {
		// A record we cannot read is replaced by a fresh window.
		return nil, nil
	}
	return w, nil
}

func (l *Limiter) save(ctx context.Context, key string, w *Window, ttl time.Duration) error {
	data, err := encodeWindow(w)
	if err != nil {
		return err
	}
	if err := l.store.Set(ctx, key, data, ttl); err != nil {
		return fmt.Errorf("%w: %v", ErrBackendUnavailable, err)
	}
	return nil
}

func decisionFor(w *Window, limit Limit) Decision {
	return Decision{
		Identifier: w.Identifier,
		Limit:      limit.MaxRequests,
		Count:      w.Count,
		Remaining:  limit.MaxRequests - w.Count,
		ResetAt:    w.ResetAt,
	}
}

func remainingTTL(resetAt, now time.Time) time.Duration {
	ttl := time.Duration(ceilSeconds(resetAt.Sub(now))) * time.Second
	if ttl < minTTL {
		return minTTL
	}
	return ttl
}
