package csrf

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/MrEthical07/goGuard/internal"
	"github.com/MrEthical07/goGuard/internal/stores"
)

const (
	DefaultLifetime = 2 * time.Hour
)

// Token is an issued token as handed to clients.
type Token struct {
	Value     string
	ExpiresAt time.Time
}

// Options configures a Guard.
type Options struct {
	Lifetime   time.Duration
	TokenBytes int
	Extractors []Extractor
	Now        func() time.Time
}

// Guard issues and validates CSRF tokens.
type Guard struct {
	store      *stores.CSRFTokenStore
	lifetime   time.Duration
	tokenBytes int
	extractors []Extractor
	now        func() time.Time
}

// NewGuard builds a Guard over store. Zero option fields take defaults.
func NewGuard(store *stores.CSRFTokenStore, opts Options) *Guard {
	g := &Guard{
		store:      store,
		lifetime:   opts.Lifetime,
		tokenBytes: opts.TokenBytes,
		extractors: opts.Extractors,
		now:        opts.Now,
	}
	if g.lifetime <= 0 {
		g.lifetime = DefaultLifetime
	}
	if g.tokenBytes < internal.MinTokenBytes {
		g.tokenBytes = internal.MinTokenBytes
	}
	if len(g.extractors) == 0 {
		g.extractors = DefaultExtractors(true)
	}
	if g.now == nil {
		g.now = time.Now
	}
	return g
}

// Lifetime returns how long issued tokens stay valid.
func (g *Guard) Lifetime() time.Duration {
	return g.lifetime
}

// Issue creates and stores a fresh token bound to identifier.
func (g *Guard) Issue(ctx context.Context, identifier string) (Token, error) {
	value, err := internal.NewToken(g.tokenBytes)
	if err != nil {
		return Token{}, fmt.Errorf("%w: %v", ErrTokenGeneration, err)
	}

	now := g.now()
	record := &stores.CSRFTokenRecord{
		Value:      value,
		Identifier: identifier,
		CreatedAt:  now,
		ExpiresAt:  now.Add(g.lifetime),
	}
	if err := g.store.Save(ctx, record, now); err != nil {
		return Token{}, fmt.Errorf("%w: %v", ErrBackendUnavailable, err)
	}

	return Token{Value: value, ExpiresAt: record.ExpiresAt}, nil
}

// Validate checks token against identifier. With singleUse a successful
// validation consumes the token.
func (g *Guard) Validate(ctx context.Context, token, identifier string, singleUse bool) error {
	if !internal.ValidTokenFormat(token) {
		return ErrTokenNotFound
	}

	record, err := g.store.Get(ctx, token)
	if err != nil {
		switch {
		case errors.Is(err, stores.ErrCSRFTokenNotFound):
			return ErrTokenNotFound
		case errors.Is(err, stores.ErrCSRFRecordCorrupt):
			_ = g.store.Delete(ctx, token)
			return ErrTokenNotFound
		default:
			return fmt.Errorf("%w: %v", ErrBackendUnavailable, err)
		}
	}

	now := g.now()
	if record.Expired(now) {
		if err := g.store.Delete(ctx, token); err != nil {
			return fmt.Errorf("%w: %v", ErrBackendUnavailable, err)
		}
		return ErrTokenExpired
	}

	if singleUse && record.Used {
		return ErrTokenAlreadyUsed
	}

	if record.Identifier != identifier {
		return ErrIdentifierMismatch
	}

	if singleUse {
		record.Used = true
		if err := g.store.Save(ctx, record, now); err != nil {
			return fmt.Errorf("%w: %v", ErrBackendUnavailable, err)
		}
	}
	return nil
}

// Check validates the token carried by r. Requests that do not change state
// always pass.
func (g *Guard) Check(r *http.Request, identifier string, singleUse bool) error {
	if !RequiresCheck(r.Method) {
		return nil
	}

	token := Extract(r, g.extractors)
	if token == "" {
		return ErrTokenMissing
	}
	return g.Validate(r.Context(), token, identifier, singleUse)
}

// Refresh invalidates oldToken when given and issues a replacement.
func (g *Guard) Refresh(ctx context.Context, identifier, oldToken string) (Token, error) {
	if oldToken != "" {
		if err := g.Invalidate(ctx, oldToken); err != nil {
			return Token{}, err
		}
	}
	return g.Issue(ctx, identifier)
}

// Invalidate deletes token. Unknown tokens are ignored.
func (g *Guard) Invalidate(ctx context.Context, token string) error {
	if !internal.ValidTokenFormat(token) {
		return nil
	}
	if err := g.store.Delete(ctx, token); err != nil {
		return fmt.Errorf("%w: %v", ErrBackendUnavailable, err)
	}
	return nil
}

// Clear deletes every token bound to identifier, or every token when
// identifier is empty. The count is -1 when everything was flushed.
func (g *Guard) Clear(ctx context.Context, identifier string) (int, error) {
	if identifier == "" {
		if err := g.store.DeleteAll(ctx); err != nil {
			return 0, fmt.Errorf("%w: %v", ErrBackendUnavailable, err)
		}
		return -1, nil
	}

	removed, err := g.store.DeleteWhere(ctx, func(r *stores.CSRFTokenRecord) bool {
		return r != nil && r.Identifier == identifier
	})
	if err != nil {
		return removed, fmt.Errorf("%w: %v", ErrBackendUnavailable, err)
	}
	return removed, nil
}

// Purge deletes expired and unreadable records and reports how many went.
func (g *Guard) Purge(ctx context.Context) (int, error) {
	now := g.now()
	removed, err := g.store.DeleteWhere(ctx, func(r *stores.CSRFTokenRecord) bool {
		return r.Expired(now)
	})
	if err != nil {
		return removed, fmt.Errorf("%w: %v", ErrBackendUnavailable, err)
	}
	return removed, nil
}
