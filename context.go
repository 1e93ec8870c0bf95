package goGuard

import (
	"context"

	"github.com/MrEthical07/goGuard/internal/clientip"
)

type userContextKey struct{}
type clientIPContextKey struct{}

// WithUser attaches the authenticated user to ctx. Both guards read it to
// scope their records to "user_<id>".
func WithUser(ctx context.Context, user User) context.Context {
	return context.WithValue(ctx, userContextKey{}, user)
}

// UserFromContext returns the user attached by WithUser.
func UserFromContext(ctx context.Context) (User, bool) {
	if ctx == nil {
		return User{}, false
	}
	user, ok := ctx.Value(userContextKey{}).(User)
	if !ok || user.ID == "" {
		return User{}, false
	}
	return user, true
}

// WithClientIP overrides the client address the engine would otherwise
// resolve from request headers. Values that are not IP addresses are ignored.
func WithClientIP(ctx context.Context, ip string) context.Context {
	return context.WithValue(ctx, clientIPContextKey{}, ip)
}

func clientIPFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}

	ip, _ := ctx.Value(clientIPContextKey{}).(string)
	return clientip.Parse(ip)
}
