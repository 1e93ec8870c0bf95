package middleware

import (
	"net/http"
	"strings"

	goGuard "github.com/MrEthical07/goGuard"
	"github.com/MrEthical07/goGuard/jwt"
)

// TokenVerifier parses a signed access token. *jwt.Manager satisfies it.
type TokenVerifier interface {
	ParseAccess(token string) (*jwt.AccessClaims, error)
}

// Authenticate attaches the user named by a valid bearer token to the request
// context. Requests without an Authorization header pass through anonymous;
// a present but invalid token is rejected with 401.
func Authenticate(verifier TokenVerifier) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			header := r.Header.Get("Authorization")
			if header == "" || verifier == nil {
				next.ServeHTTP(w, r)
				return
			}

			token, ok := bearerToken(header)
			if !ok {
				writeError(w, r, http.StatusUnauthorized, "unauthorized", "")
				return
			}

			claims, err := verifier.ParseAccess(token)
			if err != nil {
				writeError(w, r, http.StatusUnauthorized, "unauthorized", "")
				return
			}

			ctx := goGuard.WithUser(r.Context(), goGuard.User{ID: claims.UID, Role: claims.Role})
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func bearerToken(value string) (string, bool) {
	const bearer = "Bearer "
	if len(value) < len(bearer) || !strings.EqualFold(value[:len(bearer)], bearer) {
		return "", false
	}

	token := strings.TrimSpace(value[len(bearer):])
	if token == "" {
		return "", false
	}

	return token, true
}
