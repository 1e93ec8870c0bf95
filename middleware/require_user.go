package middleware

import (
	"net/http"

	goGuard "github.com/MrEthical07/goGuard"
)

// RequireUser rejects requests that Authenticate left anonymous.
func RequireUser(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, ok := goGuard.UserFromContext(r.Context()); !ok {
			writeError(w, r, http.StatusUnauthorized, "unauthorized", "")
			return
		}
		next.ServeHTTP(w, r)
	})
}
