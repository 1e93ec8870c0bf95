package middleware

import (
	"errors"
	"net/http"
	"strconv"

	goGuard "github.com/MrEthical07/goGuard"
)

// RateLimit counts every request against policy. Admitted requests carry
// X-RateLimit-* headers.
func RateLimit(engine *goGuard.Engine, policy goGuard.Policy) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if engine == nil {
				writeUnavailable(w, r)
				return
			}

			decision, err := engine.CheckPolicy(r, policy)
			if err != nil {
				var rlErr *goGuard.RateLimitError
				switch {
				case errors.As(err, &rlErr):
					writeRateLimited(w, r, rlErr)
				case errors.Is(err, goGuard.ErrBackendUnavailable):
					writeUnavailable(w, r)
				default:
					writeError(w, r, http.StatusInternalServerError, "internal error", "")
				}
				return
			}

			h := w.Header()
			h.Set("X-RateLimit-Limit", strconv.Itoa(decision.Limit))
			h.Set("X-RateLimit-Remaining", strconv.Itoa(decision.Remaining))
			if !decision.ResetAt.IsZero() {
				h.Set("X-RateLimit-Reset", strconv.FormatInt(decision.ResetAt.Unix(), 10))
			}
			next.ServeHTTP(w, r)
		})
	}
}

// Strict applies the engine's strict preset.
func Strict(engine *goGuard.Engine) func(http.Handler) http.Handler {
	return RateLimit(engine, engine.StrictPolicy())
}

func Standard(engine *goGuard.Engine) func(http.Handler) http.Handler {
	return RateLimit(engine, engine.StandardPolicy())
}

func Relaxed(engine *goGuard.Engine) func(http.Handler) http.Handler {
	return RateLimit(engine, engine.RelaxedPolicy())
}

// PerUser keys the window by the authenticated user. Place it after
// Authenticate.
func PerUser(engine *goGuard.Engine) func(http.Handler) http.Handler {
	return RateLimit(engine, engine.PerUserPolicy())
}
