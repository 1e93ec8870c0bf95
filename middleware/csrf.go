package middleware

import (
	"errors"
	"net/http"

	goGuard "github.com/MrEthical07/goGuard"
)

// CSRF validates the token of POST, PUT, PATCH and DELETE requests. With
// singleUse each token admits one request.
func CSRF(engine *goGuard.Engine, singleUse bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if engine == nil {
				writeUnavailable(w, r)
				return
			}

			if err := engine.CheckCSRF(r, singleUse); err != nil {
				switch {
				case goGuard.IsCSRFRejection(err):
					writeError(w, r, http.StatusForbidden, csrfMessage(err), CodeCSRFTokenInvalid)
				case errors.Is(err, goGuard.ErrBackendUnavailable):
					writeUnavailable(w, r)
				default:
					writeError(w, r, http.StatusInternalServerError, "internal error", "")
				}
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// CSRFTokenHandler issues a token bound to the requester and returns it as
// {csrf_token, expires_in}.
func CSRFTokenHandler(engine *goGuard.Engine) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if engine == nil {
			writeUnavailable(w, r)
			return
		}

		tok, err := engine.IssueCSRFToken(r.Context(), engine.RequesterFromRequest(r))
		if err != nil {
			if errors.Is(err, goGuard.ErrBackendUnavailable) {
				writeUnavailable(w, r)
				return
			}
			writeError(w, r, http.StatusInternalServerError, "internal error", "")
			return
		}

		w.Header().Set("Cache-Control", "no-store")
		writeJSON(w, r, http.StatusOK, CSRFTokenResponse{
			CSRFToken: tok.Value,
			ExpiresIn: int(tok.ExpiresIn.Seconds()),
		})
	}
}
