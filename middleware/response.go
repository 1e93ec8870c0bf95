package middleware

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/go-chi/render"

	goGuard "github.com/MrEthical07/goGuard"
)

// CodeCSRFTokenInvalid is the code carried by every CSRF rejection body.
const CodeCSRFTokenInvalid = "CSRF_TOKEN_INVALID"

// ErrorResponse is the body of 401, 403 and 503 responses.
type ErrorResponse struct {
	Error   bool   `json:"error"`
	Message string `json:"message"`
	Code    string `json:"code,omitempty"`
}

// RateLimitResponse is the body of 429 responses. RetryAfter and Window are
// whole seconds.
type RateLimitResponse struct {
	Error      bool   `json:"error"`
	Message    string `json:"message"`
	RetryAfter int    `json:"retry_after"`
	Limit      int    `json:"limit"`
	Window     int    `json:"window"`
}

// CSRFTokenResponse is the body returned by CSRFTokenHandler. ExpiresIn is in
// seconds.
type CSRFTokenResponse struct {
	CSRFToken string `json:"csrf_token"`
	ExpiresIn int    `json:"expires_in"`
}

func writeJSON(w http.ResponseWriter, r *http.Request, status int, v any) {
	render.Status(r, status)
	render.JSON(w, r, v)
}

func writeError(w http.ResponseWriter, r *http.Request, status int, message, code string) {
	writeJSON(w, r, status, ErrorResponse{Error: true, Message: message, Code: code})
}

func writeUnavailable(w http.ResponseWriter, r *http.Request) {
	writeError(w, r, http.StatusServiceUnavailable, "Service temporarily unavailable", "")
}

func writeRateLimited(w http.ResponseWriter, r *http.Request, rlErr *goGuard.RateLimitError) {
	retryAfter := rlErr.RetryAfterSeconds()
	if retryAfter < 0 {
		retryAfter = 0
	}

	h := w.Header()
	h.Set("Retry-After", strconv.Itoa(retryAfter))
	h.Set("X-RateLimit-Limit", strconv.Itoa(rlErr.Limit))
	h.Set("X-RateLimit-Remaining", "0")
	h.Set("X-RateLimit-Reset", strconv.FormatInt(rlErr.ResetAt.Unix(), 10))

	writeJSON(w, r, http.StatusTooManyRequests, RateLimitResponse{
		Error:      true,
		Message:    fmt.Sprintf("Too many requests. Please try again in %d seconds.", retryAfter),
		RetryAfter: retryAfter,
		Limit:      rlErr.Limit,
		Window:     rlErr.WindowSeconds(),
	})
}

func csrfMessage(err error) string {
	switch {
	case errors.Is(err, goGuard.ErrCSRFTokenMissing):
		return "CSRF token missing"
	case errors.Is(err, goGuard.ErrCSRFTokenExpired):
		return "CSRF token expired"
	case errors.Is(err, goGuard.ErrCSRFTokenAlreadyUsed):
		return "CSRF token already used"
	case errors.Is(err, goGuard.ErrCSRFIdentifierMismatch):
		return "CSRF token does not belong to this client"
	default:
		return "CSRF token invalid"
	}
}
