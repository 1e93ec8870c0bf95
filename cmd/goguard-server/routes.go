package main

import (
	"crypto/subtle"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/render"
	"github.com/google/uuid"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
	"go.uber.org/zap"

	goGuard "github.com/MrEthical07/goGuard"
	"github.com/MrEthical07/goGuard/jwt"
	"github.com/MrEthical07/goGuard/metrics/export/prometheus"
	"github.com/MrEthical07/goGuard/middleware"
)

const requestIDHeader = "X-Request-ID"

type routerDeps struct {
	engine     *goGuard.Engine
	tokens     *jwt.Manager
	devLogin   bool
	logger     *zap.Logger
	adminToken string
	otelReader sdkmetric.Reader
}

type errorBody struct {
	Error string `json:"error"`
}

type loginRequest struct {
	UserID string `json:"user_id"`
	Role   string `json:"role"`
}

type loginResponse struct {
	AccessToken string `json:"access_token"`
	CSRFToken   string `json:"csrf_token"`
	ExpiresIn   int    `json:"expires_in"`
}

type statusResponse struct {
	Identifier string    `json:"identifier"`
	Requests   int       `json:"requests"`
	Remaining  int       `json:"remaining"`
	ResetAt    time.Time `json:"reset_at"`
}

type purgeResponse struct {
	Removed int `json:"removed"`
}

type otelPoint struct {
	Name  string `json:"name"`
	Value int64  `json:"value"`
}

func newRouter(deps routerDeps) http.Handler {
	engine := deps.engine
	logger := deps.logger
	if logger == nil {
		logger = zap.NewNop()
	}

	// A nil *jwt.Manager must not become a non-nil interface.
	var verifier middleware.TokenVerifier
	if deps.tokens != nil {
		verifier = deps.tokens
	}

	r := chi.NewRouter()
	r.Use(requestID)
	r.Use(requestLogger(logger))
	r.Use(chimw.Recoverer)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		render.JSON(w, r, map[string]string{"status": "ok"})
	})
	r.Method(http.MethodGet, "/metrics", prometheus.New(engine).Handler())

	r.With(middleware.Authenticate(verifier), middleware.Relaxed(engine)).
		Get("/csrf-token", middleware.CSRFTokenHandler(engine))

	if deps.devLogin && deps.tokens != nil {
		r.With(middleware.Strict(engine), middleware.CSRF(engine, true)).
			Post("/login", loginHandler(engine, deps.tokens))
	}

	r.Route("/api", func(r chi.Router) {
		r.Use(middleware.Authenticate(verifier))
		r.Use(middleware.PerUser(engine))

		r.With(middleware.CSRF(engine, false)).Post("/comments", acceptedHandler)
		r.With(middleware.RequireUser, middleware.CSRF(engine, true)).Post("/transfer", acceptedHandler)
	})

	if deps.adminToken != "" {
		r.Route("/admin", func(r chi.Router) {
			r.Use(requireAdmin(deps.adminToken))

			r.Get("/security-report", func(w http.ResponseWriter, r *http.Request) {
				render.JSON(w, r, engine.SecurityReport())
			})
			if deps.otelReader != nil {
				r.Get("/metrics/otel", otelHandler(deps.otelReader))
			}

			r.Get("/ratelimit/{identifier}", rateStatusHandler(engine))
			r.Delete("/ratelimit/{identifier}", clearRateHandler(engine))
			r.Delete("/ratelimit", clearRateHandler(engine))

			r.Delete("/csrf/{identifier}", clearCSRFHandler(engine))
			r.Delete("/csrf", clearCSRFHandler(engine))
			r.Post("/csrf/purge", purgeHandler(engine))
		})
	}

	return r
}

func requestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(requestIDHeader)
		if _, err := uuid.Parse(id); err != nil {
			id = uuid.NewString()
		}
		w.Header().Set(requestIDHeader, id)
		next.ServeHTTP(w, r)
	})
}

func requestLogger(logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := chimw.NewWrapResponseWriter(w, r.ProtoMajor)
			start := time.Now()
			next.ServeHTTP(ww, r)
			logger.Debug("request",
				zap.String("request_id", ww.Header().Get(requestIDHeader)),
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Int("status", ww.Status()),
				zap.Duration("duration", time.Since(start)),
			)
		})
	}
}

func requireAdmin(token string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			got := r.Header.Get("X-Admin-Token")
			if subtle.ConstantTimeCompare([]byte(got), []byte(token)) != 1 {
				writeError(w, r, http.StatusUnauthorized, "unauthorized")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func writeError(w http.ResponseWriter, r *http.Request, status int, message string) {
	render.Status(r, status)
	render.JSON(w, r, errorBody{Error: message})
}

func writeEngineError(w http.ResponseWriter, r *http.Request, err error) {
	if errors.Is(err, goGuard.ErrBackendUnavailable) {
		writeError(w, r, http.StatusServiceUnavailable, "guard backend unavailable")
		return
	}
	writeError(w, r, http.StatusInternalServerError, "internal error")
}

func acceptedHandler(w http.ResponseWriter, r *http.Request) {
	render.Status(r, http.StatusAccepted)
	render.JSON(w, r, map[string]string{"status": "accepted"})
}

// loginHandler trusts the posted user id and returns an access token plus a
// CSRF token bound to the new identity. It is only mounted when dev login is
// enabled.
func loginHandler(engine *goGuard.Engine, tokens *jwt.Manager) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var body loginRequest
		if err := render.DecodeJSON(r.Body, &body); err != nil || strings.TrimSpace(body.UserID) == "" {
			writeError(w, r, http.StatusBadRequest, "user_id required")
			return
		}

		access, err := tokens.CreateAccess(body.UserID, body.Role)
		if err != nil {
			writeError(w, r, http.StatusInternalServerError, "internal error")
			return
		}

		req := engine.RequesterFromRequest(r)
		req.UserID = body.UserID
		tok, err := engine.IssueCSRFToken(r.Context(), req)
		if err != nil {
			writeEngineError(w, r, err)
			return
		}

		w.Header().Set("Cache-Control", "no-store")
		render.JSON(w, r, loginResponse{
			AccessToken: access,
			CSRFToken:   tok.Value,
			ExpiresIn:   int(tok.ExpiresIn.Seconds()),
		})
	}
}

func rateStatusHandler(engine *goGuard.Engine) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		identifier := chi.URLParam(r, "identifier")

		maxRequests := engine.Config().RateLimit.Standard.MaxRequests
		if raw := r.URL.Query().Get("max"); raw != "" {
			n, err := strconv.Atoi(raw)
			if err != nil || n <= 0 {
				writeError(w, r, http.StatusBadRequest, "max must be a positive integer")
				return
			}
			maxRequests = n
		}

		status, err := engine.RateLimitStatus(r.Context(), identifier, maxRequests)
		if err != nil {
			writeEngineError(w, r, err)
			return
		}
		render.JSON(w, r, statusResponse{
			Identifier: identifier,
			Requests:   status.Requests,
			Remaining:  status.Remaining,
			ResetAt:    status.ResetAt,
		})
	}
}

func clearRateHandler(engine *goGuard.Engine) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := engine.ClearRateLimit(r.Context(), chi.URLParam(r, "identifier")); err != nil {
			writeEngineError(w, r, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

func clearCSRFHandler(engine *goGuard.Engine) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := engine.ClearCSRFTokens(r.Context(), chi.URLParam(r, "identifier")); err != nil {
			writeEngineError(w, r, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

func purgeHandler(engine *goGuard.Engine) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		removed, err := engine.PurgeExpiredCSRFTokens(r.Context())
		if err != nil {
			writeEngineError(w, r, err)
			return
		}
		render.JSON(w, r, purgeResponse{Removed: removed})
	}
}

// otelHandler collects the reader and lists integer data points by name.
func otelHandler(reader sdkmetric.Reader) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var rm metricdata.ResourceMetrics
		if err := reader.Collect(r.Context(), &rm); err != nil {
			writeError(w, r, http.StatusInternalServerError, "collect failed")
			return
		}

		points := make([]otelPoint, 0, 32)
		for _, sm := range rm.ScopeMetrics {
			for _, m := range sm.Metrics {
				switch data := m.Data.(type) {
				case metricdata.Sum[int64]:
					for _, dp := range data.DataPoints {
						points = append(points, otelPoint{Name: m.Name, Value: dp.Value})
					}
				case metricdata.Gauge[int64]:
					for _, dp := range data.DataPoints {
						points = append(points, otelPoint{Name: m.Name, Value: dp.Value})
					}
				}
			}
		}
		render.JSON(w, r, points)
	}
}
