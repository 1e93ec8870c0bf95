package goGuard

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/MrEthical07/goGuard/cache"
	"github.com/MrEthical07/goGuard/internal/audit"
	"github.com/MrEthical07/goGuard/internal/clientip"
	"github.com/MrEthical07/goGuard/internal/csrf"
	"github.com/MrEthical07/goGuard/internal/rate"
)

// Engine runs the admission checks. It is safe for concurrent use once built.
type Engine struct {
	config   Config
	store    cache.Store
	csrf     *csrf.Guard
	limiter  *rate.Limiter
	resolver *clientip.Resolver
	audit    *audit.Dispatcher
	metrics  *Metrics
	logger   *zap.Logger
	now      func() time.Time
}

// Close stops the audit dispatcher after draining queued events. The cache
// store is owned by the caller and stays open.
func (e *Engine) Close() {
	if e == nil {
		return
	}
	if e.audit != nil {
		e.audit.Close()
	}
}

func (e *Engine) AuditDropped() uint64 {
	if e == nil || e.audit == nil {
		return 0
	}
	return e.audit.Dropped()
}

func (e *Engine) MetricsSnapshot() MetricsSnapshot {
	if e == nil || e.metrics == nil {
		return MetricsSnapshot{
			Counters:   map[MetricID]uint64{},
			Histograms: map[MetricID][]uint64{},
		}
	}
	return e.metrics.Snapshot()
}

// Config returns a copy of the engine configuration.
func (e *Engine) Config() Config {
	if e == nil {
		return Config{}
	}
	return cloneConfig(e.config)
}

// ClientIP returns the address attached with WithClientIP, else the first
// trusted header holding a valid address, else the socket address, else
// "unknown".
func (e *Engine) ClientIP(r *http.Request) string {
	if r == nil {
		return clientip.Unknown
	}
	if ip := clientIPFromContext(r.Context()); ip != "" {
		return ip
	}
	if e == nil {
		return clientip.Default().Resolve(r)
	}
	return e.resolver.Resolve(r)
}

// RequesterFromRequest builds the Requester for r from the user attached to
// its context and its client address and user agent.
func (e *Engine) RequesterFromRequest(r *http.Request) Requester {
	if r == nil {
		return Requester{IP: clientip.Unknown}
	}
	req := Requester{
		IP:        e.ClientIP(r),
		UserAgent: r.UserAgent(),
	}
	if user, ok := UserFromContext(r.Context()); ok {
		req.UserID = user.ID
	}
	return req
}

func (e *Engine) metricInc(id MetricID) {
	if e == nil || e.metrics == nil {
		return
	}
	e.metrics.Inc(id)
}

func (e *Engine) metricAdd(id MetricID, n int) {
	if e == nil || e.metrics == nil || n <= 0 {
		return
	}
	e.metrics.Add(id, uint64(n))
}

func (e *Engine) observe(id MetricID, start time.Time) {
	if e == nil || !e.metrics.LatencyEnabled() {
		return
	}
	e.metrics.Observe(id, time.Since(start))
}

// checkFault applies the failure policy to a cache fault seen during a
// check. A nil result means the request is admitted.
func (e *Engine) checkFault(ctx context.Context, check string, req Requester, r *http.Request, err error) error {
	e.metricInc(MetricBackendError)

	if e.config.Security.FailurePolicy == FailOpen {
		e.metricInc(MetricFailOpen)
		e.logger.Warn("guard backend unavailable, admitting request",
			zap.String("check", check),
			zap.String("failure_policy", FailOpen.String()),
			zap.Error(err),
		)
		e.emitAudit(ctx, auditEventBackendFailOpen, true, req, r, err, func() map[string]string {
			return map[string]string{"check": check}
		})
		return nil
	}

	e.logger.Error("guard backend unavailable, rejecting request",
		zap.String("check", check),
		zap.String("failure_policy", FailClosed.String()),
		zap.Error(err),
	)
	e.emitAudit(ctx, auditEventBackendUnavailable, false, req, r, err, func() map[string]string {
		return map[string]string{"check": check}
	})
	return fmt.Errorf("%w: %v", ErrBackendUnavailable, err)
}

// operationFault wraps a cache fault seen outside a check. Failure policy
// does not apply: nothing is being admitted.
func (e *Engine) operationFault(op string, err error) error {
	e.metricInc(MetricBackendError)
	e.logger.Error("guard backend unavailable", zap.String("operation", op), zap.Error(err))
	return fmt.Errorf("%w: %v", ErrBackendUnavailable, err)
}
