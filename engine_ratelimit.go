package goGuard

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/MrEthical07/goGuard/internal/clientip"
	"github.com/MrEthical07/goGuard/internal/rate"
)

const (
	PolicyStrict   = "strict"
	PolicyStandard = "standard"
	PolicyRelaxed  = "relaxed"
	PolicyPerUser  = "per_user"
)

func (e *Engine) StrictPolicy() Policy {
	if e == nil {
		return Policy{Name: PolicyStrict}
	}
	return Policy{Name: PolicyStrict, Limit: e.config.RateLimit.Strict}
}

func (e *Engine) StandardPolicy() Policy {
	if e == nil {
		return Policy{Name: PolicyStandard}
	}
	return Policy{Name: PolicyStandard, Limit: e.config.RateLimit.Standard}
}

func (e *Engine) RelaxedPolicy() Policy {
	if e == nil {
		return Policy{Name: PolicyRelaxed}
	}
	return Policy{Name: PolicyRelaxed, Limit: e.config.RateLimit.Relaxed}
}

// PerUserPolicy keys windows by user id, falling back to the client address
// for anonymous requests.
func (e *Engine) PerUserPolicy() Policy {
	if e == nil {
		return Policy{Name: PolicyPerUser, PerUser: true}
	}
	return Policy{Name: PolicyPerUser, Limit: e.config.RateLimit.PerUser, PerUser: true}
}

// CheckRateLimit counts r against limit. An empty identifier selects the
// client address. A spent budget returns a *RateLimitError.
func (e *Engine) CheckRateLimit(r *http.Request, limit Limit, identifier string) (RateLimitDecision, error) {
	return e.checkRate(r, "", limit, identifier)
}

// CheckPolicy counts r against p.
func (e *Engine) CheckPolicy(r *http.Request, p Policy) (RateLimitDecision, error) {
	identifier := ""
	if p.PerUser {
		identifier = e.RequesterFromRequest(r).RateLimitIdentifier()
	}
	return e.checkRate(r, p.Name, p.Limit, identifier)
}

func (e *Engine) CheckStrict(r *http.Request) (RateLimitDecision, error) {
	return e.CheckPolicy(r, e.StrictPolicy())
}

func (e *Engine) CheckStandard(r *http.Request) (RateLimitDecision, error) {
	return e.CheckPolicy(r, e.StandardPolicy())
}

func (e *Engine) CheckRelaxed(r *http.Request) (RateLimitDecision, error) {
	return e.CheckPolicy(r, e.RelaxedPolicy())
}

func (e *Engine) CheckPerUser(r *http.Request) (RateLimitDecision, error) {
	return e.CheckPolicy(r, e.PerUserPolicy())
}

func (e *Engine) checkRate(r *http.Request, policy string, limit Limit, identifier string) (RateLimitDecision, error) {
	if e == nil || e.limiter == nil {
		return RateLimitDecision{}, ErrEngineNotReady
	}
	if r == nil {
		return RateLimitDecision{}, errors.New("nil request")
	}
	if identifier == "" {
		identifier = e.ClientIP(r)
	}
	ctx := r.Context()

	start := time.Now()
	decision, err := e.limiter.Check(ctx, identifier, limit)
	e.observe(MetricRateLimitCheckLatency, start)

	if err == nil {
		e.metricInc(MetricRateLimitAllowed)
		return decision, nil
	}

	var exceeded *rate.ExceededError
	switch {
	case errors.As(err, &exceeded):
		e.metricInc(MetricRateLimitHit)
		e.logger.Debug("rate limit exceeded",
			zap.String("identifier", identifier),
			zap.String("policy", policy),
			zap.Int("limit", exceeded.Limit),
			zap.Int("retry_after", exceeded.RetryAfterSeconds()),
		)
		e.emitAudit(ctx, auditEventRateLimitTriggered, false, e.RequesterFromRequest(r), r, err, func() map[string]string {
			return map[string]string{
				"identifier":  identifier,
				"policy":      policy,
				"limit":       strconv.Itoa(exceeded.Limit),
				"window":      strconv.Itoa(exceeded.WindowSeconds()),
				"retry_after": strconv.Itoa(exceeded.RetryAfterSeconds()),
			}
		})
		return RateLimitDecision{}, err
	case errors.Is(err, rate.ErrBackendUnavailable):
		if ferr := e.checkFault(ctx, "rate_limit", e.RequesterFromRequest(r), r, err); ferr != nil {
			return RateLimitDecision{}, ferr
		}
		return RateLimitDecision{
			Identifier: identifier,
			Limit:      limit.MaxRequests,
			Remaining:  limit.MaxRequests,
		}, nil
	default:
		return RateLimitDecision{}, err
	}
}

// RateLimitStatus reports identifier's window without counting. An empty
// identifier selects the address attached with WithClientIP.
func (e *Engine) RateLimitStatus(ctx context.Context, identifier string, maxRequests int) (RateLimitStatus, error) {
	if e == nil || e.limiter == nil {
		return RateLimitStatus{}, ErrEngineNotReady
	}
	if identifier == "" {
		identifier = clientIPFromContext(ctx)
	}
	if identifier == "" {
		identifier = clientip.Unknown
	}

	status, err := e.limiter.Status(ctx, identifier, maxRequests)
	if err != nil {
		return RateLimitStatus{}, e.operationFault("rate_limit_status", err)
	}
	return status, nil
}

// ClearRateLimit deletes identifier's window, or every window when
// identifier is empty.
func (e *Engine) ClearRateLimit(ctx context.Context, identifier string) error {
	if e == nil || e.limiter == nil {
		return ErrEngineNotReady
	}
	if err := e.limiter.Clear(ctx, identifier); err != nil {
		return e.operationFault("rate_limit_clear", err)
	}

	e.metricInc(MetricRateLimitCleared)
	e.logger.Info("rate limit cleared", zap.String("identifier", identifier))
	e.emitAudit(ctx, auditEventRateLimitCleared, true, Requester{}, nil, nil, func() map[string]string {
		scope := identifier
		if scope == "" {
			scope = "*"
		}
		return map[string]string{"scope": scope}
	})
	return nil
}
