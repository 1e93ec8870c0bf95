package goGuard

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/MrEthical07/goGuard/internal/csrf"
)

// IssueCSRFToken creates a token bound to req.
func (e *Engine) IssueCSRFToken(ctx context.Context, req Requester) (CSRFToken, error) {
	if e == nil || e.csrf == nil {
		return CSRFToken{}, ErrEngineNotReady
	}

	tok, err := e.csrf.Issue(ctx, req.Identifier())
	if err != nil {
		if errors.Is(err, csrf.ErrBackendUnavailable) {
			return CSRFToken{}, e.operationFault("csrf_issue", err)
		}
		return CSRFToken{}, err
	}

	e.metricInc(MetricCSRFTokenIssued)
	e.emitAudit(ctx, auditEventCSRFTokenIssued, true, req, nil, nil, nil)

	return e.csrfToken(tok), nil
}

// ValidateCSRFToken checks token against req. With singleUse a successful
// validation consumes the token.
//
// Failures are reported in order: ErrCSRFTokenNotFound, ErrCSRFTokenExpired,
// ErrCSRFTokenAlreadyUsed, ErrCSRFIdentifierMismatch.
func (e *Engine) ValidateCSRFToken(ctx context.Context, token string, req Requester, singleUse bool) error {
	if e == nil || e.csrf == nil {
		return ErrEngineNotReady
	}

	start := time.Now()
	err := e.csrf.Validate(ctx, token, req.Identifier(), singleUse)
	e.observe(MetricCSRFCheckLatency, start)

	return e.csrfOutcome(ctx, req, nil, singleUse, err)
}

// CheckCSRF validates the token carried by r. GET, HEAD, OPTIONS and other
// non state-changing methods always pass.
func (e *Engine) CheckCSRF(r *http.Request, singleUse bool) error {
	if e == nil || e.csrf == nil {
		return ErrEngineNotReady
	}
	if !csrf.RequiresCheck(r.Method) {
		return nil
	}

	req := e.RequesterFromRequest(r)

	start := time.Now()
	err := e.csrf.Check(r, req.Identifier(), singleUse)
	e.observe(MetricCSRFCheckLatency, start)

	return e.csrfOutcome(r.Context(), req, r, singleUse, err)
}

// RefreshCSRFToken invalidates oldToken when non-empty and issues a new token.
func (e *Engine) RefreshCSRFToken(ctx context.Context, req Requester, oldToken string) (CSRFToken, error) {
	if e == nil || e.csrf == nil {
		return CSRFToken{}, ErrEngineNotReady
	}

	tok, err := e.csrf.Refresh(ctx, req.Identifier(), oldToken)
	if err != nil {
		if errors.Is(err, csrf.ErrBackendUnavailable) {
			return CSRFToken{}, e.operationFault("csrf_refresh", err)
		}
		return CSRFToken{}, err
	}

	e.metricInc(MetricCSRFTokenIssued)
	e.emitAudit(ctx, auditEventCSRFTokenRefreshed, true, req, nil, nil, func() map[string]string {
		return map[string]string{"replaced": strconv.FormatBool(oldToken != "")}
	})

	return e.csrfToken(tok), nil
}

// InvalidateCSRFToken deletes token. Unknown tokens are ignored.
func (e *Engine) InvalidateCSRFToken(ctx context.Context, token string) error {
	if e == nil || e.csrf == nil {
		return ErrEngineNotReady
	}
	if err := e.csrf.Invalidate(ctx, token); err != nil {
		return e.operationFault("csrf_invalidate", err)
	}
	e.emitAudit(ctx, auditEventCSRFTokenInvalidated, true, Requester{}, nil, nil, nil)
	return nil
}

// ClearCSRFTokens deletes every token bound to identifier, or every token
// when identifier is empty. identifier is a Requester.Identifier value.
func (e *Engine) ClearCSRFTokens(ctx context.Context, identifier string) error {
	if e == nil || e.csrf == nil {
		return ErrEngineNotReady
	}

	removed, err := e.csrf.Clear(ctx, identifier)
	if err != nil {
		return e.operationFault("csrf_clear", err)
	}

	e.metricAdd(MetricCSRFTokensCleared, removed)
	e.logger.Info("csrf tokens cleared",
		zap.String("identifier", identifier),
		zap.Int("removed", removed),
	)
	e.emitAudit(ctx, auditEventCSRFTokensCleared, true, Requester{}, nil, nil, func() map[string]string {
		scope := identifier
		if scope == "" {
			scope = "*"
		}
		return map[string]string{"scope": scope, "removed": strconv.Itoa(removed)}
	})
	return nil
}

// PurgeExpiredCSRFTokens deletes expired token records and reports how many
// were removed. Backends with native TTL also evict them on their own.
func (e *Engine) PurgeExpiredCSRFTokens(ctx context.Context) (int, error) {
	if e == nil || e.csrf == nil {
		return 0, ErrEngineNotReady
	}

	removed, err := e.csrf.Purge(ctx)
	e.metricAdd(MetricCSRFTokensPurged, removed)
	if err != nil {
		return removed, e.operationFault("csrf_purge", err)
	}

	if removed > 0 {
		e.logger.Debug("expired csrf tokens purged", zap.Int("removed", removed))
	}
	return removed, nil
}

func (e *Engine) csrfToken(tok csrf.Token) CSRFToken {
	return CSRFToken{
		Value:     tok.Value,
		ExpiresAt: tok.ExpiresAt,
		ExpiresIn: e.csrf.Lifetime(),
	}
}

func (e *Engine) csrfOutcome(ctx context.Context, req Requester, r *http.Request, singleUse bool, err error) error {
	if err == nil {
		e.metricInc(MetricCSRFValidationSuccess)
		return nil
	}

	switch {
	case errors.Is(err, csrf.ErrBackendUnavailable):
		return e.checkFault(ctx, "csrf", req, r, err)
	case errors.Is(err, csrf.ErrTokenMissing):
		e.metricInc(MetricCSRFTokenMissing)
	case errors.Is(err, csrf.ErrTokenNotFound):
		e.metricInc(MetricCSRFTokenNotFound)
	case errors.Is(err, csrf.ErrTokenExpired):
		e.metricInc(MetricCSRFTokenExpired)
	case errors.Is(err, csrf.ErrTokenAlreadyUsed):
		e.metricInc(MetricCSRFTokenReused)
	case errors.Is(err, csrf.ErrIdentifierMismatch):
		e.metricInc(MetricCSRFIdentifierMismatch)
	default:
		return err
	}

	e.emitAudit(ctx, auditEventCSRFRejected, false, req, r, err, func() map[string]string {
		return map[string]string{"single_use": strconv.FormatBool(singleUse)}
	})
	return err
}
