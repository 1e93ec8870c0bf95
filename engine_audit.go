package goGuard

import (
	"context"
	"errors"
	"net/http"

	"github.com/MrEthical07/goGuard/internal/audit"
)

const (
	auditEventCSRFTokenIssued      = "csrf_token_issued"
	auditEventCSRFTokenRefreshed   = "csrf_token_refreshed"
	auditEventCSRFTokenInvalidated = "csrf_token_invalidated"
	auditEventCSRFRejected         = "csrf_rejected"
	auditEventCSRFTokensCleared    = "csrf_tokens_cleared"
	auditEventRateLimitTriggered   = "rate_limit_triggered"
	auditEventRateLimitCleared     = "rate_limit_cleared"
	auditEventBackendFailOpen      = "backend_fail_open"
	auditEventBackendUnavailable   = "backend_unavailable"
)

// AuditErrorCode is the stable error label carried in AuditEvent.Error.
type AuditErrorCode string

const (
	AuditErrCSRFTokenMissing       AuditErrorCode = "csrf_token_missing"
	AuditErrCSRFTokenNotFound      AuditErrorCode = "csrf_token_not_found"
	AuditErrCSRFTokenExpired       AuditErrorCode = "csrf_token_expired"
	AuditErrCSRFTokenAlreadyUsed   AuditErrorCode = "csrf_token_already_used"
	AuditErrCSRFIdentifierMismatch AuditErrorCode = "csrf_identifier_mismatch"
	AuditErrRateLimited            AuditErrorCode = "rate_limited"
	AuditErrUnavailable            AuditErrorCode = "backend_unavailable"
	AuditErrInternal               AuditErrorCode = "internal_error"
)

func (e *Engine) emitAudit(
	ctx context.Context,
	eventType string,
	success bool,
	req Requester,
	r *http.Request,
	err error,
	metadataBuilder func() map[string]string,
) {
	if e == nil || e.audit == nil || !e.audit.Enabled() {
		return
	}

	event := audit.NewEvent(eventType, success)
	event.UserID = req.UserID
	event.IP = req.IP
	if req.IP != "" || req.UserID != "" {
		event.Identifier = req.Identifier()
	}
	if event.IP == "" {
		event.IP = clientIPFromContext(ctx)
	}
	if r != nil {
		event.Method = r.Method
		event.Path = r.URL.Path
	}
	if metadataBuilder != nil {
		event.Metadata = metadataBuilder()
	}
	if code := auditErrorCode(err); code != "" {
		event.Error = string(code)
	}

	e.audit.Emit(ctx, event)
}

func auditErrorCode(err error) AuditErrorCode {
	if err == nil {
		return ""
	}

	switch {
	case errors.Is(err, ErrCSRFTokenMissing):
		return AuditErrCSRFTokenMissing
	case errors.Is(err, ErrCSRFTokenNotFound):
		return AuditErrCSRFTokenNotFound
	case errors.Is(err, ErrCSRFTokenExpired):
		return AuditErrCSRFTokenExpired
	case errors.Is(err, ErrCSRFTokenAlreadyUsed):
		return AuditErrCSRFTokenAlreadyUsed
	case errors.Is(err, ErrCSRFIdentifierMismatch):
		return AuditErrCSRFIdentifierMismatch
	case errors.Is(err, ErrRateLimited):
		return AuditErrRateLimited
	case errors.Is(err, ErrBackendUnavailable),
		isGuardBackendError(err):
		return AuditErrUnavailable
	default:
		return AuditErrInternal
	}
}
