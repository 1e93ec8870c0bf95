package goGuard

import "github.com/MrEthical07/goGuard/internal/security"

// SecurityReport describes the posture of a built engine.
type SecurityReport = security.Report

func (e *Engine) SecurityReport() SecurityReport {
	if e == nil {
		return SecurityReport{}
	}
	return e.config.SecurityReport()
}

// SecurityReport derives the posture report for c without building an engine.
func (c *Config) SecurityReport() SecurityReport {
	return security.BuildReport(security.ReportInput{
		ProductionMode:    c.Security.ProductionMode,
		FailClosed:        c.Security.FailurePolicy == FailClosed,
		CSRFTokenLifetime: c.CSRF.TokenLifetime,
		CSRFTokenBytes:    c.CSRF.TokenBytes,
		AllowQueryToken:   c.CSRF.AllowQueryToken,
		ExpiredRetention:  c.CSRF.ExpiredRetention,
		TrustedHeaders:    c.ClientIP.TrustedHeaders,
		StrictMaxRequests: c.RateLimit.Strict.MaxRequests,
		StrictWindow:      c.RateLimit.Strict.Window,
		AuditEnabled:      c.Audit.Enabled,
		AuditDropIfFull:   c.Audit.DropIfFull,
		MetricsEnabled:    c.Metrics.Enabled,
	})
}
