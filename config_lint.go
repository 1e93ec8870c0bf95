package goGuard

import (
	"fmt"
	"time"
)

// LintSeverity ranks a configuration warning.
type LintSeverity int

const (
	LintInfo LintSeverity = iota
	LintWarn
	LintHigh
)

func (s LintSeverity) String() string {
	switch s {
	case LintInfo:
		return "info"
	case LintWarn:
		return "warn"
	case LintHigh:
		return "high"
	default:
		return "unknown"
	}
}

// LintWarning is a configuration choice that is valid but worth reviewing.
type LintWarning struct {
	Code     string
	Severity LintSeverity
	Message  string
}

type LintWarnings []LintWarning

// Codes returns the warning codes in order.
func (ws LintWarnings) Codes() []string {
	out := make([]string, 0, len(ws))
	for _, w := range ws {
		out = append(out, w.Code)
	}
	return out
}

// AtLeast filters warnings to those with severity >= min.
func (ws LintWarnings) AtLeast(min LintSeverity) LintWarnings {
	var out LintWarnings
	for _, w := range ws {
		if w.Severity >= min {
			out = append(out, w)
		}
	}
	return out
}

// Lint reports risky but valid settings. It never fails; call Validate for
// hard errors.
func (c *Config) Lint() LintWarnings {
	var ws LintWarnings
	add := func(code string, sev LintSeverity, format string, args ...any) {
		ws = append(ws, LintWarning{Code: code, Severity: sev, Message: fmt.Sprintf(format, args...)})
	}

	if c.Security.FailurePolicy == FailOpen {
		add("fail_open", LintHigh, "cache faults admit requests without CSRF or rate limit checks")
	}
	if c.CSRF.AllowQueryToken {
		add("query_token_enabled", LintWarn, "CSRF tokens in query strings end up in access logs and referrers")
	}
	if c.CSRF.TokenLifetime > 4*time.Hour {
		add("csrf_lifetime_long", LintWarn, "CSRF TokenLifetime %v exceeds 4h", c.CSRF.TokenLifetime)
	}
	if c.CSRF.ExpiredRetention == 0 {
		add("expired_retention_zero", LintInfo, "expired CSRF tokens will report not found instead of expired")
	}
	if len(c.ClientIP.TrustedHeaders) > 0 {
		add("forwarded_headers_trusted", LintInfo, "client address taken from %v; only safe behind a proxy that overwrites them", c.ClientIP.TrustedHeaders)
	}
	if perMinute(c.RateLimit.Strict) > perMinute(c.RateLimit.Standard) {
		add("strict_looser_than_standard", LintWarn, "Strict preset admits more requests per minute than Standard")
	}
	if !c.Audit.Enabled {
		add("audit_disabled", LintInfo, "admission rejections are not audited")
	}
	if c.Audit.Enabled && !c.Audit.DropIfFull {
		add("audit_blocking", LintWarn, "a slow audit sink will block request handling")
	}

	return ws
}

func perMinute(l Limit) float64 {
	if l.Window <= 0 {
		return 0
	}
	return float64(l.MaxRequests) * float64(time.Minute) / float64(l.Window)
}
