package goGuard

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/MrEthical07/goGuard/internal"
	"github.com/MrEthical07/goGuard/internal/clientip"
	"github.com/MrEthical07/goGuard/internal/rate"
)

// Config is the complete engine configuration. Obtain one from DefaultConfig
// and adjust it before passing it to Builder.WithConfig.
type Config struct {
	CSRF      CSRFConfig
	RateLimit RateLimitConfig
	ClientIP  ClientIPConfig
	Audit     AuditConfig
	Metrics   MetricsConfig
	Security  SecurityConfig
}

/*
====================================
CSRF CONFIG
====================================
*/

type CSRFConfig struct {
	Prefix        string
	TokenLifetime time.Duration
	TokenBytes    int
	// ExpiredRetention keeps records past expiry so a late token reports
	// ErrCSRFTokenExpired instead of ErrCSRFTokenNotFound.
	ExpiredRetention time.Duration
	HeaderName       string
	FieldName        string
	AllowQueryToken  bool
}

/*
====================================
RATE LIMIT CONFIG
====================================
*/

type RateLimitConfig struct {
	Prefix   string
	Strict   Limit
	Standard Limit
	Relaxed  Limit
	PerUser  Limit
}

// ClientIPConfig lists the headers trusted for the client address, in
// priority order. The socket address is always the last resort.
type ClientIPConfig struct {
	TrustedHeaders []string
}

type AuditConfig struct {
	Enabled    bool
	BufferSize int
	DropIfFull bool
}

type MetricsConfig struct {
	Enabled                 bool
	EnableLatencyHistograms bool
}

/*
====================================
SECURITY CONFIG
====================================
*/

type SecurityConfig struct {
	ProductionMode bool
	FailurePolicy  FailurePolicy
}

/*
====================================
DEFAULTS
====================================
*/

// DefaultConfig returns the baseline configuration.
func DefaultConfig() Config {
	return defaultConfig()
}

func defaultConfig() Config {
	return Config{
		CSRF: CSRFConfig{
			Prefix:           "csrf",
			TokenLifetime:    2 * time.Hour,
			TokenBytes:       internal.MinTokenBytes,
			ExpiredRetention: 10 * time.Minute,
			HeaderName:       "X-CSRF-Token",
			FieldName:        "_csrf_token",
			AllowQueryToken:  true,
		},
		RateLimit: RateLimitConfig{
			Prefix:   rate.DefaultPrefix,
			Strict:   Limit{MaxRequests: 5, Window: 300 * time.Second},
			Standard: Limit{MaxRequests: 60, Window: 60 * time.Second},
			Relaxed:  Limit{MaxRequests: 120, Window: 60 * time.Second},
			PerUser:  Limit{MaxRequests: 100, Window: 60 * time.Second},
		},
		ClientIP: ClientIPConfig{
			TrustedHeaders: []string{
				clientip.HeaderCFConnectingIP,
				clientip.HeaderXForwardedFor,
				clientip.HeaderXRealIP,
			},
		},
		Audit: AuditConfig{
			Enabled:    false,
			BufferSize: 1024,
			DropIfFull: true,
		},
		Metrics: MetricsConfig{
			Enabled:                 false,
			EnableLatencyHistograms: false,
		},
		Security: SecurityConfig{
			ProductionMode: false,
			FailurePolicy:  FailClosed,
		},
	}
}

// HighSecurityConfig disables query-string tokens, trusts only the socket
// address and turns on production checks.
func HighSecurityConfig() Config {
	cfg := defaultConfig()
	cfg.Security.ProductionMode = true
	cfg.CSRF.AllowQueryToken = false
	cfg.CSRF.TokenLifetime = 30 * time.Minute
	cfg.ClientIP.TrustedHeaders = nil
	cfg.Audit.Enabled = true
	cfg.Metrics.Enabled = true
	return cfg
}

func cloneConfig(cfg Config) Config {
	out := cfg
	if cfg.ClientIP.TrustedHeaders != nil {
		out.ClientIP.TrustedHeaders = append([]string(nil), cfg.ClientIP.TrustedHeaders...)
	}
	return out
}

/*
====================================
VALIDATION
====================================
*/

func (c *Config) Validate() error {
	// CSRF
	if strings.TrimSpace(c.CSRF.Prefix) == "" {
		return errors.New("CSRF Prefix must not be empty")
	}
	if strings.ContainsAny(c.CSRF.Prefix, "*?[") {
		return errors.New("CSRF Prefix must not contain glob characters")
	}
	if c.CSRF.TokenLifetime < time.Minute {
		return errors.New("CSRF TokenLifetime must be >= 1m")
	}
	if c.CSRF.TokenBytes < internal.MinTokenBytes {
		return fmt.Errorf("CSRF TokenBytes must be >= %d", internal.MinTokenBytes)
	}
	if c.CSRF.TokenBytes > 256 {
		return errors.New("CSRF TokenBytes must be <= 256")
	}
	if c.CSRF.ExpiredRetention < 0 {
		return errors.New("CSRF ExpiredRetention must be >= 0")
	}
	if strings.TrimSpace(c.CSRF.HeaderName) == "" {
		return errors.New("CSRF HeaderName must not be empty")
	}
	if strings.TrimSpace(c.CSRF.FieldName) == "" {
		return errors.New("CSRF FieldName must not be empty")
	}

	// Rate limit
	if strings.TrimSpace(c.RateLimit.Prefix) == "" {
		return errors.New("RateLimit Prefix must not be empty")
	}
	if strings.ContainsAny(c.RateLimit.Prefix, "*?[") {
		return errors.New("RateLimit Prefix must not contain glob characters")
	}
	if c.RateLimit.Prefix == c.CSRF.Prefix {
		return errors.New("RateLimit Prefix must differ from CSRF Prefix")
	}
	presets := []struct {
		name  string
		limit Limit
	}{
		{"Strict", c.RateLimit.Strict},
		{"Standard", c.RateLimit.Standard},
		{"Relaxed", c.RateLimit.Relaxed},
		{"PerUser", c.RateLimit.PerUser},
	}
	for _, p := range presets {
		if err := p.limit.Validate(); err != nil {
			return fmt.Errorf("RateLimit %s: %w", p.name, err)
		}
	}

	// Client IP
	for _, h := range c.ClientIP.TrustedHeaders {
		if strings.TrimSpace(h) == "" {
			return errors.New("ClientIP TrustedHeaders must not contain empty names")
		}
	}

	// Audit
	if c.Audit.Enabled && c.Audit.BufferSize <= 0 {
		return errors.New("Audit BufferSize must be > 0 when enabled")
	}

	// Security
	switch c.Security.FailurePolicy {
	case FailClosed, FailOpen:
	default:
		return errors.New("Security FailurePolicy is invalid")
	}

	if c.Security.ProductionMode {
		if c.Security.FailurePolicy == FailOpen {
			return errors.New("ProductionMode requires FailClosed failure policy")
		}
		if c.CSRF.TokenLifetime > 24*time.Hour {
			return errors.New("ProductionMode requires CSRF TokenLifetime <= 24h")
		}
	}

	return nil
}
