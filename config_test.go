package goGuard

import (
	"testing"
	"time"
)

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name      string
		mutate    func(*Config)
		wantValid bool
	}{
		{
			name:      "defaults",
			mutate:    func(*Config) {},
			wantValid: true,
		},
		{
			name: "csrf prefix empty",
			mutate: func(c *Config) {
				c.CSRF.Prefix = "  "
			},
		},
		{
			name: "csrf prefix with glob",
			mutate: func(c *Config) {
				c.CSRF.Prefix = "csrf*"
			},
		},
		{
			name: "csrf lifetime too short",
			mutate: func(c *Config) {
				c.CSRF.TokenLifetime = 30 * time.Second
			},
		},
		{
			name: "csrf token bytes below minimum",
			mutate: func(c *Config) {
				c.CSRF.TokenBytes = 16
			},
		},
		{
			name: "csrf token bytes above maximum",
			mutate: func(c *Config) {
				c.CSRF.TokenBytes = 512
			},
		},
		{
			name: "csrf negative retention",
			mutate: func(c *Config) {
				c.CSRF.ExpiredRetention = -time.Second
			},
		},
		{
			name: "csrf zero retention",
			mutate: func(c *Config) {
				c.CSRF.ExpiredRetention = 0
			},
			wantValid: true,
		},
		{
			name: "csrf header name empty",
			mutate: func(c *Config) {
				c.CSRF.HeaderName = ""
			},
		},
		{
			name: "rate prefix collides with csrf prefix",
			mutate: func(c *Config) {
				c.RateLimit.Prefix = c.CSRF.Prefix
			},
		},
		{
			name: "strict max requests zero",
			mutate: func(c *Config) {
				c.RateLimit.Strict.MaxRequests = 0
			},
		},
		{
			name: "per user window below one second",
			mutate: func(c *Config) {
				c.RateLimit.PerUser.Window = 500 * time.Millisecond
			},
		},
		{
			name: "blank trusted header",
			mutate: func(c *Config) {
				c.ClientIP.TrustedHeaders = []string{"X-Real-IP", " "}
			},
		},
		{
			name: "no trusted headers",
			mutate: func(c *Config) {
				c.ClientIP.TrustedHeaders = nil
			},
			wantValid: true,
		},
		{
			name: "audit enabled without buffer",
			mutate: func(c *Config) {
				c.Audit.Enabled = true
				c.Audit.BufferSize = 0
			},
		},
		{
			name: "unknown failure policy",
			mutate: func(c *Config) {
				c.Security.FailurePolicy = FailurePolicy(7)
			},
		},
		{
			name: "fail open outside production",
			mutate: func(c *Config) {
				c.Security.FailurePolicy = FailOpen
			},
			wantValid: true,
		},
		{
			name: "fail open in production",
			mutate: func(c *Config) {
				c.Security.ProductionMode = true
				c.Security.FailurePolicy = FailOpen
			},
		},
		{
			name: "long lifetime in production",
			mutate: func(c *Config) {
				c.Security.ProductionMode = true
				c.CSRF.TokenLifetime = 48 * time.Hour
			},
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			cfg := defaultConfig()
			tc.mutate(&cfg)
			err := cfg.Validate()
			if tc.wantValid && err != nil {
				t.Fatalf("expected valid, got %v", err)
			}
			if !tc.wantValid && err == nil {
				t.Fatal("expected validation error")
			}
		})
	}
}

func TestDefaultConfigPresets(t *testing.T) {
	cfg := DefaultConfig()

	checks := []struct {
		name  string
		got   Limit
		max   int
		inSec int
	}{
		{"strict", cfg.RateLimit.Strict, 5, 300},
		{"standard", cfg.RateLimit.Standard, 60, 60},
		{"relaxed", cfg.RateLimit.Relaxed, 120, 60},
		{"per user", cfg.RateLimit.PerUser, 100, 60},
	}
	for _, c := range checks {
		if c.got.MaxRequests != c.max || c.got.Window != time.Duration(c.inSec)*time.Second {
			t.Fatalf("%s preset = %+v", c.name, c.got)
		}
	}
	if cfg.CSRF.TokenLifetime != 2*time.Hour {
		t.Fatalf("expected 2h token lifetime, got %v", cfg.CSRF.TokenLifetime)
	}
	if cfg.Security.FailurePolicy != FailClosed {
		t.Fatal("expected fail-closed default")
	}
}

func TestHighSecurityConfigValidates(t *testing.T) {
	cfg := HighSecurityConfig()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("HighSecurityConfig invalid: %v", err)
	}
	if cfg.CSRF.AllowQueryToken {
		t.Fatal("expected query tokens disabled")
	}
}

func TestCloneConfigCopiesTrustedHeaders(t *testing.T) {
	cfg := defaultConfig()
	clone := cloneConfig(cfg)
	clone.ClientIP.TrustedHeaders[0] = "X-Changed"

	if cfg.ClientIP.TrustedHeaders[0] == "X-Changed" {
		t.Fatal("clone shares TrustedHeaders backing array")
	}
}

func TestSecurityReport(t *testing.T) {
	cfg := HighSecurityConfig()
	r := cfg.SecurityReport()

	if !r.ProductionMode || !r.FailClosed {
		t.Fatalf("unexpected posture: %+v", r)
	}
	if r.CSRFEntropyBits != 256 {
		t.Fatalf("expected 256 bits, got %d", r.CSRFEntropyBits)
	}
	if r.ForwardedHeadersTrusted {
		t.Fatal("expected no forwarded headers trusted")
	}
	if r.StrictBudgetPerMinute != 1 {
		t.Fatalf("expected 1 request per minute, got %v", r.StrictBudgetPerMinute)
	}
	if !r.AuditActive || !r.AuditLossy {
		t.Fatalf("expected lossy audit, got %+v", r)
	}
}
