package main

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	goGuard "github.com/MrEthical07/goGuard"
)

func TestLoadConfigDefaultsFromEnv(t *testing.T) {
	t.Setenv("CONFIG_PATH", "")
	t.Setenv("GOGUARD_HTTP_ADDRESS", "127.0.0.1:9999")
	t.Setenv("GOGUARD_FAIL_OPEN", "true")

	cfg, err := loadConfig(nil)
	if err != nil {
		t.Fatalf("loadConfig: %v", err)
	}
	if cfg.Backend != backendMemory {
		t.Fatalf("expected memory backend, got %q", cfg.Backend)
	}
	if cfg.HTTP.Address != "127.0.0.1:9999" {
		t.Fatalf("expected env address, got %q", cfg.HTTP.Address)
	}
	if cfg.Guard.CSRFLifetime != 2*time.Hour {
		t.Fatalf("expected default lifetime, got %v", cfg.Guard.CSRFLifetime)
	}
	if cfg.engineConfig().Security.FailurePolicy != goGuard.FailOpen {
		t.Fatal("expected fail-open policy")
	}
	if cfg.JWT.DevLogin {
		t.Fatal("dev login must be off by default")
	}
}

func TestLoadConfigFromFile(t *testing.T) {
	t.Setenv("CONFIG_PATH", "")
	path := filepath.Join(t.TempDir(), "goguard.yml")
	data := []byte("env: production\nbackend: redis\nhttp:\n  address: \":7070\"\nredis:\n  addr: \"cache:6379\"\n")
	if err := os.WriteFile(path, data, 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, err := loadConfig([]string{"-config", path})
	if err != nil {
		t.Fatalf("loadConfig: %v", err)
	}
	if cfg.Backend != backendRedis || cfg.Redis.Addr != "cache:6379" || cfg.HTTP.Address != ":7070" {
		t.Fatalf("unexpected config: %+v", cfg)
	}
	if !cfg.engineConfig().Security.ProductionMode {
		t.Fatal("production env should enable production mode")
	}
}

func TestConfigValidate(t *testing.T) {
	cases := []struct {
		name    string
		cfg     config
		wantErr bool
	}{
		{name: "memory", cfg: config{Backend: backendMemory}},
		{name: "postgres without dsn", cfg: config{Backend: backendPostgres}, wantErr: true},
		{name: "postgres", cfg: config{Backend: backendPostgres, Postgres: postgresConfig{DSN: "postgres://x"}}},
		{name: "unknown", cfg: config{Backend: "etcd"}, wantErr: true},
		{
			name: "dev login",
			cfg:  config{Backend: backendMemory, JWT: jwtConfig{Secret: "s", DevLogin: true}},
		},
		{
			name:    "dev login without secret",
			cfg:     config{Backend: backendMemory, JWT: jwtConfig{DevLogin: true}},
			wantErr: true,
		},
		{
			name:    "dev login in production",
			cfg:     config{Env: "production", Backend: backendMemory, JWT: jwtConfig{Secret: "s", DevLogin: true}},
			wantErr: true,
		},
		{
			name:    "dev login with production mode",
			cfg:     config{Backend: backendMemory, Guard: guardConfig{ProductionMode: true}, JWT: jwtConfig{Secret: "s", DevLogin: true}},
			wantErr: true,
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.cfg.validate()
			if (err != nil) != tc.wantErr {
				t.Fatalf("validate() error = %v, wantErr %v", err, tc.wantErr)
			}
		})
	}
}

func TestEngineConfigTrustedHeaders(t *testing.T) {
	cfg := config{Guard: guardConfig{CSRFLifetime: time.Hour}}
	if len(cfg.engineConfig().ClientIP.TrustedHeaders) == 0 {
		t.Fatal("empty list should keep default headers")
	}

	cfg.Guard.TrustedHeaders = []string{"none"}
	if got := cfg.engineConfig().ClientIP.TrustedHeaders; got != nil {
		t.Fatalf("expected socket-only, got %v", got)
	}

	cfg.Guard.TrustedHeaders = []string{"X-Real-IP"}
	if got := cfg.engineConfig().ClientIP.TrustedHeaders; len(got) != 1 || got[0] != "X-Real-IP" {
		t.Fatalf("expected X-Real-IP only, got %v", got)
	}
}
