package main

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/ilyakaznacheev/cleanenv"

	goGuard "github.com/MrEthical07/goGuard"
)

const (
	backendMemory   = "memory"
	backendRedis    = "redis"
	backendPostgres = "postgres"
)

type config struct {
	Env      string         `yaml:"env" env:"GOGUARD_ENV" env-default:"development"`
	HTTP     httpConfig     `yaml:"http" env-prefix:"GOGUARD_HTTP_"`
	Backend  string         `yaml:"backend" env:"GOGUARD_BACKEND" env-default:"memory"`
	Redis    redisConfig    `yaml:"redis" env-prefix:"GOGUARD_REDIS_"`
	Postgres postgresConfig `yaml:"postgres" env-prefix:"GOGUARD_POSTGRES_"`
	Guard    guardConfig    `yaml:"guard" env-prefix:"GOGUARD_"`
	JWT      jwtConfig      `yaml:"jwt" env-prefix:"GOGUARD_JWT_"`
	Admin    adminConfig    `yaml:"admin" env-prefix:"GOGUARD_ADMIN_"`
}

type httpConfig struct {
	Address         string        `yaml:"address" env:"ADDRESS" env-default:"localhost:8080"`
	ReadTimeout     time.Duration `yaml:"read_timeout" env:"READ_TIMEOUT" env-default:"5s"`
	WriteTimeout    time.Duration `yaml:"write_timeout" env:"WRITE_TIMEOUT" env-default:"10s"`
	IdleTimeout     time.Duration `yaml:"idle_timeout" env:"IDLE_TIMEOUT" env-default:"60s"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" env:"SHUTDOWN_TIMEOUT" env-default:"30s"`
}

type redisConfig struct {
	Addr     string `yaml:"addr" env:"ADDR" env-default:"localhost:6379"`
	Password string `yaml:"password" env:"PASSWORD"`
	DB       int    `yaml:"db" env:"DB" env-default:"0"`
}

type postgresConfig struct {
	DSN     string `yaml:"dsn" env:"DSN"`
	Migrate bool   `yaml:"migrate" env:"MIGRATE" env-default:"true"`
}

type guardConfig struct {
	FailOpen       bool          `yaml:"fail_open" env:"FAIL_OPEN" env-default:"false"`
	ProductionMode bool          `yaml:"production_mode" env:"PRODUCTION_MODE" env-default:"false"`
	TrustedHeaders []string      `yaml:"trusted_headers" env:"TRUSTED_HEADERS" env-separator:","`
	CSRFLifetime   time.Duration `yaml:"csrf_lifetime" env:"CSRF_LIFETIME" env-default:"2h"`
	AuditEnabled   bool          `yaml:"audit_enabled" env:"AUDIT_ENABLED" env-default:"true"`
	PurgeInterval  time.Duration `yaml:"purge_interval" env:"PURGE_INTERVAL" env-default:"10m"`
}

type jwtConfig struct {
	Secret    string        `yaml:"secret" env:"SECRET"`
	Issuer    string        `yaml:"issuer" env:"ISSUER" env-default:"goguard-server"`
	AccessTTL time.Duration `yaml:"access_ttl" env:"ACCESS_TTL" env-default:"15m"`
	// DevLogin mounts POST /login, which signs a token for any posted user
	// id without checking credentials. Never enable it outside development.
	DevLogin bool `yaml:"dev_login" env:"DEV_LOGIN" env-default:"false"`
}

type adminConfig struct {
	Token string `yaml:"token" env:"TOKEN"`
}

// loadConfig reads the YAML file named by -config or CONFIG_PATH when given,
// then applies environment overrides.
func loadConfig(args []string) (config, error) {
	fs := flag.NewFlagSet("goguard-server", flag.ContinueOnError)
	path := fs.String("config", "", "path to config file")
	if err := fs.Parse(args); err != nil {
		return config{}, err
	}
	if *path == "" {
		*path = os.Getenv("CONFIG_PATH")
	}

	var cfg config
	if *path != "" {
		if _, err := os.Stat(*path); err != nil {
			return config{}, fmt.Errorf("config file: %w", err)
		}
		if err := cleanenv.ReadConfig(*path, &cfg); err != nil {
			return config{}, fmt.Errorf("read config: %w", err)
		}
	} else if err := cleanenv.ReadEnv(&cfg); err != nil {
		return config{}, fmt.Errorf("read env: %w", err)
	}

	return cfg, cfg.validate()
}

func (c config) validate() error {
	switch c.Backend {
	case backendMemory, backendRedis:
	case backendPostgres:
		if strings.TrimSpace(c.Postgres.DSN) == "" {
			return errors.New("postgres backend requires GOGUARD_POSTGRES_DSN")
		}
	default:
		return fmt.Errorf("unknown backend %q", c.Backend)
	}
	if c.Guard.PurgeInterval < 0 {
		return errors.New("purge interval must be >= 0")
	}
	if c.JWT.DevLogin {
		if c.production() || c.Guard.ProductionMode {
			return errors.New("dev login cannot be enabled in production")
		}
		if c.JWT.Secret == "" {
			return errors.New("dev login requires GOGUARD_JWT_SECRET")
		}
	}
	return nil
}

func (c config) production() bool {
	return c.Env == "production"
}

// engineConfig maps the server settings onto the engine configuration. An
// empty header list keeps the defaults; "none" trusts only the socket address.
func (c config) engineConfig() goGuard.Config {
	cfg := goGuard.DefaultConfig()
	cfg.CSRF.TokenLifetime = c.Guard.CSRFLifetime
	switch {
	case len(c.Guard.TrustedHeaders) == 1 && strings.EqualFold(c.Guard.TrustedHeaders[0], "none"):
		cfg.ClientIP.TrustedHeaders = nil
	case len(c.Guard.TrustedHeaders) > 0:
		cfg.ClientIP.TrustedHeaders = c.Guard.TrustedHeaders
	}
	cfg.Audit.Enabled = c.Guard.AuditEnabled
	cfg.Metrics.Enabled = true
	cfg.Metrics.EnableLatencyHistograms = true
	cfg.Security.ProductionMode = c.Guard.ProductionMode || c.production()
	if c.Guard.FailOpen {
		cfg.Security.FailurePolicy = goGuard.FailOpen
	}
	return cfg
}
