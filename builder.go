package goGuard

import (
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/MrEthical07/goGuard/cache"
	"github.com/MrEthical07/goGuard/cache/redisstore"
	"github.com/MrEthical07/goGuard/internal/audit"
	"github.com/MrEthical07/goGuard/internal/clientip"
	"github.com/MrEthical07/goGuard/internal/csrf"
	"github.com/MrEthical07/goGuard/internal/rate"
	"github.com/MrEthical07/goGuard/internal/stores"
)

// Builder assembles an Engine. A Builder is single-use.
type Builder struct {
	config Config
	store  cache.Store
	logger *zap.Logger
	now    func() time.Time

	auditSink AuditSink

	built bool
}

func New() *Builder {
	return &Builder{
		config: defaultConfig(),
	}
}

func (b *Builder) WithConfig(cfg Config) *Builder {
	b.config = cloneConfig(cfg)
	return b
}

// WithStore sets the keyed cache both guards persist to.
func (b *Builder) WithStore(store cache.Store) *Builder {
	b.store = store
	return b
}

// WithRedis is WithStore over a Redis client. The client lifecycle stays
// with the caller.
func (b *Builder) WithRedis(client redis.UniversalClient) *Builder {
	if client == nil {
		b.store = nil
		return b
	}
	b.store = redisstore.New(client)
	return b
}

func (b *Builder) WithLogger(logger *zap.Logger) *Builder {
	b.logger = logger
	return b
}

func (b *Builder) WithAuditSink(sink AuditSink) *Builder {
	b.auditSink = sink
	return b
}

func (b *Builder) WithMetricsEnabled(enabled bool) *Builder {
	b.config.Metrics.Enabled = enabled
	return b
}

func (b *Builder) WithLatencyHistograms(enabled bool) *Builder {
	b.config.Metrics.EnableLatencyHistograms = enabled
	return b
}

// WithFailurePolicy selects what checks do when the cache fails.
func (b *Builder) WithFailurePolicy(policy FailurePolicy) *Builder {
	b.config.Security.FailurePolicy = policy
	return b
}

// WithClock replaces time.Now for token lifetimes and rate windows.
func (b *Builder) WithClock(now func() time.Time) *Builder {
	b.now = now
	return b
}

func (b *Builder) Build() (*Engine, error) {
	if b.built {
		return nil, errors.New("builder already used")
	}

	cfg := cloneConfig(b.config)

	if b.store == nil {
		return nil, errors.New("cache store required")
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	now := b.now
	if now == nil {
		now = time.Now
	}
	logger := b.logger
	if logger == nil {
		logger = zap.NewNop()
	}

	// -------- CSRF GUARD --------
	tokenStore := stores.NewCSRFTokenStore(b.store, cfg.CSRF.Prefix, cfg.CSRF.ExpiredRetention)
	extractors := []csrf.Extractor{
		csrf.FromHeader(cfg.CSRF.HeaderName),
		csrf.FromJSONField(cfg.CSRF.FieldName),
	}
	if cfg.CSRF.AllowQueryToken {
		extractors = append(extractors, csrf.FromQuery(cfg.CSRF.FieldName))
	}
	guard := csrf.NewGuard(tokenStore, csrf.Options{
		Lifetime:   cfg.CSRF.TokenLifetime,
		TokenBytes: cfg.CSRF.TokenBytes,
		Extractors: extractors,
		Now:        now,
	})

	// -------- RATE LIMITER --------
	limiter := rate.New(b.store, cfg.RateLimit.Prefix, rate.WithClock(now))

	engine := &Engine{
		config:   cloneConfig(cfg),
		store:    b.store,
		csrf:     guard,
		limiter:  limiter,
		resolver: clientip.FromHeaders(cfg.ClientIP.TrustedHeaders),
		logger:   logger.Named("goguard"),
		metrics:  NewMetrics(cfg.Metrics),
		now:      now,
	}
	engine.audit = audit.NewDispatcher(audit.Config{
		Enabled:    cfg.Audit.Enabled,
		BufferSize: cfg.Audit.BufferSize,
		DropIfFull: cfg.Audit.DropIfFull,
		OnDrop: func(ev audit.Event) {
			engine.logger.Warn("audit event dropped", zap.String("event_type", ev.EventType))
		},
	}, b.auditSink)

	for _, w := range cfg.Lint().AtLeast(LintWarn) {
		engine.logger.Warn("config lint", zap.String("code", w.Code), zap.String("message", w.Message))
	}

	b.built = true

	return engine, nil
}
