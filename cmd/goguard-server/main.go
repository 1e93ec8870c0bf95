package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.uber.org/zap"

	goGuard "github.com/MrEthical07/goGuard"
	"github.com/MrEthical07/goGuard/cache"
	"github.com/MrEthical07/goGuard/cache/pgstore"
	"github.com/MrEthical07/goGuard/cache/redisstore"
	"github.com/MrEthical07/goGuard/jwt"
	otelexport "github.com/MrEthical07/goGuard/metrics/export/otel"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "goguard-server: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := loadConfig(os.Args[1:])
	if err != nil {
		return err
	}

	logger, err := newLogger(cfg)
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	backend, err := openBackend(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer backend.close()

	builder := goGuard.New().
		WithConfig(cfg.engineConfig()).
		WithStore(backend.store).
		WithLogger(logger)
	if cfg.Guard.AuditEnabled {
		builder = builder.WithAuditSink(goGuard.NewZapSink(logger.Named("audit")))
	}
	engine, err := builder.Build()
	if err != nil {
		return fmt.Errorf("build engine: %w", err)
	}
	defer engine.Close()

	reader := sdkmetric.NewManualReader()
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	defer func() { _ = provider.Shutdown(context.Background()) }()

	otelExporter, err := otelexport.New(provider.Meter("goguard-server"), engine)
	if err != nil {
		return fmt.Errorf("otel exporter: %w", err)
	}
	defer func() { _ = otelExporter.Close() }()

	var tokens *jwt.Manager
	if cfg.JWT.Secret != "" {
		tokens, err = jwt.NewManager(jwt.Config{
			AccessTTL:     cfg.JWT.AccessTTL,
			SigningMethod: jwt.MethodHS256,
			PrivateKey:    []byte(cfg.JWT.Secret),
			Issuer:        cfg.JWT.Issuer,
		})
		if err != nil {
			return fmt.Errorf("jwt manager: %w", err)
		}
	} else {
		logger.Warn("GOGUARD_JWT_SECRET not set, authentication disabled")
	}

	if cfg.JWT.DevLogin {
		logger.Warn("dev login enabled, POST /login issues tokens without credentials")
	}

	if cfg.Admin.Token == "" {
		logger.Warn("GOGUARD_ADMIN_TOKEN not set, admin routes disabled")
	}

	router := newRouter(routerDeps{
		engine:     engine,
		tokens:     tokens,
		devLogin:   cfg.JWT.DevLogin,
		logger:     logger,
		adminToken: cfg.Admin.Token,
		otelReader: reader,
	})

	if cfg.Guard.PurgeInterval > 0 {
		go purgeLoop(ctx, engine, backend, cfg.Guard.PurgeInterval, logger)
	}

	srv := &http.Server{
		Addr:         cfg.HTTP.Address,
		Handler:      router,
		ReadTimeout:  cfg.HTTP.ReadTimeout,
		WriteTimeout: cfg.HTTP.WriteTimeout,
		IdleTimeout:  cfg.HTTP.IdleTimeout,
	}

	serverErr := make(chan error, 1)
	go func() {
		logger.Info("starting server",
			zap.String("address", srv.Addr),
			zap.String("backend", cfg.Backend),
			zap.String("failure_policy", engine.Config().Security.FailurePolicy.String()),
		)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	select {
	case <-ctx.Done():
		logger.Info("shutdown signal received")
	case err := <-serverErr:
		logger.Error("server error", zap.Error(err))
		cancel()
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.HTTP.ShutdownTimeout)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("failed to shutdown server", zap.Error(err))
	}
	logger.Info("server stopped", zap.Uint64("audit_dropped", engine.AuditDropped()))
	return nil
}

func newLogger(cfg config) (*zap.Logger, error) {
	if cfg.production() {
		return zap.NewProduction()
	}
	return zap.NewDevelopment()
}

type cacheBackend struct {
	store cache.Store
	// sweep reclaims expired entries the store keeps around; nil when the
	// store expires entries natively.
	sweep func(ctx context.Context) (int64, error)
	close func()
}

func openBackend(ctx context.Context, cfg config, logger *zap.Logger) (*cacheBackend, error) {
	switch cfg.Backend {
	case backendRedis:
		client := redis.NewUniversalClient(&redis.UniversalOptions{
			Addrs:    []string{cfg.Redis.Addr},
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		store := redisstore.New(client)
		if err := store.Ping(ctx); err != nil {
			_ = client.Close()
			return nil, fmt.Errorf("redis: %w", err)
		}
		logger.Info("using redis backend", zap.String("addr", cfg.Redis.Addr))
		return &cacheBackend{
			store: store,
			close: func() { _ = client.Close() },
		}, nil

	case backendPostgres:
		db, err := pgstore.Open(ctx, cfg.Postgres.DSN)
		if err != nil {
			return nil, fmt.Errorf("postgres: %w", err)
		}
		if cfg.Postgres.Migrate {
			if err := pgstore.Migrate(ctx, db); err != nil {
				_ = db.Close()
				return nil, err
			}
		}
		store := pgstore.New(db)
		logger.Info("using postgres backend")
		return &cacheBackend{
			store: store,
			sweep: store.DeleteExpired,
			close: func() { _ = db.Close() },
		}, nil

	default:
		store := cache.NewMemoryStore()
		logger.Info("using in-memory backend")
		return &cacheBackend{
			store: store,
			sweep: func(context.Context) (int64, error) { return int64(store.Sweep()), nil },
			close: func() {},
		}, nil
	}
}

func purgeLoop(ctx context.Context, engine *goGuard.Engine, b *cacheBackend, every time.Duration, logger *zap.Logger) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}

		removed, err := engine.PurgeExpiredCSRFTokens(ctx)
		if err != nil {
			logger.Warn("csrf purge failed", zap.Error(err))
		}
		var swept int64
		if b.sweep != nil {
			if swept, err = b.sweep(ctx); err != nil {
				logger.Warn("cache sweep failed", zap.Error(err))
			}
		}
		if removed > 0 || swept > 0 {
			logger.Debug("purge completed", zap.Int("csrf_removed", removed), zap.Int64("swept", swept))
		}
	}
}
