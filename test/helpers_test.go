//go:build integration
// +build integration

package test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	goGuard "github.com/MrEthical07/goGuard"
	"github.com/MrEthical07/goGuard/cache"
	"github.com/MrEthical07/goGuard/cache/redisstore"
)

// backendMode is one cache backend the suite runs against.
type backendMode struct {
	name  string
	setup func(t *testing.T) cache.Store
}

// backendModes always includes the in-memory store and miniredis. A real
// Redis is added when REDIS_ADDR is set (e.g. "127.0.0.1:6379").
func backendModes(t *testing.T) []backendMode {
	t.Helper()
	modes := []backendMode{
		{
			name: "memory",
			setup: func(t *testing.T) cache.Store {
				return cache.NewMemoryStore()
			},
		},
		{
			name: "miniredis",
			setup: func(t *testing.T) cache.Store {
				t.Helper()
				mr, err := miniredis.Run()
				if err != nil {
					t.Fatalf("miniredis: %v", err)
				}
				rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
				t.Cleanup(func() { _ = rdb.Close(); mr.Close() })
				return redisstore.New(rdb)
			},
		},
	}

	if addr := os.Getenv("REDIS_ADDR"); addr != "" {
		modes = append(modes, backendMode{
			name: "standalone:" + addr,
			setup: func(t *testing.T) cache.Store {
				t.Helper()
				rdb := redis.NewClient(&redis.Options{Addr: addr})
				ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
				defer cancel()
				if err := rdb.Ping(ctx).Err(); err != nil {
					t.Skipf("cannot connect to Redis at %s: %v", addr, err)
				}
				rdb.FlushDB(context.Background())
				t.Cleanup(func() { rdb.FlushDB(context.Background()); _ = rdb.Close() })
				return redisstore.New(rdb)
			},
		})
	}
	return modes
}

func newEngine(t *testing.T, store cache.Store) *goGuard.Engine {
	t.Helper()

	engine, err := goGuard.New().
		WithStore(store).
		WithMetricsEnabled(true).
		Build()
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	t.Cleanup(engine.Close)
	return engine
}

func requestFrom(method, addr string) *http.Request {
	r := httptest.NewRequest(method, "/", nil)
	r.RemoteAddr = addr
	return r
}
