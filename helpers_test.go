package goGuard

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"github.com/MrEthical07/goGuard/cache"
)

type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func newTestClock() *testClock {
	return &testClock{now: time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

var errStoreDown = errors.New("connection refused")

// failingStore fails every operation.
type failingStore struct{}

func (failingStore) Get(context.Context, string) ([]byte, error) {
	return nil, errStoreDown
}

func (failingStore) Set(context.Context, string, []byte, time.Duration) error {
	return errStoreDown
}

func (failingStore) Delete(context.Context, string) error {
	return errStoreDown
}

func (failingStore) Flush(context.Context, string) error {
	return errStoreDown
}

func (failingStore) Keys(context.Context, string) ([]string, error) {
	return nil, errStoreDown
}

func newTestRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()

	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis.Run failed: %v", err)
	}

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() {
		_ = client.Close()
		mr.Close()
	})
	return mr, client
}

func testConfig() Config {
	cfg := defaultConfig()
	cfg.Metrics.Enabled = true
	return cfg
}

// newMemoryEngine builds an engine over a MemoryStore sharing clock.
func newMemoryEngine(t *testing.T, clock *testClock, mutate func(*Config)) *Engine {
	t.Helper()

	cfg := testConfig()
	if mutate != nil {
		mutate(&cfg)
	}

	engine, err := New().
		WithConfig(cfg).
		WithStore(cache.NewMemoryStore(cache.WithClock(clock.Now))).
		WithClock(clock.Now).
		Build()
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	t.Cleanup(engine.Close)
	return engine
}

func newRedisEngine(t *testing.T, clock *testClock, mutate func(*Config)) (*Engine, *miniredis.Miniredis) {
	t.Helper()

	mr, rdb := newTestRedis(t)
	cfg := testConfig()
	if mutate != nil {
		mutate(&cfg)
	}

	engine, err := New().
		WithConfig(cfg).
		WithRedis(rdb).
		WithClock(clock.Now).
		Build()
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	t.Cleanup(engine.Close)
	return engine, mr
}

func newFailingEngine(t *testing.T, policy FailurePolicy) *Engine {
	t.Helper()

	engine, err := New().
		WithConfig(testConfig()).
		WithStore(failingStore{}).
		WithFailurePolicy(policy).
		Build()
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	t.Cleanup(engine.Close)
	return engine
}
