package stores

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"github.com/MrEthical07/goGuard/cache"
	"github.com/MrEthical07/goGuard/cache/redisstore"
)

func newTestRedisStore(t *testing.T) (*CSRFTokenStore, *miniredis.Miniredis) {
	t.Helper()
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis run: %v", err)
	}
	t.Cleanup(mr.Close)

	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	return NewCSRFTokenStore(redisstore.New(rdb), "", 0), mr
}

func TestCSRFTokenStoreSaveGet(t *testing.T) {
	s, mr := newTestRedisStore(t)
	ctx := context.Background()
	now := time.UnixMilli(1_700_000_000_000)

	rec := &CSRFTokenRecord{
		Value:      "abc",
		Identifier: "user_7",
		CreatedAt:  now,
		ExpiresAt:  now.Add(2 * time.Hour),
	}
	if err := s.Save(ctx, rec, now); err != nil {
		t.Fatalf("save: %v", err)
	}
	if ttl := mr.TTL("csrf:abc"); ttl != 2*time.Hour {
		t.Fatalf("expected 2h ttl, got %v", ttl)
	}

	got, err := s.Get(ctx, "abc")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Value != "abc" || got.Identifier != "user_7" || got.Used ||
		!got.CreatedAt.Equal(rec.CreatedAt) || !got.ExpiresAt.Equal(rec.ExpiresAt) {
		t.Fatalf("unexpected record %+v", got)
	}

	got.Used = true
	if err := s.Save(ctx, got, now.Add(time.Hour)); err != nil {
		t.Fatalf("resave: %v", err)
	}
	if ttl := mr.TTL("csrf:abc"); ttl != time.Hour {
		t.Fatalf("expected remaining 1h ttl, got %v", ttl)
	}
	got, err = s.Get(ctx, "abc")
	if err != nil || !got.Used {
		t.Fatalf("expected used record, got %+v err=%v", got, err)
	}
}

func TestCSRFTokenStoreMissingAndCorrupt(t *testing.T) {
	s, mr := newTestRedisStore(t)
	ctx := context.Background()

	if _, err := s.Get(ctx, "nope"); !errors.Is(err, ErrCSRFTokenNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}

	if err := mr.Set("csrf:bad", "\x09junk"); err != nil {
		t.Fatalf("seed: %v", err)
	}
	if _, err := s.Get(ctx, "bad"); !errors.Is(err, ErrCSRFRecordCorrupt) {
		t.Fatalf("expected corrupt record error, got %v", err)
	}
}

func TestCSRFTokenStoreBackendDown(t *testing.T) {
	s, mr := newTestRedisStore(t)
	mr.Close()

	if _, err := s.Get(context.Background(), "abc"); !errors.Is(err, ErrCSRFStoreUnavailable) {
		t.Fatalf("expected store unavailable, got %v", err)
	}
}

func TestCSRFTokenStoreDeleteWhere(t *testing.T) {
	s := NewCSRFTokenStore(cache.NewMemoryStore(), "", 0)
	ctx := context.Background()
	now := time.Now()

	for token, id := range map[string]string{"t1": "a", "t2": "b", "t3": "a"} {
		rec := &CSRFTokenRecord{Value: token, Identifier: id, CreatedAt: now, ExpiresAt: now.Add(time.Hour)}
		if err := s.Save(ctx, rec, now); err != nil {
			t.Fatalf("save %s: %v", token, err)
		}
	}

	removed, err := s.DeleteWhere(ctx, func(r *CSRFTokenRecord) bool {
		return r != nil && r.Identifier == "a"
	})
	if err != nil {
		t.Fatalf("delete where: %v", err)
	}
	if removed != 2 {
		t.Fatalf("expected 2 removed, got %d", removed)
	}
	if _, err := s.Get(ctx, "t2"); err != nil {
		t.Fatalf("t2 should survive: %v", err)
	}

	if err := s.DeleteAll(ctx); err != nil {
		t.Fatalf("delete all: %v", err)
	}
	if _, err := s.Get(ctx, "t2"); !errors.Is(err, ErrCSRFTokenNotFound) {
		t.Fatalf("expected empty store, got %v", err)
	}
}

func TestCSRFTokenStoreRetention(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis run: %v", err)
	}
	defer mr.Close()
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer rdb.Close()

	s := NewCSRFTokenStore(redisstore.New(rdb), "tok", 5*time.Minute)
	now := time.Now()
	rec := &CSRFTokenRecord{Value: "x", Identifier: "a", CreatedAt: now, ExpiresAt: now.Add(time.Hour)}
	if err := s.Save(context.Background(), rec, now); err != nil {
		t.Fatalf("save: %v", err)
	}
	if ttl := mr.TTL("tok:x"); ttl != time.Hour+5*time.Minute {
		t.Fatalf("expected ttl to include retention, got %v", ttl)
	}
}

func TestCSRFTokenRecordExpiryBoundary(t *testing.T) {
	expires := time.Unix(1_700_000_000, 0)
	rec := &CSRFTokenRecord{ExpiresAt: expires}

	if rec.Expired(expires.Add(-time.Nanosecond)) {
		t.Fatal("record expired before its expiry")
	}
	if rec.Expired(expires) {
		t.Fatal("record must still be valid at the exact expiry instant")
	}
	if !rec.Expired(expires.Add(time.Nanosecond)) {
		t.Fatal("record not expired after its expiry")
	}

	var missing *CSRFTokenRecord
	if !missing.Expired(expires) {
		t.Fatal("nil record should count as expired")
	}
}
