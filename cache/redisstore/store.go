// Package redisstore implements cache.Store on Redis.
//
// Values are plain strings written with SET ... PX. Flush and Keys walk the
// keyspace with SCAN MATCH so they never block the server the way KEYS would.
package redisstore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/MrEthical07/goGuard/cache"
	"github.com/redis/go-redis/v9"
)

const defaultScanCount = 256

// Store is a Redis-backed cache.Store.
type Store struct {
	redis     redis.UniversalClient
	scanCount int64
}

// Option configures a Store.
type Option func(*Store)

// WithScanCount sets the COUNT hint used by SCAN during Flush and Keys.
func WithScanCount(n int64) Option {
	return func(s *Store) {
		if n > 0 {
			s.scanCount = n
		}
	}
}

// New wraps an existing client. The client lifecycle stays with the caller.
func New(client redis.UniversalClient, opts ...Option) *Store {
	s := &Store{
		redis:     client,
		scanCount: defaultScanCount,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Ping checks that the backend is reachable.
func (s *Store) Ping(ctx context.Context) error {
	if err := s.redis.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("%w: %v", cache.ErrUnavailable, err)
	}
	return nil
}

func (s *Store) Get(ctx context.Context, key string) ([]byte, error) {
	data, err := s.redis.Get(ctx, key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, cache.ErrNotFound
		}
		return nil, fmt.Errorf("%w: %v", cache.ErrUnavailable, err)
	}
	return data, nil
}

func (s *Store) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if ttl < 0 {
		ttl = 0
	}
	if err := s.redis.Set(ctx, key, value, ttl).Err(); err != nil {
		return fmt.Errorf("%w: %v", cache.ErrUnavailable, err)
	}
	return nil
}

func (s *Store) Delete(ctx context.Context, key string) error {
	if err := s.redis.Del(ctx, key).Err(); err != nil {
		return fmt.Errorf("%w: %v", cache.ErrUnavailable, err)
	}
	return nil
}

func (s *Store) Flush(ctx context.Context, pattern string) error {
	literal, wildcard, err := cache.ParsePattern(pattern)
	if err != nil {
		return err
	}
	if !wildcard {
		return s.Delete(ctx, literal)
	}

	var cursor uint64
	for {
		keys, next, err := s.redis.Scan(ctx, cursor, pattern, s.scanCount).Result()
		if err != nil {
			return fmt.Errorf("%w: %v", cache.ErrUnavailable, err)
		}
		if len(keys) > 0 {
			if err := s.redis.Unlink(ctx, keys...).Err(); err != nil {
				return fmt.Errorf("%w: %v", cache.ErrUnavailable, err)
			}
		}
		cursor = next
		if cursor == 0 {
			return nil
		}
	}
}

func (s *Store) Keys(ctx context.Context, pattern string) ([]string, error) {
	literal, wildcard, err := cache.ParsePattern(pattern)
	if err != nil {
		return nil, err
	}
	if !wildcard {
		n, err := s.redis.Exists(ctx, literal).Result()
		if err != nil {
			return nil, fmt.Errorf("%w: %v", cache.ErrUnavailable, err)
		}
		if n == 0 {
			return []string{}, nil
		}
		return []string{literal}, nil
	}

	out := make([]string, 0)
	iter := s.redis.Scan(ctx, 0, pattern, s.scanCount).Iterator()
	for iter.Next(ctx) {
		out = append(out, iter.Val())
	}
	if err := iter.Err(); err != nil {
		return nil, fmt.Errorf("%w: %v", cache.ErrUnavailable, err)
	}
	return out, nil
}
