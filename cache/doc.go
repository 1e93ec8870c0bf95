// Package cache defines the keyed-storage contract shared by the CSRF guard and
// the rate limiter, plus an in-process implementation.
//
// # Contract
//
// A [Store] is a flat byte-value keyspace with per-key TTL:
//
//   - Get returns [ErrNotFound] for missing or expired keys.
//   - Set with ttl <= 0 stores the value without expiry.
//   - Delete is idempotent.
//   - Flush and Keys accept an exact key or a glob whose only wildcard is a
//     trailing "*" (prefix match).
//
// Backend faults are wrapped with [ErrUnavailable] so callers can apply a
// fail-open or fail-closed policy without knowing the backend.
//
// # Backends
//
//   - [MemoryStore]: process-local map, lazy expiry, injectable clock.
//   - cache/redisstore: Redis via go-redis.
//   - cache/pgstore: PostgreSQL via database/sql + pgx, goose migrations.
//
// # What this package must NOT do
//
//   - Interpret values. Encoding belongs to the record owners.
//   - Offer multi-key transactions. Guards are designed around single-key
//     get/set with last-writer-wins semantics.
package cache
