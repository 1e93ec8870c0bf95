// Package pgstore implements cache.Store on PostgreSQL.
//
// Entries live in a single guard_cache table (key, value, expires_at). Expiry
// is enforced lazily on read; DeleteExpired reclaims rows in bulk and is meant
// to be called periodically or at startup. The schema is embedded and applied
// with goose.
package pgstore

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/MrEthical07/goGuard/cache"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"
)

//go:embed migrations/*.sql
var migrations embed.FS

// DBTX is the subset of database/sql used by the store.
// Both *sql.DB and *sql.Tx satisfy this interface.
type DBTX interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// Store is a PostgreSQL-backed cache.Store.
type Store struct {
	db  DBTX
	now func() time.Time
}

// Option configures a Store.
type Option func(*Store)

// WithClock replaces time.Now for expiry computations.
func WithClock(now func() time.Time) Option {
	return func(s *Store) {
		if now != nil {
			s.now = now
		}
	}
}

// New wraps an open database handle.
func New(db DBTX, opts ...Option) *Store {
	s := &Store{db: db, now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Open opens a pgx-backed *sql.DB for dsn and verifies connectivity.
func Open(ctx context.Context, dsn string) (*sql.DB, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("db open error: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("%w: %v", cache.ErrUnavailable, err)
	}
	return db, nil
}

// gooseUpContext is a seam for testing goose.UpContext.
var gooseUpContext = func(ctx context.Context, db *sql.DB, dir string, opts ...goose.OptionsFunc) error {
	return goose.UpContext(ctx, db, dir, opts...)
}

// Migrate applies the embedded schema migrations.
func Migrate(ctx context.Context, db *sql.DB) error {
	goose.SetBaseFS(migrations)
	if err := goose.SetDialect("postgres"); err != nil {
		return err
	}
	if err := gooseUpContext(ctx, db, "migrations"); err != nil {
		return fmt.Errorf("migration error: %w", err)
	}
	return nil
}

func (s *Store) Get(ctx context.Context, key string) ([]byte, error) {
	query := `SELECT value FROM guard_cache
		WHERE key = $1 AND (expires_at IS NULL OR expires_at > $2)`

	var value []byte
	err := s.db.QueryRowContext(ctx, query, key, s.now()).Scan(&value)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, cache.ErrNotFound
		}
		return nil, fmt.Errorf("%w: %v", cache.ErrUnavailable, err)
	}
	return value, nil
}

func (s *Store) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	query := `INSERT INTO guard_cache (key, value, expires_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value, expires_at = EXCLUDED.expires_at`

	var expiresAt sql.NullTime
	if ttl > 0 {
		expiresAt = sql.NullTime{Time: s.now().Add(ttl), Valid: true}
	}

	if _, err := s.db.ExecContext(ctx, query, key, value, expiresAt); err != nil {
		return fmt.Errorf("%w: %v", cache.ErrUnavailable, err)
	}
	return nil
}

func (s *Store) Delete(ctx context.Context, key string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM guard_cache WHERE key = $1`, key); err != nil {
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

	query := `DELETE FROM guard_cache WHERE key LIKE $1 ESCAPE '\'`
	if _, err := s.db.ExecContext(ctx, query, likePrefix(literal)); err != nil {
		return fmt.Errorf("%w: %v", cache.ErrUnavailable, err)
	}
	return nil
}

func (s *Store) Keys(ctx context.Context, pattern string) ([]string, error) {
	literal, wildcard, err := cache.ParsePattern(pattern)
	if err != nil {
		return nil, err
	}

	arg := literal
	query := `SELECT key FROM guard_cache
		WHERE key = $1 AND (expires_at IS NULL OR expires_at > $2)
		ORDER BY key`
	if wildcard {
		arg = likePrefix(literal)
		query = `SELECT key FROM guard_cache
		WHERE key LIKE $1 ESCAPE '\' AND (expires_at IS NULL OR expires_at > $2)
		ORDER BY key`
	}

	rows, err := s.db.QueryContext(ctx, query, arg, s.now())
	if err != nil {
		return nil, fmt.Errorf("%w: %v", cache.ErrUnavailable, err)
	}
	defer rows.Close()

	keys := make([]string, 0)
	for rows.Next() {
		var key string
		if err := rows.Scan(&key); err != nil {
			return nil, fmt.Errorf("%w: %v", cache.ErrUnavailable, err)
		}
		keys = append(keys, key)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: %v", cache.ErrUnavailable, err)
	}
	return keys, nil
}

// DeleteExpired removes rows whose expiry has passed and reports how many went.
func (s *Store) DeleteExpired(ctx context.Context) (int64, error) {
	query := `DELETE FROM guard_cache WHERE expires_at IS NOT NULL AND expires_at <= $1`

	res, err := s.db.ExecContext(ctx, query, s.now())
	if err != nil {
		return 0, fmt.Errorf("%w: %v", cache.ErrUnavailable, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("%w: %v", cache.ErrUnavailable, err)
	}
	return n, nil
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func likePrefix(literal string) string {
	return likeEscaper.Replace(literal) + "%"
}
