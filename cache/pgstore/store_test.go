package pgstore

import (
	"context"
	"database/sql"
	"errors"
	"io/fs"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/MrEthical07/goGuard/cache"
	"github.com/pressly/goose/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var fixedNow = time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)

func newStoreWithMock(t *testing.T) (*Store, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return New(db, WithClock(func() time.Time { return fixedNow })), mock
}

func TestGet_Found(t *testing.T) {
	s, mock := newStoreWithMock(t)

	mock.ExpectQuery(`(?s)^SELECT value FROM guard_cache\s+WHERE key = \$1 AND \(expires_at IS NULL OR expires_at > \$2\)$`).
		WithArgs("csrf:abc", fixedNow).
		WillReturnRows(sqlmock.NewRows([]string{"value"}).AddRow([]byte("payload")))

	got, err := s.Get(context.Background(), "csrf:abc")
	require.NoError(t, err)
	assert.Equal(t, []byte("payload"), got)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestGet_NotFound(t *testing.T) {
	s, mock := newStoreWithMock(t)

	mock.ExpectQuery(`SELECT value FROM guard_cache`).
		WithArgs("missing", fixedNow).
		WillReturnError(sql.ErrNoRows)

	_, err := s.Get(context.Background(), "missing")
	assert.ErrorIs(t, err, cache.ErrNotFound)
}

func TestGet_DBError(t *testing.T) {
	s, mock := newStoreWithMock(t)

	mock.ExpectQuery(`SELECT value FROM guard_cache`).
		WillReturnError(errors.New("db down"))

	_, err := s.Get(context.Background(), "k")
	assert.ErrorIs(t, err, cache.ErrUnavailable)
	assert.Contains(t, err.Error(), "db down")
}

func TestSet_WithTTL(t *testing.T) {
	s, mock := newStoreWithMock(t)

	mock.ExpectExec(`(?s)^INSERT INTO guard_cache \(key, value, expires_at\).*ON CONFLICT \(key\) DO UPDATE`).
		WithArgs("ratelimit:1.2.3.4", []byte("v"), sql.NullTime{Time: fixedNow.Add(time.Minute), Valid: true}).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, s.Set(context.Background(), "ratelimit:1.2.3.4", []byte("v"), time.Minute))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSet_WithoutTTL(t *testing.T) {
	s, mock := newStoreWithMock(t)

	mock.ExpectExec(`INSERT INTO guard_cache`).
		WithArgs("k", []byte("v"), sql.NullTime{}).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, s.Set(context.Background(), "k", []byte("v"), 0))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestDelete(t *testing.T) {
	s, mock := newStoreWithMock(t)

	mock.ExpectExec(`^DELETE FROM guard_cache WHERE key = \$1$`).
		WithArgs("k").
		WillReturnResult(sqlmock.NewResult(0, 0))

	require.NoError(t, s.Delete(context.Background(), "k"))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestFlush_PrefixEscapesLikeMetacharacters(t *testing.T) {
	s, mock := newStoreWithMock(t)

	mock.ExpectExec(`^DELETE FROM guard_cache WHERE key LIKE \$1 ESCAPE`).
		WithArgs(`rate\_limit:%`).
		WillReturnResult(sqlmock.NewResult(0, 3))

	require.NoError(t, s.Flush(context.Background(), "rate_limit:*"))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestFlush_ExactKeyDeletes(t *testing.T) {
	s, mock := newStoreWithMock(t)

	mock.ExpectExec(`^DELETE FROM guard_cache WHERE key = \$1$`).
		WithArgs("csrf:abc").
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, s.Flush(context.Background(), "csrf:abc"))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestKeys_Prefix(t *testing.T) {
	s, mock := newStoreWithMock(t)

	mock.ExpectQuery(`(?s)^SELECT key FROM guard_cache\s+WHERE key LIKE \$1`).
		WithArgs("csrf:%", fixedNow).
		WillReturnRows(sqlmock.NewRows([]string{"key"}).AddRow("csrf:a").AddRow("csrf:b"))

	keys, err := s.Keys(context.Background(), "csrf:*")
	require.NoError(t, err)
	assert.Equal(t, []string{"csrf:a", "csrf:b"}, keys)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestDeleteExpired(t *testing.T) {
	s, mock := newStoreWithMock(t)

	mock.ExpectExec(`^DELETE FROM guard_cache WHERE expires_at IS NOT NULL AND expires_at <= \$1$`).
		WithArgs(fixedNow).
		WillReturnResult(sqlmock.NewResult(0, 4))

	n, err := s.DeleteExpired(context.Background())
	require.NoError(t, err)
	assert.EqualValues(t, 4, n)
}

func TestMigrationsEmbedded(t *testing.T) {
	entries, err := fs.Glob(migrations, "migrations/*.sql")
	require.NoError(t, err)
	assert.NotEmpty(t, entries)
}

func TestMigrate_UsesEmbeddedDir(t *testing.T) {
	orig := gooseUpContext
	t.Cleanup(func() { gooseUpContext = orig })

	var gotDir string
	gooseUpContext = func(_ context.Context, _ *sql.DB, dir string, _ ...goose.OptionsFunc) error {
		gotDir = dir
		return nil
	}

	db, _, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	require.NoError(t, Migrate(context.Background(), db))
	assert.Equal(t, "migrations", gotDir)
}

func TestMigrate_PropagatesError(t *testing.T) {
	orig := gooseUpContext
	t.Cleanup(func() { gooseUpContext = orig })

	gooseUpContext = func(context.Context, *sql.DB, string, ...goose.OptionsFunc) error {
		return errors.New("boom")
	}

	db, _, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	err = Migrate(context.Background(), db)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "migration error")
}
