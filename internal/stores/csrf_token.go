package stores

import (
	"bytes"
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/MrEthical07/goGuard/cache"
)

const (
	csrfRecordVersionV1 = 1

	csrfFlagUsed byte = 1 << 0
)

var (
	ErrCSRFTokenNotFound      = errors.New("csrf token record not found")
	ErrCSRFStoreUnavailable   = errors.New("csrf token store unavailable")
	ErrCSRFRecordCorrupt      = errors.New("csrf token record corrupt")
	errCSRFIdentifierTooLarge = errors.New("csrf record identifier too long")
)

// CSRFTokenRecord is the stored form of one issued token.
type CSRFTokenRecord struct {
	Value      string
	Identifier string
	CreatedAt  time.Time
	ExpiresAt  time.Time
	Used       bool
}

// Expired reports whether now is past the record's expiry. A token is still
// valid at the exact expiry instant. Nil records count as expired.
func (r *CSRFTokenRecord) Expired(now time.Time) bool {
	return r == nil || now.After(r.ExpiresAt)
}

// CSRFTokenStore reads and writes token records.
type CSRFTokenStore struct {
	cache     cache.Store
	prefix    string
	retention time.Duration
}

// NewCSRFTokenStore keeps each record for retention past its expiry so an
// expired token can still be told apart from an unknown one.
func NewCSRFTokenStore(store cache.Store, prefix string, retention time.Duration) *CSRFTokenStore {
	if prefix == "" {
		prefix = "csrf"
	}
	if retention < 0 {
		retention = 0
	}
	return &CSRFTokenStore{
		cache:     store,
		prefix:    prefix,
		retention: retention,
	}
}

func (s *CSRFTokenStore) key(token string) string {
	return s.prefix + ":" + token
}

func (s *CSRFTokenStore) pattern() string {
	return s.prefix + ":*"
}

// Save writes record and expires it at record.ExpiresAt plus the retention.
func (s *CSRFTokenStore) Save(ctx context.Context, record *CSRFTokenRecord, now time.Time) error {
	encoded, err := encodeCSRFTokenRecord(record)
	if err != nil {
		return err
	}

	ttl := record.ExpiresAt.Sub(now) + s.retention
	if ttl < time.Second {
		ttl = time.Second
	}

	if err := s.cache.Set(ctx, s.key(record.Value), encoded, ttl); err != nil {
		return fmt.Errorf("%w: %v", ErrCSRFStoreUnavailable, err)
	}
	return nil
}

// Get loads the record for token. Expired records are returned as-is; the
// caller decides what expiry means.
func (s *CSRFTokenStore) Get(ctx context.Context, token string) (*CSRFTokenRecord, error) {
	data, err := s.cache.Get(ctx, s.key(token))
	if err != nil {
		if errors.Is(err, cache.ErrNotFound) {
			return nil, ErrCSRFTokenNotFound
		}
		return nil, fmt.Errorf("%w: %v", ErrCSRFStoreUnavailable, err)
	}

	record, err := decodeCSRFTokenRecord(data)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCSRFRecordCorrupt, err)
	}
	record.Value = token
	return record, nil
}

// Delete removes token. Missing tokens are not an error.
func (s *CSRFTokenStore) Delete(ctx context.Context, token string) error {
	if err := s.cache.Delete(ctx, s.key(token)); err != nil {
		return fmt.Errorf("%w: %v", ErrCSRFStoreUnavailable, err)
	}
	return nil
}

// DeleteAll removes every token record.
func (s *CSRFTokenStore) DeleteAll(ctx context.Context) error {
	if err := s.cache.Flush(ctx, s.pattern()); err != nil {
		return fmt.Errorf("%w: %v", ErrCSRFStoreUnavailable, err)
	}
	return nil
}

// DeleteWhere removes every record for which match returns true and reports
// how many were removed. Undecodable records are passed to match as nil.
func (s *CSRFTokenStore) DeleteWhere(ctx context.Context, match func(*CSRFTokenRecord) bool) (int, error) {
	keys, err := s.cache.Keys(ctx, s.pattern())
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrCSRFStoreUnavailable, err)
	}

	removed := 0
	for _, key := range keys {
		data, err := s.cache.Get(ctx, key)
		if err != nil {
			if errors.Is(err, cache.ErrNotFound) {
				continue
			}
			return removed, fmt.Errorf("%w: %v", ErrCSRFStoreUnavailable, err)
		}

		record, err := decodeCSRFTokenRecord(data)
		if err != nil {
			record = nil
		}
		if !match(record) {
			continue
		}

		if err := s.cache.Delete(ctx, key); err != nil {
			return removed, fmt.Errorf("%w: %v", ErrCSRFStoreUnavailable, err)
		}
		removed++
	}
	return removed, nil
}

func encodeCSRFTokenRecord(record *CSRFTokenRecord) ([]byte, error) {
	var buf bytes.Buffer

	buf.WriteByte(csrfRecordVersionV1)

	var flags byte
	if record.Used {
		flags |= csrfFlagUsed
	}
	buf.WriteByte(flags)

	if err := binary.Write(&buf, binary.BigEndian, record.CreatedAt.UnixMilli()); err != nil {
		return nil, err
	}
	if err := binary.Write(&buf, binary.BigEndian, record.ExpiresAt.UnixMilli()); err != nil {
		return nil, err
	}

	if len(record.Identifier) > 65535 {
		return nil, errCSRFIdentifierTooLarge
	}
	if err := binary.Write(&buf, binary.BigEndian, uint16(len(record.Identifier))); err != nil {
		return nil, err
	}
	buf.WriteString(record.Identifier)

	return buf.Bytes(), nil
}

func decodeCSRFTokenRecord(data []byte) (*CSRFTokenRecord, error) {
	reader := bytes.NewReader(data)

	version, err := reader.ReadByte()
	if err != nil {
		return nil, err
	}
	if version != csrfRecordVersionV1 {
		return nil, errors.New("invalid csrf record version")
	}

	flags, err := reader.ReadByte()
	if err != nil {
		return nil, err
	}

	var createdAt, expiresAt int64
	if err := binary.Read(reader, binary.BigEndian, &createdAt); err != nil {
		return nil, err
	}
	if err := binary.Read(reader, binary.BigEndian, &expiresAt); err != nil {
		return nil, err
	}

	var idLen uint16
	if err := binary.Read(reader, binary.BigEndian, &idLen); err != nil {
		return nil, err
	}
	identifier := make([]byte, idLen)
	if _, err := io.ReadFull(reader, identifier); err != nil {
		return nil, err
	}

	return &CSRFTokenRecord{
		Identifier: string(identifier),
		CreatedAt:  time.UnixMilli(createdAt),
		ExpiresAt:  time.UnixMilli(expiresAt),
		Used:       flags&csrfFlagUsed != 0,
	}, nil
}
