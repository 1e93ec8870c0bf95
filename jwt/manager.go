package jwt

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// SigningMethod selects the access-token signature algorithm.
type SigningMethod string

const (
	MethodEd25519 SigningMethod = "ed25519"
	MethodHS256   SigningMethod = "hs256"
)

const (
	maxLeeway           = 2 * time.Minute
	defaultMaxFutureIAT = 10 * time.Minute
	maxMaxFutureIAT     = 24 * time.Hour
)

var (
	ErrInvalidConfig   = errors.New("jwt: invalid configuration")
	ErrInvalidClaims   = errors.New("jwt: invalid claims")
	ErrMissingUID      = fmt.Errorf("%w: missing uid", ErrInvalidClaims)
	ErrUnknownKeyID    = errors.New("jwt: unknown key id")
	ErrSigningDisabled = errors.New("jwt: manager has no signing key")
	ErrFutureIssuedAt  = fmt.Errorf("%w: iat too far in the future", ErrInvalidClaims)
)

// Config configures a Manager. Verification-only deployments may leave
// PrivateKey empty for ed25519; CreateAccess then fails.
type Config struct {
	AccessTTL     time.Duration
	SigningMethod SigningMethod
	PrivateKey    []byte
	PublicKey     []byte
	Issuer        string
	Audience      string
	Leeway        time.Duration
	RequireIAT    bool
	MaxFutureIAT  time.Duration
	KeyID         string
	VerifyKeys    map[string][]byte

	// Now overrides the clock used for signing and validation.
	Now func() time.Time
}

// Manager signs and verifies access tokens that identify the requester for
// the admission guards. Keys and parser options are resolved once in
// NewManager.
type Manager struct {
	method       jwt.SigningMethod
	signKey      any
	keys         keyring
	parser       *jwt.Parser
	ttl          time.Duration
	issuer       string
	audience     string
	kid          string
	maxFutureIAT time.Duration
	now          func() time.Time
}

// NewManager validates cfg and returns a Manager.
func NewManager(cfg Config) (*Manager, error) {
	if cfg.AccessTTL <= 0 {
		return nil, fmt.Errorf("%w: access ttl must be positive", ErrInvalidConfig)
	}
	if cfg.Leeway < 0 || cfg.Leeway > maxLeeway {
		return nil, fmt.Errorf("%w: leeway must be within [0, %v]", ErrInvalidConfig, maxLeeway)
	}
	if cfg.MaxFutureIAT == 0 {
		cfg.MaxFutureIAT = defaultMaxFutureIAT
	}
	if cfg.MaxFutureIAT < 0 || cfg.MaxFutureIAT > maxMaxFutureIAT {
		return nil, fmt.Errorf("%w: max future iat must be within (0, %v]", ErrInvalidConfig, maxMaxFutureIAT)
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	cfg.KeyID = strings.TrimSpace(cfg.KeyID)

	signKey, err := signingKey(cfg)
	if err != nil {
		return nil, err
	}
	keys, err := buildKeyring(cfg)
	if err != nil {
		return nil, err
	}

	m := &Manager{
		method:       methodFor(cfg.SigningMethod),
		signKey:      signKey,
		keys:         keys,
		ttl:          cfg.AccessTTL,
		issuer:       cfg.Issuer,
		audience:     cfg.Audience,
		kid:          cfg.KeyID,
		maxFutureIAT: cfg.MaxFutureIAT,
		now:          cfg.Now,
	}
	m.parser = jwt.NewParser(m.parserOptions(cfg)...)
	return m, nil
}

func methodFor(method SigningMethod) jwt.SigningMethod {
	if method == MethodHS256 {
		return jwt.SigningMethodHS256
	}
	return jwt.SigningMethodEdDSA
}

func (m *Manager) parserOptions(cfg Config) []jwt.ParserOption {
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{m.method.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(m.now),
	}
	if cfg.Leeway > 0 {
		opts = append(opts, jwt.WithLeeway(cfg.Leeway))
	}
	if cfg.RequireIAT {
		opts = append(opts, jwt.WithIssuedAt())
	}
	if cfg.Issuer != "" {
		opts = append(opts, jwt.WithIssuer(cfg.Issuer))
	}
	if cfg.Audience != "" {
		opts = append(opts, jwt.WithAudience(cfg.Audience))
	}
	return opts
}

// CreateAccess signs a token for uid with the given role. The subject
// mirrors the uid.
func (m *Manager) CreateAccess(uid, role string) (string, error) {
	if m.signKey == nil {
		return "", ErrSigningDisabled
	}
	if err := validUID(uid); err != nil {
		return "", err
	}
	if err := validRole(role); err != nil {
		return "", err
	}

	now := m.now()
	claims := AccessClaims{
		UID:  uid,
		Role: role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   uid,
			Issuer:    m.issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(m.ttl)),
		},
	}
	if m.audience != "" {
		claims.Audience = jwt.ClaimStrings{m.audience}
	}

	token := jwt.NewWithClaims(m.method, claims)
	if m.kid != "" {
		token.Header["kid"] = m.kid
	}
	return token.SignedString(m.signKey)
}

// ParseAccess verifies tokenStr and returns its claims. Tokens without a uid,
// without an expiry, or with a subject that disagrees with the uid are
// rejected.
func (m *Manager) ParseAccess(tokenStr string) (*AccessClaims, error) {
	claims := &AccessClaims{}
	if _, err := m.parser.ParseWithClaims(tokenStr, claims, m.keys.lookup); err != nil {
		return nil, err
	}
	if claims.IssuedAt != nil && claims.IssuedAt.After(m.now().Add(m.maxFutureIAT)) {
		return nil, ErrFutureIssuedAt
	}
	return claims, nil
}
