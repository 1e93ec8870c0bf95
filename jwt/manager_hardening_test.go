package jwt

import (
	"crypto/ed25519"
	"crypto/rand"
	"errors"
	"strings"
	"testing"
	"time"

	gjwt "github.com/golang-jwt/jwt/v5"
)

func newEdKeys(t *testing.T) (ed25519.PublicKey, ed25519.PrivateKey) {
	t.Helper()
	pub, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		t.Fatalf("generate ed25519 key: %v", err)
	}
	return pub, priv
}

func TestParseAccessRejectsWrongAlgorithm(t *testing.T) {
	pub, _ := newEdKeys(t)
	m, err := NewManager(Config{AccessTTL: time.Minute, SigningMethod: MethodEd25519, PublicKey: pub})
	if err != nil {
		t.Fatalf("new manager: %v", err)
	}

	claims := AccessClaims{UID: "u1", RegisteredClaims: gjwt.RegisteredClaims{ExpiresAt: gjwt.NewNumericDate(time.Now().Add(time.Minute))}}
	tok := gjwt.NewWithClaims(gjwt.SigningMethodHS256, claims)
	token, err := tok.SignedString([]byte("secret-secret-secret-secret"))
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}

	if _, err := m.ParseAccess(token); err == nil {
		t.Fatal("expected wrong algorithm to be rejected")
	}
}

func TestParseAccessIssuerAudienceAndLeeway(t *testing.T) {
	_, priv := newEdKeys(t)
	m, err := NewManager(Config{
		AccessTTL:     time.Minute,
		SigningMethod: MethodEd25519,
		PrivateKey:    priv,
		PublicKey:     priv.Public().(ed25519.PublicKey),
		Issuer:        "goguard",
		Audience:      "api",
		Leeway:        30 * time.Second,
	})
	if err != nil {
		t.Fatalf("new manager: %v", err)
	}

	access, err := m.CreateAccess("u", "admin")
	if err != nil {
		t.Fatalf("create access: %v", err)
	}
	if _, err := m.ParseAccess(access); err != nil {
		t.Fatalf("expected valid token to parse: %v", err)
	}

	wrongIssuer := AccessClaims{UID: "u1", RegisteredClaims: gjwt.RegisteredClaims{
		Issuer:    "other",
		Audience:  gjwt.ClaimStrings{"api"},
		ExpiresAt: gjwt.NewNumericDate(time.Now().Add(time.Minute)),
		IssuedAt:  gjwt.NewNumericDate(time.Now()),
	}}
	badIssuerTok := gjwt.NewWithClaims(gjwt.SigningMethodEdDSA, wrongIssuer)
	badIssuer, _ := badIssuerTok.SignedString(priv)
	if _, err := m.ParseAccess(badIssuer); err == nil {
		t.Fatal("expected wrong issuer to fail")
	}

	wrongAudience := AccessClaims{UID: "u1", RegisteredClaims: gjwt.RegisteredClaims{
		Issuer:    "goguard",
		Audience:  gjwt.ClaimStrings{"other-api"},
		ExpiresAt: gjwt.NewNumericDate(time.Now().Add(time.Minute)),
		IssuedAt:  gjwt.NewNumericDate(time.Now()),
	}}
	badAudienceTok := gjwt.NewWithClaims(gjwt.SigningMethodEdDSA, wrongAudience)
	badAudience, _ := badAudienceTok.SignedString(priv)
	if _, err := m.ParseAccess(badAudience); err == nil {
		t.Fatal("expected wrong audience to fail")
	}

	expWithinLeeway := AccessClaims{UID: "u1", RegisteredClaims: gjwt.RegisteredClaims{
		Issuer:    "goguard",
		Audience:  gjwt.ClaimStrings{"api"},
		ExpiresAt: gjwt.NewNumericDate(time.Now().Add(-15 * time.Second)),
		IssuedAt:  gjwt.NewNumericDate(time.Now().Add(-time.Minute)),
	}}
	withinTok := gjwt.NewWithClaims(gjwt.SigningMethodEdDSA, expWithinLeeway)
	within, _ := withinTok.SignedString(priv)
	if _, err := m.ParseAccess(within); err != nil {
		t.Fatalf("expected token within leeway to pass: %v", err)
	}

	expired := AccessClaims{UID: "u1", RegisteredClaims: gjwt.RegisteredClaims{
		Issuer:    "goguard",
		Audience:  gjwt.ClaimStrings{"api"},
		ExpiresAt: gjwt.NewNumericDate(time.Now().Add(-2 * time.Minute)),
		IssuedAt:  gjwt.NewNumericDate(time.Now().Add(-3 * time.Minute)),
	}}
	expiredTok := gjwt.NewWithClaims(gjwt.SigningMethodEdDSA, expired)
	expiredSigned, _ := expiredTok.SignedString(priv)
	if _, err := m.ParseAccess(expiredSigned); err == nil {
		t.Fatal("expected expired token to fail")
	}
}

func TestParseAccessUnknownKidFails(t *testing.T) {
	pub1, priv1 := newEdKeys(t)
	pub2, _ := newEdKeys(t)
	m, err := NewManager(Config{
		AccessTTL:     time.Minute,
		SigningMethod: MethodEd25519,
		PrivateKey:    priv1,
		PublicKey:     pub1,
		KeyID:         "k1",
		VerifyKeys: map[string][]byte{
			"k1": pub1,
		},
	})
	if err != nil {
		t.Fatalf("new manager: %v", err)
	}

	claims := AccessClaims{UID: "u1", RegisteredClaims: gjwt.RegisteredClaims{ExpiresAt: gjwt.NewNumericDate(time.Now().Add(time.Minute))}}
	tok := gjwt.NewWithClaims(gjwt.SigningMethodEdDSA, claims)
	tok.Header["kid"] = "k2"
	token, err := tok.SignedString(priv1)
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	if _, err := m.ParseAccess(token); !errors.Is(err, ErrUnknownKeyID) {
		t.Fatalf("expected ErrUnknownKeyID, got %v", err)
	}

	tok2 := gjwt.NewWithClaims(gjwt.SigningMethodEdDSA, claims)
	tok2.Header["kid"] = "k1"
	good, _ := tok2.SignedString(priv1)
	if _, err := m.ParseAccess(good); err != nil {
		t.Fatalf("expected known kid token to pass: %v", err)
	}

	m2, _ := NewManager(Config{AccessTTL: time.Minute, SigningMethod: MethodEd25519, PublicKey: pub2, VerifyKeys: map[string][]byte{"k2": pub2}})
	if _, err := m2.ParseAccess(good); err == nil {
		t.Fatal("expected parse failure with mismatched key set")
	}
}

func TestCreateAccessRoundTripHS256(t *testing.T) {
	m, err := NewManager(Config{
		AccessTTL:     time.Minute,
		SigningMethod: MethodHS256,
		PrivateKey:    []byte("0123456789abcdef0123456789abcdef"),
		Issuer:        "goguard",
	})
	if err != nil {
		t.Fatalf("new manager: %v", err)
	}

	token, err := m.CreateAccess("42", "admin")
	if err != nil {
		t.Fatalf("create access: %v", err)
	}
	claims, err := m.ParseAccess(token)
	if err != nil {
		t.Fatalf("parse access: %v", err)
	}
	if claims.UID != "42" || claims.Role != "admin" || claims.Subject != "42" {
		t.Fatalf("unexpected claims %+v", claims)
	}

	if _, err := m.CreateAccess(" ", "admin"); err == nil {
		t.Fatal("expected empty uid to be rejected")
	}
}

func TestParseAccessRejectsMissingUID(t *testing.T) {
	secret := []byte("0123456789abcdef0123456789abcdef")
	m, err := NewManager(Config{AccessTTL: time.Minute, SigningMethod: MethodHS256, PrivateKey: secret})
	if err != nil {
		t.Fatalf("new manager: %v", err)
	}

	claims := AccessClaims{Role: "admin", RegisteredClaims: gjwt.RegisteredClaims{ExpiresAt: gjwt.NewNumericDate(time.Now().Add(time.Minute))}}
	token, err := gjwt.NewWithClaims(gjwt.SigningMethodHS256, claims).SignedString(secret)
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	if _, err := m.ParseAccess(token); err == nil {
		t.Fatal("expected token without uid to be rejected")
	}
}

func TestCreateAccessWithoutPrivateKeyFails(t *testing.T) {
	pub, _ := newEdKeys(t)
	m, err := NewManager(Config{AccessTTL: time.Minute, SigningMethod: MethodEd25519, PublicKey: pub})
	if err != nil {
		t.Fatalf("new manager: %v", err)
	}
	if _, err := m.CreateAccess("u", ""); !errors.Is(err, ErrSigningDisabled) {
		t.Fatalf("expected ErrSigningDisabled, got %v", err)
	}
}

var hsSecret = []byte("0123456789abcdef0123456789abcdef")

func newHSManager(t *testing.T, mutate func(*Config)) *Manager {
	t.Helper()
	cfg := Config{AccessTTL: time.Minute, SigningMethod: MethodHS256, PrivateKey: hsSecret}
	if mutate != nil {
		mutate(&cfg)
	}
	m, err := NewManager(cfg)
	if err != nil {
		t.Fatalf("new manager: %v", err)
	}
	return m
}

func signHS(t *testing.T, claims AccessClaims) string {
	t.Helper()
	token, err := gjwt.NewWithClaims(gjwt.SigningMethodHS256, claims).SignedString(hsSecret)
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	return token
}

func TestParseAccessRejectsSubjectMismatch(t *testing.T) {
	m := newHSManager(t, nil)

	token := signHS(t, AccessClaims{UID: "42", RegisteredClaims: gjwt.RegisteredClaims{
		Subject:   "43",
		ExpiresAt: gjwt.NewNumericDate(time.Now().Add(time.Minute)),
	}})
	if _, err := m.ParseAccess(token); !errors.Is(err, ErrInvalidClaims) {
		t.Fatalf("expected ErrInvalidClaims, got %v", err)
	}
}

func TestParseAccessRequiresExpiry(t *testing.T) {
	m := newHSManager(t, nil)

	token := signHS(t, AccessClaims{UID: "42"})
	if _, err := m.ParseAccess(token); !errors.Is(err, gjwt.ErrTokenRequiredClaimMissing) {
		t.Fatalf("expected missing exp to be rejected, got %v", err)
	}
}

func TestRoleValidation(t *testing.T) {
	m := newHSManager(t, nil)

	for _, role := range []string{"has space", "tab\t", "new\nline", strings.Repeat("r", maxRoleLength+1)} {
		if _, err := m.CreateAccess("42", role); !errors.Is(err, ErrInvalidClaims) {
			t.Fatalf("CreateAccess role %q: expected ErrInvalidClaims, got %v", role, err)
		}
		token := signHS(t, AccessClaims{UID: "42", Role: role, RegisteredClaims: gjwt.RegisteredClaims{
			ExpiresAt: gjwt.NewNumericDate(time.Now().Add(time.Minute)),
		}})
		if _, err := m.ParseAccess(token); err == nil {
			t.Fatalf("ParseAccess accepted role %q", role)
		}
	}

	if _, err := m.CreateAccess("42", "billing-admin"); err != nil {
		t.Fatalf("expected plain role to sign: %v", err)
	}
}

func TestClockOverrideAndFutureIAT(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	m := newHSManager(t, func(c *Config) {
		c.Now = func() time.Time { return now }
		c.MaxFutureIAT = time.Minute
	})

	token, err := m.CreateAccess("42", "")
	if err != nil {
		t.Fatalf("create access: %v", err)
	}
	claims, err := m.ParseAccess(token)
	if err != nil {
		t.Fatalf("parse access: %v", err)
	}
	if !claims.ExpiresAt.Equal(now.Add(time.Minute)) {
		t.Fatalf("expected expiry from injected clock, got %v", claims.ExpiresAt)
	}

	now = now.Add(2 * time.Minute)
	if _, err := m.ParseAccess(token); !errors.Is(err, gjwt.ErrTokenExpired) {
		t.Fatalf("expected expiry against injected clock, got %v", err)
	}

	future := signHS(t, AccessClaims{UID: "42", RegisteredClaims: gjwt.RegisteredClaims{
		IssuedAt:  gjwt.NewNumericDate(now.Add(time.Hour)),
		ExpiresAt: gjwt.NewNumericDate(now.Add(2 * time.Hour)),
	}})
	if _, err := m.ParseAccess(future); err == nil {
		t.Fatal("expected far-future iat to be rejected")
	}
}

func TestEd25519PublicKeyDerivedFromPrivate(t *testing.T) {
	_, priv := newEdKeys(t)
	m, err := NewManager(Config{AccessTTL: time.Minute, SigningMethod: MethodEd25519, PrivateKey: priv})
	if err != nil {
		t.Fatalf("new manager: %v", err)
	}
	token, err := m.CreateAccess("42", "member")
	if err != nil {
		t.Fatalf("create access: %v", err)
	}
	if _, err := m.ParseAccess(token); err != nil {
		t.Fatalf("parse access: %v", err)
	}
}

func TestNewManagerRejectsBadConfig(t *testing.T) {
	pub, _ := newEdKeys(t)
	cases := map[string]Config{
		"zero ttl":          {SigningMethod: MethodHS256, PrivateKey: hsSecret},
		"leeway too large":  {AccessTTL: time.Minute, SigningMethod: MethodHS256, PrivateKey: hsSecret, Leeway: time.Hour},
		"hs256 no secret":   {AccessTTL: time.Minute, SigningMethod: MethodHS256},
		"ed25519 no keys":   {AccessTTL: time.Minute, SigningMethod: MethodEd25519},
		"unknown method":    {AccessTTL: time.Minute, SigningMethod: "rs256", PrivateKey: hsSecret},
		"kid not in set":    {AccessTTL: time.Minute, SigningMethod: MethodEd25519, KeyID: "k9", VerifyKeys: map[string][]byte{"k1": pub}},
		"empty kid in set":  {AccessTTL: time.Minute, SigningMethod: MethodEd25519, VerifyKeys: map[string][]byte{" ": pub}},
		"bad verify key":    {AccessTTL: time.Minute, SigningMethod: MethodEd25519, VerifyKeys: map[string][]byte{"k1": []byte("short")}},
		"future iat bounds": {AccessTTL: time.Minute, SigningMethod: MethodHS256, PrivateKey: hsSecret, MaxFutureIAT: 48 * time.Hour},
	}
	for name, cfg := range cases {
		if _, err := NewManager(cfg); !errors.Is(err, ErrInvalidConfig) {
			t.Fatalf("%s: expected ErrInvalidConfig, got %v", name, err)
		}
	}
}
