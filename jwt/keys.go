package jwt

import (
	"crypto/ed25519"
	"errors"
	"fmt"
	"strings"

	"github.com/golang-jwt/jwt/v5"
)

// keyring holds verification keys resolved once at construction. The empty
// kid is the fallback key for tokens that carry no kid header.
type keyring struct {
	keys       map[string]any
	requireKid bool
}

func (k keyring) lookup(t *jwt.Token) (any, error) {
	if !k.requireKid {
		return k.keys[""], nil
	}
	kid, _ := t.Header["kid"].(string)
	if kid == "" {
		return nil, fmt.Errorf("%w: missing kid", ErrUnknownKeyID)
	}
	key, ok := k.keys[kid]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownKeyID, kid)
	}
	return key, nil
}

func buildKeyring(cfg Config) (keyring, error) {
	ring := keyring{keys: make(map[string]any)}

	switch cfg.SigningMethod {
	case MethodHS256:
		if len(cfg.VerifyKeys) == 0 {
			ring.keys[cfg.KeyID] = cfg.PrivateKey
		}
		for kid, secret := range cfg.VerifyKeys {
			if len(secret) == 0 {
				return keyring{}, fmt.Errorf("%w: empty secret for kid %q", ErrInvalidConfig, kid)
			}
			ring.keys[kid] = secret
		}
	case MethodEd25519:
		if len(cfg.VerifyKeys) == 0 {
			pub, err := edPublicKey(cfg)
			if err != nil {
				return keyring{}, err
			}
			ring.keys[cfg.KeyID] = pub
		}
		for kid, raw := range cfg.VerifyKeys {
			pub, err := parseEdPublicKey(raw)
			if err != nil {
				return keyring{}, fmt.Errorf("%w: kid %q: %v", ErrInvalidConfig, kid, err)
			}
			ring.keys[kid] = pub
		}
	}

	for kid := range cfg.VerifyKeys {
		if strings.TrimSpace(kid) == "" {
			return keyring{}, fmt.Errorf("%w: verify key map contains empty kid", ErrInvalidConfig)
		}
	}
	ring.requireKid = cfg.KeyID != "" || len(cfg.VerifyKeys) > 0
	if cfg.KeyID != "" {
		if _, ok := ring.keys[cfg.KeyID]; !ok {
			return keyring{}, fmt.Errorf("%w: KeyID %q is not a verify key", ErrInvalidConfig, cfg.KeyID)
		}
	}
	return ring, nil
}

// signingKey returns nil for a verification-only ed25519 manager.
func signingKey(cfg Config) (any, error) {
	switch cfg.SigningMethod {
	case MethodHS256:
		if len(cfg.PrivateKey) == 0 {
			return nil, fmt.Errorf("%w: hs256 requires a secret", ErrInvalidConfig)
		}
		return cfg.PrivateKey, nil
	case MethodEd25519:
		if len(cfg.PrivateKey) == 0 {
			return nil, nil
		}
		priv, err := parseEdPrivateKey(cfg.PrivateKey)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidConfig, err)
		}
		return priv, nil
	default:
		return nil, fmt.Errorf("%w: unsupported signing method %q", ErrInvalidConfig, cfg.SigningMethod)
	}
}

// edPublicKey prefers PublicKey and derives it from PrivateKey otherwise.
func edPublicKey(cfg Config) (ed25519.PublicKey, error) {
	if len(cfg.PublicKey) > 0 {
		pub, err := parseEdPublicKey(cfg.PublicKey)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidConfig, err)
		}
		return pub, nil
	}
	if len(cfg.PrivateKey) > 0 {
		priv, err := parseEdPrivateKey(cfg.PrivateKey)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidConfig, err)
		}
		return priv.Public().(ed25519.PublicKey), nil
	}
	return nil, fmt.Errorf("%w: ed25519 requires a public key or verify key set", ErrInvalidConfig)
}

func parseEdPrivateKey(key []byte) (ed25519.PrivateKey, error) {
	if len(key) == ed25519.PrivateKeySize {
		return ed25519.PrivateKey(key), nil
	}
	parsed, err := jwt.ParseEdPrivateKeyFromPEM(key)
	if err != nil {
		return nil, errors.New("invalid ed25519 private key")
	}
	priv, ok := parsed.(ed25519.PrivateKey)
	if !ok {
		return nil, errors.New("invalid ed25519 private key type")
	}
	return priv, nil
}

func parseEdPublicKey(key []byte) (ed25519.PublicKey, error) {
	if len(key) == ed25519.PublicKeySize {
		return ed25519.PublicKey(key), nil
	}
	parsed, err := jwt.ParseEdPublicKeyFromPEM(key)
	if err != nil {
		return nil, errors.New("invalid ed25519 public key")
	}
	pub, ok := parsed.(ed25519.PublicKey)
	if !ok {
		return nil, errors.New("invalid ed25519 public key type")
	}
	return pub, nil
}
