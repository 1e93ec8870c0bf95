package jwt

import (
	"fmt"
	"strings"
	"unicode"

	"github.com/golang-jwt/jwt/v5"
)

const maxRoleLength = 64

// AccessClaims is the payload carried by an access token. UID names the user
// whose rate-limit window and CSRF tokens the request is scoped to.
type AccessClaims struct {
	UID  string `json:"uid"`
	Role string `json:"role,omitempty"`
	jwt.RegisteredClaims
}

// Validate is run by the parser after the registered claims pass. A token
// must name a uid, a subject (when present) must agree with it, and the role
// must be a short printable label.
func (c AccessClaims) Validate() error {
	if err := validUID(c.UID); err != nil {
		return err
	}
	if c.Subject != "" && c.Subject != c.UID {
		return fmt.Errorf("%w: subject does not match uid", ErrInvalidClaims)
	}
	return validRole(c.Role)
}

func validUID(uid string) error {
	if strings.TrimSpace(uid) == "" {
		return ErrMissingUID
	}
	return nil
}

func validRole(role string) error {
	if len(role) > maxRoleLength {
		return fmt.Errorf("%w: role longer than %d bytes", ErrInvalidClaims, maxRoleLength)
	}
	for _, r := range role {
		if unicode.IsSpace(r) || !unicode.IsPrint(r) {
			return fmt.Errorf("%w: role contains %q", ErrInvalidClaims, r)
		}
	}
	return nil
}
