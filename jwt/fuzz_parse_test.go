package jwt

import (
	"errors"
	"strings"
	"testing"
	"time"
	"unicode/utf8"
)

func newFuzzManager(f *testing.F) *Manager {
	f.Helper()
	m, err := NewManager(Config{
		AccessTTL:     time.Minute,
		SigningMethod: MethodHS256,
		PrivateKey:    []byte("fuzz-secret-fuzz-secret-fuzz-sec"),
		Issuer:        "goguard",
		KeyID:         "k1",
	})
	if err != nil {
		f.Fatal(err)
	}
	return m
}

// Anything the parser accepts must carry a uid the guards can scope to.
func FuzzParseAccess(f *testing.F) {
	m := newFuzzManager(f)
	valid, err := m.CreateAccess("42", "member")
	if err != nil {
		f.Fatal(err)
	}

	f.Add(valid)
	f.Add(valid[:len(valid)-2])
	f.Add(strings.Replace(valid, ".", "..", 1))
	f.Add("")
	f.Add("a.b.c")
	f.Add("eyJhbGciOiJub25lIn0.eyJ1aWQiOiI0MiJ9.")

	f.Fuzz(func(t *testing.T, input string) {
		claims, err := m.ParseAccess(input)
		if err != nil {
			if claims != nil {
				t.Fatal("claims returned alongside an error")
			}
			return
		}
		if strings.TrimSpace(claims.UID) == "" {
			t.Fatalf("accepted token without uid: %q", input)
		}
		if claims.Subject != "" && claims.Subject != claims.UID {
			t.Fatalf("accepted token with subject %q for uid %q", claims.Subject, claims.UID)
		}
	})
}

// Whatever CreateAccess signs, ParseAccess returns unchanged.
func FuzzAccessRoundTrip(f *testing.F) {
	m := newFuzzManager(f)
	f.Add("42", "admin")
	f.Add("user with spaces", "")
	f.Add("", "member")
	f.Add("7", "role with space")
	f.Add("ü", strings.Repeat("r", 65))

	f.Fuzz(func(t *testing.T, uid, role string) {
		if !utf8.ValidString(uid) || !utf8.ValidString(role) {
			t.Skip()
		}
		token, err := m.CreateAccess(uid, role)
		if err != nil {
			if !errors.Is(err, ErrInvalidClaims) {
				t.Fatalf("CreateAccess(%q, %q): unexpected error %v", uid, role, err)
			}
			return
		}
		claims, err := m.ParseAccess(token)
		if err != nil {
			t.Fatalf("ParseAccess of a fresh token: %v", err)
		}
		if claims.UID != uid || claims.Role != role {
			t.Fatalf("round trip changed claims: got (%q, %q), want (%q, %q)", claims.UID, claims.Role, uid, role)
		}
	})
}
