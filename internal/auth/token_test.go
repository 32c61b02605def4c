package auth

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

func mustIssuer(t *testing.T, secret string, ttl time.Duration) *TokenIssuer {
	t.Helper()
	i, err := NewTokenIssuer(secret, ttl)
	if err != nil {
		t.Fatalf("new token issuer: %v", err)
	}
	return i
}

func TestTokenIssuer_IssueAndVerify(t *testing.T) {
	t.Parallel()

	issuer := mustIssuer(t, "super-secret", time.Hour)

	tok, claims, err := issuer.Issue("user-123")
	if err != nil {
		t.Fatalf("Issue error: %v", err)
	}
	if claims.ID == "" {
		t.Fatalf("expected a token id")
	}

	got, err := issuer.UserID(tok)
	if err != nil {
		t.Fatalf("UserID error: %v", err)
	}
	if got != "user-123" {
		t.Fatalf("userID mismatch: got %q want %q", got, "user-123")
	}
}

func TestTokenIssuer_UniqueTokenIDs(t *testing.T) {
	t.Parallel()

	issuer := mustIssuer(t, "k", time.Hour)
	_, a, err := issuer.Issue("u")
	if err != nil {
		t.Fatalf("Issue error: %v", err)
	}
	_, b, err := issuer.Issue("u")
	if err != nil {
		t.Fatalf("Issue error: %v", err)
	}
	if a.ID == b.ID {
		t.Fatalf("expected distinct token ids")
	}
}

func TestTokenIssuer_DefaultTTL(t *testing.T) {
	t.Parallel()

	issuer := mustIssuer(t, "k", 0)
	if issuer.TTL() != DefaultTokenTTL {
		t.Fatalf("expected default ttl %v, got %v", DefaultTokenTTL, issuer.TTL())
	}
	_, claims, err := issuer.Issue("u")
	if err != nil {
		t.Fatalf("Issue error: %v", err)
	}
	ttl := claims.TTL(time.Now())
	if ttl <= 23*time.Hour || ttl > 24*time.Hour {
		t.Fatalf("unexpected ttl %v", ttl)
	}
}

func TestTokenIssuer_Expired(t *testing.T) {
	t.Parallel()

	issuer := mustIssuer(t, "secret", 24*time.Hour)
	issuer.now = func() time.Time { return time.Now().Add(-25 * time.Hour) }
	tok, _, err := issuer.Issue("u1")
	if err != nil {
		t.Fatalf("Issue error: %v", err)
	}
	issuer.now = time.Now

	_, err = issuer.Verify(tok)
	if !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected ErrInvalidToken for expired token, got %v", err)
	}
}

func TestTokenIssuer_WrongSecret(t *testing.T) {
	t.Parallel()

	tok, _, err := mustIssuer(t, "right-secret", time.Hour).Issue("u2")
	if err != nil {
		t.Fatalf("Issue error: %v", err)
	}

	_, err = mustIssuer(t, "wrong-secret", time.Hour).Verify(tok)
	if !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected ErrInvalidToken for bad signature, got %v", err)
	}
}

func TestTokenIssuer_Malformed(t *testing.T) {
	t.Parallel()

	issuer := mustIssuer(t, "k", time.Hour)
	for _, tok := range []string{"", "not.a.jwt", "abc"} {
		if _, err := issuer.Verify(tok); !errors.Is(err, ErrInvalidToken) {
			t.Fatalf("expected ErrInvalidToken for %q, got %v", tok, err)
		}
	}
}

func TestTokenIssuer_RejectsOtherAlgorithms(t *testing.T) {
	t.Parallel()

	claims := &Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "u",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
		UserID: "u",
	}
	tok, err := jwt.NewWithClaims(jwt.SigningMethodNone, claims).SignedString(jwt.UnsafeAllowNoneSignatureType)
	if err != nil {
		t.Fatalf("sign none token: %v", err)
	}

	if _, err := mustIssuer(t, "k", time.Hour).Verify(tok); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected ErrInvalidToken for alg=none, got %v", err)
	}
}

func TestTokenIssuer_RequiresExpiry(t *testing.T) {
	t.Parallel()

	claims := &Claims{RegisteredClaims: jwt.RegisteredClaims{Subject: "u"}, UserID: "u"}
	tok, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("k"))
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	if _, err := mustIssuer(t, "k", time.Hour).Verify(tok); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected ErrInvalidToken without exp, got %v", err)
	}
}

func TestNewTokenIssuer_RequiresSecret(t *testing.T) {
	t.Parallel()

	if _, err := NewTokenIssuer(strings.Repeat(" ", 3), time.Hour); err == nil {
		t.Fatalf("expected error for empty secret")
	}
}
