package auth

import (
	"testing"

	"golang.org/x/crypto/bcrypt"
)

func TestPasswordHasher_HashAndCheck(t *testing.T) {
	h := NewPasswordHasher(bcrypt.MinCost)

	hash, err := h.Hash("password123")
	if err != nil {
		t.Fatalf("hash password: %v", err)
	}
	if hash == "" || hash == "password123" {
		t.Fatalf("expected an opaque hash, got %q", hash)
	}
	if !h.Check(hash, "password123") {
		t.Fatalf("expected password check to pass")
	}
	if h.Check(hash, "password124") {
		t.Fatalf("expected password check to fail")
	}
}

func TestPasswordHasher_DefaultCost(t *testing.T) {
	h := NewPasswordHasher(0)
	if h.cost != DefaultBcryptCost {
		t.Fatalf("expected cost %d, got %d", DefaultBcryptCost, h.cost)
	}
}
