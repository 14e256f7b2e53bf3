package security_test

import (
	"testing"

	"golang.org/x/crypto/bcrypt"

	"github.com/mdsalahuddin2001/storefront-backend/pkg/security"
)

func TestHashAndVerifyPassword(t *testing.T) {
	hash, err := security.HashPassword("very-secure-password", bcrypt.MinCost)
	if err != nil {
		t.Fatalf("HashPassword returned error: %v", err)
	}

	ok, err := security.VerifyPassword("very-secure-password", hash)
	if err != nil || !ok {
		t.Fatalf("expected match, got ok=%v err=%v", ok, err)
	}

	ok, err = security.VerifyPassword("wrong", hash)
	if err != nil || ok {
		t.Fatalf("expected mismatch without error, got ok=%v err=%v", ok, err)
	}

	if _, err := security.VerifyPassword("x", "not-a-hash"); err == nil {
		t.Fatal("expected malformed hash to error")
	}
}

func TestHashPasswordRejectsShortInput(t *testing.T) {
	if _, err := security.HashPassword("abc", bcrypt.MinCost); err == nil {
		t.Fatal("expected short password to fail")
	}
}
