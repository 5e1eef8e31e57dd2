package auth

import (
	"testing"
	"time"
)

func TestMintAndVerify(t *testing.T) {
	v := NewVerifier("test-secret")
	token, err := v.Mint("admin@example.com", time.Hour)
	if err != nil {
		t.Fatalf("mint failed: %v", err)
	}
	claims, err := v.Verify(token)
	if err != nil {
		t.Fatalf("verify failed: %v", err)
	}
	if claims.Email != "admin@example.com" {
		t.Fatalf("got email %q", claims.Email)
	}
}

func TestVerifyWrongSecret(t *testing.T) {
	token, err := NewVerifier("secret-a").Mint("a@example.com", time.Hour)
	if err != nil {
		t.Fatalf("mint failed: %v", err)
	}
	if _, err := NewVerifier("secret-b").Verify(token); err == nil {
		t.Fatalf("expected verification to fail with the wrong secret")
	}
}

func TestVerifyExpired(t *testing.T) {
	v := NewVerifier("test-secret")
	token, err := v.Mint("a@example.com", -time.Minute)
	if err != nil {
		t.Fatalf("mint failed: %v", err)
	}
	if _, err := v.Verify(token); err == nil {
		t.Fatalf("expected expired token to fail")
	}
}

func TestVerifyEmpty(t *testing.T) {
	if _, err := NewVerifier("test-secret").Verify("  "); err == nil {
		t.Fatalf("expected empty token to fail")
	}
}
