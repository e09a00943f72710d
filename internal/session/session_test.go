package session

import (
	"errors"
	"testing"
	"time"
)

func TestIssueAndVerify(t *testing.T) {
	m := NewManager("test-secret", time.Hour)

	raw, expiresAt, err := m.Issue("u-1", "ada@x.com", "user")

	if err != nil {
		t.Fatalf("issue failed: %v", err)
	}

	if time.Until(expiresAt) <= 0 {
		t.Fatal("expiry must be in the future")
	}

	claims, err := m.Verify(raw)

	if err != nil {
		t.Fatalf("verify failed: %v", err)
	}

	if claims.UserID != "u-1" || claims.Email != "ada@x.com" || claims.Role != "user" {
		t.Errorf("unexpected claims: %+v", claims)
	}

	if claims.JTI == "" {
		t.Error("expected a jti")
	}
}

func TestVerifyRejectsWrongSecret(t *testing.T) {
	issuer := NewManager("secret-a", time.Hour)
	verifier := NewManager("secret-b", time.Hour)

	raw, _, err := issuer.Issue("u-1", "a@b.c", "user")
	if err != nil {
		t.Fatalf("issue failed: %v", err)
	}

	if _, err := verifier.Verify(raw); !errors.Is(err, ErrInvalidSession) {
		t.Fatalf("expected ErrInvalidSession, got %v", err)
	}
}

func TestVerifyRejectsExpired(t *testing.T) {
	m := NewManager("test-secret", -time.Minute)

	raw, _, err := m.Issue("u-1", "a@b.c", "user")
	if err != nil {
		t.Fatalf("issue failed: %v", err)
	}

	if _, err := m.Verify(raw); !errors.Is(err, ErrInvalidSession) {
		t.Fatalf("expected ErrInvalidSession for expired token, got %v", err)
	}
}

func TestVerifyRejectsGarbage(t *testing.T) {
	m := NewManager("test-secret", time.Hour)

	if _, err := m.Verify("not-a-jwt"); !errors.Is(err, ErrInvalidSession) {
		t.Fatalf("expected ErrInvalidSession, got %v", err)
	}
}
