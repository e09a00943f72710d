package security

import (
	"encoding/hex"
	"testing"
)

func TestGenerateTokenShape(t *testing.T) {
	tok := GenerateToken()

	if len(tok) != 64 {
		t.Fatalf("expected 64 hex chars, got %d", len(tok))
	}

	if _, err := hex.DecodeString(tok); err != nil {
		t.Fatalf("token is not valid hex: %v", err)
	}
}

func TestGenerateTokenUniqueness(t *testing.T) {
	seen := make(map[string]struct{}, 1000)

	for i := 0; i < 1000; i++ {
		tok := GenerateToken()

		if _, dup := seen[tok]; dup {
			t.Fatalf("duplicate token after %d draws", i)
		}
		seen[tok] = struct{}{}
	}
}

func TestHashAndCheckPassword(t *testing.T) {
	hash, err := HashPassword("longenough1")

	if err != nil {
		t.Fatalf("hash failed: %v", err)
	}

	if hash == "longenough1" {
		t.Fatal("hash must not equal the plaintext")
	}

	if err := CheckPassword(hash, "longenough1"); err != nil {
		t.Fatalf("expected password to match: %v", err)
	}

	if err := CheckPassword(hash, "wrongpassword"); err == nil {
		t.Fatal("expected mismatch for wrong password")
	}
}
