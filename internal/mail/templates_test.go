package mail

import (
	"strings"
	"testing"
)

func TestVerificationEmailLocales(t *testing.T) {
	tests := []struct {
		name        string
		locale      string
		wantSubject string
		wantLink    string
		wantBody    string
	}{
		{
			name:        "german variant",
			locale:      "de",
			wantSubject: "E-Mail bestätigen - membersite",
			wantLink:    "https://example.com/de/auth/verify-email?token=abc123",
			wantBody:    "E-Mail-Adresse bestätigen",
		},
		{
			name:        "english variant",
			locale:      "en",
			wantSubject: "Verify your email - membersite",
			wantLink:    "https://example.com/en/auth/verify-email?token=abc123",
			wantBody:    "Verify Your Email Address",
		},
		{
			name:        "unknown locale falls back to english",
			locale:      "fr",
			wantSubject: "Verify your email - membersite",
			wantLink:    "https://example.com/en/auth/verify-email?token=abc123",
			wantBody:    "Verify Your Email Address",
		},
		{
			name:        "empty locale falls back to english",
			locale:      "",
			wantSubject: "Verify your email - membersite",
			wantLink:    "https://example.com/en/auth/verify-email?token=abc123",
			wantBody:    "Verify Your Email Address",
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			em, err := VerificationEmail("https://example.com", tc.locale, "abc123")

			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}

			if em.Subject != tc.wantSubject {
				t.Errorf("subject = %q, want %q", em.Subject, tc.wantSubject)
			}

			if !strings.Contains(em.HTML, tc.wantLink) {
				t.Errorf("body does not contain link %q", tc.wantLink)
			}

			if !strings.Contains(em.HTML, tc.wantBody) {
				t.Errorf("body does not contain %q", tc.wantBody)
			}
		})
	}
}

func TestPasswordResetEmailLocales(t *testing.T) {
	em, err := PasswordResetEmail("https://example.com/", "de", "tok")

	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if em.Subject != "Passwort zurücksetzen - membersite" {
		t.Errorf("unexpected subject %q", em.Subject)
	}

	// trailing slash on base URL must not double up
	if !strings.Contains(em.HTML, "https://example.com/de/auth/reset-password?token=tok") {
		t.Errorf("body link malformed:\n%s", em.HTML)
	}

	en, err := PasswordResetEmail("https://example.com", "", "tok")

	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if en.Subject != "Reset your password - membersite" {
		t.Errorf("unexpected subject %q", en.Subject)
	}

	if !strings.Contains(en.HTML, "/en/auth/reset-password?token=tok") {
		t.Errorf("default-locale link missing:\n%s", en.HTML)
	}
}

func TestTokenIsQueryEscaped(t *testing.T) {
	em, err := VerificationEmail("https://example.com", "en", "a b&c")

	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if !strings.Contains(em.HTML, "token=a+b%26c") {
		t.Errorf("token not escaped:\n%s", em.HTML)
	}
}
