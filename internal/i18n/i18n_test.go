package i18n

import "testing"

func TestNormalize(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"en", "en"},
		{"de", "de"},
		{"fr", "en"},
		{"", "en"},
		{"EN", "en"},
	}

	for _, tc := range tests {
		if got := Normalize(tc.in); got != tc.want {
			t.Errorf("Normalize(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestFromPath(t *testing.T) {
	tests := []struct {
		path string
		want string
	}{
		{"/en/page", "en"},
		{"/de/auth/login", "de"},
		{"/fr/page", "en"},
		{"/members", "en"},
		{"/", "en"},
		{"/de", "de"},
	}

	for _, tc := range tests {
		if got := FromPath(tc.path); got != tc.want {
			t.Errorf("FromPath(%q) = %q, want %q", tc.path, got, tc.want)
		}
	}
}

func TestStripLocale(t *testing.T) {
	tests := []struct {
		path string
		want string
	}{
		{"/en/members", "/members"},
		{"/de/members/anything", "/members/anything"},
		{"/en", "/"},
		{"/members", "/members"},
		{"/fr/page", "/fr/page"},
		{"/", "/"},
	}

	for _, tc := range tests {
		if got := StripLocale(tc.path); got != tc.want {
			t.Errorf("StripLocale(%q) = %q, want %q", tc.path, got, tc.want)
		}
	}
}
