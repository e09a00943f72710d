package middlewares

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/mhofmann/membersite/internal/session"
)

type fakeAuthority struct {
	valid map[string]*session.Claims
}

func (f *fakeAuthority) Verify(token string) (*session.Claims, error) {
	if c, ok := f.valid[token]; ok {
		return c, nil
	}
	return nil, errors.New("invalid")
}

func guardRouter(t *testing.T, authority session.Authority) *gin.Engine {
	t.Helper()

	gin.SetMode(gin.TestMode)

	r := gin.New()
	guard := NewRouteGuard(authority, []string{"/members"})

	r.Use(guard.Handler())

	r.NoRoute(func(ctx *gin.Context) {
		ctx.String(http.StatusOK, "page")
	})

	return r
}

func TestRouteGuardRedirectsUnauthenticated(t *testing.T) {
	r := guardRouter(t, &fakeAuthority{})

	tests := []struct {
		path     string
		wantLoc  string
	}{
		{"/en/members", "/en/auth/login?callbackUrl=%2Fen%2Fmembers"},
		{"/de/members/anything", "/de/auth/login?callbackUrl=%2Fde%2Fmembers%2Fanything"},
		{"/members", "/en/auth/login?callbackUrl=%2Fmembers"},
	}

	for _, tc := range tests {
		t.Run(tc.path, func(t *testing.T) {
			w := httptest.NewRecorder()
			req := httptest.NewRequest(http.MethodGet, tc.path, nil)

			r.ServeHTTP(w, req)

			if w.Code != http.StatusFound {
				t.Fatalf("status = %d, want 302", w.Code)
			}

			if got := w.Header().Get("Location"); got != tc.wantLoc {
				t.Errorf("location = %q, want %q", got, tc.wantLoc)
			}
		})
	}
}

func TestRouteGuardLeavesPublicPathsAlone(t *testing.T) {
	r := guardRouter(t, &fakeAuthority{})

	for _, path := range []string{"/en", "/en/auth/login", "/en/impressum", "/de"} {
		t.Run(path, func(t *testing.T) {
			w := httptest.NewRecorder()
			req := httptest.NewRequest(http.MethodGet, path, nil)

			r.ServeHTTP(w, req)

			if w.Code != http.StatusOK {
				t.Errorf("status = %d, want 200", w.Code)
			}
		})
	}
}

func TestRouteGuardBypassesAPIAndAssets(t *testing.T) {
	r := guardRouter(t, &fakeAuthority{})

	// These would otherwise be protected or locale-redirected; bypass means
	// they pass through untouched.
	for _, path := range []string{
		"/api/auth/login",
		"/_next/chunk.js",
		"/_vercel/insights",
		"/static/app.css",
		"/assets/logo.png",
		"/members/logo.png",
	} {
		t.Run(path, func(t *testing.T) {
			w := httptest.NewRecorder()
			req := httptest.NewRequest(http.MethodGet, path, nil)

			r.ServeHTTP(w, req)

			if w.Code != http.StatusOK {
				t.Errorf("status = %d, want 200 (bypass)", w.Code)
			}
		})
	}
}

func TestRouteGuardAllowsAuthenticatedMember(t *testing.T) {
	authority := &fakeAuthority{
		valid: map[string]*session.Claims{
			"good-token": {UserID: "u-1", Email: "ada@x.com", Role: "user"},
		},
	}

	r := guardRouter(t, authority)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/de/members", nil)
	req.AddCookie(&http.Cookie{Name: session.CookieName, Value: "good-token"})

	r.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
}

func TestRouteGuardNormalizesMissingLocale(t *testing.T) {
	r := guardRouter(t, &fakeAuthority{})

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/impressum?ref=footer", nil)

	r.ServeHTTP(w, req)

	if w.Code != http.StatusFound {
		t.Fatalf("status = %d, want 302", w.Code)
	}

	if got := w.Header().Get("Location"); got != "/en/impressum?ref=footer" {
		t.Errorf("location = %q, want /en/impressum?ref=footer", got)
	}
}
