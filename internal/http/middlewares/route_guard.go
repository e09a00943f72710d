package middlewares

import (
	"net/http"
	"net/url"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/mhofmann/membersite/internal/i18n"
	"github.com/mhofmann/membersite/internal/session"
)

// Prefixes the guard never touches: the API surface, asset trees and the
// operational endpoints.
var bypassPrefixes = []string{
	"/api",
	"/_next",
	"/_vercel",
	"/static",
	"/assets",
	"/healthz",
	"/readyz",
	"/metrics",
}

// RouteGuard gates the protected page sections behind an authenticated
// session. The auth check runs before any locale-normalizing redirect so the
// callback URL keeps the locale the visitor was on.
type RouteGuard struct {
	sessions       session.Authority
	protectedPaths []string
}

func NewRouteGuard(sessions session.Authority, protectedPaths []string) *RouteGuard {
	return &RouteGuard{
		sessions:       sessions,
		protectedPaths: protectedPaths,
	}
}

func (g *RouteGuard) Handler() gin.HandlerFunc {
	return func(ctx *gin.Context) {
		path := ctx.Request.URL.Path

		if bypass(path) {
			ctx.Next()
			return
		}

		canonical := i18n.StripLocale(path)

		if g.isProtected(canonical) && !g.hasSession(ctx) {
			locale := i18n.FromPath(path)

			target := "/" + locale + "/auth/login?callbackUrl=" + url.QueryEscape(path)

			ctx.Redirect(http.StatusFound, target)
			ctx.Abort()
			return
		}

		// Locale negotiation runs after the auth decision.
		if !i18n.HasLocalePrefix(path) {
			target := "/" + i18n.DefaultLocale + path

			if raw := ctx.Request.URL.RawQuery; raw != "" {
				target += "?" + raw
			}

			ctx.Redirect(http.StatusFound, target)
			ctx.Abort()
			return
		}

		ctx.Next()
	}
}

func (g *RouteGuard) isProtected(canonical string) bool {
	for _, prefix := range g.protectedPaths {
		if strings.HasPrefix(canonical, prefix) {
			return true
		}
	}
	return false
}

func (g *RouteGuard) hasSession(ctx *gin.Context) bool {
	raw, err := ctx.Cookie(session.CookieName)

	if err != nil || raw == "" {
		return false
	}

	_, err = g.sessions.Verify(raw)

	return err == nil
}

func bypass(path string) bool {
	for _, prefix := range bypassPrefixes {
		if strings.HasPrefix(path, prefix) {
			return true
		}
	}

	// Static files carry an extension in their last segment.
	last := path

	if i := strings.LastIndexByte(path, '/'); i >= 0 {
		last = path[i+1:]
	}

	return strings.Contains(last, ".")
}
