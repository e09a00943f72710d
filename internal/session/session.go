package session

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// CookieName is the cookie the route guard and the API middleware inspect.
const CookieName = "member_session"

var ErrInvalidSession = errors.New("invalid session")

type Claims struct {
	UserID string `json:"sub"`
	Email  string `json:"email"`
	Role   string `json:"role"`
	JTI    string `json:"jti"`
	jwt.RegisteredClaims
}

// Authority is what the route guard consults. Keeping it an interface lets
// tests (and a future external session service) stand in for the JWT manager.
type Authority interface {
	Verify(token string) (*Claims, error)
}

// Manager issues and verifies the signed session cookie.
type Manager struct {
	secret []byte
	ttl    time.Duration
}

func NewManager(secret string, ttl time.Duration) *Manager {
	return &Manager{
		secret: []byte(secret),
		ttl:    ttl,
	}
}

func (m *Manager) TTL() time.Duration {
	return m.ttl
}

func (m *Manager) Issue(userID, email, role string) (string, time.Time, error) {
	now := time.Now().UTC()
	expiresAt := now.Add(m.ttl)

	claims := Claims{
		UserID: userID,
		Email:  email,
		Role:   role,
		JTI:    uuid.NewString(),
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			Subject:   userID,
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)

	raw, err := token.SignedString(m.secret)

	return raw, expiresAt, err
}

func (m *Manager) Verify(tokenStr string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenStr, &Claims{}, func(t *jwt.Token) (interface{}, error) {
		// Enforce HS256
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return m.secret, nil
	})

	if err != nil {
		return nil, ErrInvalidSession
	}

	claims, ok := token.Claims.(*Claims)

	if !ok || !token.Valid || claims.UserID == "" {
		return nil, ErrInvalidSession
	}

	return claims, nil
}

// Cookie helpers

func SetCookie(ctx *gin.Context, raw string, expiresAt time.Time, secure bool) {
	maxAge := int(time.Until(expiresAt).Seconds())

	ctx.SetSameSite(http.SameSiteLaxMode)

	ctx.SetCookie(
		CookieName,
		raw,
		maxAge,
		"/",
		"",
		secure,
		true, // HttpOnly.
	)
}

func ClearCookie(ctx *gin.Context, secure bool) {
	ctx.SetSameSite(http.SameSiteLaxMode)
	ctx.SetCookie(
		CookieName,
		"",
		-1,
		"/",
		"",
		secure,
		true,
	)
}
