package handlers_test

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/mhofmann/membersite/internal/config"
	"github.com/mhofmann/membersite/internal/domain/user"
	"github.com/mhofmann/membersite/internal/http/handlers"
	"github.com/mhofmann/membersite/internal/jobs"
	"github.com/mhofmann/membersite/internal/repo/memory"
	"github.com/mhofmann/membersite/internal/security"
	"github.com/mhofmann/membersite/internal/session"
)

type authServer struct {
	router   *gin.Engine
	users    *memory.UsersRepo
	jobsRepo *memory.JobsRepo
	nudges   int
}

func (s *authServer) Nudge(ctx context.Context) error {
	s.nudges++
	return nil
}

func newAuthServer(t *testing.T) *authServer {
	t.Helper()

	gin.SetMode(gin.TestMode)

	s := &authServer{
		users:    memory.NewUsersRepo(),
		jobsRepo: memory.NewJobsRepo(),
	}

	cfg := config.Config{Env: "test", AppBaseURL: "http://localhost:8080"}
	sessions := session.NewManager("test-secret", time.Hour)

	h := handlers.NewAuthHandler(s.users, s.jobsRepo, sessions, s, cfg, slog.New(slog.NewTextHandler(io.Discard, nil)))

	r := gin.New()
	r.POST("/api/auth/register", h.Register)
	r.GET("/api/auth/verify-email", h.VerifyEmail)
	r.POST("/api/auth/forgot-password", h.ForgotPassword)
	r.POST("/api/auth/reset-password", h.ResetPassword)
	r.POST("/api/auth/login", h.Login)
	r.POST("/api/auth/logout", h.Logout)

	s.router = r
	return s
}

func (s *authServer) do(t *testing.T, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()

	var rd io.Reader
	if body != "" {
		rd = strings.NewReader(body)
	}

	w := httptest.NewRecorder()
	req := httptest.NewRequest(method, path, rd)
	req.Header.Set("Content-Type", "application/json")

	s.router.ServeHTTP(w, req)
	return w
}

func TestRegisterThenDuplicate(t *testing.T) {
	s := newAuthServer(t)

	body := `{"name":"Ada","email":"ada@x.com","password":"longenough1"}`

	w := s.do(t, http.MethodPost, "/api/auth/register", body)

	if w.Code != http.StatusCreated {
		t.Fatalf("status = %d, want 201; body %s", w.Code, w.Body.String())
	}

	if got := w.Body.String(); !strings.Contains(got, "User created successfully") {
		t.Errorf("body = %s", got)
	}

	if len(s.jobsRepo.All()) != 1 {
		t.Fatalf("jobs enqueued = %d, want 1", len(s.jobsRepo.All()))
	}

	j := s.jobsRepo.All()[0]

	if j.Type != string(jobs.JobSendVerificationEmail) {
		t.Errorf("job type = %q", j.Type)
	}

	if j.IdempotencyKey == nil || !strings.HasPrefix(*j.IdempotencyKey, "email:verify:") {
		t.Errorf("idempotency key = %v", j.IdempotencyKey)
	}

	if s.nudges != 1 {
		t.Errorf("nudges = %d, want 1", s.nudges)
	}

	// same email again
	w = s.do(t, http.MethodPost, "/api/auth/register", body)

	if w.Code != http.StatusConflict {
		t.Fatalf("status = %d, want 409", w.Code)
	}

	var resp map[string]any
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}

	if resp["error"] != "email_exists" {
		t.Errorf("error = %v, want email_exists", resp["error"])
	}

	if len(s.jobsRepo.All()) != 1 {
		t.Errorf("conflict must not enqueue mail; jobs = %d", len(s.jobsRepo.All()))
	}
}

func TestRegisterShortPasswordTouchesNothing(t *testing.T) {
	s := newAuthServer(t)

	w := s.do(t, http.MethodPost, "/api/auth/register", `{"name":"Ada","email":"ada@x.com","password":"short"}`)

	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", w.Code)
	}

	if got := w.Body.String(); !strings.Contains(got, "Invalid input") {
		t.Errorf("body = %s", got)
	}

	if _, err := s.users.GetByEmail(context.Background(), "ada@x.com"); err == nil {
		t.Error("no user may be created on validation failure")
	}

	if len(s.jobsRepo.All()) != 0 {
		t.Error("no job may be enqueued on validation failure")
	}
}

func TestRegisterLocalePropagatesIntoPayload(t *testing.T) {
	s := newAuthServer(t)

	w := s.do(t, http.MethodPost, "/api/auth/register", `{"name":"Ada","email":"ada@x.com","password":"longenough1","locale":"de"}`)

	if w.Code != http.StatusCreated {
		t.Fatalf("status = %d, want 201", w.Code)
	}

	var p jobs.SendVerificationEmailPayload
	if err := json.Unmarshal(s.jobsRepo.All()[0].Payload, &p); err != nil {
		t.Fatalf("payload: %v", err)
	}

	if p.Locale != "de" {
		t.Errorf("locale = %q, want de", p.Locale)
	}

	if p.Token == "" || p.Email != "ada@x.com" {
		t.Errorf("payload = %+v", p)
	}
}

func TestRegisterUnknownLocaleFallsBack(t *testing.T) {
	s := newAuthServer(t)

	w := s.do(t, http.MethodPost, "/api/auth/register", `{"name":"Ada","email":"ada@x.com","password":"longenough1","locale":"fr"}`)

	if w.Code != http.StatusCreated {
		t.Fatalf("status = %d, want 201; body %s", w.Code, w.Body.String())
	}

	var p jobs.SendVerificationEmailPayload
	if err := json.Unmarshal(s.jobsRepo.All()[0].Payload, &p); err != nil {
		t.Fatalf("payload: %v", err)
	}

	if p.Locale != "en" {
		t.Errorf("locale = %q, want fallback en", p.Locale)
	}
}

func TestVerifyEmailLifecycle(t *testing.T) {
	s := newAuthServer(t)

	s.do(t, http.MethodPost, "/api/auth/register", `{"name":"Ada","email":"ada@x.com","password":"longenough1"}`)

	var p jobs.SendVerificationEmailPayload
	if err := json.Unmarshal(s.jobsRepo.All()[0].Payload, &p); err != nil {
		t.Fatalf("payload: %v", err)
	}

	// missing token
	w := s.do(t, http.MethodGet, "/api/auth/verify-email", "")

	if w.Code != http.StatusBadRequest || !strings.Contains(w.Body.String(), "Token is required") {
		t.Fatalf("missing token: status %d body %s", w.Code, w.Body.String())
	}

	// first redeem
	w = s.do(t, http.MethodGet, "/api/auth/verify-email?token="+p.Token, "")

	if w.Code != http.StatusOK || !strings.Contains(w.Body.String(), "Email verified successfully") {
		t.Fatalf("redeem: status %d body %s", w.Code, w.Body.String())
	}

	u, err := s.users.GetByEmail(context.Background(), "ada@x.com")
	if err != nil {
		t.Fatal(err)
	}

	if !u.EmailVerified || u.VerificationToken != nil {
		t.Errorf("user not promoted: %+v", u)
	}

	// second redeem must look like an unknown token
	w = s.do(t, http.MethodGet, "/api/auth/verify-email?token="+p.Token, "")

	if w.Code != http.StatusBadRequest || !strings.Contains(w.Body.String(), "Invalid or expired token") {
		t.Fatalf("reuse: status %d body %s", w.Code, w.Body.String())
	}
}

func TestForgotPasswordIsEnumerationResistant(t *testing.T) {
	s := newAuthServer(t)

	s.users.Seed(user.User{ID: "u-1", Email: "known@x.com", PasswordHash: "irrelevant"})

	known := s.do(t, http.MethodPost, "/api/auth/forgot-password", `{"email":"known@x.com"}`)
	unknown := s.do(t, http.MethodPost, "/api/auth/forgot-password", `{"email":"nobody@x.com"}`)

	if known.Code != http.StatusOK || unknown.Code != http.StatusOK {
		t.Fatalf("statuses = %d / %d, want 200 / 200", known.Code, unknown.Code)
	}

	if known.Body.String() != unknown.Body.String() {
		t.Errorf("bodies differ: %s vs %s", known.Body.String(), unknown.Body.String())
	}

	if !strings.Contains(known.Body.String(), "If an account exists, a reset link has been sent") {
		t.Errorf("body = %s", known.Body.String())
	}

	// only the existing account got a token and a mail job
	if len(s.jobsRepo.All()) != 1 {
		t.Fatalf("jobs = %d, want 1", len(s.jobsRepo.All()))
	}

	u, _ := s.users.GetByEmail(context.Background(), "known@x.com")
	if u.ResetToken == nil || u.ResetTokenExpiry == nil {
		t.Error("reset token pair must be set for the existing account")
	}
}

func TestForgotPasswordTwiceEnqueuesFreshMailEachTime(t *testing.T) {
	s := newAuthServer(t)

	s.users.Seed(user.User{ID: "u-1", Email: "ada@x.com"})

	first := s.do(t, http.MethodPost, "/api/auth/forgot-password", `{"email":"ada@x.com"}`)
	second := s.do(t, http.MethodPost, "/api/auth/forgot-password", `{"email":"ada@x.com"}`)

	if first.Code != http.StatusOK || second.Code != http.StatusOK {
		t.Fatalf("statuses = %d / %d, want 200 / 200", first.Code, second.Code)
	}

	all := s.jobsRepo.All()

	if len(all) != 2 {
		t.Fatalf("jobs = %d, want one mail per request", len(all))
	}

	// each issuance gets its own dedup key, so the second enqueue cannot
	// collide with the first under the outbox's unique index
	if all[0].IdempotencyKey == nil || all[1].IdempotencyKey == nil {
		t.Fatal("both jobs must carry idempotency keys")
	}

	if *all[0].IdempotencyKey == *all[1].IdempotencyKey {
		t.Errorf("idempotency keys must differ per issuance, both = %q", *all[0].IdempotencyKey)
	}

	// the second mail carries the token currently on the account
	var p jobs.SendPasswordResetEmailPayload
	if err := json.Unmarshal(all[1].Payload, &p); err != nil {
		t.Fatalf("payload: %v", err)
	}

	u, _ := s.users.GetByEmail(context.Background(), "ada@x.com")

	if u.ResetToken == nil || *u.ResetToken != p.Token {
		t.Error("second mail must carry the freshly issued token")
	}
}

func TestResetPasswordLifecycle(t *testing.T) {
	s := newAuthServer(t)

	s.users.Seed(user.User{ID: "u-1", Email: "ada@x.com"})
	s.do(t, http.MethodPost, "/api/auth/forgot-password", `{"email":"ada@x.com"}`)

	var p jobs.SendPasswordResetEmailPayload
	if err := json.Unmarshal(s.jobsRepo.All()[0].Payload, &p); err != nil {
		t.Fatalf("payload: %v", err)
	}

	// short password rejected before any store access
	w := s.do(t, http.MethodPost, "/api/auth/reset-password", `{"token":"`+p.Token+`","password":"short"}`)

	if w.Code != http.StatusBadRequest {
		t.Fatalf("short password: status %d", w.Code)
	}

	// redeem
	w = s.do(t, http.MethodPost, "/api/auth/reset-password", `{"token":"`+p.Token+`","password":"brandnewpass1"}`)

	if w.Code != http.StatusOK || !strings.Contains(w.Body.String(), "Password reset successfully") {
		t.Fatalf("redeem: status %d body %s", w.Code, w.Body.String())
	}

	u, _ := s.users.GetByEmail(context.Background(), "ada@x.com")

	if u.ResetToken != nil || u.ResetTokenExpiry != nil {
		t.Error("token pair must be cleared together on redeem")
	}

	if err := security.CheckPassword(u.PasswordHash, "brandnewpass1"); err != nil {
		t.Error("credential was not rotated")
	}

	// reuse must fail like an unknown token
	w = s.do(t, http.MethodPost, "/api/auth/reset-password", `{"token":"`+p.Token+`","password":"brandnewpass1"}`)

	if w.Code != http.StatusBadRequest || !strings.Contains(w.Body.String(), "Invalid or expired reset token") {
		t.Fatalf("reuse: status %d body %s", w.Code, w.Body.String())
	}
}

func TestResetPasswordExpiryBoundary(t *testing.T) {
	s := newAuthServer(t)

	expired := time.Now().UTC().Add(-time.Second)
	token := "deadbeef"

	s.users.Seed(user.User{
		ID:               "u-1",
		Email:            "ada@x.com",
		ResetToken:       &token,
		ResetTokenExpiry: &expired,
	})

	w := s.do(t, http.MethodPost, "/api/auth/reset-password", `{"token":"deadbeef","password":"brandnewpass1"}`)

	if w.Code != http.StatusBadRequest || !strings.Contains(w.Body.String(), "Invalid or expired reset token") {
		t.Fatalf("expired token: status %d body %s", w.Code, w.Body.String())
	}
}

func TestLogin(t *testing.T) {
	s := newAuthServer(t)

	hash, err := security.HashPassword("longenough1")
	if err != nil {
		t.Fatal(err)
	}

	s.users.Seed(user.User{ID: "u-1", Email: "ada@x.com", Name: "Ada", Role: "user", PasswordHash: hash})

	// unverified account
	w := s.do(t, http.MethodPost, "/api/auth/login", `{"email":"ada@x.com","password":"longenough1"}`)

	if w.Code != http.StatusForbidden || !strings.Contains(w.Body.String(), "email_not_verified") {
		t.Fatalf("unverified: status %d body %s", w.Code, w.Body.String())
	}

	s.users.Seed(user.User{ID: "u-1", Email: "ada@x.com", Name: "Ada", Role: "user", PasswordHash: hash, EmailVerified: true})

	// wrong password and unknown email answer identically
	wrongPass := s.do(t, http.MethodPost, "/api/auth/login", `{"email":"ada@x.com","password":"wrongpassword"}`)
	unknown := s.do(t, http.MethodPost, "/api/auth/login", `{"email":"ghost@x.com","password":"longenough1"}`)

	if wrongPass.Code != http.StatusUnauthorized || unknown.Code != http.StatusUnauthorized {
		t.Fatalf("statuses = %d / %d, want 401 / 401", wrongPass.Code, unknown.Code)
	}

	if wrongPass.Body.String() != unknown.Body.String() {
		t.Errorf("bodies differ: %s vs %s", wrongPass.Body.String(), unknown.Body.String())
	}

	// success sets the session cookie
	w = s.do(t, http.MethodPost, "/api/auth/login", `{"email":"ada@x.com","password":"longenough1"}`)

	if w.Code != http.StatusOK {
		t.Fatalf("login: status %d body %s", w.Code, w.Body.String())
	}

	cookie := w.Header().Get("Set-Cookie")

	if !strings.Contains(cookie, session.CookieName+"=") {
		t.Errorf("missing session cookie: %q", cookie)
	}
}

func TestLogoutClearsCookie(t *testing.T) {
	s := newAuthServer(t)

	w := s.do(t, http.MethodPost, "/api/auth/logout", "")

	if w.Code != http.StatusNoContent {
		t.Fatalf("status = %d, want 204", w.Code)
	}

	cookie := w.Header().Get("Set-Cookie")

	if !strings.Contains(cookie, session.CookieName+"=") || !strings.Contains(cookie, "Max-Age=0") {
		t.Errorf("cookie not cleared: %q", cookie)
	}
}
