package handlers

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5"
	"github.com/mhofmann/membersite/internal/config"
	"github.com/mhofmann/membersite/internal/domain/job"
	"github.com/mhofmann/membersite/internal/domain/user"
	"github.com/mhofmann/membersite/internal/i18n"
	"github.com/mhofmann/membersite/internal/jobs"
	"github.com/mhofmann/membersite/internal/security"
	"github.com/mhofmann/membersite/internal/session"
)

type UserStore interface {
	BeginTx(ctx context.Context) (pgx.Tx, error)
	GetByEmail(ctx context.Context, email string) (user.User, error)
	CreateTx(ctx context.Context, tx pgx.Tx, u user.User) error
	SetResetTokenTx(ctx context.Context, tx pgx.Tx, userID, token string, expiry time.Time) error
	ConsumeVerificationToken(ctx context.Context, token string) (string, error)
	ConsumeResetToken(ctx context.Context, token, newHash string, now time.Time) (string, error)
}

type MailJobEnqueuer interface {
	CreateTx(ctx context.Context, tx pgx.Tx, req job.CreateRequest) (job.Job, error)
}

// WorkerNudger wakes the mail worker after a commit. Best effort only: the
// worker's poll loop picks up anything a lost nudge leaves behind.
type WorkerNudger interface {
	Nudge(ctx context.Context) error
}

type AuthHandler struct {
	users    UserStore
	jobsRepo MailJobEnqueuer
	sessions *session.Manager
	nudger   WorkerNudger
	cfg      config.Config
	log      *slog.Logger
}

func NewAuthHandler(users UserStore, jobsRepo MailJobEnqueuer, sessions *session.Manager, nudger WorkerNudger, cfg config.Config, log *slog.Logger) *AuthHandler {
	return &AuthHandler{
		users:    users,
		jobsRepo: jobsRepo,
		sessions: sessions,
		nudger:   nudger,
		cfg:      cfg,
		log:      log,
	}
}

type RegisterRequest struct {
	Name     string `json:"name" binding:"required"`
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,min=8"`

	// Any tag is accepted; unsupported ones fall back to the default locale.
	Locale string `json:"locale"`
}

type ForgotPasswordRequest struct {
	Email  string `json:"email" binding:"required,email"`
	Locale string `json:"locale"`
}

type ResetPasswordRequest struct {
	Token    string `json:"token" binding:"required"`
	Password string `json:"password" binding:"required,min=8"`
}

type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

// Register creates an unverified account and enqueues the verification mail in
// the same transaction, so neither can exist without the other.
func (h *AuthHandler) Register(ctx *gin.Context) {
	var req RegisterRequest

	if !BindJSON(ctx, &req) {
		return
	}

	locale := i18n.Normalize(req.Locale)

	hash, err := security.HashPassword(req.Password)

	if err != nil {
		h.log.Error("register: hash password", "error", err)
		RespondInternal(ctx)
		return
	}

	token := security.GenerateToken()

	u := user.NewFromCreateRequest(user.CreateUserRequest{
		Name:              req.Name,
		Email:             req.Email,
		PasswordHash:      hash,
		VerificationToken: token,
	})

	payload, err := jobs.SendVerificationEmailPayload{
		UserID:      u.ID,
		Email:       u.Email,
		Token:       token,
		Locale:      locale,
		RequestedAt: time.Now().UTC(),
	}.JSON()

	if err != nil {
		h.log.Error("register: encode payload", "error", err)
		RespondInternal(ctx)
		return
	}

	cctx, cancel := config.WithTimeout(3 * time.Second)

	defer cancel()

	tx, err := h.users.BeginTx(cctx)

	if err != nil {
		h.log.Error("register: begin tx", "error", err)
		RespondInternal(ctx)
		return
	}

	defer func() { _ = tx.Rollback(cctx) }()

	if err := h.users.CreateTx(cctx, tx, u); err != nil {
		if errors.Is(err, user.ErrEmailTaken) {
			RespondConflict(ctx, "email_exists")
			return
		}

		h.log.Error("register: insert user", "error", err)
		RespondInternal(ctx)
		return
	}

	idemKey := "email:verify:" + u.ID

	_, err = h.jobsRepo.CreateTx(cctx, tx, job.CreateRequest{
		Type:           string(jobs.JobSendVerificationEmail),
		Payload:        payload,
		IdempotencyKey: &idemKey,
	})

	if err != nil {
		h.log.Error("register: enqueue verification mail", "error", err)
		RespondInternal(ctx)
		return
	}

	if err := tx.Commit(cctx); err != nil {
		h.log.Error("register: commit", "error", err)
		RespondInternal(ctx)
		return
	}

	h.nudge(cctx)

	RespondMessage(ctx, http.StatusCreated, "User created successfully")
}

// VerifyEmail redeems a verification token. Redemption happens in a single
// compare-and-clear statement, so a token verifies exactly once.
func (h *AuthHandler) VerifyEmail(ctx *gin.Context) {
	token := ctx.Query("token")

	if token == "" {
		RespondBadRequest(ctx, "Token is required", nil)
		return
	}

	cctx, cancel := config.WithTimeout(2 * time.Second)

	defer cancel()

	userID, err := h.users.ConsumeVerificationToken(cctx, token)

	if err != nil {
		if errors.Is(err, user.ErrTokenInvalid) {
			RespondBadRequest(ctx, "Invalid or expired token", nil)
			return
		}

		h.log.Error("verify-email: consume token", "error", err)
		RespondInternal(ctx)
		return
	}

	h.log.Info("email verified", "user_id", userID)

	RespondMessage(ctx, http.StatusOK, "Email verified successfully")
}

// ForgotPassword issues a reset token. Both the found and not-found branches
// return the same body and status, and neither touches the mailer in-band, so
// the endpoint leaks nothing about which addresses hold accounts.
func (h *AuthHandler) ForgotPassword(ctx *gin.Context) {
	var req ForgotPasswordRequest

	if !BindJSON(ctx, &req) {
		return
	}

	locale := i18n.Normalize(req.Locale)

	cctx, cancel := config.WithTimeout(3 * time.Second)

	defer cancel()

	u, err := h.users.GetByEmail(cctx, req.Email)

	if err != nil {
		if !errors.Is(err, user.ErrNotFound) {
			h.log.Error("forgot-password: lookup", "error", err)
			RespondInternal(ctx)
			return
		}

		h.respondResetIssued(ctx)
		return
	}

	token := security.GenerateToken()
	expiry := time.Now().UTC().Add(time.Hour)

	payload, err := jobs.SendPasswordResetEmailPayload{
		UserID:      u.ID,
		Email:       u.Email,
		Token:       token,
		Locale:      locale,
		RequestedAt: time.Now().UTC(),
	}.JSON()

	if err != nil {
		h.log.Error("forgot-password: encode payload", "error", err)
		RespondInternal(ctx)
		return
	}

	tx, err := h.users.BeginTx(cctx)

	if err != nil {
		h.log.Error("forgot-password: begin tx", "error", err)
		RespondInternal(ctx)
		return
	}

	defer func() { _ = tx.Rollback(cctx) }()

	if err := h.users.SetResetTokenTx(cctx, tx, u.ID, token, expiry); err != nil {
		// The account may have been deleted between lookup and update; that
		// still must not change the response.
		if errors.Is(err, user.ErrNotFound) {
			h.respondResetIssued(ctx)
			return
		}

		h.log.Error("forgot-password: set token", "error", err)
		RespondInternal(ctx)
		return
	}

	// Keyed per issuance, not per user: every request overwrites the token, so
	// every request must also get its own mail carrying the new token.
	idemKey := "email:reset:" + u.ID + ":" + token

	_, err = h.jobsRepo.CreateTx(cctx, tx, job.CreateRequest{
		Type:           string(jobs.JobSendPasswordResetEmail),
		Payload:        payload,
		IdempotencyKey: &idemKey,
	})

	if err != nil {
		h.log.Error("forgot-password: enqueue reset mail", "error", err)
		RespondInternal(ctx)
		return
	}

	if err := tx.Commit(cctx); err != nil {
		h.log.Error("forgot-password: commit", "error", err)
		RespondInternal(ctx)
		return
	}

	h.nudge(cctx)

	h.respondResetIssued(ctx)
}

func (h *AuthHandler) respondResetIssued(ctx *gin.Context) {
	RespondMessage(ctx, http.StatusOK, "If an account exists, a reset link has been sent")
}

// ResetPassword redeems a reset token and rotates the credential atomically.
func (h *AuthHandler) ResetPassword(ctx *gin.Context) {
	var req ResetPasswordRequest

	if !BindJSON(ctx, &req) {
		return
	}

	hash, err := security.HashPassword(req.Password)

	if err != nil {
		h.log.Error("reset-password: hash password", "error", err)
		RespondInternal(ctx)
		return
	}

	cctx, cancel := config.WithTimeout(3 * time.Second)

	defer cancel()

	userID, err := h.users.ConsumeResetToken(cctx, req.Token, hash, time.Now().UTC())

	if err != nil {
		if errors.Is(err, user.ErrTokenInvalid) {
			RespondBadRequest(ctx, "Invalid or expired reset token", nil)
			return
		}

		h.log.Error("reset-password: consume token", "error", err)
		RespondInternal(ctx)
		return
	}

	h.log.Info("password reset", "user_id", userID)

	RespondMessage(ctx, http.StatusOK, "Password reset successfully")
}

// Login issues the session cookie. Unknown email and wrong password produce
// the identical response.
func (h *AuthHandler) Login(ctx *gin.Context) {
	var req LoginRequest

	if !BindJSON(ctx, &req) {
		return
	}

	cctx, cancel := config.WithTimeout(3 * time.Second)

	defer cancel()

	u, err := h.users.GetByEmail(cctx, req.Email)

	if err != nil {
		if errors.Is(err, user.ErrNotFound) {
			// Burn a comparison anyway so timing does not split the branches.
			_ = security.CheckPassword("$2a$12$invalidinvalidinvalidinvalidinvalidinvalidinvalidinva", req.Password)
			RespondUnAuthorized(ctx, "invalid_credentials")
			return
		}

		h.log.Error("login: lookup", "error", err)
		RespondInternal(ctx)
		return
	}

	if err := security.CheckPassword(u.PasswordHash, req.Password); err != nil {
		RespondUnAuthorized(ctx, "invalid_credentials")
		return
	}

	if !u.EmailVerified {
		RespondForbidden(ctx, "email_not_verified")
		return
	}

	raw, expiresAt, err := h.sessions.Issue(u.ID, u.Email, u.Role)

	if err != nil {
		h.log.Error("login: issue session", "error", err)
		RespondInternal(ctx)
		return
	}

	session.SetCookie(ctx, raw, expiresAt, h.cfg.Env == "prod")

	ctx.JSON(http.StatusOK, gin.H{
		"message": "Logged in",
		"user": gin.H{
			"id":    u.ID,
			"email": u.Email,
			"name":  u.Name,
			"role":  u.Role,
		},
	})
}

func (h *AuthHandler) Logout(ctx *gin.Context) {
	session.ClearCookie(ctx, h.cfg.Env == "prod")

	ctx.Status(http.StatusNoContent)
}

func (h *AuthHandler) nudge(ctx context.Context) {
	if h.nudger == nil {
		return
	}

	if err := h.nudger.Nudge(ctx); err != nil {
		h.log.Warn("worker nudge failed", "error", err)
	}
}
