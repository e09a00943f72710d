package db

import (
	"context"
	"errors"
	"log/slog"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/mhofmann/membersite/internal/config"
	"github.com/mhofmann/membersite/internal/domain/user"
	"github.com/mhofmann/membersite/internal/repo/postgres"
	"github.com/mhofmann/membersite/internal/security"
)

// EnsureAdminUser seeds the configured admin account at boot so the admin job
// endpoints are reachable on a fresh database. No-op when the account exists
// or no admin credentials are configured.
func EnsureAdminUser(ctx context.Context, pool *pgxpool.Pool, cfg config.Config, log *slog.Logger) error {
	if cfg.AdminEmail == "" || cfg.AdminPassword == "" {
		return nil
	}

	repo := postgres.NewUsersRepo(pool, nil)

	if _, err := repo.GetByEmail(ctx, cfg.AdminEmail); err == nil {
		return nil
	} else if !errors.Is(err, user.ErrNotFound) {
		return err
	}

	hash, err := security.HashPassword(cfg.AdminPassword)

	if err != nil {
		return err
	}

	u := user.NewFromCreateRequest(user.CreateUserRequest{
		Name:         cfg.AdminName,
		Email:        cfg.AdminEmail,
		PasswordHash: hash,
		Role:         "admin",
	})

	// The admin never goes through the verification flow.
	u.EmailVerified = true
	u.VerificationToken = nil

	tx, err := repo.BeginTx(ctx)

	if err != nil {
		return err
	}

	defer func() { _ = tx.Rollback(ctx) }()

	if err := repo.CreateTx(ctx, tx, u); err != nil {
		// A concurrent boot already seeded it.
		if errors.Is(err, user.ErrEmailTaken) {
			return nil
		}
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return err
	}

	log.Info("admin user seeded", "email", cfg.AdminEmail)
	return nil
}
