package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/mhofmann/membersite/internal/domain/user"
	"github.com/mhofmann/membersite/internal/observability"
)

type UsersRepo struct {
	pool *pgxpool.Pool
	prom *observability.Prom
}

func NewUsersRepo(pool *pgxpool.Pool, prom *observability.Prom) *UsersRepo {
	return &UsersRepo{pool: pool, prom: prom}
}

func (r *UsersRepo) observe(op string, fn func() error) error {
	if r.prom != nil {
		return r.prom.ObserveDB(op, fn)
	}
	return fn()
}

func (r *UsersRepo) BeginTx(ctx context.Context) (pgx.Tx, error) {
	return r.pool.BeginTx(ctx, pgx.TxOptions{})
}

func (r *UsersRepo) GetByEmail(ctx context.Context, email string) (user.User, error) {
	var u user.User

	err := r.observe("users.get_by_email", func() error {
		return r.pool.QueryRow(ctx, `
		SELECT id, email, password_hash, name, role,
		       email_verified, verification_token,
		       reset_token, reset_token_expiry,
		       created_at, updated_at
		FROM users
		WHERE email = $1
	`, email).Scan(
			&u.ID, &u.Email, &u.PasswordHash, &u.Name, &u.Role,
			&u.EmailVerified, &u.VerificationToken,
			&u.ResetToken, &u.ResetTokenExpiry,
			&u.CreatedAt, &u.UpdatedAt,
		)
	})

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return user.User{}, user.ErrNotFound
		}
		return user.User{}, err
	}

	return u, nil
}

// CreateTx inserts a new user inside the caller's transaction. Uniqueness is
// enforced by the index on users.email; a prior SELECT would only reopen the
// duplicate-registration race.
func (r *UsersRepo) CreateTx(ctx context.Context, tx pgx.Tx, u user.User) error {
	err := r.observe("users.create_tx", func() error {
		_, e := tx.Exec(ctx, `
		INSERT INTO users (
			id, email, password_hash, name, role,
			email_verified, verification_token,
			reset_token, reset_token_expiry,
			created_at, updated_at
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)
	`,
			u.ID, u.Email, u.PasswordHash, u.Name, u.Role,
			u.EmailVerified, u.VerificationToken,
			u.ResetToken, u.ResetTokenExpiry,
			u.CreatedAt, u.UpdatedAt,
		)
		return e
	})

	if err != nil {
		if IsUniqueViolation(err) {
			return user.ErrEmailTaken
		}
		return err
	}

	return nil
}

// SetResetTokenTx writes the reset token field pair; both columns move together.
func (r *UsersRepo) SetResetTokenTx(ctx context.Context, tx pgx.Tx, userID, token string, expiry time.Time) error {
	err := r.observe("users.set_reset_token_tx", func() error {
		tag, e := tx.Exec(ctx, `
		UPDATE users
		SET reset_token = $2,
		    reset_token_expiry = $3,
		    updated_at = NOW()
		WHERE id = $1
	`, userID, token, expiry)

		if e != nil {
			return e
		}
		if tag.RowsAffected() == 0 {
			return user.ErrNotFound
		}
		return nil
	})

	return err
}

// ConsumeVerificationToken redeems a verification token in one statement.
// A concurrent second redeemer matches zero rows and sees ErrTokenInvalid,
// which is also what an unknown token yields.
func (r *UsersRepo) ConsumeVerificationToken(ctx context.Context, token string) (string, error) {
	var id string

	err := r.observe("users.consume_verification_token", func() error {
		return r.pool.QueryRow(ctx, `
		UPDATE users
		SET email_verified = TRUE,
		    verification_token = NULL,
		    updated_at = NOW()
		WHERE verification_token = $1
		RETURNING id
	`, token).Scan(&id)
	})

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", user.ErrTokenInvalid
		}
		return "", err
	}

	return id, nil
}

// ConsumeResetToken rotates the credential and clears the token pair in one
// statement. The expiry guard lives in the WHERE clause so expired, consumed
// and never-issued tokens are indistinguishable to the caller.
func (r *UsersRepo) ConsumeResetToken(ctx context.Context, token, newHash string, now time.Time) (string, error) {
	var id string

	err := r.observe("users.consume_reset_token", func() error {
		return r.pool.QueryRow(ctx, `
		UPDATE users
		SET password_hash = $2,
		    reset_token = NULL,
		    reset_token_expiry = NULL,
		    updated_at = NOW()
		WHERE reset_token = $1
		  AND reset_token_expiry IS NOT NULL
		  AND reset_token_expiry > $3
		RETURNING id
	`, token, newHash, now).Scan(&id)
	})

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", user.ErrTokenInvalid
		}
		return "", err
	}

	return id, nil
}
