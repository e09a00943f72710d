package user

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

var (
	ErrNotFound     = errors.New("user not found")
	ErrEmailTaken   = errors.New("email already in use")
	ErrTokenInvalid = errors.New("invalid or expired token")
	ErrNotVerified  = errors.New("email not verified")
)

type User struct {
	ID           string `json:"id"`
	Email        string `json:"email"`
	PasswordHash string `json:"-"` // never expose hash in JSON
	Name         string `json:"name"`
	Role         string `json:"role"`

	EmailVerified     bool    `json:"emailVerified"`
	VerificationToken *string `json:"-"`

	// Set and cleared together, never one without the other.
	ResetToken       *string    `json:"-"`
	ResetTokenExpiry *time.Time `json:"-"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

type CreateUserRequest struct {
	Name         string
	Email        string
	PasswordHash string
	Role         string

	VerificationToken string
}

// NewFromCreateRequest builds an unverified user carrying its verification token.
func NewFromCreateRequest(req CreateUserRequest) User {
	now := time.Now().UTC()

	role := req.Role
	if role == "" {
		role = "user"
	}

	token := req.VerificationToken

	return User{
		ID:                uuid.NewString(),
		Email:             req.Email,
		PasswordHash:      req.PasswordHash,
		Name:              req.Name,
		Role:              role,
		EmailVerified:     false,
		VerificationToken: &token,
		CreatedAt:         now,
		UpdatedAt:         now,
	}
}
