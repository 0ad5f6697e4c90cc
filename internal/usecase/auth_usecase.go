// Package usecase contains the application-specific business rules.
// It orchestrates the domain layer to perform tasks.
package usecase

import (
	"context"

	"bookwise/internal/domain/entity"
)

// --- Input DTOs ---

// LoginInput defines the data required for a user to log in.
type LoginInput struct {
	Email    string
	Password string
}

// ChangePasswordInput defines the data required to change a password.
type ChangePasswordInput struct {
	Email           string
	CurrentPassword string
	NewPassword     string
}

// --- Output DTOs ---

// LoginOutput returns the generated token pair after a successful login.
type LoginOutput struct {
	AccessToken  string
	RefreshToken string
	User         *entity.User
}

// RefreshOutput returns the fresh token pair minted from a refresh token.
type RefreshOutput struct {
	AccessToken  string
	RefreshToken string
}

// AuthUsecase defines the interface for authentication flows.
// This is the contract that the delivery layer (e.g., API handlers) will depend on.
type AuthUsecase interface {
	// Login verifies the credentials and mints a fresh token pair.
	Login(ctx context.Context, input *LoginInput) (*LoginOutput, error)

	// Refresh exchanges a valid refresh token for a fresh token pair. The
	// presented refresh token is not invalidated and stays usable until expiry.
	Refresh(ctx context.Context, refreshToken string) (*RefreshOutput, error)

	// ChangePassword verifies the current password and replaces the stored
	// digest with a hash of the new one.
	ChangePassword(ctx context.Context, input *ChangePasswordInput) error

	// Logout records the logout. Previously issued tokens stay valid until
	// they expire; there is no server-side revocation.
	Logout(ctx context.Context, principal *entity.Principal) error
}
