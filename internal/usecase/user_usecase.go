package usecase

import (
	"context"

	"bookwise/internal/domain/entity"

	"github.com/google/uuid"
)

// --- Input DTOs ---

// RegisterUserInput defines the data required to register a new user.
type RegisterUserInput struct {
	Name     string
	Email    string
	Password string
	Bio      string
}

// UpdateUserInput defines the mutable profile fields. Nil pointers leave the
// corresponding field untouched.
type UpdateUserInput struct {
	Name      *string
	AvatarURL *string
	Bio       *string
	Password  *string
}

// --- Output DTOs ---

// RegisterOutput returns the newly created user's basic information.
type RegisterOutput struct {
	User *entity.User
}

// UserUsecase defines the interface for user-related business operations.
type UserUsecase interface {
	// Register creates a new account and publishes a USER_CREATED event.
	Register(ctx context.Context, input *RegisterUserInput) (*RegisterOutput, error)

	// Update applies profile changes and publishes a USER_UPDATED event.
	Update(ctx context.Context, userID uuid.UUID, input *UpdateUserInput) (*entity.User, error)

	// GetByID retrieves a single user.
	GetByID(ctx context.Context, userID uuid.UUID) (*entity.User, error)
}
