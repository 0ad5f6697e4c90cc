package repository

import (
	"context"
	"errors"

	"bookwise/internal/domain/entity"

	"github.com/google/uuid"
)

// ErrTokenNotFound is returned when no token record matches the lookup key.
var ErrTokenNotFound = errors.New("token not found")

// TokenRepository defines persistence for minted token records. One record is
// written per mint and records are never updated afterwards.
type TokenRepository interface {
	// Save persists the record of a freshly minted token. The token string
	// is a unique key; saving a duplicate is a storage error.
	Save(ctx context.Context, token *entity.UserToken) error

	// FindByToken retrieves a token record by its bearer string.
	FindByToken(ctx context.Context, token string) (*entity.UserToken, error)

	// FindByUserID retrieves all token records minted for a user, newest first.
	FindByUserID(ctx context.Context, userID uuid.UUID) ([]*entity.UserToken, error)

	// DeleteExpired removes records whose expiry has passed. Intended for
	// periodic cleanup; the authentication path never calls it.
	DeleteExpired(ctx context.Context) error
}
