package entity

import (
	"time"

	"github.com/google/uuid"
)

// TokenType distinguishes the two kinds of credentials the service mints.
type TokenType string

const (
	// TokenTypeAccess is a short-lived token presented on every request.
	TokenTypeAccess TokenType = "ACCESS"
	// TokenTypeRefresh is a long-lived token exchanged for a new pair.
	TokenTypeRefresh TokenType = "REFRESH"
)

// UserToken is the persisted record of one minted credential. Exactly one
// record is written per mint, the record is never mutated afterwards, and the
// bearer string is globally unique.
type UserToken struct {
	ID        uuid.UUID // The unique ID of this token record.
	UserID    uuid.UUID // The user this credential was minted for.
	Token     string    // The compact signed token string, used as the lookup key.
	Type      TokenType // ACCESS or REFRESH.
	ExpiresAt time.Time // When the credential stops validating. Always after CreatedAt.
	CreatedAt time.Time // When the credential was minted.
}

// IsExpired reports whether the credential is past its expiry at wall-clock
// time. No skew tolerance is applied.
func (t *UserToken) IsExpired() bool {
	return time.Now().After(t.ExpiresAt)
}

// IsValid reports whether the credential is still within its lifetime.
func (t *UserToken) IsValid() bool {
	return !t.IsExpired()
}
