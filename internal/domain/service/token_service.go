package service

import (
	"context"
	"time"

	"bookwise/internal/domain/entity"

	"github.com/google/uuid"
)

// Claims is the decoded payload of a minted token. Only these five claims are
// ever produced or consumed, so they are named, typed fields rather than an
// open-ended map.
type Claims struct {
	Subject   string           // The owning user's email.
	UserID    uuid.UUID        // The owning user's ID.
	TokenID   uuid.UUID        // Unique per mint, reserved for future revocation.
	TokenType entity.TokenType // ACCESS unless the token carries an explicit refresh type claim.
	IssuedAt  time.Time
	ExpiresAt time.Time
}

// TokenService mints and validates the service's signed bearer tokens.
// Every mint persists a token record as a side effect; if the record cannot
// be saved the mint fails as a whole.
type TokenService interface {
	// GenerateAccessToken mints a short-lived access token for the user and
	// persists its record before returning the compact token string.
	GenerateAccessToken(ctx context.Context, user *entity.User) (string, error)

	// GenerateRefreshToken mints a long-lived refresh token for the user and
	// persists its record before returning the compact token string.
	GenerateRefreshToken(ctx context.Context, user *entity.User) (string, error)

	// Validate reports whether the token is well-formed, carries a valid
	// signature and is unexpired. It never fails for malformed input; any
	// parse or signature problem simply yields false.
	Validate(tokenString string) bool

	// Claims decodes the token's payload. Expired tokens with a valid
	// signature still yield their claims, because refresh and logging flows
	// need the identity after expiry; Validate still reports false for them.
	Claims(tokenString string) (*Claims, error)

	// Subject returns the subject (email) claim.
	Subject(tokenString string) (string, error)

	// UserID returns the user-id claim.
	UserID(tokenString string) (uuid.UUID, error)

	// ExpiresAt returns the expiry claim.
	ExpiresAt(tokenString string) (time.Time, error)
}
