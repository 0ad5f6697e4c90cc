package entity

import (
	"github.com/google/uuid"
)

// Principal is the authenticated identity attached to a single request after
// the bearer token has been validated. It is always built from a User fetched
// at authentication time, lives only for the duration of the request and is
// never persisted.
type Principal struct {
	ID            uuid.UUID // The authenticated user's ID.
	Name          string    // Display name, carried for downstream handlers.
	Email         string    // Login identifier, equals the token subject.
	EmailVerified bool      // Whether the account's email has been confirmed.
	Authorities   []string  // Granted authorities. Currently always empty; tokens carry no role claims.
}

// NewPrincipal builds a Principal from a freshly loaded user record.
func NewPrincipal(user *User) *Principal {
	return &Principal{
		ID:            user.ID,
		Name:          user.Name,
		Email:         user.Email,
		EmailVerified: user.EmailVerified,
		Authorities:   []string{},
	}
}
