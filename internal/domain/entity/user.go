// Package entity contains the core business objects of the project,
// each representing a unique, identifiable concept within the domain.
package entity

import (
	"time"

	"github.com/google/uuid"
)

// User is the core identity record of the system. Email is the login
// identifier and is unique case-insensitively at the storage layer.
type User struct {
	ID            uuid.UUID  // The unique identifier for this account.
	Email         string     // Primary contact email, used as the login identifier.
	PasswordHash  string     // Bcrypt digest of the user's password. Never the plaintext.
	Name          string     // Display name.
	AvatarURL     string     // Optional URL of the user's avatar image.
	Bio           string     // Optional free-form profile text.
	IsActive      bool       // Whether the account is enabled.
	EmailVerified bool       // Whether the email address has been confirmed.
	LastLogin     *time.Time // Timestamp of the most recent successful login, nil if never.
	CreatedAt     time.Time  // Timestamp of account creation.
	UpdatedAt     time.Time  // Timestamp of the last modification.
}

// MarkLoginSuccess records the current time as the last successful login.
func (u *User) MarkLoginSuccess() {
	now := time.Now()
	u.LastLogin = &now
}

// ChangePassword replaces the stored digest and bumps the modification time.
// The caller is responsible for hashing the new password first.
func (u *User) ChangePassword(newHash string) {
	u.PasswordHash = newHash
	u.UpdatedAt = time.Now()
}
