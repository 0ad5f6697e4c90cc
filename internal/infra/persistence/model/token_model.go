package model

import (
	"time"

	"github.com/google/uuid"
)

// UserTokenModel mirrors the 'user_tokens' table. One row is written per
// minted token; rows are never updated.
type UserTokenModel struct {
	ID        uuid.UUID `gorm:"type:uuid;primary_key;default:uuid_generate_v7()"`
	UserID    uuid.UUID `gorm:"type:uuid;not null;index"`
	Token     string    `gorm:"type:text;unique;not null"`
	Type      string    `gorm:"type:varchar(16);not null"`
	ExpiresAt time.Time `gorm:"not null;index"`
	CreatedAt time.Time
}

// TableName explicitly sets the table name for GORM.
func (UserTokenModel) TableName() string {
	return "user_tokens"
}
