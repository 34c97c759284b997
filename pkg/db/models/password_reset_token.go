package models

import (
	"time"

	"github.com/google/uuid"
)

// PasswordResetToken backs the forgot/reset-password flow. Tokens are single
// use and expire after 24 hours.
type PasswordResetToken struct {
	ID        uuid.UUID  `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	UserID    uuid.UUID  `gorm:"column:user_id;type:uuid;not null;index"`
	Email     string     `gorm:"column:email;not null"`
	Token     string     `gorm:"column:token;type:text;not null;uniqueIndex"`
	ExpiresAt time.Time  `gorm:"column:expires_at;not null"`
	UsedAt    *time.Time `gorm:"column:used_at"`
	CreatedAt time.Time  `gorm:"column:created_at;autoCreateTime"`
}
