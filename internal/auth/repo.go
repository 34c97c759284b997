package auth

import (
	"context"
	"time"

	"github.com/boldreach/logistics-backend/pkg/db/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ResetTokenRepository persists password reset tokens.
type ResetTokenRepository struct {
	db *gorm.DB
}

// NewResetTokenRepository constructs a reset token repository.
func NewResetTokenRepository(db *gorm.DB) *ResetTokenRepository {
	return &ResetTokenRepository{db: db}
}

// Create inserts a reset token row.
func (r *ResetTokenRepository) Create(ctx context.Context, token *models.PasswordResetToken) error {
	return r.db.WithContext(ctx).Create(token).Error
}

// FindByToken loads a reset token row by its opaque token string.
func (r *ResetTokenRepository) FindByToken(ctx context.Context, token string) (*models.PasswordResetToken, error) {
	var row models.PasswordResetToken
	if err := r.db.WithContext(ctx).First(&row, "token = ?", token).Error; err != nil {
		return nil, err
	}
	return &row, nil
}

// MarkUsed stamps used_at on the token row.
func (r *ResetTokenRepository) MarkUsed(ctx context.Context, id uuid.UUID, at time.Time) error {
	return r.db.WithContext(ctx).
		Model(&models.PasswordResetToken{}).
		Where("id = ?", id).
		Update("used_at", at).Error
}
