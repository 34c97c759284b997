package locations

import (
	"context"

	"github.com/boldreach/logistics-backend/pkg/db/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Repository exposes location persistence operations.
type Repository struct {
	db *gorm.DB
}

// NewRepository constructs a location repository tied to the provided GORM DB.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// ListActive returns active locations ordered by name.
func (r *Repository) ListActive(ctx context.Context) ([]models.Location, error) {
	var rows []models.Location
	err := r.db.WithContext(ctx).
		Where("is_active = ?", true).
		Order("name ASC").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}

// ListAll returns every location, inactive ones included.
func (r *Repository) ListAll(ctx context.Context) ([]models.Location, error) {
	var rows []models.Location
	if err := r.db.WithContext(ctx).Order("name ASC").Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

// FindByName matches a location by exact name.
func (r *Repository) FindByName(ctx context.Context, name string) (*models.Location, error) {
	var location models.Location
	if err := r.db.WithContext(ctx).First(&location, "name = ?", name).Error; err != nil {
		return nil, err
	}
	return &location, nil
}

// Create inserts a new location row.
func (r *Repository) Create(ctx context.Context, location *models.Location) (*models.Location, error) {
	if err := r.db.WithContext(ctx).Create(location).Error; err != nil {
		return nil, err
	}
	return location, nil
}

// SetActive flips the soft-delete flag.
func (r *Repository) SetActive(ctx context.Context, id uuid.UUID, active bool) error {
	result := r.db.WithContext(ctx).Model(&models.Location{}).Where("id = ?", id).Update("is_active", active)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}
