package shipments

import (
	"context"

	"github.com/boldreach/logistics-backend/pkg/db/models"
	"github.com/boldreach/logistics-backend/pkg/enums"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Repository exposes shipment persistence operations.
type Repository struct {
	db *gorm.DB
}

// NewRepository constructs a shipment repository tied to the provided GORM DB.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// Create inserts a new shipment row.
func (r *Repository) Create(ctx context.Context, shipment *models.Shipment) (*models.Shipment, error) {
	if err := r.db.WithContext(ctx).Create(shipment).Error; err != nil {
		return nil, err
	}
	return shipment, nil
}

// FindByID loads one shipment.
func (r *Repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Shipment, error) {
	var shipment models.Shipment
	if err := r.db.WithContext(ctx).First(&shipment, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &shipment, nil
}

// FindByTrackingNumber loads one shipment with its event history, newest event first.
func (r *Repository) FindByTrackingNumber(ctx context.Context, trackingNumber string) (*models.Shipment, error) {
	var shipment models.Shipment
	err := r.db.WithContext(ctx).
		Preload("Events", func(db *gorm.DB) *gorm.DB {
			return db.Order("event_time DESC")
		}).
		First(&shipment, "tracking_number = ?", trackingNumber).Error
	if err != nil {
		return nil, err
	}
	return &shipment, nil
}

type listQuery struct {
	userID       *uuid.UUID
	search       string
	status       string
	statusColumn string
	limit        int
	offset       int
}

func (r *Repository) applyListFilters(query *gorm.DB, opts listQuery) *gorm.DB {
	if opts.userID != nil {
		query = query.Where("user_id = ?", *opts.userID)
	}
	if opts.search != "" {
		pattern := "%" + opts.search + "%"
		query = query.Where(
			"tracking_number ILIKE ? OR destination ILIKE ? OR items_description ILIKE ?",
			pattern, pattern, pattern,
		)
	}
	if opts.status != "" {
		column := opts.statusColumn
		if column == "" {
			column = "status"
		}
		query = query.Where(column+" = ?", opts.status)
	}
	return query
}

// List returns shipments matching the query, newest first.
func (r *Repository) List(ctx context.Context, opts listQuery) ([]models.Shipment, error) {
	query := r.applyListFilters(r.db.WithContext(ctx).Model(&models.Shipment{}), opts)
	query = query.Order("created_at DESC")
	if opts.limit > 0 {
		query = query.Limit(opts.limit).Offset(opts.offset)
	}

	var rows []models.Shipment
	if err := query.Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

// Count returns the number of shipments matching the query filters.
func (r *Repository) Count(ctx context.Context, opts listQuery) (int64, error) {
	query := r.applyListFilters(r.db.WithContext(ctx).Model(&models.Shipment{}), opts)
	var total int64
	if err := query.Count(&total).Error; err != nil {
		return 0, err
	}
	return total, nil
}

// ApplyUpdate persists the validated column set as one atomic write.
func (r *Repository) ApplyUpdate(ctx context.Context, id uuid.UUID, updates map[string]any) error {
	result := r.db.WithContext(ctx).Model(&models.Shipment{}).Where("id = ?", id).Updates(updates)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// Delete hard-deletes the shipment row. Events are removed by the FK cascade.
func (r *Repository) Delete(ctx context.Context, id uuid.UUID) error {
	result := r.db.WithContext(ctx).Delete(&models.Shipment{}, "id = ?", id)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// AppendEvent inserts one audit event row.
func (r *Repository) AppendEvent(ctx context.Context, event *models.ShipmentEvent) error {
	return r.db.WithContext(ctx).Create(event).Error
}

// DeliveredEvents returns delivered-typed events for the given shipment ids.
func (r *Repository) DeliveredEvents(ctx context.Context, shipmentIDs []uuid.UUID) ([]models.ShipmentEvent, error) {
	if len(shipmentIDs) == 0 {
		return nil, nil
	}
	var rows []models.ShipmentEvent
	err := r.db.WithContext(ctx).
		Where("event_type = ?", string(enums.ProgressStepDelivered)).
		Where("shipment_id IN ?", shipmentIDs).
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}

// StatusCounts returns per-status totals scoped to one user when userID is set.
func (r *Repository) StatusCounts(ctx context.Context, userID *uuid.UUID) (map[string]int64, error) {
	query := r.db.WithContext(ctx).Model(&models.Shipment{}).Select("status, COUNT(*) AS count").Group("status")
	if userID != nil {
		query = query.Where("user_id = ?", *userID)
	}

	var rows []struct {
		Status string
		Count  int64
	}
	if err := query.Scan(&rows).Error; err != nil {
		return nil, err
	}

	counts := make(map[string]int64, len(rows))
	for _, row := range rows {
		counts[row.Status] = row.Count
	}
	return counts, nil
}

// Recent returns the most recently created shipments.
func (r *Repository) Recent(ctx context.Context, limit int) ([]models.Shipment, error) {
	var rows []models.Shipment
	err := r.db.WithContext(ctx).
		Order("created_at DESC").
		Limit(limit).
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}
