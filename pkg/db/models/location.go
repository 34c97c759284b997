package models

import (
	"time"

	"github.com/google/uuid"
)

// Location is a named place usable as shipment origin or destination.
// Rows are soft-deleted by flipping IsActive so historical shipments keep
// their referential meaning.
type Location struct {
	ID        uuid.UUID `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	Name      string    `gorm:"column:name;type:text;not null;uniqueIndex"`
	IsActive  bool      `gorm:"column:is_active;not null;default:true"`
	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
}
