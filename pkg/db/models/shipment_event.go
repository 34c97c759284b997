package models

import (
	"time"

	"github.com/google/uuid"
)

// ShipmentEvent is an append-only audit record for a shipment. Rows are never
// updated or deleted in normal operation; multiple rows with the same event
// type (including "delivered") are legal.
type ShipmentEvent struct {
	ID          uuid.UUID  `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	ShipmentID  uuid.UUID  `gorm:"column:shipment_id;type:uuid;not null;index"`
	EventType   string     `gorm:"column:event_type;type:text;not null;index"`
	Description string     `gorm:"column:description;not null"`
	Location    *string    `gorm:"column:location"`
	EventTime   time.Time  `gorm:"column:event_time;not null;autoCreateTime"`
	CreatedBy   *uuid.UUID `gorm:"column:created_by;type:uuid"`
}
