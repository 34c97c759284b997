package models

import (
	"time"

	"github.com/boldreach/logistics-backend/pkg/enums"
	"github.com/google/uuid"
)

// Shipment represents one parcel in transit.
//
// Status and ProgressStep are independent but correlated columns: the status
// update path writes both, while creation sets Status without a ProgressStep.
// Readers must go through the progress normalizer rather than assume the pair
// is consistent.
type Shipment struct {
	ID               uuid.UUID            `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	TrackingNumber   string               `gorm:"column:tracking_number;type:text;not null;uniqueIndex"`
	UserID           uuid.UUID            `gorm:"column:user_id;type:uuid;not null;index"`
	Status           enums.ShipmentStatus `gorm:"column:status;type:text;not null;default:'confirmed'"`
	ProgressStep     *enums.ProgressStep  `gorm:"column:progress_step;type:text"`
	SenderName       string               `gorm:"column:sender_name;not null"`
	ReceiverName     string               `gorm:"column:receiver_name;not null"`
	ReceiverPhone    string               `gorm:"column:receiver_phone;not null"`
	ItemsDescription string               `gorm:"column:items_description"`
	Weight           *float64             `gorm:"column:weight"`
	PackageQuantity  *int                 `gorm:"column:package_quantity"`
	OriginLocation   string               `gorm:"column:origin_location;not null"`
	Destination      string               `gorm:"column:destination;not null"`
	ShipmentDate     *time.Time           `gorm:"column:shipment_date"`
	PackageImageURL  *string              `gorm:"column:package_image_url"`
	Events           []ShipmentEvent      `gorm:"foreignKey:ShipmentID;constraint:OnDelete:CASCADE"`
	CreatedAt        time.Time            `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt        time.Time            `gorm:"column:updated_at;autoUpdateTime"`
}
