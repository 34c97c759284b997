package enums

import "fmt"

// ShipmentStatus is the coarse lifecycle state persisted on a shipment row.
type ShipmentStatus string

const (
	ShipmentStatusDraft     ShipmentStatus = "draft"
	ShipmentStatusCreated   ShipmentStatus = "created"
	ShipmentStatusConfirmed ShipmentStatus = "confirmed"
	ShipmentStatusInTransit ShipmentStatus = "in_transit"
	ShipmentStatusDelivered ShipmentStatus = "delivered"
	ShipmentStatusCancelled ShipmentStatus = "cancelled"
	ShipmentStatusReturned  ShipmentStatus = "returned"
)

var validShipmentStatuses = []ShipmentStatus{
	ShipmentStatusDraft,
	ShipmentStatusCreated,
	ShipmentStatusConfirmed,
	ShipmentStatusInTransit,
	ShipmentStatusDelivered,
	ShipmentStatusCancelled,
	ShipmentStatusReturned,
}

// String implements fmt.Stringer.
func (s ShipmentStatus) String() string {
	return string(s)
}

// IsValid reports whether the value is a known ShipmentStatus.
func (s ShipmentStatus) IsValid() bool {
	for _, candidate := range validShipmentStatuses {
		if candidate == s {
			return true
		}
	}
	return false
}

// ParseShipmentStatus converts raw input into a ShipmentStatus.
func ParseShipmentStatus(value string) (ShipmentStatus, error) {
	for _, candidate := range validShipmentStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid shipment status %q", value)
}
