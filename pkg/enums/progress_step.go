package enums

import "fmt"

// ProgressStep is the fine-grained stage shown on the four-step progress bar.
// It is written alongside ShipmentStatus by the status update path; shipment
// creation deliberately leaves it unset (see the shipments service).
type ProgressStep string

const (
	ProgressStepPending        ProgressStep = "pending"
	ProgressStepInTransit      ProgressStep = "in_transit"
	ProgressStepOutForDelivery ProgressStep = "out_for_delivery"
	ProgressStepDelivered      ProgressStep = "delivered"
)

var validProgressSteps = []ProgressStep{
	ProgressStepPending,
	ProgressStepInTransit,
	ProgressStepOutForDelivery,
	ProgressStepDelivered,
}

// String implements fmt.Stringer.
func (p ProgressStep) String() string {
	return string(p)
}

// IsValid reports whether the value is a known ProgressStep.
func (p ProgressStep) IsValid() bool {
	for _, candidate := range validProgressSteps {
		if candidate == p {
			return true
		}
	}
	return false
}

// ParseProgressStep converts raw input into a ProgressStep.
func ParseProgressStep(value string) (ProgressStep, error) {
	for _, candidate := range validProgressSteps {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid progress step %q", value)
}
