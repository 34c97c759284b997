package shipments

import (
	"strings"

	"github.com/boldreach/logistics-backend/pkg/enums"
	pkgerrors "github.com/boldreach/logistics-backend/pkg/errors"
)

// StatusForStep maps a progress step onto the coarse status written alongside it.
// Only the four valid steps are accepted; everything else is a validation error.
func StatusForStep(step enums.ProgressStep) (enums.ShipmentStatus, error) {
	switch step {
	case enums.ProgressStepPending:
		return enums.ShipmentStatusCreated, nil
	case enums.ProgressStepInTransit:
		return enums.ShipmentStatusInTransit, nil
	case enums.ProgressStepOutForDelivery:
		// finer stage without its own coarse status
		return enums.ShipmentStatusInTransit, nil
	case enums.ProgressStepDelivered:
		return enums.ShipmentStatusDelivered, nil
	default:
		return "", pkgerrors.New(pkgerrors.CodeValidation, "invalid progress step").WithDetails(map[string]any{"status": string(step)})
	}
}

// StepForStatus maps a coarse status onto the step shown when no explicit
// progress step is stored. Total over all inputs: empty returns "pending",
// unrecognized values echo back verbatim.
func StepForStatus(status string) string {
	switch status {
	case "":
		return string(enums.ProgressStepPending)
	case string(enums.ShipmentStatusCreated):
		return string(enums.ProgressStepPending)
	case string(enums.ShipmentStatusDraft),
		string(enums.ShipmentStatusConfirmed),
		string(enums.ShipmentStatusInTransit),
		string(enums.ShipmentStatusDelivered),
		string(enums.ShipmentStatusCancelled),
		string(enums.ShipmentStatusReturned):
		return status
	default:
		return status
	}
}

// BadgeVariant returns the display variant for a status or progress step value.
// One total function shared by every rendering surface.
func BadgeVariant(value string) string {
	switch value {
	case string(enums.ShipmentStatusDraft):
		return "gray"
	case string(enums.ProgressStepPending), string(enums.ShipmentStatusCreated):
		return "orange"
	case string(enums.ShipmentStatusConfirmed):
		return "purple"
	case string(enums.ShipmentStatusInTransit):
		return "teal"
	case string(enums.ProgressStepOutForDelivery):
		return "blue"
	case string(enums.ShipmentStatusDelivered):
		return "green"
	case string(enums.ShipmentStatusCancelled):
		return "red"
	case string(enums.ShipmentStatusReturned):
		return "amber"
	default:
		return "gray"
	}
}

// ProgressIndex ranks a progress step for the 4-stage progress indicator.
// Unmapped input returns -1, meaning the progress bar has not started.
func ProgressIndex(step string) int {
	switch step {
	case string(enums.ProgressStepPending):
		return 0
	case string(enums.ProgressStepInTransit):
		return 1
	case string(enums.ProgressStepOutForDelivery):
		return 2
	case string(enums.ProgressStepDelivered):
		return 3
	default:
		return -1
	}
}

// eventDescription composes the audit line recorded with a transition.
func eventDescription(step enums.ProgressStep, location string) string {
	desc := "Status changed to " + strings.ReplaceAll(string(step), "_", " ")
	if location != "" {
		desc += " - Location: " + location
	}
	return desc
}
