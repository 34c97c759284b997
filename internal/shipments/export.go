package shipments

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"time"
)

// ExportRow is one line of the staff CSV export.
type ExportRow struct {
	TrackingNumber  string
	SenderName      string
	ReceiverName    string
	Origin          string
	Destination     string
	Status          string
	ProgressStep    string
	WeightKg        *float64
	PackageQuantity *int
	CreatedAt       time.Time
	DeliveredAt     string
}

// ExportRows builds the export dataset for the filtered shipment list,
// resolving delivered dates through the delivery-date resolver.
func (s *service) ExportRows(ctx context.Context, params AdminListParams) ([]ExportRow, error) {
	params.All = true
	result, err := s.AdminList(ctx, params)
	if err != nil {
		return nil, err
	}

	ids := make([]string, 0, len(result.Shipments))
	for _, shipment := range result.Shipments {
		ids = append(ids, shipment.ID.String())
	}
	deliveredAt, err := s.ResolveDeliveryDates(ctx, ids)
	if err != nil {
		return nil, err
	}

	rows := make([]ExportRow, 0, len(result.Shipments))
	for _, shipment := range result.Shipments {
		rows = append(rows, ExportRow{
			TrackingNumber:  shipment.TrackingNumber,
			SenderName:      shipment.SenderName,
			ReceiverName:    shipment.ReceiverName,
			Origin:          shipment.OriginLocation,
			Destination:     shipment.Destination,
			Status:          string(shipment.Status),
			ProgressStep:    DisplayStep(&shipment),
			WeightKg:        shipment.Weight,
			PackageQuantity: shipment.PackageQuantity,
			CreatedAt:       shipment.CreatedAt,
			DeliveredAt:     deliveredAt[shipment.ID.String()],
		})
	}
	return rows, nil
}

var exportHeader = []string{
	"tracking_number", "sender_name", "receiver_name", "origin", "destination",
	"status", "progress_step", "weight_kg", "package_quantity", "created_at", "delivered_at",
}

// WriteCSV streams export rows as CSV.
func WriteCSV(w io.Writer, rows []ExportRow) error {
	writer := csv.NewWriter(w)
	if err := writer.Write(exportHeader); err != nil {
		return fmt.Errorf("write csv header: %w", err)
	}
	for _, row := range rows {
		weight := ""
		if row.WeightKg != nil {
			weight = strconv.FormatFloat(*row.WeightKg, 'f', -1, 64)
		}
		quantity := ""
		if row.PackageQuantity != nil {
			quantity = strconv.Itoa(*row.PackageQuantity)
		}
		record := []string{
			row.TrackingNumber,
			row.SenderName,
			row.ReceiverName,
			row.Origin,
			row.Destination,
			row.Status,
			row.ProgressStep,
			weight,
			quantity,
			row.CreatedAt.UTC().Format(time.RFC3339),
			row.DeliveredAt,
		}
		if err := writer.Write(record); err != nil {
			return fmt.Errorf("write csv row: %w", err)
		}
	}
	writer.Flush()
	return writer.Error()
}
