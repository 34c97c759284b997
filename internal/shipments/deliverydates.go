package shipments

import (
	"context"
	"time"

	pkgerrors "github.com/boldreach/logistics-backend/pkg/errors"
	"github.com/google/uuid"
	"go.uber.org/multierr"
)

// ResolveDeliveryDates returns the latest delivered-event timestamp per
// shipment id, keyed by id, formatted as RFC 3339 UTC. Ids without a delivered
// event are absent from the result. Duplicate and malformed ids are tolerated.
//
// The id list is chunked to stay under query parameter limits; chunks run
// sequentially and a failed chunk is logged and skipped so its siblings still
// contribute results.
func (s *service) ResolveDeliveryDates(ctx context.Context, shipmentIDs []string) (map[string]string, error) {
	ids := make([]uuid.UUID, 0, len(shipmentIDs))
	seen := make(map[uuid.UUID]struct{}, len(shipmentIDs))
	for _, raw := range shipmentIDs {
		id, err := uuid.Parse(raw)
		if err != nil {
			continue
		}
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		ids = append(ids, id)
	}

	latest := make(map[uuid.UUID]time.Time, len(ids))
	var chunkErrs error
	failedChunks := 0

	for start := 0; start < len(ids); start += s.chunkSize {
		end := start + s.chunkSize
		if end > len(ids) {
			end = len(ids)
		}

		events, err := s.repo.DeliveredEvents(ctx, ids[start:end])
		if err != nil {
			failedChunks++
			chunkErrs = multierr.Append(chunkErrs, err)
			logCtx := s.logg.WithFields(ctx, map[string]any{
				"chunk_start": start,
				"chunk_size":  end - start,
				"error":       err.Error(),
			})
			s.logg.Warn(logCtx, "shipment.delivery_dates.chunk_failed")
			continue
		}

		for _, event := range events {
			if current, ok := latest[event.ShipmentID]; !ok || event.EventTime.After(current) {
				latest[event.ShipmentID] = event.EventTime
			}
		}
	}

	if failedChunks > 0 && failedChunks*s.chunkSize >= len(ids) && len(latest) == 0 {
		// every chunk failed; there is no best-effort result to return
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, chunkErrs, "resolve delivery dates")
	}

	result := make(map[string]string, len(latest))
	for id, ts := range latest {
		result[id.String()] = ts.UTC().Format(time.RFC3339)
	}
	return result, nil
}
