package controllers

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/boldreach/logistics-backend/api/middleware"
	"github.com/boldreach/logistics-backend/api/responses"
	"github.com/boldreach/logistics-backend/api/validators"
	"github.com/boldreach/logistics-backend/internal/shipments"
	pkgerrors "github.com/boldreach/logistics-backend/pkg/errors"
	"github.com/boldreach/logistics-backend/pkg/logger"
)

func actorID(r *http.Request) (uuid.UUID, error) {
	raw := middleware.UserIDFromContext(r.Context())
	if raw == "" {
		return uuid.Nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user context missing")
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid user id")
	}
	return id, nil
}

// ShipmentsList returns the caller's shipments with optional search and
// status filters.
func ShipmentsList(svc shipments.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "shipment service unavailable"))
			return
		}

		userID, err := actorID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		search := validators.ParseQueryString(r, "search", "")
		status := validators.ParseQueryString(r, "status", "")

		rows, err := svc.ListForUser(r.Context(), userID, search, status)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, rows)
	}
}

type createShipmentRequest struct {
	SenderName       string  `json:"sender_name" validate:"required"`
	ReceiverName     string  `json:"receiver_name" validate:"required"`
	ReceiverPhone    string  `json:"receiver_phone" validate:"required"`
	ItemsDescription string  `json:"items_description"`
	WeightKg         float64 `json:"weight_kg" validate:"required,gt=0"`
	PackageQuantity  *int    `json:"package_quantity,omitempty"`
	OriginLocation   string  `json:"origin_location" validate:"required"`
	Destination      string  `json:"destination" validate:"required"`
	ShipmentDate     *string `json:"shipment_date,omitempty"`
	PackageImageURL  *string `json:"package_image_url,omitempty"`
}

func (req createShipmentRequest) toInput() (shipments.CreateShipmentInput, error) {
	input := shipments.CreateShipmentInput{
		SenderName:       strings.TrimSpace(req.SenderName),
		ReceiverName:     strings.TrimSpace(req.ReceiverName),
		ReceiverPhone:    strings.TrimSpace(req.ReceiverPhone),
		ItemsDescription: strings.TrimSpace(req.ItemsDescription),
		WeightKg:         req.WeightKg,
		PackageQuantity:  req.PackageQuantity,
		OriginLocation:   strings.TrimSpace(req.OriginLocation),
		Destination:      strings.TrimSpace(req.Destination),
		PackageImageURL:  req.PackageImageURL,
	}
	if req.ShipmentDate != nil && strings.TrimSpace(*req.ShipmentDate) != "" {
		parsed, err := time.Parse("2006-01-02", strings.TrimSpace(*req.ShipmentDate))
		if err != nil {
			return shipments.CreateShipmentInput{}, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "shipment_date must be YYYY-MM-DD")
		}
		input.ShipmentDate = &parsed
	}
	return input, nil
}

// ShipmentsCreate books a shipment for the caller.
func ShipmentsCreate(svc shipments.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "shipment service unavailable"))
			return
		}

		userID, err := actorID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var body createShipmentRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		input, err := body.toInput()
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		shipment, err := svc.Create(r.Context(), userID, input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccessStatus(w, http.StatusCreated, shipment)
	}
}

// ShipmentsDraft acknowledges a draft save. Drafts live client-side; the
// endpoint exists so older clients get a stable 200 instead of a 404.
func ShipmentsDraft(logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if _, err := actorID(r); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]string{"message": "draft saved"})
	}
}

// ShipmentsStats returns the caller's shipment counters.
func ShipmentsStats(svc shipments.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "shipment service unavailable"))
			return
		}

		userID, err := actorID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		stats, err := svc.StatsForUser(r.Context(), userID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, stats)
	}
}

// TrackingCache stores rendered tracking lookups for a short TTL. The public
// tracking endpoint is unauthenticated and polled by recipients, so hot
// numbers are served from Redis instead of the database.
type TrackingCache interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key string, value any, ttl time.Duration) error
	TrackingCacheKey(trackingNumber string) string
}

// ShipmentsTrack resolves a tracking number to its shipment, normalized
// progress view, and event history.
func ShipmentsTrack(svc shipments.Service, cache TrackingCache, cacheTTL time.Duration, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "shipment service unavailable"))
			return
		}

		trackingNumber := strings.TrimSpace(chi.URLParam(r, "trackingNumber"))
		if trackingNumber == "" {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "tracking number is required"))
			return
		}

		useCache := cache != nil && cacheTTL > 0
		cacheKey := ""
		if useCache {
			cacheKey = cache.TrackingCacheKey(trackingNumber)
			if raw, err := cache.Get(r.Context(), cacheKey); err == nil && raw != "" {
				responses.WriteSuccess(w, json.RawMessage(raw))
				return
			}
		}

		view, err := svc.Track(r.Context(), trackingNumber)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		if useCache {
			if payload, err := json.Marshal(view); err == nil {
				if err := cache.Set(r.Context(), cacheKey, payload, cacheTTL); err != nil {
					logg.Warn(r.Context(), "caching tracking lookup failed")
				}
			}
		}

		responses.WriteSuccess(w, view)
	}
}
