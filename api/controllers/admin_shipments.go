package controllers

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/boldreach/logistics-backend/api/responses"
	"github.com/boldreach/logistics-backend/api/validators"
	"github.com/boldreach/logistics-backend/internal/shipments"
	"github.com/boldreach/logistics-backend/pkg/enums"
	pkgerrors "github.com/boldreach/logistics-backend/pkg/errors"
	"github.com/boldreach/logistics-backend/pkg/logger"
	"github.com/boldreach/logistics-backend/pkg/pagination"
)

func adminListParams(r *http.Request) (shipments.AdminListParams, error) {
	page, err := validators.ParseQueryInt(r, "page", 1, 1, 1<<30)
	if err != nil {
		return shipments.AdminListParams{}, err
	}
	limit, err := validators.ParseQueryInt(r, "limit", pagination.DefaultLimit, 1, pagination.MaxLimit)
	if err != nil {
		return shipments.AdminListParams{}, err
	}
	return shipments.AdminListParams{
		Search:     validators.ParseQueryString(r, "search", ""),
		Status:     validators.ParseQueryString(r, "status", ""),
		Pagination: pagination.Params{Page: page, Limit: limit},
		All:        validators.ParseQueryString(r, "all", "") == "1",
	}, nil
}

// AdminShipmentsList returns the staff-facing shipment list across all users.
func AdminShipmentsList(svc shipments.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "shipment service unavailable"))
			return
		}

		params, err := adminListParams(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		result, err := svc.AdminList(r.Context(), params)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, result)
	}
}

type deliveryDatesRequest struct {
	ShipmentIDs []string `json:"shipmentIds" validate:"required"`
}

type deliveryDatesResponse struct {
	DeliveredAtByID map[string]string `json:"deliveredAtById"`
}

// AdminShipmentsDeliveryDates resolves delivered-at timestamps for a batch of
// shipment ids from their event history.
func AdminShipmentsDeliveryDates(svc shipments.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "shipment service unavailable"))
			return
		}

		var body deliveryDatesRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		resolved, err := svc.ResolveDeliveryDates(r.Context(), body.ShipmentIDs)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, deliveryDatesResponse{DeliveredAtByID: resolved})
	}
}

// AdminShipmentsExport streams the filtered shipment list as a CSV download.
func AdminShipmentsExport(svc shipments.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "shipment service unavailable"))
			return
		}

		params, err := adminListParams(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		rows, err := svc.ExportRows(r.Context(), params)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		// Buffer before writing headers so a CSV failure can still produce
		// a JSON error response.
		var buf bytes.Buffer
		if err := shipments.WriteCSV(&buf, rows); err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "render export"))
			return
		}

		filename := fmt.Sprintf("shipments-export-%s.csv", time.Now().UTC().Format("20060102"))
		w.Header().Set("Content-Type", "text/csv; charset=utf-8")
		w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write(buf.Bytes())
	}
}

// updateShipmentStatusRequest mirrors the legacy client payload. The field
// named "status" carries a progress step value, not a shipment status; the
// name is kept for wire compatibility. weightKg and packageQuantity stay raw
// so omitted, null, and empty-string payloads stay distinguishable.
type updateShipmentStatusRequest struct {
	Status          string          `json:"status" validate:"required"`
	Location        string          `json:"location,omitempty"`
	ReceiverName    *string         `json:"receiverName,omitempty"`
	WeightKg        json.RawMessage `json:"weightKg,omitempty"`
	PackageQuantity json.RawMessage `json:"packageQuantity,omitempty"`
}

func parseFloatPatch(raw json.RawMessage, field string) (shipments.FloatPatch, error) {
	if len(raw) == 0 {
		return shipments.FloatPatch{}, nil
	}
	if string(raw) == "null" {
		return shipments.FloatPatch{Provided: true, Null: true}, nil
	}
	var value float64
	if err := json.Unmarshal(raw, &value); err != nil {
		return shipments.FloatPatch{}, pkgerrors.New(pkgerrors.CodeValidation, field+" must be a number")
	}
	return shipments.FloatPatch{Provided: true, Value: value}, nil
}

func parseIntPatch(raw json.RawMessage, field string) (shipments.IntPatch, error) {
	if len(raw) == 0 {
		return shipments.IntPatch{}, nil
	}
	switch string(raw) {
	case "null":
		return shipments.IntPatch{Provided: true, Null: true}, nil
	case `""`:
		return shipments.IntPatch{Provided: true, Empty: true}, nil
	}
	var value float64
	if err := json.Unmarshal(raw, &value); err != nil {
		return shipments.IntPatch{}, pkgerrors.New(pkgerrors.CodeValidation, field+" must be a number")
	}
	return shipments.IntPatch{Provided: true, Value: value}, nil
}

func (req updateShipmentStatusRequest) toInput() (shipments.UpdateStatusInput, error) {
	weight, err := parseFloatPatch(req.WeightKg, "weightKg")
	if err != nil {
		return shipments.UpdateStatusInput{}, err
	}
	quantity, err := parseIntPatch(req.PackageQuantity, "packageQuantity")
	if err != nil {
		return shipments.UpdateStatusInput{}, err
	}
	return shipments.UpdateStatusInput{
		Step:            enums.ProgressStep(strings.TrimSpace(req.Status)),
		Location:        strings.TrimSpace(req.Location),
		ReceiverName:    req.ReceiverName,
		WeightKg:        weight,
		PackageQuantity: quantity,
	}, nil
}

// AdminShipmentsUpdateStatus applies a progress transition plus optional
// field corrections to one shipment.
func AdminShipmentsUpdateStatus(svc shipments.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "shipment service unavailable"))
			return
		}

		actor, err := actorID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		shipmentID, err := uuid.Parse(strings.TrimSpace(chi.URLParam(r, "shipmentId")))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid shipment id"))
			return
		}

		var body updateShipmentStatusRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		input, err := body.toInput()
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		if err := svc.UpdateStatus(r.Context(), actor, shipmentID, input); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, map[string]string{"message": "shipment updated"})
	}
}

// AdminShipmentsDelete hard-deletes a shipment. Events go with it via the
// foreign key cascade.
func AdminShipmentsDelete(svc shipments.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "shipment service unavailable"))
			return
		}

		shipmentID, err := uuid.Parse(strings.TrimSpace(chi.URLParam(r, "shipmentId")))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid shipment id"))
			return
		}

		if err := svc.Delete(r.Context(), shipmentID); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, map[string]string{"message": "shipment deleted"})
	}
}
