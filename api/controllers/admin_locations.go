package controllers

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/boldreach/logistics-backend/api/responses"
	"github.com/boldreach/logistics-backend/api/validators"
	"github.com/boldreach/logistics-backend/internal/locations"
	pkgerrors "github.com/boldreach/logistics-backend/pkg/errors"
	"github.com/boldreach/logistics-backend/pkg/logger"
)

// AdminLocationsList returns every location, inactive ones included.
func AdminLocationsList(svc locations.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "location service unavailable"))
			return
		}

		rows, err := svc.ListAll(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, rows)
	}
}

type upsertLocationRequest struct {
	Name string `json:"name" validate:"required"`
}

// AdminLocationsUpsert creates a location or reactivates an existing one by
// name.
func AdminLocationsUpsert(svc locations.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "location service unavailable"))
			return
		}

		var body upsertLocationRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		location, err := svc.Upsert(r.Context(), body.Name)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, location)
	}
}

// AdminLocationsDelete soft-deletes a location so historical shipments keep
// their origin labels.
func AdminLocationsDelete(svc locations.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "location service unavailable"))
			return
		}

		locationID, err := uuid.Parse(strings.TrimSpace(chi.URLParam(r, "locationId")))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid location id"))
			return
		}

		if err := svc.Deactivate(r.Context(), locationID); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, map[string]string{"message": "location removed"})
	}
}
