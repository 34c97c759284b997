package controllers

import (
	"net/http"

	"github.com/boldreach/logistics-backend/api/responses"
	"github.com/boldreach/logistics-backend/internal/shipments"
	pkgerrors "github.com/boldreach/logistics-backend/pkg/errors"
	"github.com/boldreach/logistics-backend/pkg/logger"
)

// AdminDashboard aggregates the staff landing-page counters.
func AdminDashboard(svc shipments.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "shipment service unavailable"))
			return
		}

		view, err := svc.Dashboard(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, view)
	}
}
