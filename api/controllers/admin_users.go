package controllers

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/boldreach/logistics-backend/api/responses"
	"github.com/boldreach/logistics-backend/api/validators"
	"github.com/boldreach/logistics-backend/internal/users"
	"github.com/boldreach/logistics-backend/pkg/enums"
	pkgerrors "github.com/boldreach/logistics-backend/pkg/errors"
	"github.com/boldreach/logistics-backend/pkg/logger"
	"github.com/boldreach/logistics-backend/pkg/pagination"
)

// AdminUsersList returns a page of accounts with their shipment counts.
func AdminUsersList(svc users.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "user service unavailable"))
			return
		}

		page, err := validators.ParseQueryInt(r, "page", 1, 1, 1<<30)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		limit, err := validators.ParseQueryInt(r, "limit", pagination.DefaultLimit, 1, pagination.MaxLimit)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		result, err := svc.List(r.Context(), pagination.Params{Page: page, Limit: limit})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, result)
	}
}

type setRoleRequest struct {
	Role string `json:"role" validate:"required"`
}

// AdminUsersSetRole reassigns an account's role. Only user and admin are
// assignable over the API.
func AdminUsersSetRole(svc users.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "user service unavailable"))
			return
		}

		userID, err := uuid.Parse(strings.TrimSpace(chi.URLParam(r, "userId")))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid user id"))
			return
		}

		var body setRoleRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		updated, err := svc.SetRole(r.Context(), userID, enums.UserRole(strings.TrimSpace(body.Role)))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, updated)
	}
}

type provisionUserRequest struct {
	Email    string  `json:"email" validate:"required,email"`
	FullName string  `json:"full_name" validate:"required"`
	Role     string  `json:"role" validate:"required"`
	Location *string `json:"location,omitempty"`
}

// AdminUsersProvision creates an account with a generated temporary password
// and emails it to the new user.
func AdminUsersProvision(svc users.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "user service unavailable"))
			return
		}

		var body provisionUserRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		created, err := svc.Provision(r.Context(), users.ProvisionInput{
			Email:    body.Email,
			FullName: strings.TrimSpace(body.FullName),
			Role:     enums.UserRole(strings.TrimSpace(body.Role)),
			Location: body.Location,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccessStatus(w, http.StatusCreated, created)
	}
}
