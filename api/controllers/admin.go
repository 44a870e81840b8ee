package controllers

import (
	"net/http"

	"github.com/caroduarte/lumina-backend/api/middleware"
	"github.com/caroduarte/lumina-backend/api/responses"
	"github.com/caroduarte/lumina-backend/api/validators"
	adminsvc "github.com/caroduarte/lumina-backend/internal/admin"
	"github.com/caroduarte/lumina-backend/pkg/enums"
	pkgerrors "github.com/caroduarte/lumina-backend/pkg/errors"
	"github.com/caroduarte/lumina-backend/pkg/logger"
)

func AdminStats(svc adminsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "admin service unavailable"))
			return
		}

		viewer := middleware.ViewerFromContext(r.Context())
		stats, err := svc.Stats(r.Context(), viewer)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, stats)
	}
}

func AdminClients(svc adminsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "admin service unavailable"))
			return
		}

		viewer := middleware.ViewerFromContext(r.Context())
		clients, err := svc.Clients(r.Context(), viewer)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, clients)
	}
}

type updateRoleRequest struct {
	Role string `json:"role" validate:"required"`
}

func AdminUpdateRole(svc adminsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "admin service unavailable"))
			return
		}

		userID, err := validators.ParseUUIDParam(r, "userId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload updateRoleRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		viewer := middleware.ViewerFromContext(r.Context())
		user, err := svc.UpdateRole(r.Context(), viewer, userID, enums.UserRole(payload.Role))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, user)
	}
}
