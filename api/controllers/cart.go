package controllers

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/caroduarte/lumina-backend/api/middleware"
	"github.com/caroduarte/lumina-backend/api/responses"
	"github.com/caroduarte/lumina-backend/api/validators"
	cartsvc "github.com/caroduarte/lumina-backend/internal/cart"
	pkgerrors "github.com/caroduarte/lumina-backend/pkg/errors"
	"github.com/caroduarte/lumina-backend/pkg/logger"
)

func CartView(svc cartsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "cart service unavailable"))
			return
		}

		viewer := middleware.ViewerFromContext(r.Context())
		cart, err := svc.View(r.Context(), viewer)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, cart)
	}
}

type cartAddRequest struct {
	PhotoID uuid.UUID `json:"photo_id" validate:"required"`
}

func CartAdd(svc cartsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "cart service unavailable"))
			return
		}

		var payload cartAddRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		viewer := middleware.ViewerFromContext(r.Context())
		if err := svc.Add(r.Context(), viewer, payload.PhotoID); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		cart, err := svc.View(r.Context(), viewer)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, cart)
	}
}

func CartRemove(svc cartsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "cart service unavailable"))
			return
		}

		photoID, err := validators.ParseUUIDParam(r, "photoId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		viewer := middleware.ViewerFromContext(r.Context())
		if err := svc.Remove(r.Context(), viewer, photoID); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		cart, err := svc.View(r.Context(), viewer)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, cart)
	}
}
