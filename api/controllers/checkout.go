package controllers

import (
	"net/http"

	"github.com/caroduarte/lumina-backend/api/middleware"
	"github.com/caroduarte/lumina-backend/api/responses"
	"github.com/caroduarte/lumina-backend/api/validators"
	checkoutsvc "github.com/caroduarte/lumina-backend/internal/checkout"
	pkgerrors "github.com/caroduarte/lumina-backend/pkg/errors"
	"github.com/caroduarte/lumina-backend/pkg/logger"
)

type checkoutCreateRequest struct {
	OriginURL string `json:"origin_url" validate:"required,url"`
}

// CheckoutCreate snapshots the cart into a hosted checkout session and
// returns the provider redirect URL.
func CheckoutCreate(svc checkoutsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "checkout service unavailable"))
			return
		}

		var payload checkoutCreateRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		viewer := middleware.ViewerFromContext(r.Context())
		resp, err := svc.CreateSession(r.Context(), viewer, payload.OriginURL)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, resp)
	}
}

func CheckoutStatus(svc checkoutsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "checkout service unavailable"))
			return
		}

		sessionID, err := validators.ParseUUIDParam(r, "sessionId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		viewer := middleware.ViewerFromContext(r.Context())
		status, err := svc.GetStatus(r.Context(), viewer, sessionID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, status)
	}
}

// CheckoutConfirm is hit by the success redirect. It polls the provider
// until the session leaves pending, then reconciles it into purchases.
// The webhook usually wins the race; both paths are idempotent.
func CheckoutConfirm(svc checkoutsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "checkout service unavailable"))
			return
		}

		sessionID, err := validators.ParseUUIDParam(r, "sessionId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		viewer := middleware.ViewerFromContext(r.Context())
		if _, err := svc.GetStatus(r.Context(), viewer, sessionID); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		result, err := svc.PollStatus(r.Context(), sessionID, checkoutsvc.RetryPolicy{})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, result)
	}
}
