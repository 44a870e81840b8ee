package controllers

import (
	"io"
	"net/http"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/caroduarte/lumina-backend/api/middleware"
	"github.com/caroduarte/lumina-backend/api/responses"
	"github.com/caroduarte/lumina-backend/api/validators"
	photosvc "github.com/caroduarte/lumina-backend/internal/photos"
	"github.com/caroduarte/lumina-backend/pkg/enums"
	pkgerrors "github.com/caroduarte/lumina-backend/pkg/errors"
	"github.com/caroduarte/lumina-backend/pkg/logger"
)

const maxUploadBytes = 32 << 20

// PhotoUpload registers one or more images under an event. Multipart
// form fields: price (shared by every file) and file parts named
// "photos".
func PhotoUpload(svc photosvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "photo service unavailable"))
			return
		}

		eventID, err := validators.ParseUUIDParam(r, "eventId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid multipart form"))
			return
		}

		price, err := parsePrice(r.FormValue("price"))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		files := r.MultipartForm.File["photos"]
		if len(files) == 0 {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "at least one photo file is required"))
			return
		}

		uploaded := make([]photosvc.PhotoDTO, 0, len(files))
		for _, header := range files {
			file, openErr := header.Open()
			if openErr != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, openErr, "read upload"))
				return
			}
			content, readErr := io.ReadAll(file)
			file.Close()
			if readErr != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, readErr, "read upload"))
				return
			}

			photo, uploadErr := svc.Upload(r.Context(), photosvc.UploadPhotoDTO{
				EventID:  eventID,
				Filename: validators.SanitizeString(header.Filename, 255),
				Price:    price,
				Content:  content,
			})
			if uploadErr != nil {
				responses.WriteError(r.Context(), logg, w, uploadErr)
				return
			}
			uploaded = append(uploaded, *photo)
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, uploaded)
	}
}

func parsePrice(raw string) (decimal.Decimal, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return decimal.Zero, pkgerrors.New(pkgerrors.CodeValidation, "price is required")
	}
	price, err := decimal.NewFromString(trimmed)
	if err != nil {
		return decimal.Zero, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid price")
	}
	if price.IsNegative() {
		return decimal.Zero, pkgerrors.New(pkgerrors.CodeValidation, "price cannot be negative")
	}
	return price, nil
}

func PhotosByEvent(svc photosvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "photo service unavailable"))
			return
		}

		eventID, err := validators.ParseUUIDParam(r, "eventId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		viewer := middleware.ViewerFromContext(r.Context())
		photos, err := svc.ListByEvent(r.Context(), viewer, eventID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, photos)
	}
}

// PhotoRendition resolves a delivery URL for the requested rendition and
// redirects to it. Originals are gated on ownership.
func PhotoRendition(svc photosvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "photo service unavailable"))
			return
		}

		photoID, err := validators.ParseUUIDParam(r, "photoId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		rendition := enums.Rendition(strings.TrimSpace(r.URL.Query().Get("rendition")))
		if rendition == "" {
			rendition = enums.RenditionWatermarked
		}

		viewer := middleware.ViewerFromContext(r.Context())
		url, err := svc.ResolveRendition(r.Context(), viewer, photoID, rendition)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		http.Redirect(w, r, url, http.StatusFound)
	}
}

func PhotoDelete(svc photosvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "photo service unavailable"))
			return
		}

		photoID, err := validators.ParseUUIDParam(r, "photoId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		if err := svc.Delete(r.Context(), photoID); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]string{"status": "deleted"})
	}
}
