package events

import (
	"time"

	"github.com/google/uuid"

	"github.com/caroduarte/lumina-backend/pkg/db/models"
)

// EventDTO is the API shape of an event, enriched with the photo count
// and a thumbnail URL for the cover photo when one is set.
type EventDTO struct {
	ID            uuid.UUID  `json:"id"`
	Name          string     `json:"name"`
	EventDate     *time.Time `json:"event_date,omitempty"`
	Location      *string    `json:"location,omitempty"`
	Description   *string    `json:"description,omitempty"`
	IsPublic      bool       `json:"is_public"`
	CoverPhotoID  *uuid.UUID `json:"cover_photo_id,omitempty"`
	CoverPhotoURL string     `json:"cover_photo_url,omitempty"`
	PhotoCount    int64      `json:"photo_count"`
	CreatedAt     time.Time  `json:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at"`
}

// CreateEventDTO carries the fields accepted when creating an event.
type CreateEventDTO struct {
	Name        string     `json:"name" validate:"required"`
	EventDate   *time.Time `json:"event_date"`
	Location    *string    `json:"location"`
	Description *string    `json:"description"`
	IsPublic    *bool      `json:"is_public"`
}

// UpdateEventDTO carries a partial update; nil fields are left untouched.
type UpdateEventDTO struct {
	Name        *string    `json:"name"`
	EventDate   *time.Time `json:"event_date"`
	Location    *string    `json:"location"`
	Description *string    `json:"description"`
	IsPublic    *bool      `json:"is_public"`
}

// FromModel maps a persisted event into its DTO. PhotoCount and
// CoverPhotoURL are filled in by the service.
func FromModel(e *models.Event) *EventDTO {
	if e == nil {
		return nil
	}
	return &EventDTO{
		ID:           e.ID,
		Name:         e.Name,
		EventDate:    e.EventDate,
		Location:     e.Location,
		Description:  e.Description,
		IsPublic:     e.IsPublic,
		CoverPhotoID: e.CoverPhotoID,
		CreatedAt:    e.CreatedAt,
		UpdatedAt:    e.UpdatedAt,
	}
}
