package events

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/caroduarte/lumina-backend/pkg/db/models"
	"github.com/caroduarte/lumina-backend/pkg/enums"
	pkgerrors "github.com/caroduarte/lumina-backend/pkg/errors"
)

// Service defines the behavior needed by the event controllers.
type Service interface {
	Create(ctx context.Context, dto CreateEventDTO) (*EventDTO, error)
	Update(ctx context.Context, id uuid.UUID, dto UpdateEventDTO) (*EventDTO, error)
	Delete(ctx context.Context, id uuid.UUID) error
	Get(ctx context.Context, id uuid.UUID) (*EventDTO, error)
	List(ctx context.Context, publicOnly bool) ([]EventDTO, error)
	SetCover(ctx context.Context, eventID uuid.UUID, photoID *uuid.UUID) error
}

type eventRepository interface {
	Create(ctx context.Context, event *models.Event) error
	FindByID(ctx context.Context, id uuid.UUID) (*models.Event, error)
	List(ctx context.Context, publicOnly bool) ([]models.Event, error)
	Update(ctx context.Context, id uuid.UUID, updates map[string]any) (bool, error)
	Delete(ctx context.Context, id uuid.UUID) (bool, error)
	SetCoverPhoto(ctx context.Context, eventID uuid.UUID, photoID *uuid.UUID) error
	PhotoCounts(ctx context.Context, eventIDs []uuid.UUID) (map[uuid.UUID]int64, error)
}

type photoFinder interface {
	FindByIDs(ctx context.Context, ids []uuid.UUID) ([]models.Photo, error)
}

type urlBuilder interface {
	RenditionURL(publicID string, rendition enums.Rendition) string
}

type service struct {
	repo   eventRepository
	photos photoFinder
	urls   urlBuilder
}

// ServiceParams bundles the dependencies required to build an events service.
type ServiceParams struct {
	Repo   eventRepository
	Photos photoFinder
	URLs   urlBuilder
}

// NewService constructs an events service. The URL builder is optional;
// without it cover photo URLs are omitted.
func NewService(params ServiceParams) (Service, error) {
	if params.Repo == nil {
		return nil, fmt.Errorf("events repository is required")
	}
	if params.Photos == nil {
		return nil, fmt.Errorf("photo finder is required")
	}
	return &service{
		repo:   params.Repo,
		photos: params.Photos,
		urls:   params.URLs,
	}, nil
}

func (s *service) Create(ctx context.Context, dto CreateEventDTO) (*EventDTO, error) {
	name := strings.TrimSpace(dto.Name)
	if name == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "event name is required")
	}

	event := &models.Event{
		Name:        name,
		EventDate:   dto.EventDate,
		Location:    dto.Location,
		Description: dto.Description,
		IsPublic:    true,
	}
	if dto.IsPublic != nil {
		event.IsPublic = *dto.IsPublic
	}
	if event.ID == uuid.Nil {
		event.ID = uuid.New()
	}

	if err := s.repo.Create(ctx, event); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "create event")
	}
	return FromModel(event), nil
}

func (s *service) Update(ctx context.Context, id uuid.UUID, dto UpdateEventDTO) (*EventDTO, error) {
	updates := map[string]any{}
	if dto.Name != nil {
		name := strings.TrimSpace(*dto.Name)
		if name == "" {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "event name cannot be empty")
		}
		updates["name"] = name
	}
	if dto.EventDate != nil {
		updates["event_date"] = *dto.EventDate
	}
	if dto.Location != nil {
		updates["location"] = *dto.Location
	}
	if dto.Description != nil {
		updates["description"] = *dto.Description
	}
	if dto.IsPublic != nil {
		updates["is_public"] = *dto.IsPublic
	}
	if len(updates) == 0 {
		return s.Get(ctx, id)
	}

	updated, err := s.repo.Update(ctx, id, updates)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "update event")
	}
	if !updated {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "event not found")
	}
	return s.Get(ctx, id)
}

func (s *service) Delete(ctx context.Context, id uuid.UUID) error {
	deleted, err := s.repo.Delete(ctx, id)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "delete event")
	}
	if !deleted {
		return pkgerrors.New(pkgerrors.CodeNotFound, "event not found")
	}
	return nil
}

func (s *service) Get(ctx context.Context, id uuid.UUID) (*EventDTO, error) {
	event, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "event not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load event")
	}

	dtos, err := s.enrich(ctx, []models.Event{*event})
	if err != nil {
		return nil, err
	}
	return &dtos[0], nil
}

func (s *service) List(ctx context.Context, publicOnly bool) ([]EventDTO, error) {
	rows, err := s.repo.List(ctx, publicOnly)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list events")
	}
	return s.enrich(ctx, rows)
}

func (s *service) SetCover(ctx context.Context, eventID uuid.UUID, photoID *uuid.UUID) error {
	if _, err := s.repo.FindByID(ctx, eventID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return pkgerrors.New(pkgerrors.CodeNotFound, "event not found")
		}
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load event")
	}

	if photoID != nil {
		photos, err := s.photos.FindByIDs(ctx, []uuid.UUID{*photoID})
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load cover photo")
		}
		if len(photos) == 0 || photos[0].EventID != eventID {
			return pkgerrors.New(pkgerrors.CodeValidation, "cover photo must belong to the event")
		}
	}

	if err := s.repo.SetCoverPhoto(ctx, eventID, photoID); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "set cover photo")
	}
	return nil
}

// enrich fills in photo counts and cover thumbnail URLs for a batch of events.
func (s *service) enrich(ctx context.Context, rows []models.Event) ([]EventDTO, error) {
	ids := make([]uuid.UUID, 0, len(rows))
	coverIDs := make([]uuid.UUID, 0, len(rows))
	for _, event := range rows {
		ids = append(ids, event.ID)
		if event.CoverPhotoID != nil {
			coverIDs = append(coverIDs, *event.CoverPhotoID)
		}
	}

	counts, err := s.repo.PhotoCounts(ctx, ids)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "count photos")
	}

	coverKeys := make(map[uuid.UUID]string, len(coverIDs))
	if len(coverIDs) > 0 && s.urls != nil {
		covers, err := s.photos.FindByIDs(ctx, coverIDs)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load cover photos")
		}
		for _, photo := range covers {
			coverKeys[photo.ID] = photo.StorageKey
		}
	}

	dtos := make([]EventDTO, 0, len(rows))
	for i := range rows {
		dto := FromModel(&rows[i])
		dto.PhotoCount = counts[rows[i].ID]
		if rows[i].CoverPhotoID != nil && s.urls != nil {
			if key, ok := coverKeys[*rows[i].CoverPhotoID]; ok {
				dto.CoverPhotoURL = s.urls.RenditionURL(key, enums.RenditionThumbnail)
			}
		}
		dtos = append(dtos, *dto)
	}
	return dtos, nil
}
