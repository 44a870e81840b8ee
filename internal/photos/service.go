package photos

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
	"github.com/caroduarte/lumina-backend/pkg/logger"
	"github.com/caroduarte/lumina-backend/pkg/storage/cloudinary"
	"github.com/caroduarte/lumina-backend/pkg/types"
)

// Service defines the behavior needed by the photo controllers.
type Service interface {
	Upload(ctx context.Context, dto UploadPhotoDTO) (*PhotoDTO, error)
	ListByEvent(ctx context.Context, viewer types.Viewer, eventID uuid.UUID) ([]PhotoDTO, error)
	Get(ctx context.Context, viewer types.Viewer, photoID uuid.UUID) (*PhotoDTO, error)
	Delete(ctx context.Context, photoID uuid.UUID) error
	ResolveRendition(ctx context.Context, viewer types.Viewer, photoID uuid.UUID, rendition enums.Rendition) (string, error)
}

type photoRepository interface {
	Create(ctx context.Context, photo *models.Photo) error
	FindByID(ctx context.Context, id uuid.UUID) (*models.Photo, error)
	FindByIDs(ctx context.Context, ids []uuid.UUID) ([]models.Photo, error)
	ListByEvent(ctx context.Context, eventID uuid.UUID) ([]models.Photo, error)
	Delete(ctx context.Context, id uuid.UUID) (bool, error)
}

type eventFinder interface {
	FindByID(ctx context.Context, id uuid.UUID) (*models.Event, error)
}

type ownershipChecker interface {
	IsOwned(ctx context.Context, userID, photoID uuid.UUID) (bool, error)
	OwnedSet(ctx context.Context, userID uuid.UUID, photoIDs []uuid.UUID) (map[uuid.UUID]bool, error)
}

type assetStore interface {
	Upload(ctx context.Context, publicID string, content []byte) (*cloudinary.UploadResult, error)
	Destroy(ctx context.Context, publicID string) error
	RenditionURL(publicID string, rendition enums.Rendition) string
}

type service struct {
	repo      photoRepository
	events    eventFinder
	ownership ownershipChecker
	assets    assetStore
	logger    *logger.Logger
}

// ServiceParams bundles the dependencies required to build a photos service.
type ServiceParams struct {
	Repo      photoRepository
	Events    eventFinder
	Ownership ownershipChecker
	Assets    assetStore
	Logger    *logger.Logger
}

// NewService constructs a photos service with the provided dependencies.
func NewService(params ServiceParams) (Service, error) {
	if params.Repo == nil {
		return nil, fmt.Errorf("photos repository is required")
	}
	if params.Events == nil {
		return nil, fmt.Errorf("event finder is required")
	}
	if params.Ownership == nil {
		return nil, fmt.Errorf("ownership checker is required")
	}
	if params.Assets == nil {
		return nil, fmt.Errorf("asset store is required")
	}
	if params.Logger == nil {
		return nil, fmt.Errorf("logger is required")
	}
	return &service{
		repo:      params.Repo,
		events:    params.Events,
		ownership: params.Ownership,
		assets:    params.Assets,
		logger:    params.Logger,
	}, nil
}

func (s *service) Upload(ctx context.Context, dto UploadPhotoDTO) (*PhotoDTO, error) {
	if strings.TrimSpace(dto.Filename) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "filename is required")
	}
	if dto.Price.IsNegative() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "price cannot be negative")
	}
	if len(dto.Content) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "image content is required")
	}

	if _, err := s.events.FindByID(ctx, dto.EventID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "event not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load event")
	}

	result, err := s.assets.Upload(ctx, uuid.NewString(), dto.Content)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "upload image")
	}

	photo := &models.Photo{
		ID:         uuid.New(),
		EventID:    dto.EventID,
		Filename:   strings.TrimSpace(dto.Filename),
		StorageKey: result.PublicID,
		Price:      dto.Price,
	}
	if err := s.repo.Create(ctx, photo); err != nil {
		// The asset is already at the CDN; clean it up so retries do not
		// leave orphans behind.
		if destroyErr := s.assets.Destroy(ctx, result.PublicID); destroyErr != nil {
			s.logger.Error(ctx, "orphaned asset cleanup failed", destroyErr)
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "register photo")
	}

	out := FromModel(photo)
	out.ThumbnailURL = s.assets.RenditionURL(photo.StorageKey, enums.RenditionThumbnail)
	out.WatermarkedURL = s.assets.RenditionURL(photo.StorageKey, enums.RenditionWatermarked)
	return out, nil
}

func (s *service) ListByEvent(ctx context.Context, viewer types.Viewer, eventID uuid.UUID) ([]PhotoDTO, error) {
	event, err := s.events.FindByID(ctx, eventID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "event not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load event")
	}
	if !eventVisible(event, viewer) {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "event is not accessible")
	}

	rows, err := s.repo.ListByEvent(ctx, eventID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list photos")
	}

	owned := map[uuid.UUID]bool{}
	if viewer.Authenticated() && len(rows) > 0 {
		ids := make([]uuid.UUID, 0, len(rows))
		for _, row := range rows {
			ids = append(ids, row.ID)
		}
		owned, err = s.ownership.OwnedSet(ctx, viewer.UserID, ids)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load owned photos")
		}
	}

	dtos := make([]PhotoDTO, 0, len(rows))
	for i := range rows {
		dtos = append(dtos, *s.decorate(&rows[i], owned[rows[i].ID]))
	}
	return dtos, nil
}

func (s *service) Get(ctx context.Context, viewer types.Viewer, photoID uuid.UUID) (*PhotoDTO, error) {
	photo, _, err := s.loadVisible(ctx, viewer, photoID)
	if err != nil {
		return nil, err
	}

	isOwned := false
	if viewer.Authenticated() {
		isOwned, err = s.ownership.IsOwned(ctx, viewer.UserID, photo.ID)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "check ownership")
		}
	}
	return s.decorate(photo, isOwned), nil
}

func (s *service) Delete(ctx context.Context, photoID uuid.UUID) error {
	photo, err := s.repo.FindByID(ctx, photoID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return pkgerrors.New(pkgerrors.CodeNotFound, "photo not found")
		}
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load photo")
	}

	deleted, err := s.repo.Delete(ctx, photoID)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "delete photo")
	}
	if !deleted {
		return pkgerrors.New(pkgerrors.CodeNotFound, "photo not found")
	}

	// Best effort; the catalog row is gone either way.
	if err := s.assets.Destroy(ctx, photo.StorageKey); err != nil {
		s.logger.Error(ctx, "asset removal failed", err)
	}
	return nil
}

// ResolveRendition is the access gate: thumbnails and watermarked previews
// require the event to be visible to the viewer, originals require an
// existing purchase. Admins bypass the purchase check.
func (s *service) ResolveRendition(ctx context.Context, viewer types.Viewer, photoID uuid.UUID, rendition enums.Rendition) (string, error) {
	if !rendition.IsValid() {
		return "", pkgerrors.New(pkgerrors.CodeValidation, "unknown rendition")
	}

	photo, _, err := s.loadVisible(ctx, viewer, photoID)
	if err != nil {
		return "", err
	}

	if rendition == enums.RenditionOriginal && !viewer.IsAdmin() {
		if !viewer.Authenticated() {
			return "", pkgerrors.New(pkgerrors.CodeNotPurchased, "photo not purchased")
		}
		owned, err := s.ownership.IsOwned(ctx, viewer.UserID, photo.ID)
		if err != nil {
			return "", pkgerrors.Wrap(pkgerrors.CodeInternal, err, "check ownership")
		}
		if !owned {
			return "", pkgerrors.New(pkgerrors.CodeNotPurchased, "photo not purchased")
		}
	}

	return s.assets.RenditionURL(photo.StorageKey, rendition), nil
}

// loadVisible fetches a photo and its event, enforcing event visibility.
func (s *service) loadVisible(ctx context.Context, viewer types.Viewer, photoID uuid.UUID) (*models.Photo, *models.Event, error) {
	photo, err := s.repo.FindByID(ctx, photoID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil, pkgerrors.New(pkgerrors.CodeNotFound, "photo not found")
		}
		return nil, nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load photo")
	}

	event, err := s.events.FindByID(ctx, photo.EventID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil, pkgerrors.New(pkgerrors.CodeNotFound, "event not found")
		}
		return nil, nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load event")
	}
	if !eventVisible(event, viewer) {
		return nil, nil, pkgerrors.New(pkgerrors.CodeForbidden, "event is not accessible")
	}
	return photo, event, nil
}

func (s *service) decorate(photo *models.Photo, isOwned bool) *PhotoDTO {
	dto := FromModel(photo)
	dto.IsPurchased = isOwned
	dto.ThumbnailURL = s.assets.RenditionURL(photo.StorageKey, enums.RenditionThumbnail)
	dto.WatermarkedURL = s.assets.RenditionURL(photo.StorageKey, enums.RenditionWatermarked)
	if isOwned {
		dto.OriginalURL = s.assets.RenditionURL(photo.StorageKey, enums.RenditionOriginal)
	}
	return dto
}

func eventVisible(event *models.Event, viewer types.Viewer) bool {
	return event.IsPublic || viewer.Authenticated()
}
