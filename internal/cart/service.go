package cart

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/caroduarte/lumina-backend/pkg/db/models"
	"github.com/caroduarte/lumina-backend/pkg/enums"
	pkgerrors "github.com/caroduarte/lumina-backend/pkg/errors"
	"github.com/caroduarte/lumina-backend/pkg/types"
)

// Service defines the behavior needed by the cart controllers.
type Service interface {
	Add(ctx context.Context, viewer types.Viewer, photoID uuid.UUID) error
	Remove(ctx context.Context, viewer types.Viewer, photoID uuid.UUID) error
	View(ctx context.Context, viewer types.Viewer) (*CartDTO, error)
}

type cartRepository interface {
	Add(ctx context.Context, userID, photoID uuid.UUID) error
	Remove(ctx context.Context, userID, photoID uuid.UUID) error
	List(ctx context.Context, userID uuid.UUID) ([]EntryRecord, error)
}

type photoFinder interface {
	FindByID(ctx context.Context, id uuid.UUID) (*models.Photo, error)
}

type ownershipChecker interface {
	IsOwned(ctx context.Context, userID, photoID uuid.UUID) (bool, error)
}

type urlBuilder interface {
	RenditionURL(publicID string, rendition enums.Rendition) string
}

type service struct {
	repo      cartRepository
	photos    photoFinder
	ownership ownershipChecker
	urls      urlBuilder
}

// ServiceParams bundles the dependencies required to build a cart service.
type ServiceParams struct {
	Repo      cartRepository
	Photos    photoFinder
	Ownership ownershipChecker
	URLs      urlBuilder
}

// NewService constructs a cart service. The URL builder is optional.
func NewService(params ServiceParams) (Service, error) {
	if params.Repo == nil {
		return nil, fmt.Errorf("cart repository is required")
	}
	if params.Photos == nil {
		return nil, fmt.Errorf("photo finder is required")
	}
	if params.Ownership == nil {
		return nil, fmt.Errorf("ownership checker is required")
	}
	return &service{
		repo:      params.Repo,
		photos:    params.Photos,
		ownership: params.Ownership,
		urls:      params.URLs,
	}, nil
}

// Add puts a photo in the viewer's cart. Owned photos are rejected;
// re-adding a photo already in the cart is a no-op.
func (s *service) Add(ctx context.Context, viewer types.Viewer, photoID uuid.UUID) error {
	if !viewer.Authenticated() {
		return pkgerrors.New(pkgerrors.CodeUnauthorized, "authentication required")
	}

	if _, err := s.photos.FindByID(ctx, photoID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return pkgerrors.New(pkgerrors.CodeNotFound, "photo not found")
		}
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load photo")
	}

	owned, err := s.ownership.IsOwned(ctx, viewer.UserID, photoID)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "check ownership")
	}
	if owned {
		return pkgerrors.New(pkgerrors.CodeAlreadyOwned, "photo already purchased")
	}

	if err := s.repo.Add(ctx, viewer.UserID, photoID); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "add cart entry")
	}
	return nil
}

func (s *service) Remove(ctx context.Context, viewer types.Viewer, photoID uuid.UUID) error {
	if !viewer.Authenticated() {
		return pkgerrors.New(pkgerrors.CodeUnauthorized, "authentication required")
	}
	if err := s.repo.Remove(ctx, viewer.UserID, photoID); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "remove cart entry")
	}
	return nil
}

func (s *service) View(ctx context.Context, viewer types.Viewer) (*CartDTO, error) {
	if !viewer.Authenticated() {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "authentication required")
	}

	records, err := s.repo.List(ctx, viewer.UserID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list cart entries")
	}

	items := make([]ItemDTO, 0, len(records))
	total := decimal.Zero
	for _, record := range records {
		item := ItemDTO{
			PhotoID:  record.PhotoID,
			EventID:  record.EventID,
			Filename: record.Filename,
			Price:    record.Price,
			AddedAt:  record.AddedAt,
		}
		if s.urls != nil {
			item.ThumbnailURL = s.urls.RenditionURL(record.StorageKey, enums.RenditionThumbnail)
		}
		items = append(items, item)
		total = total.Add(record.Price)
	}

	return &CartDTO{Items: items, Total: total, Count: len(items)}, nil
}
