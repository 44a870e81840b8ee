package purchases

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/caroduarte/lumina-backend/pkg/db/models"
	"github.com/caroduarte/lumina-backend/pkg/enums"
	pkgerrors "github.com/caroduarte/lumina-backend/pkg/errors"
	"github.com/caroduarte/lumina-backend/pkg/pagination"
	"github.com/caroduarte/lumina-backend/pkg/types"
)

// RecordInput describes one purchase to write to the ledger.
type RecordInput struct {
	UserID            uuid.UUID
	PhotoID           uuid.UUID
	CheckoutSessionID *uuid.UUID
	PricePaid         decimal.Decimal
}

// Service defines the behavior needed by the purchase controllers and by
// checkout reconciliation.
type Service interface {
	Record(ctx context.Context, input RecordInput) error
	List(ctx context.Context, viewer types.Viewer, params pagination.Params) (*Page, error)
	IsOwned(ctx context.Context, userID, photoID uuid.UUID) (bool, error)
	OwnedSet(ctx context.Context, userID uuid.UUID, photoIDs []uuid.UUID) (map[uuid.UUID]bool, error)
}

type purchaseRepository interface {
	Insert(ctx context.Context, purchase *models.Purchase) (bool, error)
	ListByUser(ctx context.Context, userID uuid.UUID, cursor *pagination.Cursor, limit int) ([]models.Purchase, error)
	IsOwned(ctx context.Context, userID, photoID uuid.UUID) (bool, error)
	OwnedSet(ctx context.Context, userID uuid.UUID, photoIDs []uuid.UUID) (map[uuid.UUID]bool, error)
}

type photoFinder interface {
	FindByIDs(ctx context.Context, ids []uuid.UUID) ([]models.Photo, error)
}

type urlBuilder interface {
	RenditionURL(publicID string, rendition enums.Rendition) string
}

type service struct {
	repo   purchaseRepository
	photos photoFinder
	urls   urlBuilder
}

// ServiceParams bundles the dependencies required to build a purchases service.
type ServiceParams struct {
	Repo   purchaseRepository
	Photos photoFinder
	URLs   urlBuilder
}

// NewService constructs a purchases service. The URL builder is optional.
func NewService(params ServiceParams) (Service, error) {
	if params.Repo == nil {
		return nil, fmt.Errorf("purchases repository is required")
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

// Record writes one ledger row. An existing (user, photo) pair surfaces
// as DuplicatePurchase; reconciliation treats that as success.
func (s *service) Record(ctx context.Context, input RecordInput) error {
	if input.UserID == uuid.Nil || input.PhotoID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "user and photo are required")
	}
	if input.PricePaid.IsNegative() {
		return pkgerrors.New(pkgerrors.CodeValidation, "price paid cannot be negative")
	}

	inserted, err := s.repo.Insert(ctx, &models.Purchase{
		UserID:            input.UserID,
		PhotoID:           input.PhotoID,
		CheckoutSessionID: input.CheckoutSessionID,
		PricePaid:         input.PricePaid,
	})
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "record purchase")
	}
	if !inserted {
		return pkgerrors.New(pkgerrors.CodeDuplicatePurchase, "purchase already recorded")
	}
	return nil
}

func (s *service) List(ctx context.Context, viewer types.Viewer, params pagination.Params) (*Page, error) {
	if !viewer.Authenticated() {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "authentication required")
	}

	cursor, err := pagination.ParseCursor(params.Cursor)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
	}
	limit := pagination.NormalizeLimit(params.Limit)

	rows, err := s.repo.ListByUser(ctx, viewer.UserID, cursor, pagination.LimitWithBuffer(params.Limit))
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list purchases")
	}

	hasMore := len(rows) > limit
	if hasMore {
		rows = rows[:limit]
	}

	photoIDs := make([]uuid.UUID, 0, len(rows))
	for _, row := range rows {
		photoIDs = append(photoIDs, row.PhotoID)
	}
	photosByID := map[uuid.UUID]models.Photo{}
	if len(photoIDs) > 0 {
		photos, err := s.photos.FindByIDs(ctx, photoIDs)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load photos")
		}
		for _, photo := range photos {
			photosByID[photo.ID] = photo
		}
	}

	dtos := make([]PurchaseDTO, 0, len(rows))
	for _, row := range rows {
		dto := PurchaseDTO{
			ID:          row.ID,
			PhotoID:     row.PhotoID,
			PricePaid:   row.PricePaid,
			PurchasedAt: row.PurchasedAt,
		}
		if photo, ok := photosByID[row.PhotoID]; ok {
			dto.EventID = photo.EventID
			dto.Filename = photo.Filename
			if s.urls != nil {
				dto.ThumbnailURL = s.urls.RenditionURL(photo.StorageKey, enums.RenditionThumbnail)
				dto.OriginalURL = s.urls.RenditionURL(photo.StorageKey, enums.RenditionOriginal)
			}
		}
		dtos = append(dtos, dto)
	}

	page := &Page{Items: dtos}
	if hasMore && len(rows) > 0 {
		last := rows[len(rows)-1]
		page.NextCursor = pagination.EncodeCursor(pagination.Cursor{CreatedAt: last.PurchasedAt, ID: last.ID})
	}
	return page, nil
}

func (s *service) IsOwned(ctx context.Context, userID, photoID uuid.UUID) (bool, error) {
	return s.repo.IsOwned(ctx, userID, photoID)
}

func (s *service) OwnedSet(ctx context.Context, userID uuid.UUID, photoIDs []uuid.UUID) (map[uuid.UUID]bool, error) {
	return s.repo.OwnedSet(ctx, userID, photoIDs)
}
