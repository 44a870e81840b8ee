package purchases

import (
	"context"
	"sort"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/caroduarte/lumina-backend/pkg/db/models"
	"github.com/caroduarte/lumina-backend/pkg/enums"
	pkgerrors "github.com/caroduarte/lumina-backend/pkg/errors"
	"github.com/caroduarte/lumina-backend/pkg/pagination"
	"github.com/caroduarte/lumina-backend/pkg/types"
)

type fakePurchaseRepo struct {
	rows map[string]*models.Purchase
}

func newFakePurchaseRepo() *fakePurchaseRepo {
	return &fakePurchaseRepo{rows: make(map[string]*models.Purchase)}
}

func ledgerKey(userID, photoID uuid.UUID) string {
	return userID.String() + "/" + photoID.String()
}

func (f *fakePurchaseRepo) Insert(_ context.Context, purchase *models.Purchase) (bool, error) {
	key := ledgerKey(purchase.UserID, purchase.PhotoID)
	if _, ok := f.rows[key]; ok {
		return false, nil
	}
	f.rows[key] = purchase
	return true, nil
}

func (f *fakePurchaseRepo) ListByUser(_ context.Context, userID uuid.UUID, cursor *pagination.Cursor, limit int) ([]models.Purchase, error) {
	var out []models.Purchase
	for _, row := range f.rows {
		if row.UserID != userID {
			continue
		}
		if cursor != nil && !row.PurchasedAt.Before(cursor.CreatedAt) {
			continue
		}
		out = append(out, *row)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].PurchasedAt.After(out[j].PurchasedAt) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (f *fakePurchaseRepo) IsOwned(_ context.Context, userID, photoID uuid.UUID) (bool, error) {
	_, ok := f.rows[ledgerKey(userID, photoID)]
	return ok, nil
}

func (f *fakePurchaseRepo) OwnedSet(_ context.Context, userID uuid.UUID, photoIDs []uuid.UUID) (map[uuid.UUID]bool, error) {
	out := make(map[uuid.UUID]bool, len(photoIDs))
	for _, id := range photoIDs {
		_, ok := f.rows[ledgerKey(userID, id)]
		out[id] = ok
	}
	return out, nil
}

type fakeLedgerPhotos struct {
	photos map[uuid.UUID]models.Photo
}

func (f *fakeLedgerPhotos) FindByIDs(_ context.Context, ids []uuid.UUID) ([]models.Photo, error) {
	var out []models.Photo
	for _, id := range ids {
		if photo, ok := f.photos[id]; ok {
			out = append(out, photo)
		}
	}
	return out, nil
}

type fakeLedgerURLs struct{}

func (fakeLedgerURLs) RenditionURL(publicID string, rendition enums.Rendition) string {
	return "https://cdn.test/" + string(rendition) + "/" + publicID
}

func newLedgerService(t *testing.T, repo *fakePurchaseRepo, photos *fakeLedgerPhotos) Service {
	t.Helper()
	if photos == nil {
		photos = &fakeLedgerPhotos{photos: map[uuid.UUID]models.Photo{}}
	}
	svc, err := NewService(ServiceParams{Repo: repo, Photos: photos, URLs: fakeLedgerURLs{}})
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	return svc
}

func TestRecord_DuplicateSurfacesTypedCode(t *testing.T) {
	repo := newFakePurchaseRepo()
	svc := newLedgerService(t, repo, nil)
	input := RecordInput{
		UserID:    uuid.New(),
		PhotoID:   uuid.New(),
		PricePaid: decimal.RequireFromString("10.00"),
	}

	if err := svc.Record(context.Background(), input); err != nil {
		t.Fatalf("first record: %v", err)
	}
	err := svc.Record(context.Background(), input)
	if !pkgerrors.HasCode(err, pkgerrors.CodeDuplicatePurchase) {
		t.Fatalf("expected duplicate purchase, got %v", err)
	}
	if len(repo.rows) != 1 {
		t.Fatalf("ledger must hold one row, has %d", len(repo.rows))
	}
}

func TestRecord_Validation(t *testing.T) {
	svc := newLedgerService(t, newFakePurchaseRepo(), nil)

	err := svc.Record(context.Background(), RecordInput{PhotoID: uuid.New()})
	if !pkgerrors.HasCode(err, pkgerrors.CodeValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}

	err = svc.Record(context.Background(), RecordInput{
		UserID:    uuid.New(),
		PhotoID:   uuid.New(),
		PricePaid: decimal.RequireFromString("-5"),
	})
	if !pkgerrors.HasCode(err, pkgerrors.CodeValidation) {
		t.Fatalf("expected validation error for negative price, got %v", err)
	}
}

func TestList_EnrichesWithPhotoURLs(t *testing.T) {
	repo := newFakePurchaseRepo()
	viewer := types.Viewer{UserID: uuid.New(), Role: enums.UserRoleClient}
	photoID := uuid.New()
	repo.rows[ledgerKey(viewer.UserID, photoID)] = &models.Purchase{
		ID:          uuid.New(),
		UserID:      viewer.UserID,
		PhotoID:     photoID,
		PricePaid:   decimal.RequireFromString("10.00"),
		PurchasedAt: time.Now().UTC(),
	}
	photos := &fakeLedgerPhotos{photos: map[uuid.UUID]models.Photo{
		photoID: {ID: photoID, EventID: uuid.New(), Filename: "gala.jpg", StorageKey: "key-1"},
	}}
	svc := newLedgerService(t, repo, photos)

	page, err := svc.List(context.Background(), viewer, pagination.Params{})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(page.Items) != 1 {
		t.Fatalf("expected one purchase, got %d", len(page.Items))
	}
	if page.Items[0].OriginalURL != "https://cdn.test/original/key-1" {
		t.Fatalf("unexpected original URL %q", page.Items[0].OriginalURL)
	}
	if page.NextCursor != "" {
		t.Fatalf("single page must not carry a cursor")
	}
}

func TestList_PaginatesWithCursor(t *testing.T) {
	repo := newFakePurchaseRepo()
	viewer := types.Viewer{UserID: uuid.New(), Role: enums.UserRoleClient}
	base := time.Now().UTC()
	for i := 0; i < 3; i++ {
		photoID := uuid.New()
		repo.rows[ledgerKey(viewer.UserID, photoID)] = &models.Purchase{
			ID:          uuid.New(),
			UserID:      viewer.UserID,
			PhotoID:     photoID,
			PricePaid:   decimal.RequireFromString("5.00"),
			PurchasedAt: base.Add(-time.Duration(i) * time.Minute),
		}
	}
	svc := newLedgerService(t, repo, nil)

	first, err := svc.List(context.Background(), viewer, pagination.Params{Limit: 2})
	if err != nil {
		t.Fatalf("first page: %v", err)
	}
	if len(first.Items) != 2 {
		t.Fatalf("expected two items, got %d", len(first.Items))
	}
	if first.NextCursor == "" {
		t.Fatalf("expected a next cursor")
	}

	second, err := svc.List(context.Background(), viewer, pagination.Params{Limit: 2, Cursor: first.NextCursor})
	if err != nil {
		t.Fatalf("second page: %v", err)
	}
	if len(second.Items) != 1 {
		t.Fatalf("expected one remaining item, got %d", len(second.Items))
	}
	if second.NextCursor != "" {
		t.Fatalf("last page must not carry a cursor")
	}
}

func TestList_RejectsMalformedCursor(t *testing.T) {
	svc := newLedgerService(t, newFakePurchaseRepo(), nil)
	viewer := types.Viewer{UserID: uuid.New(), Role: enums.UserRoleClient}

	_, err := svc.List(context.Background(), viewer, pagination.Params{Cursor: "not-base64!"})
	if !pkgerrors.HasCode(err, pkgerrors.CodeValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestList_RequiresAuth(t *testing.T) {
	svc := newLedgerService(t, newFakePurchaseRepo(), nil)

	_, err := svc.List(context.Background(), types.Viewer{}, pagination.Params{})
	if !pkgerrors.HasCode(err, pkgerrors.CodeUnauthorized) {
		t.Fatalf("expected unauthorized, got %v", err)
	}
}
