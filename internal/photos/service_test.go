package photos

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/caroduarte/lumina-backend/pkg/db/models"
	"github.com/caroduarte/lumina-backend/pkg/enums"
	pkgerrors "github.com/caroduarte/lumina-backend/pkg/errors"
	"github.com/caroduarte/lumina-backend/pkg/logger"
	"github.com/caroduarte/lumina-backend/pkg/storage/cloudinary"
	"github.com/caroduarte/lumina-backend/pkg/types"
	"github.com/rs/zerolog"
)

type fakePhotoRepo struct {
	photos    map[uuid.UUID]*models.Photo
	createErr error
}

func newFakePhotoRepo() *fakePhotoRepo {
	return &fakePhotoRepo{photos: make(map[uuid.UUID]*models.Photo)}
}

func (f *fakePhotoRepo) Create(_ context.Context, photo *models.Photo) error {
	if f.createErr != nil {
		return f.createErr
	}
	f.photos[photo.ID] = photo
	return nil
}

func (f *fakePhotoRepo) FindByID(_ context.Context, id uuid.UUID) (*models.Photo, error) {
	photo, ok := f.photos[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return photo, nil
}

func (f *fakePhotoRepo) FindByIDs(_ context.Context, ids []uuid.UUID) ([]models.Photo, error) {
	var out []models.Photo
	for _, id := range ids {
		if photo, ok := f.photos[id]; ok {
			out = append(out, *photo)
		}
	}
	return out, nil
}

func (f *fakePhotoRepo) ListByEvent(_ context.Context, eventID uuid.UUID) ([]models.Photo, error) {
	var out []models.Photo
	for _, photo := range f.photos {
		if photo.EventID == eventID {
			out = append(out, *photo)
		}
	}
	return out, nil
}

func (f *fakePhotoRepo) Delete(_ context.Context, id uuid.UUID) (bool, error) {
	if _, ok := f.photos[id]; !ok {
		return false, nil
	}
	delete(f.photos, id)
	return true, nil
}

type fakeEventFinder struct {
	events map[uuid.UUID]*models.Event
}

func (f *fakeEventFinder) FindByID(_ context.Context, id uuid.UUID) (*models.Event, error) {
	event, ok := f.events[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return event, nil
}

type fakeOwnership struct {
	owned map[uuid.UUID]bool
}

func (f *fakeOwnership) IsOwned(_ context.Context, _, photoID uuid.UUID) (bool, error) {
	return f.owned[photoID], nil
}

func (f *fakeOwnership) OwnedSet(_ context.Context, _ uuid.UUID, ids []uuid.UUID) (map[uuid.UUID]bool, error) {
	out := make(map[uuid.UUID]bool, len(ids))
	for _, id := range ids {
		out[id] = f.owned[id]
	}
	return out, nil
}

type fakeAssets struct {
	uploads   []string
	destroyed []string
	uploadErr error
}

func (f *fakeAssets) Upload(_ context.Context, publicID string, _ []byte) (*cloudinary.UploadResult, error) {
	if f.uploadErr != nil {
		return nil, f.uploadErr
	}
	key := "lumina/events/" + publicID
	f.uploads = append(f.uploads, key)
	return &cloudinary.UploadResult{PublicID: key}, nil
}

func (f *fakeAssets) Destroy(_ context.Context, publicID string) error {
	f.destroyed = append(f.destroyed, publicID)
	return nil
}

func (f *fakeAssets) RenditionURL(publicID string, rendition enums.Rendition) string {
	return "https://cdn.test/" + string(rendition) + "/" + publicID
}

type photoFixture struct {
	svc     Service
	repo    *fakePhotoRepo
	events  *fakeEventFinder
	owned   *fakeOwnership
	assets  *fakeAssets
	eventID uuid.UUID
}

func newPhotoFixture(t *testing.T, public bool) *photoFixture {
	t.Helper()

	eventID := uuid.New()
	fx := &photoFixture{
		repo: newFakePhotoRepo(),
		events: &fakeEventFinder{events: map[uuid.UUID]*models.Event{
			eventID: {ID: eventID, Name: "Fixture Event", IsPublic: public},
		}},
		owned:   &fakeOwnership{owned: map[uuid.UUID]bool{}},
		assets:  &fakeAssets{},
		eventID: eventID,
	}

	svc, err := NewService(ServiceParams{
		Repo:      fx.repo,
		Events:    fx.events,
		Ownership: fx.owned,
		Assets:    fx.assets,
		Logger:    logger.New(logger.Options{ServiceName: "test", Level: zerolog.Disabled}),
	})
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	fx.svc = svc
	return fx
}

func (fx *photoFixture) addPhoto(price string) *models.Photo {
	photo := &models.Photo{
		ID:         uuid.New(),
		EventID:    fx.eventID,
		Filename:   "shot.jpg",
		StorageKey: "lumina/events/" + uuid.NewString(),
		Price:      decimal.RequireFromString(price),
	}
	fx.repo.photos[photo.ID] = photo
	return photo
}

func viewerFor(role enums.UserRole) types.Viewer {
	return types.Viewer{UserID: uuid.New(), Role: role}
}

func TestUpload_RegistersPhoto(t *testing.T) {
	fx := newPhotoFixture(t, true)

	dto, err := fx.svc.Upload(context.Background(), UploadPhotoDTO{
		EventID:  fx.eventID,
		Filename: "gala-001.jpg",
		Price:    decimal.RequireFromString("12.50"),
		Content:  []byte{0xFF, 0xD8},
	})
	if err != nil {
		t.Fatalf("upload: %v", err)
	}
	if len(fx.assets.uploads) != 1 {
		t.Fatalf("expected one CDN upload, got %d", len(fx.assets.uploads))
	}
	if dto.ThumbnailURL == "" || dto.WatermarkedURL == "" {
		t.Fatal("expected preview URLs on upload response")
	}
	if dto.OriginalURL != "" {
		t.Fatal("upload response must not expose the original URL")
	}
}

func TestUpload_NegativePrice(t *testing.T) {
	fx := newPhotoFixture(t, true)

	_, err := fx.svc.Upload(context.Background(), UploadPhotoDTO{
		EventID:  fx.eventID,
		Filename: "gala-001.jpg",
		Price:    decimal.RequireFromString("-1"),
		Content:  []byte{0xFF},
	})
	if !pkgerrors.HasCode(err, pkgerrors.CodeValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestUpload_CleansUpWhenRegistrationFails(t *testing.T) {
	fx := newPhotoFixture(t, true)
	fx.repo.createErr = gorm.ErrInvalidDB

	_, err := fx.svc.Upload(context.Background(), UploadPhotoDTO{
		EventID:  fx.eventID,
		Filename: "gala-001.jpg",
		Price:    decimal.RequireFromString("5.00"),
		Content:  []byte{0xFF},
	})
	if err == nil {
		t.Fatal("expected an error")
	}
	if len(fx.assets.destroyed) != 1 {
		t.Fatalf("expected orphaned asset cleanup, got %v", fx.assets.destroyed)
	}
}

func TestListByEvent_OwnershipFlags(t *testing.T) {
	fx := newPhotoFixture(t, true)
	ownedPhoto := fx.addPhoto("10.00")
	otherPhoto := fx.addPhoto("10.00")
	fx.owned.owned[ownedPhoto.ID] = true

	viewer := viewerFor(enums.UserRoleClient)
	rows, err := fx.svc.ListByEvent(context.Background(), viewer, fx.eventID)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("expected 2 photos, got %d", len(rows))
	}
	for _, row := range rows {
		switch row.ID {
		case ownedPhoto.ID:
			if !row.IsPurchased || row.OriginalURL == "" {
				t.Fatal("owned photo must expose the original URL")
			}
		case otherPhoto.ID:
			if row.IsPurchased || row.OriginalURL != "" {
				t.Fatal("unowned photo must not expose the original URL")
			}
		}
	}
}

func TestListByEvent_PrivateEventNeedsAuth(t *testing.T) {
	fx := newPhotoFixture(t, false)

	_, err := fx.svc.ListByEvent(context.Background(), types.Viewer{}, fx.eventID)
	if !pkgerrors.HasCode(err, pkgerrors.CodeForbidden) {
		t.Fatalf("expected forbidden, got %v", err)
	}

	if _, err := fx.svc.ListByEvent(context.Background(), viewerFor(enums.UserRoleClient), fx.eventID); err != nil {
		t.Fatalf("authenticated viewer should see the event: %v", err)
	}
}

func TestResolveRendition_Gate(t *testing.T) {
	fx := newPhotoFixture(t, true)
	photo := fx.addPhoto("10.00")
	owner := viewerFor(enums.UserRoleClient)
	stranger := viewerFor(enums.UserRoleClient)
	fx.owned.owned[photo.ID] = false

	url, err := fx.svc.ResolveRendition(context.Background(), stranger, photo.ID, enums.RenditionWatermarked)
	if err != nil {
		t.Fatalf("watermarked: %v", err)
	}
	if url != "https://cdn.test/watermarked/"+photo.StorageKey {
		t.Fatalf("unexpected URL %q", url)
	}

	if _, err := fx.svc.ResolveRendition(context.Background(), stranger, photo.ID, enums.RenditionOriginal); !pkgerrors.HasCode(err, pkgerrors.CodeNotPurchased) {
		t.Fatalf("expected not purchased, got %v", err)
	}

	fx.owned.owned[photo.ID] = true
	if _, err := fx.svc.ResolveRendition(context.Background(), owner, photo.ID, enums.RenditionOriginal); err != nil {
		t.Fatalf("owner should access the original: %v", err)
	}
}

func TestResolveRendition_AdminBypass(t *testing.T) {
	fx := newPhotoFixture(t, true)
	photo := fx.addPhoto("10.00")

	if _, err := fx.svc.ResolveRendition(context.Background(), viewerFor(enums.UserRoleAdmin), photo.ID, enums.RenditionOriginal); err != nil {
		t.Fatalf("admin should access the original: %v", err)
	}
}

func TestResolveRendition_UnknownKind(t *testing.T) {
	fx := newPhotoFixture(t, true)
	photo := fx.addPhoto("10.00")

	_, err := fx.svc.ResolveRendition(context.Background(), viewerFor(enums.UserRoleClient), photo.ID, enums.Rendition("raw"))
	if !pkgerrors.HasCode(err, pkgerrors.CodeValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestDelete_RemovesAsset(t *testing.T) {
	fx := newPhotoFixture(t, true)
	photo := fx.addPhoto("10.00")

	if err := fx.svc.Delete(context.Background(), photo.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if len(fx.assets.destroyed) != 1 || fx.assets.destroyed[0] != photo.StorageKey {
		t.Fatalf("expected CDN destroy of %q, got %v", photo.StorageKey, fx.assets.destroyed)
	}

	if err := fx.svc.Delete(context.Background(), photo.ID); !pkgerrors.HasCode(err, pkgerrors.CodeNotFound) {
		t.Fatalf("expected not found on second delete, got %v", err)
	}
}
