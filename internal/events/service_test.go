package events

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/caroduarte/lumina-backend/pkg/db/models"
	"github.com/caroduarte/lumina-backend/pkg/enums"
	pkgerrors "github.com/caroduarte/lumina-backend/pkg/errors"
)

type fakeEventRepo struct {
	events map[uuid.UUID]*models.Event
	counts map[uuid.UUID]int64
}

func newFakeEventRepo() *fakeEventRepo {
	return &fakeEventRepo{
		events: make(map[uuid.UUID]*models.Event),
		counts: make(map[uuid.UUID]int64),
	}
}

func (f *fakeEventRepo) Create(_ context.Context, event *models.Event) error {
	f.events[event.ID] = event
	return nil
}

func (f *fakeEventRepo) FindByID(_ context.Context, id uuid.UUID) (*models.Event, error) {
	event, ok := f.events[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return event, nil
}

func (f *fakeEventRepo) List(_ context.Context, publicOnly bool) ([]models.Event, error) {
	var rows []models.Event
	for _, event := range f.events {
		if publicOnly && !event.IsPublic {
			continue
		}
		rows = append(rows, *event)
	}
	return rows, nil
}

func (f *fakeEventRepo) Update(_ context.Context, id uuid.UUID, updates map[string]any) (bool, error) {
	event, ok := f.events[id]
	if !ok {
		return false, nil
	}
	if name, ok := updates["name"].(string); ok {
		event.Name = name
	}
	if public, ok := updates["is_public"].(bool); ok {
		event.IsPublic = public
	}
	return true, nil
}

func (f *fakeEventRepo) Delete(_ context.Context, id uuid.UUID) (bool, error) {
	if _, ok := f.events[id]; !ok {
		return false, nil
	}
	delete(f.events, id)
	return true, nil
}

func (f *fakeEventRepo) SetCoverPhoto(_ context.Context, eventID uuid.UUID, photoID *uuid.UUID) error {
	f.events[eventID].CoverPhotoID = photoID
	return nil
}

func (f *fakeEventRepo) PhotoCounts(_ context.Context, ids []uuid.UUID) (map[uuid.UUID]int64, error) {
	out := make(map[uuid.UUID]int64, len(ids))
	for _, id := range ids {
		out[id] = f.counts[id]
	}
	return out, nil
}

type fakePhotoFinder struct {
	photos map[uuid.UUID]models.Photo
}

func (f *fakePhotoFinder) FindByIDs(_ context.Context, ids []uuid.UUID) ([]models.Photo, error) {
	var out []models.Photo
	for _, id := range ids {
		if photo, ok := f.photos[id]; ok {
			out = append(out, photo)
		}
	}
	return out, nil
}

type fakeURLBuilder struct{}

func (fakeURLBuilder) RenditionURL(publicID string, rendition enums.Rendition) string {
	return "https://cdn.test/" + string(rendition) + "/" + publicID
}

func newEventsService(t *testing.T, repo *fakeEventRepo, photos *fakePhotoFinder) Service {
	t.Helper()
	if photos == nil {
		photos = &fakePhotoFinder{photos: map[uuid.UUID]models.Photo{}}
	}
	svc, err := NewService(ServiceParams{Repo: repo, Photos: photos, URLs: fakeURLBuilder{}})
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	return svc
}

func TestEventCreate_DefaultsPublic(t *testing.T) {
	repo := newFakeEventRepo()
	svc := newEventsService(t, repo, nil)

	dto, err := svc.Create(context.Background(), CreateEventDTO{Name: "  Summer Gala  "})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if dto.Name != "Summer Gala" {
		t.Fatalf("expected trimmed name, got %q", dto.Name)
	}
	if !dto.IsPublic {
		t.Fatal("events default to public")
	}
}

func TestEventCreate_RequiresName(t *testing.T) {
	svc := newEventsService(t, newFakeEventRepo(), nil)

	_, err := svc.Create(context.Background(), CreateEventDTO{Name: "   "})
	if !pkgerrors.HasCode(err, pkgerrors.CodeValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestEventUpdate_NotFound(t *testing.T) {
	svc := newEventsService(t, newFakeEventRepo(), nil)

	name := "New Name"
	_, err := svc.Update(context.Background(), uuid.New(), UpdateEventDTO{Name: &name})
	if !pkgerrors.HasCode(err, pkgerrors.CodeNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestEventGet_EnrichesCountAndCover(t *testing.T) {
	repo := newFakeEventRepo()
	coverID := uuid.New()
	eventID := uuid.New()
	repo.events[eventID] = &models.Event{ID: eventID, Name: "With Cover", IsPublic: true, CoverPhotoID: &coverID}
	repo.counts[eventID] = 7

	photos := &fakePhotoFinder{photos: map[uuid.UUID]models.Photo{
		coverID: {ID: coverID, EventID: eventID, StorageKey: "lumina/events/cover"},
	}}
	svc := newEventsService(t, repo, photos)

	dto, err := svc.Get(context.Background(), eventID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if dto.PhotoCount != 7 {
		t.Fatalf("photo count = %d, want 7", dto.PhotoCount)
	}
	if dto.CoverPhotoURL != "https://cdn.test/thumbnail/lumina/events/cover" {
		t.Fatalf("unexpected cover URL %q", dto.CoverPhotoURL)
	}
}

func TestEventSetCover_RejectsForeignPhoto(t *testing.T) {
	repo := newFakeEventRepo()
	eventID := uuid.New()
	repo.events[eventID] = &models.Event{ID: eventID, Name: "Gala", IsPublic: true}

	foreign := uuid.New()
	photos := &fakePhotoFinder{photos: map[uuid.UUID]models.Photo{
		foreign: {ID: foreign, EventID: uuid.New(), StorageKey: "elsewhere"},
	}}
	svc := newEventsService(t, repo, photos)

	err := svc.SetCover(context.Background(), eventID, &foreign)
	if !pkgerrors.HasCode(err, pkgerrors.CodeValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestEventList_PublicOnly(t *testing.T) {
	repo := newFakeEventRepo()
	pub := uuid.New()
	priv := uuid.New()
	repo.events[pub] = &models.Event{ID: pub, Name: "Public", IsPublic: true}
	repo.events[priv] = &models.Event{ID: priv, Name: "Private", IsPublic: false}
	svc := newEventsService(t, repo, nil)

	rows, err := svc.List(context.Background(), true)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(rows) != 1 || rows[0].ID != pub {
		t.Fatalf("expected only the public event, got %+v", rows)
	}
}
