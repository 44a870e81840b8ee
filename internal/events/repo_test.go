package events

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/caroduarte/lumina-backend/pkg/db/models"
)

func setupEventsTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open("file::memory:?cache=shared"), &gorm.Config{})
	require.NoError(t, err)

	events := `
CREATE TABLE IF NOT EXISTS events (
  id TEXT PRIMARY KEY,
  name TEXT NOT NULL,
  event_date DATETIME,
  location TEXT,
  description TEXT,
  is_public INTEGER NOT NULL DEFAULT 1,
  cover_photo_id TEXT,
  created_at DATETIME,
  updated_at DATETIME
);`
	photos := `
CREATE TABLE IF NOT EXISTS photos (
  id TEXT PRIMARY KEY,
  event_id TEXT NOT NULL,
  filename TEXT NOT NULL,
  storage_key TEXT NOT NULL,
  price TEXT NOT NULL,
  uploaded_at DATETIME
);`
	require.NoError(t, db.Exec(events).Error)
	require.NoError(t, db.Exec(photos).Error)
	return db
}

func newEvent(t *testing.T, db *gorm.DB, name string, public bool) *models.Event {
	t.Helper()

	event := &models.Event{ID: uuid.New(), Name: name, IsPublic: public}
	require.NoError(t, db.Create(event).Error)
	return event
}

func newPhoto(t *testing.T, db *gorm.DB, eventID uuid.UUID) *models.Photo {
	t.Helper()

	photo := &models.Photo{
		ID:         uuid.New(),
		EventID:    eventID,
		Filename:   "shot.jpg",
		StorageKey: "lumina/events/" + uuid.NewString(),
	}
	require.NoError(t, db.Create(photo).Error)
	return photo
}

func TestRepositoryCreate_KeepsPrivateFlag(t *testing.T) {
	db := setupEventsTestDB(t)
	repo := NewRepository(db)

	event := &models.Event{ID: uuid.New(), Name: "Private Shoot", IsPublic: false}
	require.NoError(t, repo.Create(context.Background(), event))

	// The column default is public, so the explicit false must survive
	// the insert.
	reloaded, err := repo.FindByID(context.Background(), event.ID)
	require.NoError(t, err)
	require.False(t, reloaded.IsPublic)
}

func TestRepositoryList_PublicOnly(t *testing.T) {
	db := setupEventsTestDB(t)
	repo := NewRepository(db)

	public := newEvent(t, db, "Open Gallery", true)
	private := newEvent(t, db, "Private Shoot", false)

	rows, err := repo.List(context.Background(), true)
	require.NoError(t, err)

	seen := make(map[uuid.UUID]bool, len(rows))
	for _, row := range rows {
		seen[row.ID] = true
	}
	require.True(t, seen[public.ID])
	require.False(t, seen[private.ID])
}

func TestRepositoryUpdate_ReportsMissingRow(t *testing.T) {
	db := setupEventsTestDB(t)
	repo := NewRepository(db)

	event := newEvent(t, db, "Rename Me", true)

	updated, err := repo.Update(context.Background(), event.ID, map[string]any{"name": "Renamed"})
	require.NoError(t, err)
	require.True(t, updated)

	updated, err = repo.Update(context.Background(), uuid.New(), map[string]any{"name": "Nobody"})
	require.NoError(t, err)
	require.False(t, updated)

	reloaded, err := repo.FindByID(context.Background(), event.ID)
	require.NoError(t, err)
	require.Equal(t, "Renamed", reloaded.Name)
}

func TestRepositoryPhotoCounts(t *testing.T) {
	db := setupEventsTestDB(t)
	repo := NewRepository(db)

	withPhotos := newEvent(t, db, "Busy Event", true)
	empty := newEvent(t, db, "Empty Event", true)
	newPhoto(t, db, withPhotos.ID)
	newPhoto(t, db, withPhotos.ID)

	counts, err := repo.PhotoCounts(context.Background(), []uuid.UUID{withPhotos.ID, empty.ID})
	require.NoError(t, err)
	require.Equal(t, int64(2), counts[withPhotos.ID])
	require.Zero(t, counts[empty.ID])
}

func TestRepositorySetCoverPhoto(t *testing.T) {
	db := setupEventsTestDB(t)
	repo := NewRepository(db)

	event := newEvent(t, db, "Cover Event", true)
	photo := newPhoto(t, db, event.ID)

	require.NoError(t, repo.SetCoverPhoto(context.Background(), event.ID, &photo.ID))

	reloaded, err := repo.FindByID(context.Background(), event.ID)
	require.NoError(t, err)
	require.NotNil(t, reloaded.CoverPhotoID)
	require.Equal(t, photo.ID, *reloaded.CoverPhotoID)

	require.NoError(t, repo.SetCoverPhoto(context.Background(), event.ID, nil))

	reloaded, err = repo.FindByID(context.Background(), event.ID)
	require.NoError(t, err)
	require.Nil(t, reloaded.CoverPhotoID)
}

func TestRepositoryDelete(t *testing.T) {
	db := setupEventsTestDB(t)
	repo := NewRepository(db)

	event := newEvent(t, db, "Doomed", true)

	deleted, err := repo.Delete(context.Background(), event.ID)
	require.NoError(t, err)
	require.True(t, deleted)

	deleted, err = repo.Delete(context.Background(), event.ID)
	require.NoError(t, err)
	require.False(t, deleted)

	_, err = repo.FindByID(context.Background(), event.ID)
	require.ErrorIs(t, err, gorm.ErrRecordNotFound)
}
