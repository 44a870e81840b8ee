package events

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/caroduarte/lumina-backend/pkg/db/models"
)

// Repository exposes event persistence operations.
type Repository struct {
	db *gorm.DB
}

// NewRepository constructs an events repo bound to the provided GORM DB.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// Create inserts a new event.
func (r *Repository) Create(ctx context.Context, event *models.Event) error {
	return r.db.WithContext(ctx).Create(event).Error
}

// FindByID loads an event by its UUID.
func (r *Repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Event, error) {
	var event models.Event
	if err := r.db.WithContext(ctx).First(&event, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &event, nil
}

// List returns events newest first, optionally restricted to public ones.
func (r *Repository) List(ctx context.Context, publicOnly bool) ([]models.Event, error) {
	query := r.db.WithContext(ctx).Model(&models.Event{})
	if publicOnly {
		query = query.Where("is_public = ?", true)
	}

	var rows []models.Event
	if err := query.Order("created_at DESC").Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

// Update applies the provided column updates to the event and reports
// whether a row was affected.
func (r *Repository) Update(ctx context.Context, id uuid.UUID, updates map[string]any) (bool, error) {
	result := r.db.WithContext(ctx).
		Model(&models.Event{}).
		Where("id = ?", id).
		Updates(updates)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

// Delete removes the event. Photos, cart entries, and session snapshots
// referencing it go with it via FK cascades.
func (r *Repository) Delete(ctx context.Context, id uuid.UUID) (bool, error) {
	result := r.db.WithContext(ctx).Delete(&models.Event{}, "id = ?", id)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

// SetCoverPhoto points the event at a cover photo; passing nil clears it.
func (r *Repository) SetCoverPhoto(ctx context.Context, eventID uuid.UUID, photoID *uuid.UUID) error {
	return r.db.WithContext(ctx).
		Model(&models.Event{}).
		Where("id = ?", eventID).
		Update("cover_photo_id", photoID).Error
}

func (r *Repository) Count(ctx context.Context) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.Event{}).Count(&count).Error
	return count, err
}

// PhotoCounts returns the number of photos per event for the given IDs.
func (r *Repository) PhotoCounts(ctx context.Context, eventIDs []uuid.UUID) (map[uuid.UUID]int64, error) {
	counts := make(map[uuid.UUID]int64, len(eventIDs))
	if len(eventIDs) == 0 {
		return counts, nil
	}

	var rows []struct {
		EventID uuid.UUID
		Total   int64
	}
	if err := r.db.WithContext(ctx).
		Model(&models.Photo{}).
		Select("event_id, COUNT(*) AS total").
		Where("event_id IN ?", eventIDs).
		Group("event_id").
		Scan(&rows).Error; err != nil {
		return nil, err
	}

	for _, row := range rows {
		counts[row.EventID] = row.Total
	}
	return counts, nil
}
