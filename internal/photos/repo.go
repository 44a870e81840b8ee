package photos

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/caroduarte/lumina-backend/pkg/db/models"
)

// Repository exposes photo persistence operations.
type Repository struct {
	db *gorm.DB
}

// NewRepository constructs a photos repo bound to the provided GORM DB.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// Create inserts a new photo.
func (r *Repository) Create(ctx context.Context, photo *models.Photo) error {
	return r.db.WithContext(ctx).Create(photo).Error
}

// FindByID loads a photo by its UUID.
func (r *Repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Photo, error) {
	var photo models.Photo
	if err := r.db.WithContext(ctx).First(&photo, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &photo, nil
}

// FindByIDs loads the photos matching the given IDs. Missing IDs are
// silently absent from the result.
func (r *Repository) FindByIDs(ctx context.Context, ids []uuid.UUID) ([]models.Photo, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	var rows []models.Photo
	if err := r.db.WithContext(ctx).Where("id IN ?", ids).Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

// ListByEvent returns the event's photos, oldest upload first.
func (r *Repository) ListByEvent(ctx context.Context, eventID uuid.UUID) ([]models.Photo, error) {
	var rows []models.Photo
	if err := r.db.WithContext(ctx).
		Where("event_id = ?", eventID).
		Order("uploaded_at ASC").
		Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

// Delete removes the photo and reports whether a row was affected.
func (r *Repository) Delete(ctx context.Context, id uuid.UUID) (bool, error) {
	result := r.db.WithContext(ctx).Delete(&models.Photo{}, "id = ?", id)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

// Count returns the total number of photos in the catalog.
func (r *Repository) Count(ctx context.Context) (int64, error) {
	var count int64
	if err := r.db.WithContext(ctx).Model(&models.Photo{}).Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}
