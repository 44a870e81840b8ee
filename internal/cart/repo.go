package cart

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/caroduarte/lumina-backend/pkg/db/models"
)

// Repository encapsulates cart persistence. The (user_id, photo_id)
// unique index makes adds and removes linearizable per user.
type Repository struct {
	db *gorm.DB
}

// NewRepository constructs a cart repository bound to the provided GORM DB.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// Add inserts a cart entry and ignores duplicates.
func (r *Repository) Add(ctx context.Context, userID, photoID uuid.UUID) error {
	if userID == uuid.Nil || photoID == uuid.Nil {
		return gorm.ErrInvalidValue
	}

	return r.db.WithContext(ctx).
		Exec(`INSERT INTO cart_entries (id, user_id, photo_id, added_at) VALUES (?, ?, ?, ?) ON CONFLICT (user_id, photo_id) DO NOTHING`,
			uuid.New(), userID, photoID, time.Now().UTC()).
		Error
}

// Remove deletes the entry if it exists; removing an absent entry is a no-op.
func (r *Repository) Remove(ctx context.Context, userID, photoID uuid.UUID) error {
	return r.db.WithContext(ctx).
		Where("user_id = ? AND photo_id = ?", userID, photoID).
		Delete(&models.CartEntry{}).
		Error
}

// EntryRecord is a cart entry joined with the photo's current price.
type EntryRecord struct {
	PhotoID    uuid.UUID       `gorm:"column:photo_id"`
	EventID    uuid.UUID       `gorm:"column:event_id"`
	Filename   string          `gorm:"column:filename"`
	StorageKey string          `gorm:"column:storage_key"`
	Price      decimal.Decimal `gorm:"column:price"`
	AddedAt    time.Time       `gorm:"column:added_at"`
}

// List returns the user's cart entries in insertion order, joined with
// current catalog prices. Entries whose photo has been deleted drop out
// of the join.
func (r *Repository) List(ctx context.Context, userID uuid.UUID) ([]EntryRecord, error) {
	var records []EntryRecord
	if err := r.db.WithContext(ctx).
		Table("cart_entries ce").
		Select("ce.photo_id, p.event_id, p.filename, p.storage_key, p.price, ce.added_at").
		Joins("JOIN photos p ON p.id = ce.photo_id").
		Where("ce.user_id = ?", userID).
		Order("ce.added_at ASC").
		Order("ce.id ASC").
		Scan(&records).Error; err != nil {
		return nil, err
	}
	return records, nil
}

// Clear removes the given photos from the user's cart. Used after a paid
// checkout session is reconciled.
func (r *Repository) Clear(ctx context.Context, userID uuid.UUID, photoIDs []uuid.UUID) error {
	if len(photoIDs) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).
		Where("user_id = ? AND photo_id IN ?", userID, photoIDs).
		Delete(&models.CartEntry{}).
		Error
}

// Count returns the number of entries in the user's cart.
func (r *Repository) Count(ctx context.Context, userID uuid.UUID) (int64, error) {
	var count int64
	if err := r.db.WithContext(ctx).
		Model(&models.CartEntry{}).
		Where("user_id = ?", userID).
		Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}
