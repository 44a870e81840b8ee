package models

import (
	"time"

	"github.com/google/uuid"
)

// CartEntry marks a photo as selected by a user. Prices are not
// snapshotted here; the cart always reflects current catalog prices.
type CartEntry struct {
	ID      uuid.UUID `gorm:"type:uuid;default:gen_random_uuid();primaryKey"`
	UserID  uuid.UUID `gorm:"column:user_id;type:uuid;not null;uniqueIndex:idx_cart_entries_user_photo"`
	PhotoID uuid.UUID `gorm:"column:photo_id;type:uuid;not null;uniqueIndex:idx_cart_entries_user_photo"`
	AddedAt time.Time `gorm:"column:added_at;autoCreateTime"`
}

// TableName overrides GORM's default pluralization.
func (CartEntry) TableName() string {
	return "cart_entries"
}
