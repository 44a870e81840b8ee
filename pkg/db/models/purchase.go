package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Purchase is the permanent record that a user owns a photo. The
// (user_id, photo_id) pair is unique so reconciliation can re-run
// without creating duplicates.
type Purchase struct {
	ID                uuid.UUID       `gorm:"type:uuid;default:gen_random_uuid();primaryKey"`
	UserID            uuid.UUID       `gorm:"column:user_id;type:uuid;not null;uniqueIndex:idx_purchases_user_photo"`
	PhotoID           uuid.UUID       `gorm:"column:photo_id;type:uuid;not null;uniqueIndex:idx_purchases_user_photo"`
	CheckoutSessionID *uuid.UUID      `gorm:"column:checkout_session_id;type:uuid"`
	PricePaid         decimal.Decimal `gorm:"column:price_paid;type:numeric(10,2);not null"`
	PurchasedAt       time.Time       `gorm:"column:purchased_at;autoCreateTime"`
}
