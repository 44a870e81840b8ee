package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	dbtypes "github.com/caroduarte/lumina-backend/pkg/db/types"
	"github.com/caroduarte/lumina-backend/pkg/enums"
)

// CheckoutSession mirrors one payment-provider checkout session. Status
// only ever moves from open to one of the terminal states.
type CheckoutSession struct {
	ID                uuid.UUID                   `gorm:"type:uuid;default:gen_random_uuid();primaryKey"`
	UserID            uuid.UUID                   `gorm:"column:user_id;type:uuid;not null;index"`
	ProviderSessionID string                      `gorm:"column:provider_session_id;not null;uniqueIndex"`
	Status            enums.CheckoutSessionStatus `gorm:"column:status;type:text;not null;default:'open'"`
	Currency          string                      `gorm:"column:currency;not null"`
	AmountTotal       decimal.Decimal             `gorm:"column:amount_total;type:numeric(10,2);not null"`
	// The empty-array default lives in the migration; a default tag here
	// would make GORM bind the expression text as the column value.
	PhotoIDs          dbtypes.UUIDArray           `gorm:"type:uuid[];column:photo_ids;not null"`
	CompletedAt       *time.Time                  `gorm:"column:completed_at"`
	CreatedAt         time.Time                   `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt         time.Time                   `gorm:"column:updated_at;autoUpdateTime"`
}

// CheckoutSessionItem snapshots the price of one photo at checkout time
// so reconciliation records exactly what was charged.
type CheckoutSessionItem struct {
	ID        uuid.UUID       `gorm:"type:uuid;default:gen_random_uuid();primaryKey"`
	SessionID uuid.UUID       `gorm:"column:session_id;type:uuid;not null;index"`
	PhotoID   uuid.UUID       `gorm:"column:photo_id;type:uuid;not null"`
	UnitPrice decimal.Decimal `gorm:"column:unit_price;type:numeric(10,2);not null"`
	CreatedAt time.Time       `gorm:"column:created_at;autoCreateTime"`
}
