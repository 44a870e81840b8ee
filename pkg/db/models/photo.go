package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Photo is a single catalog item. StorageKey identifies the uploaded
// asset at the CDN; renditions are derived from it on the fly.
type Photo struct {
	ID         uuid.UUID       `gorm:"type:uuid;default:gen_random_uuid();primaryKey"`
	EventID    uuid.UUID       `gorm:"column:event_id;type:uuid;not null;index"`
	Filename   string          `gorm:"column:filename;not null"`
	StorageKey string          `gorm:"column:storage_key;not null"`
	Price      decimal.Decimal `gorm:"column:price;type:numeric(10,2);not null"`
	UploadedAt time.Time       `gorm:"column:uploaded_at;autoCreateTime"`
}
