package cart

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ItemDTO is a single cart line: the selected photo joined with its
// current catalog price.
type ItemDTO struct {
	PhotoID      uuid.UUID       `json:"photo_id"`
	EventID      uuid.UUID       `json:"event_id"`
	Filename     string          `json:"filename"`
	Price        decimal.Decimal `json:"price"`
	ThumbnailURL string          `json:"thumbnail_url,omitempty"`
	AddedAt      time.Time       `json:"added_at"`
}

// CartDTO is the full cart view: insertion-ordered items and their sum.
type CartDTO struct {
	Items []ItemDTO       `json:"items"`
	Total decimal.Decimal `json:"total"`
	Count int             `json:"count"`
}
