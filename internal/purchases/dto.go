package purchases

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Page is one window of the purchase history. NextCursor is empty on
// the last page.
type Page struct {
	Items      []PurchaseDTO `json:"items"`
	NextCursor string        `json:"next_cursor,omitempty"`
}

// PurchaseDTO is a ledger row joined with catalog metadata for display.
// OriginalURL is always present: ownership is what put the row here.
type PurchaseDTO struct {
	ID           uuid.UUID       `json:"id"`
	PhotoID      uuid.UUID       `json:"photo_id"`
	EventID      uuid.UUID       `json:"event_id,omitempty"`
	Filename     string          `json:"filename,omitempty"`
	PricePaid    decimal.Decimal `json:"price_paid"`
	ThumbnailURL string          `json:"thumbnail_url,omitempty"`
	OriginalURL  string          `json:"original_url,omitempty"`
	PurchasedAt  time.Time       `json:"purchased_at"`
}
