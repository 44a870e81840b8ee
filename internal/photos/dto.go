package photos

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/caroduarte/lumina-backend/pkg/db/models"
)

// PhotoDTO is the API shape of a catalog photo. OriginalURL is only
// populated for viewers who own the photo.
type PhotoDTO struct {
	ID             uuid.UUID       `json:"id"`
	EventID        uuid.UUID       `json:"event_id"`
	Filename       string          `json:"filename"`
	Price          decimal.Decimal `json:"price"`
	IsPurchased    bool            `json:"is_purchased"`
	ThumbnailURL   string          `json:"thumbnail_url,omitempty"`
	WatermarkedURL string          `json:"watermarked_url,omitempty"`
	OriginalURL    string          `json:"original_url,omitempty"`
	UploadedAt     time.Time       `json:"uploaded_at"`
}

// UploadPhotoDTO carries a single admin upload: raw image bytes plus the
// catalog metadata to register alongside them.
type UploadPhotoDTO struct {
	EventID  uuid.UUID
	Filename string
	Price    decimal.Decimal
	Content  []byte
}

// FromModel maps a persisted photo into its DTO. URLs and the ownership
// flag are filled in by the service.
func FromModel(p *models.Photo) *PhotoDTO {
	if p == nil {
		return nil
	}
	return &PhotoDTO{
		ID:         p.ID,
		EventID:    p.EventID,
		Filename:   p.Filename,
		Price:      p.Price,
		UploadedAt: p.UploadedAt,
	}
}
