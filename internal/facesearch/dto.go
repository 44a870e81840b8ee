package facesearch

import (
	"github.com/google/uuid"
)

// SearchInput carries the base64-encoded reference image plus an optional
// event filter.
type SearchInput struct {
	ReferenceImage string     `json:"reference_image" validate:"required"`
	EventID        *uuid.UUID `json:"event_id,omitempty"`
}

// Match is one photo the vision model recognized the person in.
// Confidence is display-only and never drives access decisions.
type Match struct {
	PhotoID        uuid.UUID `json:"photo_id"`
	EventID        uuid.UUID `json:"event_id"`
	Filename       string    `json:"filename"`
	ThumbnailURL   string    `json:"thumbnail_url"`
	WatermarkedURL string    `json:"watermarked_url"`
	Confidence     int       `json:"confidence"`
}

// SearchResult bundles the model's face description with the matched
// photos, sorted by descending confidence.
type SearchResult struct {
	Description string  `json:"description"`
	Matches     []Match `json:"matches"`
	Scanned     int     `json:"scanned"`
}
