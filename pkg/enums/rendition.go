package enums

import "fmt"

// Rendition identifies one of the delivered variants of a photo.
type Rendition string

const (
	RenditionThumbnail   Rendition = "thumbnail"
	RenditionWatermarked Rendition = "watermarked"
	RenditionOriginal    Rendition = "original"
)

var validRenditions = []Rendition{
	RenditionThumbnail,
	RenditionWatermarked,
	RenditionOriginal,
}

// String implements fmt.Stringer.
func (r Rendition) String() string {
	return string(r)
}

// IsValid reports whether the value is a known Rendition.
func (r Rendition) IsValid() bool {
	for _, candidate := range validRenditions {
		if candidate == r {
			return true
		}
	}
	return false
}

// ParseRendition converts raw input into a Rendition.
func ParseRendition(value string) (Rendition, error) {
	for _, candidate := range validRenditions {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid rendition %q", value)
}
