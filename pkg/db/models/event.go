package models

import (
	"time"

	"github.com/google/uuid"
)

// Event groups the photos shot at a single session or occasion.
type Event struct {
	ID           uuid.UUID  `gorm:"type:uuid;default:gen_random_uuid();primaryKey"`
	Name         string     `gorm:"column:name;not null"`
	EventDate    *time.Time `gorm:"column:event_date"`
	Location     *string    `gorm:"column:location"`
	Description  *string    `gorm:"column:description"`
	// No default tag here: GORM would overwrite an explicit false on
	// insert. The column default lives in the migration.
	IsPublic     bool       `gorm:"column:is_public;not null"`
	CoverPhotoID *uuid.UUID `gorm:"column:cover_photo_id;type:uuid"`
	CreatedAt    time.Time  `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt    time.Time  `gorm:"column:updated_at;autoUpdateTime"`
}
