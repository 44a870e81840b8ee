package settings

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/caroduarte/lumina-backend/pkg/db/models"
)

// Repository persists keyed site setting overrides.
type Repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// All returns every stored override keyed by setting name.
func (r *Repository) All(ctx context.Context) (map[string]string, error) {
	var rows []models.SiteSetting
	if err := r.db.WithContext(ctx).Find(&rows).Error; err != nil {
		return nil, err
	}
	overrides := make(map[string]string, len(rows))
	for _, row := range rows {
		overrides[row.Key] = row.Value
	}
	return overrides, nil
}

// Upsert stores or replaces the override for a key.
func (r *Repository) Upsert(ctx context.Context, key, value string) error {
	return r.db.WithContext(ctx).Exec(
		"INSERT INTO site_settings (key, value, updated_at) VALUES (?, ?, ?) ON CONFLICT (key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at",
		key, value, time.Now().UTC(),
	).Error
}

// Delete removes the override for a key. Reports whether a row existed.
func (r *Repository) Delete(ctx context.Context, key string) (bool, error) {
	result := r.db.WithContext(ctx).Where("key = ?", key).Delete(&models.SiteSetting{})
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}
