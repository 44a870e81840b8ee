package purchases

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/caroduarte/lumina-backend/pkg/db/models"
	"github.com/caroduarte/lumina-backend/pkg/pagination"
)

// Repository encapsulates the purchase ledger. The (user_id, photo_id)
// unique index is the arbiter for concurrent reconciliation.
type Repository struct {
	db *gorm.DB
}

// NewRepository constructs a purchases repository bound to the provided GORM DB.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// Insert records a purchase, swallowing duplicates. Returns true when a
// row was written, false when the (user, photo) pair already existed.
func (r *Repository) Insert(ctx context.Context, purchase *models.Purchase) (bool, error) {
	if purchase.UserID == uuid.Nil || purchase.PhotoID == uuid.Nil {
		return false, gorm.ErrInvalidValue
	}
	if purchase.ID == uuid.Nil {
		purchase.ID = uuid.New()
	}
	if purchase.PurchasedAt.IsZero() {
		purchase.PurchasedAt = time.Now().UTC()
	}

	result := r.db.WithContext(ctx).Exec(
		`INSERT INTO purchases (id, user_id, photo_id, checkout_session_id, price_paid, purchased_at)
		 VALUES (?, ?, ?, ?, ?, ?) ON CONFLICT (user_id, photo_id) DO NOTHING`,
		purchase.ID, purchase.UserID, purchase.PhotoID, purchase.CheckoutSessionID,
		purchase.PricePaid, purchase.PurchasedAt,
	)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

// ListByUser returns the user's purchases, most recent first, keyset
// paginated on (purchased_at, id). A zero limit returns everything.
func (r *Repository) ListByUser(ctx context.Context, userID uuid.UUID, cursor *pagination.Cursor, limit int) ([]models.Purchase, error) {
	query := r.db.WithContext(ctx).Where("user_id = ?", userID)
	if cursor != nil {
		query = query.Where("(purchased_at, id) < (?, ?)", cursor.CreatedAt, cursor.ID)
	}
	query = query.Order("purchased_at DESC, id DESC")
	if limit > 0 {
		query = query.Limit(limit)
	}

	var rows []models.Purchase
	if err := query.Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

// IsOwned reports whether the user has purchased the photo.
func (r *Repository) IsOwned(ctx context.Context, userID, photoID uuid.UUID) (bool, error) {
	var count int64
	if err := r.db.WithContext(ctx).
		Model(&models.Purchase{}).
		Where("user_id = ? AND photo_id = ?", userID, photoID).
		Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

// OwnedSet returns which of the given photos the user owns.
func (r *Repository) OwnedSet(ctx context.Context, userID uuid.UUID, photoIDs []uuid.UUID) (map[uuid.UUID]bool, error) {
	owned := make(map[uuid.UUID]bool, len(photoIDs))
	if len(photoIDs) == 0 {
		return owned, nil
	}

	var ids []uuid.UUID
	if err := r.db.WithContext(ctx).
		Model(&models.Purchase{}).
		Where("user_id = ? AND photo_id IN ?", userID, photoIDs).
		Pluck("photo_id", &ids).Error; err != nil {
		return nil, err
	}
	for _, id := range ids {
		owned[id] = true
	}
	return owned, nil
}

// Count returns the total number of purchases in the ledger.
func (r *Repository) Count(ctx context.Context) (int64, error) {
	var count int64
	if err := r.db.WithContext(ctx).Model(&models.Purchase{}).Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

// Revenue sums the amount paid across all purchases.
func (r *Repository) Revenue(ctx context.Context) (decimal.Decimal, error) {
	var total decimal.NullDecimal
	if err := r.db.WithContext(ctx).
		Model(&models.Purchase{}).
		Select("SUM(price_paid)").
		Scan(&total).Error; err != nil {
		return decimal.Zero, err
	}
	if !total.Valid {
		return decimal.Zero, nil
	}
	return total.Decimal, nil
}
