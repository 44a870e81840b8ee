package checkout

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/caroduarte/lumina-backend/pkg/db/models"
	"github.com/caroduarte/lumina-backend/pkg/enums"
)

// Repository persists checkout session snapshots.
type Repository struct {
	db *gorm.DB
}

// NewRepository constructs a checkout repository bound to the provided GORM DB.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// WithTx returns a repository bound to the given transaction.
func (r *Repository) WithTx(tx *gorm.DB) *Repository {
	if tx == nil {
		return r
	}
	return &Repository{db: tx}
}

// Create inserts a session and its item snapshot. Callers wrap this in a
// transaction so the snapshot is all-or-nothing.
func (r *Repository) Create(ctx context.Context, session *models.CheckoutSession, items []models.CheckoutSessionItem) error {
	if err := r.db.WithContext(ctx).Create(session).Error; err != nil {
		return err
	}
	for i := range items {
		items[i].SessionID = session.ID
	}
	if len(items) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Create(&items).Error
}

// FindByID loads a session by its local UUID.
// CreateInTx persists the session and its snapshot inside the caller's
// transaction so a failed item insert rolls back the session row too.
func (r *Repository) CreateInTx(ctx context.Context, tx *gorm.DB, session *models.CheckoutSession, items []models.CheckoutSessionItem) error {
	return r.WithTx(tx).Create(ctx, session, items)
}

func (r *Repository) FindByID(ctx context.Context, id uuid.UUID) (*models.CheckoutSession, error) {
	var session models.CheckoutSession
	if err := r.db.WithContext(ctx).First(&session, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &session, nil
}

// FindByProviderID loads a session by the payment provider's session ID.
func (r *Repository) FindByProviderID(ctx context.Context, providerID string) (*models.CheckoutSession, error) {
	var session models.CheckoutSession
	if err := r.db.WithContext(ctx).
		Where("provider_session_id = ?", providerID).
		First(&session).Error; err != nil {
		return nil, err
	}
	return &session, nil
}

// ListItems returns the session's price snapshot.
func (r *Repository) ListItems(ctx context.Context, sessionID uuid.UUID) ([]models.CheckoutSessionItem, error) {
	var items []models.CheckoutSessionItem
	if err := r.db.WithContext(ctx).
		Where("session_id = ?", sessionID).
		Order("created_at ASC").
		Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

// MarkTerminal moves an open session to the given terminal status. The
// status guard makes the transition first-writer-wins: a second caller
// sees zero rows affected and knows another reconciler already ran.
func (r *Repository) MarkTerminal(ctx context.Context, id uuid.UUID, status enums.CheckoutSessionStatus, completedAt *time.Time) (bool, error) {
	if !status.IsTerminal() {
		return false, gorm.ErrInvalidValue
	}
	result := r.db.WithContext(ctx).
		Model(&models.CheckoutSession{}).
		Where("id = ? AND status = ?", id, enums.CheckoutSessionStatusOpen).
		Updates(map[string]any{
			"status":       status,
			"completed_at": completedAt,
			"updated_at":   time.Now().UTC(),
		})
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

// ListByUser returns the user's sessions, newest first.
func (r *Repository) ListByUser(ctx context.Context, userID uuid.UUID) ([]models.CheckoutSession, error) {
	var rows []models.CheckoutSession
	if err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

// PaidRevenue sums amount_total across paid sessions.
func (r *Repository) PaidRevenue(ctx context.Context) (decimal.Decimal, error) {
	var total decimal.NullDecimal
	if err := r.db.WithContext(ctx).
		Model(&models.CheckoutSession{}).
		Select("SUM(amount_total)").
		Where("status = ?", enums.CheckoutSessionStatusPaid).
		Scan(&total).Error; err != nil {
		return decimal.Zero, err
	}
	if !total.Valid {
		return decimal.Zero, nil
	}
	return total.Decimal, nil
}
