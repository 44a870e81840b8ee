package checkout

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/caroduarte/lumina-backend/pkg/enums"
)

// CreateSessionResponse is returned when a hosted checkout session has
// been opened for the viewer's cart.
type CreateSessionResponse struct {
	SessionID         uuid.UUID       `json:"session_id"`
	ProviderSessionID string          `json:"provider_session_id"`
	RedirectURL       string          `json:"redirect_url"`
	AmountTotal       decimal.Decimal `json:"amount_total"`
	Currency          string          `json:"currency"`
	ItemCount         int             `json:"item_count"`
}

// StatusResponse reports the current state of a checkout session without
// touching the ledger.
type StatusResponse struct {
	SessionID uuid.UUID            `json:"session_id"`
	Status    enums.CheckoutStatus `json:"status"`
}

// ReconcileResult reports the outcome of a reconciliation pass.
type ReconcileResult struct {
	SessionID         uuid.UUID            `json:"session_id"`
	Status            enums.CheckoutStatus `json:"status"`
	PurchasesRecorded int                  `json:"purchases_recorded"`
}

// RetryPolicy bounds the status-polling helper. Zero values fall back to
// the configured defaults.
type RetryPolicy struct {
	MaxAttempts int
	Interval    time.Duration
}
