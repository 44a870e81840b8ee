package checkout

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stripe/stripe-go/v84"
	"go.uber.org/multierr"
	"gorm.io/gorm"

	"github.com/caroduarte/lumina-backend/internal/cart"
	"github.com/caroduarte/lumina-backend/internal/purchases"
	pkgcheckout "github.com/caroduarte/lumina-backend/pkg/checkout"
	"github.com/caroduarte/lumina-backend/pkg/config"
	"github.com/caroduarte/lumina-backend/pkg/db/models"
	dbtypes "github.com/caroduarte/lumina-backend/pkg/db/types"
	"github.com/caroduarte/lumina-backend/pkg/enums"
	pkgerrors "github.com/caroduarte/lumina-backend/pkg/errors"
	"github.com/caroduarte/lumina-backend/pkg/logger"
	"github.com/caroduarte/lumina-backend/pkg/metrics"
	"github.com/caroduarte/lumina-backend/pkg/types"
)

// Service orchestrates hosted checkout sessions and their reconciliation
// into the purchase ledger.
type Service interface {
	CreateSession(ctx context.Context, viewer types.Viewer, originURL string) (*CreateSessionResponse, error)
	GetStatus(ctx context.Context, viewer types.Viewer, sessionID uuid.UUID) (*StatusResponse, error)
	Reconcile(ctx context.Context, sessionID uuid.UUID) (*ReconcileResult, error)
	ReconcileByProviderID(ctx context.Context, providerSessionID string) (*ReconcileResult, error)
	PollStatus(ctx context.Context, sessionID uuid.UUID, policy RetryPolicy) (*ReconcileResult, error)
}

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type sessionRepository interface {
	CreateInTx(ctx context.Context, tx *gorm.DB, session *models.CheckoutSession, items []models.CheckoutSessionItem) error
	FindByID(ctx context.Context, id uuid.UUID) (*models.CheckoutSession, error)
	FindByProviderID(ctx context.Context, providerID string) (*models.CheckoutSession, error)
	ListItems(ctx context.Context, sessionID uuid.UUID) ([]models.CheckoutSessionItem, error)
	MarkTerminal(ctx context.Context, id uuid.UUID, status enums.CheckoutSessionStatus, completedAt *time.Time) (bool, error)
}

type cartManager interface {
	List(ctx context.Context, userID uuid.UUID) ([]cart.EntryRecord, error)
	Clear(ctx context.Context, userID uuid.UUID, photoIDs []uuid.UUID) error
}

type purchaseLedger interface {
	Record(ctx context.Context, input purchases.RecordInput) error
	OwnedSet(ctx context.Context, userID uuid.UUID, photoIDs []uuid.UUID) (map[uuid.UUID]bool, error)
}

type service struct {
	tx       txRunner
	repo     sessionRepository
	cart     cartManager
	ledger   purchaseLedger
	stripe   StripeCheckoutClient
	metrics  *metrics.CheckoutMetrics
	logger   *logger.Logger
	currency string
	pollCfg  config.CheckoutConfig
}

// ServiceParams bundles the dependencies required to build a checkout service.
type ServiceParams struct {
	Tx           txRunner
	Repo         sessionRepository
	Cart         cartManager
	Ledger       purchaseLedger
	StripeClient StripeCheckoutClient
	Metrics      *metrics.CheckoutMetrics
	Logger       *logger.Logger
	StripeConfig config.StripeConfig
	PollConfig   config.CheckoutConfig
}

// NewService builds the checkout service.
func NewService(params ServiceParams) (Service, error) {
	if params.Tx == nil {
		return nil, fmt.Errorf("tx runner is required")
	}
	if params.Repo == nil {
		return nil, fmt.Errorf("checkout repository is required")
	}
	if params.Cart == nil {
		return nil, fmt.Errorf("cart manager is required")
	}
	if params.Ledger == nil {
		return nil, fmt.Errorf("purchase ledger is required")
	}
	if params.StripeClient == nil {
		return nil, fmt.Errorf("stripe client is required")
	}
	if params.Logger == nil {
		return nil, fmt.Errorf("logger is required")
	}

	currency := strings.ToLower(strings.TrimSpace(params.StripeConfig.Currency))
	if currency == "" {
		currency = "eur"
	}
	return &service{
		tx:       params.Tx,
		repo:     params.Repo,
		cart:     params.Cart,
		ledger:   params.Ledger,
		stripe:   params.StripeClient,
		metrics:  params.Metrics,
		logger:   params.Logger,
		currency: currency,
		pollCfg:  params.PollConfig,
	}, nil
}

// CreateSession snapshots the viewer's cart and opens a hosted checkout
// session for the snapshot total. The snapshot is immutable afterwards.
func (s *service) CreateSession(ctx context.Context, viewer types.Viewer, originURL string) (*CreateSessionResponse, error) {
	start := time.Now()

	if !viewer.Authenticated() {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "authentication required")
	}
	originURL = strings.TrimRight(strings.TrimSpace(originURL), "/")
	if originURL == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "origin URL is required")
	}

	entries, err := s.cart.List(ctx, viewer.UserID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load cart")
	}
	if len(entries) == 0 {
		s.incSessionCreated("empty_cart")
		return nil, pkgerrors.New(pkgerrors.CodeEmptyCart, "cart is empty")
	}

	photoIDs := make([]uuid.UUID, 0, len(entries))
	for _, entry := range entries {
		photoIDs = append(photoIDs, entry.PhotoID)
	}
	owned, err := s.ledger.OwnedSet(ctx, viewer.UserID, photoIDs)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "check ownership")
	}
	inputs := make([]pkgcheckout.OwnershipValidationInput, 0, len(entries))
	for _, entry := range entries {
		inputs = append(inputs, pkgcheckout.OwnershipValidationInput{
			PhotoID:      entry.PhotoID,
			Filename:     entry.Filename,
			AlreadyOwned: owned[entry.PhotoID],
		})
	}
	if err := pkgcheckout.ValidateNotOwned(inputs); err != nil {
		s.incSessionCreated("already_owned")
		return nil, err
	}

	total := decimal.Zero
	for _, entry := range entries {
		total = total.Add(entry.Price)
	}

	providerSession, err := s.stripe.Create(ctx, s.buildSessionParams(viewer, originURL, entries))
	if err != nil {
		s.incSessionCreated("provider_error")
		return nil, pkgerrors.Wrap(pkgerrors.CodeProviderUnavailable, err, "create provider session")
	}

	session := &models.CheckoutSession{
		ID:                uuid.New(),
		UserID:            viewer.UserID,
		ProviderSessionID: providerSession.ID,
		Status:            enums.CheckoutSessionStatusOpen,
		Currency:          s.currency,
		AmountTotal:       total,
		PhotoIDs:          dbtypes.UUIDArray(photoIDs),
	}
	items := make([]models.CheckoutSessionItem, 0, len(entries))
	for _, entry := range entries {
		items = append(items, models.CheckoutSessionItem{
			ID:        uuid.New(),
			PhotoID:   entry.PhotoID,
			UnitPrice: entry.Price,
		})
	}

	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		return s.repo.CreateInTx(ctx, tx, session, items)
	})
	if err != nil {
		s.incSessionCreated("store_error")
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "store checkout session")
	}

	s.incSessionCreated("success")
	s.observeDuration("create_session", time.Since(start))
	return &CreateSessionResponse{
		SessionID:         session.ID,
		ProviderSessionID: providerSession.ID,
		RedirectURL:       providerSession.URL,
		AmountTotal:       total,
		Currency:          s.currency,
		ItemCount:         len(items),
	}, nil
}

// GetStatus reports the session's current state. It never mutates the
// ledger; use Reconcile for that.
func (s *service) GetStatus(ctx context.Context, viewer types.Viewer, sessionID uuid.UUID) (*StatusResponse, error) {
	session, err := s.loadSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if session.UserID != viewer.UserID && !viewer.IsAdmin() {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "not your checkout session")
	}

	if session.Status.IsTerminal() {
		return &StatusResponse{SessionID: session.ID, Status: session.Status.Reported()}, nil
	}

	providerSession, err := s.stripe.Get(ctx, session.ProviderSessionID, nil)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeProviderUnavailable, err, "query provider session")
	}
	return &StatusResponse{SessionID: session.ID, Status: providerOutcome(providerSession)}, nil
}

func (s *service) Reconcile(ctx context.Context, sessionID uuid.UUID) (*ReconcileResult, error) {
	session, err := s.loadSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	return s.reconcile(ctx, session)
}

// ReconcileByProviderID is the webhook entry point: providers only know
// their own session IDs.
func (s *service) ReconcileByProviderID(ctx context.Context, providerSessionID string) (*ReconcileResult, error) {
	session, err := s.repo.FindByProviderID(ctx, providerSessionID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeSessionNotFound, "checkout session not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load checkout session")
	}
	return s.reconcile(ctx, session)
}

// reconcile drives an open session toward a terminal state. Re-running it
// on an already-reconciled session is a success no-op; duplicate ledger
// writes are swallowed by the (user, photo) unique constraint.
func (s *service) reconcile(ctx context.Context, session *models.CheckoutSession) (*ReconcileResult, error) {
	if session.Status.IsTerminal() {
		return &ReconcileResult{SessionID: session.ID, Status: session.Status.Reported()}, nil
	}

	providerSession, err := s.stripe.Get(ctx, session.ProviderSessionID, nil)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeProviderUnavailable, err, "query provider session")
	}

	switch providerOutcome(providerSession) {
	case enums.CheckoutStatusPaid:
		return s.settle(ctx, session)
	case enums.CheckoutStatusExpired:
		if _, err := s.repo.MarkTerminal(ctx, session.ID, enums.CheckoutSessionStatusExpired, nil); err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "mark session expired")
		}
		s.incReconciliation("expired")
		return &ReconcileResult{SessionID: session.ID, Status: enums.CheckoutStatusExpired}, nil
	default:
		s.incReconciliation("pending")
		return &ReconcileResult{SessionID: session.ID, Status: enums.CheckoutStatusPending}, nil
	}
}

// settle records one purchase per snapshot item, clears the matching cart
// entries, then closes the session. Purchases come first: if we crash
// before the status flips, the next reconcile re-runs the idempotent
// inserts instead of losing them.
func (s *service) settle(ctx context.Context, session *models.CheckoutSession) (*ReconcileResult, error) {
	items, err := s.repo.ListItems(ctx, session.ID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load session snapshot")
	}

	// Record every item even when one insert fails; the session stays
	// open so the next reconcile retries only the missing rows.
	recorded := 0
	var recordErrs []error
	photoIDs := make([]uuid.UUID, 0, len(items))
	for _, item := range items {
		photoIDs = append(photoIDs, item.PhotoID)
		err := s.ledger.Record(ctx, purchases.RecordInput{
			UserID:            session.UserID,
			PhotoID:           item.PhotoID,
			CheckoutSessionID: &session.ID,
			PricePaid:         item.UnitPrice,
		})
		if err != nil {
			if pkgerrors.HasCode(err, pkgerrors.CodeDuplicatePurchase) {
				continue
			}
			recordErrs = append(recordErrs, err)
			continue
		}
		recorded++
	}
	if len(recordErrs) > 0 {
		s.incReconciliation("error")
		return nil, multierr.Combine(recordErrs...)
	}

	if err := s.cart.Clear(ctx, session.UserID, photoIDs); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "clear cart entries")
	}

	completedAt := time.Now().UTC()
	claimed, err := s.repo.MarkTerminal(ctx, session.ID, enums.CheckoutSessionStatusPaid, &completedAt)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "mark session paid")
	}
	if claimed {
		s.incReconciliation("paid")
	} else {
		s.incReconciliation("already_reconciled")
	}
	return &ReconcileResult{SessionID: session.ID, Status: enums.CheckoutStatusPaid, PurchasesRecorded: recorded}, nil
}

// PollStatus reconciles repeatedly until the session reaches a terminal
// state or the retry budget runs out. Transient provider failures count
// against the budget instead of aborting it.
func (s *service) PollStatus(ctx context.Context, sessionID uuid.UUID, policy RetryPolicy) (*ReconcileResult, error) {
	if policy.MaxAttempts <= 0 {
		policy.MaxAttempts = s.pollCfg.PollMaxAttempts
	}
	if policy.Interval <= 0 {
		policy.Interval = s.pollCfg.PollInterval
	}
	if policy.MaxAttempts <= 0 {
		policy.MaxAttempts = 1
	}

	var (
		result  *ReconcileResult
		lastErr error
	)
	for attempt := 0; attempt < policy.MaxAttempts; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(policy.Interval):
			}
		}

		result, lastErr = s.Reconcile(ctx, sessionID)
		if lastErr != nil {
			if pkgerrors.HasCode(lastErr, pkgerrors.CodeProviderUnavailable) {
				continue
			}
			return nil, lastErr
		}
		if result.Status != enums.CheckoutStatusPending {
			return result, nil
		}
	}
	if result == nil {
		return nil, lastErr
	}
	return result, nil
}

func (s *service) loadSession(ctx context.Context, sessionID uuid.UUID) (*models.CheckoutSession, error) {
	session, err := s.repo.FindByID(ctx, sessionID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeSessionNotFound, "checkout session not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load checkout session")
	}
	return session, nil
}

func (s *service) buildSessionParams(viewer types.Viewer, originURL string, entries []cart.EntryRecord) *stripe.CheckoutSessionParams {
	lineItems := make([]*stripe.CheckoutSessionLineItemParams, 0, len(entries))
	ids := make([]string, 0, len(entries))
	for _, entry := range entries {
		ids = append(ids, entry.PhotoID.String())
		lineItems = append(lineItems, &stripe.CheckoutSessionLineItemParams{
			Quantity: stripe.Int64(1),
			PriceData: &stripe.CheckoutSessionLineItemPriceDataParams{
				Currency:   stripe.String(s.currency),
				UnitAmount: stripe.Int64(toCents(entry.Price)),
				ProductData: &stripe.CheckoutSessionLineItemPriceDataProductDataParams{
					Name: stripe.String(entry.Filename),
				},
			},
		})
	}

	params := &stripe.CheckoutSessionParams{
		Mode:       stripe.String(string(stripe.CheckoutSessionModePayment)),
		SuccessURL: stripe.String(originURL + "/checkout/success?session_id={CHECKOUT_SESSION_ID}"),
		CancelURL:  stripe.String(originURL + "/checkout/cancel"),
		LineItems:  lineItems,
	}
	params.AddMetadata("user_id", viewer.UserID.String())
	params.AddMetadata("photo_ids", strings.Join(ids, ","))
	return params
}

func providerOutcome(session *stripe.CheckoutSession) enums.CheckoutStatus {
	if session == nil {
		return enums.CheckoutStatusError
	}
	if session.PaymentStatus == stripe.CheckoutSessionPaymentStatusPaid {
		return enums.CheckoutStatusPaid
	}
	if session.Status == stripe.CheckoutSessionStatusExpired {
		return enums.CheckoutStatusExpired
	}
	return enums.CheckoutStatusPending
}

func toCents(amount decimal.Decimal) int64 {
	return amount.Mul(decimal.NewFromInt(100)).Round(0).IntPart()
}

func (s *service) incSessionCreated(result string) {
	if s.metrics != nil {
		s.metrics.IncSessionCreated(result)
	}
}

func (s *service) incReconciliation(status string) {
	if s.metrics != nil {
		s.metrics.IncReconciliation(status)
	}
}

func (s *service) observeDuration(op string, d time.Duration) {
	if s.metrics != nil {
		s.metrics.ObserveDuration(op, d)
	}
}
