package stripewebhook

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/stripe/stripe-go/v84"

	"github.com/caroduarte/lumina-backend/internal/checkout"
	pkgerrors "github.com/caroduarte/lumina-backend/pkg/errors"
	"github.com/caroduarte/lumina-backend/pkg/logger"
	"github.com/caroduarte/lumina-backend/pkg/metrics"
)

type reconciler interface {
	ReconcileByProviderID(ctx context.Context, providerSessionID string) (*checkout.ReconcileResult, error)
}

type ServiceParams struct {
	Reconciler reconciler
	Metrics    *metrics.CheckoutMetrics
	Logger     *logger.Logger
}

// Service turns provider webhook events into checkout reconciliations.
// It races safely with status polling: the purchase ledger's uniqueness
// constraint is the arbiter, so handling the same session twice is fine.
type Service struct {
	reconciler reconciler
	metrics    *metrics.CheckoutMetrics
	logger     *logger.Logger
}

func NewService(params ServiceParams) (*Service, error) {
	if params.Reconciler == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "reconciler required")
	}
	if params.Logger == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "logger required")
	}
	return &Service{
		reconciler: params.Reconciler,
		metrics:    params.Metrics,
		logger:     params.Logger,
	}, nil
}

func (s *Service) HandleEvent(ctx context.Context, event *stripe.Event) error {
	if event == nil || event.Data == nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "stripe event data required")
	}

	switch event.Type {
	case stripe.EventTypeCheckoutSessionCompleted,
		stripe.EventTypeCheckoutSessionAsyncPaymentSucceeded,
		stripe.EventTypeCheckoutSessionExpired:
		var session stripe.CheckoutSession
		if err := json.Unmarshal(event.Data.Raw, &session); err != nil {
			s.incEvent(event.Type, "decode_error")
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "decode checkout session event")
		}
		if session.ID == "" {
			s.incEvent(event.Type, "decode_error")
			return pkgerrors.New(pkgerrors.CodeValidation, "checkout session id missing")
		}

		result, err := s.reconciler.ReconcileByProviderID(ctx, session.ID)
		if err != nil {
			// Sessions this backend never opened (other environments,
			// replays after cleanup) are not worth provider retries.
			if pkgerrors.HasCode(err, pkgerrors.CodeSessionNotFound) {
				s.logger.Warn(ctx, fmt.Sprintf("webhook for unknown checkout session %s", session.ID))
				s.incEvent(event.Type, "unknown_session")
				return nil
			}
			s.incEvent(event.Type, "error")
			return err
		}
		s.incEvent(event.Type, string(result.Status))
		return nil
	default:
		s.incEvent(event.Type, "ignored")
		return nil
	}
}

func (s *Service) incEvent(eventType stripe.EventType, result string) {
	if s.metrics != nil {
		s.metrics.IncWebhookEvent(string(eventType), result)
	}
}
