package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// CheckoutMetrics records the checkout and reconciliation funnel.
type CheckoutMetrics struct {
	sessionsCreated *prometheus.CounterVec
	reconciliations *prometheus.CounterVec
	webhookEvents   *prometheus.CounterVec
	duration        *prometheus.HistogramVec
}

// NewCheckoutMetrics registers the checkout metrics on the provided registerer.
func NewCheckoutMetrics(reg prometheus.Registerer) *CheckoutMetrics {
	if reg == nil {
		return &CheckoutMetrics{}
	}
	sessionsCreated := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "checkout_sessions_created",
		Help: "Checkout sessions created, by result.",
	}, []string{"result"})
	reconciliations := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "checkout_reconciliations",
		Help: "Reconciliation runs, by outcome status.",
	}, []string{"status"})
	webhookEvents := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "stripe_webhook_events",
		Help: "Stripe webhook events received, by type and result.",
	}, []string{"type", "result"})
	duration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "checkout_operation_duration_seconds",
		Help:    "Duration of checkout operations in seconds.",
		Buckets: prometheus.DefBuckets,
	}, []string{"operation"})
	reg.MustRegister(sessionsCreated, reconciliations, webhookEvents, duration)
	return &CheckoutMetrics{
		sessionsCreated: sessionsCreated,
		reconciliations: reconciliations,
		webhookEvents:   webhookEvents,
		duration:        duration,
	}
}

// IncSessionCreated increments the session-creation counter for a result.
func (c *CheckoutMetrics) IncSessionCreated(result string) {
	if c == nil || c.sessionsCreated == nil {
		return
	}
	c.sessionsCreated.WithLabelValues(normalizeLabel(result)).Inc()
}

// IncReconciliation increments the reconciliation counter for an outcome.
func (c *CheckoutMetrics) IncReconciliation(status string) {
	if c == nil || c.reconciliations == nil {
		return
	}
	c.reconciliations.WithLabelValues(normalizeLabel(status)).Inc()
}

// IncWebhookEvent increments the webhook counter for an event type and result.
func (c *CheckoutMetrics) IncWebhookEvent(eventType, result string) {
	if c == nil || c.webhookEvents == nil {
		return
	}
	c.webhookEvents.WithLabelValues(normalizeLabel(eventType), normalizeLabel(result)).Inc()
}

// ObserveDuration records the duration for the named operation.
func (c *CheckoutMetrics) ObserveDuration(operation string, duration time.Duration) {
	if c == nil || c.duration == nil {
		return
	}
	c.duration.WithLabelValues(normalizeLabel(operation)).Observe(duration.Seconds())
}

func normalizeLabel(value string) string {
	if value == "" {
		return "unknown"
	}
	return value
}
