package webhooks

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stripe/stripe-go/v84"

	stripewebhook "github.com/caroduarte/lumina-backend/internal/webhooks/stripe"
)

const testSigningSecret = "whsec_test"

func TestStripeWebhookProcessesOnceAcrossRedeliveries(t *testing.T) {
	payload, header := signedCheckoutEvent(t)
	service := &recordingWebhookService{}
	guard := newTestGuard(t)
	handler := StripeWebhook(service, &staticSecretClient{secret: testSigningSecret}, guard, nil)

	for attempt := 0; attempt < 2; attempt++ {
		req := httptest.NewRequest(http.MethodPost, "/api/v1/webhooks/stripe", bytes.NewReader(payload))
		req.Header.Set("Stripe-Signature", header)
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		if rec.Code != http.StatusOK {
			t.Fatalf("attempt %d status = %d (%s)", attempt, rec.Code, rec.Body.String())
		}
	}

	if service.calls != 1 {
		t.Fatalf("service calls = %d, want exactly 1 despite redelivery", service.calls)
	}
}

func TestStripeWebhookRejectsBadSignature(t *testing.T) {
	payload, _ := signedCheckoutEvent(t)
	service := &recordingWebhookService{}
	handler := StripeWebhook(service, &staticSecretClient{secret: testSigningSecret}, newTestGuard(t), nil)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/webhooks/stripe", bytes.NewReader(payload))
	req.Header.Set("Stripe-Signature", "t=1,v1=deadbeef")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("status = %d, want 503 for a bad signature", rec.Code)
	}
	if service.calls != 0 {
		t.Fatal("service must not run on a bad signature")
	}
}

func TestStripeWebhookRequiresSignatureHeader(t *testing.T) {
	payload, _ := signedCheckoutEvent(t)
	handler := StripeWebhook(&recordingWebhookService{}, &staticSecretClient{secret: testSigningSecret}, newTestGuard(t), nil)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/webhooks/stripe", bytes.NewReader(payload))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400 without a signature header", rec.Code)
	}
}

func TestStripeWebhookReleasesMarkerOnHandlerFailure(t *testing.T) {
	payload, header := signedCheckoutEvent(t)
	service := &recordingWebhookService{failFirst: true}
	handler := StripeWebhook(service, &staticSecretClient{secret: testSigningSecret}, newTestGuard(t), nil)

	first := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/webhooks/stripe", bytes.NewReader(payload))
	req.Header.Set("Stripe-Signature", header)
	handler.ServeHTTP(first, req)
	if first.Code == http.StatusOK {
		t.Fatalf("expected failure status on first delivery, got %d", first.Code)
	}

	// The retry must reach the service again instead of being deduped.
	second := httptest.NewRecorder()
	retry := httptest.NewRequest(http.MethodPost, "/api/v1/webhooks/stripe", bytes.NewReader(payload))
	retry.Header.Set("Stripe-Signature", header)
	handler.ServeHTTP(second, retry)
	if second.Code != http.StatusOK {
		t.Fatalf("retry status = %d (%s)", second.Code, second.Body.String())
	}
	if service.calls != 2 {
		t.Fatalf("service calls = %d, want 2 (failed attempt plus retry)", service.calls)
	}
}

func newTestGuard(t *testing.T) *stripewebhook.IdempotencyGuard {
	t.Helper()
	guard, err := stripewebhook.NewIdempotencyGuard(newMemoryIdempotencyStore(), time.Minute, "stripe-webhook")
	if err != nil {
		t.Fatalf("guard setup: %v", err)
	}
	return guard
}

func signedCheckoutEvent(t *testing.T) ([]byte, string) {
	t.Helper()

	session := &stripe.CheckoutSession{
		ID:            "cs_" + uuid.NewString(),
		PaymentStatus: stripe.CheckoutSessionPaymentStatusPaid,
		Metadata: map[string]string{
			"checkout_session_id": uuid.NewString(),
			"user_id":             uuid.NewString(),
		},
	}
	raw, err := json.Marshal(session)
	if err != nil {
		t.Fatalf("marshal session: %v", err)
	}

	event := &stripe.Event{
		ID:         "evt_" + uuid.NewString(),
		Type:       stripe.EventTypeCheckoutSessionCompleted,
		Object:     "event",
		APIVersion: stripe.APIVersion,
		Data:       &stripe.EventData{Raw: raw},
	}
	payload, err := json.Marshal(event)
	if err != nil {
		t.Fatalf("marshal event: %v", err)
	}

	ts := time.Now().Unix()
	mac := hmac.New(sha256.New, []byte(testSigningSecret))
	fmt.Fprintf(mac, "%d.%s", ts, payload)
	header := fmt.Sprintf("t=%d,v1=%s", ts, hex.EncodeToString(mac.Sum(nil)))
	return payload, header
}

type recordingWebhookService struct {
	calls     int
	failFirst bool
}

func (s *recordingWebhookService) HandleEvent(ctx context.Context, event *stripe.Event) error {
	s.calls++
	if s.failFirst && s.calls == 1 {
		return fmt.Errorf("transient reconcile failure")
	}
	return nil
}

type staticSecretClient struct {
	secret string
}

func (c *staticSecretClient) SigningSecret() string {
	return c.secret
}

type memoryIdempotencyStore struct {
	mu   sync.Mutex
	data map[string]string
}

func newMemoryIdempotencyStore() *memoryIdempotencyStore {
	return &memoryIdempotencyStore{data: make(map[string]string)}
}

func (s *memoryIdempotencyStore) Get(ctx context.Context, key string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.data[key], nil
}

func (s *memoryIdempotencyStore) SetNX(ctx context.Context, key string, value any, ttl time.Duration) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.data[key]; exists {
		return false, nil
	}
	s.data[key] = fmt.Sprintf("%v", value)
	return true, nil
}

func (s *memoryIdempotencyStore) IdempotencyKey(scope, id string) string {
	return fmt.Sprintf("lumina:idempotency:%s:%s", scope, id)
}

func (s *memoryIdempotencyStore) Del(ctx context.Context, keys ...string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, key := range keys {
		delete(s.data, key)
	}
	return nil
}
