package middleware

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	pkgerrors "github.com/caroduarte/lumina-backend/pkg/errors"
	"github.com/caroduarte/lumina-backend/pkg/types"
)

type mapIdempotencyStore struct {
	records map[string]string
}

func newMapIdempotencyStore() *mapIdempotencyStore {
	return &mapIdempotencyStore{records: make(map[string]string)}
}

func (s *mapIdempotencyStore) Get(_ context.Context, key string) (string, error) {
	if v, ok := s.records[key]; ok {
		return v, nil
	}
	return "", redis.Nil
}

func (s *mapIdempotencyStore) SetNX(_ context.Context, key string, value any, _ time.Duration) (bool, error) {
	if _, ok := s.records[key]; ok {
		return false, nil
	}
	s.records[key], _ = value.(string)
	return true, nil
}

func (s *mapIdempotencyStore) Del(_ context.Context, keys ...string) error {
	for _, key := range keys {
		delete(s.records, key)
	}
	return nil
}

func (s *mapIdempotencyStore) IdempotencyKey(scope, id string) string {
	return "test:" + scope + ":" + id
}

func guardedRequest(method, path, body string) *http.Request {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	rc := chi.NewRouteContext()
	rc.RoutePatterns = []string{path}
	return req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, rc))
}

func TestReplayWindowSelection(t *testing.T) {
	tests := []struct {
		name   string
		method string
		path   string
		want   time.Duration
	}{
		{"checkout held a week", http.MethodPost, "/api/v1/checkout", 7 * 24 * time.Hour},
		{"checkout index route", http.MethodPost, "/api/v1/checkout/", 7 * 24 * time.Hour},
		{"register held a day", http.MethodPost, "/api/v1/auth/register", 24 * time.Hour},
		{"login not guarded", http.MethodPost, "/api/v1/auth/login", 0},
		{"cart not guarded", http.MethodPost, "/api/v1/cart/items", 0},
		{"get checkout not guarded", http.MethodGet, "/api/v1/checkout", 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ttl, guarded := replayWindow(guardedRequest(tt.method, tt.path, ""))
			if guarded != (tt.want != 0) {
				t.Fatalf("guarded=%v, want %v", guarded, tt.want != 0)
			}
			if guarded && ttl != tt.want {
				t.Fatalf("ttl=%v, want %v", ttl, tt.want)
			}
		})
	}
}

func TestIdempotencyRequiresHeader(t *testing.T) {
	mw := Idempotency(newMapIdempotencyStore(), nil)
	handlerCalled := false
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		handlerCalled = true
		w.WriteHeader(http.StatusCreated)
	})

	resp := httptest.NewRecorder()
	mw(handler).ServeHTTP(resp, guardedRequest(http.MethodPost, "/api/v1/auth/register", `{"foo":"bar"}`))

	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", resp.Code)
	}
	if handlerCalled {
		t.Fatalf("handler should not run without idempotency key")
	}
}

func TestIdempotencyReplaysStoredResponse(t *testing.T) {
	mw := Idempotency(newMapIdempotencyStore(), nil)
	var calls int
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusAccepted)
		_, _ = w.Write([]byte(`{"ok":true}`))
	})

	send := func() *httptest.ResponseRecorder {
		req := guardedRequest(http.MethodPost, "/api/v1/checkout", `{"origin_url":"https://example.com"}`)
		req.Header.Set("Idempotency-Key", "abc")
		resp := httptest.NewRecorder()
		mw(handler).ServeHTTP(resp, req)
		return resp
	}

	first := send()
	if first.Code != http.StatusAccepted {
		t.Fatalf("expected first response 202 got %d", first.Code)
	}

	second := send()
	if second.Code != http.StatusAccepted {
		t.Fatalf("expected replayed status 202 got %d", second.Code)
	}
	if second.Header().Get("Content-Type") != "application/json" {
		t.Fatalf("expected content-type header preserved")
	}
	if strings.TrimSpace(second.Body.String()) != `{"ok":true}` {
		t.Fatalf("expected stored body got %s", second.Body.String())
	}
	if calls != 1 {
		t.Fatalf("handler executed %d times, expected 1", calls)
	}
}

func TestIdempotencyRejectsKeyReuseWithDifferentBody(t *testing.T) {
	mw := Idempotency(newMapIdempotencyStore(), nil)
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	first := guardedRequest(http.MethodPost, "/api/v1/auth/register", `{"foo":"bar"}`)
	first.Header.Set("Idempotency-Key", "xyz")
	mw(handler).ServeHTTP(httptest.NewRecorder(), first)

	second := guardedRequest(http.MethodPost, "/api/v1/auth/register", `{"foo":"diff"}`)
	second.Header.Set("Idempotency-Key", "xyz")
	resp := httptest.NewRecorder()
	mw(handler).ServeHTTP(resp, second)

	if resp.Code != http.StatusConflict {
		t.Fatalf("expected 409 got %d", resp.Code)
	}
	var payload struct {
		Error struct {
			Code string `json:"code"`
		} `json:"error"`
	}
	if err := json.Unmarshal(resp.Body.Bytes(), &payload); err != nil {
		t.Fatalf("parse error response: %v", err)
	}
	if payload.Error.Code != string(pkgerrors.CodeConflict) {
		t.Fatalf("expected error code %s got %s", pkgerrors.CodeConflict, payload.Error.Code)
	}
}

func TestIdempotencyScopesKeysPerViewer(t *testing.T) {
	mw := Idempotency(newMapIdempotencyStore(), nil)
	var calls int
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusCreated)
		_, _ = io.WriteString(w, `{"created":true}`)
	})

	sendAs := func(userID uuid.UUID) {
		req := guardedRequest(http.MethodPost, "/api/v1/checkout", `{"origin_url":"https://example.com"}`)
		req.Header.Set("Idempotency-Key", "shared-key")
		req = req.WithContext(WithViewer(req.Context(), types.Viewer{UserID: userID}))
		mw(handler).ServeHTTP(httptest.NewRecorder(), req)
	}

	sendAs(uuid.New())
	sendAs(uuid.New())

	if calls != 2 {
		t.Fatalf("same key for different viewers must not replay, handler ran %d times", calls)
	}
}
