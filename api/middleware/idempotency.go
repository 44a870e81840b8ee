package middleware

import (
	"bytes"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/redis/go-redis/v9"

	"github.com/caroduarte/lumina-backend/api/responses"
	pkgerrors "github.com/caroduarte/lumina-backend/pkg/errors"
	"github.com/caroduarte/lumina-backend/pkg/logger"
	pkgredis "github.com/caroduarte/lumina-backend/pkg/redis"
)

// guardedRoutes maps "METHOD path" to the replay window for that route.
// Checkout creation opens a payment session with the provider, so its
// records outlive the usual window.
var guardedRoutes = map[string]time.Duration{
	"POST /api/v1/auth/register": 24 * time.Hour,
	"POST /api/v1/checkout":      7 * 24 * time.Hour,
}

// storedResponse is the redis payload for a completed guarded request.
type storedResponse struct {
	Status      int    `json:"status"`
	Body        string `json:"body"`
	ContentType string `json:"content_type,omitempty"`
	RequestHash string `json:"request_hash"`
}

// Idempotency replays the stored response for requests that repeat an
// Idempotency-Key on a guarded route. Reusing a key with a different
// request body is rejected.
func Idempotency(store pkgredis.IdempotencyStore, logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ttl, guarded := replayWindow(r)
			if !guarded || store == nil {
				next.ServeHTTP(w, r)
				return
			}

			idempotencyKey := strings.TrimSpace(r.Header.Get("Idempotency-Key"))
			if idempotencyKey == "" {
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "Idempotency-Key header required"))
				return
			}

			body, err := io.ReadAll(r.Body)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "read request"))
				return
			}
			r.Body = io.NopCloser(bytes.NewReader(body))

			fingerprint := requestFingerprint(body)
			key := store.IdempotencyKey(requestScope(r), idempotencyKey)

			raw, getErr := store.Get(r.Context(), key)
			if getErr != nil && !errors.Is(getErr, redis.Nil) {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, getErr, "check idempotency"))
				return
			}
			if raw != "" {
				var stored storedResponse
				if err := json.Unmarshal([]byte(raw), &stored); err != nil {
					responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "decode idempotency record"))
					return
				}
				if stored.RequestHash != fingerprint {
					responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeConflict, "idempotency key reused with different request body"))
					return
				}
				replay(w, stored)
				return
			}

			buf := &bufferingWriter{ResponseWriter: w, status: http.StatusOK}
			next.ServeHTTP(buf, r)

			stored := storedResponse{
				Status:      buf.status,
				Body:        base64.StdEncoding.EncodeToString(buf.body.Bytes()),
				ContentType: buf.Header().Get("Content-Type"),
				RequestHash: fingerprint,
			}
			payload, marshalErr := json.Marshal(stored)
			if marshalErr != nil {
				if logg != nil {
					logg.Error(r.Context(), "marshal idempotency record", marshalErr)
				}
				return
			}
			if _, setErr := store.SetNX(r.Context(), key, string(payload), ttl); setErr != nil && logg != nil {
				logg.Error(r.Context(), "persist idempotency record", setErr)
			}
		})
	}
}

func replayWindow(r *http.Request) (time.Duration, bool) {
	pattern := r.URL.Path
	if rctx := chi.RouteContext(r.Context()); rctx != nil {
		if p := rctx.RoutePattern(); p != "" {
			pattern = p
		}
	}
	// chi reports nested index routes with a trailing slash.
	if len(pattern) > 1 {
		pattern = strings.TrimSuffix(pattern, "/")
	}
	ttl, ok := guardedRoutes[r.Method+" "+pattern]
	return ttl, ok
}

// requestScope ties a key to the viewer, method and path so the same
// key value cannot replay a response across users or routes.
func requestScope(r *http.Request) string {
	actor := ""
	if viewer := ViewerFromContext(r.Context()); viewer.Authenticated() {
		actor = viewer.UserID.String()
	}
	return actor + "|" + r.Method + "|" + r.URL.Path
}

func requestFingerprint(payload []byte) string {
	sum := sha256.Sum256(payload)
	return hex.EncodeToString(sum[:])
}

func replay(w http.ResponseWriter, stored storedResponse) {
	if stored.ContentType != "" {
		w.Header().Set("Content-Type", stored.ContentType)
	}
	w.WriteHeader(stored.Status)
	if decoded, err := base64.StdEncoding.DecodeString(stored.Body); err == nil {
		_, _ = w.Write(decoded)
	}
}

type bufferingWriter struct {
	http.ResponseWriter
	status int
	body   bytes.Buffer
}

func (b *bufferingWriter) WriteHeader(code int) {
	b.status = code
	b.ResponseWriter.WriteHeader(code)
}

func (b *bufferingWriter) Write(p []byte) (int, error) {
	b.body.Write(p)
	return b.ResponseWriter.Write(p)
}
