package session

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	redislib "github.com/redis/go-redis/v9"

	"github.com/caroduarte/lumina-backend/pkg/config"
	"github.com/caroduarte/lumina-backend/pkg/enums"
	redisclient "github.com/caroduarte/lumina-backend/pkg/redis"
)

const sessionTokenBytes = 32

var ErrSessionNotFound = errors.New("session not found")

type sessionStore interface {
	Set(ctx context.Context, key string, value any, ttl time.Duration) error
	Get(ctx context.Context, key string) (string, error)
	Del(ctx context.Context, keys ...string) error
}

type sessionKeyer interface {
	SessionKey(token string) string
}

// Data is the payload persisted for each hosted-auth session token.
type Data struct {
	UserID uuid.UUID      `json:"user_id"`
	Email  string         `json:"email"`
	Role   enums.UserRole `json:"role"`
}

// Manager handles opaque session token creation, lookup, and revocation.
type Manager struct {
	store sessionStore
	keyer sessionKeyer
	ttl   time.Duration
}

// Resolver exposes the read-only surface needed by middleware.
type Resolver interface {
	Resolve(ctx context.Context, token string) (*Data, error)
}

// NewManager constructs a session manager backed by Redis.
func NewManager(client *redisclient.Client, cfg config.JWTConfig) (*Manager, error) {
	if client == nil {
		return nil, fmt.Errorf("redis client is required")
	}
	ttl := cfg.SessionTTL()
	if ttl <= 0 {
		return nil, fmt.Errorf("session ttl must be positive")
	}

	return &Manager{
		store: client,
		keyer: client,
		ttl:   ttl,
	}, nil
}

// Create stores a new session under a freshly generated opaque token.
func (m *Manager) Create(ctx context.Context, data Data) (string, error) {
	token, err := generateSessionToken()
	if err != nil {
		return "", err
	}
	if err := m.Store(ctx, token, data); err != nil {
		return "", err
	}
	return token, nil
}

// Store persists a session under a caller-provided token, as issued by the
// hosted auth broker.
func (m *Manager) Store(ctx context.Context, token string, data Data) error {
	if strings.TrimSpace(token) == "" {
		return fmt.Errorf("session token is required")
	}
	if data.UserID == uuid.Nil {
		return fmt.Errorf("user id is required")
	}
	if !data.Role.IsValid() {
		return fmt.Errorf("invalid user role %q", data.Role)
	}

	payload, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("encoding session payload: %w", err)
	}
	return m.store.Set(ctx, m.keyer.SessionKey(token), string(payload), m.ttl)
}

// Resolve returns the session payload for the given token.
func (m *Manager) Resolve(ctx context.Context, token string) (*Data, error) {
	if strings.TrimSpace(token) == "" {
		return nil, ErrSessionNotFound
	}
	raw, err := m.store.Get(ctx, m.keyer.SessionKey(token))
	if err != nil {
		if errors.Is(err, redislib.Nil) {
			return nil, ErrSessionNotFound
		}
		return nil, err
	}

	var data Data
	if err := json.Unmarshal([]byte(raw), &data); err != nil {
		return nil, fmt.Errorf("decoding session payload: %w", err)
	}
	return &data, nil
}

// Revoke deletes the session tied to the token.
func (m *Manager) Revoke(ctx context.Context, token string) error {
	if strings.TrimSpace(token) == "" {
		return fmt.Errorf("session token is required")
	}
	return m.store.Del(ctx, m.keyer.SessionKey(token))
}

func generateSessionToken() (string, error) {
	bytes := make([]byte, sessionTokenBytes)
	if _, err := rand.Read(bytes); err != nil {
		return "", fmt.Errorf("generating session token: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(bytes), nil
}
