package stripewebhook

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/caroduarte/lumina-backend/pkg/redis"
)

// IdempotencyGuard keeps provider event IDs in Redis so redelivered
// webhooks are processed once. The scope separates guards that share a
// store, and the TTL bounds how long a delivery is remembered.
type IdempotencyGuard struct {
	store redis.IdempotencyStore
	ttl   time.Duration
	scope string
}

func NewIdempotencyGuard(store redis.IdempotencyStore, ttl time.Duration, scope string) (*IdempotencyGuard, error) {
	switch {
	case store == nil:
		return nil, errors.New("idempotency store is required")
	case scope == "":
		return nil, errors.New("scope is required")
	case ttl < 0:
		return nil, errors.New("ttl must be non-negative")
	}
	return &IdempotencyGuard{store: store, ttl: ttl, scope: scope}, nil
}

// CheckAndMark reports whether the event was already seen and marks it
// seen otherwise. The check and the mark are a single SETNX, so two
// concurrent deliveries of the same event cannot both pass.
func (g *IdempotencyGuard) CheckAndMark(ctx context.Context, eventID string) (bool, error) {
	key, err := g.markerKey(eventID)
	if err != nil {
		return false, err
	}
	set, err := g.store.SetNX(ctx, key, "1", g.ttl)
	if err != nil {
		return false, fmt.Errorf("set idempotency key: %w", err)
	}
	return !set, nil
}

// Delete unmarks an event so a failed handling attempt can be retried.
func (g *IdempotencyGuard) Delete(ctx context.Context, eventID string) error {
	key, err := g.markerKey(eventID)
	if err != nil {
		return err
	}
	return g.store.Del(ctx, key)
}

func (g *IdempotencyGuard) markerKey(eventID string) (string, error) {
	if eventID == "" {
		return "", errors.New("event id is required")
	}
	return g.store.IdempotencyKey(g.scope, eventID), nil
}
