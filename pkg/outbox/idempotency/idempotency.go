// Package idempotency lets a consumer claim an outbox event id in redis so a
// redelivered row is not handled twice.
package idempotency

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// KeyStore is the slice of pkg/redis.Client the guard needs.
type KeyStore interface {
	SetNX(ctx context.Context, key string, value any, ttl time.Duration) (bool, error)
	Del(ctx context.Context, keys ...string) error
	IdempotencyKey(scope, id string) string
}

// Guard records claimed event ids under
// tc:idempotency:evt:<consumer>:<event_id> for ttl.
type Guard struct {
	store KeyStore
	ttl   time.Duration
	now   func() time.Time
}

// NewGuard returns a Guard. A zero ttl keeps claims forever.
func NewGuard(store KeyStore, ttl time.Duration) (*Guard, error) {
	if store == nil {
		return nil, errors.New("idempotency store is required")
	}
	if ttl < 0 {
		return nil, fmt.Errorf("ttl must be non-negative, got %s", ttl)
	}
	return &Guard{store: store, ttl: ttl, now: time.Now}, nil
}

// Claim reports whether this call took ownership of eventID for consumer.
// false means another delivery already claimed it.
func (g *Guard) Claim(ctx context.Context, consumer string, eventID uuid.UUID) (bool, error) {
	key, err := g.key(consumer, eventID)
	if err != nil {
		return false, err
	}
	claimed, err := g.store.SetNX(ctx, key, g.now().UTC().Format(time.RFC3339Nano), g.ttl)
	if err != nil {
		return false, fmt.Errorf("claim %s: %w", key, err)
	}
	return claimed, nil
}

// Release drops a claim so the event can be retried.
func (g *Guard) Release(ctx context.Context, consumer string, eventID uuid.UUID) error {
	key, err := g.key(consumer, eventID)
	if err != nil {
		return err
	}
	if err := g.store.Del(ctx, key); err != nil {
		return fmt.Errorf("release %s: %w", key, err)
	}
	return nil
}

func (g *Guard) key(consumer string, eventID uuid.UUID) (string, error) {
	switch {
	case consumer == "":
		return "", errors.New("consumer name is required")
	case eventID == uuid.Nil:
		return "", errors.New("event id is required")
	}
	return g.store.IdempotencyKey("evt:"+consumer, eventID.String()), nil
}
