package idempotency

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memoryStore struct {
	values map[string]any
	ttls   map[string]time.Duration
	err    error
}

func newMemoryStore() *memoryStore {
	return &memoryStore{values: map[string]any{}, ttls: map[string]time.Duration{}}
}

func (m *memoryStore) SetNX(_ context.Context, key string, value any, ttl time.Duration) (bool, error) {
	if m.err != nil {
		return false, m.err
	}
	if _, ok := m.values[key]; ok {
		return false, nil
	}
	m.values[key] = value
	m.ttls[key] = ttl
	return true, nil
}

func (m *memoryStore) Del(_ context.Context, keys ...string) error {
	if m.err != nil {
		return m.err
	}
	for _, k := range keys {
		delete(m.values, k)
	}
	return nil
}

func (m *memoryStore) IdempotencyKey(scope, id string) string {
	return "tc:idempotency:" + scope + ":" + id
}

func TestGuardClaimOnce(t *testing.T) {
	store := newMemoryStore()
	guard, err := NewGuard(store, 24*time.Hour)
	require.NoError(t, err)
	guard.now = func() time.Time { return time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC) }

	eventID := uuid.New()
	key := "tc:idempotency:evt:outbox-publisher:" + eventID.String()

	claimed, err := guard.Claim(context.Background(), "outbox-publisher", eventID)
	require.NoError(t, err)
	assert.True(t, claimed)
	assert.Equal(t, "2026-03-01T09:00:00Z", store.values[key])
	assert.Equal(t, 24*time.Hour, store.ttls[key])

	claimed, err = guard.Claim(context.Background(), "outbox-publisher", eventID)
	require.NoError(t, err)
	assert.False(t, claimed, "second claim must lose")

	claimed, err = guard.Claim(context.Background(), "audit-consumer", eventID)
	require.NoError(t, err)
	assert.True(t, claimed, "claims are per consumer")
}

func TestGuardReleaseAllowsRetry(t *testing.T) {
	guard, err := NewGuard(newMemoryStore(), time.Hour)
	require.NoError(t, err)
	eventID := uuid.New()

	claimed, err := guard.Claim(context.Background(), "outbox-publisher", eventID)
	require.NoError(t, err)
	require.True(t, claimed)

	require.NoError(t, guard.Release(context.Background(), "outbox-publisher", eventID))

	claimed, err = guard.Claim(context.Background(), "outbox-publisher", eventID)
	require.NoError(t, err)
	assert.True(t, claimed)
}

func TestGuardErrors(t *testing.T) {
	_, err := NewGuard(nil, time.Hour)
	assert.Error(t, err)
	_, err = NewGuard(newMemoryStore(), -time.Second)
	assert.Error(t, err)

	store := newMemoryStore()
	guard, err := NewGuard(store, time.Hour)
	require.NoError(t, err)

	_, err = guard.Claim(context.Background(), "", uuid.New())
	assert.Error(t, err)
	_, err = guard.Claim(context.Background(), "outbox-publisher", uuid.Nil)
	assert.Error(t, err)

	store.err = errors.New("redis down")
	_, err = guard.Claim(context.Background(), "outbox-publisher", uuid.New())
	assert.ErrorIs(t, err, store.err)
	assert.ErrorIs(t, guard.Release(context.Background(), "outbox-publisher", uuid.New()), store.err)
}
