package cron

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memoryStore struct {
	values map[string]string
	ttls   map[string]time.Duration
}

func newMemoryStore() *memoryStore {
	return &memoryStore{values: map[string]string{}, ttls: map[string]time.Duration{}}
}

func (m *memoryStore) SetNX(_ context.Context, key string, value any, ttl time.Duration) (bool, error) {
	if _, ok := m.values[key]; ok {
		return false, nil
	}
	m.values[key] = value.(string)
	m.ttls[key] = ttl
	return true, nil
}

func (m *memoryStore) ReleaseLock(_ context.Context, key, owner string) (bool, error) {
	if m.values[key] != owner {
		return false, nil
	}
	delete(m.values, key)
	return true, nil
}

func (m *memoryStore) LockKey(name string) string { return "kl:lock:" + name }

func TestRedisLockerIsExclusivePerJob(t *testing.T) {
	store := newMemoryStore()
	locker, err := NewRedisLocker(store, 0)
	require.NoError(t, err)
	ctx := context.Background()

	first := locker.For("low-stock-digest")
	ok, err := first.Acquire(ctx)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, defaultLockTTL, store.ttls["kl:lock:cron:low-stock-digest"])

	second := locker.For("low-stock-digest")
	ok, err = second.Acquire(ctx)
	require.NoError(t, err)
	assert.False(t, ok)

	other := locker.For("outbox-retention")
	ok, err = other.Acquire(ctx)
	require.NoError(t, err)
	assert.True(t, ok)

	require.NoError(t, second.Release(ctx))
	assert.Contains(t, store.values, "kl:lock:cron:low-stock-digest")

	require.NoError(t, first.Release(ctx))
	assert.NotContains(t, store.values, "kl:lock:cron:low-stock-digest")
}

func TestRedisLockDoesNotReleaseForeignOwner(t *testing.T) {
	store := newMemoryStore()
	locker, err := NewRedisLocker(store, time.Minute)
	require.NoError(t, err)
	ctx := context.Background()

	lock := locker.For("digest")
	ok, err := lock.Acquire(ctx)
	require.NoError(t, err)
	require.True(t, ok)

	// the key expired and another worker took it
	store.values["kl:lock:cron:digest"] = "someone-else"
	require.NoError(t, lock.Release(ctx))
	assert.Equal(t, "someone-else", store.values["kl:lock:cron:digest"])
}

func TestNewRedisLockerRequiresClient(t *testing.T) {
	_, err := NewRedisLocker(nil, time.Minute)
	require.Error(t, err)
}
