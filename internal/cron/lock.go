package cron

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

const defaultLockTTL = 30 * time.Minute

// Lock coordinates exclusive runs of one job across worker replicas.
type Lock interface {
	Acquire(ctx context.Context) (bool, error)
	Release(ctx context.Context) error
}

// Locker hands out a lock per job name.
type Locker interface {
	For(job string) Lock
}

type lockStore interface {
	SetNX(ctx context.Context, key string, value any, ttl time.Duration) (bool, error)
	ReleaseLock(ctx context.Context, key, owner string) (bool, error)
	LockKey(name string) string
}

// RedisLocker hands out owner-tokened locks under the client's lock
// namespace. ttl bounds how long a crashed worker can keep a job blocked.
type RedisLocker struct {
	store lockStore
	ttl   time.Duration
}

func NewRedisLocker(store lockStore, ttl time.Duration) (*RedisLocker, error) {
	if store == nil {
		return nil, errors.New("redis client required for lock")
	}
	if ttl <= 0 {
		ttl = defaultLockTTL
	}
	return &RedisLocker{store: store, ttl: ttl}, nil
}

func (l *RedisLocker) For(job string) Lock {
	return &jobLock{locker: l, key: l.store.LockKey("cron:" + job)}
}

type jobLock struct {
	locker *RedisLocker
	key    string
	token  string
}

func (l *jobLock) Acquire(ctx context.Context) (bool, error) {
	token := uuid.NewString()
	ok, err := l.locker.store.SetNX(ctx, l.key, token, l.locker.ttl)
	if err != nil {
		return false, fmt.Errorf("acquire %s: %w", l.key, err)
	}
	if ok {
		l.token = token
	}
	return ok, nil
}

// Release is a no-op unless this holder acquired the lock, and never frees a
// key that expired and was taken by another worker.
func (l *jobLock) Release(ctx context.Context) error {
	if l.token == "" {
		return nil
	}
	token := l.token
	l.token = ""
	if _, err := l.locker.store.ReleaseLock(ctx, l.key, token); err != nil {
		return fmt.Errorf("release %s: %w", l.key, err)
	}
	return nil
}
