package linkage

import (
	"context"
	"log"
	"time"

	"github.com/go-redsync/redsync/v4"
	"github.com/go-redsync/redsync/v4/redis/goredis/v9"
	"github.com/redis/go-redis/v9"
)

const (
	// lockExpiry must outlive one processor call (30s) plus the linkage write.
	lockExpiry  = 45 * time.Second
	lockTries   = 64
	lockBackoff = 500 * time.Millisecond
)

// NopLocker is used when only one instance talks to the processor; the
// in-process singleflight and the store's first-write-wins cover that case.
type NopLocker struct{}

func (NopLocker) Lock(ctx context.Context, key string) (func(), error) {
	return func() {}, nil
}

// RedisLocker holds a redsync mutex per key for the duration of a creation.
type RedisLocker struct {
	rs *redsync.Redsync
}

// NewRedisLocker builds a RedisLocker on top of an existing client.
func NewRedisLocker(rdb *redis.Client) *RedisLocker {
	return &RedisLocker{rs: redsync.New(goredis.NewPool(rdb))}
}

func (l *RedisLocker) Lock(ctx context.Context, key string) (func(), error) {
	mutex := l.rs.NewMutex(
		key,
		redsync.WithExpiry(lockExpiry),
		redsync.WithTries(lockTries),
		redsync.WithRetryDelay(lockBackoff),
	)
	if err := mutex.LockContext(ctx); err != nil {
		return nil, err
	}
	return func() {
		// The caller's context may already be done; release regardless.
		if _, err := mutex.UnlockContext(context.Background()); err != nil {
			log.Printf("[linkage] failed to release lock %s: %v", key, err)
		}
	}, nil
}
