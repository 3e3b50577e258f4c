package queue

import (
	"context"
	"log/slog"
	"time"

	"manion_server/internal/common"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// releaseScript deletes the lock key only if this holder still owns it.
var releaseScript = redis.NewScript(`
    if redis.call("get", KEYS[1]) == ARGV[1] then
        return redis.call("del", KEYS[1])
    else
        return 0
    end
`)

// KeyLock serialises read-modify-write cycles on a single KV document
// (a post's reply array, a user's history) across concurrent requests.
// It is a Redis SETNX lock with a TTL so a crashed holder cannot wedge
// the key forever.
type KeyLock struct {
	rdb *redis.Client
	ttl time.Duration
}

func NewKeyLock(rdb *redis.Client, ttl time.Duration) *KeyLock {
	if ttl <= 0 {
		ttl = 10 * time.Second
	}
	return &KeyLock{rdb: rdb, ttl: ttl}
}

// Acquire blocks until the lock for key is held, the context is cancelled,
// or the TTL-sized acquisition window elapses. The returned function
// releases the lock; releasing a lock that already expired is a no-op.
func (l *KeyLock) Acquire(ctx context.Context, key string) (func(), error) {
	lockKey := "lock:" + key
	lockValue := uuid.NewString()

	deadline := time.Now().Add(l.ttl)
	for {
		ok, err := l.rdb.SetNX(ctx, lockKey, lockValue, l.ttl).Result()
		if err != nil {
			return nil, common.Errorf("key lock %s: %w", key, err)
		}
		if ok {
			break
		}
		if time.Now().After(deadline) {
			return nil, common.Errorf("key lock %s: %w", key, common.ErrLockFailed)
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(20 * time.Millisecond):
		}
	}

	release := func() {
		deleted, err := releaseScript.Run(context.Background(), l.rdb, []string{lockKey}, lockValue).Result()
		if err != nil {
			slog.Error("failed to release key lock", "key", key, "error", err)
			return
		}
		if n, _ := deleted.(int64); n != 1 {
			slog.Warn("key lock already expired or taken over", "key", key)
		}
	}
	return release, nil
}
