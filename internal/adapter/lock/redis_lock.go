package lock

import (
	"context"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"
)

// RedisLock implements ports.PaymentLock using Redis SET NX PX, giving mutual
// exclusion across instances. The TTL doubles as crash recovery: a holder
// that dies simply lets its key expire.
type RedisLock struct {
	client *goredis.Client
	prefix string
	ttl    time.Duration
}

// NewRedisLock creates a Redis-backed payment lock.
func NewRedisLock(client *goredis.Client, ttl time.Duration) *RedisLock {
	if ttl <= 0 {
		ttl = defaultLockTTL
	}
	return &RedisLock{
		client: client,
		prefix: "paymentlock:",
		ttl:    ttl,
	}
}

// TryAcquire atomically acquires the lock for a payment id.
func (l *RedisLock) TryAcquire(ctx context.Context, paymentID string) (bool, error) {
	ok, err := l.client.SetNX(ctx, l.prefix+paymentID, 1, l.ttl).Result()
	if err != nil {
		return false, fmt.Errorf("redis lock acquire: %w", err)
	}
	return ok, nil
}

// Release frees the lock for a payment id.
func (l *RedisLock) Release(ctx context.Context, paymentID string) error {
	if err := l.client.Del(ctx, l.prefix+paymentID).Err(); err != nil {
		return fmt.Errorf("redis lock release: %w", err)
	}
	return nil
}
