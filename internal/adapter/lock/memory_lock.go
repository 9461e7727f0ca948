package lock

import (
	"context"
	"sync"
	"time"
)

// MemoryLock implements ports.PaymentLock with an in-process map. Suitable for
// a single instance; multi-instance deployments use the Redis-backed lock.
//
// Held entries carry a TTL so a goroutine that dies mid-processing cannot
// starve its payment id forever; a background sweep evicts expired entries.
type MemoryLock struct {
	mu      sync.Mutex
	held    map[string]time.Time // key -> expiry
	ttl     time.Duration
	stop    chan struct{}
	stopped sync.Once
}

const (
	defaultLockTTL       = 30 * time.Second
	defaultSweepInterval = 60 * time.Second
)

// NewMemoryLock creates an in-memory payment lock and starts its expiry sweep.
func NewMemoryLock(ttl, sweepInterval time.Duration) *MemoryLock {
	if ttl <= 0 {
		ttl = defaultLockTTL
	}
	if sweepInterval <= 0 {
		sweepInterval = defaultSweepInterval
	}
	l := &MemoryLock{
		held: make(map[string]time.Time),
		ttl:  ttl,
		stop: make(chan struct{}),
	}
	go l.sweep(sweepInterval)
	return l
}

// TryAcquire atomically acquires the lock for a payment id. A held but
// expired entry is treated as free.
func (l *MemoryLock) TryAcquire(_ context.Context, paymentID string) (bool, error) {
	now := time.Now()
	l.mu.Lock()
	defer l.mu.Unlock()

	if expiry, ok := l.held[paymentID]; ok && now.Before(expiry) {
		return false, nil
	}
	l.held[paymentID] = now.Add(l.ttl)
	return true, nil
}

// Release frees the lock for a payment id. Releasing an unheld lock is a no-op.
func (l *MemoryLock) Release(_ context.Context, paymentID string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.held, paymentID)
	return nil
}

// Close stops the background sweep.
func (l *MemoryLock) Close() {
	l.stopped.Do(func() { close(l.stop) })
}

func (l *MemoryLock) sweep(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-l.stop:
			return
		case <-ticker.C:
			now := time.Now()
			l.mu.Lock()
			for key, expiry := range l.held {
				if now.After(expiry) {
					delete(l.held, key)
				}
			}
			l.mu.Unlock()
		}
	}
}
