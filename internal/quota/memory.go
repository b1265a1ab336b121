package quota

import (
	"context"
	"sync"
	"time"

	gocache "github.com/patrickmn/go-cache"
)

var _ Limiter = (*MemoryLimiter)(nil)

// MemoryLimiter keeps quotas in process memory. It suits the single-process CLI.
type MemoryLimiter struct {
	mu           sync.Mutex
	counters     *gocache.Cache
	limits       map[string]int
	defaultLimit int
	now          func() time.Time
}

// NewMemoryLimiter returns an in-memory limiter. A non-positive defaultLimit uses DefaultDailyLimit.
func NewMemoryLimiter(defaultLimit int) *MemoryLimiter {
	if defaultLimit <= 0 {
		defaultLimit = DefaultDailyLimit
	}
	return &MemoryLimiter{
		counters:     gocache.New(counterTTL, time.Hour),
		limits:       make(map[string]int),
		defaultLimit: defaultLimit,
		now:          time.Now,
	}
}

// WithClock replaces the time source, for tests.
func (l *MemoryLimiter) WithClock(now func() time.Time) *MemoryLimiter {
	l.now = now
	return l
}

func (l *MemoryLimiter) key(userID string, now time.Time) string {
	return userID + ":" + dayOf(now)
}

func (l *MemoryLimiter) limitOf(userID string) int {
	if n, ok := l.limits[userID]; ok && n > 0 {
		return n
	}
	return l.defaultLimit
}

func (l *MemoryLimiter) used(key string) int {
	if v, ok := l.counters.Get(key); ok {
		return v.(int)
	}
	return 0
}

func (l *MemoryLimiter) Consume(_ context.Context, userID string) (Status, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	key := l.key(userID, now)
	used, limit := l.used(key), l.limitOf(userID)
	if used >= limit {
		return newStatus(userID, used, limit, now), ErrQuotaExceeded
	}
	used++
	l.counters.Set(key, used, gocache.DefaultExpiration)
	return newStatus(userID, used, limit, now), nil
}

func (l *MemoryLimiter) Release(_ context.Context, userID string) (Status, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	key := l.key(userID, now)
	used := l.used(key)
	if used > 0 {
		used--
		l.counters.Set(key, used, gocache.DefaultExpiration)
	}
	return newStatus(userID, used, l.limitOf(userID), now), nil
}

func (l *MemoryLimiter) Status(_ context.Context, userID string) (Status, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	return newStatus(userID, l.used(l.key(userID, now)), l.limitOf(userID), now), nil
}

func (l *MemoryLimiter) SetDailyLimit(_ context.Context, userID string, n int) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if n <= 0 {
		delete(l.limits, userID)
		return nil
	}
	l.limits[userID] = n
	return nil
}

func (l *MemoryLimiter) Reset(_ context.Context, userID string) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.counters.Delete(l.key(userID, l.now()))
	return nil
}
