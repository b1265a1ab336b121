package quota

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// consumeScript checks and increments the day counter in one step.
// KEYS[1] day counter, KEYS[2] user limit override.
// ARGV[1] default limit, ARGV[2] counter TTL in seconds.
// Returns {allowed, used, limit}.
var consumeScript = redis.NewScript(`
local limit = tonumber(redis.call('GET', KEYS[2]) or ARGV[1])
if limit == nil or limit <= 0 then
	limit = tonumber(ARGV[1])
end
local used = tonumber(redis.call('GET', KEYS[1]) or '0')
if used >= limit then
	return {0, used, limit}
end
used = redis.call('INCR', KEYS[1])
if used == 1 then
	redis.call('EXPIRE', KEYS[1], ARGV[2])
end
return {1, used, limit}
`)

// releaseScript decrements the day counter unless it is already at zero.
// KEYS[1] day counter. Returns the counter after the call.
var releaseScript = redis.NewScript(`
local used = tonumber(redis.call('GET', KEYS[1]) or '0')
if used <= 0 then
	return 0
end
return redis.call('DECR', KEYS[1])
`)

var _ Limiter = (*RedisLimiter)(nil)

// RedisLimiter stores quota counters in Redis so every API and worker replica shares them.
type RedisLimiter struct {
	client       *redis.Client
	defaultLimit int
	now          func() time.Time
	logger       *zap.Logger
}

// NewRedisLimiter returns a Redis-backed limiter. A non-positive defaultLimit uses DefaultDailyLimit.
func NewRedisLimiter(client *redis.Client, defaultLimit int, logger *zap.Logger) *RedisLimiter {
	if defaultLimit <= 0 {
		defaultLimit = DefaultDailyLimit
	}
	return &RedisLimiter{
		client:       client,
		defaultLimit: defaultLimit,
		now:          time.Now,
		logger:       logger.Named("RedisQuota"),
	}
}

// WithClock replaces the time source, for tests.
func (l *RedisLimiter) WithClock(now func() time.Time) *RedisLimiter {
	l.now = now
	return l
}

func counterKey(userID string, now time.Time) string {
	return fmt.Sprintf("gameforge:quota:%s:%s", userID, dayOf(now))
}

func limitKey(userID string) string {
	return fmt.Sprintf("gameforge:quota_limit:%s", userID)
}

func (l *RedisLimiter) Consume(ctx context.Context, userID string) (Status, error) {
	now := l.now()
	res, err := consumeScript.Run(ctx, l.client,
		[]string{counterKey(userID, now), limitKey(userID)},
		l.defaultLimit, int(counterTTL.Seconds()),
	).Int64Slice()
	if err != nil {
		l.logger.Error("Failed to consume quota", zap.String("userID", userID), zap.Error(err))
		return Status{}, fmt.Errorf("failed to consume quota: %w", err)
	}
	if len(res) != 3 {
		return Status{}, fmt.Errorf("failed to consume quota: unexpected script result %v", res)
	}

	status := newStatus(userID, int(res[1]), int(res[2]), now)
	if res[0] == 0 {
		l.logger.Info("Quota exceeded", zap.String("userID", userID), zap.Int("limit", status.Limit))
		return status, ErrQuotaExceeded
	}
	return status, nil
}

func (l *RedisLimiter) Release(ctx context.Context, userID string) (Status, error) {
	now := l.now()
	used, err := releaseScript.Run(ctx, l.client, []string{counterKey(userID, now)}).Int()
	if err != nil {
		l.logger.Error("Failed to release quota", zap.String("userID", userID), zap.Error(err))
		return Status{}, fmt.Errorf("failed to release quota: %w", err)
	}
	limit, err := l.getInt(ctx, limitKey(userID))
	if err != nil {
		return Status{}, fmt.Errorf("failed to read quota limit: %w", err)
	}
	if limit <= 0 {
		limit = l.defaultLimit
	}
	return newStatus(userID, used, limit, now), nil
}

func (l *RedisLimiter) Status(ctx context.Context, userID string) (Status, error) {
	now := l.now()
	used, err := l.getInt(ctx, counterKey(userID, now))
	if err != nil {
		return Status{}, fmt.Errorf("failed to read quota usage: %w", err)
	}
	limit, err := l.getInt(ctx, limitKey(userID))
	if err != nil {
		return Status{}, fmt.Errorf("failed to read quota limit: %w", err)
	}
	if limit <= 0 {
		limit = l.defaultLimit
	}
	return newStatus(userID, used, limit, now), nil
}

func (l *RedisLimiter) SetDailyLimit(ctx context.Context, userID string, n int) error {
	var err error
	if n <= 0 {
		err = l.client.Del(ctx, limitKey(userID)).Err()
	} else {
		err = l.client.Set(ctx, limitKey(userID), n, 0).Err()
	}
	if err != nil {
		return fmt.Errorf("failed to set daily limit: %w", err)
	}
	return nil
}

func (l *RedisLimiter) Reset(ctx context.Context, userID string) error {
	if err := l.client.Del(ctx, counterKey(userID, l.now())).Err(); err != nil {
		return fmt.Errorf("failed to reset quota: %w", err)
	}
	return nil
}

// getInt returns 0 for a missing key.
func (l *RedisLimiter) getInt(ctx context.Context, key string) (int, error) {
	val, err := l.client.Get(ctx, key).Result()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	return strconv.Atoi(val)
}
