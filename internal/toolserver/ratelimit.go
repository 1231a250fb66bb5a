package toolserver

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// Limiter decides whether one more request under key fits the budget.
type Limiter interface {
	Allow(ctx context.Context, key string) (bool, error)
}

// RedisLimiter is a sliding-window limiter backed by a sorted set per key.
type RedisLimiter struct {
	rdb    redis.Cmdable
	limit  int
	window time.Duration
	prefix string
	now    func() time.Time
}

func NewRedisLimiter(rdb redis.Cmdable, limit int, window time.Duration) (*RedisLimiter, error) {
	if rdb == nil {
		return nil, fmt.Errorf("toolserver: redis client must not be nil")
	}
	if limit <= 0 || window <= 0 {
		return nil, fmt.Errorf("toolserver: rate limit must be positive, got %d per %s", limit, window)
	}
	return &RedisLimiter{rdb: rdb, limit: limit, window: window, prefix: "ratelimit", now: time.Now}, nil
}

func (l *RedisLimiter) Allow(ctx context.Context, key string) (bool, error) {
	now := l.now().UnixNano()
	windowStart := now - l.window.Nanoseconds()
	key = l.prefix + ":" + key

	pipe := l.rdb.TxPipeline()
	pipe.ZRemRangeByScore(ctx, key, "0", strconv.FormatInt(windowStart, 10))
	pipe.ZAdd(ctx, key, redis.Z{Score: float64(now), Member: uuid.NewString()})
	count := pipe.ZCard(ctx, key)
	pipe.Expire(ctx, key, l.window*2)

	if _, err := pipe.Exec(ctx); err != nil {
		return false, fmt.Errorf("toolserver: rate limit %s: %w", key, err)
	}
	return count.Val() <= int64(l.limit), nil
}
