package toolserver

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
)

func newMiniRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return mr, rdb
}

func TestRedisLimiter_SlidingWindow(t *testing.T) {
	_, rdb := newMiniRedis(t)
	l, err := NewRedisLimiter(rdb, 2, time.Minute)
	require.NoError(t, err)

	now := time.Date(2026, 2, 27, 12, 0, 0, 0, time.UTC)
	l.now = func() time.Time { return now }
	ctx := context.Background()

	for i, want := range []bool{true, true, false} {
		ok, err := l.Allow(ctx, "127.0.0.1:poet")
		require.NoError(t, err)
		require.Equal(t, want, ok, "call %d", i)
	}

	ok, err := l.Allow(ctx, "127.0.0.1:roll_dice")
	require.NoError(t, err)
	require.True(t, ok, "keys are independent")

	now = now.Add(2 * time.Minute)
	ok, err = l.Allow(ctx, "127.0.0.1:poet")
	require.NoError(t, err)
	require.True(t, ok, "window slid past earlier calls")
}

func TestRedisLimiter_SetsExpiry(t *testing.T) {
	mr, rdb := newMiniRedis(t)
	l, err := NewRedisLimiter(rdb, 5, time.Second)
	require.NoError(t, err)

	_, err = l.Allow(context.Background(), "k")
	require.NoError(t, err)
	require.Equal(t, 2*time.Second, mr.TTL("ratelimit:k"))
}

func TestRedisLimiter_Unavailable(t *testing.T) {
	mr, rdb := newMiniRedis(t)
	l, err := NewRedisLimiter(rdb, 5, time.Second)
	require.NoError(t, err)
	mr.Close()

	_, err = l.Allow(context.Background(), "k")
	require.Error(t, err)
}

func TestNewRedisLimiter_Validates(t *testing.T) {
	_, err := NewRedisLimiter(nil, 1, time.Second)
	require.Error(t, err)
	_, rdb := newMiniRedis(t)
	_, err = NewRedisLimiter(rdb, 0, time.Second)
	require.Error(t, err)
}
