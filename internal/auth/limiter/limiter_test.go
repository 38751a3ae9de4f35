package limiter

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
)

func newTestRedis(t *testing.T, cfg Config) (*Redis, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewRedis(client, "test:", cfg), mr
}

func TestRedisLocksAfterMaxAttempts(t *testing.T) {
	ctx := context.Background()
	l, mr := newTestRedis(t, Config{MaxAttempts: 3, Window: time.Minute})
	key := MFAKey("user-1")

	require.NoError(t, l.Check(ctx, key))
	require.NoError(t, l.RecordFailure(ctx, key))
	require.NoError(t, l.RecordFailure(ctx, key))
	require.NoError(t, l.Check(ctx, key))
	require.ErrorIs(t, l.RecordFailure(ctx, key), ErrLimited)
	require.ErrorIs(t, l.Check(ctx, key), ErrLimited)

	require.True(t, mr.Exists("test:mfa:user-1"))
	require.Equal(t, time.Minute, mr.TTL("test:mfa:user-1"))

	mr.FastForward(time.Minute + time.Second)
	require.NoError(t, l.Check(ctx, key))
}

func TestRedisWindowNotExtended(t *testing.T) {
	ctx := context.Background()
	l, mr := newTestRedis(t, Config{MaxAttempts: 5, Window: time.Minute})
	key := ResetKey("a@example.com")

	require.NoError(t, l.RecordFailure(ctx, key))
	mr.FastForward(30 * time.Second)
	require.NoError(t, l.RecordFailure(ctx, key))
	require.Equal(t, 30*time.Second, mr.TTL("test:"+key))
}

func TestRedisCounterWithoutExpiryHeals(t *testing.T) {
	ctx := context.Background()
	l, mr := newTestRedis(t, Config{MaxAttempts: 10, Window: time.Minute})
	key := MFAKey("user-3")

	require.NoError(t, mr.Set("test:"+key, "4"))
	require.Zero(t, mr.TTL("test:"+key))

	require.NoError(t, l.RecordFailure(ctx, key))
	got, err := mr.Get("test:" + key)
	require.NoError(t, err)
	require.Equal(t, "5", got)
	require.Equal(t, time.Minute, mr.TTL("test:"+key))

	mr.FastForward(time.Minute + time.Second)
	require.False(t, mr.Exists("test:"+key))
}

func TestRedisReset(t *testing.T) {
	ctx := context.Background()
	l, _ := newTestRedis(t, Config{MaxAttempts: 1})
	key := MFAKey("user-2")

	require.ErrorIs(t, l.RecordFailure(ctx, key), ErrLimited)
	require.ErrorIs(t, l.Check(ctx, key), ErrLimited)
	require.NoError(t, l.Reset(ctx, key))
	require.NoError(t, l.Check(ctx, key))
}

func TestRedisUnavailable(t *testing.T) {
	ctx := context.Background()
	l, mr := newTestRedis(t, Config{})
	mr.Close()

	require.ErrorIs(t, l.Check(ctx, "k"), ErrUnavailable)
	require.ErrorIs(t, l.RecordFailure(ctx, "k"), ErrUnavailable)
	require.ErrorIs(t, l.Reset(ctx, "k"), ErrUnavailable)
	require.ErrorIs(t, l.Ping(ctx), ErrUnavailable)
}

func TestNewRedisFromURL(t *testing.T) {
	mr := miniredis.RunT(t)
	l, err := NewRedisFromURL(context.Background(), "redis://"+mr.Addr(), "auth:", Config{})
	require.NoError(t, err)
	t.Cleanup(func() { _ = l.Close() })
	require.Equal(t, DefaultMaxAttempts, l.cfg.MaxAttempts)
	require.Equal(t, DefaultWindow, l.cfg.Window)

	_, err = NewRedisFromURL(context.Background(), "not a url", "", Config{})
	require.Error(t, err)
}

func TestMemoryLimiter(t *testing.T) {
	ctx := context.Background()
	now := time.Unix(1_700_000_000, 0)
	l := NewMemory(Config{MaxAttempts: 2, Window: time.Minute})
	l.now = func() time.Time { return now }

	key := MFAKey("u")
	require.NoError(t, l.RecordFailure(ctx, key))
	require.NoError(t, l.Check(ctx, key))
	require.ErrorIs(t, l.RecordFailure(ctx, key), ErrLimited)
	require.ErrorIs(t, l.Check(ctx, key), ErrLimited)

	now = now.Add(time.Minute)
	require.NoError(t, l.Check(ctx, key))

	require.NoError(t, l.RecordFailure(ctx, "other"))
	require.NoError(t, l.Reset(ctx, "other"))
	require.NoError(t, l.Check(ctx, "other"))
}

func TestMemoryPrune(t *testing.T) {
	ctx := context.Background()
	now := time.Unix(1_700_000_000, 0)
	l := NewMemory(Config{Window: time.Minute})
	l.now = func() time.Time { return now }

	require.NoError(t, l.RecordFailure(ctx, "a"))
	require.NoError(t, l.RecordFailure(ctx, "b"))
	require.Equal(t, 0, l.Prune())

	now = now.Add(2 * time.Minute)
	require.Equal(t, 2, l.Prune())
	require.Empty(t, l.entries)
}
