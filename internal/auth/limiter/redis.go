package limiter

import (
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// Redis shares attempt counters across every instance of the service.
type Redis struct {
	client redis.UniversalClient
	prefix string
	cfg    Config
}

// NewRedis creates a limiter storing counters under prefix.
func NewRedis(client redis.UniversalClient, prefix string, cfg Config) *Redis {
	return &Redis{client: client, prefix: prefix, cfg: cfg.withDefaults()}
}

// NewRedisFromURL parses a redis:// URL and checks the server answers.
func NewRedisFromURL(ctx context.Context, url, prefix string, cfg Config) (*Redis, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("limiter: parse redis url: %w", err)
	}
	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return NewRedis(client, prefix, cfg), nil
}

func (l *Redis) key(k string) string { return l.prefix + k }

func (l *Redis) Check(ctx context.Context, key string) error {
	count, err := l.client.Get(ctx, l.key(key)).Int64()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil
		}
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	if count >= int64(l.cfg.MaxAttempts) {
		return ErrLimited
	}
	return nil
}

func (l *Redis) RecordFailure(ctx context.Context, key string) error {
	k := l.key(key)

	// SET NX starts the window at the first failure; later ones only count
	var (
		incr *redis.IntCmd
		ttl  *redis.DurationCmd
	)
	_, err := l.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.SetNX(ctx, k, 0, l.cfg.Window)
		incr = pipe.Incr(ctx, k)
		ttl = pipe.TTL(ctx, k)
		return nil
	})
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	// A counter with no expiry would never unlock
	if ttl.Val() < 0 {
		if err := l.client.Expire(ctx, k, l.cfg.Window).Err(); err != nil {
			return fmt.Errorf("%w: %v", ErrUnavailable, err)
		}
	}

	if incr.Val() >= int64(l.cfg.MaxAttempts) {
		return ErrLimited
	}
	return nil
}

func (l *Redis) Reset(ctx context.Context, key string) error {
	if err := l.client.Del(ctx, l.key(key)).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return nil
}

// Ping reports whether the backing redis is reachable.
func (l *Redis) Ping(ctx context.Context) error {
	if err := l.client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return nil
}

// Close releases the redis connection pool.
func (l *Redis) Close() error { return l.client.Close() }
