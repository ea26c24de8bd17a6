package ratelimit

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

var (
	ErrInvalidWindow    = errors.New("rate limit window must be positive")
	ErrRedisUnavailable = errors.New("rate limit redis unavailable")
)

// Limiter keeps fixed-window attempt counters in Redis. Windows are aligned to
// wall-clock boundaries, so every caller sharing a key also shares its reset
// instant.
type Limiter struct {
	redis  redis.UniversalClient
	prefix string
	now    func() time.Time
}

// Option configures a Limiter.
type Option func(*Limiter)

// WithClock overrides the clock used to compute window boundaries.
func WithClock(now func() time.Time) Option {
	return func(l *Limiter) {
		l.now = now
	}
}

// New creates a Limiter whose keys are namespaced with prefix.
func New(client redis.UniversalClient, prefix string, opts ...Option) *Limiter {
	l := &Limiter{
		redis:  client,
		prefix: prefix,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(l)
	}

	return l
}

// Increment bumps the counter for key and returns the new count.
//
// The first increment inside a window creates the counter with an expiry at
// the next multiple of window; later increments leave that expiry untouched.
func (l *Limiter) Increment(ctx context.Context, key string, window time.Duration) (int64, error) {
	if window <= 0 {
		return 0, ErrInvalidWindow
	}

	now := l.now()
	ttl := WindowEnd(now, window).Sub(now)
	fullKey := l.key(key)

	var incr *redis.IntCmd
	_, err := l.redis.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		// SET NX only succeeds on the first write, so the expiry is never extended.
		pipe.SetNX(ctx, fullKey, 0, ttl)
		incr = pipe.Incr(ctx, fullKey)
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}

	return incr.Val(), nil
}

// Count returns the current counter value for key, or zero when absent.
func (l *Limiter) Count(ctx context.Context, key string) (int64, error) {
	count, err := l.redis.Get(ctx, l.key(key)).Int64()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return 0, nil
		}
		return 0, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}

	return count, nil
}

// Reset deletes the counter for key.
func (l *Limiter) Reset(ctx context.Context, key string) error {
	if err := l.redis.Del(ctx, l.key(key)).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}

	return nil
}

func (l *Limiter) key(key string) string {
	if l.prefix == "" {
		return key
	}
	return l.prefix + ":" + key
}

// WindowEnd returns the first wall-clock multiple of window strictly after now.
func WindowEnd(now time.Time, window time.Duration) time.Time {
	return now.Truncate(window).Add(window)
}
