package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// ErrLockHeld is returned by Locker.Acquire when another holder owns the key
var ErrLockHeld = errors.New("lock is held by another process")

// ReleaseFunc gives back a lock obtained from a Locker
type ReleaseFunc func(ctx context.Context) error

// Locker hands out short-lived exclusive locks keyed by name
type Locker interface {
	Acquire(ctx context.Context, key string, ttl time.Duration) (ReleaseFunc, error)
}

// NoopLocker always grants the lock. Used when no Redis is configured and
// only one process runs resyncs.
type NoopLocker struct{}

// Acquire always succeeds
func (NoopLocker) Acquire(ctx context.Context, key string, ttl time.Duration) (ReleaseFunc, error) {
	return func(context.Context) error { return nil }, nil
}

// releaseScript deletes the key only if it still holds our token, so an
// expired lock taken over by someone else is left alone.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// RedisLocker implements Locker with SET NX and a token-checked release
type RedisLocker struct {
	client redis.UniversalClient
}

// NewRedisLocker wraps an existing redis client
func NewRedisLocker(client redis.UniversalClient) *RedisLocker {
	return &RedisLocker{client: client}
}

// NewRedisLockerFromURL connects to the redis instance at url
func NewRedisLockerFromURL(url string) (*RedisLocker, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("invalid redis url: %w", err)
	}
	return NewRedisLocker(redis.NewClient(opts)), nil
}

// Acquire takes the lock for ttl or returns ErrLockHeld
func (l *RedisLocker) Acquire(ctx context.Context, key string, ttl time.Duration) (ReleaseFunc, error) {
	token := uuid.New().String()
	ok, err := l.client.SetNX(ctx, key, token, ttl).Result()
	if err != nil {
		return nil, fmt.Errorf("acquire lock %s: %w", key, err)
	}
	if !ok {
		return nil, ErrLockHeld
	}

	return func(ctx context.Context) error {
		if err := releaseScript.Run(ctx, l.client, []string{key}, token).Err(); err != nil {
			return fmt.Errorf("release lock %s: %w", key, err)
		}
		return nil
	}, nil
}

// Close closes the underlying redis client
func (l *RedisLocker) Close() error {
	return l.client.Close()
}
