package lock

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// releaseScript deletes the key only while it still carries our token.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// RedisClient is the subset of a go-redis client used by RedisLock.
type RedisClient interface {
	redis.Scripter
	SetNX(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.BoolCmd
}

// RedisLock implements Locker with SET NX PX.
type RedisLock struct {
	client RedisClient
	prefix string
}

// NewRedisLock wraps an existing client. Keys are stored as prefix + key.
func NewRedisLock(client RedisClient, prefix string) *RedisLock {
	if prefix == "" {
		prefix = "lock:"
	}
	return &RedisLock{client: client, prefix: prefix}
}

// Lock implements Locker.
func (r *RedisLock) Lock(ctx context.Context, key string, ttl time.Duration) (Lease, bool, error) {
	const op = "lock.RedisLock.Lock"

	token := uuid.NewString()
	lockKey := r.prefix + key
	ok, err := r.client.SetNX(ctx, lockKey, token, ttl).Result()
	if err != nil {
		return nil, false, fmt.Errorf("%s: %w", op, err)
	}
	if !ok {
		return nil, false, nil
	}
	return &redisLease{client: r.client, key: lockKey, token: token}, true, nil
}

type redisLease struct {
	client redis.Scripter
	key    string
	token  string
}

func (l *redisLease) Unlock(ctx context.Context) error {
	const op = "lock.RedisLock.Unlock"

	n, err := releaseScript.Run(ctx, l.client, []string{l.key}, l.token).Int()
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if n == 0 {
		return fmt.Errorf("%s: %w", op, ErrNotHeld)
	}
	return nil
}
