package locker

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/vladimiradmaev/glucose-guide/internal/config"
	apperrors "github.com/vladimiradmaev/glucose-guide/internal/errors"
	"github.com/vladimiradmaev/glucose-guide/internal/logger"
)

const pollInterval = 50 * time.Millisecond

// Deletes the key only while it still holds our token.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// RedisLocker serializes writers across processes sharing one Redis.
type RedisLocker struct {
	client *redis.Client
	ttl    time.Duration
	wait   time.Duration
}

// NewRedisLocker connects to Redis and checks the connection
func NewRedisLocker(redisCfg config.RedisConfig, lockCfg config.LockConfig) (*RedisLocker, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         redisCfg.Addr(),
		Password:     redisCfg.Password,
		DB:           redisCfg.DB,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
	})

	// Test connection
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return NewRedisLockerWithClient(client, lockCfg.TTL, lockCfg.Wait), nil
}

func NewRedisLockerWithClient(client *redis.Client, ttl, wait time.Duration) *RedisLocker {
	return &RedisLocker{client: client, ttl: ttl, wait: wait}
}

// Lock polls SET NX until it owns key, ctx is done or the wait elapses. The
// lock expires after the configured TTL if the holder never releases it.
func (l *RedisLocker) Lock(ctx context.Context, key string) (func(), error) {
	redisKey := "lock:" + key
	token := uuid.NewString()

	if l.wait > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, l.wait)
		defer cancel()
	}

	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()

	for {
		ok, err := l.client.SetNX(ctx, redisKey, token, l.ttl).Result()
		if err != nil && ctx.Err() == nil {
			return nil, apperrors.Wrap(err, apperrors.ErrorTypeExternal, "LOCK", "failed to acquire lock").
				WithContext("key", key)
		}
		if ok {
			return l.unlocker(redisKey, token), nil
		}

		select {
		case <-ctx.Done():
			return nil, apperrors.NewTimeoutError("lock").WithContext("key", key)
		case <-ticker.C:
		}
	}
}

func (l *RedisLocker) unlocker(redisKey, token string) func() {
	released := false
	return func() {
		if released {
			return
		}
		released = true

		ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()
		if err := releaseScript.Run(ctx, l.client, []string{redisKey}, token).Err(); err != nil {
			logger.Warn("Failed to release lock", "key", redisKey, "error", err)
		}
	}
}

// Close closes the Redis connection
func (l *RedisLocker) Close() error {
	return l.client.Close()
}
