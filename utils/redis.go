package utils

import (
	"context"
	"log"
	"time"

	"github.com/redis/go-redis/v9"
)

// OpenRedisPool initializes a Redis connection pool.
func OpenRedisPool(dsn string) (*redis.Client, error) {
	opt, err := redis.ParseURL(dsn)
	if err != nil {
		return nil, err
	}

	opt.PoolSize = 100
	opt.MinIdleConns = 2
	opt.DialTimeout = 5 * time.Second
	opt.ConnMaxIdleTime = 5 * time.Minute

	client := redis.NewClient(opt)
	if err = client.Ping(context.Background()).Err(); err != nil {
		return nil, err
	}

	return client, nil
}

// LoginLimiter throttles credential endpoints with a fixed window counter
// per client key. Redis failures fail open: a broken limiter must not lock
// everyone out.
type LoginLimiter struct {
	client *redis.Client
	limit  int64
	window time.Duration
}

func NewLoginLimiter(client *redis.Client, limit int, window time.Duration) *LoginLimiter {
	return &LoginLimiter{client: client, limit: int64(limit), window: window}
}

// Allow reports whether another attempt from key is permitted.
func (l *LoginLimiter) Allow(ctx context.Context, key string) bool {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	redisKey := "login_attempts:" + key

	count, err := l.client.Incr(ctx, redisKey).Result()
	if err != nil {
		log.Println("rate limiter unavailable, allowing request:", err)
		return true
	}
	if count == 1 {
		if err := l.client.Expire(ctx, redisKey, l.window).Err(); err != nil {
			log.Println("error setting rate limit window:", err)
		}
	}

	return count <= l.limit
}

// Reset clears the counter for a key, used after a successful login.
func (l *LoginLimiter) Reset(ctx context.Context, key string) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := l.client.Del(ctx, "login_attempts:"+key).Err(); err != nil {
		log.Println("error resetting rate limit:", err)
	}
}
