// Package ratelimit throttles refresh attempts per user with a fixed-window
// counter in Redis.
package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/dmitrijs2005/authcore/internal/common"
	"github.com/dmitrijs2005/authcore/internal/logging"
	"github.com/redis/go-redis/v9"
)

// ErrLimited is returned once a key exceeds its budget for the window.
var ErrLimited = fmt.Errorf("%w: refresh window exhausted", common.ErrRateLimited)

const keyPrefix = "authcore:rl:refresh:"

type Config struct {
	Limit  int
	Window time.Duration
}

// RedisLimiter fails open: when Redis cannot be reached the attempt is
// allowed and the failure is logged.
type RedisLimiter struct {
	redis  redis.UniversalClient
	config Config
	logger logging.Logger
}

func NewRedisLimiter(client redis.UniversalClient, cfg Config, logger logging.Logger) *RedisLimiter {
	if cfg.Limit <= 0 {
		cfg.Limit = 1
	}
	if cfg.Window <= 0 {
		cfg.Window = time.Minute
	}
	return &RedisLimiter{
		redis:  client,
		config: cfg,
		logger: logger.With("module", "ratelimit"),
	}
}

// Allow counts one attempt for key and returns ErrLimited when the window
// budget is exceeded.
func (l *RedisLimiter) Allow(ctx context.Context, key string) error {
	k := keyPrefix + key

	count, err := l.redis.Incr(ctx, k).Result()
	if err != nil {
		l.logger.Warn(ctx, "rate limiter unavailable, allowing", "error", err)
		return nil
	}

	// Fixed window: the TTL is set on the first hit only.
	if count == 1 {
		if err := l.redis.Expire(ctx, k, l.config.Window).Err(); err != nil {
			l.logger.Warn(ctx, "rate limiter expire failed", "error", err)
		}
	}

	if count > int64(l.config.Limit) {
		return ErrLimited
	}
	return nil
}
