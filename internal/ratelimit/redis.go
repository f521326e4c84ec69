package ratelimit

import (
	"context"
	"log/slog"
	"math"
	"time"

	"github.com/redis/go-redis/v9"
)

const redisKeyPrefix = "pinguard:ratelimit:"

var _ Limiter = (*RedisLimiter)(nil)

// tokenBucketScript refills and consumes a token atomically.
var tokenBucketScript = redis.NewScript(`
	local key = KEYS[1]
	local rate = tonumber(ARGV[1])      -- tokens per second
	local burst = tonumber(ARGV[2])     -- bucket capacity
	local now = tonumber(ARGV[3])       -- current time in seconds (fractional)
	local ttl = tonumber(ARGV[4])       -- key TTL in seconds

	local data = redis.call('HMGET', key, 'tokens', 'last_update')
	local tokens = tonumber(data[1]) or burst
	local last_update = tonumber(data[2]) or now

	local elapsed = math.max(0, now - last_update)
	tokens = math.min(burst, tokens + (elapsed * rate))

	local allowed = 0
	local retry_after = 0

	if tokens >= 1 then
		tokens = tokens - 1
		allowed = 1
	else
		retry_after = math.ceil((1 - tokens) / rate)
	end

	redis.call('HSET', key, 'tokens', tokens, 'last_update', now)
	redis.call('EXPIRE', key, ttl)

	return {allowed, retry_after, math.floor(tokens)}
`)

// RedisLimiter is a token bucket shared by every instance using the same Redis.
// The bucket holds Requests tokens and refills Requests per Window.
type RedisLimiter struct {
	client *redis.Client
	cfg    Config
	logger *slog.Logger
}

// NewRedisLimiter creates a limiter on an existing client.
func NewRedisLimiter(client *redis.Client, cfg Config, logger *slog.Logger) *RedisLimiter {
	if logger == nil {
		logger = slog.Default()
	}
	return &RedisLimiter{client: client, cfg: cfg, logger: logger.With("component", "rate_limiter")}
}

// Allow consumes one token for key. Redis errors fail open.
func (l *RedisLimiter) Allow(ctx context.Context, key string) (*Result, error) {
	now := time.Now()
	rate := float64(l.cfg.Requests) / l.cfg.Window.Seconds()
	ttl := int(math.Ceil(l.cfg.Window.Seconds())) * 2

	res, err := tokenBucketScript.Run(ctx, l.client,
		[]string{redisKeyPrefix + key},
		rate, l.cfg.Requests, float64(now.UnixMilli())/1000.0, ttl,
	).Int64Slice()
	if err != nil {
		l.logger.Warn("rate limit check failed, allowing request", "error", err)
		return &Result{
			Allowed:   true,
			Limit:     l.cfg.Requests,
			Remaining: int64(l.cfg.Requests),
			ResetAt:   now.Add(l.cfg.Window),
		}, nil
	}

	allowed := res[0] == 1
	retryAfter := time.Duration(res[1]) * time.Second
	remaining := res[2]

	resetAt := now.Add(time.Duration(float64(time.Second) / rate))
	if !allowed {
		resetAt = now.Add(retryAfter)
	}

	return &Result{
		Allowed:    allowed,
		Limit:      l.cfg.Requests,
		Remaining:  remaining,
		ResetAt:    resetAt,
		RetryAfter: retryAfter,
	}, nil
}
