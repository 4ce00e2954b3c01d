package middleware

import (
	"net/http"
	"strconv"
	"time"

	"github.com/communityweb/strtracker/internal/common"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
)

// RateLimitConfig configures the rate limiter
type RateLimitConfig struct {
	RequestsPerMinute int
	KeyPrefix         string
}

// DefaultRateLimitConfig limits write requests per actor
func DefaultRateLimitConfig() RateLimitConfig {
	return RateLimitConfig{
		RequestsPerMinute: 60,
		KeyPrefix:         "strlimit:",
	}
}

// rateLimitScript is an atomic sliding window over a sorted set
var rateLimitScript = redis.NewScript(`
local key = KEYS[1]
local limit = tonumber(ARGV[1])
local window = tonumber(ARGV[2])
local now = tonumber(ARGV[3])
local member = ARGV[4]

redis.call('ZREMRANGEBYSCORE', key, '-inf', now - window)
local count = redis.call('ZCARD', key)

if count < limit then
    redis.call('ZADD', key, now, member)
    redis.call('PEXPIRE', key, window)
    return {1, limit - count - 1, 0}
end

local oldest = redis.call('ZRANGE', key, 0, 0, 'WITHSCORES')
local reset_at = now + window
if #oldest >= 2 then
    reset_at = tonumber(oldest[2]) + window
end
return {0, 0, reset_at}
`)

// RateLimit throttles requests per actor (or client IP for anonymous callers).
// It is a no-op without redis and fails open on redis errors.
func RateLimit(redisClient *redis.Client, cfg RateLimitConfig) gin.HandlerFunc {
	window := time.Minute

	return func(c *gin.Context) {
		if redisClient == nil || cfg.RequestsPerMinute <= 0 {
			c.Next()
			return
		}

		subject := "ip:" + c.ClientIP()
		if actor := GetActor(c); actor.Username != "" {
			subject = "user:" + actor.Username
		}

		now := time.Now()
		nowMs := now.UnixMilli()
		member := strconv.FormatInt(now.UnixNano(), 10)

		result, err := rateLimitScript.Run(c.Request.Context(), redisClient,
			[]string{cfg.KeyPrefix + subject},
			cfg.RequestsPerMinute, window.Milliseconds(), nowMs, member,
		).Int64Slice()
		if err != nil || len(result) != 3 {
			c.Next()
			return
		}

		c.Header("X-RateLimit-Limit", strconv.Itoa(cfg.RequestsPerMinute))
		c.Header("X-RateLimit-Remaining", strconv.FormatInt(result[1], 10))

		if result[0] != 1 {
			retryAfter := (result[2] - nowMs + 999) / 1000
			if retryAfter < 1 {
				retryAfter = 1
			}
			c.Header("Retry-After", strconv.FormatInt(retryAfter, 10))
			common.ErrorResponse(c, http.StatusTooManyRequests, "Too many requests, try again later", nil)
			c.Abort()
			return
		}

		c.Next()
	}
}
