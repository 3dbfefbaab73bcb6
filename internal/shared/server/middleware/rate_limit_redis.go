package middleware

import (
	"context"
	"fmt"
	"math"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

// tokenBucketScript refills and consumes one token atomically. It returns
// {allowed, tokens_after} so the caller can compute Retry-After.
var tokenBucketScript = redis.NewScript(`
local key = KEYS[1]
local capacity = tonumber(ARGV[1])
local rate = tonumber(ARGV[2])
local now = tonumber(ARGV[3])
local ttl = tonumber(ARGV[4])

local data = redis.call('HMGET', key, 'tokens', 'last')
local tokens = tonumber(data[1])
local last = tonumber(data[2])
if tokens == nil then tokens = capacity end
if last == nil then last = now end

local elapsed = (now - last) / 1000000000
if elapsed > 0 then
	tokens = math.min(capacity, tokens + elapsed * rate)
end

local allowed = 0
if tokens >= 1 then
	tokens = tokens - 1
	allowed = 1
end

redis.call('HSET', key, 'tokens', tostring(tokens), 'last', tostring(now))
redis.call('EXPIRE', key, ttl)
return {allowed, tostring(tokens)}
`)

// RedisLimiter shares token buckets across API instances.
type RedisLimiter struct {
	client    redis.Scripter
	keyPrefix string
	now       func() time.Time
}

// NewRedisLimiter builds a limiter on client. keyPrefix defaults to "rate_limit:".
func NewRedisLimiter(client redis.Scripter, keyPrefix string) *RedisLimiter {
	if keyPrefix == "" {
		keyPrefix = "rate_limit:"
	}
	return &RedisLimiter{client: client, keyPrefix: keyPrefix, now: time.Now}
}

func (r *RedisLimiter) Allow(ctx context.Context, key string, rule RateLimitRule) (bool, time.Duration, error) {
	if rule.Rate <= 0 || rule.Burst <= 0 {
		return true, 0, nil
	}
	res, err := tokenBucketScript.Run(ctx, r.client, []string{r.bucketKey(key)},
		rule.Burst,
		rule.Rate,
		r.now().UnixNano(),
		bucketTTLSeconds(rule),
	).Slice()
	if err != nil {
		return false, 0, fmt.Errorf("redis rate limit: %w", err)
	}
	if len(res) != 2 {
		return false, 0, fmt.Errorf("redis rate limit: unexpected reply %v", res)
	}
	allowed, _ := res[0].(int64)
	if allowed == 1 {
		return true, 0, nil
	}
	tokens, _ := strconv.ParseFloat(fmt.Sprint(res[1]), 64)
	return false, retryAfter(tokens, rule.Rate), nil
}

func (r *RedisLimiter) bucketKey(key string) string {
	return r.keyPrefix + key
}

// bucketTTLSeconds keeps a bucket until it would be full again, plus slack.
func bucketTTLSeconds(rule RateLimitRule) int {
	refill := float64(rule.Burst) / rule.Rate
	return int(math.Ceil(refill*1.1)) + 1
}
