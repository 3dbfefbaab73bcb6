package middleware

import (
	"context"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
)

func TestRedisLimiterReturnsErrorWhenUnreachable(t *testing.T) {
	client := redis.NewClient(&redis.Options{
		Addr:        "127.0.0.1:1",
		DialTimeout: 50 * time.Millisecond,
		MaxRetries:  -1,
	})
	defer client.Close()

	limiter := NewRedisLimiter(client, "")
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	if _, _, err := limiter.Allow(ctx, "user:1|AUTH", PerWindow(10, 15*time.Minute)); err == nil {
		t.Fatalf("expected error from unreachable redis")
	}
}

func TestRedisLimiterKeyAndTTL(t *testing.T) {
	limiter := NewRedisLimiter(nil, "")
	if got := limiter.bucketKey("user:1|AUTH"); got != "rate_limit:user:1|AUTH" {
		t.Fatalf("unexpected key %q", got)
	}
	ttl := bucketTTLSeconds(PerWindow(20, time.Hour))
	if ttl < 3600 || ttl > 4000 {
		t.Fatalf("unexpected ttl %d", ttl)
	}
}
