package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"quotation-backend/internal/shared/auth"
	"quotation-backend/internal/shared/server/respond"
)

func TestRateLimitAuthGroupStricterThanDefault(t *testing.T) {
	gin.SetMode(gin.TestMode)
	now := time.Date(2026, time.January, 1, 0, 0, 0, 0, time.UTC)
	limiter := NewRateLimiter(func() time.Time { return now })

	groupFor := func(c *gin.Context) string {
		if c.FullPath() == "/api/v1/auth/login" {
			return "AUTH"
		}
		return "DEFAULT"
	}

	r := gin.New()
	r.Use(func(c *gin.Context) {
		SetIdentity(c, auth.Identity{UserID: 7, Role: auth.RoleCustomer})
		c.Next()
	})
	r.Use(RateLimit(RateLimitConfig{
		DefaultGroup: "DEFAULT",
		GroupFor:     groupFor,
		Limiter:      limiter,
		Rules: map[string]RateLimitRule{
			"DEFAULT": {Rate: 5, Burst: 10},
			"AUTH":    {Rate: 1, Burst: 2},
		},
	}))

	r.GET("/api/v1/quotations/mine", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"ok": true})
	})
	r.POST("/api/v1/auth/login", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"ok": true})
	})

	for i := 0; i < 3; i++ {
		req := httptest.NewRequest(http.MethodGet, "/api/v1/quotations/mine", nil)
		resp := httptest.NewRecorder()
		r.ServeHTTP(resp, req)
		if resp.Code != http.StatusOK {
			t.Fatalf("default request %d expected 200, got %d", i+1, resp.Code)
		}
	}

	for i := 0; i < 2; i++ {
		req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/login", nil)
		resp := httptest.NewRecorder()
		r.ServeHTTP(resp, req)
		if resp.Code != http.StatusOK {
			t.Fatalf("auth request %d expected 200, got %d", i+1, resp.Code)
		}
	}

	req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/login", nil)
	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, req)
	if resp.Code != http.StatusTooManyRequests {
		t.Fatalf("auth request 3 expected 429, got %d", resp.Code)
	}
}

func TestRateLimit429IncludesRetryAfter(t *testing.T) {
	gin.SetMode(gin.TestMode)
	now := time.Date(2026, time.January, 1, 0, 0, 0, 0, time.UTC)
	limiter := NewRateLimiter(func() time.Time { return now })

	r := gin.New()
	r.Use(func(c *gin.Context) {
		SetIdentity(c, auth.Identity{UserID: 7, Role: auth.RoleCustomer})
		c.Next()
	})
	r.Use(RateLimit(RateLimitConfig{
		DefaultGroup: "DEFAULT",
		GroupFor: func(c *gin.Context) string {
			return "DEFAULT"
		},
		Limiter: limiter,
		Rules: map[string]RateLimitRule{
			"DEFAULT": {Rate: 1, Burst: 1},
		},
	}))
	r.GET("/api/v1/limited", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"ok": true})
	})

	req1 := httptest.NewRequest(http.MethodGet, "/api/v1/limited", nil)
	resp1 := httptest.NewRecorder()
	r.ServeHTTP(resp1, req1)
	if resp1.Code != http.StatusOK {
		t.Fatalf("expected first request 200, got %d", resp1.Code)
	}

	req2 := httptest.NewRequest(http.MethodGet, "/api/v1/limited", nil)
	resp2 := httptest.NewRecorder()
	r.ServeHTTP(resp2, req2)
	if resp2.Code != http.StatusTooManyRequests {
		t.Fatalf("expected 429, got %d", resp2.Code)
	}
	if resp2.Header().Get("Retry-After") == "" {
		t.Fatalf("expected Retry-After header")
	}

	var payload respond.ErrorResponse
	if err := json.NewDecoder(resp2.Body).Decode(&payload); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if payload.Error.Code != "rate_limited" || payload.Error.Message == "" {
		t.Fatalf("unexpected error body %+v", payload.Error)
	}
	details, ok := payload.Error.Details.(map[string]any)
	if !ok {
		t.Fatalf("expected details object, got %T", payload.Error.Details)
	}
	if _, ok := details["retryAfterMs"]; !ok {
		t.Fatalf("expected retryAfterMs in details")
	}
}

func TestRateLimiterRefillsOverTime(t *testing.T) {
	now := time.Date(2026, time.January, 1, 0, 0, 0, 0, time.UTC)
	limiter := NewRateLimiter(func() time.Time { return now })
	rule := PerWindow(10, 15*time.Minute)

	for i := 0; i < 10; i++ {
		if ok, _, _ := limiter.Allow(context.Background(), "k", rule); !ok {
			t.Fatalf("request %d should be allowed", i+1)
		}
	}
	ok, wait, _ := limiter.Allow(context.Background(), "k", rule)
	if ok {
		t.Fatalf("expected 11th request limited")
	}
	if wait < 89*time.Second || wait > 91*time.Second {
		t.Fatalf("expected ~90s retry, got %s", wait)
	}

	now = now.Add(wait)
	if ok, _, _ := limiter.Allow(context.Background(), "k", rule); !ok {
		t.Fatalf("expected token refilled after wait")
	}
}

type failingLimiter struct{}

func (failingLimiter) Allow(context.Context, string, RateLimitRule) (bool, time.Duration, error) {
	return false, 0, errors.New("redis down")
}

func TestRateLimitFailsOpenWhenStoreErrors(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(RateLimit(RateLimitConfig{
		Limiter: failingLimiter{},
		Rules:   map[string]RateLimitRule{"DEFAULT": {Rate: 1, Burst: 1}},
	}))
	r.GET("/x", func(c *gin.Context) { c.Status(http.StatusOK) })

	for i := 0; i < 3; i++ {
		resp := httptest.NewRecorder()
		r.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/x", nil))
		if resp.Code != http.StatusOK {
			t.Fatalf("expected fail-open 200, got %d", resp.Code)
		}
	}
}

func TestRateLimiterDropsRefilledBuckets(t *testing.T) {
	now := time.Date(2026, time.January, 1, 0, 0, 0, 0, time.UTC)
	limiter := NewRateLimiter(func() time.Time { return now })
	rule := PerWindow(10, 15*time.Minute)
	ctx := context.Background()

	for i := 0; i < 50; i++ {
		if ok, _, _ := limiter.Allow(ctx, "ip-"+strconv.Itoa(i), rule); !ok {
			t.Fatalf("first request for ip-%d should pass", i)
		}
	}
	for i := 0; i < 10; i++ {
		_, _, _ = limiter.Allow(ctx, "busy", rule)
	}
	if len(limiter.buckets) != 51 {
		t.Fatalf("expected 51 buckets, got %d", len(limiter.buckets))
	}

	// Long enough for one token to refill everywhere, not for "busy" to be full.
	now = now.Add(2 * time.Minute)
	_, _, _ = limiter.Allow(ctx, "busy", rule)
	if _, ok := limiter.buckets["busy"]; !ok {
		t.Fatalf("drained bucket must survive the sweep")
	}
	if len(limiter.buckets) != 1 {
		t.Fatalf("expected refilled buckets dropped, %d left", len(limiter.buckets))
	}

	if ok, _, _ := limiter.Allow(ctx, "ip-0", rule); !ok {
		t.Fatalf("evicted key should start with a full bucket")
	}
}
