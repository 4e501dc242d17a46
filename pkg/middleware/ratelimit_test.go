package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/bizflow/bizgate/pkg/auth"
	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryRateLimiter(t *testing.T) {
	rl := NewMemoryRateLimiter(&RateLimitConfig{RequestsPerWindow: 2, WindowDuration: time.Minute, BurstSize: 1})
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	rl.now = func() time.Time { return now }
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		allowed, err := rl.Allow(ctx, "k")
		require.NoError(t, err)
		assert.True(t, allowed, "request %d", i)
	}
	allowed, _ := rl.Allow(ctx, "k")
	assert.False(t, allowed)

	remaining, _ := rl.Remaining(ctx, "other")
	assert.Equal(t, 3, remaining)

	now = now.Add(30 * time.Second)
	allowed, _ = rl.Allow(ctx, "k")
	assert.True(t, allowed)

	now = now.Add(5 * time.Minute)
	rl.Cleanup()
	assert.Empty(t, rl.buckets)
}

func TestRedisRateLimiter(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })

	rl := NewRedisRateLimiter(client, &RateLimitConfig{RequestsPerWindow: 2, WindowDuration: time.Minute}, "")
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		allowed, err := rl.Allow(ctx, "user:a")
		require.NoError(t, err)
		assert.True(t, allowed)
	}
	allowed, err := rl.Allow(ctx, "user:a")
	require.NoError(t, err)
	assert.False(t, allowed)

	remaining, err := rl.Remaining(ctx, "user:a")
	require.NoError(t, err)
	assert.Equal(t, 0, remaining)

	ttl, err := rl.TTL(ctx, "user:a")
	require.NoError(t, err)
	assert.Equal(t, time.Minute, ttl)

	mr.FastForward(time.Minute)
	allowed, err = rl.Allow(ctx, "user:a")
	require.NoError(t, err)
	assert.True(t, allowed)

	require.NoError(t, rl.Reset(ctx, "user:a"))
	remaining, err = rl.Remaining(ctx, "user:a")
	require.NoError(t, err)
	assert.Equal(t, 2, remaining)
}

func TestRateLimit_FailsOpenOnRedisError(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr(), MaxRetries: -1})
	t.Cleanup(func() { client.Close() })
	mr.Close()

	var called bool
	h := RateLimit(NewRedisRateLimiter(client, nil, ""))(ok(&called))
	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.True(t, called)
}

func TestRateLimit_KeysByPrincipal(t *testing.T) {
	rl := NewMemoryRateLimiter(&RateLimitConfig{RequestsPerWindow: 1, WindowDuration: time.Hour})
	var called bool
	h := RateLimit(rl)(ok(&called))

	serve := func(userID string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, "/v1/me/credits/ocr/deduct", nil)
		req = req.WithContext(auth.WithPrincipal(req.Context(), &auth.Principal{UserID: userID}))
		w := httptest.NewRecorder()
		h.ServeHTTP(w, req)
		return w
	}

	assert.Equal(t, http.StatusNoContent, serve(alice).Code)
	w := serve(alice)
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Equal(t, "0", w.Header().Get("X-RateLimit-Remaining"))
	assert.Equal(t, "3600", w.Header().Get("Retry-After"))

	assert.Equal(t, http.StatusNoContent, serve(bob).Code)
}

func TestClientIP(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "10.0.0.1:5555"
	assert.Equal(t, "10.0.0.1", clientIP(req))

	req.Header.Set("X-Real-IP", "10.0.0.2")
	assert.Equal(t, "10.0.0.2", clientIP(req))

	req.Header.Set("X-Forwarded-For", "203.0.113.7, 10.0.0.3")
	assert.Equal(t, "203.0.113.7", clientIP(req))
}
