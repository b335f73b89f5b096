package middleware_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aJLaxzzz/foodgram-st/internal/middleware"
)

func newLimitedRouter(rl *middleware.RateLimiter) *gin.Engine {
	gin.SetMode(gin.TestMode)
	validator := stubValidator{tokens: map[string]uint{"a": 1, "b": 2}}
	r := gin.New()
	r.POST("/", middleware.AuthMiddleware(validator), rl.RateLimitMiddleware(), func(c *gin.Context) {
		c.Status(http.StatusCreated)
	})
	return r
}

func post(r http.Handler, token string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/", nil)
	req.Header.Set("Authorization", "Token "+token)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestRateLimiter_Redis(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer client.Close()

	r := newLimitedRouter(middleware.NewRecipeCreationRateLimiter(client, 2))

	for i := 0; i < 2; i++ {
		w := post(r, "a")
		require.Equal(t, http.StatusCreated, w.Code)
		assert.Equal(t, "2", w.Header().Get("X-RateLimit-Limit"))
	}
	w := post(r, "a")
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Equal(t, "0", w.Header().Get("X-RateLimit-Remaining"))
	assert.NotEmpty(t, w.Header().Get("Retry-After"))

	// limits are per user
	assert.Equal(t, http.StatusCreated, post(r, "b").Code)
}

func TestRateLimiter_IsAllowedWindowKey(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer client.Close()

	rl := middleware.NewRateLimiter(client, middleware.RateLimitConfig{Window: time.Minute, Limit: 1, KeyPrefix: "test"})
	ctx := context.Background()

	allowed, remaining, reset, err := rl.IsAllowed(ctx, "42")
	require.NoError(t, err)
	assert.True(t, allowed)
	assert.Equal(t, 0, remaining)
	assert.True(t, reset.After(time.Now()))
	assert.Len(t, mr.Keys(), 1)

	allowed, _, _, err = rl.IsAllowed(ctx, "42")
	require.NoError(t, err)
	assert.False(t, allowed)
}

func TestRateLimiter_LocalFallback(t *testing.T) {
	r := newLimitedRouter(middleware.NewRecipeCreationRateLimiter(nil, 3))

	for i := 0; i < 3; i++ {
		require.Equal(t, http.StatusCreated, post(r, "a").Code)
	}
	w := post(r, "a")
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Contains(t, w.Body.String(), "throttled")
}

func TestRateLimiter_RedisFailureFallsBack(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr(), MaxRetries: -1})
	defer client.Close()
	mr.Close()

	r := newLimitedRouter(middleware.NewRecipeCreationRateLimiter(client, 1))
	assert.Equal(t, http.StatusCreated, post(r, "a").Code)
	assert.Equal(t, http.StatusTooManyRequests, post(r, "a").Code)
}
