package middleware

import (
	"context"
	stdErrors "errors"
	"net/http"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"

	"github.com/mysite19/mysite/internal/cache"
)

func TestRateLimitMiddleware(t *testing.T) {
	gin.SetMode(gin.TestMode)

	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	store := cache.NewMemoryStore(cache.WithClock(func() time.Time { return now }))

	r := gin.New()
	r.Use(RateLimit(store, 2, time.Minute))
	r.GET("/ping", func(c *gin.Context) { c.String(http.StatusOK, "pong") })

	for i := 0; i < 2; i++ {
		require.Equal(t, http.StatusOK, serve(r, http.MethodGet, "/ping"))
	}
	require.Equal(t, http.StatusTooManyRequests, serve(r, http.MethodGet, "/ping"))

	now = now.Add(time.Minute + time.Second)
	require.Equal(t, http.StatusOK, serve(r, http.MethodGet, "/ping"))
}

type brokenStore struct{ cache.Store }

func (brokenStore) IncrementWithTTL(context.Context, string, time.Duration) (int64, time.Duration, error) {
	return 0, 0, stdErrors.New("redis down")
}

func TestRateLimitFailsOpen(t *testing.T) {
	gin.SetMode(gin.TestMode)

	r := gin.New()
	r.Use(RateLimit(brokenStore{}, 1, time.Minute))
	r.GET("/ping", func(c *gin.Context) { c.Status(http.StatusOK) })

	for i := 0; i < 3; i++ {
		require.Equal(t, http.StatusOK, serve(r, http.MethodGet, "/ping"))
	}
}
