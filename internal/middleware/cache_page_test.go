package middleware

import (
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"

	"github.com/mysite19/mysite/internal/cache"
)

func TestCachePageServesStoredBodyUntilExpiry(t *testing.T) {
	gin.SetMode(gin.TestMode)

	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	store := cache.NewMemoryStore(cache.WithClock(func() time.Time { return now }))

	calls := 0
	r := gin.New()
	r.GET("/counter", CachePage(store, 20*time.Second), func(c *gin.Context) {
		calls++
		c.String(http.StatusOK, strconv.Itoa(calls))
	})
	r.GET("/missing", CachePage(store, 20*time.Second), func(c *gin.Context) {
		calls++
		c.Status(http.StatusNotFound)
	})

	get := func(path string) *httptest.ResponseRecorder {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, nil))
		return w
	}

	first := get("/counter")
	require.Equal(t, "1", first.Body.String())
	require.Equal(t, "MISS", first.Header().Get("X-Cache"))

	second := get("/counter")
	require.Equal(t, "1", second.Body.String())
	require.Equal(t, "HIT", second.Header().Get("X-Cache"))
	require.Contains(t, second.Header().Get("Content-Type"), "text/plain")

	require.Equal(t, "2", get("/counter?page=2").Body.String())

	now = now.Add(21 * time.Second)
	require.Equal(t, "3", get("/counter").Body.String())

	get("/missing")
	get("/missing")
	require.Equal(t, 5, calls, "error responses are never cached")
}
