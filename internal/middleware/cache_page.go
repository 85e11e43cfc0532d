package middleware

import (
	"bytes"
	"encoding/json"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/mysite19/mysite/internal/cache"
	"github.com/mysite19/mysite/pkg/logger"
	"github.com/mysite19/mysite/pkg/metrics"
)

const pageCacheKeyPrefix = "page:"

type cachedPage struct {
	Status      int    `json:"status"`
	ContentType string `json:"content_type"`
	Body        []byte `json:"body"`
}

type bodyRecorder struct {
	gin.ResponseWriter
	body bytes.Buffer
}

func (w *bodyRecorder) Write(b []byte) (int, error) {
	w.body.Write(b)
	return w.ResponseWriter.Write(b)
}

func (w *bodyRecorder) WriteString(s string) (int, error) {
	w.body.WriteString(s)
	return w.ResponseWriter.WriteString(s)
}

// CachePage serves successful GET responses from store for ttl, keyed by the full
// request URI. Cached pages are shared between all callers and are not invalidated
// by writes.
func CachePage(store cache.Store, ttl time.Duration) gin.HandlerFunc {
	return func(c *gin.Context) {
		if store == nil || ttl <= 0 || c.Request.Method != http.MethodGet {
			c.Next()
			return
		}

		ctx := c.Request.Context()
		key := pageCacheKeyPrefix + c.Request.URL.RequestURI()

		if raw, ok, err := store.Get(ctx, key); err == nil && ok {
			var page cachedPage
			if err := json.Unmarshal(raw, &page); err == nil {
				metrics.PageCache.WithLabelValues("hit").Inc()
				c.Header("X-Cache", "HIT")
				c.Data(page.Status, page.ContentType, page.Body)
				c.Abort()
				return
			}
		}
		metrics.PageCache.WithLabelValues("miss").Inc()

		recorder := &bodyRecorder{ResponseWriter: c.Writer}
		c.Writer = recorder
		c.Header("X-Cache", "MISS")
		c.Next()

		if recorder.Status() != http.StatusOK {
			return
		}
		raw, err := json.Marshal(cachedPage{
			Status:      recorder.Status(),
			ContentType: recorder.Header().Get("Content-Type"),
			Body:        recorder.body.Bytes(),
		})
		if err != nil {
			return
		}
		if err := store.Set(ctx, key, raw, ttl); err != nil {
			logger.WithModule("http").Warn("page cache write failed", zap.String("key", key), zap.Error(err))
		}
	}
}
