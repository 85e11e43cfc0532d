package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/mysite19/mysite/pkg/errors"
	"github.com/mysite19/mysite/pkg/response"
)

// ErrPayloadTooLarge is returned when a request body exceeds the configured limit.
var ErrPayloadTooLarge = errors.New("PAYLOAD_TOO_LARGE", "Request body is too large", http.StatusRequestEntityTooLarge)

// MaxBodySize rejects bodies that declare more than limit bytes and caps the rest while
// they are read. A non-positive limit disables the check.
func MaxBodySize(limit int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		if limit <= 0 || c.Request.Body == nil {
			c.Next()
			return
		}
		if c.Request.ContentLength > limit {
			response.Error(c, ErrPayloadTooLarge)
			c.Abort()
			return
		}
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, limit)
		c.Next()
	}
}
