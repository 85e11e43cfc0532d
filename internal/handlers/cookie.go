package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/mysite19/mysite/pkg/crypto"
	"github.com/mysite19/mysite/pkg/response"
)

const (
	cookieName    = "fizz"
	cookieDefault = "default value"
)

// Cookie echoes the fizz cookie next to a random number. It is meant to sit behind a
// page cache, so the number only changes once the cached copy expires.
func Cookie() gin.HandlerFunc {
	return func(c *gin.Context) {
		value, err := c.Cookie(cookieName)
		if err != nil {
			value = cookieDefault
		}
		random, err := crypto.RandomInt(1_000_000)
		if err != nil {
			response.Error(c, err)
			return
		}
		response.Success(c, http.StatusOK, gin.H{"fizz": value, "random": random})
	}
}
