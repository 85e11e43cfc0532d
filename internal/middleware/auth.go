package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"

	iauth "github.com/mysite19/mysite/internal/auth"
	"github.com/mysite19/mysite/pkg/errors"
	"github.com/mysite19/mysite/pkg/response"
)

const (
	CtxClaimsKey    = "authClaims"
	CtxUserIDKey    = "userID"
	CtxUsernameKey  = "username"
	CtxSessionIDKey = "sessionID"
)

// Auth enforces JWT authentication using the supplied JWT service.
func Auth(jwt *iauth.JWTService) gin.HandlerFunc {
	return func(c *gin.Context) {
		claims, ok := bearerClaims(c, jwt)
		if !ok {
			c.Header("WWW-Authenticate", "Bearer")
			response.Error(c, errors.ErrUnauthorized)
			c.Abort()
			return
		}

		setIdentity(c, claims)
		c.Next()
	}
}

// OptionalAuth records the caller's identity when a valid token is present and
// lets anonymous requests through.
func OptionalAuth(jwt *iauth.JWTService) gin.HandlerFunc {
	return func(c *gin.Context) {
		if claims, ok := bearerClaims(c, jwt); ok {
			setIdentity(c, claims)
		}
		c.Next()
	}
}

func bearerClaims(c *gin.Context, jwt *iauth.JWTService) (*iauth.Claims, bool) {
	authz := c.GetHeader("Authorization")
	if len(authz) < 8 || !strings.EqualFold(authz[:7], "Bearer ") {
		return nil, false
	}

	claims, err := jwt.ValidateAccessToken(strings.TrimSpace(authz[7:]))
	if err != nil {
		return nil, false
	}
	return claims, true
}

func setIdentity(c *gin.Context, claims *iauth.Claims) {
	c.Set(CtxClaimsKey, claims)
	c.Set(CtxUserIDKey, claims.UserID)
	c.Set(CtxUsernameKey, claims.Username)
	if claims.SessionID != "" {
		c.Set(CtxSessionIDKey, claims.SessionID)
	}
}
