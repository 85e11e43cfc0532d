package middleware

import (
	"context"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/mysite19/mysite/internal/permissions"
	"github.com/mysite19/mysite/pkg/errors"
	"github.com/mysite19/mysite/pkg/logger"
	"github.com/mysite19/mysite/pkg/metrics"
	"github.com/mysite19/mysite/pkg/response"
)

// Checker is the part of permissions.Checker the HTTP layer relies on.
type Checker interface {
	Check(ctx context.Context, userID, permissionID string) (bool, error)
	Principal(ctx context.Context, userID string) (permissions.Principal, error)
}

// RequirePermission checks that the authenticated user has the provided permission ID.
func RequirePermission(checker Checker, permissionID string) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := authenticatedUserID(c)
		if !ok {
			return
		}

		allowed, err := checker.Check(c.Request.Context(), userID, permissionID)
		if err != nil {
			metrics.PermissionChecks.WithLabelValues(permissionID, "error").Inc()
			logger.WithModule("http").Error("permission check failed",
				zap.String("permission", permissionID),
				zap.String("user_id", userID),
				zap.Error(err),
			)
			response.Error(c, errors.ErrInternalServer)
			c.Abort()
			return
		}
		if !allowed {
			metrics.PermissionChecks.WithLabelValues(permissionID, "deny").Inc()
			response.Error(c, errors.ErrForbidden)
			c.Abort()
			return
		}
		metrics.PermissionChecks.WithLabelValues(permissionID, "allow").Inc()
		c.Next()
	}
}

// RequireStaff admits staff members and superusers only.
func RequireStaff(checker Checker) gin.HandlerFunc {
	return requirePrincipal(checker, func(p permissions.Principal) bool {
		return p.IsActive && (p.IsStaff || p.IsRoot)
	})
}

// RequireSuperuser admits superusers only.
func RequireSuperuser(checker Checker) gin.HandlerFunc {
	return requirePrincipal(checker, func(p permissions.Principal) bool {
		return p.IsActive && p.IsRoot
	})
}

func requirePrincipal(checker Checker, allow func(permissions.Principal) bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := authenticatedUserID(c)
		if !ok {
			return
		}

		principal, err := checker.Principal(c.Request.Context(), userID)
		if err != nil {
			response.Error(c, errors.ErrUnauthorized)
			c.Abort()
			return
		}
		if !allow(principal) {
			response.Error(c, errors.ErrForbidden)
			c.Abort()
			return
		}
		c.Next()
	}
}

func authenticatedUserID(c *gin.Context) (string, bool) {
	userID := c.GetString(CtxUserIDKey)
	if userID == "" {
		response.Error(c, errors.ErrUnauthorized)
		c.Abort()
		return "", false
	}
	return userID, true
}
