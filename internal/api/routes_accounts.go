package api

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/mysite19/mysite/internal/cache"
	"github.com/mysite19/mysite/internal/handlers"
	"github.com/mysite19/mysite/internal/middleware"
	"github.com/mysite19/mysite/internal/permissions"
)

type accountRouteDeps struct {
	Auth           *handlers.AuthHandler
	Profiles       *handlers.ProfileHandler
	Groups         *handlers.GroupHandler
	Checker        *permissions.Checker
	PageCache      cache.Store
	CookiePageTTL  time.Duration
	MaxUploadBytes int64
}

func registerAccountRoutes(engine *gin.Engine, public, api *gin.RouterGroup, deps accountRouteDeps) {
	upload := middleware.MaxBodySize(deps.MaxUploadBytes)

	auth := public.Group("/auth")
	{
		auth.POST("/register", deps.Auth.Register)
		auth.POST("/login", deps.Auth.Login)
		auth.POST("/refresh", deps.Auth.Refresh)
	}

	api.GET("/auth/me", deps.Auth.Me)
	api.POST("/auth/logout", deps.Auth.Logout)
	api.PUT("/auth/me/avatar", upload, deps.Auth.UpdateAvatar)

	profiles := api.Group("/profiles")
	{
		profiles.GET("", middleware.RequirePermission(deps.Checker, permissions.ViewProfile), deps.Profiles.List)
		profiles.POST("", middleware.RequirePermission(deps.Checker, permissions.ChangeProfile), deps.Profiles.Create)
		profiles.GET("/:id", middleware.RequirePermission(deps.Checker, permissions.ViewProfile), deps.Profiles.Get)
		profiles.PUT("/:id", middleware.RequirePermission(deps.Checker, permissions.ChangeProfile), deps.Profiles.Update)
		profiles.DELETE("/:id", middleware.RequirePermission(deps.Checker, permissions.DeleteProfile), deps.Profiles.Delete)
		profiles.PUT("/:id/avatar", upload, middleware.RequireStaff(deps.Checker), deps.Profiles.SetAvatar)
	}

	groups := api.Group("/groups")
	{
		groups.GET("", middleware.RequirePermission(deps.Checker, permissions.ViewGroup), deps.Groups.List)
		groups.POST("", middleware.RequirePermission(deps.Checker, permissions.AddGroup), deps.Groups.Create)
		groups.POST("/:id/members", middleware.RequireSuperuser(deps.Checker), deps.Groups.AddMember)
	}

	engine.GET("/accounts/cookie", middleware.CachePage(deps.PageCache, deps.CookiePageTTL), handlers.Cookie())
}
