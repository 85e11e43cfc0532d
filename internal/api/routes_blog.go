package api

import (
	"github.com/gin-gonic/gin"

	"github.com/mysite19/mysite/internal/handlers"
	"github.com/mysite19/mysite/internal/middleware"
	"github.com/mysite19/mysite/internal/permissions"
)

type blogRouteDeps struct {
	Blog    *handlers.BlogHandler
	Feeds   *handlers.FeedHandler
	Checker *permissions.Checker
}

func registerBlogRoutes(engine *gin.Engine, api *gin.RouterGroup, deps blogRouteDeps) {
	blog := api.Group("/blog")
	{
		blog.GET("/articles", deps.Blog.ListArticles)
		blog.GET("/articles/:id", deps.Blog.GetArticle)
		blog.POST("/articles", middleware.RequirePermission(deps.Checker, permissions.AddArticle), deps.Blog.CreateArticle)
		blog.POST("/authors", middleware.RequirePermission(deps.Checker, permissions.AddAuthor), deps.Blog.CreateAuthor)
		blog.GET("/authors/:id", deps.Blog.GetAuthor)
	}

	engine.GET("/blog/articles/latest/feed", deps.Feeds.Articles)
}
