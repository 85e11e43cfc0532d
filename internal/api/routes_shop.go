package api

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/mysite19/mysite/internal/cache"
	"github.com/mysite19/mysite/internal/handlers"
	"github.com/mysite19/mysite/internal/middleware"
	"github.com/mysite19/mysite/internal/permissions"
)

type shopRouteDeps struct {
	Products       *handlers.ProductHandler
	Orders         *handlers.OrderHandler
	Imports        *handlers.ImportHandler
	Exports        *handlers.ExportHandler
	Feeds          *handlers.FeedHandler
	Checker        *permissions.Checker
	RequireAuth    gin.HandlerFunc
	PageCache      cache.Store
	ProductPageTTL time.Duration
	MaxUploadBytes int64
}

func registerShopRoutes(engine *gin.Engine, api *gin.RouterGroup, deps shopRouteDeps) {
	pageCache := middleware.CachePage(deps.PageCache, deps.ProductPageTTL)
	upload := middleware.MaxBodySize(deps.MaxUploadBytes)

	products := api.Group("/shop/products")
	{
		products.GET("", pageCache, deps.Products.List)
		products.POST("", middleware.RequirePermission(deps.Checker, permissions.AddProduct), deps.Products.Create)
		products.GET("/download_csv", middleware.RequirePermission(deps.Checker, permissions.ViewProduct), deps.Products.DownloadCSV)
		products.POST("/upload_csv", upload, middleware.RequirePermission(deps.Checker, permissions.AddProduct), deps.Products.UploadCSV)
		products.POST("/archive", middleware.RequireStaff(deps.Checker), deps.Products.BulkArchive)
		products.POST("/unarchive", middleware.RequireStaff(deps.Checker), deps.Products.BulkUnarchive)
		products.GET("/:id", pageCache, deps.Products.Get)
		products.PUT("/:id", middleware.RequirePermission(deps.Checker, permissions.ChangeProduct), deps.Products.Update)
		products.DELETE("/:id", middleware.RequirePermission(deps.Checker, permissions.ChangeProduct), deps.Products.Archive)
		products.DELETE("/:id/purge", middleware.RequirePermission(deps.Checker, permissions.DeleteProduct), deps.Products.Purge)
		products.PUT("/:id/preview", upload, middleware.RequirePermission(deps.Checker, permissions.ChangeProduct), deps.Products.UploadPreview)
		products.POST("/:id/images", upload, middleware.RequirePermission(deps.Checker, permissions.ChangeProduct), deps.Products.UploadImages)
	}

	orders := api.Group("/shop/orders")
	{
		orders.GET("", middleware.RequirePermission(deps.Checker, permissions.ViewOrder), deps.Orders.List)
		orders.POST("", middleware.RequirePermission(deps.Checker, permissions.AddOrder), deps.Orders.Create)
		orders.GET("/totals", middleware.RequirePermission(deps.Checker, permissions.ViewOrder), deps.Orders.Totals)
		orders.POST("/upload_csv", upload, middleware.RequirePermission(deps.Checker, permissions.AddOrder), deps.Orders.UploadCSV)
		orders.GET("/:id", middleware.RequirePermission(deps.Checker, permissions.ViewOrder), deps.Orders.Get)
		orders.PUT("/:id", middleware.RequirePermission(deps.Checker, permissions.ChangeOrder), deps.Orders.Update)
		orders.DELETE("/:id", middleware.RequirePermission(deps.Checker, permissions.DeleteOrder), deps.Orders.Delete)
	}
	api.GET("/shop/users/:user_id/orders", middleware.RequirePermission(deps.Checker, permissions.ViewOrder), deps.Orders.ListForUser)
	api.GET("/shop/imports", deps.Imports.List)

	shop := engine.Group("/shop")
	{
		shop.GET("/products/export", deps.Exports.Products)
		shop.GET("/products/latest/feed", deps.Feeds.Products)
		shop.GET("/users/:user_id/orders/export", deps.RequireAuth, middleware.RequirePermission(deps.Checker, permissions.ViewOrder), deps.Exports.OwnerOrders)
	}
}
