package api

import (
	"errors"
	"fmt"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"gorm.io/gorm"

	"github.com/mysite19/mysite/internal/app"
	iauth "github.com/mysite19/mysite/internal/auth"
	"github.com/mysite19/mysite/internal/cache"
	"github.com/mysite19/mysite/internal/exchange"
	"github.com/mysite19/mysite/internal/handlers"
	"github.com/mysite19/mysite/internal/middleware"
	"github.com/mysite19/mysite/internal/monitoring"
	"github.com/mysite19/mysite/internal/monitoring/checks"
	"github.com/mysite19/mysite/internal/permissions"
	"github.com/mysite19/mysite/internal/services"
	"github.com/mysite19/mysite/internal/storage"
)

const (
	defaultRateLimitRequests = 300
	defaultRateLimitWindow   = time.Minute
)

// Dependencies are the shared components the router wires into handlers.
type Dependencies struct {
	DB       *gorm.DB
	JWT      *iauth.JWTService
	Sessions *iauth.SessionService
	Config   *app.Config
	// Cache backs rate limits, cached pages and export snapshots.
	Cache cache.Store
	// Media keeps product images and avatars. Nil disables uploads.
	Media storage.Storage
}

// NewRouter builds the Gin engine, wires middleware and registers the shop, blog and
// accounts routes.
func NewRouter(deps Dependencies) (*gin.Engine, error) {
	if deps.DB == nil {
		return nil, errors.New("database handle must be provided")
	}
	if deps.JWT == nil {
		return nil, errors.New("jwt service must be provided")
	}
	if deps.Sessions == nil {
		return nil, errors.New("session service must be provided")
	}
	if deps.Config == nil {
		return nil, errors.New("config must be provided")
	}
	if deps.Cache == nil {
		return nil, errors.New("cache store must be provided")
	}
	cfg := deps.Config

	metricsPath := cfg.Server.MetricsEndpoint
	if metricsPath == "" {
		metricsPath = "/metrics"
	}
	limit, window := cfg.Server.RateLimit.Requests, cfg.Server.RateLimit.Window
	if limit <= 0 {
		limit = defaultRateLimitRequests
	}
	if window <= 0 {
		window = defaultRateLimitWindow
	}

	r := gin.New()

	// Global middleware
	r.Use(middleware.Recovery())
	r.Use(middleware.Logger())
	r.Use(middleware.Metrics(metricsPath))
	r.Use(middleware.SecurityHeaders())
	r.Use(middleware.CORS())
	r.Use(middleware.RateLimit(deps.Cache, limit, window))

	checker, err := permissions.NewChecker(deps.DB)
	if err != nil {
		return nil, err
	}
	svc, err := newServiceSet(deps)
	if err != nil {
		return nil, err
	}

	feeds := handlers.NewFeedHandler(svc.products, svc.blog)
	requireAuth := middleware.Auth(deps.JWT)
	api := r.Group("/api")
	protected := api.Group("")
	protected.Use(requireAuth)

	health := monitoring.NewHealthManager()
	health.RegisterReadiness(checks.Database(deps.DB, 0))
	health.RegisterReadiness(checks.Cache(deps.Cache, 0))
	registerHealthRoutes(r, health)
	registerShopRoutes(r, protected, shopRouteDeps{
		Products:       handlers.NewProductHandler(svc.products, svc.imports, checker),
		Orders:         handlers.NewOrderHandler(svc.orders, svc.imports, svc.reports, checker),
		Imports:        handlers.NewImportHandler(svc.imports),
		Exports:        handlers.NewExportHandler(svc.exports),
		Feeds:          feeds,
		Checker:        checker,
		RequireAuth:    requireAuth,
		PageCache:      deps.Cache,
		ProductPageTTL: cfg.Shop.ProductPageTTL,
		MaxUploadBytes: cfg.Shop.MaxUploadBytes,
	})
	registerBlogRoutes(r, protected, blogRouteDeps{
		Blog:    handlers.NewBlogHandler(svc.blog),
		Feeds:   feeds,
		Checker: checker,
	})
	registerAccountRoutes(r, api, protected, accountRouteDeps{
		Auth:           handlers.NewAuthHandler(deps.DB, svc.accounts, deps.Sessions, checker, cfg.Auth.LocalProviderConfig()),
		Profiles:       handlers.NewProfileHandler(svc.profiles),
		Groups:         handlers.NewGroupHandler(svc.groups),
		Checker:        checker,
		PageCache:      deps.Cache,
		CookiePageTTL:  cfg.Shop.CookiePageTTL,
		MaxUploadBytes: cfg.Shop.MaxUploadBytes,
	})
	r.GET("/sitemap.xml", handlers.NewSitemapHandler(svc.products, svc.blog).Get)

	// Metrics endpoint
	r.GET(metricsPath, gin.WrapH(promhttp.Handler()))

	// NotFound fallback
	r.NoRoute(middleware.NotFoundHandler)

	return r, nil
}

type serviceSet struct {
	products *services.ProductService
	orders   *services.OrderService
	imports  *services.ImportService
	exports  *services.ShopExportService
	reports  *services.ReportService
	blog     *services.BlogService
	accounts *services.AccountService
	profiles *services.ProfileService
	groups   *services.GroupService
}

func newServiceSet(deps Dependencies) (*serviceSet, error) {
	var (
		set serviceSet
		err error
	)
	if set.products, err = services.NewProductService(deps.DB, deps.Media); err != nil {
		return nil, fmt.Errorf("product service: %w", err)
	}
	if set.orders, err = services.NewOrderService(deps.DB); err != nil {
		return nil, fmt.Errorf("order service: %w", err)
	}
	if set.imports, err = services.NewImportService(deps.DB, services.WithDefaultEncoding(deps.Config.Shop.DefaultEncoding)); err != nil {
		return nil, fmt.Errorf("import service: %w", err)
	}
	snapshots := exchange.NewSnapshotCache(deps.Cache)
	if set.exports, err = services.NewShopExportService(deps.DB, snapshots, deps.Config.Shop.ExportTTL); err != nil {
		return nil, fmt.Errorf("export service: %w", err)
	}
	if set.reports, err = services.NewReportService(deps.DB); err != nil {
		return nil, fmt.Errorf("report service: %w", err)
	}
	if set.blog, err = services.NewBlogService(deps.DB); err != nil {
		return nil, fmt.Errorf("blog service: %w", err)
	}
	if set.accounts, err = services.NewAccountService(deps.DB, deps.Media); err != nil {
		return nil, fmt.Errorf("account service: %w", err)
	}
	if set.profiles, err = services.NewProfileService(deps.DB, deps.Media); err != nil {
		return nil, fmt.Errorf("profile service: %w", err)
	}
	if set.groups, err = services.NewGroupService(deps.DB); err != nil {
		return nil, fmt.Errorf("group service: %w", err)
	}
	return &set, nil
}
