package main

import (
	"context"
	"fmt"
	"os"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/mysite19/mysite/internal/api"
	"github.com/mysite19/mysite/internal/app"
	"github.com/mysite19/mysite/internal/app/maintenance"
	iauth "github.com/mysite19/mysite/internal/auth"
	"github.com/mysite19/mysite/internal/cache"
	"github.com/mysite19/mysite/internal/database"
	"github.com/mysite19/mysite/internal/storage"
	"github.com/mysite19/mysite/pkg/logger"
)

// runtimeStack bundles long-lived services used by the HTTP server.
type runtimeStack struct {
	DB         *gorm.DB
	Cache      cache.Store
	Media      storage.Storage
	SessionSvc *iauth.SessionService
	Cleaner    *maintenance.Cleaner
	Router     *gin.Engine
}

// bootstrapRuntime initialises the database, cache, media storage, services and the HTTP router.
func bootstrapRuntime(ctx context.Context, cfg *app.Config, log *zap.Logger) (*runtimeStack, error) {
	stack := &runtimeStack{}
	var err error
	success := false

	defer func() {
		if !success {
			stack.Shutdown(context.Background(), log)
		}
	}()

	if debug, _ := os.LookupEnv("GIN_DEBUG"); debug != "true" && !cfg.Server.Debug {
		gin.SetMode(gin.ReleaseMode)
	}

	stack.DB, err = initialiseDatabase(cfg)
	if err != nil {
		return nil, err
	}

	stack.Cache = selectCacheStore(ctx, cfg.Cache, stack.DB, log)

	stack.Media, err = storage.New(ctx, cfg.Storage.StorageSettings())
	if err != nil {
		return nil, fmt.Errorf("initialise media storage: %w", err)
	}

	jwtSvc, err := iauth.NewJWTService(cfg.Auth.JWTServiceConfig())
	if err != nil {
		return nil, fmt.Errorf("initialise jwt service: %w", err)
	}

	sessionCfg := cfg.Auth.SessionServiceConfig()
	sessionCfg.Cache = iauth.NewStoreSessionCache(stack.Cache)
	stack.SessionSvc, err = iauth.NewSessionService(stack.DB, jwtSvc, sessionCfg)
	if err != nil {
		return nil, fmt.Errorf("initialise session service: %w", err)
	}

	var purger maintenance.CachePurger
	if p, ok := stack.Cache.(maintenance.CachePurger); ok {
		purger = p
	}
	stack.Cleaner = maintenance.NewCleaner(stack.DB, stack.SessionSvc, purger,
		maintenance.WithImportRetention(cfg.Shop.ImportRetention),
		maintenance.WithSchedules(cfg.Maintenance.SessionsSpec, cfg.Maintenance.CacheSpec, cfg.Maintenance.ImportJobsSpec),
	)
	if err := stack.Cleaner.Start(); err != nil {
		return nil, fmt.Errorf("start maintenance jobs: %w", err)
	}

	stack.Router, err = api.NewRouter(api.Dependencies{
		DB:       stack.DB,
		JWT:      jwtSvc,
		Sessions: stack.SessionSvc,
		Config:   cfg,
		Cache:    stack.Cache,
		Media:    stack.Media,
	})
	if err != nil {
		return nil, fmt.Errorf("build api router: %w", err)
	}

	success = true
	return stack, nil
}

// selectCacheStore returns the configured cache backend. An unreachable Redis falls back
// to the database store.
func selectCacheStore(ctx context.Context, cfg app.CacheConfig, db *gorm.DB, log *zap.Logger) cache.Store {
	switch cfg.BackendName() {
	case "memory":
		log.Info("cache backend selected", zap.String("backend", "memory"))
		return cache.NewMemoryStore()
	case "redis":
		store, err := cache.NewRedisStore(ctx, cfg.RedisClientConfig(), cache.WithRedisLogger(logger.WithModule("cache")))
		if err == nil {
			log.Info("redis connected", zap.String("addr", cfg.Redis.Address))
			return store
		}
		log.Warn("redis unavailable; falling back to database cache", zap.Error(err))
	}
	log.Info("cache backend selected", zap.String("backend", "database"))
	return cache.NewDatabaseStore(db, nil)
}

// Shutdown gracefully stops background jobs and releases resources.
func (s *runtimeStack) Shutdown(ctx context.Context, log *zap.Logger) {
	if s == nil {
		return
	}

	if s.Cleaner != nil {
		stopCtx := s.Cleaner.Stop()
		if stopCtx != nil {
			<-stopCtx.Done()
		}
		if err := s.Cleaner.RunOnce(ctx); err != nil {
			log.Warn("maintenance shutdown cleanup failed", zap.Error(err))
		}
	}

	if rs, ok := s.Cache.(*cache.RedisStore); ok && rs != nil {
		if err := rs.Close(); err != nil {
			log.Warn("redis shutdown", zap.Error(err))
		}
	}

	if s.DB != nil {
		closeDatabase(s.DB, log)
	}
}

func initialiseDatabase(cfg *app.Config) (*gorm.DB, error) {
	dbCfg := convertDatabaseConfig(cfg)
	db, err := database.Open(dbCfg)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	if err := database.AutoMigrateAndSeed(db); err != nil {
		return nil, fmt.Errorf("auto-migrate database: %w", err)
	}

	log := logger.WithModule("database")
	log.Info("database connected", zap.String("driver", dbCfg.Driver))

	return db, nil
}

func convertDatabaseConfig(cfg *app.Config) database.Config {
	dbCfg := cfg.Database.DatabaseSettings()
	dbCfg.Logger = database.NewGormLogger(
		logger.WithModule("gorm"),
		database.GormLogLevel(cfg.Server.LogLevel),
		cfg.Database.SlowThreshold,
	)
	return dbCfg
}

func closeDatabase(db *gorm.DB, log *zap.Logger) {
	if err := database.Close(db); err != nil {
		log.Warn("failed to close database", zap.Error(err))
	}
}
