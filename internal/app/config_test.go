package app

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/mysite19/mysite/internal/auth"
	"github.com/mysite19/mysite/internal/auth/providers"
)

func TestLoadConfigFromFile(t *testing.T) {
	cfg, err := LoadConfig("testdata")
	require.NoError(t, err)

	require.Equal(t, 9090, cfg.Server.Port)
	require.Equal(t, "debug", cfg.Server.LogLevel)
	require.Equal(t, 50, cfg.Server.RateLimit.Requests)
	require.Equal(t, 30*time.Second, cfg.Server.RateLimit.Window)
	require.Equal(t, "/metrics", cfg.Server.MetricsEndpoint)

	require.Equal(t, "postgres", cfg.Database.Driver)
	require.Equal(t, "db.example.com", cfg.Database.Postgres.Host)
	require.Equal(t, "disable", cfg.Database.Postgres.Options["sslmode"])

	require.Equal(t, "redis", cfg.Cache.BackendName())
	require.Equal(t, 2, cfg.Cache.Redis.DB)
	require.Equal(t, 2*time.Second, cfg.Cache.Redis.Timeout)

	require.Equal(t, "jwt-secret", cfg.Auth.JWT.Secret)
	require.Equal(t, "mysite", cfg.Auth.JWT.Issuer)
	require.Equal(t, 30*time.Minute, cfg.Auth.JWT.TTL)
	require.Equal(t, 1440*time.Hour, cfg.Auth.Session.RefreshTTL)
	require.Equal(t, 7, cfg.Auth.Local.LockoutThreshold)

	require.Equal(t, "s3", cfg.Storage.Driver)
	require.Equal(t, "media", cfg.Storage.S3.Bucket)
	require.True(t, cfg.Storage.S3.UsePathStyle)
	require.Equal(t, 15*time.Minute, cfg.Storage.S3.PresignExpiration)

	require.Equal(t, 120*time.Second, cfg.Shop.ExportTTL)
	require.Equal(t, 20*time.Second, cfg.Shop.CookiePageTTL)
	require.Equal(t, 30*time.Second, cfg.Shop.ProductPageTTL)
	require.EqualValues(t, 1<<20, cfg.Shop.MaxUploadBytes)
	require.Equal(t, "windows-1251", cfg.Shop.DefaultEncoding)
	require.Equal(t, 90*24*time.Hour, cfg.Shop.ImportRetention)

	require.Equal(t, "@hourly", cfg.Maintenance.SessionsSpec)
	require.Equal(t, "0 3 * * *", cfg.Maintenance.ImportJobsSpec)
}

func TestLoadConfigEnvOverride(t *testing.T) {
	t.Setenv("MYSITE_SERVER_PORT", "7000")
	t.Setenv("MYSITE_CACHE_BACKEND", "memory")

	cfg, err := LoadConfig("testdata")
	require.NoError(t, err)
	require.Equal(t, 7000, cfg.Server.Port)
	require.Equal(t, "memory", cfg.Cache.BackendName())
}

func TestLoadConfigEnvReachesKeysWithoutDefaults(t *testing.T) {
	t.Setenv("MYSITE_DATABASE_DSN", "postgres://shop@db/mysite")
	t.Setenv("MYSITE_STORAGE_S3_BUCKET", "media")
	t.Setenv("MYSITE_AUTH_JWT_SECRET", "from-env")

	cfg, err := LoadConfig(t.TempDir())
	require.NoError(t, err)
	require.Equal(t, "postgres://shop@db/mysite", cfg.Database.DSN)
	require.Equal(t, "media", cfg.Storage.S3.Bucket)
	require.Equal(t, "from-env", cfg.Auth.JWT.Secret)
	require.Equal(t, "sqlite", cfg.Database.Driver)
}

func TestLoadConfigDefaultsWithoutFile(t *testing.T) {
	cfg, err := LoadConfig(t.TempDir())
	require.NoError(t, err)
	require.Equal(t, 8000, cfg.Server.Port)
	require.Equal(t, "sqlite", cfg.Database.Driver)
	require.Equal(t, "database", cfg.Cache.BackendName())
	require.Equal(t, "local", cfg.Storage.Driver)
	require.Equal(t, 300*time.Second, cfg.Shop.ExportTTL)
}

func TestAuthConfigAdapters(t *testing.T) {
	cfg := AuthConfig{
		JWT:     JWTSettings{Secret: "secret", Issuer: "issuer", TTL: 30 * time.Minute},
		Session: SessionSettings{RefreshTTL: 10 * time.Hour, RefreshLength: 32},
		Local:   LocalAuthSettings{LockoutThreshold: 4, LockoutDuration: 10 * time.Minute},
	}

	require.Equal(t, auth.JWTConfig{Secret: "secret", Issuer: "issuer", AccessTokenTTL: 30 * time.Minute}, cfg.JWTServiceConfig())
	require.Equal(t, auth.SessionConfig{RefreshTokenTTL: 10 * time.Hour, RefreshLength: 32}, cfg.SessionServiceConfig())
	require.Equal(t, providers.LocalConfig{LockoutThreshold: 4, LockoutDuration: 10 * time.Minute}, cfg.LocalProviderConfig())
}

func TestAuthConfigAdaptersFallback(t *testing.T) {
	var cfg AuthConfig
	require.Equal(t, auth.DefaultAccessTokenTTL, cfg.JWTServiceConfig().AccessTokenTTL)
	require.Equal(t, auth.DefaultRefreshTokenTTL, cfg.SessionServiceConfig().RefreshTokenTTL)
	require.Equal(t, 48, cfg.SessionServiceConfig().RefreshLength)
	require.Equal(t, defaultLockoutThreshold, cfg.LocalProviderConfig().LockoutThreshold)
	require.Equal(t, defaultLockoutDuration, cfg.LocalProviderConfig().LockoutDuration)
}

func TestDatabaseSettingsSelectsDriverSection(t *testing.T) {
	cfg := DatabaseConfig{
		Driver: "MySQL",
		MySQL:  DBAuthConfig{Host: "mysql", Port: 3306, Database: "shop", Username: "u", Password: "p"},
		Postgres: DBAuthConfig{
			Host: "ignored",
		},
	}
	settings := cfg.DatabaseSettings()
	require.Equal(t, "mysql", settings.Driver)
	require.Equal(t, "mysql", settings.Host)
	require.Equal(t, "shop", settings.Name)

	sqlite := DatabaseConfig{Driver: "sqlite", Path: "x.db"}.DatabaseSettings()
	require.Equal(t, "x.db", sqlite.Path)
	require.Empty(t, sqlite.Host)
}

func TestStorageSettings(t *testing.T) {
	cfg := StorageConfig{Driver: "s3", S3: S3StorageCfg{Bucket: "media", Region: "eu-west-1"}}
	settings := cfg.StorageSettings()
	require.Equal(t, "s3", settings.Driver)
	require.Equal(t, "media", settings.S3.Bucket)
	require.Equal(t, "eu-west-1", settings.S3.Region)
}

func TestRedisClientConfig(t *testing.T) {
	cfg := CacheConfig{Redis: RedisCacheConfig{Address: " redis:6379 ", DB: 3}}
	rc := cfg.RedisClientConfig()
	require.Equal(t, "redis:6379", rc.Address)
	require.Equal(t, 3, rc.DB)
	require.Equal(t, "database", CacheConfig{Backend: "memcached"}.BackendName())
}
