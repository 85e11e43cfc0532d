package app

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"time"

	"github.com/mitchellh/mapstructure"
	"github.com/spf13/viper"
)

// Config is the runtime configuration of the mysite backend.
type Config struct {
	Server      ServerConfig      `mapstructure:"server"`
	Database    DatabaseConfig    `mapstructure:"database"`
	Cache       CacheConfig       `mapstructure:"cache"`
	Auth        AuthConfig        `mapstructure:"auth"`
	Storage     StorageConfig     `mapstructure:"storage"`
	Shop        ShopConfig        `mapstructure:"shop"`
	Maintenance MaintenanceConfig `mapstructure:"maintenance"`
}

// ServerConfig configures the HTTP server.
type ServerConfig struct {
	Port            int           `mapstructure:"port"`
	LogLevel        string        `mapstructure:"log_level"`
	Debug           bool          `mapstructure:"debug"`
	MetricsEndpoint string        `mapstructure:"metrics_endpoint"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
	RateLimit       RateLimit     `mapstructure:"rate_limit"`
}

// RateLimit bounds requests per client address within a window.
type RateLimit struct {
	Requests int           `mapstructure:"requests"`
	Window   time.Duration `mapstructure:"window"`
}

// DatabaseConfig describes the connection for the supported drivers.
type DatabaseConfig struct {
	Driver        string        `mapstructure:"driver"`
	Path          string        `mapstructure:"path"`
	DSN           string        `mapstructure:"dsn"`
	SlowThreshold time.Duration `mapstructure:"slow_threshold"`
	Postgres      DBAuthConfig  `mapstructure:"postgres"`
	MySQL         DBAuthConfig  `mapstructure:"mysql"`
}

// DBAuthConfig holds host based connection parameters.
type DBAuthConfig struct {
	Host     string            `mapstructure:"host"`
	Port     int               `mapstructure:"port"`
	Database string            `mapstructure:"database"`
	Username string            `mapstructure:"username"`
	Password string            `mapstructure:"password"`
	Options  map[string]string `mapstructure:"options"`
}

// CacheConfig selects the shared cache backend: memory, database or redis.
type CacheConfig struct {
	Backend string           `mapstructure:"backend"`
	Redis   RedisCacheConfig `mapstructure:"redis"`
}

// RedisCacheConfig holds Redis connection options.
type RedisCacheConfig struct {
	Address  string        `mapstructure:"address"`
	Username string        `mapstructure:"username"`
	Password string        `mapstructure:"password"`
	DB       int           `mapstructure:"db"`
	TLS      bool          `mapstructure:"tls"`
	Timeout  time.Duration `mapstructure:"timeout"`
}

// AuthConfig captures authentication settings.
type AuthConfig struct {
	JWT     JWTSettings       `mapstructure:"jwt"`
	Session SessionSettings   `mapstructure:"session"`
	Local   LocalAuthSettings `mapstructure:"local"`
}

// JWTSettings configures access tokens.
type JWTSettings struct {
	Secret string        `mapstructure:"secret"`
	Issuer string        `mapstructure:"issuer"`
	TTL    time.Duration `mapstructure:"access_token_ttl"`
}

// SessionSettings configures refresh tokens.
type SessionSettings struct {
	RefreshTTL    time.Duration `mapstructure:"refresh_token_ttl"`
	RefreshLength int           `mapstructure:"refresh_token_length"`
}

// LocalAuthSettings configures password login lockout.
type LocalAuthSettings struct {
	LockoutThreshold int           `mapstructure:"lockout_threshold"`
	LockoutDuration  time.Duration `mapstructure:"lockout_duration"`
}

// StorageConfig configures where uploaded media is kept.
type StorageConfig struct {
	Driver string          `mapstructure:"driver"`
	Local  LocalStorageCfg `mapstructure:"local"`
	S3     S3StorageCfg    `mapstructure:"s3"`
}

// LocalStorageCfg stores media on disk.
type LocalStorageCfg struct {
	Root    string `mapstructure:"root"`
	BaseURL string `mapstructure:"base_url"`
}

// S3StorageCfg stores media in an S3-compatible bucket.
type S3StorageCfg struct {
	Endpoint          string        `mapstructure:"endpoint"`
	Region            string        `mapstructure:"region"`
	Bucket            string        `mapstructure:"bucket"`
	AccessKey         string        `mapstructure:"access_key"`
	SecretKey         string        `mapstructure:"secret_key"`
	UseSSL            bool          `mapstructure:"use_ssl"`
	UsePathStyle      bool          `mapstructure:"use_path_style"`
	PresignExpiration time.Duration `mapstructure:"presign_expiration"`
}

// ShopConfig tunes exports, page caches and uploads.
type ShopConfig struct {
	ExportTTL       time.Duration `mapstructure:"export_ttl"`
	CookiePageTTL   time.Duration `mapstructure:"cookie_page_ttl"`
	ProductPageTTL  time.Duration `mapstructure:"product_page_ttl"`
	MaxUploadBytes  int64         `mapstructure:"max_upload_bytes"`
	DefaultEncoding string        `mapstructure:"default_encoding"`
	ImportRetention time.Duration `mapstructure:"import_retention"`
}

// MaintenanceConfig holds cron specs for background cleanup.
type MaintenanceConfig struct {
	SessionsSpec   string `mapstructure:"sessions_spec"`
	CacheSpec      string `mapstructure:"cache_spec"`
	ImportJobsSpec string `mapstructure:"import_jobs_spec"`
}

// LoadConfig reads config.yaml from ./config and paths, then applies MYSITE_* environment overrides.
func LoadConfig(paths ...string) (*Config, error) {
	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")

	v.AddConfigPath("./config")
	for _, path := range paths {
		v.AddConfigPath(path)
	}

	setDefaults(v)

	v.SetEnvPrefix("MYSITE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	bindEnvKeys(v, reflect.TypeOf(Config{}), "")

	if err := v.ReadInConfig(); err != nil {
		var cfgErr viper.ConfigFileNotFoundError
		if !errors.As(err, &cfgErr) {
			return nil, fmt.Errorf("config: read file: %w", err)
		}
	}

	var config Config
	if err := v.Unmarshal(&config, decodeHook()); err != nil {
		return nil, fmt.Errorf("config: unmarshal: %w", err)
	}
	return &config, nil
}

// bindEnvKeys registers every leaf key of t so AutomaticEnv also reaches keys that have
// neither a default nor a value in the file. Map fields are only settable from the file.
func bindEnvKeys(v *viper.Viper, t reflect.Type, prefix string) {
	for i := 0; i < t.NumField(); i++ {
		field := t.Field(i)
		name := field.Tag.Get("mapstructure")
		if name == "" || name == "-" {
			continue
		}
		key := name
		if prefix != "" {
			key = prefix + "." + name
		}
		switch field.Type.Kind() {
		case reflect.Struct:
			bindEnvKeys(v, field.Type, key)
		case reflect.Map:
		default:
			_ = v.BindEnv(key)
		}
	}
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8000)
	v.SetDefault("server.log_level", "info")
	v.SetDefault("server.debug", false)
	v.SetDefault("server.metrics_endpoint", "/metrics")
	v.SetDefault("server.shutdown_timeout", "10s")
	v.SetDefault("server.rate_limit.requests", 300)
	v.SetDefault("server.rate_limit.window", "1m")

	v.SetDefault("database.driver", "sqlite")
	v.SetDefault("database.path", "./data/mysite.sqlite")
	v.SetDefault("database.slow_threshold", "200ms")

	v.SetDefault("cache.backend", "database")
	v.SetDefault("cache.redis.address", "127.0.0.1:6379")
	v.SetDefault("cache.redis.db", 0)
	v.SetDefault("cache.redis.timeout", "5s")

	v.SetDefault("auth.jwt.issuer", "mysite")
	v.SetDefault("auth.jwt.access_token_ttl", "15m")
	v.SetDefault("auth.session.refresh_token_ttl", "720h")
	v.SetDefault("auth.session.refresh_token_length", 48)
	v.SetDefault("auth.local.lockout_threshold", 5)
	v.SetDefault("auth.local.lockout_duration", "15m")

	v.SetDefault("storage.driver", "local")
	v.SetDefault("storage.local.root", "./data/media")
	v.SetDefault("storage.local.base_url", "/media")
	v.SetDefault("storage.s3.region", "us-east-1")
	v.SetDefault("storage.s3.presign_expiration", "15m")

	v.SetDefault("shop.export_ttl", "300s")
	v.SetDefault("shop.cookie_page_ttl", "20s")
	v.SetDefault("shop.product_page_ttl", "30s")
	v.SetDefault("shop.max_upload_bytes", 10<<20)
	v.SetDefault("shop.default_encoding", "utf-8")
	v.SetDefault("shop.import_retention", "2160h")

	v.SetDefault("maintenance.sessions_spec", "@hourly")
	v.SetDefault("maintenance.cache_spec", "@hourly")
	v.SetDefault("maintenance.import_jobs_spec", "@daily")
}

func decodeHook() viper.DecoderConfigOption {
	return func(dc *mapstructure.DecoderConfig) {
		dc.TagName = "mapstructure"
		dc.DecodeHook = mapstructure.ComposeDecodeHookFunc(
			mapstructure.StringToTimeDurationHookFunc(),
			mapstructure.StringToSliceHookFunc(","),
		)
	}
}
