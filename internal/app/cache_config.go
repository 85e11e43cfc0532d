package app

import (
	"strings"

	"github.com/mysite19/mysite/internal/cache"
)

// RedisClientConfig converts the cache section into the cache package representation.
func (c CacheConfig) RedisClientConfig() cache.RedisConfig {
	return cache.RedisConfig{
		Address:  strings.TrimSpace(c.Redis.Address),
		Username: strings.TrimSpace(c.Redis.Username),
		Password: c.Redis.Password,
		DB:       c.Redis.DB,
		TLS:      c.Redis.TLS,
		Timeout:  c.Redis.Timeout,
	}
}

// BackendName normalises the configured backend, defaulting to database.
func (c CacheConfig) BackendName() string {
	switch backend := strings.ToLower(strings.TrimSpace(c.Backend)); backend {
	case "memory", "redis", "database":
		return backend
	default:
		return "database"
	}
}
