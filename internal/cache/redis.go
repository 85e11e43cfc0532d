package cache

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const (
	defaultRedisTimeout = 5 * time.Second
	redisKeyPrefix      = "mysite:"
)

// RedisConfig captures the connection parameters for the Redis backend.
type RedisConfig struct {
	Address  string
	Username string
	Password string
	DB       int
	TLS      bool
	Timeout  time.Duration
}

// RedisStore implements Store on top of go-redis. Keys are namespaced with a common prefix.
type RedisStore struct {
	client *redis.Client
	logger *zap.Logger
}

// RedisOption configures a RedisStore.
type RedisOption func(*RedisStore)

// WithRedisLogger attaches a logger used for diagnostics.
func WithRedisLogger(logger *zap.Logger) RedisOption {
	return func(s *RedisStore) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// NewRedisStore connects to Redis and verifies the connection with PING so that
// misconfiguration is surfaced at start-up.
func NewRedisStore(ctx context.Context, cfg RedisConfig, opts ...RedisOption) (*RedisStore, error) {
	cfg.Address = strings.TrimSpace(cfg.Address)
	if cfg.Address == "" {
		return nil, errors.New("redis: address is required")
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultRedisTimeout
	}

	options := &redis.Options{
		Addr:         cfg.Address,
		Username:     cfg.Username,
		Password:     cfg.Password,
		DB:           cfg.DB,
		DialTimeout:  cfg.Timeout,
		ReadTimeout:  cfg.Timeout,
		WriteTimeout: cfg.Timeout,
	}
	if cfg.TLS {
		options.TLSConfig = &tls.Config{MinVersion: tls.VersionTLS12}
	}

	store := NewRedisStoreWithClient(redis.NewClient(options), opts...)

	pingCtx, cancel := context.WithTimeout(ctx, cfg.Timeout)
	defer cancel()
	if err := store.client.Ping(pingCtx).Err(); err != nil {
		_ = store.client.Close()
		return nil, fmt.Errorf("redis: ping %s: %w", cfg.Address, err)
	}

	return store, nil
}

// NewRedisStoreWithClient wraps an existing client. The caller keeps ownership of the client.
func NewRedisStoreWithClient(client *redis.Client, opts ...RedisOption) *RedisStore {
	store := &RedisStore{client: client, logger: zap.NewNop()}
	for _, opt := range opts {
		opt(store)
	}
	return store
}

// Close closes the underlying client.
func (s *RedisStore) Close() error {
	return s.client.Close()
}

// IncrementWithTTL increments key and sets its expiry on the first hit of a window.
func (s *RedisStore) IncrementWithTTL(ctx context.Context, key string, window time.Duration) (int64, time.Duration, error) {
	if window <= 0 {
		window = time.Minute
	}
	k := prefixed(key)

	count, err := s.client.Incr(ctx, k).Result()
	if err != nil {
		return 0, 0, fmt.Errorf("redis: incr: %w", err)
	}
	if count == 1 {
		if err := s.client.PExpire(ctx, k, window).Err(); err != nil {
			return 0, 0, fmt.Errorf("redis: pexpire: %w", err)
		}
		return count, window, nil
	}

	ttl, err := s.client.PTTL(ctx, k).Result()
	if err != nil {
		return 0, 0, fmt.Errorf("redis: pttl: %w", err)
	}
	if ttl < 0 {
		// key lost its expiry; restart the window
		if err := s.client.PExpire(ctx, k, window).Err(); err != nil {
			return 0, 0, fmt.Errorf("redis: pexpire: %w", err)
		}
		ttl = window
	}
	return count, ttl, nil
}

// Set stores value with the given TTL. A zero TTL keeps the key until deleted.
func (s *RedisStore) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if ttl < 0 {
		ttl = 0
	}
	if err := s.client.Set(ctx, prefixed(key), value, ttl).Err(); err != nil {
		return fmt.Errorf("redis: set: %w", err)
	}
	return nil
}

// Get returns the value stored at key. redis.Nil is reported as a miss.
func (s *RedisStore) Get(ctx context.Context, key string) ([]byte, bool, error) {
	data, err := s.client.Get(ctx, prefixed(key)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		s.logger.Debug("redis get failed", zap.String("key", key), zap.Error(err))
		return nil, false, fmt.Errorf("redis: get: %w", err)
	}
	return data, true, nil
}

// Delete removes keys.
func (s *RedisStore) Delete(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	prefixedKeys := make([]string, 0, len(keys))
	for _, key := range keys {
		prefixedKeys = append(prefixedKeys, prefixed(key))
	}
	if err := s.client.Del(ctx, prefixedKeys...).Err(); err != nil {
		return fmt.Errorf("redis: del: %w", err)
	}
	return nil
}

// Ping reports whether the server is reachable.
func (s *RedisStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

func prefixed(key string) string {
	key = strings.TrimSpace(key)
	if strings.HasPrefix(key, redisKeyPrefix) {
		return key
	}
	return redisKeyPrefix + key
}
