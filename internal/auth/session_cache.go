package auth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/mysite19/mysite/internal/cache"
	"github.com/mysite19/mysite/internal/models"
)

const sessionCacheKeyPrefix = "auth:sessions:refresh:"

var errSessionCacheMiss = errors.New("session cache miss")

// SessionCache keeps sessions by refresh token so refreshes can skip the database lookup.
type SessionCache interface {
	Get(ctx context.Context, refreshToken string) (*models.Session, error)
	Set(ctx context.Context, session *models.Session, ttl time.Duration) error
	Delete(ctx context.Context, refreshToken string) error
}

// NewStoreSessionCache adapts a cache.Store. A nil store yields a nil cache.
func NewStoreSessionCache(store cache.Store) SessionCache {
	if store == nil {
		return nil
	}
	return &storeSessionCache{store: store}
}

type storeSessionCache struct {
	store cache.Store
}

func (c *storeSessionCache) Get(ctx context.Context, refreshToken string) (*models.Session, error) {
	key := sessionCacheKey(refreshToken)
	if key == "" {
		return nil, errSessionCacheMiss
	}

	data, found, err := c.store.Get(ctx, key)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, errSessionCacheMiss
	}

	var session models.Session
	if err := json.Unmarshal(data, &session); err != nil {
		return nil, fmt.Errorf("session cache: decode: %w", err)
	}
	// RefreshToken is not serialised.
	session.RefreshToken = strings.TrimSpace(refreshToken)
	return &session, nil
}

func (c *storeSessionCache) Set(ctx context.Context, session *models.Session, ttl time.Duration) error {
	if session == nil {
		return errors.New("session cache: session is nil")
	}
	key := sessionCacheKey(session.RefreshToken)
	if key == "" {
		return errors.New("session cache: refresh token missing")
	}

	payload, err := json.Marshal(session)
	if err != nil {
		return fmt.Errorf("session cache: marshal: %w", err)
	}
	if ttl <= 0 {
		ttl = time.Second
	}
	return c.store.Set(ctx, key, payload, ttl)
}

func (c *storeSessionCache) Delete(ctx context.Context, refreshToken string) error {
	key := sessionCacheKey(refreshToken)
	if key == "" {
		return nil
	}
	return c.store.Delete(ctx, key)
}

func sessionCacheKey(refreshToken string) string {
	token := strings.TrimSpace(refreshToken)
	if token == "" {
		return ""
	}
	return sessionCacheKeyPrefix + token
}
