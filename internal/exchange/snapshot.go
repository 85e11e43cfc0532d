package exchange

import (
	"context"
	"encoding/json"
	"time"

	"go.uber.org/zap"

	"github.com/mysite19/mysite/internal/cache"
	"github.com/mysite19/mysite/pkg/logger"
	"github.com/mysite19/mysite/pkg/metrics"
)

const (
	// ProductsSnapshotKey caches the full product export.
	ProductsSnapshotKey = "products_data_export"
	// SnapshotTTL is how long an export snapshot is served before it is rebuilt.
	SnapshotTTL = 300 * time.Second
)

// OwnerOrdersSnapshotKey caches one user's order export.
func OwnerOrdersSnapshotKey(userID string) string {
	return "orders_owner_export_" + userID
}

// SnapshotCache memoises serialised exports. Within the TTL every call returns the exact
// bytes produced by the first build; cache failures degrade to rebuilding.
type SnapshotCache struct {
	store cache.Store
	log   *zap.Logger
}

// NewSnapshotCache wraps store. A nil store disables caching.
func NewSnapshotCache(store cache.Store) *SnapshotCache {
	return &SnapshotCache{store: store, log: logger.WithModule("exchange.snapshot")}
}

// Get returns the cached snapshot under key, or builds, encodes and stores a fresh one.
// hit reports whether the bytes came from the cache.
func (s *SnapshotCache) Get(ctx context.Context, key, export string, ttl time.Duration, build func(ctx context.Context) (any, error)) (payload []byte, hit bool, err error) {
	if s != nil && s.store != nil {
		cached, ok, getErr := s.store.Get(ctx, key)
		switch {
		case getErr != nil:
			metrics.ExportCache.WithLabelValues(export, "error").Inc()
			s.log.Warn("snapshot cache read failed", zap.String("key", key), zap.Error(getErr))
		case ok:
			metrics.ExportCache.WithLabelValues(export, "hit").Inc()
			return cached, true, nil
		}
	}
	metrics.ExportCache.WithLabelValues(export, "miss").Inc()

	value, err := build(ctx)
	if err != nil {
		return nil, false, err
	}
	payload, err = json.Marshal(value)
	if err != nil {
		return nil, false, err
	}

	if s != nil && s.store != nil {
		if setErr := s.store.Set(ctx, key, payload, ttl); setErr != nil {
			s.log.Warn("snapshot cache write failed", zap.String("key", key), zap.Error(setErr))
		}
	}
	return payload, false, nil
}
