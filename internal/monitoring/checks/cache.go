package checks

import (
	"bytes"
	"context"
	"errors"
	"time"

	"github.com/mysite19/mysite/internal/cache"
	"github.com/mysite19/mysite/internal/monitoring"
)

const (
	defaultCacheTimeout = 2 * time.Second
	cacheProbeKey       = "health:probe"
)

// Pinger is implemented by cache backends with a native liveness command.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Cache returns a readiness probe for the shared cache. Backends that implement Pinger are
// pinged; others get a short-lived write and read back. A failing cache only degrades
// readiness because every cache consumer treats errors as misses.
func Cache(store cache.Store, timeout time.Duration) monitoring.Check {
	return monitoring.NewCheck("cache", func(ctx context.Context) monitoring.ProbeResult {
		start := time.Now()
		if store == nil {
			return monitoring.ProbeResult{Status: monitoring.StatusDegraded, Details: "cache not configured"}
		}

		probeCtx, cancel := context.WithTimeout(ctx, chooseTimeout(timeout, defaultCacheTimeout))
		defer cancel()

		err := roundTrip(probeCtx, store)
		result := monitoring.ResultFromError("cache", err, time.Since(start))
		if result.Status == monitoring.StatusDown {
			result.Status = monitoring.StatusDegraded
		}
		return result
	})
}

func roundTrip(ctx context.Context, store cache.Store) error {
	if p, ok := store.(Pinger); ok {
		return p.Ping(ctx)
	}

	value := []byte(time.Now().UTC().Format(time.RFC3339Nano))
	if err := store.Set(ctx, cacheProbeKey, value, time.Minute); err != nil {
		return err
	}
	got, ok, err := store.Get(ctx, cacheProbeKey)
	if err != nil {
		return err
	}
	if !ok || !bytes.Equal(got, value) {
		return errors.New("cache probe value was not read back")
	}
	return nil
}
