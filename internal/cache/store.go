package cache

import (
	"context"
	"time"
)

// Store is the process-wide expiring key/value cache shared by sessions, rate limits,
// cached pages and export snapshots. A TTL of zero means the entry never expires.
type Store interface {
	IncrementWithTTL(ctx context.Context, key string, window time.Duration) (int64, time.Duration, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Delete(ctx context.Context, keys ...string) error
}

// Clock returns the current time. Stores accept one so expiry can be tested deterministically.
type Clock func() time.Time

func expiryFor(now time.Time, ttl time.Duration) time.Time {
	if ttl <= 0 {
		return time.Time{}
	}
	return now.Add(ttl)
}

func expired(expiresAt, now time.Time) bool {
	return !expiresAt.IsZero() && !now.Before(expiresAt)
}
