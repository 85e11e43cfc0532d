package cache

import (
	"context"
	"strconv"
	"sync"
	"time"
)

type memoryEntry struct {
	value     []byte
	expiresAt time.Time
}

// MemoryStore keeps entries in process memory. It is the default backend for a single
// instance deployment and the store used by tests.
type MemoryStore struct {
	mu      sync.Mutex
	entries map[string]memoryEntry
	now     Clock
}

// MemoryOption configures a MemoryStore.
type MemoryOption func(*MemoryStore)

// WithClock overrides the time source used for expiry.
func WithClock(clock Clock) MemoryOption {
	return func(s *MemoryStore) {
		if clock != nil {
			s.now = clock
		}
	}
}

// NewMemoryStore constructs an empty in-memory store.
func NewMemoryStore(opts ...MemoryOption) *MemoryStore {
	s := &MemoryStore{
		entries: make(map[string]memoryEntry),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// IncrementWithTTL increments the counter stored at key. The window starts with the first hit.
func (s *MemoryStore) IncrementWithTTL(_ context.Context, key string, window time.Duration) (int64, time.Duration, error) {
	if window <= 0 {
		window = time.Minute
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	entry, ok := s.entries[key]
	if !ok || expired(entry.expiresAt, now) {
		s.entries[key] = memoryEntry{value: []byte("1"), expiresAt: now.Add(window)}
		return 1, window, nil
	}

	current, _ := strconv.ParseInt(string(entry.value), 10, 64)
	current++
	entry.value = []byte(strconv.FormatInt(current, 10))
	s.entries[key] = entry
	return current, entry.expiresAt.Sub(now), nil
}

// Set stores a copy of value. Concurrent writers to the same key are last-write-wins.
func (s *MemoryStore) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	buf := make([]byte, len(value))
	copy(buf, value)

	s.mu.Lock()
	defer s.mu.Unlock()

	s.entries[key] = memoryEntry{value: buf, expiresAt: expiryFor(s.now(), ttl)}
	return nil
}

// Get returns a copy of the value stored at key. Expired entries are evicted and reported as absent.
func (s *MemoryStore) Get(_ context.Context, key string) ([]byte, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry, ok := s.entries[key]
	if !ok {
		return nil, false, nil
	}
	if expired(entry.expiresAt, s.now()) {
		delete(s.entries, key)
		return nil, false, nil
	}

	buf := make([]byte, len(entry.value))
	copy(buf, entry.value)
	return buf, true, nil
}

// Delete removes keys from the store.
func (s *MemoryStore) Delete(_ context.Context, keys ...string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, key := range keys {
		delete(s.entries, key)
	}
	return nil
}

// PurgeExpired drops every expired entry and returns how many were removed.
func (s *MemoryStore) PurgeExpired(_ context.Context) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	var removed int64
	for key, entry := range s.entries {
		if expired(entry.expiresAt, now) {
			delete(s.entries, key)
			removed++
		}
	}
	return removed, nil
}
