package models

import "time"

// CacheEntry is one row of the database-backed cache. A zero ExpiresAt never expires.
type CacheEntry struct {
	Key       string `gorm:"primaryKey;size:256"`
	Value     []byte
	ExpiresAt time.Time `gorm:"index"`
	CreatedAt time.Time
	UpdatedAt time.Time
}
