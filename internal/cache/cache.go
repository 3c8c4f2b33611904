// Package cache provides run-scoped memoization for fetched pages.
package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"time"
)

// Cache is a byte-value cache keyed by string.
type Cache interface {
	Get(key string) ([]byte, bool)
	Set(key string, value []byte, ttl time.Duration) error
	Delete(key string) error
	Clear() error
}

// Key derives a cache key from a normalized URL.
func Key(url string) string {
	sum := sha256.Sum256([]byte(url))
	return "siteintel:v1:" + hex.EncodeToString(sum[:])
}
