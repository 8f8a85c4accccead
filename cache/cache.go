// Package cache defines the result cache the pipeline consumes. Values are
// opaque serialized bytes; keying is a versioned fingerprint of the query so
// that prompt or schema changes invalidate stale entries without a purge.
package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sync"
	"time"
)

// KeyVersion is the pipeline version tag baked into every query key. Bump it
// when prompts, schemas, or the component constraint table change.
const KeyVersion = "v1"

// Cache defines the interface for result caching.
type Cache interface {
	// Get returns the cached value for key, or nil when absent.
	Get(ctx context.Context, key string) ([]byte, error)

	// Set stores value under key with the given TTL. A zero TTL means no
	// expiration.
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error

	// Delete removes the cached value for key.
	Delete(ctx context.Context, key string) error
}

// QueryKey computes the cache key for a query. filters is the canonical
// serialized form of the query filters, empty when no filters apply.
func QueryKey(text, filters string) string {
	keyStr := text
	if filters != "" {
		keyStr += "|" + filters
	}
	sum := sha256.Sum256([]byte(keyStr))
	return fmt.Sprintf("rag:query:%s:%s", KeyVersion, hex.EncodeToString(sum[:])[:16])
}

type memoryEntry struct {
	value     []byte
	expiresAt time.Time
}

// MemoryCache implements Cache using in-memory storage. Suitable for tests
// and single-process deployments.
type MemoryCache struct {
	entries map[string]memoryEntry
	mu      sync.RWMutex
}

// NewMemoryCache creates a new in-memory cache
func NewMemoryCache() *MemoryCache {
	return &MemoryCache{
		entries: make(map[string]memoryEntry),
	}
}

// Get returns the cached value for key, or nil when absent or expired.
func (c *MemoryCache) Get(ctx context.Context, key string) ([]byte, error) {
	c.mu.RLock()
	entry, ok := c.entries[key]
	c.mu.RUnlock()

	if !ok {
		return nil, nil
	}
	if !entry.expiresAt.IsZero() && time.Now().After(entry.expiresAt) {
		c.mu.Lock()
		delete(c.entries, key)
		c.mu.Unlock()
		return nil, nil
	}

	out := make([]byte, len(entry.value))
	copy(out, entry.value)
	return out, nil
}

// Set stores value under key with the given TTL.
func (c *MemoryCache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	stored := make([]byte, len(value))
	copy(stored, value)

	entry := memoryEntry{value: stored}
	if ttl > 0 {
		entry.expiresAt = time.Now().Add(ttl)
	}

	c.mu.Lock()
	c.entries[key] = entry
	c.mu.Unlock()
	return nil
}

// Delete removes the cached value for key.
func (c *MemoryCache) Delete(ctx context.Context, key string) error {
	c.mu.Lock()
	delete(c.entries, key)
	c.mu.Unlock()
	return nil
}
