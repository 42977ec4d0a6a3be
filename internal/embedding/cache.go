package embedding

import (
	"fmt"
	"sync"
	"time"
)

// cachedVector is one content-hash-keyed cache entry.
type cachedVector struct {
	ModelVersion string
	Vector       []float64
	GeneratedAt  time.Time
	AccessCount  int64
	LastAccess   time.Time
}

// Cache is a thread-safe, content-hash-keyed embedding cache attached to
// the engine, per the design note that replaces decorator-based caching
// with an explicit LRU owned by C1. Eviction is a naive O(n) scan over
// LastAccess rather than a proper O(1) list-based LRU — carried over
// as-is from the policy-embedding cache this is generalized from.
type Cache struct {
	entries map[string]*cachedVector
	mu      sync.RWMutex

	hits      int64
	misses    int64
	evictions int64
	total     int64

	maxEntries int
	ttl        time.Duration
}

// CacheConfig configures the embedding cache. MaxEntries=0 means
// unlimited; TTL=0 means entries never expire on their own.
type CacheConfig struct {
	MaxEntries int
	TTL        time.Duration
}

func DefaultCacheConfig() CacheConfig {
	return CacheConfig{MaxEntries: 10000, TTL: 24 * time.Hour}
}

func NewCache(cfg CacheConfig) *Cache {
	return &Cache{
		entries:    make(map[string]*cachedVector),
		maxEntries: cfg.MaxEntries,
		ttl:        cfg.TTL,
	}
}

// GetWithVersion returns the cached vector for hash if present, not
// expired, and generated under modelVersion.
func (c *Cache) GetWithVersion(hash string, modelVersion string) ([]float64, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	entry, ok := c.entries[hash]
	if !ok {
		c.misses++
		return nil, false
	}
	if entry.ModelVersion != modelVersion {
		delete(c.entries, hash)
		c.misses++
		c.evictions++
		return nil, false
	}
	if c.ttl > 0 && time.Since(entry.GeneratedAt) > c.ttl {
		delete(c.entries, hash)
		c.misses++
		c.evictions++
		return nil, false
	}

	entry.AccessCount++
	entry.LastAccess = time.Now()
	c.hits++
	return entry.Vector, true
}

// PutWithVersion stores vec under hash, evicting the least-recently-used
// entry if the cache is at capacity.
func (c *Cache) PutWithVersion(hash string, vec []float64, modelVersion string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.maxEntries > 0 && len(c.entries) >= c.maxEntries {
		c.evictLRU()
	}

	c.entries[hash] = &cachedVector{
		ModelVersion: modelVersion,
		Vector:       vec,
		GeneratedAt:  time.Now(),
		LastAccess:   time.Now(),
	}
	c.total++
}

func (c *Cache) evictLRU() {
	var oldestHash string
	var oldestTime time.Time
	for h, e := range c.entries {
		if oldestHash == "" || e.LastAccess.Before(oldestTime) {
			oldestHash = h
			oldestTime = e.LastAccess
		}
	}
	if oldestHash != "" {
		delete(c.entries, oldestHash)
		c.evictions++
	}
}

func (c *Cache) Delete(hash string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.entries[hash]; ok {
		delete(c.entries, hash)
		c.evictions++
	}
}

func (c *Cache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[string]*cachedVector)
}

type CacheStats struct {
	Entries      int
	Hits         int64
	Misses       int64
	Evictions    int64
	TotalEntries int64
	HitRate      float64
	MaxEntries   int
	TTL          time.Duration
}

func (c *Cache) Stats() CacheStats {
	c.mu.RLock()
	defer c.mu.RUnlock()

	var hitRate float64
	if total := c.hits + c.misses; total > 0 {
		hitRate = float64(c.hits) / float64(total)
	}
	return CacheStats{
		Entries:      len(c.entries),
		Hits:         c.hits,
		Misses:       c.misses,
		Evictions:    c.evictions,
		TotalEntries: c.total,
		HitRate:      hitRate,
		MaxEntries:   c.maxEntries,
		TTL:          c.ttl,
	}
}

func (s CacheStats) String() string {
	return fmt.Sprintf(
		"Cache{entries=%d/%d, hits=%d, misses=%d, evictions=%d, hitRate=%.2f%%, ttl=%v}",
		s.Entries, s.MaxEntries, s.Hits, s.Misses, s.Evictions, s.HitRate*100, s.TTL,
	)
}
