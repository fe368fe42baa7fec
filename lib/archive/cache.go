// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package archive

import (
	"fmt"
	"sync/atomic"

	lru "github.com/hashicorp/golang-lru/v2"
)

// DefaultCacheCapacity is the number of raw chunks an archive keeps
// when OpenConfig.CacheCapacity is zero.
const DefaultCacheCapacity = 100

// ChunkCache is a bounded least-recently-used map from chunk key to
// raw chunk bytes (envelope included). It is safe for concurrent use.
// Stored slices are never modified, so a caller holding a slice keeps
// valid bytes after the entry is evicted.
type ChunkCache struct {
	entries   *lru.Cache[ChunkKey, []byte]
	capacity  int
	hits      atomic.Uint64
	misses    atomic.Uint64
	evictions atomic.Uint64
}

// CacheStats is a point-in-time view of cache activity.
type CacheStats struct {
	Capacity  int    `json:"capacity"`
	Entries   int    `json:"entries"`
	Hits      uint64 `json:"hits"`
	Misses    uint64 `json:"misses"`
	Evictions uint64 `json:"evictions"`
}

// NewChunkCache returns a cache holding at most capacity chunks.
// Capacity must be positive.
func NewChunkCache(capacity int) (*ChunkCache, error) {
	if capacity <= 0 {
		return nil, fmt.Errorf("chunk cache capacity must be positive, got %d", capacity)
	}
	cache := &ChunkCache{capacity: capacity}
	entries, err := lru.NewWithEvict(capacity, func(ChunkKey, []byte) {
		cache.evictions.Add(1)
	})
	if err != nil {
		return nil, err
	}
	cache.entries = entries
	return cache, nil
}

// Get returns the chunk stored under key and marks it most recently
// used.
func (cache *ChunkCache) Get(key ChunkKey) ([]byte, bool) {
	value, ok := cache.entries.Get(key)
	if ok {
		cache.hits.Add(1)
	} else {
		cache.misses.Add(1)
	}
	return value, ok
}

// Add stores value under key as the most recently used entry, evicting
// the least recently used entry when the cache is full. Adding an
// existing key replaces its value.
func (cache *ChunkCache) Add(key ChunkKey, value []byte) {
	cache.entries.Add(key, value)
}

// Contains reports whether key is cached without touching recency or
// the hit counters.
func (cache *ChunkCache) Contains(key ChunkKey) bool {
	return cache.entries.Contains(key)
}

// Len returns the number of cached chunks.
func (cache *ChunkCache) Len() int {
	return cache.entries.Len()
}

// Keys returns the cached keys from least to most recently used.
func (cache *ChunkCache) Keys() []ChunkKey {
	return cache.entries.Keys()
}

// Stats returns the current counters.
func (cache *ChunkCache) Stats() CacheStats {
	return CacheStats{
		Capacity:  cache.capacity,
		Entries:   cache.entries.Len(),
		Hits:      cache.hits.Load(),
		Misses:    cache.misses.Load(),
		Evictions: cache.evictions.Load(),
	}
}
