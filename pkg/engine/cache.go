package engine

import (
	"sync"
	"sync/atomic"

	"github.com/yourusername/tttengine/internal/positionid"
)

// Cache constants
const (
	DefaultCacheSize = 1 << 16 // Enough for every position under both maximizers
	CacheHit         = ^uint32(0)
)

// invalidKey never matches a real board (keys are below 3^9)
var invalidKey = positionid.PositionKey{Data: ^uint32(0)}

// CacheEntry stores a cached minimax value
type CacheEntry struct {
	Key           positionid.PositionKey // Position key
	SearchContext int32                  // Maximizing mark and side to move
	Score         int8                   // Node-relative minimax value
}

// ScoreCache is a thread-safe minimax score cache.
// Uses a two-way associative cache with MurmurHash3-based indexing
type ScoreCache struct {
	entries  []cacheNode
	size     uint32
	hashMask uint32

	// Statistics
	lookups atomic.Uint64
	hits    atomic.Uint64
	adds    atomic.Uint64

	mu sync.RWMutex
}

// cacheNode holds primary and secondary entries for two-way associative cache
type cacheNode struct {
	primary   CacheEntry
	secondary CacheEntry
}

// NewScoreCache creates a new score cache with the given size
// Size will be adjusted to the nearest power of 2 (minimum 2)
func NewScoreCache(size uint32) *ScoreCache {
	if size > 1<<30 {
		size = 1 << 30
	}

	p := uint32(2)
	for p < size {
		p <<= 1
	}
	size = p

	cache := &ScoreCache{
		entries:  make([]cacheNode, size/2),
		size:     size,
		hashMask: (size / 2) - 1,
	}

	cache.Flush()
	return cache
}

// Size returns the number of entries the cache can hold
func (c *ScoreCache) Size() uint32 {
	return c.size
}

// Flush clears all entries from the cache
func (c *ScoreCache) Flush() {
	c.mu.Lock()
	defer c.mu.Unlock()

	for i := range c.entries {
		c.entries[i].primary.Key = invalidKey
		c.entries[i].secondary.Key = invalidKey
	}
	c.lookups.Store(0)
	c.hits.Store(0)
	c.adds.Store(0)
}

// hash computes the slot for a key using MurmurHash3-style mixing
func (c *ScoreCache) hash(key positionid.PositionKey, searchContext int32) uint32 {
	const c1 = 0xcc9e2d51
	const c2 = 0x1b873593

	h := uint32(0)

	k := key.Data
	k *= c1
	k = (k << 15) | (k >> 17)
	k *= c2
	h ^= k
	h = (h << 13) | (h >> 19)
	h = h*5 + 0xe6546b64

	k = uint32(searchContext)
	k *= c1
	k = (k << 15) | (k >> 17)
	k *= c2
	h ^= k

	// Finalization
	h ^= 8
	h ^= h >> 16
	h *= 0x85ebca6b
	h ^= h >> 13
	h *= 0xc2b2ae35
	h ^= h >> 16

	return h & c.hashMask
}

// Lookup checks if a position is in the cache.
// Returns (score, CacheHit) if found, otherwise the slot to pass to Add.
func (c *ScoreCache) Lookup(key positionid.PositionKey, searchContext int32) (int, uint32) {
	slot := c.hash(key, searchContext)

	c.mu.RLock()
	defer c.mu.RUnlock()

	c.lookups.Add(1)

	node := &c.entries[slot]

	if positionid.EqualKeys(node.primary.Key, key) && node.primary.SearchContext == searchContext {
		c.hits.Add(1)
		return int(node.primary.Score), CacheHit
	}

	if positionid.EqualKeys(node.secondary.Key, key) && node.secondary.SearchContext == searchContext {
		c.hits.Add(1)
		return int(node.secondary.Score), CacheHit
	}

	return 0, slot
}

// Add stores a score in the slot returned by a previous Lookup miss
func (c *ScoreCache) Add(key positionid.PositionKey, searchContext int32, score int, slot uint32) {
	c.mu.Lock()
	defer c.mu.Unlock()

	node := &c.entries[slot]

	// Move primary to secondary, add new as primary
	node.secondary = node.primary
	node.primary = CacheEntry{
		Key:           key,
		SearchContext: searchContext,
		Score:         int8(score),
	}

	c.adds.Add(1)
}

// Stats returns cache statistics
func (c *ScoreCache) Stats() (lookups, hits, adds uint64) {
	return c.lookups.Load(), c.hits.Load(), c.adds.Load()
}

// HitRate returns the cache hit rate as a percentage
func (c *ScoreCache) HitRate() float64 {
	lookups := c.lookups.Load()
	if lookups == 0 {
		return 0
	}
	return float64(c.hits.Load()) / float64(lookups) * 100
}

// MakeSearchContext encodes the maximizing mark and the side to move
// Bits 0-1: maximizer, bits 2-3: side to move
func MakeSearchContext(maximizer, toMove Mark) int32 {
	return int32(maximizer&0x3) | int32(toMove&0x3)<<2
}
