// Package tilecache implements a byte-capacity LRU cache of rawtile.Tile
// values keyed by rawtile.Key, using a container/list + map for O(1)
// touch/evict. Eviction accounting is by the total byte size of the
// cached tiles' data rather than entry count (key size and per-entry
// overhead are not counted), and a timestamp on each tile's identity invalidates
// stale entries on touch rather than simply refreshing them.
package tilecache

import (
	"container/list"
	"hash/fnv"
	"sync"

	"giipview/internal/rawtile"
)

type entry struct {
	key   rawtile.Key
	tile  *rawtile.Tile
	bytes int
}

// Store is satisfied by both Cache and Sharded, letting callers take
// either a single LRU or a sharded pool interchangeably.
type Store interface {
	Get(key rawtile.Key, wantTimestamp int64) (*rawtile.Tile, bool)
	Insert(key rawtile.Key, tile *rawtile.Tile)
}

// Cache is a single-shard, byte-capacity, strict-LRU tile cache.
// A Cache with MaxBytes == 0 accepts no entries: Get always misses and
// Insert is a no-op, matching a disabled cache.
type Cache struct {
	mu       sync.Mutex
	maxBytes int64
	curBytes int64
	ll       *list.List
	index    map[rawtile.Key]*list.Element

	hits   int64
	misses int64
	evicts int64
}

// New creates a Cache with the given byte capacity.
func New(maxBytes int64) *Cache {
	return &Cache{
		maxBytes: maxBytes,
		ll:       list.New(),
		index:    make(map[rawtile.Key]*list.Element),
	}
}

// Get returns an independent copy of the cached tile for key, and
// whether it was timestamp-current. A miss, a disabled cache, or a tile
// whose timestamp no longer matches the source's current timestamp are
// all reported as !ok; a stale entry is evicted rather than served.
func (c *Cache) Get(key rawtile.Key, wantTimestamp int64) (*rawtile.Tile, bool) {
	if c.maxBytes == 0 {
		return nil, false
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	el, ok := c.index[key]
	if !ok {
		c.misses++
		return nil, false
	}
	e := el.Value.(*entry)
	if wantTimestamp != 0 && e.tile.Timestamp.Unix() != wantTimestamp {
		c.removeElement(el)
		c.misses++
		return nil, false
	}
	c.ll.MoveToFront(el)
	c.hits++
	return e.tile.Clone(), true
}

// Insert stores an independent copy of tile under its key, touching it
// to the front if already present (refreshing its timestamp and bytes),
// then evicts from the back until total size fits within capacity. If
// the cache is disabled (MaxBytes == 0) Insert is a no-op. A tile larger
// than the entire capacity is inserted and then immediately evicted by
// the same call, leaving the cache empty: current_bytes must not exceed
// capacity_bytes on exit, even when the sole entry is the oversized one.
func (c *Cache) Insert(key rawtile.Key, tile *rawtile.Tile) {
	if c.maxBytes == 0 {
		return
	}
	size := tile.DataLength()
	owned := tile.Clone()

	c.mu.Lock()
	defer c.mu.Unlock()

	if el, ok := c.index[key]; ok {
		e := el.Value.(*entry)
		c.curBytes += int64(size) - int64(e.bytes)
		e.tile = owned
		e.bytes = size
		c.ll.MoveToFront(el)
	} else {
		e := &entry{key: key, tile: owned, bytes: size}
		el := c.ll.PushFront(e)
		c.index[key] = el
		c.curBytes += int64(size)
	}

	for c.curBytes > c.maxBytes {
		back := c.ll.Back()
		if back == nil {
			break
		}
		c.removeElement(back)
		c.evicts++
	}
}

func (c *Cache) removeElement(el *list.Element) {
	e := el.Value.(*entry)
	c.ll.Remove(el)
	delete(c.index, e.key)
	c.curBytes -= int64(e.bytes)
}

// Clear empties the cache.
func (c *Cache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.ll = list.New()
	c.index = make(map[rawtile.Key]*list.Element)
	c.curBytes = 0
}

// Len returns the number of cached entries.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.ll.Len()
}

// Size returns the total bytes currently held.
func (c *Cache) Size() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.curBytes
}

// Stats returns cumulative hit/miss/eviction counters.
func (c *Cache) Stats() (hits, misses, evicts int64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.hits, c.misses, c.evicts
}

// Sharded spreads tiles across N independent Cache shards, selected by
// an FNV-1a hash of the tile's source path, so that concurrent requests
// against distinct images don't serialize on a single mutex.
type Sharded struct {
	shards []*Cache
}

// NewSharded creates a Sharded cache with n shards, each sized
// maxBytes/n (rounded down; the last shard absorbs the remainder).
func NewSharded(n int, maxBytes int64) *Sharded {
	if n < 1 {
		n = 1
	}
	s := &Sharded{shards: make([]*Cache, n)}
	per := maxBytes / int64(n)
	for i := 0; i < n; i++ {
		b := per
		if i == n-1 {
			b = maxBytes - per*int64(n-1)
		}
		s.shards[i] = New(b)
	}
	return s
}

func (s *Sharded) shardFor(sourcePath string) *Cache {
	h := fnv.New32a()
	_, _ = h.Write([]byte(sourcePath))
	return s.shards[h.Sum32()%uint32(len(s.shards))]
}

// Get delegates to the shard owning key.SourcePath.
func (s *Sharded) Get(key rawtile.Key, wantTimestamp int64) (*rawtile.Tile, bool) {
	return s.shardFor(key.SourcePath).Get(key, wantTimestamp)
}

// Insert delegates to the shard owning key.SourcePath.
func (s *Sharded) Insert(key rawtile.Key, tile *rawtile.Tile) {
	s.shardFor(key.SourcePath).Insert(key, tile)
}

// Clear empties every shard.
func (s *Sharded) Clear() {
	for _, c := range s.shards {
		c.Clear()
	}
}

// Len sums entries across all shards.
func (s *Sharded) Len() int {
	total := 0
	for _, c := range s.shards {
		total += c.Len()
	}
	return total
}

// Size sums bytes across all shards.
func (s *Sharded) Size() int64 {
	var total int64
	for _, c := range s.shards {
		total += c.Size()
	}
	return total
}
