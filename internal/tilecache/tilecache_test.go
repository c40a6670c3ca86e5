package tilecache

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"giipview/internal/rawtile"
)

func tile(path string, n int, ts time.Time, bytes int) *rawtile.Tile {
	return &rawtile.Tile{
		SourcePath: path,
		TileIndex:  n,
		Timestamp:  ts,
		Data:       make([]byte, bytes),
	}
}

func key(path string, n int) rawtile.Key {
	return rawtile.Key{SourcePath: path, TileIndex: n}
}

func TestGetMissOnEmptyCache(t *testing.T) {
	c := New(1 << 20)
	_, ok := c.Get(key("a.tif", 0), 0)
	assert.False(t, ok)
}

func TestInsertThenGetHits(t *testing.T) {
	c := New(1 << 20)
	ts := time.Unix(1000, 0)
	in := tile("a.tif", 0, ts, 100)
	c.Insert(in.Key(), in)

	got, ok := c.Get(in.Key(), ts.Unix())
	require.True(t, ok)
	assert.Equal(t, 100, len(got.Data))
	assert.NotSame(t, in, got, "Get must return an independent copy")
}

func TestDisabledCacheNeverStores(t *testing.T) {
	c := New(0)
	ts := time.Unix(1, 0)
	in := tile("a.tif", 0, ts, 100)
	c.Insert(in.Key(), in)
	assert.Equal(t, 0, c.Len())
	_, ok := c.Get(in.Key(), ts.Unix())
	assert.False(t, ok)
}

func TestLRUEvictsLeastRecentlyUsed(t *testing.T) {
	const tileBytes = 64 * 1024
	c := New(256 * 1024) // room for 4 tiles
	ts := time.Unix(1, 0)

	for i := 0; i < 4; i++ {
		tl := tile("a.tif", i, ts, tileBytes)
		c.Insert(tl.Key(), tl)
	}
	require.Equal(t, 4, c.Len())

	// Touch tile 0 so it is no longer least-recently-used.
	_, ok := c.Get(key("a.tif", 0), 0)
	require.True(t, ok)

	// Insert a 5th tile: must evict tile 1 (now least recently used), not tile 0.
	tl := tile("a.tif", 4, ts, tileBytes)
	c.Insert(tl.Key(), tl)

	_, ok = c.Get(key("a.tif", 0), 0)
	assert.True(t, ok, "recently touched tile must survive eviction")
	_, ok = c.Get(key("a.tif", 1), 0)
	assert.False(t, ok, "least recently used tile must be evicted")
}

func TestTimestampMismatchInvalidatesEntry(t *testing.T) {
	c := New(1 << 20)
	oldTS := time.Unix(1000, 0)
	newTS := time.Unix(2000, 0)

	in := tile("a.tif", 0, oldTS, 100)
	c.Insert(in.Key(), in)

	_, ok := c.Get(in.Key(), newTS.Unix())
	assert.False(t, ok, "stale timestamp must be treated as a miss")

	// the stale entry should have been evicted, not merely skipped
	assert.Equal(t, 0, c.Len())
}

func TestInsertUpdatesExistingEntryBytes(t *testing.T) {
	c := New(1 << 20)
	ts := time.Unix(1, 0)

	in := tile("a.tif", 0, ts, 100)
	c.Insert(in.Key(), in)
	assert.Equal(t, int64(100), c.Size())

	in2 := tile("a.tif", 0, ts, 50)
	c.Insert(in2.Key(), in2)
	assert.Equal(t, int64(50), c.Size())
	assert.Equal(t, 1, c.Len())
}

func TestInsertOversizedEntryIsNotRetained(t *testing.T) {
	c := New(100)
	ts := time.Unix(1, 0)

	in := tile("a.tif", 0, ts, 1000)
	c.Insert(in.Key(), in)

	assert.Equal(t, 0, c.Len(), "an entry alone exceeding capacity must not be retained")
	assert.Equal(t, int64(0), c.Size())
	_, ok := c.Get(in.Key(), 0)
	assert.False(t, ok)
}

func TestShardedRoutesBySourcePathConsistently(t *testing.T) {
	s := NewSharded(4, 1<<20)
	ts := time.Unix(1, 0)
	in := tile("b.jp2", 3, ts, 10)
	s.Insert(in.Key(), in)

	got, ok := s.Get(in.Key(), ts.Unix())
	require.True(t, ok)
	assert.Equal(t, 10, len(got.Data))
	assert.Equal(t, 1, s.Len())
}

func TestClearEmptiesCache(t *testing.T) {
	c := New(1 << 20)
	ts := time.Unix(1, 0)
	in := tile("a.tif", 0, ts, 10)
	c.Insert(in.Key(), in)
	c.Clear()
	assert.Equal(t, 0, c.Len())
	assert.Equal(t, int64(0), c.Size())
}
