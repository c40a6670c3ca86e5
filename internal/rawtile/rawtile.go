// Package rawtile defines Tile, a rectangular pixel buffer plus its
// geometry and identity. Go slices and garbage collection replace manual
// alloc/free, but the ownership contract stays explicit: a Tile either
// owns its Data (copied on Clone) or borrows it from an external
// lifetime (Borrowed).
package rawtile

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"
)

// ColorSpace enumerates the source color spaces a decoder may report.
type ColorSpace int

const (
	ColorSpaceNone ColorSpace = iota
	ColorSpaceGreyscale
	ColorSpaceSRGB
	ColorSpaceCIELab
	ColorSpaceBinary
)

// Encoding enumerates the wire/codec encodings a tile's bytes may be in.
type Encoding int

const (
	Raw Encoding = iota
	Jpeg
	Png
	Webp
	Avif
	Tiff
	Deflate
)

func (e Encoding) String() string {
	switch e {
	case Jpeg:
		return "jpeg"
	case Png:
		return "png"
	case Webp:
		return "webp"
	case Avif:
		return "avif"
	case Tiff:
		return "tiff"
	case Deflate:
		return "deflate"
	default:
		return "raw"
	}
}

// SampleType distinguishes fixed-point integer samples from floating point ones.
type SampleType int

const (
	FixedPoint SampleType = iota
	FloatingPoint
)

// Key is the composite cache key: two distinct encodings or qualities of
// the same tile occupy distinct cache entries.
type Key struct {
	SourcePath string
	Resolution int
	TileIndex  int
	HAngle     int
	VAngle     int
	Encoding   Encoding
	Quality    int
}

// String renders the key as "path:res:tile:h:v:enc:quality"; ETag hashes
// it into a log/etag-friendly identifier.
func (k Key) String() string {
	return fmt.Sprintf("%s:%d:%d:%d:%d:%d:%d", k.SourcePath, k.Resolution, k.TileIndex, k.HAngle, k.VAngle, int(k.Encoding), k.Quality)
}

// ETag returns a short stable hash of the key, suitable for an HTTP ETag header.
func (k Key) ETag() string {
	sum := sha256.Sum256([]byte(k.String()))
	return hex.EncodeToString(sum[:])[:16]
}

// SizeBytes approximates the memory the key itself occupies. tilecache
// does not count it: the cache accounts only tile data bytes.
func (k Key) SizeBytes() int {
	return len(k.SourcePath) + 48
}

// Tile is RawTile: a pixel buffer plus its geometry, encoding and identity.
type Tile struct {
	// Geometry
	Width      int
	Height     int
	Channels   int
	BitsPerChannel int
	SampleType SampleType

	// Encoding
	Encoding Encoding
	Quality  int

	// Identity
	SourcePath string
	Resolution int
	TileIndex  int
	HAngle     int
	VAngle     int
	Timestamp  time.Time

	// Storage
	Data     []byte
	Borrowed bool // true if Data aliases memory this Tile does not own
	Padded   bool
}

// Key returns the cache key identifying this tile.
func (t *Tile) Key() Key {
	return Key{
		SourcePath: t.SourcePath,
		Resolution: t.Resolution,
		TileIndex:  t.TileIndex,
		HAngle:     t.HAngle,
		VAngle:     t.VAngle,
		Encoding:   t.Encoding,
		Quality:    t.Quality,
	}
}

// DataLength is the number of bytes actually used.
func (t *Tile) DataLength() int { return len(t.Data) }

// RawByteSize returns width*height*channels*(bpc/8), the expected raw
// pixel buffer size (1-bit sources are expanded to 8 bits before a Tile
// is ever constructed, so bpc/8 is always an integer >= 1 here).
func (t *Tile) RawByteSize() int {
	bpc := t.BitsPerChannel
	if bpc < 8 {
		bpc = 8
	}
	return t.Width * t.Height * t.Channels * (bpc / 8)
}

// Equal compares identity, encoding and quality fields only; byte
// content is deliberately excluded.
func (t *Tile) Equal(o *Tile) bool {
	return t.SourcePath == o.SourcePath &&
		t.Resolution == o.Resolution &&
		t.TileIndex == o.TileIndex &&
		t.HAngle == o.HAngle &&
		t.VAngle == o.VAngle &&
		t.Encoding == o.Encoding &&
		t.Quality == o.Quality
}

// Clone returns an independent, owned copy of t. This is what the tile
// manager hands back to callers after a cache hit or insert; the cache
// retains its own copy.
func (t *Tile) Clone() *Tile {
	c := *t
	if len(t.Data) > 0 {
		c.Data = make([]byte, len(t.Data))
		copy(c.Data, t.Data)
	}
	c.Borrowed = false
	return &c
}

// Allocate reserves a zeroed raw pixel buffer sized for the tile's
// current geometry.
func (t *Tile) Allocate() {
	t.Data = make([]byte, t.RawByteSize())
	t.Borrowed = false
}

// Release drops t's reference to its buffer. Owned buffers are left for
// the garbage collector; a borrowed tile must never free memory it does
// not own, so Release simply severs the slice.
func (t *Tile) Release() {
	t.Data = nil
}
