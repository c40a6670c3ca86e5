// Package sourceimage defines the contract a pyramid decoder backend
// must satisfy: open a source file, report its descriptor, and read
// either a single tile or an arbitrary pixel region at a given
// resolution level.
package sourceimage

import (
	"context"
	"time"

	"giipview/internal/rawtile"
)

// StackPage describes one page of a multi-page/multi-band source.
type StackPage struct {
	Name  string
	Scale float64
}

// Descriptor is the decoded metadata of a source image: its pyramid
// geometry and the color/format information a transform pipeline or
// encoder needs.
type Descriptor struct {
	Path string

	// Widths/Heights are indexed 0 = full resolution .. N-1 = smallest.
	Widths  []int
	Heights []int

	TileWidth  int
	TileHeight int

	Channels       int
	BitsPerChannel int
	ColorSpace     rawtile.ColorSpace
	SampleType     rawtile.SampleType

	QualityLayers int

	ICCProfile []byte
	XMP        []byte
	EXIF       []byte

	Stack []StackPage

	ModTime time.Time
}

// Image is an open handle on a single source file, good for reading
// tiles and regions from any of its resolution levels.
type Image interface {
	// Descriptor returns the decoded metadata for this source.
	Descriptor() Descriptor

	// SupportsRegionDecoding reports whether ReadRegion can be served
	// natively by the underlying decoder (true) or must be stitched
	// from individual tiles by the caller (false).
	SupportsRegionDecoding() bool

	// ReadTile decodes a single tile at the given resolution level and
	// tile index (row-major across the level's tile grid). hAngle/vAngle
	// are the hillshade light-direction angles in degrees (0 when the
	// request isn't shaded) and layers bounds progressive-codec decode
	// to its first n quality layers (<= 0 means unbounded); a backend
	// with no native concept of either is free to ignore them.
	ReadTile(ctx context.Context, resolution, tileIndex, hAngle, vAngle, layers int) (*rawtile.Tile, error)

	// ReadRegion decodes an arbitrary pixel rectangle at the given
	// resolution level. Only valid when SupportsRegionDecoding is true.
	ReadRegion(ctx context.Context, resolution, left, top, width, height int) (*rawtile.Tile, error)

	// Timestamp returns the source's last-modified time, used for
	// cache invalidation.
	Timestamp() time.Time

	// Close releases any resources (file handles, decoder state) held
	// by this Image.
	Close() error
}

// LayerLimiter is implemented by Image backends with a native
// progressive quality-layer structure (JPEG2000). Calling
// SetQualityLayers before the first ReadTile/ReadRegion bounds decode
// to the first n layers; backends without such a structure need not
// implement it, and n <= 0 means "no limit applied".
type LayerLimiter interface {
	SetQualityLayers(n int)
}

// Opener opens a source path and returns an Image backend, or reports
// that the extension/magic bytes are not one it handles.
type Opener interface {
	// CanOpen reports whether this opener recognizes path's format.
	CanOpen(path string) bool
	Open(ctx context.Context, path string) (Image, error)
}
