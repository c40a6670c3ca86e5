// Package vipssource implements sourceimage.Image over libvips via
// github.com/cshum/vipsgen, covering TIFF, JPEG, PNG and WebP pyramids.
// Resolution levels are synthesized by successive halving, and region
// reads go through extract-area + resize + export.
package vipssource

import (
	"context"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/cshum/vipsgen/vips"

	"giipview/internal/apperror"
	"giipview/internal/rawtile"
	"giipview/internal/sourceimage"
)

const tileSize = 256

var extensions = map[string]bool{
	".tif": true, ".tiff": true, ".jpg": true, ".jpeg": true, ".png": true, ".webp": true,
}

// Opener recognizes the vips-decodable extensions.
type Opener struct{}

func (Opener) CanOpen(path string) bool {
	return extensions[strings.ToLower(filepath.Ext(path))]
}

func (Opener) Open(ctx context.Context, path string) (sourceimage.Image, error) {
	return Open(path)
}

// Image is a vips-backed pyramid decoder for a single source path.
// Resolution levels are synthesized (vips loads the source at native
// resolution and each pyramid level is derived by successive halving),
// since not every format loaded here carries its own embedded pyramid
// the way TIFF can.
type Image struct {
	path    string
	modTime time.Time
	img     *vips.Image
	widths  []int
	heights []int
	bands   int
}

func loadByExtension(path string, access vips.Access) (*vips.Image, error) {
	ext := strings.ToLower(filepath.Ext(path))
	switch ext {
	case ".tif", ".tiff":
		opts := vips.DefaultTiffloadOptions()
		opts.Access = access
		return vips.NewTiffload(path, opts)
	case ".jpg", ".jpeg":
		opts := vips.DefaultJpegloadOptions()
		opts.Access = access
		return vips.NewJpegload(path, opts)
	case ".png":
		opts := vips.DefaultPngloadOptions()
		opts.Access = access
		return vips.NewPngload(path, opts)
	case ".webp":
		opts := vips.DefaultWebploadOptions()
		opts.Access = access
		return vips.NewWebpload(path, opts)
	default:
		return nil, apperror.Wrap(apperror.SourceUnsupported, "vipssource.Open", "unsupported image format: "+ext)
	}
}

// Open decodes path's header and builds its synthetic pyramid level list.
func Open(path string) (*Image, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, apperror.New(apperror.SourceNotFound, "vipssource.Open", err)
	}

	img, err := loadByExtension(path, vips.AccessRandom)
	if err != nil {
		return nil, apperror.New(apperror.SourceCorrupt, "vipssource.Open", err)
	}

	w, h := img.Width(), img.Height()
	var widths, heights []int
	for w >= 1 && h >= 1 {
		widths = append(widths, w)
		heights = append(heights, h)
		if w <= tileSize && h <= tileSize {
			break
		}
		w, h = (w+1)/2, (h+1)/2
	}

	return &Image{
		path:    path,
		modTime: info.ModTime(),
		img:     img,
		widths:  widths,
		heights: heights,
		bands:   img.Bands(),
	}, nil
}

func (im *Image) Descriptor() sourceimage.Descriptor {
	return sourceimage.Descriptor{
		Path:           im.path,
		Widths:         im.widths,
		Heights:        im.heights,
		TileWidth:      tileSize,
		TileHeight:     tileSize,
		Channels:       im.bands,
		BitsPerChannel: 8,
		ColorSpace:     rawtile.ColorSpaceSRGB,
		SampleType:     rawtile.FixedPoint,
		QualityLayers:  1,
		ModTime:        im.modTime,
	}
}

// SupportsRegionDecoding is true: vips can extract and resample an
// arbitrary rectangle natively, without the caller stitching tiles.
func (im *Image) SupportsRegionDecoding() bool { return true }

func (im *Image) Timestamp() time.Time { return im.modTime }

func (im *Image) Close() error {
	im.img.Close()
	return nil
}

// levelIndex maps a spec-style "0 = smallest" resolution number to an
// index into widths/heights ("0 = full resolution").
func (im *Image) levelIndex(resolution int) int {
	idx := len(im.widths) - 1 - resolution
	if idx < 0 {
		idx = 0
	}
	if idx > len(im.widths)-1 {
		idx = len(im.widths) - 1
	}
	return idx
}

func (im *Image) ReadRegion(ctx context.Context, resolution, left, top, width, height int) (*rawtile.Tile, error) {
	idx := im.levelIndex(resolution)
	fullW, fullH := im.widths[0], im.heights[0]
	levelW, levelH := im.widths[idx], im.heights[idx]

	scale := float64(levelW) / float64(fullW)
	srcLeft := int(math.Floor(float64(left) / scale))
	srcTop := int(math.Floor(float64(top) / scale))
	srcW := int(math.Ceil(float64(width) / scale))
	srcH := int(math.Ceil(float64(height) / scale))
	if srcLeft+srcW > fullW {
		srcW = fullW - srcLeft
	}
	if srcTop+srcH > fullH {
		srcH = fullH - srcTop
	}

	crop, err := im.img.Copy(nil)
	if err != nil {
		return nil, apperror.New(apperror.Internal, "vipssource.ReadRegion", err)
	}
	defer crop.Close()

	if err := crop.ExtractArea(srcLeft, srcTop, srcW, srcH); err != nil {
		return nil, apperror.New(apperror.Internal, "vipssource.ReadRegion", err)
	}
	if scale != 1.0 {
		resizeOpts := vips.DefaultResizeOptions()
		resizeOpts.Kernel = vips.KernelLanczos3
		if err := crop.Resize(scale, resizeOpts); err != nil {
			return nil, apperror.New(apperror.Internal, "vipssource.ReadRegion", err)
		}
	}

	pix, err := crop.ToBytes()
	if err != nil {
		return nil, apperror.New(apperror.Internal, "vipssource.ReadRegion", err)
	}

	return &rawtile.Tile{
		Width:          crop.Width(),
		Height:         crop.Height(),
		Channels:       crop.Bands(),
		BitsPerChannel: 8,
		SampleType:     rawtile.FixedPoint,
		Encoding:       rawtile.Raw,
		SourcePath:     im.path,
		Resolution:     resolution,
		Timestamp:      im.modTime,
		Data:           pix,
	}, nil
}

// ReadTile ignores layers: vips has no native progressive-codec layer
// structure (Descriptor always reports a single quality layer).
func (im *Image) ReadTile(ctx context.Context, resolution, tileIndex, hAngle, vAngle, layers int) (*rawtile.Tile, error) {
	idx := im.levelIndex(resolution)
	levelW := im.widths[idx]
	tilesPerRow := (levelW + tileSize - 1) / tileSize
	tx := tileIndex % tilesPerRow
	ty := tileIndex / tilesPerRow

	tile, err := im.ReadRegion(ctx, resolution, tx*tileSize, ty*tileSize, tileSize, tileSize)
	if err != nil {
		return nil, fmt.Errorf("vipssource: read tile %d at resolution %d: %w", tileIndex, resolution, err)
	}
	tile.TileIndex = tileIndex
	tile.HAngle, tile.VAngle = hAngle, vAngle
	return tile, nil
}
