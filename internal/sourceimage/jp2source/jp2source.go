// Package jp2source implements sourceimage.Image over the pure-Go
// JPEG2000 decoder github.com/mrjoshuak/go-jpeg2000. The decoder exposes
// a whole-image API (no native tile/region addressing), so Image
// decodes once at Open and crops/downsamples in Go for every
// ReadTile/ReadRegion call; SupportsRegionDecoding is false so the
// caller's region composer stitches instead of delegating.
package jp2source

import (
	"bytes"
	"context"
	"image"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	jpeg2000 "github.com/mrjoshuak/go-jpeg2000"

	"giipview/internal/apperror"
	"giipview/internal/rawtile"
	"giipview/internal/sourceimage"
)

const tileSize = 256

var extensions = map[string]bool{".jp2": true, ".j2k": true, ".jpx": true}

// Opener recognizes JPEG2000 extensions.
type Opener struct{}

func (Opener) CanOpen(path string) bool {
	return extensions[strings.ToLower(filepath.Ext(path))]
}

func (Opener) Open(ctx context.Context, path string) (sourceimage.Image, error) {
	return Open(path)
}

// Image is a decoded-once JPEG2000 source.
type Image struct {
	path    string
	modTime time.Time
	raw     []byte
	img     image.Image
	meta    *jpeg2000.Metadata
	widths  []int
	heights []int
	layers  int
}

// Open decodes path fully and builds a synthetic downsample pyramid
// from the metadata's reported resolution count.
func Open(path string) (*Image, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, apperror.New(apperror.SourceNotFound, "jp2source.Open", err)
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, apperror.New(apperror.SourceNotFound, "jp2source.Open", err)
	}
	raw, err := io.ReadAll(f)
	f.Close()
	if err != nil {
		return nil, apperror.New(apperror.Internal, "jp2source.Open", err)
	}

	meta, err := jpeg2000.DecodeMetadata(bytes.NewReader(raw))
	if err != nil {
		return nil, apperror.New(apperror.SourceCorrupt, "jp2source.Open", err)
	}

	img, err := jpeg2000.Decode(bytes.NewReader(raw))
	if err != nil {
		return nil, apperror.New(apperror.SourceCorrupt, "jp2source.Open", err)
	}

	w, h := meta.Width, meta.Height
	var widths, heights []int
	for w >= 1 && h >= 1 {
		widths = append(widths, w)
		heights = append(heights, h)
		if w <= tileSize && h <= tileSize {
			break
		}
		w, h = (w+1)/2, (h+1)/2
	}

	return &Image{path: path, modTime: info.ModTime(), raw: raw, img: img, meta: meta, widths: widths, heights: heights}, nil
}

// SetQualityLayers bounds subsequent ReadTile/ReadRegion calls to the
// first n quality layers by re-decoding against that layer count.
// n <= 0 or n >= the full layer count is a no-op. A failed re-decode
// leaves the previously decoded image in place.
func (im *Image) SetQualityLayers(n int) {
	if n <= 0 || n == im.layers || n >= im.meta.NumQualityLayers {
		return
	}
	img, err := jpeg2000.DecodeConfig(bytes.NewReader(im.raw), &jpeg2000.Config{QualityLayers: n})
	if err != nil {
		return
	}
	im.img = img
	im.layers = n
}

func (im *Image) Descriptor() sourceimage.Descriptor {
	bpc := 8
	if len(im.meta.BitsPerComponent) > 0 {
		bpc = im.meta.BitsPerComponent[0]
	}
	return sourceimage.Descriptor{
		Path:           im.path,
		Widths:         im.widths,
		Heights:        im.heights,
		TileWidth:      tileSize,
		TileHeight:     tileSize,
		Channels:       im.meta.NumComponents,
		BitsPerChannel: bpc,
		ColorSpace:     rawtile.ColorSpaceSRGB,
		SampleType:     rawtile.FixedPoint,
		QualityLayers:  im.meta.NumQualityLayers,
		ICCProfile:     im.meta.ICCProfile,
		ModTime:        im.modTime,
	}
}

// SupportsRegionDecoding is false: every call crops the one decoded
// image.Image in Go rather than asking the codec for a sub-region.
func (im *Image) SupportsRegionDecoding() bool { return false }

func (im *Image) Timestamp() time.Time { return im.modTime }

func (im *Image) Close() error { return nil }

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
	fullW := im.widths[0]
	levelW := im.widths[idx]
	scale := float64(levelW) / float64(fullW)

	bounds := im.img.Bounds()
	channels := 3
	if _, ok := im.img.(*image.Gray); ok {
		channels = 1
	}

	data := make([]byte, width*height*channels)
	for y := 0; y < height; y++ {
		sy := bounds.Min.Y + int(float64(top+y)/scale)
		if sy >= bounds.Max.Y {
			sy = bounds.Max.Y - 1
		}
		for x := 0; x < width; x++ {
			sx := bounds.Min.X + int(float64(left+x)/scale)
			if sx >= bounds.Max.X {
				sx = bounds.Max.X - 1
			}
			r, g, b, _ := im.img.At(sx, sy).RGBA()
			o := (y*width + x) * channels
			if channels == 1 {
				data[o] = byte(r >> 8)
			} else {
				data[o] = byte(r >> 8)
				data[o+1] = byte(g >> 8)
				data[o+2] = byte(b >> 8)
			}
		}
	}

	return &rawtile.Tile{
		Width:          width,
		Height:         height,
		Channels:       channels,
		BitsPerChannel: 8,
		SampleType:     rawtile.FixedPoint,
		Encoding:       rawtile.Raw,
		SourcePath:     im.path,
		Resolution:     resolution,
		Timestamp:      im.modTime,
		Data:           data,
	}, nil
}

func (im *Image) ReadTile(ctx context.Context, resolution, tileIndex, hAngle, vAngle, layers int) (*rawtile.Tile, error) {
	im.SetQualityLayers(layers)

	idx := im.levelIndex(resolution)
	levelW := im.widths[idx]
	tilesPerRow := (levelW + tileSize - 1) / tileSize
	tx := tileIndex % tilesPerRow
	ty := tileIndex / tilesPerRow

	tile, err := im.ReadRegion(ctx, resolution, tx*tileSize, ty*tileSize, tileSize, tileSize)
	if err != nil {
		return nil, err
	}
	tile.TileIndex = tileIndex
	tile.HAngle, tile.VAngle = hAngle, vAngle
	return tile, nil
}
