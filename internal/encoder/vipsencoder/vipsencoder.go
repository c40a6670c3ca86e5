// Package vipsencoder implements encoder.Encoder for JPEG, PNG, WebP
// and TIFF via github.com/cshum/vipsgen, reusing the save-to-buffer
// option idiom (JpegsaveBufferOptions.Q, etc.). JPEG supports metadata
// injection by re-wrapping the compressed bytes through a vips
// load/resave round-trip that carries the ICC profile; PNG, WebP and
// TIFF report no injection support and pass their bytes through
// unchanged.
package vipsencoder

import (
	"github.com/cshum/vipsgen/vips"

	"giipview/internal/encoder"
	"giipview/internal/rawtile"
)

type jpegEncoder struct{}
type pngEncoder struct{}
type webpEncoder struct{}
type tiffEncoder struct{}

// NewJPEG returns a JPEG encoder.Encoder.
func NewJPEG() encoder.Encoder { return jpegEncoder{} }

// NewPNG returns a PNG encoder.Encoder.
func NewPNG() encoder.Encoder { return pngEncoder{} }

// NewWebP returns a WebP encoder.Encoder.
func NewWebP() encoder.Encoder { return webpEncoder{} }

// NewTIFF returns a TIFF encoder.Encoder.
func NewTIFF() encoder.Encoder { return tiffEncoder{} }

func rawToVips(tile *rawtile.Tile) (*vips.Image, error) {
	return vips.NewImageFromMemory(tile.Data, tile.Width, tile.Height, tile.Channels)
}

func (jpegEncoder) Kind() rawtile.Encoding { return rawtile.Jpeg }
func (jpegEncoder) MimeType() string       { return "image/jpeg" }
func (jpegEncoder) Suffix() string         { return "jpg" }

func (jpegEncoder) Compress(tile *rawtile.Tile, quality int, meta encoder.Metadata) ([]byte, error) {
	img, err := rawToVips(tile)
	if err != nil {
		return nil, err
	}
	defer img.Close()

	if len(meta.ICCProfile) > 0 {
		if err := img.SetBlob("icc-profile-data", meta.ICCProfile); err != nil {
			return nil, err
		}
	}

	opts := vips.DefaultJpegsaveBufferOptions()
	opts.Q = quality
	opts.Interlace = false
	return img.JpegsaveBuffer(opts)
}

func (jpegEncoder) SupportsMetadataInjection() bool { return true }

// InjectMetadata decodes the compressed JPEG, attaches meta's ICC
// profile and re-saves it with the default JPEG save options, so the
// pixels are recompressed. meta's XMP and EXIF are not attached.
func (jpegEncoder) InjectMetadata(compressed []byte, meta encoder.Metadata) ([]byte, error) {
	if len(meta.ICCProfile) == 0 && len(meta.XMP) == 0 && len(meta.EXIF) == 0 {
		return compressed, nil
	}
	img, err := vips.NewJpegloadBuffer(compressed, vips.DefaultJpegloadBufferOptions())
	if err != nil {
		return compressed, err
	}
	defer img.Close()

	if len(meta.ICCProfile) > 0 {
		if err := img.SetBlob("icc-profile-data", meta.ICCProfile); err != nil {
			return compressed, err
		}
	}

	opts := vips.DefaultJpegsaveBufferOptions()
	return img.JpegsaveBuffer(opts)
}

func (pngEncoder) Kind() rawtile.Encoding { return rawtile.Png }
func (pngEncoder) MimeType() string       { return "image/png" }
func (pngEncoder) Suffix() string         { return "png" }

func (pngEncoder) Compress(tile *rawtile.Tile, quality int, meta encoder.Metadata) ([]byte, error) {
	img, err := rawToVips(tile)
	if err != nil {
		return nil, err
	}
	defer img.Close()

	opts := vips.DefaultPngsaveBufferOptions()
	return img.PngsaveBuffer(opts)
}

func (pngEncoder) SupportsMetadataInjection() bool { return false }
func (pngEncoder) InjectMetadata(compressed []byte, meta encoder.Metadata) ([]byte, error) {
	return compressed, nil
}

func (webpEncoder) Kind() rawtile.Encoding { return rawtile.Webp }
func (webpEncoder) MimeType() string       { return "image/webp" }
func (webpEncoder) Suffix() string         { return "webp" }

func (webpEncoder) Compress(tile *rawtile.Tile, quality int, meta encoder.Metadata) ([]byte, error) {
	img, err := rawToVips(tile)
	if err != nil {
		return nil, err
	}
	defer img.Close()

	opts := vips.DefaultWebpsaveBufferOptions()
	opts.Q = quality
	return img.WebpsaveBuffer(opts)
}

func (webpEncoder) SupportsMetadataInjection() bool { return false }
func (webpEncoder) InjectMetadata(compressed []byte, meta encoder.Metadata) ([]byte, error) {
	return compressed, nil
}

func (tiffEncoder) Kind() rawtile.Encoding { return rawtile.Tiff }
func (tiffEncoder) MimeType() string       { return "image/tiff" }
func (tiffEncoder) Suffix() string         { return "tif" }

func (tiffEncoder) Compress(tile *rawtile.Tile, quality int, meta encoder.Metadata) ([]byte, error) {
	img, err := rawToVips(tile)
	if err != nil {
		return nil, err
	}
	defer img.Close()

	opts := vips.DefaultTiffsaveBufferOptions()
	return img.TiffsaveBuffer(opts)
}

func (tiffEncoder) SupportsMetadataInjection() bool { return false }
func (tiffEncoder) InjectMetadata(compressed []byte, meta encoder.Metadata) ([]byte, error) {
	return compressed, nil
}
