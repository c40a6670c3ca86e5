// Package tilemanager orchestrates a single tile request: probe the
// cache in the requested encoding, fall back to a cached raw tile, and
// only decode from the source on a full miss. A freshly decoded tile is
// watermarked before it is ever inserted into the cache, then either
// passed through unchanged, re-encoded, or has metadata injected into
// an already-matching encoding.
package tilemanager

import (
	"context"

	"giipview/internal/apperror"
	"giipview/internal/encoder"
	"giipview/internal/rawtile"
	"giipview/internal/sourceimage"
	"giipview/internal/tilecache"
	"giipview/internal/transform"
	"giipview/internal/watermark"
)

// Manager fetches and caches encoded tiles for a single source/cache pair.
type Manager struct {
	Cache          tilecache.Store
	Encoders       *encoder.Registry
	Watermark      *watermark.Watermark
	WatermarkBlock int
	MaxICCBytes    int
}

// New builds a Manager over the given cache and encoder registry. cache
// may be a *tilecache.Cache or a *tilecache.Sharded. A nil watermark
// means no watermark is ever applied. watermarkBlock is the block-tiled
// stamping granularity passed through to Watermark.Apply. maxICCBytes
// caps the ICC profile size embedded into compressed tiles; an
// oversized profile is dropped rather than embedded (0 means unbounded).
func New(cache tilecache.Store, encoders *encoder.Registry, wm *watermark.Watermark, watermarkBlock, maxICCBytes int) *Manager {
	return &Manager{Cache: cache, Encoders: encoders, Watermark: wm, WatermarkBlock: watermarkBlock, MaxICCBytes: maxICCBytes}
}

func (m *Manager) metadataFor(desc sourceimage.Descriptor) encoder.Metadata {
	icc := desc.ICCProfile
	if m.MaxICCBytes > 0 && len(icc) > m.MaxICCBytes {
		icc = nil
	}
	return encoder.Metadata{ICCProfile: icc, XMP: desc.XMP, EXIF: desc.EXIF}
}

// GetTile returns the requested tile in the given encoding/quality,
// decoding, watermarking and encoding on a cache miss. hAngle/vAngle (0
// when the request isn't shaded) are part of the tile's cache identity,
// same as RawTile.HAngle/VAngle. layers (<= 0 for unbounded) is passed
// only to the source decode and is not part of the cache key.
func (m *Manager) GetTile(ctx context.Context, img sourceimage.Image, resolution, tileIndex, hAngle, vAngle, layers int, enc rawtile.Encoding, quality int) (*rawtile.Tile, error) {
	desc := img.Descriptor()
	ts := img.Timestamp().Unix()

	wantKey := rawtile.Key{SourcePath: desc.Path, Resolution: resolution, TileIndex: tileIndex, HAngle: hAngle, VAngle: vAngle, Encoding: enc, Quality: quality}
	if tile, ok := m.Cache.Get(wantKey, ts); ok {
		return tile, nil
	}

	rawKey := rawtile.Key{SourcePath: desc.Path, Resolution: resolution, TileIndex: tileIndex, HAngle: hAngle, VAngle: vAngle, Encoding: rawtile.Raw}
	if raw, ok := m.Cache.Get(rawKey, ts); ok {
		return m.encodeAndInsert(raw, wantKey, enc, quality, m.metadataFor(desc))
	}

	return m.getNewTile(ctx, img, desc, resolution, tileIndex, hAngle, vAngle, layers, enc, quality)
}

func (m *Manager) getNewTile(ctx context.Context, img sourceimage.Image, desc sourceimage.Descriptor, resolution, tileIndex, hAngle, vAngle, layers int, enc rawtile.Encoding, quality int) (*rawtile.Tile, error) {
	raw, err := img.ReadTile(ctx, resolution, tileIndex, hAngle, vAngle, layers)
	if err != nil {
		return nil, apperror.New(apperror.SourceCorrupt, "tilemanager.getNewTile", err)
	}
	raw.Quality = quality
	raw.HAngle, raw.VAngle = hAngle, vAngle

	if m.Watermark != nil {
		buf := &transform.ByteBuffer{Pix: raw.Data, Width: raw.Width, Height: raw.Height, Channels: raw.Channels}
		m.Watermark.Apply(buf, raw.BitsPerChannel, m.WatermarkBlock)
		raw.Data = buf.Pix
	}

	rawKey := rawtile.Key{SourcePath: raw.SourcePath, Resolution: resolution, TileIndex: tileIndex, HAngle: hAngle, VAngle: vAngle, Encoding: rawtile.Raw}
	m.Cache.Insert(rawKey, raw)

	if enc == rawtile.Raw {
		return raw.Clone(), nil
	}
	wantKey := rawtile.Key{SourcePath: raw.SourcePath, Resolution: resolution, TileIndex: tileIndex, HAngle: hAngle, VAngle: vAngle, Encoding: enc, Quality: quality}
	return m.encodeAndInsert(raw, wantKey, enc, quality, m.metadataFor(desc))
}

// canCompress restricts compression to 8-bit, 1- or 3-channel tiles;
// anything else is served raw regardless of the requested encoding.
func canCompress(t *rawtile.Tile) bool {
	return t.BitsPerChannel == 8 && (t.Channels == 1 || t.Channels == 3)
}

func (m *Manager) encodeAndInsert(raw *rawtile.Tile, key rawtile.Key, enc rawtile.Encoding, quality int, meta encoder.Metadata) (*rawtile.Tile, error) {
	if raw.Encoding == enc && enc != rawtile.Raw {
		// Already in the requested encoding: no re-encode needed, just
		// tag the quality and hand back a copy.
		out := raw.Clone()
		out.Quality = quality
		if e, ok := m.Encoders.Get(enc); ok && e.SupportsMetadataInjection() {
			if injected, err := e.InjectMetadata(out.Data, meta); err == nil {
				out.Data = injected
			}
		}
		return out, nil
	}

	if !canCompress(raw) {
		return raw.Clone(), nil
	}

	e, ok := m.Encoders.Get(enc)
	if !ok {
		return raw.Clone(), nil
	}

	compressed, err := e.Compress(raw, quality, meta)
	if err != nil {
		// Encoder failures never propagate past the tile path: fall back
		// to serving the raw tile. The failure is not logged.
		return raw.Clone(), nil
	}

	out := &rawtile.Tile{
		Width: raw.Width, Height: raw.Height, Channels: raw.Channels,
		BitsPerChannel: raw.BitsPerChannel, SampleType: raw.SampleType,
		Encoding: enc, Quality: quality,
		SourcePath: raw.SourcePath, Resolution: raw.Resolution, TileIndex: raw.TileIndex,
		HAngle: raw.HAngle, VAngle: raw.VAngle, Timestamp: raw.Timestamp,
		Data: compressed,
	}
	m.Cache.Insert(key, out)
	return out.Clone(), nil
}
