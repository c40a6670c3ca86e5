// Package region implements region assembly: either a direct decode
// when the source supports native region decoding, or a stitch of the
// individual tiles covering the requested rectangle, copied row by row
// into one contiguous buffer with edge-tile size adjustment.
package region

import (
	"context"

	"giipview/internal/apperror"
	"giipview/internal/rawtile"
	"giipview/internal/sourceimage"
	"giipview/internal/tilemanager"
)

// Composer assembles a pixel region at a given resolution level.
type Composer struct {
	Manager *tilemanager.Manager
}

// New builds a Composer over the given tile manager.
func New(mgr *tilemanager.Manager) *Composer {
	return &Composer{Manager: mgr}
}

// GetRegion returns the raw pixels covering [left,top,width,height) at
// resolution. If img supports native region decoding the request is
// delegated directly; otherwise the covering tiles are fetched
// individually (each independently cache/timestamp-checked; a tile
// that changes mid-stitch is not retroactively detected) and stitched.
func (c *Composer) GetRegion(ctx context.Context, img sourceimage.Image, resolution, left, top, width, height int) (*rawtile.Tile, error) {
	if img.SupportsRegionDecoding() {
		return img.ReadRegion(ctx, resolution, left, top, width, height)
	}
	return c.stitch(ctx, img, resolution, left, top, width, height)
}

func (c *Composer) stitch(ctx context.Context, img sourceimage.Image, resolution, left, top, width, height int) (*rawtile.Tile, error) {
	desc := img.Descriptor()
	tw, th := desc.TileWidth, desc.TileHeight
	if tw <= 0 || th <= 0 {
		return nil, apperror.Wrap(apperror.Internal, "region.stitch", "source descriptor has no tile geometry")
	}

	levelIdx := len(desc.Widths) - 1 - resolution
	if levelIdx < 0 {
		levelIdx = 0
	}
	if levelIdx > len(desc.Widths)-1 {
		levelIdx = len(desc.Widths) - 1
	}
	levelWidth := desc.Widths[levelIdx]
	tilesPerRow := (levelWidth + tw - 1) / tw

	startTileX := left / tw
	startTileY := top / th
	endTileX := (left + width - 1) / tw
	endTileY := (top + height - 1) / th

	var out *rawtile.Tile

	for ty := startTileY; ty <= endTileY; ty++ {
		for tx := startTileX; tx <= endTileX; tx++ {
			idx := ty*tilesPerRow + tx
			tile, err := c.Manager.GetTile(ctx, img, resolution, idx, 0, 0, 0, rawtile.Raw, 0)
			if err != nil {
				return nil, apperror.New(apperror.SourceCorrupt, "region.stitch", err)
			}

			if out == nil {
				out = &rawtile.Tile{
					Width: width, Height: height,
					Channels: tile.Channels, BitsPerChannel: tile.BitsPerChannel,
					SampleType: tile.SampleType, Encoding: rawtile.Raw,
					SourcePath: desc.Path, Resolution: resolution,
					Timestamp: tile.Timestamp,
				}
				out.Allocate()
			}

			tileOriginX := tx * tw
			tileOriginY := ty * th

			xOffsetInTile := 0
			if tileOriginX < left {
				xOffsetInTile = left - tileOriginX
			}
			yOffsetInTile := 0
			if tileOriginY < top {
				yOffsetInTile = top - tileOriginY
			}

			dstX := tileOriginX + xOffsetInTile - left
			dstY := tileOriginY + yOffsetInTile - top

			copyWidth := tile.Width - xOffsetInTile
			if dstX+copyWidth > width {
				copyWidth = width - dstX
			}
			copyHeight := tile.Height - yOffsetInTile
			if dstY+copyHeight > height {
				copyHeight = height - dstY
			}
			if copyWidth <= 0 || copyHeight <= 0 {
				continue
			}

			bps := tile.BitsPerChannel / 8
			if bps < 1 {
				bps = 1
			}
			ch := tile.Channels * bps
			for row := 0; row < copyHeight; row++ {
				srcRow := (yOffsetInTile + row) * tile.Width * ch
				srcStart := srcRow + xOffsetInTile*ch
				srcEnd := srcStart + copyWidth*ch

				dstRow := (dstY + row) * width * ch
				dstStart := dstRow + dstX*ch
				dstEnd := dstStart + copyWidth*ch

				copy(out.Data[dstStart:dstEnd], tile.Data[srcStart:srcEnd])
			}
		}
	}

	if out == nil {
		return nil, apperror.Wrap(apperror.BadRequest, "region.stitch", "empty region requested")
	}
	return out, nil
}
