package httpapi

import (
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"giipview/internal/apperror"
	"giipview/internal/dialect"
	"giipview/internal/rawtile"
)

// samples decodes t's raw pixel buffer into per-sample float64 intensities,
// in source sample order (row-major, channel-interleaved). Only fixed-point
// 8- and 16-bit sources are supported, matching what sourceimage backends
// currently produce.
func samples(t *rawtile.Tile) ([]float64, error) {
	n := t.Width * t.Height * t.Channels
	out := make([]float64, n)

	switch t.BitsPerChannel {
	case 8:
		for i := 0; i < n && i < len(t.Data); i++ {
			out[i] = float64(t.Data[i])
		}
	case 16:
		for i := 0; i < n && i*2+1 < len(t.Data); i++ {
			hi := int(t.Data[i*2])
			lo := int(t.Data[i*2+1])
			out[i] = float64(hi<<8 | lo)
		}
	default:
		return nil, apperror.Wrap(apperror.Internal, "httpapi.samples", "unsupported bit depth for sample extraction")
	}
	return out, nil
}

// HandleProfile serves GET /profile/{path...}?PFL=resolution:x1,y1-x2,y2,
// returning the raw sample intensities along the requested line (or at the
// requested point) as JSON.
func (h *Handlers) HandleProfile(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	sourcePath := strings.TrimPrefix(r.URL.Path, "/profile/")
	if sourcePath == "" {
		h.writeError(w, apperror.Wrap(apperror.BadRequest, "httpapi.HandleProfile", "missing source path"))
		return
	}

	pflParam := r.URL.Query().Get("PFL")
	if pflParam == "" {
		h.writeError(w, apperror.Wrap(apperror.BadRequest, "httpapi.HandleProfile", "missing PFL parameter"))
		return
	}
	p, err := dialect.ParsePFL(pflParam)
	if err != nil {
		h.writeError(w, err)
		return
	}
	req := dialect.Request{Intent: dialect.IntentGetProfile, SourcePath: sourcePath, Resolution: p.Resolution}

	img, err := h.registry.Open(r.Context(), sourcePath)
	if err != nil {
		h.writeError(w, err)
		return
	}
	defer img.Close()

	desc := img.Descriptor()
	if p.Resolution < 0 || p.Resolution >= len(desc.Widths) {
		h.writeError(w, apperror.Wrap(apperror.BadRequest, "httpapi.HandleProfile", "invalid resolution"))
		return
	}
	levelIdx := len(desc.Widths) - 1 - p.Resolution
	imWidth, imHeight := desc.Widths[levelIdx], desc.Heights[levelIdx]
	if p.X1 < 0 || p.X2 < 0 || p.Y1 < 0 || p.Y2 < 0 || p.X1 > imWidth || p.X2 > imWidth || p.Y1 > imHeight || p.Y2 > imHeight {
		h.writeError(w, apperror.Wrap(apperror.BadRequest, "httpapi.HandleProfile", "coordinates outside of image bounds"))
		return
	}

	var width, height int
	switch {
	case p.X2 > p.X1:
		width, height = p.X2-p.X1, 1
	case p.Y2 > p.Y1:
		width, height = 1, p.Y2-p.Y1
	default:
		width, height = 1, 1
	}

	start := time.Now()
	raw, err := h.composer.GetRegion(r.Context(), img, p.Resolution, p.X1, p.Y1, width, height)
	if h.metrics != nil {
		h.metrics.RenderDuration.WithLabelValues(req.Intent.String()).Observe(time.Since(start).Seconds())
	}
	if err != nil {
		h.writeError(w, err)
		return
	}

	vals, err := samples(raw)
	if err != nil {
		h.writeError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]any{"profile": vals})
}

// HandleSpectrum serves GET /spectrum/{path...}?SPECTRA=resolution,tile,x,y,
// returning the channel values at a single pixel within the given tile as JSON.
func (h *Handlers) HandleSpectrum(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	sourcePath := strings.TrimPrefix(r.URL.Path, "/spectrum/")
	if sourcePath == "" {
		h.writeError(w, apperror.Wrap(apperror.BadRequest, "httpapi.HandleSpectrum", "missing source path"))
		return
	}

	spectraParam := r.URL.Query().Get("SPECTRA")
	if spectraParam == "" {
		h.writeError(w, apperror.Wrap(apperror.BadRequest, "httpapi.HandleSpectrum", "missing SPECTRA parameter"))
		return
	}
	s, err := dialect.ParseSPECTRA(spectraParam)
	if err != nil {
		h.writeError(w, err)
		return
	}
	req := dialect.Request{Intent: dialect.IntentGetSpectrum, SourcePath: sourcePath, Resolution: s.Resolution, TileIndex: s.TileIndex}

	img, err := h.registry.Open(r.Context(), sourcePath)
	if err != nil {
		h.writeError(w, err)
		return
	}
	defer img.Close()

	desc := img.Descriptor()
	if s.X < 0 || s.X >= desc.TileWidth || s.Y < 0 || s.Y >= desc.TileHeight {
		h.writeError(w, apperror.Wrap(apperror.BadRequest, "httpapi.HandleSpectrum", "x,y coordinates outside of tile boundaries"))
		return
	}

	start := time.Now()
	tile, err := h.manager.GetTile(r.Context(), img, s.Resolution, s.TileIndex, 0, 0, 0, rawtile.Raw, 0)
	if h.metrics != nil {
		h.metrics.RenderDuration.WithLabelValues(req.Intent.String()).Observe(time.Since(start).Seconds())
	}
	if err != nil {
		h.writeError(w, err)
		return
	}

	vals, err := samples(tile)
	if err != nil {
		h.writeError(w, err)
		return
	}

	offset := (s.Y*tile.Width + s.X) * tile.Channels
	if offset+tile.Channels > len(vals) {
		h.writeError(w, apperror.Wrap(apperror.BadRequest, "httpapi.HandleSpectrum", "x,y coordinates outside of tile boundaries"))
		return
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]any{"spectrum": vals[offset : offset+tile.Channels]})
}
