// Package httpapi is the HTTP transport boundary: request logging and
// CORS middleware, a health endpoint, and the tile/region/profile/
// spectrum routes that translate path and query parameters into
// dialect.Request values and apperror.Kind results into HTTP status codes.
package httpapi

import (
	"fmt"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"giipview/internal/apperror"
	"giipview/internal/config"
	"giipview/internal/dialect"
	"giipview/internal/encoder"
	"giipview/internal/metadata"
	"giipview/internal/metrics"
	"giipview/internal/rawtile"
	"giipview/internal/region"
	"giipview/internal/sourceimage"
	"giipview/internal/tilemanager"
	"giipview/internal/view"
	"giipview/internal/watermark"
)

// Handlers bundles everything the HTTP layer needs to serve requests.
type Handlers struct {
	config    *config.Config
	logger    *zap.Logger
	registry  *metadata.Registry
	manager   *tilemanager.Manager
	composer  *region.Composer
	encoders  *encoder.Registry
	metrics   *metrics.Metrics
	watermark *watermark.Watermark
}

// New builds Handlers wired to the given core components. wm may be nil,
// meaning no watermark is stamped onto rendered regions.
func New(cfg *config.Config, logger *zap.Logger, registry *metadata.Registry, manager *tilemanager.Manager, composer *region.Composer, encoders *encoder.Registry, m *metrics.Metrics, wm *watermark.Watermark) *Handlers {
	return &Handlers{config: cfg, logger: logger, registry: registry, manager: manager, composer: composer, encoders: encoders, metrics: m, watermark: wm}
}

// RequestLoggingMiddleware logs method/path/status/bytes/duration for
// every request under a generated request id.
func (h *Handlers) RequestLoggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := uuid.New().String()
		start := time.Now()

		wrapped := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}
		next.ServeHTTP(wrapped, r)

		h.logger.Info("request",
			zap.String("request_id", requestID),
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", wrapped.statusCode),
			zap.Int64("bytes", wrapped.bytesWritten),
			zap.Int64("duration_ms", time.Since(start).Milliseconds()),
		)
		if h.metrics != nil {
			h.metrics.RequestsTotal.WithLabelValues(statusClass(wrapped.statusCode)).Inc()
			h.metrics.BytesServed.Add(float64(wrapped.bytesWritten))
		}
	})
}

func statusClass(code int) string {
	return strconv.Itoa(code/100) + "xx"
}

// CORSMiddleware applies a same-origin-or-configured-origin policy,
// falling back to a wildcard, for any method, when no origin is
// configured and the request carries no Origin header.
func (h *Handlers) CORSMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		origin := r.Header.Get("Origin")
		allowedOrigin := ""

		if h.config.AllowedOrigin != "" {
			allowedOrigin = h.config.AllowedOrigin
		} else if origin == "" {
			allowedOrigin = "*"
		} else {
			host := r.Host
			if strings.HasPrefix(origin, "http://"+host) || strings.HasPrefix(origin, "https://"+host) {
				allowedOrigin = origin
			}
		}

		if allowedOrigin != "" {
			w.Header().Set("Access-Control-Allow-Origin", allowedOrigin)
			w.Header().Set("Access-Control-Allow-Methods", "GET, HEAD, OPTIONS")
		}
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// HandleHealthz reports liveness.
func (h *Handlers) HandleHealthz(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	fmt.Fprint(w, `{"status":"ok"}`)
}

// HandleTile serves GET/HEAD /tiles/{path...}/{resolution}/{tile}.{fmt}.
func (h *Handlers) HandleTile(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	sourcePath, resolution, tileIndex, format, err := parseTilePath(strings.TrimPrefix(r.URL.Path, "/tiles/"))
	if err != nil {
		h.writeError(w, err)
		return
	}

	img, err := h.registry.Open(r.Context(), sourcePath)
	if err != nil {
		h.writeError(w, err)
		return
	}
	defer img.Close()

	enc, ok := formatToEncoding(format)
	if !ok {
		h.writeError(w, apperror.Wrap(apperror.BadRequest, "httpapi.HandleTile", "unsupported format: "+format))
		return
	}

	vreq, err := dialect.ParseQuery(view.NewRequest(), r.URL.Query())
	if err != nil {
		h.writeError(w, err)
		return
	}
	vreq.MaxLayers = h.config.MaxQualityLayers

	hAngle, vAngle := 0, 0
	if vreq.Shaded {
		hAngle, vAngle = int(vreq.HAngle), int(vreq.VAngle)
	}

	req := dialect.Request{
		Intent: dialect.IntentGetTile, SourcePath: sourcePath, Format: format,
		Resolution: resolution, TileIndex: tileIndex, View: vreq,
	}

	start := time.Now()
	tile, err := h.manager.GetTile(r.Context(), img, resolution, tileIndex, hAngle, vAngle, vreq.ResolveLayers(), enc, h.config.DefaultJPEGQuality)
	if h.metrics != nil {
		h.metrics.RenderDuration.WithLabelValues(req.Intent.String()).Observe(time.Since(start).Seconds())
	}
	if err != nil {
		h.writeError(w, err)
		return
	}

	h.writeTile(w, r, tile, format)
}

// HandleRegion serves GET /regions/{path...}?RGN=l,t,w,h&WID=&HEI=&...
func (h *Handlers) HandleRegion(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	sourcePath := strings.TrimPrefix(r.URL.Path, "/regions/")
	if sourcePath == "" {
		h.writeError(w, apperror.Wrap(apperror.BadRequest, "httpapi.HandleRegion", "missing source path"))
		return
	}

	img, err := h.registry.Open(r.Context(), sourcePath)
	if err != nil {
		h.writeError(w, err)
		return
	}
	defer img.Close()

	desc := img.Descriptor()
	vreq, err := dialect.ParseQuery(view.NewRequest(), r.URL.Query())
	if err != nil {
		h.writeError(w, err)
		return
	}
	vreq.MaxOutputSize = h.config.MaxOutputDimension
	vreq.MinOutputSize = h.config.MinOutputDimension
	vreq.MaxLayers = h.config.MaxQualityLayers

	if ll, ok := img.(sourceimage.LayerLimiter); ok {
		if layers := vreq.ResolveLayers(); layers > 0 {
			ll.SetQualityLayers(layers)
		}
	}

	plan := vreq.SelectResolution(desc.Widths, desc.Heights)

	start := time.Now()
	raw, err := h.composer.GetRegion(r.Context(), img, plan.Resolution, plan.ViewLeft, plan.ViewTop, plan.ViewWidth, plan.ViewHeight)
	if err != nil {
		h.writeError(w, err)
		return
	}

	format := r.URL.Query().Get("FMT")
	if format == "" {
		format = "jpg"
	}
	enc, ok := formatToEncoding(format)
	if !ok {
		h.writeError(w, apperror.Wrap(apperror.BadRequest, "httpapi.HandleRegion", "unsupported format: "+format))
		return
	}

	req := dialect.Request{Intent: dialect.IntentGetRegion, SourcePath: sourcePath, Format: format, Resolution: plan.Resolution, View: vreq}

	tile, err := renderRegion(raw, vreq, plan.OutWidth, plan.OutHeight, h.watermark, h.config.WatermarkBlockSize, h.encoders, enc, h.config.DefaultJPEGQuality, h.metadataFor(desc))
	if h.metrics != nil {
		h.metrics.RenderDuration.WithLabelValues(req.Intent.String()).Observe(time.Since(start).Seconds())
	}
	if err != nil {
		h.writeError(w, err)
		return
	}

	h.writeTile(w, r, tile, format)
}

// metadataFor builds the encoder.Metadata to embed for a region render,
// dropping an oversized ICC profile rather than embedding it.
func (h *Handlers) metadataFor(desc sourceimage.Descriptor) encoder.Metadata {
	icc := desc.ICCProfile
	if max := h.config.MaxICCBytes; max > 0 && len(icc) > max {
		icc = nil
	}
	return encoder.Metadata{ICCProfile: icc, XMP: desc.XMP, EXIF: desc.EXIF}
}

func (h *Handlers) writeTile(w http.ResponseWriter, r *http.Request, tile *rawtile.Tile, format string) {
	w.Header().Set("ETag", `"`+tile.Key().ETag()+`"`)
	w.Header().Set("Cache-Control", "public, max-age=31536000")
	w.Header().Set("Content-Length", strconv.Itoa(len(tile.Data)))
	w.Header().Set("Content-Type", mimeFor(format))

	if r.Method == http.MethodHead {
		w.WriteHeader(http.StatusOK)
		return
	}
	_, _ = w.Write(tile.Data)
}

func formatToEncoding(format string) (rawtile.Encoding, bool) {
	switch strings.ToLower(format) {
	case "jpg", "jpeg":
		return rawtile.Jpeg, true
	case "png":
		return rawtile.Png, true
	case "webp":
		return rawtile.Webp, true
	case "tif", "tiff":
		return rawtile.Tiff, true
	default:
		return rawtile.Raw, false
	}
}

func mimeFor(format string) string {
	switch strings.ToLower(format) {
	case "jpg", "jpeg":
		return "image/jpeg"
	case "png":
		return "image/png"
	case "webp":
		return "image/webp"
	case "tif", "tiff":
		return "image/tiff"
	default:
		return "application/octet-stream"
	}
}

func (h *Handlers) writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch apperror.KindOf(err) {
	case apperror.BadRequest:
		status = http.StatusBadRequest
	case apperror.SourceNotFound:
		status = http.StatusNotFound
	case apperror.SourceUnsupported:
		status = http.StatusUnsupportedMediaType
	case apperror.SourceCorrupt:
		status = http.StatusUnprocessableEntity
	case apperror.ResourceExhausted:
		status = http.StatusServiceUnavailable
	}
	h.logger.Error("request failed", zap.Error(err), zap.Int("status", status))
	http.Error(w, err.Error(), status)
}

func parseTilePath(p string) (sourcePath string, resolution, tileIndex int, format string, err error) {
	ext := filepath.Ext(p)
	format = strings.TrimPrefix(ext, ".")
	p = strings.TrimSuffix(p, ext)

	lastSlash := strings.LastIndex(p, "/")
	if lastSlash < 0 {
		return "", 0, 0, "", apperror.Wrap(apperror.BadRequest, "httpapi.parseTilePath", "malformed tile path")
	}
	tileIndex, convErr := strconv.Atoi(p[lastSlash+1:])
	if convErr != nil {
		return "", 0, 0, "", apperror.New(apperror.BadRequest, "httpapi.parseTilePath", convErr)
	}
	p = p[:lastSlash]

	secondSlash := strings.LastIndex(p, "/")
	if secondSlash < 0 {
		return "", 0, 0, "", apperror.Wrap(apperror.BadRequest, "httpapi.parseTilePath", "malformed tile path")
	}
	resolution, convErr = strconv.Atoi(p[secondSlash+1:])
	if convErr != nil {
		return "", 0, 0, "", apperror.New(apperror.BadRequest, "httpapi.parseTilePath", convErr)
	}

	sourcePath = p[:secondSlash]
	if sourcePath == "" {
		return "", 0, 0, "", apperror.Wrap(apperror.BadRequest, "httpapi.parseTilePath", "missing source path")
	}
	return sourcePath, resolution, tileIndex, format, nil
}

type responseWriter struct {
	http.ResponseWriter
	statusCode   int
	bytesWritten int64
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

func (rw *responseWriter) Write(b []byte) (int, error) {
	n, err := rw.ResponseWriter.Write(b)
	rw.bytesWritten += int64(n)
	return n, err
}
