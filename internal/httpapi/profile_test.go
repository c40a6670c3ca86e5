package httpapi

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"giipview/internal/config"
	"giipview/internal/encoder"
	"giipview/internal/metadata"
	"giipview/internal/metrics"
	"giipview/internal/rawtile"
	"giipview/internal/region"
	"giipview/internal/sourceimage"
	"giipview/internal/tilecache"
	"giipview/internal/tilemanager"
)

type fakeImage struct {
	modTime time.Time
}

func (f *fakeImage) Descriptor() sourceimage.Descriptor {
	return sourceimage.Descriptor{
		Path: "stack.tif", Widths: []int{8}, Heights: []int{8},
		TileWidth: 8, TileHeight: 8, Channels: 1, BitsPerChannel: 8,
	}
}
func (f *fakeImage) SupportsRegionDecoding() bool { return true }
func (f *fakeImage) Timestamp() time.Time         { return f.modTime }
func (f *fakeImage) Close() error                 { return nil }
func (f *fakeImage) ReadRegion(ctx context.Context, resolution, left, top, width, height int) (*rawtile.Tile, error) {
	data := make([]byte, width*height)
	for i := range data {
		data[i] = byte(left + top + i)
	}
	return &rawtile.Tile{
		Width: width, Height: height, Channels: 1, BitsPerChannel: 8,
		SourcePath: "stack.tif", Resolution: resolution, Timestamp: f.modTime, Data: data,
	}, nil
}
func (f *fakeImage) ReadTile(ctx context.Context, resolution, tileIndex, hAngle, vAngle, layers int) (*rawtile.Tile, error) {
	data := make([]byte, 8*8)
	for i := range data {
		data[i] = byte(i)
	}
	return &rawtile.Tile{
		Width: 8, Height: 8, Channels: 1, BitsPerChannel: 8,
		SourcePath: "stack.tif", Resolution: resolution, TileIndex: tileIndex,
		Timestamp: f.modTime, Data: data,
	}, nil
}

type fakeOpener struct{}

func (fakeOpener) CanOpen(path string) bool { return true }
func (fakeOpener) Open(ctx context.Context, path string) (sourceimage.Image, error) {
	return &fakeImage{modTime: time.Unix(1, 0)}, nil
}

func newRegistryWithOpener(o sourceimage.Opener) *metadata.Registry {
	return metadata.New(16, o)
}

func newTestManager() *tilemanager.Manager {
	return tilemanager.New(tilecache.New(1<<20), encoder.NewRegistry(), nil, 0, 0)
}

func newTestComposer(mgr *tilemanager.Manager) *region.Composer {
	return region.New(mgr)
}

func newTestHandlersFor(registry *metadata.Registry, mgr *tilemanager.Manager, composer *region.Composer) *Handlers {
	return New(&config.Config{}, zap.NewNop(), registry, mgr, composer, encoder.NewRegistry(), metrics.New(), nil)
}

func newTestHandlers() *Handlers {
	registry := newRegistryWithOpener(fakeOpener{})
	mgr := newTestManager()
	composer := newTestComposer(mgr)
	return newTestHandlersFor(registry, mgr, composer)
}

func TestHandleProfileReturnsLineSamples(t *testing.T) {
	h := newTestHandlers()
	req := httptest.NewRequest(http.MethodGet, "/profile/stack.tif?PFL=0:0,0-4,0", nil)
	w := httptest.NewRecorder()

	h.HandleProfile(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	var body struct {
		Profile []float64 `json:"profile"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Len(t, body.Profile, 4)
}

func TestHandleProfileRejectsOutOfBoundsCoordinates(t *testing.T) {
	h := newTestHandlers()
	req := httptest.NewRequest(http.MethodGet, "/profile/stack.tif?PFL=0:0,0-100,0", nil)
	w := httptest.NewRecorder()

	h.HandleProfile(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestHandleSpectrumReturnsPixelChannels(t *testing.T) {
	h := newTestHandlers()
	req := httptest.NewRequest(http.MethodGet, "/spectrum/stack.tif?SPECTRA=0,0,3,2", nil)
	w := httptest.NewRecorder()

	h.HandleSpectrum(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	var body struct {
		Spectrum []float64 `json:"spectrum"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	require.Len(t, body.Spectrum, 1)
	assert.Equal(t, float64(2*8+3), body.Spectrum[0])
}

func TestHandleSpectrumRejectsOutOfBoundsPixel(t *testing.T) {
	h := newTestHandlers()
	req := httptest.NewRequest(http.MethodGet, "/spectrum/stack.tif?SPECTRA=0,0,99,0", nil)
	w := httptest.NewRecorder()

	h.HandleSpectrum(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}
