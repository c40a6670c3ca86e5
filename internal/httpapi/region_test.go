package httpapi

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"giipview/internal/sourceimage"
)

// layerLimitedImage wraps fakeImage and records the quality-layer clamp
// HandleRegion applies through sourceimage.LayerLimiter.
type layerLimitedImage struct {
	fakeImage
	gotLayers int
}

func (f *layerLimitedImage) SetQualityLayers(n int) { f.gotLayers = n }

type layerLimitedOpener struct {
	img *layerLimitedImage
}

func (layerLimitedOpener) CanOpen(path string) bool { return true }
func (o layerLimitedOpener) Open(ctx context.Context, path string) (sourceimage.Image, error) {
	return o.img, nil
}

func TestHandleRegionReturnsRenderedBytes(t *testing.T) {
	h := newTestHandlers()
	req := httptest.NewRequest(http.MethodGet, "/regions/stack.tif?RGN=0,0,1,1&WID=4&HEI=4&FMT=png", nil)
	w := httptest.NewRecorder()

	h.HandleRegion(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	assert.NotEmpty(t, w.Body.Bytes())
}

func TestHandleRegionRejectsMissingSourcePath(t *testing.T) {
	h := newTestHandlers()
	req := httptest.NewRequest(http.MethodGet, "/regions/", nil)
	w := httptest.NewRecorder()

	h.HandleRegion(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestHandleRegionAppliesQualityLayerClampToLayerLimiter(t *testing.T) {
	img := &layerLimitedImage{fakeImage: fakeImage{modTime: time.Unix(1, 0)}}

	registry := newRegistryWithOpener(layerLimitedOpener{img: img})
	mgr := newTestManager()
	composer := newTestComposer(mgr)
	h := newTestHandlersFor(registry, mgr, composer)
	h.config.MaxQualityLayers = 3

	req := httptest.NewRequest(http.MethodGet, "/regions/stack.tif?RGN=0,0,1,1&WID=4&HEI=4&LAYERS=10", nil)
	w := httptest.NewRecorder()

	h.HandleRegion(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 3, img.gotLayers)
}

func TestHandleRegionSkipsLayerLimiterWhenUnimplemented(t *testing.T) {
	h := newTestHandlers()
	h.config.MaxQualityLayers = 3

	req := httptest.NewRequest(http.MethodGet, "/regions/stack.tif?RGN=0,0,1,1&WID=4&HEI=4", nil)
	w := httptest.NewRecorder()

	assert.NotPanics(t, func() { h.HandleRegion(w, req) })
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestHandleRegionRejectsBadFormat(t *testing.T) {
	h := newTestHandlers()
	req := httptest.NewRequest(http.MethodGet, "/regions/stack.tif?RGN=0,0,1,1&FMT=bogus", nil)
	w := httptest.NewRecorder()

	h.HandleRegion(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}
