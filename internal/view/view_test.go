package view

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

// A 4-level pyramid: 8000x6000 full res down to 1000x750.
var widths = []int{8000, 4000, 2000, 1000}
var heights = []int{6000, 3000, 1500, 750}

func TestSelectResolutionFullViewportNoRequestPicksFullRes(t *testing.T) {
	r := NewRequest()
	p := r.SelectResolution(widths, heights)
	assert.Equal(t, 3, p.Resolution, "no size constraint should still resolve to full resolution (level 0)")
	assert.Equal(t, widths[0], p.ResWidth)
}

func TestSelectResolutionHonorsRequestedSize(t *testing.T) {
	r := NewRequest()
	r.RequestedWidth = 1800
	r.RequestedHeight = 1350
	p := r.SelectResolution(widths, heights)
	// smallest level whose scaled size still covers 1800x1350 is level 2 (2000x1500)
	assert.GreaterOrEqual(t, p.ResWidth, 1800)
	assert.GreaterOrEqual(t, p.ResHeight, 1350)
}

func TestSelectResolutionClampsToMaxOutputSize(t *testing.T) {
	r := NewRequest()
	r.MaxOutputSize = 512
	p := r.SelectResolution(widths, heights)
	dim := p.ResWidth
	if p.ResHeight > dim {
		dim = p.ResHeight
	}
	assert.LessOrEqual(t, dim, 1000, "halving should have reduced toward the smallest level before giving up")
}

func TestViewportRestrictionClampsOrigin(t *testing.T) {
	r := NewRequest()
	r.Left, r.Top = 1.5, 1.5 // out of range, must clamp
	p := r.SelectResolution(widths, heights)
	assert.LessOrEqual(t, p.ViewLeft, p.ResWidth)
	assert.LessOrEqual(t, p.ViewTop, p.ResHeight)
}

func TestViewportSetDetectsRestriction(t *testing.T) {
	r := NewRequest()
	assert.False(t, r.ViewportSet())
	r.Width = 0.5
	assert.True(t, r.ViewportSet())
}

func TestResolveLayersAllWhenNegativeMaxAndZeroLayers(t *testing.T) {
	r := NewRequest()
	r.MaxLayers = -1
	assert.Equal(t, -1, r.ResolveLayers())
}

func TestResolveLayersClampsToMax(t *testing.T) {
	r := NewRequest()
	r.MaxLayers = 4
	r.Layers = 10
	assert.Equal(t, 4, r.ResolveLayers())
}

func TestResolveLayersUsesRequestedWhenUnderMax(t *testing.T) {
	r := NewRequest()
	r.MaxLayers = 4
	r.Layers = 2
	assert.Equal(t, 2, r.ResolveLayers())
}

func TestGetScalePreservesAspectRatio(t *testing.T) {
	r := NewRequest()
	r.RequestedWidth = 400
	p := r.SelectResolution(widths, heights)
	ratio := float64(p.OutWidth) / float64(p.OutHeight)
	expected := float64(widths[0]) / float64(heights[0])
	assert.InDelta(t, expected, ratio, 0.02)
}
