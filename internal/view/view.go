// Package view implements viewport and resolution-level planning: given
// a pyramid's per-level dimensions and a requested viewport/output size,
// it picks the smallest resolution level that still covers the request,
// derives the pixel region within that level, and clamps the output
// size to configured limits while preserving aspect ratio.
package view

import (
	"math"
)

// Colormap enumerates the named pseudocolor ramps a request may select.
type Colormap int

const (
	ColormapNone Colormap = iota
	ColormapHot
	ColormapCold
	ColormapJet
	ColormapRed
	ColormapGreen
	ColormapBlue
)

// Request captures a single client view onto a source image: viewport
// in normalized [0,1] coordinates, requested output size, and the
// transform-pipeline parameters that apply to it.
type Request struct {
	Left, Top, Width, Height float64 // normalized viewport, each in [0,1]

	RequestedWidth  int
	RequestedHeight int
	MaxOutputSize   int
	MinOutputSize   int
	MaintainAspect  bool
	AllowUpscaling  bool

	Rotation int // 0, 90, 180 or 270
	HAngle   float64
	VAngle   float64
	Shaded   bool

	Colormap  Colormap
	Inverted  bool
	Contrast  float64
	Gamma     float64
	ColorTwist [][]float64
	Convolution []float64
	Equalization bool
	MinMax       [2]float64

	Flip int // 0 = none, 1 = horizontal, 2 = vertical

	MaxLayers int
	Layers    int
}

// NewRequest returns a Request with the same defaults as a fresh view:
// full viewport, unit contrast/gamma, aspect maintained, upscaling
// allowed, no rotation.
func NewRequest() Request {
	return Request{
		Left: 0, Top: 0, Width: 1, Height: 1,
		MaintainAspect: true,
		AllowUpscaling: true,
		Contrast:       1.0,
		Gamma:          1.0,
		VAngle:         90,
		Colormap:       ColormapNone,
	}
}

// ViewportSet reports whether the request restricts to less than the
// full image (a non-default left/top/width/height).
func (r Request) ViewportSet() bool {
	return r.Width < 1 || r.Height < 1 || r.Left > 0 || r.Top > 0
}

const epsilon = 1e-9

// Plan is the resolved outcome of resolution selection: which pyramid
// level to read from, and the pixel region within that level's full
// dimensions that the viewport covers.
type Plan struct {
	Resolution int // IIP convention: 0 = smallest (most reduced) level
	LevelIndex int // index into the widths/heights slices (max-res-1 - Resolution)
	ResWidth   int
	ResHeight  int

	ViewLeft, ViewTop     int
	ViewWidth, ViewHeight int

	OutWidth, OutHeight int
}

// SelectResolution picks the smallest pyramid level whose scaled size
// still covers the requested output, then clamps for MaxOutputSize.
// widths/heights are indexed 0 = full resolution ... N-1 = smallest;
// the loop below walks from the smallest level toward full resolution,
// stopping as soon as a level is big enough.
func (r Request) SelectResolution(widths, heights []int) Plan {
	n := len(widths)
	fullW, fullH := float64(widths[0]), float64(heights[0])
	reqW, reqH := r.getRequestSize(widths[0], heights[0])

	level := n - 1
	for l := n - 1; l >= 0; l-- {
		factor := float64(uint64(1) << uint(n-1-l))
		var scaledW, scaledH int
		if r.Width == 1.0 {
			scaledW = widths[l]
		} else {
			scaledW = int(math.Floor(fullW/factor + epsilon))
		}
		if r.Height == 1.0 {
			scaledH = heights[l]
		} else {
			scaledH = int(math.Floor(fullH/factor + epsilon))
		}

		okW := reqW == 0 || scaledW >= reqW
		okH := reqH == 0 || scaledH >= reqH
		if scaledW <= widths[l]+1 && scaledH <= heights[l]+1 && okW && okH {
			level = l
			break
		}
		level = 0
	}

	p := Plan{
		LevelIndex: level,
		Resolution: n - level - 1,
		ResWidth:   widths[level],
		ResHeight:  heights[level],
	}

	if r.MaxOutputSize > 0 {
		dim := p.ResWidth
		if p.ResHeight > dim {
			dim = p.ResHeight
		}
		for dim > r.MaxOutputSize && p.Resolution > 0 {
			dim /= 2
			p.Resolution--
			p.LevelIndex = n - p.Resolution - 1
			p.ResWidth = widths[p.LevelIndex]
			p.ResHeight = heights[p.LevelIndex]
		}
	}

	p.ViewLeft, p.ViewTop = r.viewOrigin(p)
	p.ViewWidth, p.ViewHeight = r.viewExtent(p)
	p.OutWidth, p.OutHeight = r.getScale(p)
	return p
}

func round(f float64) int { return int(math.Round(f)) }

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// viewOrigin computes the top-left pixel of the viewport within the
// selected level's res_width x res_height frame.
func (r Request) viewOrigin(p Plan) (left, top int) {
	left = round(float64(p.ResWidth) * r.Left)
	top = round(float64(p.ResHeight) * r.Top)
	return clampInt(left, 0, p.ResWidth), clampInt(top, 0, p.ResHeight)
}

// viewExtent computes the viewport's pixel width/height within the
// selected level, enforcing MinOutputSize and clamping to the level's
// bounds once the origin is accounted for.
func (r Request) viewExtent(p Plan) (w, h int) {
	w = round(float64(p.ResWidth) * r.Width)
	h = round(float64(p.ResHeight) * r.Height)

	left, top := r.viewOrigin(p)
	if w+left > p.ResWidth {
		w = p.ResWidth - left
	}
	if h+top > p.ResHeight {
		h = p.ResHeight - top
	}
	minSize := r.MinOutputSize
	if minSize < 1 {
		minSize = 1
	}
	if w < minSize {
		w = minSize
	}
	if h < minSize {
		h = minSize
	}
	return w, h
}

// getRequestSize derives the full-image-relative output dimensions the
// client asked for, deriving any missing dimension from the viewport's
// aspect ratio.
func (r Request) getRequestSize(fullW, fullH int) (w, h int) {
	ratio := (r.Width * float64(fullW)) / (r.Height * float64(fullH))
	w, h = r.RequestedWidth, r.RequestedHeight

	switch {
	case w == 0 && h == 0:
		return fullW, fullH
	case w == 0:
		return round(float64(h) * ratio), h
	case h == 0:
		return w, round(float64(w) / ratio)
	}

	if r.MaintainAspect {
		xscale := float64(w) / float64(fullW)
		yscale := float64(h) / float64(fullH)
		if xscale > yscale {
			w = round(float64(h) * ratio)
		} else {
			h = round(float64(w) / ratio)
		}
	}

	if r.MaxOutputSize > 0 && (w > r.MaxOutputSize || h > r.MaxOutputSize) {
		if w >= h {
			h = round(float64(h) * float64(r.MaxOutputSize) / float64(w))
			w = r.MaxOutputSize
		} else {
			w = round(float64(w) * float64(r.MaxOutputSize) / float64(h))
			h = r.MaxOutputSize
		}
	}
	return w, h
}

// getScale computes the final output pixel dimensions for the selected
// plan, taking the tighter of the x/y scale factors so aspect ratio is
// preserved, and deriving a missing requested dimension from the other.
func (r Request) getScale(p Plan) (w, h int) {
	rw, rh := r.RequestedWidth, r.RequestedHeight
	if rw == 0 && rh == 0 {
		return p.ViewWidth, p.ViewHeight
	}
	if rw == 0 {
		rw = round(float64(rh) * float64(p.ViewWidth) / float64(p.ViewHeight))
	}
	if rh == 0 {
		rh = round(float64(rw) * float64(p.ViewHeight) / float64(p.ViewWidth))
	}

	scale := float64(rw) / float64(p.ViewWidth)
	if s2 := float64(rh) / float64(p.ViewHeight); s2 < scale {
		scale = s2
	}
	if scale <= 0 {
		scale = 1
	}
	if scale > 1 && !r.AllowUpscaling {
		scale = 1
	}

	w = round(float64(p.ViewWidth) * scale)
	h = round(float64(p.ViewHeight) * scale)
	if w < 1 {
		w = 1
	}
	if h < 1 {
		h = 1
	}
	return w, h
}

// ResolveLayers applies the quality-layer clamping rule: a positive
// MaxLayers caps Layers and is returned when Layers is not in
// (0, MaxLayers); a negative MaxLayers with Layers == 0 returns -1
// ("all layers"); otherwise Layers is returned unchanged.
func (r Request) ResolveLayers() int {
	switch {
	case r.MaxLayers > 0:
		if r.Layers > 0 && r.Layers < r.MaxLayers {
			return r.Layers
		}
		return r.MaxLayers
	case r.MaxLayers < 0 && r.Layers == 0:
		return -1
	default:
		return r.Layers
	}
}
