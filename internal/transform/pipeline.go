package transform

// Params carries the subset of a view.Request that drives the pipeline.
// Kept independent of package view so transform has no import cycle.
type Params struct {
	Shaded         bool
	HAngle, VAngle float64

	Colormap Colormap
	Inverted bool

	// Gamma and the log transform are mutually exclusive: Gamma == -1
	// selects the log transform, any other value (including 1, a no-op)
	// selects the power-law gamma step.
	Gamma float64

	Contrast float64

	OutWidth, OutHeight int
	ResizeKernel        ResizeKernel

	FlattenBands int

	Greyscale bool
	Binary    bool

	ColorTwist [][]float64

	Equalize bool

	Convolution []float64

	Flip     int
	Rotation int

	Watermark *WatermarkFn
}

// WatermarkFn applies a watermark to an 8-bit buffer; it is a function
// reference rather than a direct package dependency so transform
// doesn't need to import the watermark package.
type WatermarkFn func(buf *ByteBuffer)

// Run executes the fixed pipeline in order, skipping any step whose
// parameters mark it a no-op; it has no CIELAB-to-sRGB step. in must
// already be normalized to [0,1] float32 samples (the caller scales the
// source's integer samples by their bit depth before calling Run). Step order is
// contractually significant: shade, twist, gamma-or-log, invert,
// colormap and convolution all run on the float buffer, in that order,
// before contrast+quantization hands off to the integer domain.
func Run(in *FloatBuffer, p Params) *ByteBuffer {
	cur := in

	if p.Shaded {
		cur = Shade(cur, p.HAngle, p.VAngle)
	}

	if len(p.ColorTwist) > 0 {
		cur = Twist(cur, p.ColorTwist)
	}

	switch {
	case p.Gamma == -1:
		cur = LogTransform(cur)
	case p.Gamma != 1.0:
		cur = Gamma(cur, p.Gamma)
	}

	if p.Inverted {
		cur = Invert(cur)
	}

	if p.Colormap != ColormapNone && cur.Channels == 1 {
		cur = Cmap(cur, p.Colormap)
	}

	if len(p.Convolution) > 0 {
		cur = Convolve(cur, p.Convolution)
	}

	contrast := p.Contrast
	if contrast == 0 {
		contrast = 1.0
	}
	buf := Contrast(cur, contrast)

	if p.OutWidth > 0 && p.OutHeight > 0 && (p.OutWidth != buf.Width || p.OutHeight != buf.Height) {
		buf = Resize(buf, p.OutWidth, p.OutHeight, p.ResizeKernel)
	}

	if p.FlattenBands > 0 {
		buf = Flatten(buf, p.FlattenBands)
	}

	if p.Greyscale {
		buf = Greyscale(buf)
	}

	if p.Binary {
		h := ComputeHistogram(buf)
		t := OtsuThreshold(h)
		buf = Binary(buf, t)
	}

	if p.Equalize {
		h := ComputeHistogram(buf)
		buf = Equalize(buf, h)
	}

	if p.Flip != 0 {
		buf = Flip(buf, p.Flip)
	}

	if p.Rotation != 0 {
		buf = Rotate(buf, p.Rotation)
	}

	if p.Watermark != nil {
		(*p.Watermark)(buf)
	}

	return buf
}
