package httpapi

import (
	"giipview/internal/encoder"
	"giipview/internal/rawtile"
	"giipview/internal/transform"
	"giipview/internal/view"
	"giipview/internal/watermark"
)

// toFloatBuffer normalizes a raw tile's integer samples to [0,1] float32,
// the representation the transform pipeline's early stages operate on.
func toFloatBuffer(t *rawtile.Tile) *transform.FloatBuffer {
	out := transform.NewFloatBuffer(t.Width, t.Height, t.Channels)
	n := t.Width * t.Height * t.Channels

	if t.BitsPerChannel == 16 {
		maxVal := float32(65535)
		for i := 0; i < n; i++ {
			hi := int(t.Data[i*2])
			lo := int(t.Data[i*2+1])
			v := uint16(hi<<8 | lo)
			out.Pix[i] = float32(v) / maxVal
		}
		return out
	}

	maxVal := float32(255)
	for i := 0; i < n && i < len(t.Data); i++ {
		out.Pix[i] = float32(t.Data[i]) / maxVal
	}
	return out
}

// buildParams translates a view.Request and the resolved output size into
// transform.Params, wiring an optional watermark stamp as the pipeline's
// final step.
func buildParams(vreq view.Request, outWidth, outHeight int, wm *watermark.Watermark, watermarkBlock int) transform.Params {
	var wmFn transform.WatermarkFn
	if wm != nil && wm.Set {
		wmFn = func(buf *transform.ByteBuffer) {
			wm.Apply(buf, 8, watermarkBlock)
		}
	}

	p := transform.Params{
		Shaded: vreq.Shaded, HAngle: float64(vreq.HAngle), VAngle: float64(vreq.VAngle),
		Colormap: transform.Colormap(vreq.Colormap),
		Inverted: vreq.Inverted,
		Gamma:    vreq.Gamma,
		Contrast: vreq.Contrast,

		OutWidth: outWidth, OutHeight: outHeight,

		ColorTwist:  vreq.ColorTwist,
		Equalize:    vreq.Equalization,
		Convolution: vreq.Convolution,

		Flip:     vreq.Flip,
		Rotation: vreq.Rotation,
	}
	if wmFn != nil {
		p.Watermark = &wmFn
	}
	return p
}

// renderRegion runs raw through the transform pipeline per vreq and
// compresses the result with enc at quality, producing a new, already
// cloned-free rawtile.Tile ready to write to the client.
func renderRegion(raw *rawtile.Tile, vreq view.Request, outWidth, outHeight int, wm *watermark.Watermark, watermarkBlock int, encoders *encoder.Registry, enc rawtile.Encoding, quality int, meta encoder.Metadata) (*rawtile.Tile, error) {
	floatIn := toFloatBuffer(raw)
	params := buildParams(vreq, outWidth, outHeight, wm, watermarkBlock)
	out := transform.Run(floatIn, params)

	rendered := &rawtile.Tile{
		Width: out.Width, Height: out.Height, Channels: out.Channels,
		BitsPerChannel: 8, SampleType: rawtile.FixedPoint,
		Encoding:   rawtile.Raw,
		SourcePath: raw.SourcePath, Resolution: raw.Resolution,
		Timestamp: raw.Timestamp,
		Data:      out.Pix,
	}

	if enc == rawtile.Raw {
		return rendered, nil
	}

	e, ok := encoders.Get(enc)
	if !ok {
		return rendered, nil
	}
	compressed, err := e.Compress(rendered, quality, meta)
	if err != nil {
		return rendered, nil
	}
	rendered.Encoding = enc
	rendered.Quality = quality
	rendered.Data = compressed
	return rendered, nil
}
