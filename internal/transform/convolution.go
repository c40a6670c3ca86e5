package transform

import "math"

// Convolve applies a square kernel (len(kernel) must be a perfect
// square) with wraparound edge handling: out-of-bounds taps wrap to the
// opposite edge rather than being clamped or zero-padded. The kernel is
// normalized by its sum when that sum is positive, else used as-is
// (so a sharpen/edge kernel summing to zero isn't rescaled to nothing).
// Operates on the float domain, ahead of contrast+quantization.
func Convolve(in *FloatBuffer, kernel []float64) *FloatBuffer {
	side := int(math.Sqrt(float64(len(kernel))))
	half := side / 2

	var total float64
	for _, k := range kernel {
		total += k
	}
	norm := 1.0
	if total > 0 {
		norm = 1 / total
	}

	out := NewFloatBuffer(in.Width, in.Height, in.Channels)
	ch := in.Channels
	w, h := in.Width, in.Height

	forEachRow(w, h, func(y int) {
		for x := 0; x < w; x++ {
			for c := 0; c < ch; c++ {
				var sum float64
				for ky := 0; ky < side; ky++ {
					sy := ((y + ky - half) % h + h) % h
					for kx := 0; kx < side; kx++ {
						sx := ((x + kx - half) % w + w) % w
						sum += kernel[ky*side+kx] * float64(in.Pix[(sy*w+sx)*ch+c])
					}
				}
				out.Pix[(y*w+x)*ch+c] = float32(clip01(sum * norm))
			}
		}
	})
	return out
}
