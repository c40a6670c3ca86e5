package transform

import "math"

// Normalize maps each channel's samples from [min[c],max[c]] to [0,1]
// float32, channel by channel. A near-zero range (|max-min| < 1e-30)
// uses an enormous inverse scale, same degenerate handling as a
// divide-by-near-zero guard rather than a divide-by-zero panic.
func Normalize(in *FloatBuffer, min, max []float32) *FloatBuffer {
	out := NewFloatBuffer(in.Width, in.Height, in.Channels)
	inv := make([]float32, in.Channels)
	for c := 0; c < in.Channels; c++ {
		diff := max[c] - min[c]
		if f := float32(math.Abs(float64(diff))); f > 1e-30 {
			inv[c] = 1 / diff
		} else {
			inv[c] = 1e30
		}
	}
	forEachRow(in.Width, in.Height, func(y int) {
		rowStart := y * in.Width * in.Channels
		for x := 0; x < in.Width; x++ {
			for c := 0; c < in.Channels; c++ {
				idx := rowStart + x*in.Channels + c
				out.Pix[idx] = (in.Pix[idx] - min[c]) * inv[c]
			}
		}
	})
	return out
}

// Shade applies directional hillshading: treats a 3-channel buffer as
// surface normals and computes a 1-channel illumination value from the
// dot product with a light direction derived from hAngle/vAngle
// (degrees). Pixels whose normal is exactly zero are fully shadowed.
func Shade(in *FloatBuffer, hAngle, vAngle float64) *FloatBuffer {
	a := (hAngle * 2 * math.Pi) / 360
	sy := math.Cos(a)
	sx := math.Sqrt(1 - sy*sy)
	if hAngle > 180 {
		sx = -sx
	}
	a = (vAngle * 2 * math.Pi) / 360
	sz := -math.Sin(a)

	norm := math.Sqrt(sx*sx + sy*sy + sz*sz)
	if norm > 0 {
		sx, sy, sz = sx/norm, sy/norm, sz/norm
	}

	out := NewFloatBuffer(in.Width, in.Height, 1)
	forEachRow(in.Width, in.Height, func(y int) {
		inRow := y * in.Width * in.Channels
		outRow := y * in.Width
		for x := 0; x < in.Width; x++ {
			n := inRow + x*in.Channels
			nx, ny, nz := in.Pix[n], in.Pix[n+1], in.Pix[n+2]
			var ox, oy, oz float64
			if nx == 0 && ny == 0 && nz == 0 {
				ox, oy, oz = 0, 0, 0
			} else {
				ox = -(float64(nx) - 0.5) * 2
				oy = -(float64(ny) - 0.5) * 2
				oz = -(float64(nz) - 0.5) * 2
			}
			dot := 0.5 * (sx*ox + sy*oy + sz*oz)
			if dot < 0 {
				dot = 0
			} else if dot > 1 {
				dot = 1
			}
			out.Pix[outRow+x] = float32(dot)
		}
	})
	return out
}

// D65 white point and the sRGB conversion matrix, used by LABToSRGB.
const (
	d65X0 = 95.0470
	d65Y0 = 100.0
	d65Z0 = 108.8827
)

var srgbMatrix = [3][3]float64{
	{3.2406, -1.5372, -0.4986},
	{-0.9689, 1.8758, 0.0415},
	{0.0557, -0.2040, 1.0570},
}

func labPixelToSRGB(l, a, b float64) (r, g, bl float64) {
	fy := (l + 16) / 116
	fx := fy + a/500
	fz := fy - b/200

	finv := func(t float64) float64 {
		if t > 6.0/29.0 {
			return t * t * t
		}
		return 3 * (6.0 / 29.0) * (6.0 / 29.0) * (t - 4.0/29.0)
	}

	x := d65X0 * finv(fx)
	y := d65Y0 * finv(fy)
	z := d65Z0 * finv(fz)

	x, y, z = x/100, y/100, z/100

	lr := srgbMatrix[0][0]*x + srgbMatrix[0][1]*y + srgbMatrix[0][2]*z
	lg := srgbMatrix[1][0]*x + srgbMatrix[1][1]*y + srgbMatrix[1][2]*z
	lb := srgbMatrix[2][0]*x + srgbMatrix[2][1]*y + srgbMatrix[2][2]*z

	gamma := func(c float64) float64 {
		if c < 0 {
			c = 0
		}
		if c <= 0.0031308 {
			return c * 12.92
		}
		return 1.055*math.Pow(c, 1/2.4) - 0.055
	}

	r = clip255(gamma(lr) * 255)
	g = clip255(gamma(lg) * 255)
	bl = clip255(gamma(lb) * 255)
	return
}

func clip255(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 255 {
		return 255
	}
	return v
}

// clip01 clamps a normalized float-domain sample to [0,1].
func clip01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

// LABToSRGB converts a 3-channel CIELAB byte buffer (L as unsigned
// [0,255] scaled by /2.55, a/b as signed [-128,127]) to an 8-bit sRGB
// byte buffer.
func LABToSRGB(in *ByteBuffer) *ByteBuffer {
	out := NewByteBuffer(in.Width, in.Height, 3)
	forEachRow(in.Width, in.Height, func(y int) {
		rowStart := y * in.Width * in.Channels
		outRow := y * in.Width * 3
		for x := 0; x < in.Width; x++ {
			n := rowStart + x*in.Channels
			l := float64(in.Pix[n]) / 2.55
			a := float64(int8(in.Pix[n+1]))
			b := float64(int8(in.Pix[n+2]))
			r, g, bl := labPixelToSRGB(l, a, b)
			o := outRow + x*3
			out.Pix[o] = byte(r)
			out.Pix[o+1] = byte(g)
			out.Pix[o+2] = byte(bl)
		}
	})
	return out
}
