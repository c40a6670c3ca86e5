package transform

// ResizeKernel selects the interpolation algorithm used by Resize.
type ResizeKernel int

const (
	KernelNearestNeighbour ResizeKernel = iota
	KernelBilinear
)

// Resize scales in to (outW, outH) using the given kernel.
func Resize(in *ByteBuffer, outW, outH int, kernel ResizeKernel) *ByteBuffer {
	if kernel == KernelBilinear {
		return resizeBilinear(in, outW, outH)
	}
	return resizeNearestNeighbour(in, outW, outH)
}

func resizeNearestNeighbour(in *ByteBuffer, outW, outH int) *ByteBuffer {
	out := NewByteBuffer(outW, outH, in.Channels)
	xscale := float64(in.Width) / float64(outW)
	yscale := float64(in.Height) / float64(outH)

	forEachRow(outW, outH, func(j int) {
		jj := int(float64(j) * yscale)
		if jj >= in.Height {
			jj = in.Height - 1
		}
		outRow := j * outW * in.Channels
		inRow := jj * in.Width * in.Channels
		for i := 0; i < outW; i++ {
			ii := int(float64(i) * xscale)
			if ii >= in.Width {
				ii = in.Width - 1
			}
			src := inRow + ii*in.Channels
			dst := outRow + i*in.Channels
			copy(out.Pix[dst:dst+in.Channels], in.Pix[src:src+in.Channels])
		}
	})
	return out
}

func resizeBilinear(in *ByteBuffer, outW, outH int) *ByteBuffer {
	out := NewByteBuffer(outW, outH, in.Channels)
	xscale := float64(in.Width) / float64(outW)
	yscale := float64(in.Height) / float64(outH)
	ch := in.Channels
	maxIdx := (in.Width*in.Height - 1) * ch

	forEachRow(outW, outH, func(j int) {
		jscale := float64(j) * yscale
		jj := int(jscale)
		c := float64(jj+1) - jscale
		d := jscale - float64(jj)

		outRow := j * outW * ch
		for i := 0; i < outW; i++ {
			iscale := float64(i) * xscale
			ii := int(iscale)
			a := float64(ii+1) - iscale
			b := iscale - float64(ii)

			p00 := (jj*in.Width + ii) * ch
			p10 := p00 + ch
			p01 := p00 + in.Width*ch
			p11 := p01 + ch

			dst := outRow + i*ch
			for k := 0; k < ch; k++ {
				v00 := float64(in.Pix[clampIdx(p00+k, maxIdx+ch-1)])
				v10 := float64(in.Pix[clampIdx(p10+k, maxIdx+ch-1)])
				v01 := float64(in.Pix[clampIdx(p01+k, maxIdx+ch-1)])
				v11 := float64(in.Pix[clampIdx(p11+k, maxIdx+ch-1)])
				v := a*c*v00 + b*c*v10 + a*d*v01 + b*d*v11
				out.Pix[dst+k] = byte(v)
			}
		}
	})
	return out
}

func clampIdx(idx, max int) int {
	if idx < 0 {
		return 0
	}
	if idx > max {
		return max
	}
	return idx
}

// Rotate rotates in by angle degrees; only 90, 180 and 270 are meaningful
// rotations of a tile, all other values return in unchanged.
func Rotate(in *ByteBuffer, angle int) *ByteBuffer {
	ch := in.Channels
	switch ((angle % 360) + 360) % 360 {
	case 90:
		out := NewByteBuffer(in.Height, in.Width, ch)
		forEachRow(in.Width, in.Height, func(y int) {
			for x := 0; x < in.Width; x++ {
				src := (y*in.Width + x) * ch
				dstX := in.Height - 1 - y
				dstY := x
				dst := (dstY*in.Height + dstX) * ch
				copy(out.Pix[dst:dst+ch], in.Pix[src:src+ch])
			}
		})
		return out
	case 270:
		out := NewByteBuffer(in.Height, in.Width, ch)
		forEachRow(in.Width, in.Height, func(y int) {
			for x := 0; x < in.Width; x++ {
				src := (y*in.Width + x) * ch
				dstX := y
				dstY := in.Width - 1 - x
				dst := (dstY*in.Height + dstX) * ch
				copy(out.Pix[dst:dst+ch], in.Pix[src:src+ch])
			}
		})
		return out
	case 180:
		out := NewByteBuffer(in.Width, in.Height, ch)
		total := in.Width * in.Height
		forEachRow(in.Width, in.Height, func(y int) {
			for x := 0; x < in.Width; x++ {
				src := (y*in.Width + x) * ch
				dstLinear := total - 1 - (y*in.Width + x)
				dst := dstLinear * ch
				copy(out.Pix[dst:dst+ch], in.Pix[src:src+ch])
			}
		})
		return out
	default:
		out := NewByteBuffer(in.Width, in.Height, ch)
		copy(out.Pix, in.Pix)
		return out
	}
}

// Flip mirrors in: orientation 2 flips vertically, any other value
// flips horizontally.
func Flip(in *ByteBuffer, orientation int) *ByteBuffer {
	out := NewByteBuffer(in.Width, in.Height, in.Channels)
	ch := in.Channels
	if orientation == 2 {
		forEachRow(in.Width, in.Height, func(y int) {
			srcRow := y * in.Width * ch
			dstRow := (in.Height - 1 - y) * in.Width * ch
			copy(out.Pix[dstRow:dstRow+in.Width*ch], in.Pix[srcRow:srcRow+in.Width*ch])
		})
		return out
	}
	forEachRow(in.Width, in.Height, func(y int) {
		rowStart := y * in.Width * ch
		for x := 0; x < in.Width; x++ {
			src := rowStart + x*ch
			dst := rowStart + (in.Width-1-x)*ch
			copy(out.Pix[dst:dst+ch], in.Pix[src:src+ch])
		}
	})
	return out
}

// Greyscale converts an 8-bit, 3-channel buffer to single-channel
// luminance using the fixed-point BT.709-derived weights: (1254097*R +
// 2462056*G + 478151*B) >> 22. A no-op copy if the buffer isn't 8-bit/3-channel.
func Greyscale(in *ByteBuffer) *ByteBuffer {
	if in.Channels != 3 {
		out := NewByteBuffer(in.Width, in.Height, in.Channels)
		copy(out.Pix, in.Pix)
		return out
	}
	out := NewByteBuffer(in.Width, in.Height, 1)
	forEachRow(in.Width, in.Height, func(y int) {
		inRow := y * in.Width * 3
		outRow := y * in.Width
		for x := 0; x < in.Width; x++ {
			n := inRow + x*3
			r := uint32(in.Pix[n])
			g := uint32(in.Pix[n+1])
			b := uint32(in.Pix[n+2])
			out.Pix[outRow+x] = byte((1254097*r + 2462056*g + 478151*b) >> 22)
		}
	})
	return out
}

// Twist applies a K x N color-twist matrix: each output channel k is
// the weighted sum of min(len(matrix[k]), channels) input channels.
// Operates on the float domain, ahead of contrast+quantization, since
// changing K changes the channel count downstream steps observe.
func Twist(in *FloatBuffer, matrix [][]float64) *FloatBuffer {
	outChannels := len(matrix)
	out := NewFloatBuffer(in.Width, in.Height, outChannels)
	rowSizes := make([]int, outChannels)
	for k, row := range matrix {
		rowSizes[k] = len(row)
		if rowSizes[k] > in.Channels {
			rowSizes[k] = in.Channels
		}
	}
	forEachRow(in.Width, in.Height, func(y int) {
		inRow := y * in.Width * in.Channels
		outRow := y * in.Width * outChannels
		for x := 0; x < in.Width; x++ {
			inPix := inRow + x*in.Channels
			outPix := outRow + x*outChannels
			for k := 0; k < outChannels; k++ {
				var sum float64
				for n := 0; n < rowSizes[k]; n++ {
					m := matrix[k][n]
					if m == 1.0 {
						sum += float64(in.Pix[inPix+n])
					} else {
						sum += m * float64(in.Pix[inPix+n])
					}
				}
				out.Pix[outPix+k] = float32(clip01(sum))
			}
		}
	})
	return out
}

// Flatten reduces the channel count to bands by truncating the trailing
// channels; a no-op if bands >= in.Channels.
func Flatten(in *ByteBuffer, bands int) *ByteBuffer {
	if bands >= in.Channels {
		out := NewByteBuffer(in.Width, in.Height, in.Channels)
		copy(out.Pix, in.Pix)
		return out
	}
	out := NewByteBuffer(in.Width, in.Height, bands)
	forEachRow(in.Width, in.Height, func(y int) {
		inRow := y * in.Width * in.Channels
		outRow := y * in.Width * bands
		for x := 0; x < in.Width; x++ {
			src := inRow + x*in.Channels
			dst := outRow + x*bands
			copy(out.Pix[dst:dst+bands], in.Pix[src:src+bands])
		}
	})
	return out
}
