// Package watermark implements block-tiled, probabilistic tile
// stamping: the overlay image is loaded once, premultiplied by opacity,
// and applied to output buffers block by block, each block independently
// deciding (by a weighted coin flip) whether to receive a stamp.
package watermark

import (
	"math/rand"

	"giipview/internal/transform"
)

// Watermark holds a premultiplied RGB overlay and the parameters
// governing how often and how strongly it is applied.
type Watermark struct {
	Width, Height int
	Pix           []float64 // premultiplied R,G,B, one triple per overlay pixel

	Opacity     float64
	Probability float64
	Set         bool
}

// New builds a Watermark from a decoded RGBA overlay (8 bits per
// channel), premultiplying each color channel by opacity and the
// pixel's own alpha, matching the premultiply done once at load time.
func New(rgba []byte, width, height int, opacity, probability float64) *Watermark {
	w := &Watermark{Width: width, Height: height, Opacity: opacity, Probability: probability, Set: true}
	w.Pix = make([]float64, width*height*3)
	for i := 0; i < width*height; i++ {
		r := float64(rgba[i*4])
		g := float64(rgba[i*4+1])
		b := float64(rgba[i*4+2])
		a := float64(rgba[i*4+3]) / 255.0
		w.Pix[i*3] = r * opacity * a
		w.Pix[i*3+1] = g * opacity * a
		w.Pix[i*3+2] = b * opacity * a
	}
	return w
}

// Apply stamps buf block by block. block <= 0, or a buffer smaller than
// block on both axes, treats the whole buffer as a single block.
func (w *Watermark) Apply(buf *transform.ByteBuffer, bitsPerChannel, block int) {
	if !w.Set || w.Probability == 0 || w.Opacity == 0 {
		return
	}

	tileWidth, tileHeight := buf.Width, buf.Height
	ntlx, ntly := 1, 1
	if block > 0 && (buf.Width > block || buf.Height > block) {
		tileWidth, tileHeight = block, block
		ntlx = (buf.Width + block - 1) / block
		ntly = (buf.Height + block - 1) / block
	}

	ch := buf.Channels

	for ty := 0; ty < ntly; ty++ {
		for tx := 0; tx < ntlx; tx++ {
			if rand.Float64() >= w.Probability {
				continue
			}

			bw := tileWidth
			if tx == ntlx-1 && buf.Width%tileWidth != 0 {
				bw = buf.Width % tileWidth
			}
			bh := tileHeight
			if ty == ntly-1 && buf.Height%tileHeight != 0 {
				bh = buf.Height % tileHeight
			}

			var xoffset, yoffset int
			if tileWidth > w.Width {
				xoffset = rand.Intn(tileWidth - w.Width + 1)
			}
			if tileHeight > w.Height {
				yoffset = rand.Intn(tileHeight - w.Height + 1)
			}

			xlimit := bw
			if xlimit > w.Width {
				xlimit = w.Width
			}
			ylimit := bh
			if ylimit > w.Height {
				ylimit = w.Height
			}

			for i := 0; i < ylimit; i++ {
				for j := 0; j < xlimit; j++ {
					py := ty*tileHeight + i + yoffset
					px := tx*tileWidth + j + xoffset
					if py >= buf.Height || px >= buf.Width {
						continue
					}
					id := (py*buf.Width + px) * ch
					wid := (i*w.Width + j) * 3

					for k := 0; k < ch && k < 3; k++ {
						if bitsPerChannel == 16 {
							o := (id + k) * 2
							v := int(buf.Pix[o])<<8 | int(buf.Pix[o+1])
							t := float64(v) + w.Pix[wid+k]*256
							if t > 65535 {
								t = 65535
							}
							buf.Pix[o], buf.Pix[o+1] = byte(int(t)>>8), byte(int(t))
						} else {
							t := float64(buf.Pix[id+k]) + w.Pix[wid+k]
							if t > 255 {
								t = 255
							}
							buf.Pix[id+k] = byte(t)
						}
					}
				}
			}
		}
	}
}
