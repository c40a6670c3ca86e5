// Package transform implements the fixed-order pixel processing pipeline:
// normalize, shade (hillshading), CIELAB->sRGB, colormap, invert, gamma,
// log, contrast+8-bit quantization, resize, channel flatten, greyscale,
// color twist, flip, rotate, histogram/equalize/threshold, convolution
// and watermark. Row-parallel loops use golang.org/x/sync/errgroup once
// a buffer exceeds ParallelThreshold pixels.
package transform

import (
	"context"
	"runtime"

	"golang.org/x/sync/errgroup"
)

// ParallelThreshold is the pixel-count (width*height) above which row
// processing is split across goroutines; below it, the overhead of
// fanning out isn't worth it. 256x256 pixels.
const ParallelThreshold = 65536

// FloatBuffer holds floating point pixel samples, used for the portion
// of the pipeline that needs precision headroom (normalize, shading,
// twist, gamma/log, colormap, convolution).
type FloatBuffer struct {
	Pix      []float32
	Width    int
	Height   int
	Channels int
}

// NewFloatBuffer allocates a zeroed float buffer sized w*h*channels.
func NewFloatBuffer(w, h, channels int) *FloatBuffer {
	return &FloatBuffer{Pix: make([]float32, w*h*channels), Width: w, Height: h, Channels: channels}
}

// ByteBuffer holds quantized 8-bit pixel samples, the representation
// used for the integer-domain steps (CIELAB conversion, resize, rotate,
// flip, greyscale, histogram/equalize/threshold).
type ByteBuffer struct {
	Pix      []byte
	Width    int
	Height   int
	Channels int
}

// NewByteBuffer allocates a zeroed byte buffer sized w*h*channels.
func NewByteBuffer(w, h, channels int) *ByteBuffer {
	return &ByteBuffer{Pix: make([]byte, w*h*channels), Width: w, Height: h, Channels: channels}
}

// forEachRow runs fn(y) for every row 0..height-1, in parallel via
// errgroup once width*height exceeds ParallelThreshold, else serially.
func forEachRow(width, height int, fn func(y int)) {
	if width*height <= ParallelThreshold {
		for y := 0; y < height; y++ {
			fn(y)
		}
		return
	}

	g, _ := errgroup.WithContext(context.Background())
	workers := runtime.GOMAXPROCS(0)
	if workers < 1 {
		workers = 1
	}
	if workers > height {
		workers = height
	}
	rowsPerWorker := (height + workers - 1) / workers

	for w := 0; w < workers; w++ {
		start := w * rowsPerWorker
		end := start + rowsPerWorker
		if end > height {
			end = height
		}
		if start >= end {
			continue
		}
		g.Go(func() error {
			for y := start; y < end; y++ {
				fn(y)
			}
			return nil
		})
	}
	_ = g.Wait()
}
