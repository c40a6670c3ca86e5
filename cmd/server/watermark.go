package main

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/cshum/vipsgen/vips"

	"giipview/internal/watermark"
)

// loadWatermark decodes the overlay image at path via libvips and builds
// a premultiplied Watermark from its pixels. Only PNG overlays are
// supported; a PNG without an alpha channel is treated as fully opaque.
func loadWatermark(path string, opacity, probability float64) (*watermark.Watermark, error) {
	if ext := strings.ToLower(filepath.Ext(path)); ext != ".png" {
		return nil, fmt.Errorf("watermark overlay must be a PNG, got %q", ext)
	}

	opts := vips.DefaultPngloadOptions()
	opts.Access = vips.AccessRandom
	img, err := vips.NewPngload(path, opts)
	if err != nil {
		return nil, fmt.Errorf("loading watermark overlay: %w", err)
	}
	defer img.Close()

	width, height := img.Width(), img.Height()
	pix, err := img.ToBytes()
	if err != nil {
		return nil, fmt.Errorf("reading watermark overlay pixels: %w", err)
	}

	bands := img.Bands()
	if bands == 4 {
		return watermark.New(pix, width, height, opacity, probability), nil
	}

	rgba := make([]byte, width*height*4)
	for i := 0; i < width*height; i++ {
		for c := 0; c < 3 && c < bands; c++ {
			rgba[i*4+c] = pix[i*bands+c]
		}
		rgba[i*4+3] = 255
	}
	return watermark.New(rgba, width, height, opacity, probability), nil
}
