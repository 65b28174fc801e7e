// Copyright © 2013-2016 Galvanized Logic Inc.
// Use is governed by a BSD-style license found in the LICENSE file.

// Package palette decodes the 256-entry RGB palette and translates
// indexed pixel data to RGBA plus a fullbright mask (spec.md §3,
// "Palette"). Grounded on the teacher's load/png.go image decode path,
// generalized from PNG's built-in palette support to the game's raw
// 768-byte LBM-style palette file.
package palette

import (
	"fmt"
	"image"
	"image/color"
)

const (
	// EntryCount is the number of colors in a Quake palette.
	EntryCount = 256

	// TransparentIndex is reserved as transparent when translating
	// paletted sprites and glyphs (spec.md §3).
	TransparentIndex = 255

	// FullbrightThreshold: indices at or above this value produce a
	// fullbright mask bit for later shader use (spec.md §3: "indices
	// above 223").
	FullbrightThreshold = 224
)

// Palette is an ordered sequence of 256 RGB triples.
type Palette [EntryCount]color.RGBA

// Decode parses a raw 768-byte (256 * 3) palette file.
func Decode(data []byte) (Palette, error) {
	var p Palette
	if len(data) < EntryCount*3 {
		return p, fmt.Errorf("palette: need %d bytes, got %d", EntryCount*3, len(data))
	}
	for i := 0; i < EntryCount; i++ {
		p[i] = color.RGBA{R: data[i*3], G: data[i*3+1], B: data[i*3+2], A: 0xff}
	}
	return p, nil
}

// Translate converts indexed pixel data to an RGBA image plus a
// fullbright mask (one byte per pixel, nonzero where the source index
// was >= FullbrightThreshold). transparent, when true, makes
// TransparentIndex pixels alpha-zero (used for sprites and console
// glyphs, not for opaque world textures).
func (p Palette) Translate(indices []byte, width, height int, transparent bool) (img *image.RGBA, fullbright []byte) {
	img = image.NewRGBA(image.Rect(0, 0, width, height))
	fullbright = make([]byte, width*height)
	for i, idx := range indices {
		if i >= width*height {
			break
		}
		c := p[idx]
		if transparent && idx == TransparentIndex {
			c.A = 0
		}
		img.Pix[i*4+0] = c.R
		img.Pix[i*4+1] = c.G
		img.Pix[i*4+2] = c.B
		img.Pix[i*4+3] = c.A
		if idx >= FullbrightThreshold {
			fullbright[i] = 0xff
		}
	}
	return img, fullbright
}

// AsGoPalette returns p as a stdlib color.Palette, useful for handing
// indexed images to image/draw or image/png without re-decoding.
func (p Palette) AsGoPalette() color.Palette {
	pal := make(color.Palette, EntryCount)
	for i, c := range p {
		pal[i] = c
	}
	return pal
}
