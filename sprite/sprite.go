// Copyright © 2024 Galvanized Logic Inc.

// Package sprite decodes billboard sprites (SPR files): the third leg
// of spec.md §9's brush/alias/sprite/none tagged model variant,
// alongside package alias's animated meshes and package bsp's brush
// geometry. Grounded on the SPR layout described by
// original_source/src/client/render/world/sprite.rs's SpriteModel/
// SpriteFrame/SpriteSubframe types (static vs. animated frame groups,
// each subframe carrying its own origin offset) and decoded the same
// way load/iqm.go decodes IQM: a fixed header read via encoding/binary
// followed by a sequence of variable-length records.
package sprite

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"image"
	"io"

	"github.com/cormac-obrien/richter-sub002/palette"
)

// Kind is the sprite's billboarding mode, read from the SPR header.
// The renderer orients the sprite's quad differently per kind: always
// facing the camera, upright and only yawing, or using a fixed
// orientation baked into the model.
type Kind int32

const (
	KindVPParallelUpright  Kind = 0
	KindFacingUpright      Kind = 1
	KindVPParallel         Kind = 2
	KindVPOriented         Kind = 3
	KindVPParallelOriented Kind = 4
)

// Subframe is one decoded image in a sprite: palette-indexed pixels
// plus the offset used to anchor the quad relative to the entity's
// origin.
type Subframe struct {
	OriginX, OriginY int32
	Width, Height    int
	Indices          []byte
}

// Frame is either a single Subframe (Animated == false) or a group of
// subframes cycled by Intervals, each entry the duration in seconds
// that subframe stays on screen before advancing to the next.
type Frame struct {
	Animated  bool
	Subframes []Subframe
	Intervals []float32
}

// Animate picks the subframe showing at elapsed seconds into the
// frame's animation loop, wrapping at the total of Intervals. Static
// frames always return subframe 0.
func (f Frame) Animate(elapsed float64) int {
	if !f.Animated || len(f.Subframes) == 0 {
		return 0
	}
	total := float64(0)
	for _, d := range f.Intervals {
		total += float64(d)
	}
	if total <= 0 {
		return 0
	}
	t := elapsed - total*float64(int(elapsed/total))
	for i, d := range f.Intervals {
		t -= float64(d)
		if t <= 0 {
			return i
		}
	}
	return len(f.Subframes) - 1
}

// Translate decodes a subframe's indexed pixels into an RGBA image,
// with TransparentIndex pixels made transparent: sprites, unlike brush
// textures, are masked rather than opaque (palette.Translate's
// transparent flag).
func (s Subframe) Translate(pal palette.Palette) (img *image.RGBA, fullbright []byte) {
	return pal.Translate(s.Indices, s.Width, s.Height, true)
}

// Model is a decoded SPR file: a billboarding Kind and the sequence of
// frames an entity's frame index selects into.
type Model struct {
	Kind           Kind
	BoundingRadius float32
	Width, Height  int
	BeamLength     float32
	Frames         []Frame
}

const magic = "IDSP"

type header struct {
	Magic          [4]byte
	Version        int32
	Type           int32
	BoundingRadius float32
	Width          int32
	Height         int32
	NumFrames      int32
	BeamLength     float32
	SyncType       int32
}

const wantVersion = 1

// Load decodes an SPR file held entirely in memory.
func Load(data []byte) (*Model, error) {
	r := bytes.NewReader(data)
	var hdr header
	if err := binary.Read(r, binary.LittleEndian, &hdr); err != nil {
		return nil, fmt.Errorf("sprite: truncated header: %w", err)
	}
	if string(hdr.Magic[:]) != magic {
		return nil, fmt.Errorf("sprite: bad magic %q", hdr.Magic[:])
	}
	if hdr.Version != wantVersion {
		return nil, fmt.Errorf("sprite: unsupported version %d", hdr.Version)
	}
	if hdr.NumFrames < 0 {
		return nil, fmt.Errorf("sprite: negative frame count %d", hdr.NumFrames)
	}

	m := &Model{
		Kind:           Kind(hdr.Type),
		BoundingRadius: hdr.BoundingRadius,
		Width:          int(hdr.Width),
		Height:         int(hdr.Height),
		BeamLength:     hdr.BeamLength,
		Frames:         make([]Frame, 0, hdr.NumFrames),
	}
	for i := int32(0); i < hdr.NumFrames; i++ {
		f, err := readFrame(r)
		if err != nil {
			return nil, fmt.Errorf("sprite: frame %d: %w", i, err)
		}
		m.Frames = append(m.Frames, f)
	}
	return m, nil
}

func readFrame(r *bytes.Reader) (Frame, error) {
	var group int32
	if err := binary.Read(r, binary.LittleEndian, &group); err != nil {
		return Frame{}, fmt.Errorf("group flag: %w", err)
	}
	if group == 0 {
		sub, err := readSubframe(r)
		if err != nil {
			return Frame{}, err
		}
		return Frame{Subframes: []Subframe{sub}}, nil
	}

	var count int32
	if err := binary.Read(r, binary.LittleEndian, &count); err != nil {
		return Frame{}, fmt.Errorf("group count: %w", err)
	}
	if count < 0 {
		return Frame{}, fmt.Errorf("negative group count %d", count)
	}
	intervals := make([]float32, count)
	if err := binary.Read(r, binary.LittleEndian, intervals); err != nil {
		return Frame{}, fmt.Errorf("group intervals: %w", err)
	}
	subframes := make([]Subframe, count)
	for i := range subframes {
		sub, err := readSubframe(r)
		if err != nil {
			return Frame{}, fmt.Errorf("subframe %d: %w", i, err)
		}
		subframes[i] = sub
	}
	return Frame{Animated: true, Subframes: subframes, Intervals: intervals}, nil
}

func readSubframe(r *bytes.Reader) (Subframe, error) {
	var raw struct {
		OriginX, OriginY int32
		Width, Height    int32
	}
	if err := binary.Read(r, binary.LittleEndian, &raw); err != nil {
		return Subframe{}, fmt.Errorf("subframe header: %w", err)
	}
	if raw.Width < 0 || raw.Height < 0 {
		return Subframe{}, fmt.Errorf("negative subframe dimensions %dx%d", raw.Width, raw.Height)
	}
	indices := make([]byte, raw.Width*raw.Height)
	if len(indices) > 0 {
		if _, err := io.ReadFull(r, indices); err != nil {
			return Subframe{}, fmt.Errorf("subframe pixels: %w", err)
		}
	}
	return Subframe{
		OriginX: raw.OriginX, OriginY: raw.OriginY,
		Width: int(raw.Width), Height: int(raw.Height),
		Indices: indices,
	}, nil
}
