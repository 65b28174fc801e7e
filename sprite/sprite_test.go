// Copyright © 2024 Galvanized Logic Inc.

package sprite

import (
	"bytes"
	"encoding/binary"
	"testing"

	"github.com/cormac-obrien/richter-sub002/palette"
)

func buildHeader(numFrames int32) []byte {
	buf := &bytes.Buffer{}
	hdr := header{
		Version:        wantVersion,
		Type:           int32(KindVPParallelUpright),
		BoundingRadius: 32,
		Width:          8,
		Height:         8,
		NumFrames:      numFrames,
		BeamLength:     0,
		SyncType:       0,
	}
	copy(hdr.Magic[:], magic)
	binary.Write(buf, binary.LittleEndian, hdr)
	return buf.Bytes()
}

func writeStaticFrame(buf *bytes.Buffer, w, h int32) {
	binary.Write(buf, binary.LittleEndian, int32(0)) // group flag: static
	binary.Write(buf, binary.LittleEndian, int32(0)) // origin x
	binary.Write(buf, binary.LittleEndian, int32(0)) // origin y
	binary.Write(buf, binary.LittleEndian, w)
	binary.Write(buf, binary.LittleEndian, h)
	buf.Write(bytes.Repeat([]byte{1}, int(w*h)))
}

func writeAnimatedFrame(buf *bytes.Buffer, w, h int32, intervals []float32) {
	binary.Write(buf, binary.LittleEndian, int32(1)) // group flag: animated
	binary.Write(buf, binary.LittleEndian, int32(len(intervals)))
	binary.Write(buf, binary.LittleEndian, intervals)
	for range intervals {
		binary.Write(buf, binary.LittleEndian, int32(0))
		binary.Write(buf, binary.LittleEndian, int32(0))
		binary.Write(buf, binary.LittleEndian, w)
		binary.Write(buf, binary.LittleEndian, h)
		buf.Write(bytes.Repeat([]byte{255}, int(w*h))) // index 255: TransparentIndex
	}
}

func TestLoadRejectsBadMagic(t *testing.T) {
	bad := buildHeader(0)
	bad[0] = 'X'
	if _, err := Load(bad); err == nil {
		t.Error("expected an error for a non-IDSP file")
	}
}

func TestLoadStaticFrame(t *testing.T) {
	buf := bytes.NewBuffer(buildHeader(1))
	writeStaticFrame(buf, 4, 4)

	m, err := Load(buf.Bytes())
	if err != nil {
		t.Fatalf("Load: %s", err)
	}
	if len(m.Frames) != 1 {
		t.Fatalf("frames = %d, want 1", len(m.Frames))
	}
	f := m.Frames[0]
	if f.Animated {
		t.Error("expected a static frame")
	}
	if len(f.Subframes) != 1 || len(f.Subframes[0].Indices) != 16 {
		t.Fatalf("subframe = %+v, want 16 indices", f.Subframes)
	}
	if f.Animate(1.0) != 0 {
		t.Error("static frame should always animate to subframe 0")
	}
}

func TestLoadAnimatedFrameCyclesByInterval(t *testing.T) {
	buf := bytes.NewBuffer(buildHeader(1))
	writeAnimatedFrame(buf, 2, 2, []float32{0.1, 0.2})

	m, err := Load(buf.Bytes())
	if err != nil {
		t.Fatalf("Load: %s", err)
	}
	f := m.Frames[0]
	if !f.Animated || len(f.Subframes) != 2 {
		t.Fatalf("frame = %+v, want 2 animated subframes", f)
	}
	if got := f.Animate(0.05); got != 0 {
		t.Errorf("Animate(0.05) = %d, want 0", got)
	}
	if got := f.Animate(0.15); got != 1 {
		t.Errorf("Animate(0.15) = %d, want 1", got)
	}
	if got := f.Animate(0.31); got != 0 {
		t.Errorf("Animate(0.31) = %d, want 0 (wrapped)", got)
	}
}

func TestSubframeTranslateMasksTransparentIndex(t *testing.T) {
	buf := bytes.NewBuffer(buildHeader(1))
	writeAnimatedFrame(buf, 2, 2, []float32{0.1})

	m, err := Load(buf.Bytes())
	if err != nil {
		t.Fatalf("Load: %s", err)
	}
	var pal palette.Palette
	img, _ := m.Frames[0].Subframes[0].Translate(pal)
	if img.Pix[3] != 0 {
		t.Error("expected TransparentIndex pixels to decode with zero alpha")
	}
}
