// Copyright © 2024 Galvanized Logic Inc.

package wad

import (
	"bytes"
	"encoding/binary"
	"testing"
)

// buildMiptex encodes a name/width/height/mip-offset header followed by
// four solid-color mip levels, the on-disk layout Texture expects.
func buildMiptex(name string, w, h uint32) []byte {
	buf := &bytes.Buffer{}
	var nameField [nameSize]byte
	copy(nameField[:], name)
	buf.Write(nameField[:])
	binary.Write(buf, binary.LittleEndian, w)
	binary.Write(buf, binary.LittleEndian, h)

	mipData := make([][]byte, mipLevels)
	total := 0
	for m := 0; m < mipLevels; m++ {
		factor := uint32(1) << uint(m)
		size := int((w / factor) * (h / factor))
		mipData[m] = bytes.Repeat([]byte{byte(m + 1)}, size)
		total += size
	}
	headerLen := nameSize + 8 + mipLevels*4
	offset := uint32(headerLen)
	for _, d := range mipData {
		binary.Write(buf, binary.LittleEndian, offset)
		offset += uint32(len(d))
	}
	for _, d := range mipData {
		buf.Write(d)
	}
	return buf.Bytes()
}

func buildWad(entries map[string][]byte, kinds map[string]byte) []byte {
	names := make([]string, 0, len(entries))
	for n := range entries {
		names = append(names, n)
	}

	type loc struct {
		offset, size int
	}
	offsets := map[string]loc{}
	lumpsStart := 12
	cursor := lumpsStart
	payload := &bytes.Buffer{}
	for _, n := range names {
		d := entries[n]
		offsets[n] = loc{cursor, len(d)}
		payload.Write(d)
		cursor += len(d)
	}

	dir := &bytes.Buffer{}
	for _, n := range names {
		l := offsets[n]
		rec := dirRecord{
			Offset:   int32(l.offset),
			DiskSize: int32(l.size),
			MemSize:  int32(l.size),
			Kind:     kinds[n],
			Compress: 0,
		}
		copy(rec.Name[:], n)
		binary.Write(dir, binary.LittleEndian, rec)
	}

	out := &bytes.Buffer{}
	out.WriteString(magic)
	binary.Write(out, binary.LittleEndian, int32(len(names)))
	binary.Write(out, binary.LittleEndian, int32(lumpsStart+payload.Len()))
	out.Write(payload.Bytes())
	out.Write(dir.Bytes())
	return out.Bytes()
}

func TestLoadRejectsBadMagic(t *testing.T) {
	if _, err := Load([]byte("XXXX")); err == nil {
		t.Error("expected an error for a non-WAD2 file")
	}
}

func TestLoadAndTexture(t *testing.T) {
	tex := buildMiptex("wall", 8, 8)
	raw := buildWad(map[string][]byte{"wall": tex}, map[string]byte{"wall": KindTexture})

	w, err := Load(raw)
	if err != nil {
		t.Fatalf("Load: %s", err)
	}
	if !w.Has("wall") {
		t.Fatal("expected entry \"wall\"")
	}

	got, err := w.Texture("wall")
	if err != nil {
		t.Fatalf("Texture: %s", err)
	}
	if got.Name != "wall" || got.Width != 8 || got.Height != 8 {
		t.Errorf("got %+v", got)
	}
	if len(got.Mipmaps[0]) != 64 || len(got.Mipmaps[1]) != 16 {
		t.Errorf("mip sizes = %d, %d, want 64, 16", len(got.Mipmaps[0]), len(got.Mipmaps[1]))
	}
}

func TestTextureRejectsWrongKind(t *testing.T) {
	raw := buildWad(map[string][]byte{"pal": {1, 2, 3}}, map[string]byte{"pal": KindPalette})
	w, err := Load(raw)
	if err != nil {
		t.Fatalf("Load: %s", err)
	}
	if _, err := w.Texture("pal"); err == nil {
		t.Error("expected an error decoding a non-texture entry as a texture")
	}
}
