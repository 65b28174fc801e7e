// Copyright © 2024 Galvanized Logic Inc.

// Package wad decodes WAD2 texture archives, the texture-atlas
// container format alongside the animated-mesh (alias) and billboard
// (sprite) asset loaders (spec.md §4.9's render orchestration draws
// from all three). Grounded on original_source/src/wad.rs and on
// bsp.go's in-BSP miptex decoder, which uses the same on-disk texture
// record.
package wad

import (
	"bytes"
	"encoding/binary"
	"fmt"

	"github.com/cormac-obrien/richter-sub002/bsp"
)

const (
	magic       = "WAD2"
	dirEntrySize = 32
	nameSize    = 16
	mipLevels   = 4
)

// Entry kinds, from the WAD2 directory record's type byte.
const (
	KindPalette = 0x40
	KindStatus  = 0x42
	KindTexture = 0x44
	KindConsole = 0x45
)

// WAD is a decoded archive: every entry's raw bytes, keyed by name.
type WAD struct {
	entries map[string]wadEntry
}

type wadEntry struct {
	kind byte
	data []byte
}

type dirRecord struct {
	Offset   int32
	DiskSize int32
	MemSize  int32
	Kind     byte
	Compress byte
	_        uint16
	Name     [nameSize]byte
}

// Load decodes a WAD2 archive held entirely in memory.
func Load(data []byte) (*WAD, error) {
	if len(data) < 4 || string(data[:4]) != magic {
		return nil, fmt.Errorf("wad: not a WAD2 archive")
	}
	if len(data) < 12 {
		return nil, fmt.Errorf("wad: truncated header")
	}
	count := int(int32(binary.LittleEndian.Uint32(data[4:8])))
	dirOffset := int(int32(binary.LittleEndian.Uint32(data[8:12])))
	if count < 0 || dirOffset < 0 || dirOffset+count*dirEntrySize > len(data) {
		return nil, fmt.Errorf("wad: directory out of range")
	}

	entries := make(map[string]wadEntry, count)
	for i := 0; i < count; i++ {
		rec := &dirRecord{}
		off := dirOffset + i*dirEntrySize
		r := bytes.NewReader(data[off : off+dirEntrySize])
		if err := binary.Read(r, binary.LittleEndian, rec); err != nil {
			return nil, fmt.Errorf("wad: bad directory entry %d: %w", i, err)
		}
		if rec.Compress != 0 {
			return nil, fmt.Errorf("wad: entry %q uses unsupported LZSS compression", cString(rec.Name[:]))
		}
		lo, hi := int(rec.Offset), int(rec.Offset)+int(rec.DiskSize)
		if lo < 0 || hi > len(data) || hi < lo {
			return nil, fmt.Errorf("wad: entry %q out of range", cString(rec.Name[:]))
		}
		name := cString(rec.Name[:])
		entries[name] = wadEntry{kind: rec.Kind, data: append([]byte(nil), data[lo:hi]...)}
	}
	return &WAD{entries: entries}, nil
}

// Has reports whether name is present in the archive.
func (w *WAD) Has(name string) bool {
	_, ok := w.entries[name]
	return ok
}

// Raw returns an entry's undecoded bytes.
func (w *WAD) Raw(name string) ([]byte, bool) {
	e, ok := w.entries[name]
	if !ok {
		return nil, false
	}
	return e.data, true
}

// Texture decodes a KindTexture entry as a miptex record, the same
// on-disk shape bsp.go's loadTextures reads out of a BSP's texture
// lump, reused here as bsp.Texture so both loaders feed the same
// renderer-facing type.
func (w *WAD) Texture(name string) (*bsp.Texture, error) {
	e, ok := w.entries[name]
	if !ok {
		return nil, fmt.Errorf("wad: no entry %q", name)
	}
	if e.kind != KindTexture {
		return nil, fmt.Errorf("wad: entry %q is not a texture", name)
	}
	const hdrSize = nameSize + 4 + 4 + mipLevels*4
	if len(e.data) < hdrSize {
		return nil, fmt.Errorf("wad: truncated miptex %q", name)
	}
	texName := cString(e.data[:nameSize])
	width := binary.LittleEndian.Uint32(e.data[nameSize : nameSize+4])
	height := binary.LittleEndian.Uint32(e.data[nameSize+4 : nameSize+8])

	tex := &bsp.Texture{Name: texName, Width: width, Height: height}
	for m := 0; m < mipLevels; m++ {
		offPos := nameSize + 8 + m*4
		mipOff := int(binary.LittleEndian.Uint32(e.data[offPos : offPos+4]))
		factor := uint32(1) << uint(m)
		size := int((width / factor) * (height / factor))
		if mipOff < 0 || mipOff+size > len(e.data) {
			return nil, fmt.Errorf("wad: miptex %q mip %d out of range", name, m)
		}
		tex.Mipmaps[m] = append([]byte(nil), e.data[mipOff:mipOff+size]...)
	}
	return tex, nil
}

func cString(b []byte) string {
	for i, c := range b {
		if c == 0 {
			return string(b[:i])
		}
	}
	return string(b)
}

