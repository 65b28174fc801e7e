// Copyright © 2013-2015 Galvanized Logic Inc.
// Use is governed by a BSD-style license found in the LICENSE file.

// Package pak reads the PAK archive container (spec.md §6, "PAK
// archive"): a little-endian directory of named blobs. The reading
// style is grounded on the teacher's load/locator.go zip-backed
// Locator, generalized from Go's archive/zip to the flat PACK format.
package pak

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
)

const (
	magic         = "PACK"
	headerSize    = 12
	entrySize     = 64
	nameFieldSize = 56
)

// Entry is one directory record.
type Entry struct {
	Name   string
	Offset uint32
	Length uint32
}

// Archive is a parsed PAK file: a name-indexed directory over a single
// underlying byte source.
type Archive struct {
	entries []Entry
	index   map[string]int
	data    []byte
}

// Open parses a PAK archive from raw file bytes. The byte slice is
// retained (not copied) and addressed directly by entry offsets.
func Open(data []byte) (*Archive, error) {
	if len(data) < headerSize {
		return nil, fmt.Errorf("pak: file too small for header")
	}
	if string(data[0:4]) != magic {
		return nil, fmt.Errorf("pak: bad magic %q, want %q", data[0:4], magic)
	}
	dirOffset := binary.LittleEndian.Uint32(data[4:8])
	dirLength := binary.LittleEndian.Uint32(data[8:12])
	if dirLength%entrySize != 0 {
		return nil, fmt.Errorf("pak: directory length %d not a multiple of %d", dirLength, entrySize)
	}
	end := uint64(dirOffset) + uint64(dirLength)
	if end > uint64(len(data)) {
		return nil, fmt.Errorf("pak: directory extends past end of file")
	}

	count := int(dirLength / entrySize)
	a := &Archive{entries: make([]Entry, 0, count), index: make(map[string]int, count), data: data}
	dir := data[dirOffset : dirOffset+dirLength]
	for i := 0; i < count; i++ {
		rec := dir[i*entrySize : (i+1)*entrySize]
		name := string(bytes.TrimRight(rec[0:nameFieldSize], "\x00"))
		offset := binary.LittleEndian.Uint32(rec[nameFieldSize : nameFieldSize+4])
		length := binary.LittleEndian.Uint32(rec[nameFieldSize+4 : nameFieldSize+8])
		if uint64(offset)+uint64(length) > uint64(len(data)) {
			return nil, fmt.Errorf("pak: entry %q extends past end of file", name)
		}
		if _, dup := a.index[name]; dup {
			return nil, fmt.Errorf("pak: duplicate entry %q", name)
		}
		a.index[name] = len(a.entries)
		a.entries = append(a.entries, Entry{Name: name, Offset: offset, Length: length})
	}
	return a, nil
}

// Names returns every entry name in insertion (directory) order.
func (a *Archive) Names() []string {
	names := make([]string, len(a.entries))
	for i, e := range a.entries {
		names[i] = e.Name
	}
	return names
}

// Has reports whether name exists in the archive.
func (a *Archive) Has(name string) bool {
	_, ok := a.index[name]
	return ok
}

// Open returns a reader over the named entry's bytes.
func (a *Archive) Open(name string) (io.ReadSeeker, error) {
	b, err := a.Bytes(name)
	if err != nil {
		return nil, err
	}
	return bytes.NewReader(b), nil
}

// Bytes returns the raw bytes of the named entry without copying.
func (a *Archive) Bytes(name string) ([]byte, error) {
	i, ok := a.index[name]
	if !ok {
		return nil, fmt.Errorf("pak: no such entry %q", name)
	}
	e := a.entries[i]
	return a.data[e.Offset : e.Offset+e.Length], nil
}
