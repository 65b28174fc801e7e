// Copyright © 2013-2015 Galvanized Logic Inc.
// Use is governed by a BSD-style license found in the LICENSE file.

package protocol

import (
	"encoding/binary"
	"math"
)

// Writer builds one message payload, the encode-side counterpart of
// Reader.
type Writer struct {
	buf []byte
}

// NewWriter returns an empty Writer.
func NewWriter() *Writer { return &Writer{} }

// Bytes returns the bytes written so far.
func (w *Writer) Bytes() []byte { return w.buf }

// U8 appends one byte.
func (w *Writer) U8(v byte) { w.buf = append(w.buf, v) }

// I8 appends one signed byte.
func (w *Writer) I8(v int8) { w.U8(byte(v)) }

// U16 appends a 16-bit little-endian value.
func (w *Writer) U16(v uint16) {
	var b [2]byte
	binary.LittleEndian.PutUint16(b[:], v)
	w.buf = append(w.buf, b[:]...)
}

// I16 appends a signed 16-bit little-endian value.
func (w *Writer) I16(v int16) { w.U16(uint16(v)) }

// U32 appends a 32-bit little-endian value.
func (w *Writer) U32(v uint32) {
	var b [4]byte
	binary.LittleEndian.PutUint32(b[:], v)
	w.buf = append(w.buf, b[:]...)
}

// I32 appends a signed 32-bit little-endian value.
func (w *Writer) I32(v int32) { w.U32(uint32(v)) }

// F32 appends an IEEE-754 little-endian float.
func (w *Writer) F32(v float32) { w.U32(math.Float32bits(v)) }

// Coord appends a fixed-point world coordinate (spec.md §4.4: 3
// fractional bits).
func (w *Writer) Coord(v float32) { w.I16(int16(math.Round(float64(v) * 8))) }

// Angle appends an 8-bit unsigned turn (spec.md §4.4: 1/256 revolution).
func (w *Writer) Angle(degrees float32) {
	turns := math.Mod(float64(degrees)*(256.0/360.0), 256)
	if turns < 0 {
		turns += 256
	}
	w.U8(byte(math.Round(turns)))
}

// Angle16 appends a 16-bit turn (1/65536 revolution), used for
// client-to-server view angles (see Reader.Angle16).
func (w *Writer) Angle16(degrees float32) {
	turns := math.Mod(float64(degrees)*(65536.0/360.0), 65536)
	if turns < 0 {
		turns += 65536
	}
	w.U16(uint16(math.Round(turns)))
}

// Vec3 appends three consecutive Coord values.
func (w *Writer) Vec3(v [3]float32) {
	w.Coord(v[0])
	w.Coord(v[1])
	w.Coord(v[2])
}

// String appends s followed by a NUL terminator.
func (w *Writer) String(s string) {
	w.buf = append(w.buf, s...)
	w.buf = append(w.buf, 0)
}

// Raw appends b verbatim.
func (w *Writer) Raw(b []byte) { w.buf = append(w.buf, b...) }
