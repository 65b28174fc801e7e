// Copyright © 2013-2015 Galvanized Logic Inc.
// Use is governed by a BSD-style license found in the LICENSE file.

package protocol

import (
	"encoding/binary"
	"fmt"
	"math"
)

// Reader is a little-endian cursor over one decoded datagram payload,
// grounded on the same decode-cursor idiom progs/progs.go and bsp/bsp.go
// use rather than encoding/binary.Read over a struct — message layout
// mixes fixed and variable-width fields opcode by opcode.
type Reader struct {
	data []byte
	pos  int
	err  error
}

// NewReader wraps data for sequential decode.
func NewReader(data []byte) *Reader { return &Reader{data: data} }

// Err returns the first error encountered, if any.
func (r *Reader) Err() error { return r.err }

// Remaining reports how many bytes are left unread.
func (r *Reader) Remaining() int { return len(r.data) - r.pos }

func (r *Reader) need(n int) bool {
	if r.err != nil {
		return false
	}
	if r.pos+n > len(r.data) {
		r.err = fmt.Errorf("protocol: unexpected end of message at offset %d (need %d, have %d)", r.pos, n, len(r.data)-r.pos)
		return false
	}
	return true
}

// U8 reads one unsigned byte.
func (r *Reader) U8() byte {
	if !r.need(1) {
		return 0
	}
	b := r.data[r.pos]
	r.pos++
	return b
}

// I8 reads one signed byte.
func (r *Reader) I8() int8 { return int8(r.U8()) }

// U16 reads a 16-bit unsigned little-endian value.
func (r *Reader) U16() uint16 {
	if !r.need(2) {
		return 0
	}
	v := binary.LittleEndian.Uint16(r.data[r.pos:])
	r.pos += 2
	return v
}

// I16 reads a 16-bit signed little-endian value.
func (r *Reader) I16() int16 { return int16(r.U16()) }

// U32 reads a 32-bit unsigned little-endian value.
func (r *Reader) U32() uint32 {
	if !r.need(4) {
		return 0
	}
	v := binary.LittleEndian.Uint32(r.data[r.pos:])
	r.pos += 4
	return v
}

// I32 reads a 32-bit signed little-endian value.
func (r *Reader) I32() int32 { return int32(r.U32()) }

// F32 reads an IEEE-754 little-endian float.
func (r *Reader) F32() float32 {
	return math.Float32frombits(r.U32())
}

// Coord reads a fixed-point world coordinate: a 16-bit signed integer in
// units of 1/8 (3 fractional bits, spec.md §4.4).
func (r *Reader) Coord() float32 {
	return float32(r.I16()) / 8
}

// Angle reads an 8-bit unsigned turn: 1/256 of a full revolution
// (spec.md §4.4).
func (r *Reader) Angle() float32 {
	return float32(r.U8()) * (360.0 / 256.0)
}

// Angle16 reads a 16-bit signed turn in units of 1/65536 of a full
// revolution, giving degrees in [-180, 180). This is the
// higher-precision encoding the original engine reserves for
// client-to-server view angles (spec.md §4.4, "Move"), where aim
// precision matters more than it does for the 8-bit Angle used on
// other entities' FastUpdate deltas.
func (r *Reader) Angle16() float32 {
	return float32(r.I16()) * (360.0 / 65536.0)
}

// Vec3 reads three consecutive Coord values.
func (r *Reader) Vec3() [3]float32 {
	return [3]float32{r.Coord(), r.Coord(), r.Coord()}
}

// String reads a NUL-terminated byte run and returns it without the
// terminator.
func (r *Reader) String() string {
	if r.err != nil {
		return ""
	}
	start := r.pos
	for r.pos < len(r.data) && r.data[r.pos] != 0 {
		r.pos++
	}
	if r.pos >= len(r.data) {
		r.err = fmt.Errorf("protocol: unterminated string at offset %d", start)
		return ""
	}
	s := string(r.data[start:r.pos])
	r.pos++ // skip NUL.
	return s
}

// Bytes reads n raw bytes.
func (r *Reader) Bytes(n int) []byte {
	if !r.need(n) {
		return nil
	}
	b := r.data[r.pos : r.pos+n]
	r.pos += n
	return b
}
