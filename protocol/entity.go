// Copyright © 2013-2015 Galvanized Logic Inc.
// Use is governed by a BSD-style license found in the LICENSE file.

package protocol

import "fmt"

// UpdateFlags is the FastUpdate entity-delta bitfield (spec.md §4.4),
// with bit positions grounded on original_source/src/net/mod.rs's
// UpdateFlags bitflags. The opcode byte itself doubles as the low byte
// of this field once Signal is set — that overload is what lets the
// decoder tell a FastUpdate from a named ServerOp with a single peek at
// the first byte (see DecodeMessage in server.go).
type UpdateFlags uint16

const (
	UpdateMoreBits   UpdateFlags = 1 << 0
	UpdateOriginX    UpdateFlags = 1 << 1
	UpdateOriginY    UpdateFlags = 1 << 2
	UpdateOriginZ    UpdateFlags = 1 << 3
	UpdateAngleY     UpdateFlags = 1 << 4 // yaw
	UpdateNoLerp     UpdateFlags = 1 << 5
	UpdateFrame      UpdateFlags = 1 << 6
	UpdateSignal     UpdateFlags = 1 << 7 // always set: marks this byte as an update, not a named opcode.
	UpdateAngleX     UpdateFlags = 1 << 8 // pitch
	UpdateAngleZ     UpdateFlags = 1 << 9 // roll
	UpdateModel      UpdateFlags = 1 << 10
	UpdateColormap   UpdateFlags = 1 << 11
	UpdateSkin       UpdateFlags = 1 << 12
	UpdateEffects    UpdateFlags = 1 << 13
	UpdateLongEntity UpdateFlags = 1 << 14
)

// EntityUpdate carries an entity's FastUpdate delta: Fields reports
// which of Origin/Angles/Frame/Model/Skin/Colormap/Effects were present
// on the wire and should be merged onto the entity's baseline by the
// client package (spec.md §4.5, "deltas against this baseline").
type EntityUpdate struct {
	Number   int32
	Fields   UpdateFlags
	Origin   [3]float32
	Angles   [3]float32
	Frame    byte
	Model    byte
	Skin     byte
	Colormap byte
	Effects  byte
	NoLerp   bool
}

// Op implements Message. FastUpdate is a sentinel: the wire opcode for an
// entity delta is never this value, it is any byte with the high bit set.
func (EntityUpdate) Op() ServerOp { return FastUpdate }

// DecodeEntityUpdate decodes one FastUpdate entity delta. first is the
// opcode byte already read by the caller to detect the high bit; it
// supplies the low 8 bits of the flags word.
func DecodeEntityUpdate(r *Reader, first byte) (EntityUpdate, error) {
	bits := UpdateFlags(first)
	if bits&UpdateMoreBits != 0 {
		bits |= UpdateFlags(r.U8()) << 8
	}
	var u EntityUpdate
	u.Fields = bits
	if bits&UpdateLongEntity != 0 {
		u.Number = int32(r.U16())
	} else {
		u.Number = int32(r.U8())
	}
	if bits&UpdateModel != 0 {
		u.Model = r.U8()
	}
	if bits&UpdateFrame != 0 {
		u.Frame = r.U8()
	}
	if bits&UpdateColormap != 0 {
		u.Colormap = r.U8()
	}
	if bits&UpdateSkin != 0 {
		u.Skin = r.U8()
	}
	if bits&UpdateEffects != 0 {
		u.Effects = r.U8()
	}
	if bits&UpdateOriginX != 0 {
		u.Origin[0] = r.Coord()
	}
	if bits&UpdateAngleX != 0 {
		u.Angles[0] = r.Angle()
	}
	if bits&UpdateOriginY != 0 {
		u.Origin[1] = r.Coord()
	}
	if bits&UpdateAngleY != 0 {
		u.Angles[1] = r.Angle()
	}
	if bits&UpdateOriginZ != 0 {
		u.Origin[2] = r.Coord()
	}
	if bits&UpdateAngleZ != 0 {
		u.Angles[2] = r.Angle()
	}
	u.NoLerp = bits&UpdateNoLerp != 0
	if r.Err() != nil {
		return EntityUpdate{}, fmt.Errorf("protocol: entity update: %w", r.Err())
	}
	return u, nil
}

// EncodeEntityUpdate writes u as a FastUpdate message, the mirror of
// DecodeEntityUpdate. u.Fields is taken as given; Signal is always set,
// LongEntity when Number exceeds 255, and MoreBits when any high-byte
// flag is present.
func EncodeEntityUpdate(w *Writer, u EntityUpdate) {
	bits := u.Fields | UpdateSignal
	if u.Number > 0xff {
		bits |= UpdateLongEntity
	}
	if bits&0xff00 != 0 {
		bits |= UpdateMoreBits
	}
	w.U8(byte(bits))
	if bits&UpdateMoreBits != 0 {
		w.U8(byte(bits >> 8))
	}
	if bits&UpdateLongEntity != 0 {
		w.U16(uint16(u.Number))
	} else {
		w.U8(byte(u.Number))
	}
	if bits&UpdateModel != 0 {
		w.U8(u.Model)
	}
	if bits&UpdateFrame != 0 {
		w.U8(u.Frame)
	}
	if bits&UpdateColormap != 0 {
		w.U8(u.Colormap)
	}
	if bits&UpdateSkin != 0 {
		w.U8(u.Skin)
	}
	if bits&UpdateEffects != 0 {
		w.U8(u.Effects)
	}
	if bits&UpdateOriginX != 0 {
		w.Coord(u.Origin[0])
	}
	if bits&UpdateAngleX != 0 {
		w.Angle(u.Angles[0])
	}
	if bits&UpdateOriginY != 0 {
		w.Coord(u.Origin[1])
	}
	if bits&UpdateAngleY != 0 {
		w.Angle(u.Angles[1])
	}
	if bits&UpdateOriginZ != 0 {
		w.Coord(u.Origin[2])
	}
	if bits&UpdateAngleZ != 0 {
		w.Angle(u.Angles[2])
	}
}
