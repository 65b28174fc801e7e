// Copyright © 2013-2015 Galvanized Logic Inc.
// Use is governed by a BSD-style license found in the LICENSE file.

package protocol

import "fmt"

// Button bits for MoveCommand.Buttons (spec.md §4.4, "buttons").
const (
	ButtonAttack = 1 << 0
	ButtonJump   = 1 << 1
)

// MoveCommand is one client-to-server Move message (spec.md §4.4):
// view angles, movement intent, and the duration this frame covers.
type MoveCommand struct {
	MsecDuration byte
	ViewAngles   [3]float32
	Forward      float32
	Side         float32
	Up           float32
	Buttons      byte
	Impulse      byte
}

// DecodeMove decodes a Move message body (the ClientOp byte is assumed
// already consumed).
func DecodeMove(r *Reader) (MoveCommand, error) {
	var m MoveCommand
	m.MsecDuration = r.U8()
	m.ViewAngles[0] = r.Angle16()
	m.ViewAngles[1] = r.Angle16()
	m.ViewAngles[2] = r.Angle16()
	m.Forward = r.Coord()
	m.Side = r.Coord()
	m.Up = r.Coord()
	m.Buttons = r.U8()
	m.Impulse = r.U8()
	if r.Err() != nil {
		return MoveCommand{}, fmt.Errorf("protocol: move: %w", r.Err())
	}
	return m, nil
}

// EncodeMove writes a Move message, including the leading ClientOp byte.
func EncodeMove(w *Writer, m MoveCommand) {
	w.U8(byte(Move))
	w.U8(m.MsecDuration)
	w.Angle16(m.ViewAngles[0])
	w.Angle16(m.ViewAngles[1])
	w.Angle16(m.ViewAngles[2])
	w.Coord(m.Forward)
	w.Coord(m.Side)
	w.Coord(m.Up)
	w.U8(m.Buttons)
	w.U8(m.Impulse)
}

// DecodeStringCmd decodes a StringCmd message body: a single
// NUL-terminated console command line.
func DecodeStringCmd(r *Reader) (string, error) {
	s := r.String()
	if r.Err() != nil {
		return "", fmt.Errorf("protocol: string cmd: %w", r.Err())
	}
	return s, nil
}

// EncodeStringCmd writes a StringCmd message, including the leading
// ClientOp byte.
func EncodeStringCmd(w *Writer, cmd string) {
	w.U8(byte(StringCmd))
	w.String(cmd)
}

// EncodeDisconnect writes a bare client Disconnect message.
func EncodeDisconnect(w *Writer) {
	w.U8(byte(ClientDisconnect))
}
