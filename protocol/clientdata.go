// Copyright © 2013-2015 Galvanized Logic Inc.
// Use is governed by a BSD-style license found in the LICENSE file.

package protocol

import "fmt"

// ClientFlags is the ClientData bitfield (spec.md §4.4), bit positions
// grounded on original_source/src/net/mod.rs's ExtendedUpdateFlags.
type ClientFlags uint16

const (
	ClientViewHeight ClientFlags = 1 << 0
	ClientIdealPitch ClientFlags = 1 << 1
	ClientPunchPitch ClientFlags = 1 << 2
	ClientPunchYaw   ClientFlags = 1 << 3
	ClientPunchRoll  ClientFlags = 1 << 4
	ClientVelocityX  ClientFlags = 1 << 5
	ClientVelocityY  ClientFlags = 1 << 6
	ClientVelocityZ  ClientFlags = 1 << 7
	ClientItems      ClientFlags = 1 << 9
	ClientOnGround   ClientFlags = 1 << 10
	ClientInWater    ClientFlags = 1 << 11
	ClientWeaponFrame ClientFlags = 1 << 12
	ClientArmor      ClientFlags = 1 << 13
	ClientWeapon     ClientFlags = 1 << 14
)

// ClientDataMessage is the local player's view state (spec.md §4.4).
// Items, health, ammo, and the active weapon model index are sent
// unconditionally every message; everything else is gated by Fields.
type ClientDataMessage struct {
	Fields ClientFlags

	ViewHeight  int8
	IdealPitch  int8
	PunchAngle  [3]int8
	Velocity    [3]float32
	Items       int32
	OnGround    bool
	InWater     bool
	WeaponFrame byte
	Armor       byte
	Weapon      byte

	Health      int16
	CurrentAmmo byte
	AmmoShells  byte
	AmmoNails   byte
	AmmoRockets byte
	AmmoCells   byte
	ActiveWeapon byte
}

// Op implements Message.
func (ClientDataMessage) Op() ServerOp { return ClientData }

// DecodeClientData decodes one ClientData message body (the opcode byte
// is assumed already consumed by the caller).
func DecodeClientData(r *Reader) (ClientDataMessage, error) {
	var c ClientDataMessage
	bits := ClientFlags(r.U16())
	c.Fields = bits
	if bits&ClientViewHeight != 0 {
		c.ViewHeight = r.I8()
	} else {
		c.ViewHeight = 22 // default eye height, matching the original engine's constant.
	}
	if bits&ClientIdealPitch != 0 {
		c.IdealPitch = r.I8()
	}
	if bits&ClientPunchPitch != 0 {
		c.PunchAngle[0] = r.I8()
	}
	if bits&ClientVelocityX != 0 {
		c.Velocity[0] = float32(r.I8()) * 16
	}
	if bits&ClientPunchYaw != 0 {
		c.PunchAngle[1] = r.I8()
	}
	if bits&ClientVelocityY != 0 {
		c.Velocity[1] = float32(r.I8()) * 16
	}
	if bits&ClientPunchRoll != 0 {
		c.PunchAngle[2] = r.I8()
	}
	if bits&ClientVelocityZ != 0 {
		c.Velocity[2] = float32(r.I8()) * 16
	}
	c.Items = r.I32()
	if bits&ClientOnGround != 0 {
		c.OnGround = true
	}
	if bits&ClientInWater != 0 {
		c.InWater = true
	}
	c.Health = r.I16()
	c.CurrentAmmo = r.U8()
	c.AmmoShells = r.U8()
	c.AmmoNails = r.U8()
	c.AmmoRockets = r.U8()
	c.AmmoCells = r.U8()
	c.ActiveWeapon = r.U8()
	if bits&ClientWeaponFrame != 0 {
		c.WeaponFrame = r.U8()
	}
	if bits&ClientArmor != 0 {
		c.Armor = r.U8()
	}
	if bits&ClientWeapon != 0 {
		c.Weapon = r.U8()
	}
	if r.Err() != nil {
		return ClientDataMessage{}, fmt.Errorf("protocol: client data: %w", r.Err())
	}
	return c, nil
}

// EncodeClientData writes a ClientData message, computing Fields fresh
// from which non-default fields c carries is the caller's
// responsibility — Fields is taken as given, mirroring DecodeClientData.
func EncodeClientData(w *Writer, c ClientDataMessage) {
	bits := c.Fields
	w.U16(uint16(bits))
	if bits&ClientViewHeight != 0 {
		w.I8(c.ViewHeight)
	}
	if bits&ClientIdealPitch != 0 {
		w.I8(c.IdealPitch)
	}
	if bits&ClientPunchPitch != 0 {
		w.I8(c.PunchAngle[0])
	}
	if bits&ClientVelocityX != 0 {
		w.I8(int8(c.Velocity[0] / 16))
	}
	if bits&ClientPunchYaw != 0 {
		w.I8(c.PunchAngle[1])
	}
	if bits&ClientVelocityY != 0 {
		w.I8(int8(c.Velocity[1] / 16))
	}
	if bits&ClientPunchRoll != 0 {
		w.I8(c.PunchAngle[2])
	}
	if bits&ClientVelocityZ != 0 {
		w.I8(int8(c.Velocity[2] / 16))
	}
	w.I32(c.Items)
	w.I16(c.Health)
	w.U8(c.CurrentAmmo)
	w.U8(c.AmmoShells)
	w.U8(c.AmmoNails)
	w.U8(c.AmmoRockets)
	w.U8(c.AmmoCells)
	w.U8(c.ActiveWeapon)
	if bits&ClientWeaponFrame != 0 {
		w.U8(c.WeaponFrame)
	}
	if bits&ClientArmor != 0 {
		w.U8(c.Armor)
	}
	if bits&ClientWeapon != 0 {
		w.U8(c.Weapon)
	}
}
