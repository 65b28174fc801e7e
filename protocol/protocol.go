// Copyright © 2013-2015 Galvanized Logic Inc.
// Use is governed by a BSD-style license found in the LICENSE file.

// Package protocol decodes server-to-client messages and encodes
// client-to-server commands over the byte stream a netchan.Channel
// carries (spec.md §4.4). Opcode values and entity-update bit positions
// are grounded on original_source/src/net/mod.rs's SvCmd/ClCmd enums and
// UpdateFlags/ExtendedUpdateFlags/SoundFlags bitflags, which is itself
// the original engine's transcription of the wire format.
package protocol

import "fmt"

// PacketMax is the largest reassembled message payload the protocol
// decoder will accept (spec.md §6).
const PacketMax = 8192

// ServerOp identifies a server-to-client message. A byte with its high
// bit set is not one of these named opcodes at all: it is the first byte
// of a FastUpdate entity bitfield (see entity.go), the same overload the
// original engine's parser uses (opcode byte doubles as the update-flags
// low byte once SIGNAL is set).
type ServerOp byte

// FastUpdate is a synthetic ServerOp returned by EntityUpdate.Op and
// never placed on the wire itself: FastUpdate deltas are recognized by
// the high bit of the opcode byte, not by a named opcode value (see
// DecodeMessage in server.go).
const FastUpdate ServerOp = 0

const (
	Nop ServerOp = iota + 1
	Disconnect
	UpdateStat
	Version
	SetView
	Sound
	Time
	Print
	StuffText
	SetAngle
	ServerInfo
	LightStyle
	UpdateName
	UpdateFrags
	ClientData
	StopSound
	UpdateColors
	Particle
	Damage
	SpawnStatic
	spawnBinaryUnused
	SpawnBaseline
	TempEntity
	SetPause
	SignOnNum
	CenterPrint
	KilledMonster
	FoundSecret
	SpawnStaticSound
	Intermission
	Finale
	CdTrack
	SellScreen
	Cutscene
)

func (op ServerOp) String() string {
	switch op {
	case Nop:
		return "Nop"
	case Disconnect:
		return "Disconnect"
	case UpdateStat:
		return "UpdateStat"
	case Version:
		return "Version"
	case SetView:
		return "SetView"
	case Sound:
		return "Sound"
	case Time:
		return "Time"
	case Print:
		return "Print"
	case StuffText:
		return "StuffText"
	case SetAngle:
		return "SetAngle"
	case ServerInfo:
		return "ServerInfo"
	case LightStyle:
		return "LightStyle"
	case UpdateName:
		return "UpdateName"
	case UpdateFrags:
		return "UpdateFrags"
	case ClientData:
		return "ClientData"
	case StopSound:
		return "StopSound"
	case UpdateColors:
		return "UpdateColors"
	case Particle:
		return "Particle"
	case Damage:
		return "Damage"
	case SpawnStatic:
		return "SpawnStatic"
	case SpawnBaseline:
		return "SpawnBaseline"
	case TempEntity:
		return "TempEntity"
	case SetPause:
		return "SetPause"
	case SignOnNum:
		return "SignOnNum"
	case CenterPrint:
		return "CenterPrint"
	case KilledMonster:
		return "KilledMonster"
	case FoundSecret:
		return "FoundSecret"
	case SpawnStaticSound:
		return "SpawnStaticSound"
	case Intermission:
		return "Intermission"
	case Finale:
		return "Finale"
	case CdTrack:
		return "CdTrack"
	case SellScreen:
		return "SellScreen"
	case Cutscene:
		return "Cutscene"
	default:
		return fmt.Sprintf("ServerOp(%d)", byte(op))
	}
}

// ClientOp identifies a client-to-server command (spec.md §4.4).
type ClientOp byte

const (
	ClientNop ClientOp = iota + 1
	ClientDisconnect
	Move
	StringCmd
)

// TempEntityKind is the sub-type byte following a TempEntity opcode.
type TempEntityKind byte

const (
	TESpike TempEntityKind = iota
	TESuperSpike
	TEGunshot
	TEExplosion
	TETarExplosion
	TELightning1
	TELightning2
	TEWizSpike
	TEKnightSpike
	TELightning3
	TELavaSplash
	TETeleport
	TEExplosion2
	TEBeam
)
