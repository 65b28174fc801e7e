// Copyright © 2013-2015 Galvanized Logic Inc.
// Use is governed by a BSD-style license found in the LICENSE file.

package protocol

import "fmt"

// Message is any decoded server-to-client message.
type Message interface {
	Op() ServerOp
}

// Bare is an opcode with no payload, or one whose payload this package
// does not model field-by-field (captured in Raw for the caller to
// ignore or special-case).
type Bare struct {
	OpCode ServerOp
	Raw    []byte
}

func (b Bare) Op() ServerOp { return b.OpCode }

// UpdateStatMessage reports a single HUD stat change.
type UpdateStatMessage struct {
	Stat  byte
	Value int32
}

func (UpdateStatMessage) Op() ServerOp { return UpdateStat }

// VersionMessage announces the server's protocol version.
type VersionMessage struct{ Version int32 }

func (VersionMessage) Op() ServerOp { return Version }

// SetViewMessage assigns the client's camera entity.
type SetViewMessage struct{ Entity int32 }

func (SetViewMessage) Op() ServerOp { return SetView }

// TimeMessage carries the server's current simulation time.
type TimeMessage struct{ Time float32 }

func (TimeMessage) Op() ServerOp { return Time }

// PrintMessage is a console message, already transcoded to UTF-8 (see
// text.go).
type PrintMessage struct{ Text string }

func (PrintMessage) Op() ServerOp { return Print }

// StuffTextMessage is a console command the server injects into the
// client's command buffer, already transcoded to UTF-8 (see text.go).
type StuffTextMessage struct{ Text string }

func (StuffTextMessage) Op() ServerOp { return StuffText }

// SetAngleMessage forces the client's view angles.
type SetAngleMessage struct{ Angles [3]float32 }

func (SetAngleMessage) Op() ServerOp { return SetAngle }

// ServerInfoMessage is the session handshake payload: protocol version,
// server limits, the level name, and the model/sound precache lists
// (spec.md §4.5, "Precache population" — the original engine folds
// ModelList/SoundList into this single message rather than separate
// opcodes, each list terminated by an empty string).
type ServerInfoMessage struct {
	ProtocolVersion int32
	MaxClients      byte
	GameType        byte
	LevelName       string
	ModelNames      []string
	SoundNames      []string
}

func (ServerInfoMessage) Op() ServerOp { return ServerInfo }

// LightStyleMessage updates one animated light style string (spec.md
// §3, "Texture animation" sibling mechanism for lightmaps).
type LightStyleMessage struct {
	Style   byte
	Pattern string
}

func (LightStyleMessage) Op() ServerOp { return LightStyle }

// UpdateNameMessage renames a client slot.
type UpdateNameMessage struct {
	Client byte
	Name   string
}

func (UpdateNameMessage) Op() ServerOp { return UpdateName }

// UpdateFragsMessage updates a client's frag count.
type UpdateFragsMessage struct {
	Client byte
	Frags  int16
}

func (UpdateFragsMessage) Op() ServerOp { return UpdateFrags }

// UpdateColorsMessage updates a client's top/bottom colors.
type UpdateColorsMessage struct {
	Client byte
	Colors byte
}

func (UpdateColorsMessage) Op() ServerOp { return UpdateColors }

// ParticleMessage spawns a burst of particles.
type ParticleMessage struct {
	Origin    [3]float32
	Direction [3]int8
	Count     byte
	Color     byte
}

func (ParticleMessage) Op() ServerOp { return Particle }

// DamageMessage drives the player's pain/flash overlay.
type DamageMessage struct {
	Armor  byte
	Blood  byte
	Origin [3]float32
}

func (DamageMessage) Op() ServerOp { return Damage }

// BaselineFields is the steady-state field set carried by SpawnStatic
// and SpawnBaseline (spec.md §4.5, "Baselines").
type BaselineFields struct {
	Model    byte
	Frame    byte
	Colormap byte
	Skin     byte
	Origin   [3]float32
	Angles   [3]float32
}

// SpawnStaticMessage creates a non-networked, never-updated entity.
type SpawnStaticMessage struct{ BaselineFields }

func (SpawnStaticMessage) Op() ServerOp { return SpawnStatic }

// SpawnBaselineMessage seeds a networked entity's baseline (spec.md
// §4.5: subsequent FastUpdate deltas apply against this, not the
// previous frame).
type SpawnBaselineMessage struct {
	Entity int32
	BaselineFields
}

func (SpawnBaselineMessage) Op() ServerOp { return SpawnBaseline }

// TempEntityMessage is a one-shot visual/sound effect.
type TempEntityMessage struct {
	Kind   TempEntityKind
	Entity int32 // valid for Lightning1/2/3 and Beam.
	Start  [3]float32
	End    [3]float32 // valid for Lightning1/2/3 and Beam; otherwise zero.
}

func (TempEntityMessage) Op() ServerOp { return TempEntity }

// SetPauseMessage toggles simulation pause.
type SetPauseMessage struct{ Paused bool }

func (SetPauseMessage) Op() ServerOp { return SetPause }

// SignOnNumMessage advances the client sign-on state machine (spec.md
// §4.5).
type SignOnNumMessage struct{ Stage int32 }

func (SignOnNumMessage) Op() ServerOp { return SignOnNum }

// CenterPrintMessage is the centered HUD announcement text.
type CenterPrintMessage struct{ Text string }

func (CenterPrintMessage) Op() ServerOp { return CenterPrint }

// SpawnStaticSoundMessage plays a sound tied to world geometry rather
// than an entity.
type SpawnStaticSoundMessage struct {
	Origin      [3]float32
	Index       byte
	Volume      byte
	Attenuation byte
}

func (SpawnStaticSoundMessage) Op() ServerOp { return SpawnStaticSound }

// FinaleMessage/CutsceneMessage carry the end-game narration text.
type FinaleMessage struct{ Text string }

func (FinaleMessage) Op() ServerOp { return Finale }

type CutsceneMessage struct{ Text string }

func (CutsceneMessage) Op() ServerOp { return Cutscene }

// CdTrackMessage carries the background music track and loop track as
// CD track numbers.
type CdTrackMessage struct {
	Track     byte
	LoopTrack byte
}

func (CdTrackMessage) Op() ServerOp { return CdTrack }

// decodeBaselineFields reads the common model/frame/colormap/skin/
// origin/angles run shared by SpawnStatic and SpawnBaseline.
func decodeBaselineFields(r *Reader) BaselineFields {
	var f BaselineFields
	f.Model = r.U8()
	f.Frame = r.U8()
	f.Colormap = r.U8()
	f.Skin = r.U8()
	for i := 0; i < 3; i++ {
		f.Origin[i] = r.Coord()
		f.Angles[i] = r.Angle()
	}
	return f
}

func encodeBaselineFields(w *Writer, f BaselineFields) {
	w.U8(f.Model)
	w.U8(f.Frame)
	w.U8(f.Colormap)
	w.U8(f.Skin)
	for i := 0; i < 3; i++ {
		w.Coord(f.Origin[i])
		w.Angle(f.Angles[i])
	}
}

// DecodeMessage reads one server-to-client message, returning a FastUpdate
// EntityUpdate when the opcode byte's high bit signals an entity delta
// rather than a named ServerOp (spec.md §4.4).
func DecodeMessage(r *Reader) (Message, error) {
	first := r.U8()
	if r.Err() != nil {
		return nil, fmt.Errorf("protocol: %w", r.Err())
	}
	if first&0x80 != 0 {
		u, err := DecodeEntityUpdate(r, first)
		if err != nil {
			return nil, err
		}
		return u, nil
	}
	op := ServerOp(first)
	switch op {
	case Nop, Disconnect, StopSound, KilledMonster, FoundSecret, Intermission, SellScreen:
		return Bare{OpCode: op}, r.Err()
	case UpdateStat:
		return UpdateStatMessage{Stat: r.U8(), Value: r.I32()}, r.Err()
	case Version:
		return VersionMessage{Version: r.I32()}, r.Err()
	case SetView:
		return SetViewMessage{Entity: int32(r.I16())}, r.Err()
	case Sound:
		s, err := DecodeSound(r)
		if err != nil {
			return nil, err
		}
		return s, nil
	case Time:
		return TimeMessage{Time: r.F32()}, r.Err()
	case Print:
		text, err := DecodeText(r.String())
		return PrintMessage{Text: text}, errOrRErr(err, r)
	case StuffText:
		text, err := DecodeText(r.String())
		return StuffTextMessage{Text: text}, errOrRErr(err, r)
	case SetAngle:
		return SetAngleMessage{Angles: [3]float32{r.Angle(), r.Angle(), r.Angle()}}, r.Err()
	case ServerInfo:
		msg := ServerInfoMessage{
			ProtocolVersion: r.I32(),
			MaxClients:      r.U8(),
			GameType:        r.U8(),
			LevelName:       r.String(),
		}
		for {
			name := r.String()
			if name == "" || r.Err() != nil {
				break
			}
			msg.ModelNames = append(msg.ModelNames, name)
		}
		for {
			name := r.String()
			if name == "" || r.Err() != nil {
				break
			}
			msg.SoundNames = append(msg.SoundNames, name)
		}
		return msg, r.Err()
	case LightStyle:
		return LightStyleMessage{Style: r.U8(), Pattern: r.String()}, r.Err()
	case UpdateName:
		return UpdateNameMessage{Client: r.U8(), Name: r.String()}, r.Err()
	case UpdateFrags:
		return UpdateFragsMessage{Client: r.U8(), Frags: r.I16()}, r.Err()
	case ClientData:
		c, err := DecodeClientData(r)
		if err != nil {
			return nil, err
		}
		return c, nil
	case UpdateColors:
		return UpdateColorsMessage{Client: r.U8(), Colors: r.U8()}, r.Err()
	case Particle:
		msg := ParticleMessage{Origin: r.Vec3()}
		for i := 0; i < 3; i++ {
			msg.Direction[i] = r.I8()
		}
		msg.Count = r.U8()
		msg.Color = r.U8()
		return msg, r.Err()
	case Damage:
		return DamageMessage{Armor: r.U8(), Blood: r.U8(), Origin: r.Vec3()}, r.Err()
	case SpawnStatic:
		return SpawnStaticMessage{decodeBaselineFields(r)}, r.Err()
	case SpawnBaseline:
		entity := int32(r.U16())
		return SpawnBaselineMessage{Entity: entity, BaselineFields: decodeBaselineFields(r)}, r.Err()
	case TempEntity:
		return decodeTempEntity(r)
	case SetPause:
		return SetPauseMessage{Paused: r.U8() != 0}, r.Err()
	case SignOnNum:
		return SignOnNumMessage{Stage: int32(r.U8())}, r.Err()
	case CenterPrint:
		text, err := DecodeText(r.String())
		return CenterPrintMessage{Text: text}, errOrRErr(err, r)
	case SpawnStaticSound:
		return SpawnStaticSoundMessage{
			Origin:      r.Vec3(),
			Index:       r.U8(),
			Volume:      r.U8(),
			Attenuation: r.U8(),
		}, r.Err()
	case Finale:
		text, err := DecodeText(r.String())
		return FinaleMessage{Text: text}, errOrRErr(err, r)
	case Cutscene:
		text, err := DecodeText(r.String())
		return CutsceneMessage{Text: text}, errOrRErr(err, r)
	case CdTrack:
		return CdTrackMessage{Track: r.U8(), LoopTrack: r.U8()}, r.Err()
	default:
		return nil, fmt.Errorf("protocol: unknown server opcode %d", first)
	}
}

func decodeTempEntity(r *Reader) (Message, error) {
	kind := TempEntityKind(r.U8())
	msg := TempEntityMessage{Kind: kind}
	switch kind {
	case TELightning1, TELightning2, TELightning3, TEBeam:
		msg.Entity = int32(r.I16())
		msg.Start = r.Vec3()
		msg.End = r.Vec3()
	default:
		msg.Start = r.Vec3()
	}
	if r.Err() != nil {
		return nil, fmt.Errorf("protocol: temp entity: %w", r.Err())
	}
	return msg, nil
}

// errOrRErr folds a text-transcode error together with the reader's own
// error state, so callers can return a single error value.
func errOrRErr(err error, r *Reader) error {
	if err != nil {
		return fmt.Errorf("protocol: %w", err)
	}
	return r.Err()
}
