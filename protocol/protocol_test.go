// Copyright © 2013-2015 Galvanized Logic Inc.
// Use is governed by a BSD-style license found in the LICENSE file.

package protocol

import "testing"

func TestEntityUpdateRoundTrip(t *testing.T) {
	u := EntityUpdate{
		Number:   300, // forces UpdateLongEntity.
		Fields:   UpdateOriginX | UpdateOriginY | UpdateOriginZ | UpdateAngleY | UpdateModel | UpdateFrame | UpdateEffects,
		Origin:   [3]float32{100, -200, 32.5},
		Angles:   [3]float32{0, 90, 0},
		Model:    12,
		Frame:    4,
		Effects:  2,
		Colormap: 0,
	}
	w := NewWriter()
	EncodeEntityUpdate(w, u)

	r := NewReader(w.Bytes())
	first := r.U8()
	if first&0x80 == 0 {
		t.Fatalf("expected high bit set on FastUpdate opcode byte, got %#x", first)
	}
	got, err := DecodeEntityUpdate(r, first)
	if err != nil {
		t.Fatalf("DecodeEntityUpdate: %v", err)
	}
	if got.Number != u.Number {
		t.Fatalf("number = %d, want %d", got.Number, u.Number)
	}
	if got.Origin != u.Origin {
		t.Fatalf("origin = %v, want %v", got.Origin, u.Origin)
	}
	if got.Angles[1] != u.Angles[1] {
		t.Fatalf("yaw = %v, want %v", got.Angles[1], u.Angles[1])
	}
	if got.Model != u.Model || got.Frame != u.Frame || got.Effects != u.Effects {
		t.Fatalf("model/frame/effects = %d/%d/%d, want %d/%d/%d", got.Model, got.Frame, got.Effects, u.Model, u.Frame, u.Effects)
	}
}

func TestEntityUpdateShortNumberNoMoreBits(t *testing.T) {
	u := EntityUpdate{Number: 5, Fields: UpdateOriginX, Origin: [3]float32{16, 0, 0}}
	w := NewWriter()
	EncodeEntityUpdate(w, u)
	if len(w.Bytes()) == 0 {
		t.Fatal("empty encode")
	}
	if w.Bytes()[0]&0x01 != 0 {
		t.Fatalf("expected no MoreBits flag, got first byte %#x", w.Bytes()[0])
	}
}

func TestDecodeMessageDispatchesFastUpdate(t *testing.T) {
	u := EntityUpdate{Number: 9, Fields: UpdateOriginZ, Origin: [3]float32{0, 0, 64}}
	w := NewWriter()
	EncodeEntityUpdate(w, u)

	msg, err := DecodeMessage(NewReader(w.Bytes()))
	if err != nil {
		t.Fatalf("DecodeMessage: %v", err)
	}
	got, ok := msg.(EntityUpdate)
	if !ok {
		t.Fatalf("got %T, want EntityUpdate", msg)
	}
	if got.Number != u.Number || got.Origin[2] != u.Origin[2] {
		t.Fatalf("got %+v, want %+v", got, u)
	}
}

func TestDecodeMessageNamedOpcode(t *testing.T) {
	w := NewWriter()
	w.U8(byte(Time))
	w.F32(12.5)

	msg, err := DecodeMessage(NewReader(w.Bytes()))
	if err != nil {
		t.Fatalf("DecodeMessage: %v", err)
	}
	tm, ok := msg.(TimeMessage)
	if !ok {
		t.Fatalf("got %T, want TimeMessage", msg)
	}
	if tm.Time != 12.5 {
		t.Fatalf("time = %v, want 12.5", tm.Time)
	}
}

func TestDecodeMessageBare(t *testing.T) {
	w := NewWriter()
	w.U8(byte(Intermission))
	msg, err := DecodeMessage(NewReader(w.Bytes()))
	if err != nil {
		t.Fatalf("DecodeMessage: %v", err)
	}
	if msg.Op() != Intermission {
		t.Fatalf("op = %v, want Intermission", msg.Op())
	}
}

func TestClientDataRoundTrip(t *testing.T) {
	c := ClientDataMessage{
		Fields:      ClientVelocityX | ClientVelocityZ | ClientOnGround | ClientArmor,
		Velocity:    [3]float32{32, 0, -16},
		OnGround:    true,
		Armor:       50,
		Health:      80,
		CurrentAmmo: 25,
		AmmoCells:   1,
	}
	w := NewWriter()
	EncodeClientData(w, c)
	got, err := DecodeClientData(NewReader(w.Bytes()))
	if err != nil {
		t.Fatalf("DecodeClientData: %v", err)
	}
	if got.Velocity != c.Velocity {
		t.Fatalf("velocity = %v, want %v", got.Velocity, c.Velocity)
	}
	if !got.OnGround {
		t.Fatal("expected OnGround")
	}
	if got.Armor != c.Armor || got.Health != c.Health {
		t.Fatalf("armor/health = %d/%d, want %d/%d", got.Armor, got.Health, c.Armor, c.Health)
	}
}

func TestClientDataViewHeightDefault(t *testing.T) {
	c := ClientDataMessage{Health: 100}
	w := NewWriter()
	EncodeClientData(w, c)
	got, err := DecodeClientData(NewReader(w.Bytes()))
	if err != nil {
		t.Fatalf("DecodeClientData: %v", err)
	}
	if got.ViewHeight != 22 {
		t.Fatalf("ViewHeight = %d, want default 22", got.ViewHeight)
	}
}

func TestSoundRoundTrip(t *testing.T) {
	s := SoundMessage{
		Flags:   SoundVolume | SoundLooping,
		Volume:  128,
		Entity:  42,
		Channel: 3,
		Index:   7,
		Origin:  [3]float32{10, 20, 30},
	}
	w := NewWriter()
	EncodeSound(w, s)
	got, err := DecodeSound(NewReader(w.Bytes()))
	if err != nil {
		t.Fatalf("DecodeSound: %v", err)
	}
	if got.Entity != s.Entity || got.Channel != s.Channel {
		t.Fatalf("entity/channel = %d/%d, want %d/%d", got.Entity, got.Channel, s.Entity, s.Channel)
	}
	if got.Volume != s.Volume {
		t.Fatalf("volume = %d, want %d", got.Volume, s.Volume)
	}
	if got.Attenuation != defaultAttenuation {
		t.Fatalf("attenuation = %d, want default %d", got.Attenuation, defaultAttenuation)
	}
}

func TestMoveRoundTrip(t *testing.T) {
	m := MoveCommand{
		MsecDuration: 16,
		ViewAngles:   [3]float32{-10, 90, 0},
		Forward:      320,
		Side:         -64,
		Buttons:      ButtonAttack | ButtonJump,
		Impulse:      3,
	}
	w := NewWriter()
	EncodeMove(w, m)

	r := NewReader(w.Bytes())
	if op := ClientOp(r.U8()); op != Move {
		t.Fatalf("opcode = %v, want Move", op)
	}
	got, err := DecodeMove(r)
	if err != nil {
		t.Fatalf("DecodeMove: %v", err)
	}
	if got.MsecDuration != m.MsecDuration || got.Forward != m.Forward || got.Side != m.Side {
		t.Fatalf("got %+v, want %+v", got, m)
	}
	if got.Buttons != m.Buttons || got.Impulse != m.Impulse {
		t.Fatalf("buttons/impulse = %d/%d, want %d/%d", got.Buttons, got.Impulse, m.Buttons, m.Impulse)
	}
	// Angle16 precision: within one quantization step of 360/65536 degrees.
	const step = 360.0 / 65536.0
	for i := range m.ViewAngles {
		diff := got.ViewAngles[i] - m.ViewAngles[i]
		if diff < 0 {
			diff = -diff
		}
		if diff > step {
			t.Fatalf("view angle %d = %v, want ~%v", i, got.ViewAngles[i], m.ViewAngles[i])
		}
	}
}

func TestStringCmdRoundTrip(t *testing.T) {
	w := NewWriter()
	EncodeStringCmd(w, "say hello")

	r := NewReader(w.Bytes())
	if op := ClientOp(r.U8()); op != StringCmd {
		t.Fatalf("opcode = %v, want StringCmd", op)
	}
	got, err := DecodeStringCmd(r)
	if err != nil {
		t.Fatalf("DecodeStringCmd: %v", err)
	}
	if got != "say hello" {
		t.Fatalf("got %q", got)
	}
}

func TestServerInfoRoundTrip(t *testing.T) {
	w := NewWriter()
	w.U8(byte(ServerInfo))
	w.I32(15)
	w.U8(4)
	w.U8(0)
	w.String("The Slipgate Complex")
	w.String("progs/player.mdl")
	w.String("progs/eyes.mdl")
	w.String("")
	w.String("weapons/rocket.wav")
	w.String("")

	msg, err := DecodeMessage(NewReader(w.Bytes()))
	if err != nil {
		t.Fatalf("DecodeMessage: %v", err)
	}
	si, ok := msg.(ServerInfoMessage)
	if !ok {
		t.Fatalf("got %T, want ServerInfoMessage", msg)
	}
	if si.LevelName != "The Slipgate Complex" {
		t.Fatalf("levelname = %q", si.LevelName)
	}
	if len(si.ModelNames) != 2 || len(si.SoundNames) != 1 {
		t.Fatalf("models=%v sounds=%v", si.ModelNames, si.SoundNames)
	}
}

func TestSpawnBaselineRoundTrip(t *testing.T) {
	w := NewWriter()
	w.U8(byte(SpawnBaseline))
	w.U16(77)
	encodeBaselineFields(w, BaselineFields{
		Model: 3, Frame: 1, Colormap: 0, Skin: 0,
		Origin: [3]float32{64, 0, 16},
		Angles: [3]float32{0, 180, 0},
	})

	msg, err := DecodeMessage(NewReader(w.Bytes()))
	if err != nil {
		t.Fatalf("DecodeMessage: %v", err)
	}
	sb, ok := msg.(SpawnBaselineMessage)
	if !ok {
		t.Fatalf("got %T, want SpawnBaselineMessage", msg)
	}
	if sb.Entity != 77 || sb.Model != 3 || sb.Origin[0] != 64 {
		t.Fatalf("got %+v", sb)
	}
}

func TestTempEntityBeam(t *testing.T) {
	w := NewWriter()
	w.U8(byte(TempEntity))
	w.U8(byte(TEBeam))
	w.I16(12)
	w.Vec3([3]float32{0, 0, 0})
	w.Vec3([3]float32{100, 0, 0})

	msg, err := DecodeMessage(NewReader(w.Bytes()))
	if err != nil {
		t.Fatalf("DecodeMessage: %v", err)
	}
	te, ok := msg.(TempEntityMessage)
	if !ok {
		t.Fatalf("got %T, want TempEntityMessage", msg)
	}
	if te.Kind != TEBeam || te.Entity != 12 || te.End[0] != 100 {
		t.Fatalf("got %+v", te)
	}
}

func TestTempEntityPoint(t *testing.T) {
	w := NewWriter()
	w.U8(byte(TempEntity))
	w.U8(byte(TEExplosion))
	w.Vec3([3]float32{10, 20, 30})

	msg, err := DecodeMessage(NewReader(w.Bytes()))
	if err != nil {
		t.Fatalf("DecodeMessage: %v", err)
	}
	te, ok := msg.(TempEntityMessage)
	if !ok {
		t.Fatalf("got %T, want TempEntityMessage", msg)
	}
	if te.Kind != TEExplosion || te.Start[1] != 20 {
		t.Fatalf("got %+v", te)
	}
}

func TestDecodeTextASCIIPassthrough(t *testing.T) {
	got, err := DecodeText("plain ascii")
	if err != nil {
		t.Fatalf("DecodeText: %v", err)
	}
	if got != "plain ascii" {
		t.Fatalf("got %q", got)
	}
}

func TestTextRoundTripHighBit(t *testing.T) {
	// 0xE9 in Windows-1252 is 'é'.
	encoded, err := EncodeText("café")
	if err != nil {
		t.Fatalf("EncodeText: %v", err)
	}
	if len(encoded) != 4 || encoded[3] != 0xE9 {
		t.Fatalf("encoded = %q (% x)", encoded, encoded)
	}
	decoded, err := DecodeText(encoded)
	if err != nil {
		t.Fatalf("DecodeText: %v", err)
	}
	if decoded != "café" {
		t.Fatalf("decoded = %q, want café", decoded)
	}
}
