// Copyright © 2024 Galvanized Logic Inc.

// Package engine ties every subsystem package together into the
// fixed-timestep host loop spec.md §5 describes. It is grounded on the
// teacher's eng.go Action/update/render split, generalized from a
// single-process render loop into the networked client loop spec.md §5
// orders as: network receive, protocol decode, client state update, VM
// StartFrame, physics, VM think dispatch, VM PlayerPostThink, render
// command assembly, audio update, network send.
package engine

import (
	"fmt"
	"math"
	"net"
	"time"

	"github.com/cormac-obrien/richter-sub002/audio"
	"github.com/cormac-obrien/richter-sub002/bsp"
	"github.com/cormac-obrien/richter-sub002/client"
	"github.com/cormac-obrien/richter-sub002/config"
	"github.com/cormac-obrien/richter-sub002/console"
	"github.com/cormac-obrien/richter-sub002/math/lin"
	"github.com/cormac-obrien/richter-sub002/netchan"
	"github.com/cormac-obrien/richter-sub002/physics"
	"github.com/cormac-obrien/richter-sub002/progs"
	"github.com/cormac-obrien/richter-sub002/protocol"
	"github.com/cormac-obrien/richter-sub002/render"
	"github.com/cormac-obrien/richter-sub002/vfs"
	"github.com/cormac-obrien/richter-sub002/world"
)

// ErrorKind classifies an EngineError by the subsystem policy spec.md
// §7 assigns it (I/O and Asset errors are fatal to the current level,
// VM errors are fatal to the current level, Network/Client errors
// return the client to NotConnected, Audio errors are logged and
// swallowed).
type ErrorKind int

const (
	ErrIO ErrorKind = iota
	ErrAsset
	ErrVM
	ErrNetwork
	ErrClient
	ErrAudio
)

func (k ErrorKind) String() string {
	switch k {
	case ErrIO:
		return "io"
	case ErrAsset:
		return "asset"
	case ErrVM:
		return "vm"
	case ErrNetwork:
		return "network"
	case ErrClient:
		return "client"
	case ErrAudio:
		return "audio"
	default:
		return "unknown"
	}
}

// EngineError is the structured error spec.md §7 requires every
// subsystem to report through rather than an ad hoc string: which
// subsystem raised it, what kind of failure it was, and a detail
// message for the console/log.
type EngineError struct {
	Subsystem string
	Kind      ErrorKind
	Detail    string
}

func (e *EngineError) Error() string {
	return fmt.Sprintf("%s: %s: %s", e.Subsystem, e.Kind, e.Detail)
}

func newErr(subsystem string, kind ErrorKind, format string, args ...any) *EngineError {
	return &EngineError{Subsystem: subsystem, Kind: kind, Detail: fmt.Sprintf(format, args...)}
}

// Logger is the minimal structured-log sink the host loop writes
// non-fatal errors to (spec.md §7: "the host loop logs non-fatal
// errors and continues"). *console.Console satisfies this via its Log
// method, which is how Engine is normally wired.
type Logger interface {
	Log(line string)
}

// Engine owns one running instance: the bytecode image and VM, the
// replicated entity world, the physics mover, the current level, the
// network channel to a server, client-side presentation state, audio,
// and render orchestration (spec.md §1's scope end to end).
type Engine struct {
	cfg    config.Config
	log    Logger
	fs     *vfs.FS
	img    *progs.Image
	vm     *progs.VM
	world  *world.World
	mover  *physics.Mover
	level  *bsp.BSP

	conn    *net.UDPConn
	peer    *net.UDPAddr
	channel *netchan.Channel

	client       *client.Client
	mixer        *audio.Mixer
	music        *audio.MusicSink
	soundHandles map[byte]uint64 // precache sound index -> bound device handle

	frame  *render.Frame
	scene  render.Scene
	device render.Device

	time float64 // accumulated simulation time, fed to VM.SetTime (spec.md §4.1).

	thinkField     int32
	nextthinkField int32
	liveEntities   []int32 // entities seen live as of the last physics/think pass.

	alive bool
}

// New wires every subsystem for one running level: img is the
// compiled bytecode, level is the loaded BSP map the world's area tree
// and the mover's traces are built against, and fs resolves assets
// (textures, sounds, models) the render/audio layers still need to
// load. The caller supplies log for non-fatal diagnostics (typically a
// *console.Console).
func New(cfg config.Config, img *progs.Image, level *bsp.BSP, fs *vfs.FS, log Logger) (*Engine, error) {
	bounds := world.Bounds{}
	if len(level.Models) > 0 {
		m := level.Models[0]
		bounds = world.Bounds{
			Mins: [3]float32{float32(m.Mins.X), float32(m.Mins.Y), float32(m.Mins.Z)},
			Maxs: [3]float32{float32(m.Maxs.X), float32(m.Maxs.Y), float32(m.Maxs.Z)},
		}
	}

	w := world.New(img, bounds)
	mover, err := physics.NewMover(w, level)
	if err != nil {
		return nil, newErr("physics", ErrAsset, "building mover: %s", err)
	}

	eng := &Engine{
		cfg:     cfg,
		log:     log,
		fs:      fs,
		img:     img,
		vm:      progs.New(img, w),
		world:   w,
		mover:   mover,
		level:   level,
		channel: netchan.New(),
		client:  client.New(),
		frame:   render.NewFrame(),
		device:  render.New(),
		scene:   render.Scene{Map: level, LightStyles: map[byte]string{}},
	}
	eng.mixer = audio.NewMixer(audio.New())
	eng.music = audio.NewMusicSink(fs, audio.New())
	eng.soundHandles = map[byte]uint64{}

	if off, ok := w.FieldOffset("think"); ok {
		eng.thinkField = off
	} else {
		return nil, newErr("vm", ErrAsset, "progs image has no think field")
	}
	if off, ok := w.FieldOffset("nextthink"); ok {
		eng.nextthinkField = off
	} else {
		return nil, newErr("vm", ErrAsset, "progs image has no nextthink field")
	}

	return eng, nil
}

// findFunction resolves a named QuakeC entry point (StartFrame,
// PlayerPreThink, PlayerPostThink, ...) to the index Execute expects,
// returning ok=false if the progs image doesn't define it (some mods
// omit optional hooks).
func (eng *Engine) findFunction(name string) (int32, bool) {
	id, ok := eng.img.Strings.Find(name)
	if !ok {
		return 0, false
	}
	for i, fn := range eng.img.Functions {
		if fn.NameID == int32(id) && !fn.IsBuiltin() {
			return int32(i), true
		}
	}
	return 0, false
}

// callIfPresent executes a named global function, silently doing
// nothing if the progs image defines no such hook (spec.md §4.6's
// QuakeC entry points are all optional from the engine's point of
// view).
func (eng *Engine) callIfPresent(name string) error {
	fn, ok := eng.findFunction(name)
	if !ok {
		return nil
	}
	return eng.vm.Execute(fn)
}

// Connect opens a UDP socket to addr (spec.md §6: "UDP, default server
// port 26000"); an addr without a port gets the configured ServerPort.
// Connect only opens the transport and flips client state to
// Connecting: no challenge/connect exchange is sent, and out-of-band
// replies are parsed and then discarded by handleOutOfBand.
func (eng *Engine) Connect(addr string) error {
	if _, _, err := net.SplitHostPort(addr); err != nil {
		addr = net.JoinHostPort(addr, fmt.Sprint(eng.cfg.ServerPort))
	}
	udpAddr, err := net.ResolveUDPAddr("udp", addr)
	if err != nil {
		return newErr("network", ErrNetwork, "resolving %q: %s", addr, err)
	}
	conn, err := net.ListenUDP("udp", nil)
	if err != nil {
		return newErr("network", ErrNetwork, "opening socket: %s", err)
	}
	eng.conn = conn
	eng.peer = udpAddr
	eng.channel = netchan.New()
	eng.client.BeginConnecting()
	return nil
}

// Disconnect tears down the network connection and returns the client
// to NotConnected (spec.md §7: network/client failures "return to
// NotConnected").
func (eng *Engine) Disconnect() {
	if eng.conn != nil {
		eng.conn.Close()
		eng.conn = nil
	}
	eng.client.Disconnect()
	eng.soundHandles = map[byte]uint64{}
}

// receiveDatagrams drains every pending UDP datagram without blocking
// (spec.md §5: "network receive is nonblocking: it drains all pending
// datagrams then returns") and folds each into the client's decoded
// message stream.
func (eng *Engine) receiveDatagrams() {
	if eng.conn == nil {
		return
	}
	buf := make([]byte, 8192)
	for {
		if err := eng.conn.SetReadDeadline(time.Now()); err != nil {
			return
		}
		n, from, err := eng.conn.ReadFromUDP(buf)
		if err != nil {
			return // no more pending datagrams (or a transient timeout).
		}
		if eng.peer != nil && !from.IP.Equal(eng.peer.IP) {
			continue
		}
		pkt := buf[:n]
		if netchan.IsOutOfBand(pkt) {
			eng.handleOutOfBand(pkt)
			continue
		}
		incoming, ok, err := eng.channel.Accept(pkt)
		if err != nil {
			eng.log.Log(newErr("network", ErrNetwork, "netchan accept: %s", err).Error())
			continue
		}
		if !ok {
			continue
		}
		eng.decodeAndApply(incoming.Data)
	}
}

func (eng *Engine) handleOutOfBand(pkt []byte) {
	req, err := netchan.ParseOutOfBand(pkt)
	if err != nil {
		eng.log.Log(newErr("network", ErrNetwork, "out-of-band: %s", err).Error())
		return
	}
	_ = req // connection handshake (challenge/connect) is a future increment.
}

// decodeAndApply walks every message packed into one netchan payload
// (a single datagram commonly carries several server messages
// concatenated) and applies each to client state in order.
func (eng *Engine) decodeAndApply(data []byte) {
	r := protocol.NewReader(data)
	for r.Remaining() > 0 {
		msg, err := protocol.DecodeMessage(r)
		if err != nil {
			eng.log.Log(newErr("client", ErrClient, "decode: %s", err).Error())
			return
		}
		if err := eng.client.HandleMessage(msg); err != nil {
			eng.log.Log(newErr("client", ErrClient, "%s", err).Error())
		}
		switch m := msg.(type) {
		case protocol.SoundMessage:
			eng.playSound(m.Index, m.Entity, byte(m.Channel), toV3(m.Origin), float64(m.Volume)/255, float64(m.Attenuation)/64, m.Flags&protocol.SoundLooping != 0)
		case protocol.SpawnStaticSoundMessage:
			eng.playSound(m.Index, 0, 0, toV3(m.Origin), float64(m.Volume)/255, float64(m.Attenuation)/64, false)
		}
	}
}

// resolveSound binds index's precache name to a device handle the
// first time it's played, caching the handle for every later Sound
// message that names the same index (spec.md §4.5's precache
// population feeding §4.8's mixer).
func (eng *Engine) resolveSound(index byte) (uint64, bool) {
	if h, ok := eng.soundHandles[index]; ok {
		return h, true
	}
	name, ok := eng.client.Precache.SoundName(int(index))
	if !ok {
		return 0, false
	}
	h, err := eng.mixer.Bind(eng.fs, name)
	if err != nil {
		eng.log.Log(newErr("audio", ErrAudio, "%s", err).Error())
		return 0, false
	}
	eng.soundHandles[index] = h
	return h, true
}

// playSound resolves index to a bound handle and hands it to the
// mixer, dropping the sound silently if the index was never precached
// or the asset fails to decode (spec.md §4.8's channel-pool play).
func (eng *Engine) playSound(index byte, entity int32, slot byte, origin lin.V3, volume, attenuation float64, looping bool) {
	if index == 0 {
		return
	}
	handle, ok := eng.resolveSound(index)
	if !ok {
		return
	}
	eng.mixer.Play(eng.time, entity, slot, int(index), handle, origin, volume, attenuation, looping, 0)
}

// sendOutgoing flushes the client's queued console/move output onto
// the wire (spec.md §5's final tick phase, "network send").
func (eng *Engine) sendOutgoing(con *console.Console) {
	if eng.conn == nil || eng.peer == nil {
		return
	}
	for _, cmd := range eng.client.Outgoing {
		w := protocol.NewWriter()
		protocol.EncodeStringCmd(w, cmd)
		if err := eng.channel.QueueReliable(w.Bytes()); err != nil {
			eng.log.Log(newErr("network", ErrNetwork, "queue reliable: %s", err).Error())
		}
	}
	eng.client.Outgoing = nil

	pkt, err := eng.channel.Outgoing(nil)
	if err != nil {
		eng.log.Log(newErr("network", ErrNetwork, "building outgoing: %s", err).Error())
		return
	}
	if len(pkt) == 0 {
		return
	}
	if _, err := eng.conn.WriteToUDP(pkt, eng.peer); err != nil {
		eng.log.Log(newErr("network", ErrNetwork, "write: %s", err).Error())
	}
}

// dispatchThink walks every live entity and calls its think function
// once its nextthink deadline has passed, mirroring physics/mover.go's
// resolve-offsets-once-then-iterate-live-ids idiom (spec.md §4.6,
// "think dispatch").
func (eng *Engine) dispatchThink() {
	for _, id := range eng.liveEntities {
		if id == world.WorldEntity || !eng.world.Exists(id) {
			continue
		}
		next := eng.world.GetFloat(id, eng.nextthinkField)
		if next <= 0 || float64(next) > eng.time {
			continue
		}
		eng.world.SetFloat(id, eng.nextthinkField, 0)
		fn := eng.world.GetInt(id, eng.thinkField)
		if fn <= 0 {
			continue
		}
		eng.vm.SetGlobalEntity("self", id)
		if err := eng.vm.Execute(fn); err != nil {
			eng.log.Log(newErr("vm", ErrVM, "think on entity %d: %s", id, err).Error())
		}
	}
}

// refreshLiveEntities rebuilds the tracked id list from the world's
// occupied slots (the world package does not itself enumerate live
// entities — it only answers Exists(id) for a given id — so the
// engine is responsible for tracking which ids are in play).
func (eng *Engine) refreshLiveEntities() {
	eng.liveEntities = eng.liveEntities[:0]
	for id := int32(0); id < world.MaxEntities; id++ {
		if eng.world.Exists(id) {
			eng.liveEntities = append(eng.liveEntities, id)
		}
	}
}

// Tick advances the simulation by exactly one fixed timestep dt,
// running spec.md §5's ordered phases: network receive, protocol
// decode, client state update, VM StartFrame, physics, VM think
// dispatch, VM PlayerPostThink, render command assembly, audio update,
// network send.
func (eng *Engine) Tick(con *console.Console, dt float64) {
	eng.time += dt

	eng.receiveDatagrams() // + protocol decode + client state update, folded together above.

	eng.vm.SetTime(float32(eng.time), float32(dt))
	if err := eng.callIfPresent("StartFrame"); err != nil {
		eng.log.Log(newErr("vm", ErrVM, "StartFrame: %s", err).Error())
	}

	eng.refreshLiveEntities()
	eng.mover.Step(eng.liveEntities, dt)
	eng.dispatchThink()
	if err := eng.callIfPresent("PlayerPostThink"); err != nil {
		eng.log.Log(newErr("vm", ErrVM, "PlayerPostThink: %s", err).Error())
	}

	eng.buildFrame()

	if view, ok := eng.client.Entities[eng.client.ViewEntity]; ok {
		pose := view.Interpolate(eng.client.CurrTime)
		right := lookRight(pose.Angles)
		eng.mixer.SetListener(toV3(pose.Origin), right)
	}

	eng.sendOutgoing(con)

	for _, line := range eng.client.ConsoleText {
		con.Log(line)
	}
	eng.client.ConsoleText = nil
	for _, text := range eng.client.Exec {
		if err := con.Execute(text); err != nil {
			eng.log.Log(newErr("client", ErrClient, "stuffed command: %s", err).Error())
		}
	}
	eng.client.Exec = nil
}

// buildFrame assembles one frame's render command lists from the
// client's interpolated entity poses and submits them to the device
// (spec.md §5's "render command assembly" phase, §4.9).
func (eng *Engine) buildFrame() {
	eng.scene.Time = eng.time
	eng.scene.LightStyles = eng.client.LightStyles
	if view, ok := eng.client.Entities[eng.client.ViewEntity]; ok {
		pose := view.Interpolate(eng.client.CurrTime)
		eng.scene.CameraPos = toV3(pose.Origin)
	}

	ents := make([]render.Renderable, 0, len(eng.client.Entities))
	for number, e := range eng.client.Entities {
		if number == eng.client.ViewEntity {
			continue // the local player's own model is not drawn from first person.
		}
		pose := e.Interpolate(eng.client.CurrTime)
		ents = append(ents, render.Renderable{
			Tag:    uint32(number),
			Model:  uint16(e.Curr.Model),
			Skin:   e.Curr.Skin,
			Frame:  e.Curr.Frame,
			Origin: toV3(pose.Origin),
			Angles: toV3(pose.Angles),
			Alpha:  1,
		})
	}

	eng.frame.Build(&eng.scene, ents, nil, nil)
	if err := eng.device.Submit(eng.frame.Passes()); err != nil {
		eng.log.Log(newErr("render", ErrAsset, "submit: %s", err).Error())
	}
}

// Action runs the fixed-timestep host loop until Shutdown stops it,
// grounded directly on the teacher's eng.go Action/update/render split
// (time.Since/time.Sleep-paced accumulator, 0.2s spiral-of-death cap)
// but generalized from a render-only loop to spec.md §5's full
// network+VM+physics+render+audio tick.
func (eng *Engine) Action(con *console.Console) {
	eng.alive = true
	dt := eng.cfg.Timestep
	const capTime = 0.2

	var updateTime float64
	last := time.Now()
	for eng.alive {
		elapsed := time.Since(last).Seconds()
		last = time.Now()
		if elapsed > capTime {
			elapsed = capTime
		}
		if elapsed < dt {
			time.Sleep(time.Duration((dt - elapsed) * float64(time.Second)))
		}

		updateTime += elapsed
		for updateTime >= dt {
			eng.Tick(con, dt)
			updateTime -= dt
		}
	}
}

// Shutdown stops the Action loop and closes the network connection.
func (eng *Engine) Shutdown() {
	eng.alive = false
	eng.Disconnect()
	eng.device.Dispose()
}

func toV3(a [3]float32) lin.V3 {
	return lin.V3{X: float64(a[0]), Y: float64(a[1]), Z: float64(a[2])}
}

// lookRight derives the camera's right vector from yaw alone, matching
// the original engine's audio panning (pitch/roll don't affect stereo
// placement).
func lookRight(angles [3]float32) lin.V3 {
	yaw := float64(angles[1]) * (math.Pi / 180)
	return lin.V3{X: math.Sin(yaw), Y: -math.Cos(yaw), Z: 0}
}
