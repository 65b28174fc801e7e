// Copyright © 2013-2015 Galvanized Logic Inc.
// Use is governed by a BSD-style license found in the LICENSE file.

package physics

import (
	"fmt"

	"github.com/cormac-obrien/richter-sub002/bsp"
	"github.com/cormac-obrien/richter-sub002/math/lin"
	"github.com/cormac-obrien/richter-sub002/world"
)

// Entity is the subset of world.World's entity field access a Mover
// needs, named so this package can be exercised against a fake in
// tests without constructing a full progs.Image (grounded on the
// teacher's Body interface boundary in the now-removed body.go, here
// narrowed to exactly the standard fields spec.md §4.7 addresses).
type Entity interface {
	FieldOffset(name string) (int32, bool)
	GetFloat(id, fieldOffset int32) float32
	SetFloat(id, fieldOffset int32, v float32)
	GetVector(id, fieldOffset int32) [3]float32
	SetVector(id, fieldOffset int32, v [3]float32)
	GetInt(id, fieldOffset int32) int32
	SetInt(id, fieldOffset int32, v int32)
	Link(id int32, mins, maxs [3]float32, trigger bool)
	AreaQuery(mins, maxs [3]float32) []int32
	Exists(id int32) bool
}

var _ Entity = (*world.World)(nil)

// fields caches the standard field offsets a Mover addresses every
// tick, resolved once against the loaded progs image rather than
// string-matched per entity per frame (spec.md §3: standard fields are
// ordinary field-defs, addressed by name like any QuakeC field).
type fields struct {
	origin, velocity, mins, maxs         int32
	movetype, solid, groundEntity, flags int32
	gravity                              int32
}

// FlagOnGround is the standard QuakeC "flags" bit reporting an entity
// is resting on solid ground (distinct from groundEntity, which names
// *which* entity it rests on and may legitimately be the world, entity
// 0 — so "resting" cannot be read off groundEntity being nonzero).
const FlagOnGround int32 = 1 << 0

func newFields(e Entity) (fields, error) {
	var f fields
	scalar := func(name string) (int32, error) {
		off, ok := e.FieldOffset(name)
		if !ok {
			return 0, fmt.Errorf("physics: image has no %q field", name)
		}
		return off, nil
	}
	var err error
	if f.origin, err = scalar("origin"); err != nil {
		return fields{}, err
	}
	if f.velocity, err = scalar("velocity"); err != nil {
		return fields{}, err
	}
	if f.mins, err = scalar("mins"); err != nil {
		return fields{}, err
	}
	if f.maxs, err = scalar("maxs"); err != nil {
		return fields{}, err
	}
	if f.movetype, err = scalar("movetype"); err != nil {
		return fields{}, err
	}
	if f.solid, err = scalar("solid"); err != nil {
		return fields{}, err
	}
	if f.groundEntity, err = scalar("groundentity"); err != nil {
		return fields{}, err
	}
	if f.flags, err = scalar("flags"); err != nil {
		return fields{}, err
	}
	if f.gravity, err = scalar("gravity"); err != nil {
		return fields{}, err
	}
	return f, nil
}

// SolidKind mirrors the original engine's solid_t (spec.md §4.7,
// "Push: for every entity in the swept volume, push or crush" implies
// SolidNot/SolidTrigger entities are skipped by pushers).
type SolidKind int32

const (
	SolidNot SolidKind = iota
	SolidTrigger
	SolidBBox
	SolidSlideBox
	SolidBSP
)

// Mover advances every entity's movetype-governed motion one tick and
// resolves it against a level's BSP clip hulls and the world's other
// solid entities (spec.md §4.7).
type Mover struct {
	world Entity
	level *bsp.BSP
	f     fields
}

// NewMover binds a Mover to a world and the BSP it is currently
// occupying. Rebuild the Mover on level change (new BSP, same World
// layout).
func NewMover(w Entity, level *bsp.BSP) (*Mover, error) {
	f, err := newFields(w)
	if err != nil {
		return nil, err
	}
	return &Mover{world: w, level: level, f: f}, nil
}

// Step advances every live, non-world entity in ids by dt seconds
// according to its movetype (spec.md §4.7, §5 "physics" tick phase).
// The caller supplies ids (typically every occupied entity slot) since
// World does not itself enumerate live entities.
func (m *Mover) Step(ids []int32, dt float64) {
	for _, id := range ids {
		if id == world.WorldEntity || !m.world.Exists(id) {
			continue
		}
		switch MoveType(m.world.GetInt(id, m.f.movetype)) {
		case MoveNone:
		case MoveWalk, MoveStep:
			m.stepWalk(id, dt)
		case MoveFly, MoveFlyMissile:
			m.stepFly(id, dt)
		case MoveToss:
			m.stepBallistic(id, dt, false)
		case MoveBounce:
			m.stepBallistic(id, dt, true)
		case MovePush:
			m.stepPush(id, dt)
		case MoveNoClip:
			m.stepNoClip(id, dt)
		}
		m.relink(id)
	}
}

func (m *Mover) origin(id int32) lin.V3 { return toV3(m.world.GetVector(id, m.f.origin)) }
func (m *Mover) setOrigin(id int32, v lin.V3) {
	m.world.SetVector(id, m.f.origin, fromV3(v))
}
func (m *Mover) velocity(id int32) lin.V3 { return toV3(m.world.GetVector(id, m.f.velocity)) }
func (m *Mover) setVelocity(id int32, v lin.V3) {
	m.world.SetVector(id, m.f.velocity, fromV3(v))
}
func (m *Mover) bounds(id int32) (mins, maxs lin.V3) {
	return toV3(m.world.GetVector(id, m.f.mins)), toV3(m.world.GetVector(id, m.f.maxs))
}
func (m *Mover) onGround(id int32) bool {
	return m.world.GetInt(id, m.f.flags)&FlagOnGround != 0
}
func (m *Mover) setOnGround(id int32, resting bool, groundEntity int32) {
	flags := m.world.GetInt(id, m.f.flags)
	if resting {
		flags |= FlagOnGround
	} else {
		flags &^= FlagOnGround
	}
	m.world.SetInt(id, m.f.flags, flags)
	m.world.SetInt(id, m.f.groundEntity, groundEntity)
}
func (m *Mover) entityGravity(id int32) float64 {
	g := m.world.GetFloat(id, m.f.gravity)
	if g == 0 {
		g = 1
	}
	return float64(g) * Gravity
}

// relink re-homes id in the area tree after its origin/bounds may have
// moved (spec.md §4.6, "an entity is linked into at most one area-tree
// node at any time").
func (m *Mover) relink(id int32) {
	mins, maxs := m.bounds(id)
	o := m.origin(id)
	trigger := SolidKind(m.world.GetInt(id, m.f.solid)) == SolidTrigger
	m.world.Link(id,
		fromV3(lin.V3{X: o.X + mins.X, Y: o.Y + mins.Y, Z: o.Z + mins.Z}),
		fromV3(lin.V3{X: o.X + maxs.X, Y: o.Y + maxs.Y, Z: o.Z + maxs.Z}),
		trigger)
}

// hullFor picks the clip hull whose fixed half-extents best cover an
// entity's bounding box (spec.md §4.2 "Clip nodes": Quake ships a small
// fixed set of pre-built hulls rather than tracing arbitrary boxes).
func hullFor(mins, maxs lin.V3) int {
	size := lin.V3{X: maxs.X - mins.X, Y: maxs.Y - mins.Y, Z: maxs.Z - mins.Z}
	switch {
	case size.X <= 0 && size.Y <= 0 && size.Z <= 0:
		return 0 // point hull.
	case size.X <= 32 && size.Y <= 32 && size.Z <= 56:
		return 1 // standard player hull.
	default:
		return 2 // large monster hull.
	}
}

// traceMove sweeps id's bounding box from start to end against the
// current level's world model (model 0) clip hull (spec.md §4.7).
func (m *Mover) traceMove(id int32, start, end lin.V3) bsp.Trace {
	mins, maxs := m.bounds(id)
	hull := hullFor(mins, maxs)
	model := &m.level.Models[0]
	root := m.level.HullRoot(model, hull)
	return m.level.TraceHull(root, start, end)
}
