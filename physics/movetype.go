// Copyright © 2013-2015 Galvanized Logic Inc.
// Use is governed by a BSD-style license found in the LICENSE file.

package physics

import (
	"github.com/cormac-obrien/richter-sub002/math/lin"
	"github.com/cormac-obrien/richter-sub002/world"
)

// maxClipPlanes bounds how many surfaces a single tick's slide can clip
// against before giving up and halting the mover in place, the
// original engine's guard against walking into a corner and looping
// forever re-clipping the same two planes.
const maxClipPlanes = 5

// stepWalk integrates a MoveWalk/MoveStep entity: ground friction while
// resting, gravity while airborne, and a sliding hull trace that clips
// velocity against whatever it hits (spec.md §4.7).
func (m *Mover) stepWalk(id int32, dt float64) {
	v := m.velocity(id)
	if m.onGround(id) {
		v = applyFriction(v, dt)
	} else {
		v.Z -= m.entityGravity(id) * dt
	}
	m.setVelocity(id, v)
	m.slideMove(id, dt)
}

// stepFly integrates a MoveFly/MoveFlyMissile entity: no gravity, no
// friction, stop dead on the first impact rather than sliding (spec.md
// §4.7: "hull trace, stop on impact").
func (m *Mover) stepFly(id int32, dt float64) {
	origin := m.origin(id)
	v := m.velocity(id)
	end := lin.V3{X: origin.X + v.X*dt, Y: origin.Y + v.Y*dt, Z: origin.Z + v.Z*dt}
	tr := m.traceMove(id, origin, end)
	m.setOrigin(id, tr.EndPos)
	if tr.HitPlane {
		m.setVelocity(id, lin.V3{})
	}
}

// stepBallistic integrates MoveToss/MoveBounce: free-fall under
// gravity, either stopping dead (Toss) or reflecting about the impact
// normal with restitution (Bounce) (spec.md §4.7).
func (m *Mover) stepBallistic(id int32, dt float64, bounce bool) {
	origin := m.origin(id)
	v := m.velocity(id)
	v.Z -= m.entityGravity(id) * dt
	end := lin.V3{X: origin.X + v.X*dt, Y: origin.Y + v.Y*dt, Z: origin.Z + v.Z*dt}
	tr := m.traceMove(id, origin, end)
	m.setOrigin(id, tr.EndPos)
	if !tr.HitPlane {
		m.setVelocity(id, v)
		return
	}
	n := tr.Plane.Normal
	if bounce {
		m.setVelocity(id, reflectVelocity(v, n, 0.5))
	} else {
		m.setVelocity(id, lin.V3{})
	}
}

// stepNoClip translates an entity without any collision query at all
// (spec.md §4.7).
func (m *Mover) stepNoClip(id int32, dt float64) {
	origin := m.origin(id)
	v := m.velocity(id)
	m.setOrigin(id, lin.V3{X: origin.X + v.X*dt, Y: origin.Y + v.Y*dt, Z: origin.Z + v.Z*dt})
}

// stepPush translates a mover entity (a moving platform/door) and moves
// every SolidBBox/SolidSlideBox entity the area query returns for its
// swept volume by the same delta (spec.md §4.7). Pushed entities are
// not traced against the world, and nothing blocks or crushes them.
func (m *Mover) stepPush(id int32, dt float64) {
	origin := m.origin(id)
	v := m.velocity(id)
	delta := lin.V3{X: v.X * dt, Y: v.Y * dt, Z: v.Z * dt}
	end := lin.V3{X: origin.X + delta.X, Y: origin.Y + delta.Y, Z: origin.Z + delta.Z}

	pmins, pmaxs := m.bounds(id)
	sweptMins := fromV3(lin.V3{X: min2(origin.X, end.X) + pmins.X, Y: min2(origin.Y, end.Y) + pmins.Y, Z: min2(origin.Z, end.Z) + pmins.Z})
	sweptMaxs := fromV3(lin.V3{X: max2(origin.X, end.X) + pmaxs.X, Y: max2(origin.Y, end.Y) + pmaxs.Y, Z: max2(origin.Z, end.Z) + pmaxs.Z})
	blockers := m.world.AreaQuery(sweptMins, sweptMaxs)
	for _, other := range blockers {
		if other == id {
			continue
		}
		if SolidKind(m.world.GetInt(other, m.f.solid)) != SolidBBox && SolidKind(m.world.GetInt(other, m.f.solid)) != SolidSlideBox {
			continue
		}
		oo := m.origin(other)
		m.setOrigin(other, lin.V3{X: oo.X + delta.X, Y: oo.Y + delta.Y, Z: oo.Z + delta.Z})
		m.relink(other)
	}
	m.setOrigin(id, end)
}

func min2(a, b float64) float64 {
	if a < b {
		return a
	}
	return b
}

func max2(a, b float64) float64 {
	if a > b {
		return a
	}
	return b
}

// applyFriction reduces the horizontal speed by
// max(speed, stopSpeed)*groundFriction*dt, never below zero; a
// horizontal speed under 1 is zeroed outright (spec.md §4.7).
func applyFriction(v lin.V3, dt float64) lin.V3 {
	speed := (&lin.V3{X: v.X, Y: v.Y}).Len()
	if speed < 1 {
		return lin.V3{X: 0, Y: 0, Z: v.Z}
	}
	control := speed
	if control < stopSpeed {
		control = stopSpeed
	}
	drop := control * groundFriction * dt
	newSpeed := speed - drop
	if newSpeed < 0 {
		newSpeed = 0
	}
	scale := newSpeed / speed
	return lin.V3{X: v.X * scale, Y: v.Y * scale, Z: v.Z}
}

// slideMove walks id along its velocity for dt seconds, re-tracing and
// clipping velocity against each plane it meets until the full distance
// is consumed or maxClipPlanes is exceeded (spec.md §4.7's walk
// resolution, the original engine's "slide move" loop).
func (m *Mover) slideMove(id int32, dt float64) {
	timeLeft := dt
	for i := 0; i < maxClipPlanes && timeLeft > 0; i++ {
		origin := m.origin(id)
		v := m.velocity(id)
		end := lin.V3{X: origin.X + v.X*timeLeft, Y: origin.Y + v.Y*timeLeft, Z: origin.Z + v.Z*timeLeft}
		tr := m.traceMove(id, origin, end)
		m.setOrigin(id, tr.EndPos)
		if !tr.HitPlane {
			m.setOnGround(id, false, 0)
			return
		}
		timeLeft -= timeLeft * tr.Ratio
		if tr.Plane.Normal.Z > 0.7 {
			m.setOnGround(id, true, world.WorldEntity)
		}
		m.setVelocity(id, clipVelocity(v, tr.Plane.Normal, 1.0))
	}
}
