// Copyright © 2013-2015 Galvanized Logic Inc.
// Use is governed by a BSD-style license found in the LICENSE file.

// Package physics integrates entity motion and resolves it against the
// level's BSP clip hulls (spec.md §4.7). It is grounded on the teacher's
// per-body force/velocity integration idiom (body.go's
// applyGravity/integrateVelocities/applyDamping) and its Simulate-style
// per-tick driver (physics.go), generalized from the teacher's
// PBD/GJK/EPA rigid-body solver down to the single-hull-trace movement
// model described in spec.md §4.7: there is no generic convex
// narrow-phase here because Quake movement never needs one — every
// collision query is a box sweep against precomputed BSP clip planes
// (bsp.TraceHull), never shape-against-shape.
package physics

import "github.com/cormac-obrien/richter-sub002/math/lin"

// MoveType selects how an entity's position is advanced each tick
// (spec.md §4.7).
type MoveType int32

const (
	MoveNone MoveType = iota
	MoveWalk
	MoveStep
	MoveFly
	MoveFlyMissile
	MoveToss
	MoveBounce
	MovePush
	MoveNoClip
)

// CollideKind selects which other entities participate in an entity's
// broad-phase during movement (spec.md §4.7).
type CollideKind int32

const (
	CollideNormal CollideKind = iota
	CollideNoMonsters
	CollideMissile
)

// Gravity is the standard downward acceleration applied to airborne and
// ballistic movers, in world units per second squared (the original
// engine's 800 units/sec² constant).
const Gravity = 800.0

// groundFriction is the per-second friction factor applied to the
// horizontal velocity component while an entity is resting on a surface
// (MoveWalk/MoveStep).
const groundFriction = 4.0

// stopSpeed is the lowest speed friction is computed from: a walker
// slower than this still loses stopSpeed*groundFriction units/sec each
// second, so it stops in finite time instead of only approaching zero.
const stopSpeed = 100.0

func toV3(v [3]float32) lin.V3 { return lin.V3{X: float64(v[0]), Y: float64(v[1]), Z: float64(v[2])} }

func fromV3(v lin.V3) [3]float32 { return [3]float32{float32(v.X), float32(v.Y), float32(v.Z)} }

// clipVelocity removes the component of v running into the plane with
// unit normal n, leaving the tangential component untouched (spec.md
// §4.7: "clip velocity against collision plane (v' = v - n * dot(v, n))").
func clipVelocity(v, n lin.V3, overbounce float64) lin.V3 {
	backoff := v.Dot(&n) * overbounce
	return lin.V3{
		X: v.X - n.X*backoff,
		Y: v.Y - n.Y*backoff,
		Z: v.Z - n.Z*backoff,
	}
}

// reflectVelocity bounces v about the plane with unit normal n scaled
// by restitution (spec.md §4.7, MoveBounce).
func reflectVelocity(v, n lin.V3, restitution float64) lin.V3 {
	d := v.Dot(&n)
	return lin.V3{
		X: v.X - n.X*d*(1+restitution),
		Y: v.Y - n.Y*d*(1+restitution),
		Z: v.Z - n.Z*d*(1+restitution),
	}
}
