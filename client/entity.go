// Copyright © 2013-2015 Galvanized Logic Inc.
// Use is governed by a BSD-style license found in the LICENSE file.

package client

import "github.com/cormac-obrien/richter-sub002/protocol"

// Entity is one networked entity's client-side visual state: a
// baseline, the two most recent full states reconstructed from it, and
// the message times those states arrived at, used to interpolate
// between them at render time (spec.md §4.5, "Baselines", "Time and
// interpolation").
type Entity struct {
	Number int32

	Baseline protocol.BaselineFields

	Prev, Curr         protocol.BaselineFields
	PrevTime, CurrTime float64

	NoLerp bool // true while between a teleport/respawn and the next update.
}

// setBaseline seeds Entity from a SpawnBaseline/SpawnStatic message.
// Until the first FastUpdate arrives Prev and Curr both equal it, so
// interpolation degenerates to the baseline pose (spec.md §4.5,
// "Baselines").
func (e *Entity) setBaseline(b protocol.BaselineFields, now float64) {
	e.Baseline = b
	e.Prev = b
	e.Curr = b
	e.PrevTime = now
	e.CurrTime = now
}

// applyUpdate folds a FastUpdate delta onto Baseline — not onto Curr —
// producing the entity's new full state (spec.md §4.5: "subsequent
// FastUpdate messages are deltas against this baseline, not the
// previous frame"). Any field the delta does not carry reverts to its
// baseline value, matching the original engine's svc_update handling.
func (e *Entity) applyUpdate(u protocol.EntityUpdate, now float64) {
	next := e.Baseline
	if u.Fields&protocol.UpdateOriginX != 0 {
		next.Origin[0] = u.Origin[0]
	}
	if u.Fields&protocol.UpdateOriginY != 0 {
		next.Origin[1] = u.Origin[1]
	}
	if u.Fields&protocol.UpdateOriginZ != 0 {
		next.Origin[2] = u.Origin[2]
	}
	if u.Fields&protocol.UpdateAngleX != 0 {
		next.Angles[0] = u.Angles[0]
	}
	if u.Fields&protocol.UpdateAngleY != 0 {
		next.Angles[1] = u.Angles[1]
	}
	if u.Fields&protocol.UpdateAngleZ != 0 {
		next.Angles[2] = u.Angles[2]
	}
	if u.Fields&protocol.UpdateModel != 0 {
		next.Model = u.Model
	}
	if u.Fields&protocol.UpdateFrame != 0 {
		next.Frame = u.Frame
	}
	if u.Fields&protocol.UpdateColormap != 0 {
		next.Colormap = u.Colormap
	}
	if u.Fields&protocol.UpdateSkin != 0 {
		next.Skin = u.Skin
	}

	e.Prev = e.Curr
	e.PrevTime = e.CurrTime
	e.Curr = next
	e.CurrTime = now
	e.NoLerp = u.Fields&protocol.UpdateNoLerp != 0
}

// Pose is an entity's interpolated origin and angles at some render
// time, ready to hand to the renderer (spec.md §4.9, "entities are
// drawn after leaves").
type Pose struct {
	Origin [3]float32
	Angles [3]float32
}

// Interpolate computes e's pose at time now by lerping between Prev and
// Curr with factor (now-PrevTime)/(CurrTime-PrevTime) clamped to [0,1]
// (spec.md §4.5, "Time and interpolation"). NoLerp or a degenerate
// (zero-width) window snaps straight to Curr rather than blending from
// a stale Prev, matching the original engine's teleport handling.
func (e *Entity) Interpolate(now float64) Pose {
	if e.NoLerp || e.CurrTime <= e.PrevTime {
		return Pose{Origin: e.Curr.Origin, Angles: e.Curr.Angles}
	}
	f := float32((now - e.PrevTime) / (e.CurrTime - e.PrevTime))
	switch {
	case f < 0:
		f = 0
	case f > 1:
		f = 1
	}
	var p Pose
	for i := 0; i < 3; i++ {
		p.Origin[i] = lerp(e.Prev.Origin[i], e.Curr.Origin[i], f)
		p.Angles[i] = lerpAngle(e.Prev.Angles[i], e.Curr.Angles[i], f)
	}
	return p
}

func lerp(a, b, f float32) float32 { return a + (b-a)*f }

// lerpAngle interpolates a turn in degrees along whichever arc between
// a and b is shorter than 180 degrees (spec.md §4.5: "Angles interpolate
// along the shortest arc"). The result is wrapped into [0, 360).
func lerpAngle(a, b, f float32) float32 {
	d := b - a
	switch {
	case d > 180:
		d -= 360
	case d < -180:
		d += 360
	}
	r := a + d*f
	switch {
	case r >= 360:
		r -= 360
	case r < 0:
		r += 360
	}
	return r
}
