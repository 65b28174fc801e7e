// Copyright © 2013-2015 Galvanized Logic Inc.
// Use is governed by a BSD-style license found in the LICENSE file.

package bsp

import (
	"github.com/cormac-obrien/richter-sub002/math/lin"
)

// distEpsilon pulls a split point fractionally back from the crossing
// plane onto the near side, so floating-point error never leaves the
// result sitting exactly on the boundary (spec.md §4.2 "Hull trace",
// step 4).
const distEpsilon = 1.0 / 32.0

// Trace is the result of a hull trace (spec.md §4.2).
type Trace struct {
	AllSolid   bool     // the start point, and the whole segment, never left solid.
	StartSolid bool     // some part of the segment was in a solid leaf; also true when AllSolid is.
	Ratio      float64  // fraction of the original segment actually traveled, in [0, 1].
	EndPos     lin.V3   // start + Ratio*(end-start).
	Plane      Plane    // the plane the trace stopped against, if HitPlane.
	HitPlane   bool
	Contents   Contents // contents of the leaf the trace ended in.
}

// HullRoot returns the index of the first clip node of hull to trace
// against. Quake ships three hulls sharing one clip-node array, rooted
// at Model.HullRoots[hull] (spec.md §3 "Clip nodes").
func (b *BSP) HullRoot(model *Model, hull int) int32 {
	return model.HullRoots[hull]
}

// TraceHull walks the clip-node tree rooted at node, clipping the
// segment start->end against the hull's planes (spec.md §4.2 "Hull
// trace"). AllSolid/Ratio=0 signals the edge case of a start point
// already embedded in solid.
func (b *BSP) TraceHull(node int32, start, end lin.V3) Trace {
	t := Trace{AllSolid: true, Ratio: 1, EndPos: end}
	b.recurseHull(node, 0, 1, start, end, &t)
	switch {
	case t.AllSolid:
		t.Ratio = 0
		t.EndPos = start
	case t.Ratio >= 1:
		t.EndPos = end
	default:
		t.EndPos.Lerp(&start, &end, t.Ratio)
	}
	return t
}

// recurseHull clips the sub-segment [start, end], which corresponds to
// fraction range [startFrac, endFrac] of the original trace, against
// the hull below node. It returns false once the trace has been halted
// by solid contents, matching the real id-software RecursiveHullCheck
// shape: "near side" is recursed first, and only once it clears does
// the far side get tried.
func (b *BSP) recurseHull(node int32, startFrac, endFrac float64, start, end lin.V3, t *Trace) bool {
	if node < 0 {
		if Contents(node) != ContentsSolid {
			t.AllSolid = false
		} else {
			t.StartSolid = true
		}
		t.Contents = Contents(node)
		return true
	}

	cn := &b.ClipNodes[node]
	plane := &b.Planes[cn.PlaneID]

	dStart := plane.Side(&start)
	dEnd := plane.Side(&end)

	if dStart >= 0 && dEnd >= 0 {
		return b.recurseHull(cn.Children[0], startFrac, endFrac, start, end, t)
	}
	if dStart < 0 && dEnd < 0 {
		return b.recurseHull(cn.Children[1], startFrac, endFrac, start, end, t)
	}
	if grazes(dStart, dEnd) {
		// Equal, opposite-signed distances: treat as a non-crossing
		// and stay on the front side (spec.md §4.2, §8 edge cases).
		return b.recurseHull(cn.Children[0], startFrac, endFrac, start, end, t)
	}

	near, far := 0, 1
	eps := distEpsilon
	if dStart < 0 {
		near, far = 1, 0
		eps = -distEpsilon
	}
	frac := clamp01((dStart - eps) / (dStart - dEnd))

	var mid lin.V3
	mid.Lerp(&start, &end, frac)
	midFrac := startFrac + frac*(endFrac-startFrac)

	if !b.recurseHull(cn.Children[near], startFrac, midFrac, start, mid, t) {
		return false
	}
	if b.leafContentsAt(cn.Children[far], mid) != ContentsSolid {
		return b.recurseHull(cn.Children[far], midFrac, endFrac, mid, end, t)
	}
	if t.AllSolid {
		return false // the trace never left solid; nothing to report.
	}

	// The far side is solid: this plane is the impact surface.
	t.Plane = *plane
	if near == 1 {
		t.Plane.Normal = lin.V3{X: -plane.Normal.X, Y: -plane.Normal.Y, Z: -plane.Normal.Z}
		t.Plane.Dist = -plane.Dist
	}
	t.HitPlane = true
	t.Ratio = midFrac
	return false
}

// leafContentsAt descends from node to the leaf containing point,
// without recording anything into a Trace, used to probe the far side
// of a split before deciding whether to continue into it.
func (b *BSP) leafContentsAt(node int32, point lin.V3) Contents {
	for node >= 0 {
		cn := &b.ClipNodes[node]
		plane := &b.Planes[cn.PlaneID]
		if plane.Side(&point) >= 0 {
			node = cn.Children[0]
		} else {
			node = cn.Children[1]
		}
	}
	return Contents(node)
}

func clamp01(f float64) float64 {
	if f < 0 {
		return 0
	}
	if f > 1 {
		return 1
	}
	return f
}

// grazes reports whether two signed distances are equal in magnitude
// but opposite in sign, the "grazing segment" edge case that must be
// treated as a non-crossing (spec.md §4.2, §8 edge cases).
func grazes(dStart, dEnd float64) bool {
	return dStart == -dEnd
}
