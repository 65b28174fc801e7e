// Copyright © 2013-2015 Galvanized Logic Inc.
// Use is governed by a BSD-style license found in the LICENSE file.

package bsp

import "fmt"

const planeUnitTolerance = 1e-3

// Validate checks the structural invariants spec.md §3 requires of a
// loaded map: every face has at least three edges and a surfedge range
// inside the surfedge lump, every edge names two distinct vertices, and
// every plane normal is unit length. Whether a face's edges join into a
// closed loop is not checked.
func (b *BSP) Validate() error {
	for i, p := range b.Planes {
		if lenSqr := p.Normal.Dot(&p.Normal); absf(lenSqr-1) > planeUnitTolerance {
			return fmt.Errorf("bsp: plane %d normal is not unit length (|n|^2=%v)", i, lenSqr)
		}
	}
	for i, f := range b.Faces {
		if f.EdgeCount < 3 {
			return fmt.Errorf("bsp: face %d has fewer than 3 edges", i)
		}
		if int(f.EdgeID)+int(f.EdgeCount) > len(b.SurfEdges) {
			return fmt.Errorf("bsp: face %d surfedge range out of bounds", i)
		}
	}
	for i, e := range b.Edges {
		if e.V[0] == e.V[1] {
			return fmt.Errorf("bsp: edge %d references the same vertex twice", i)
		}
	}
	return nil
}

func absf(f float64) float64 {
	if f < 0 {
		return -f
	}
	return f
}
