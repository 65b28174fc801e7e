// Copyright © 2013-2024 Galvanized Logic Inc.
// Use is governed by a BSD-style license found in the LICENSE file.

// Package render assembles the per-frame command lists spec.md §4.9
// describes: a world list (BSP leaves visible via PVS, plus entities),
// a UI quad list, and a UI glyph list, each recorded into a Pass as a
// run of Packets. It is provided as part of the engine the same way
// the teacher's render package was provided as part of the vu (virtual
// universe) 3D engine, built on the teacher's own later Pass/Packet
// pipeline (pass.go, packet.go) rather than its earlier Model/Mesh
// abstraction, which this retrieval slice never included a complete
// GPU binding for (see DESIGN.md).
package render

// Render draw order. Opaque geometry first, alpha-blended geometry
// next, overlays (HUD, console) last so they always draw on top.
// Within a bucket packets keep the order they were appended in;
// transparent packets are not sorted by distance from the camera.
const (
	Opaque      = iota // World leaves and solid entities.
	Transparent        // Water, particles, anything alpha-blended.
	Overlay            // UI quads and glyphs (spec.md §4.9).
)

// Light is one scene light's position and color, reused frame to frame
// by Pass.Reset rather than reallocated (pass.go, "Lights are reused
// to generate scene light uniform data").
type Light struct {
	X, Y, Z    float32
	R, G, B, A float32
}

func (l *Light) reset() { *l = Light{} }

// Device is the GPU submission boundary: encoding a Pass's Packets
// into actual draw calls. No native backend ships in this module (the
// teacher's opengl.go/directx.go/vulkan*.go backends all depend on a
// platform-specific gl/ binding package this retrieval slice never
// included, see DESIGN.md); callers needing real pixels supply their
// own Device.
type Device interface {
	Init() error
	Resize(width, height int)
	Submit(passes []Pass) error
	Dispose()
}

// New provides the default, no-op Device: it validates and discards
// passes rather than drawing them, so the simulation and command
// assembly can run (and be tested) headless.
func New() Device { return &nullDevice{} }

type nullDevice struct{ width, height int }

func (d *nullDevice) Init() error                { return nil }
func (d *nullDevice) Resize(width, height int)    { d.width, d.height = width, height }
func (d *nullDevice) Submit(passes []Pass) error  { return nil }
func (d *nullDevice) Dispose()                    {}
