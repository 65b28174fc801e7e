// Copyright © 2024 Galvanized Logic Inc.

package render

// Frame owns the reusable Pass3D/Pass2D pair a tick's render-command
// assembly writes into (spec.md §4.9, §5 "render command assembly").
// Passes are reused frame to frame; Reset clears old draw data while
// keeping the underlying Packets/Uniforms memory (pass.go).
type Frame struct {
	World Pass // Pass3D: leaves, then entities.
	UI    Pass // Pass2D: HUD quads, then console/text glyphs.
}

// NewFrame allocates a Frame ready for repeated Build calls.
func NewFrame() *Frame {
	return &Frame{World: NewPass(), UI: NewPass()}
}

// Build assembles one frame's command lists in the order spec.md §4.9
// requires: world leaves and entities into Pass3D, then UI quads and
// glyphs into Pass2D. The caller is expected to have already advanced
// the VM and physics for this tick (spec.md §5's ordering) before
// calling Build, and to submit the result via a Device afterward.
func (f *Frame) Build(scn *Scene, ents []Renderable, quads, glyphs []Packet) {
	f.World.Reset()
	f.UI.Reset()

	scn.BuildWorld(&f.World)
	scn.BuildEntities(&f.World, ents)
	SortPackets(f.World.Packets)

	scn.BuildUI(&f.UI, quads, glyphs)
}

// Passes returns the frame's render passes in submission order, ready
// for a Device.Submit call.
func (f *Frame) Passes() []Pass { return []Pass{f.World, f.UI} }
