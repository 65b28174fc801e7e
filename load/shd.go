// Copyright © 2024 Galvanized Logic Inc.

package load

// shd.go defines the uniform slot indices shared between the render
// package's Pass and Packet types and the data the engine feeds them
// each frame. A Pass holds scene-wide uniforms (projection, view,
// camera, lights); a Packet holds per-model uniforms (transform,
// scale, color, material). Both are indexed by these small enums
// rather than by name so the render package can loop and bind without
// a map lookup per frame.

// PassUniform is scene level data, one set per render pass.
type PassUniform uint8

const (
	PROJ         PassUniform = iota // scene
	VIEW                            // scene
	CAM                             // scene
	LIGHTS                          // scene
	NLIGHTS                         // scene
	PassUniforms                    // must be last
)

// PacketUniform is model level data, one set per render packet.
type PacketUniform uint8

const (
	MODEL          PacketUniform = iota // model
	SCALE                               // model
	COLOR                               // model
	MATERIAL                            // model
	PacketUniforms                      // must be last
)
