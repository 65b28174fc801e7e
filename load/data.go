// Copyright © 2024 Galvanized Logic Inc.

package load

import (
	"github.com/cormac-obrien/richter-sub002/math/lin"
)

// SndData is the result of loading a WAV file: the raw PCM samples
// and the attributes needed to hand them to an audio device.
type SndData struct {
	Attrs *SndAttributes
	Data  []byte
}

// SndAttributes describes the PCM layout of SndData.Data.
type SndAttributes struct {
	Channels   uint16
	Frequency  uint32
	DataSize   uint32
	SampleBits uint16
}

// TexMap records which triangle range of a ModData uses which named
// material or texture (an IQM model can reference more than one).
type TexMap struct {
	Name   string
	F0, Fn uint32 // first triangle, triangle count.
}

// Movement is one named animation clip within a ModData.
type Movement struct {
	Name   string
	F0, Fn uint32 // first frame, frame count.
	Rate   float32
}

// ModData is the result of loading an IQM animated model: flat vertex
// buffers plus the skeletal animation frames needed to pose them.
type ModData struct {
	V, N, X, T     []float32 // position, normal, tangent, texcoord.
	Blends         []byte    // joint indices, 4 per vertex.
	Weights        []byte    // joint weights, 4 per vertex.
	F              []uint16  // 3 indices per triangle.
	TMap           []TexMap
	Joints         []int32 // parent joint index, or < 0 for a root joint.
	Frames         []*lin.M4
	Movements      []Movement
}
