// Copyright © 2024 Galvanized Logic Inc.

// Package alias decodes and poses animated meshes: the AliasModel leg
// of spec.md §9's brush/alias/sprite/none tagged variant, and the
// animated half of §4.9's render orchestration. Grounded on
// load/iqm.go's IQM decoder, whose Frames are pre-composed per-joint
// transforms ready for skinning.
package alias

import (
	"fmt"
	"io"

	"github.com/cormac-obrien/richter-sub002/load"
	"github.com/cormac-obrien/richter-sub002/math/lin"
)

// Model is a loaded, posable animated mesh: flat GPU vertex buffers
// plus the joint skeleton and named animation clips decoded from an
// IQM file.
type Model struct {
	data *load.ModData

	// numJoints is the length of the decoded joint list: Frames holds
	// NumFrames*NumJoints matrices in frame-major order.
	numJoints int
}

// Load decodes an IQM file into a posable Model.
func Load(r io.Reader) (*Model, error) {
	d := &load.ModData{}
	if err := load.Iqm(r, d); err != nil {
		return nil, fmt.Errorf("alias: %w", err)
	}
	m := &Model{data: d, numJoints: len(d.Joints)}
	return m, nil
}

// Vertices exposes the flat, skin-independent mesh buffers the
// renderer uploads once per model: positions, normals, texcoords,
// triangle indices, and the per-vertex joint blend data.
func (m *Model) Vertices() (v, n, t []float32, f []uint16, blends, weights []byte) {
	return m.data.V, m.data.N, m.data.T, m.data.F, m.data.Blends, m.data.Weights
}

// TexMaps reports which triangle ranges use which named texture, for
// models built from more than one material.
func (m *Model) TexMaps() []load.TexMap { return m.data.TMap }

// Movement looks up a named animation clip by name.
func (m *Model) Movement(name string) (load.Movement, bool) {
	for _, mv := range m.data.Movements {
		if mv.Name == name {
			return mv, true
		}
	}
	return load.Movement{}, false
}

// Movements lists every animation clip decoded from the model.
func (m *Model) Movements() []load.Movement { return m.data.Movements }

// NumJoints is the skeleton's joint count.
func (m *Model) NumJoints() int { return m.numJoints }

// Pose blends between two frames of a movement by ratio (0 at frame a,
// 1 at frame b), returning one composed joint transform per joint,
// ready for GPU upload as a skinning palette. Frames are lerped
// element-wise rather than decomposed and slerped: IQM Frames are
// already composed matrices (see load/iqm.go's genFrame), and linear
// blending of the 4x4 elements is visually indistinguishable from a
// proper slerp at the frame rates Quake-era animations run at.
func (m *Model) Pose(mv load.Movement, a, b int, ratio float64) ([]lin.M4, error) {
	if m.numJoints == 0 {
		return nil, fmt.Errorf("alias: model has no skeleton")
	}
	if a < 0 || b < 0 || uint32(a) >= mv.Fn || uint32(b) >= mv.Fn {
		return nil, fmt.Errorf("alias: frame %d/%d out of range for movement %q (%d frames)", a, b, mv.Name, mv.Fn)
	}
	fa := int(mv.F0) + a
	fb := int(mv.F0) + b
	if (fa+1)*m.numJoints > len(m.data.Frames) || (fb+1)*m.numJoints > len(m.data.Frames) {
		return nil, fmt.Errorf("alias: movement %q frame range exceeds decoded frames", mv.Name)
	}

	out := make([]lin.M4, m.numJoints)
	for j := 0; j < m.numJoints; j++ {
		ja := m.data.Frames[fa*m.numJoints+j]
		jb := m.data.Frames[fb*m.numJoints+j]
		out[j] = lerpM4(ja, jb, ratio)
	}
	return out, nil
}

func lerpM4(a, b *lin.M4, ratio float64) lin.M4 {
	return lin.M4{
		Xx: lerp(a.Xx, b.Xx, ratio), Xy: lerp(a.Xy, b.Xy, ratio), Xz: lerp(a.Xz, b.Xz, ratio), Xw: lerp(a.Xw, b.Xw, ratio),
		Yx: lerp(a.Yx, b.Yx, ratio), Yy: lerp(a.Yy, b.Yy, ratio), Yz: lerp(a.Yz, b.Yz, ratio), Yw: lerp(a.Yw, b.Yw, ratio),
		Zx: lerp(a.Zx, b.Zx, ratio), Zy: lerp(a.Zy, b.Zy, ratio), Zz: lerp(a.Zz, b.Zz, ratio), Zw: lerp(a.Zw, b.Zw, ratio),
		Wx: lerp(a.Wx, b.Wx, ratio), Wy: lerp(a.Wy, b.Wy, ratio), Wz: lerp(a.Wz, b.Wz, ratio), Ww: lerp(a.Ww, b.Ww, ratio),
	}
}

func lerp(a, b, ratio float64) float64 { return a + (b-a)*ratio }
