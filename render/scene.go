// Copyright © 2024 Galvanized Logic Inc.

package render

import (
	"encoding/binary"
	"math"
	"sort"

	"github.com/cormac-obrien/richter-sub002/bsp"
	"github.com/cormac-obrien/richter-sub002/load"
	"github.com/cormac-obrien/richter-sub002/math/lin"
)

// Renderable is everything the world command list needs to draw one
// entity: its model/skin/frame selection and placement (spec.md §4.9).
// It deliberately carries no protocol or client-state knowledge; the
// caller (the engine package) is responsible for interpolating a
// client.Entity's pose into one of these each frame.
type Renderable struct {
	Tag    uint32  // entity number, copied into the packet's Tag.
	Model  uint16  // precache model index.
	Skin   byte    // skin group index.
	Frame  byte    // model animation frame.
	Origin lin.V3
	Angles lin.V3
	Alpha  float32 // 1 == opaque.
}

// Scene is everything render orchestration needs for one frame:
// the current map, camera pose, simulation time (for texture and
// lightmap animation), and the light style tables the engine maintains
// from LightStyleMessage (spec.md §4.9, §4.5).
type Scene struct {
	Map         *bsp.BSP
	CameraPos   lin.V3
	Time        float64
	LightStyles map[byte]string
}

// BuildWorld appends the back-to-front PVS-visible leaf faces to pass,
// in world space (spec.md §4.9, "the world uses a back-to-front
// traversal of the PVS leaves"). It is the first of the three ordered
// command lists a frame assembles.
func (s *Scene) BuildWorld(pass *Pass) {
	if s.Map == nil || len(s.Map.Leaves) == 0 {
		return
	}
	camLeaf := s.Map.LeafAt(&s.CameraPos)
	pvs, err := s.Map.DecompressPVS(camLeaf)
	if err != nil {
		return
	}

	type visibleLeaf struct {
		index int32
		dist  float64
	}
	visible := make([]visibleLeaf, 0, len(s.Map.Leaves))
	for i := range s.Map.Leaves {
		idx := int32(i)
		if idx == camLeaf || bsp.LeafVisible(pvs, idx) {
			leaf := &s.Map.Leaves[i]
			center := lin.V3{
				X: float64(leaf.Mins[0]+leaf.Maxs[0]) / 2,
				Y: float64(leaf.Mins[1]+leaf.Maxs[1]) / 2,
				Z: float64(leaf.Mins[2]+leaf.Maxs[2]) / 2,
			}
			visible = append(visible, visibleLeaf{idx, center.Dist(&s.CameraPos)})
		}
	}
	sort.Slice(visible, func(i, j int) bool { return visible[i].dist > visible[j].dist })

	for _, vl := range visible {
		leaf := &s.Map.Leaves[vl.index]
		lo, hi := int(leaf.MarkSurfID), int(leaf.MarkSurfID)+int(leaf.MarkSurfCount)
		if hi > len(s.Map.MarkSurfaces) {
			hi = len(s.Map.MarkSurfaces)
		}
		for _, markIdx := range s.Map.MarkSurfaces[lo:hi] {
			s.emitFace(pass, int32(markIdx))
		}
	}
}

// emitFace records one draw call for a single BSP face, resolving its
// animated texture frame for the current time (spec.md §4.9, "texture
// and lightmap animation frames are selected from the current time").
func (s *Scene) emitFace(pass *Pass, faceIdx int32) {
	if int(faceIdx) >= len(s.Map.Faces) {
		return
	}
	face := &s.Map.Faces[faceIdx]
	if int(face.TexInfo) >= len(s.Map.TexInfo) {
		return
	}
	texInfo := s.Map.TexInfo[face.TexInfo]
	tex := s.Map.AnimatedTexture(texInfo.TextureID, s.Time, false)

	var p *Packet
	pass.Packets, p = pass.Packets.GetPacket()
	p.TextureIDs = append(p.TextureIDs, uint32(tex))
	p.Bucket = packetBucket(Opaque, uint64(len(pass.Packets)-1))
	p.Tag = uint32(faceIdx)
}

// BuildEntities appends one packet per renderable, in entity order,
// after the world leaves (spec.md §4.9, "entities are drawn after
// leaves"). Model transforms are packed little-endian, matching the
// teacher's own wire/asset-loading byte convention (see load/iqm.go,
// load/wav.go).
func (s *Scene) BuildEntities(pass *Pass, ents []Renderable) {
	for _, e := range ents {
		var p *Packet
		pass.Packets, p = pass.Packets.GetPacket()
		p.Tag = e.Tag
		bucket := Opaque
		if e.Alpha < 1 {
			bucket = Transparent
		}
		p.Bucket = packetBucket(bucket, uint64(len(pass.Packets)-1))

		model := modelMatrix(&e.Origin, &e.Angles)
		p.Data[load.MODEL] = appendMatrix(p.Data[load.MODEL][:0], model)
		p.Data[load.SCALE] = appendFloats(p.Data[load.SCALE][:0], 1, 1, 1)
		p.Data[load.COLOR] = appendFloats(p.Data[load.COLOR][:0], 1, 1, 1, e.Alpha)
	}
}

// BuildUI appends the HUD quad and console/text glyph command lists,
// always drawn last (spec.md §4.9: "world ... UI quads ... UI
// glyphs"). quads and glyphs are caller-prepared screen-space packets;
// BuildUI only assigns the Overlay bucket and stable draw order.
func (s *Scene) BuildUI(pass *Pass, quads, glyphs []Packet) {
	for i := range quads {
		quads[i].Bucket = packetBucket(Overlay, uint64(i))
		pass.Packets = append(pass.Packets, quads[i])
	}
	base := uint64(len(quads))
	for i := range glyphs {
		glyphs[i].Bucket = packetBucket(Overlay, base+uint64(i))
		pass.Packets = append(pass.Packets, glyphs[i])
	}
}

// packetBucket folds a coarse bucket and a fine-grained order into the
// single sortable uint64 Packet.Bucket uses: high byte is the bucket,
// the rest preserves relative order within it.
func packetBucket(bucket int, order uint64) uint64 {
	return uint64(bucket)<<56 | (order & (1<<56 - 1))
}

// modelMatrix builds a column-major model transform from a Quake-style
// origin and pitch/yaw/roll angle triple (degrees), matching the
// teacher's render/lin.go convention of keeping GPU-facing math local
// to this package while using math/lin for the actual computation.
func modelMatrix(origin, angles *lin.V3) *lin.M4 {
	roll := lin.NewQ().SetAa(1, 0, 0, angles.Z*math.Pi/180)
	yaw := lin.NewQ().SetAa(0, 0, 1, angles.Y*math.Pi/180)
	pitch := lin.NewQ().SetAa(0, 1, 0, angles.X*math.Pi/180)
	q := yaw.Mult(yaw, pitch).Mult(yaw, roll)

	m := lin.NewM4I()
	m.SetQ(q)
	m.Wx, m.Wy, m.Wz = origin.X, origin.Y, origin.Z
	return m
}

func appendMatrix(dst []byte, m *lin.M4) []byte {
	vals := []float64{
		m.Xx, m.Xy, m.Xz, m.Xw,
		m.Yx, m.Yy, m.Yz, m.Yw,
		m.Zx, m.Zy, m.Zz, m.Zw,
		m.Wx, m.Wy, m.Wz, m.Ww,
	}
	floats := make([]float32, len(vals))
	for i, v := range vals {
		floats[i] = float32(v)
	}
	return appendFloats(dst, floats...)
}

func appendFloats(dst []byte, floats ...float32) []byte {
	var buf [4]byte
	for _, f := range floats {
		binary.LittleEndian.PutUint32(buf[:], math.Float32bits(f))
		dst = append(dst, buf[:]...)
	}
	return dst
}
