// Copyright © 2013-2015 Galvanized Logic Inc.
// Use is governed by a BSD-style license found in the LICENSE file.

// Package bsp loads the on-disk Binary Space Partition format (spec.md
// §3 "BSP", §4.2, §6 "BSP file") and answers leaf, PVS, and hull-trace
// queries against it. The loader follows the teacher's progs package
// decode-as-you-go cursor style (see progs/progs.go's reader), since
// the BSP lump layout mixes a fixed directory with variable-length
// per-lump records. Vector and plane math is grounded on the teacher's
// math/lin package, already used by physics/shape.go for the same kind
// of AABB and plane arithmetic.
package bsp

import (
	"encoding/binary"
	"fmt"
	"math"
	"strings"

	"github.com/cormac-obrien/richter-sub002/math/lin"
)

// Version is the only BSP version this loader accepts (spec.md §6).
const Version = 29

const lumpCount = 15

// Lump indices within the 15-entry directory (spec.md §6).
const (
	lumpEntities = iota
	lumpPlanes
	lumpTextures
	lumpVertices
	lumpVisibility
	lumpNodes
	lumpTexInfo
	lumpFaces
	lumpLightmaps
	lumpClipNodes
	lumpLeaves
	lumpMarkSurfaces
	lumpEdges
	lumpSurfEdges
	lumpModels
)

// Element sizes, in bytes, for lumps with a fixed-size record (spec.md
// §6). The textures and visibility lumps are not fixed-size.
const (
	planeSize    = 20
	nodeSize     = 24
	leafSize     = 28
	texInfoSize  = 40
	faceSize     = 20
	clipNodeSize = 8
	markSurfSize = 2
	edgeSize     = 4
	surfEdgeSize = 4
	modelSize    = 64
	vertexSize   = 12
)

const (
	maxHulls  = 4
	mipLevels = 4
	numAmbients = 4
	texNameSize = 16
	maxLightStyles = 4
)

// Contents enumerates the medium filling a leaf or hull volume (spec.md
// §3, "Leaf contents"). Values mirror the id-software convention of
// small negative integers so a clip-node child can carry either a node
// index (>= 0) or a contents value (< 0) in the same field.
type Contents int32

const (
	ContentsEmpty Contents = -1
	ContentsSolid Contents = -2
	ContentsWater Contents = -3
	ContentsSlime Contents = -4
	ContentsLava  Contents = -5
	ContentsSky   Contents = -6
)

func (c Contents) String() string {
	switch c {
	case ContentsEmpty:
		return "empty"
	case ContentsSolid:
		return "solid"
	case ContentsWater:
		return "water"
	case ContentsSlime:
		return "slime"
	case ContentsLava:
		return "lava"
	case ContentsSky:
		return "sky"
	default:
		return fmt.Sprintf("contents(%d)", int32(c))
	}
}

// PlaneKind classifies a plane's normal for fast-path axis tests
// (spec.md §3: "kind guides fast-path classification but is not
// authoritative"). The normal vector is always authoritative.
type PlaneKind int32

const (
	PlaneAxialX PlaneKind = iota
	PlaneAxialY
	PlaneAxialZ
	PlaneNonAxialX
	PlaneNonAxialY
	PlaneNonAxialZ
)

// Plane is a half-space boundary: points p with dot(Normal, p) - Dist
// >= 0 are on the front side.
type Plane struct {
	Normal lin.V3
	Dist   float64
	Kind   PlaneKind
}

// Side returns the signed distance of p from the plane.
func (p *Plane) Side(point *lin.V3) float64 {
	return p.Normal.Dot(point) - p.Dist
}

// Node is an interior node of the full-detail BSP tree. A non-negative
// child is a node index; a negative child's bitwise complement is a
// leaf index (spec.md §3, §4.2 "Leaf lookup").
type Node struct {
	PlaneID   int32
	Children  [2]int32
	Mins      [3]int16
	Maxs      [3]int16
	FaceID    uint16
	FaceCount uint16
}

// Leaf is a terminal full-detail BSP node.
type Leaf struct {
	Contents     Contents
	VisOffset    int32
	Mins         [3]int16
	Maxs         [3]int16
	MarkSurfID   uint16
	MarkSurfCount uint16
	Sounds       [numAmbients]byte
}

// ClipNode is an interior node of a reduced collision BSP (a "hull").
// Unlike Node, a negative child is a Contents value directly, never a
// bit-complemented leaf index (spec.md §4.2 "Hull trace"; this matches
// the real id-software convention where hull leaves carry no payload
// beyond their contents).
type ClipNode struct {
	PlaneID  int32
	Children [2]int32
}

// TexInfo describes how a texture is projected onto a face's plane.
type TexInfo struct {
	SVector, TVector [3]float32
	SOffset, TOffset float32
	TextureID        int32
	Flags            int32
}

// Face is a planar polygon referencing a run of surfedges.
type Face struct {
	PlaneID   int16
	Side      int16
	EdgeID    int32
	EdgeCount int16
	TexInfo   int16
	Styles    [maxLightStyles]byte
	LightOff  int32
}

// Texture is a four-mipmap raw (paletted) texture, optionally part of
// an animation cycle (spec.md §3 "Textures").
type Texture struct {
	Name    string
	Width   uint32
	Height  uint32
	Mipmaps [mipLevels][]byte
}

// Edge is an unordered pair of vertex indices.
type Edge struct {
	V [2]uint16
}

// Model is one brush model within the map: the world (model 0) or a
// detached entity (doors, platforms, ...).
type Model struct {
	Mins, Maxs, Origin lin.V3
	HullRoots          [maxHulls]int32
	LeafCount          int32
	FaceID             int32
	FaceCount          int32
}

// Entity is a single `{ ... }` block parsed out of the BSP entity
// string: an ordered key/value map (spec.md §4.2 "Loader").
type Entity map[string]string

// BSP is the fully decoded map.
type BSP struct {
	Entities    []Entity
	Planes      []Plane
	Textures    []Texture
	Vertices    []lin.V3
	Visibility  []byte
	Nodes       []Node
	TexInfo     []TexInfo
	Faces       []Face
	Lightmaps   []byte
	ClipNodes   []ClipNode
	Leaves      []Leaf
	MarkSurfaces []uint16
	Edges       []Edge
	SurfEdges   []int32
	Models      []Model
}

type lumpDir struct {
	offset, length int32
}

// reader is a little-endian cursor with random seeks, grounded on the
// teacher's progs package decode helper, extended here with a Seek
// since BSP lumps are addressed by absolute offset rather than read in
// file order.
type reader struct {
	data []byte
	pos  int
	err  error
}

func (r *reader) seek(offset int32) {
	if r.err != nil {
		return
	}
	if offset < 0 || int(offset) > len(r.data) {
		r.err = fmt.Errorf("bsp: seek offset %d out of range", offset)
		return
	}
	r.pos = int(offset)
}

func (r *reader) need(n int) bool {
	if r.err != nil {
		return false
	}
	if r.pos+n > len(r.data) {
		r.err = fmt.Errorf("bsp: unexpected end of file at offset %d", r.pos)
		return false
	}
	return true
}

func (r *reader) u8() byte {
	if !r.need(1) {
		return 0
	}
	b := r.data[r.pos]
	r.pos++
	return b
}

func (r *reader) i16() int16 {
	if !r.need(2) {
		return 0
	}
	v := int16(binary.LittleEndian.Uint16(r.data[r.pos:]))
	r.pos += 2
	return v
}

func (r *reader) u16() uint16 {
	if !r.need(2) {
		return 0
	}
	v := binary.LittleEndian.Uint16(r.data[r.pos:])
	r.pos += 2
	return v
}

func (r *reader) i32() int32 {
	if !r.need(4) {
		return 0
	}
	v := int32(binary.LittleEndian.Uint32(r.data[r.pos:]))
	r.pos += 4
	return v
}

func (r *reader) u32() uint32 {
	if !r.need(4) {
		return 0
	}
	v := binary.LittleEndian.Uint32(r.data[r.pos:])
	r.pos += 4
	return v
}

func (r *reader) f32() float32 {
	return math.Float32frombits(r.u32())
}

func (r *reader) bytes(n int) []byte {
	if !r.need(n) {
		return nil
	}
	b := r.data[r.pos : r.pos+n]
	r.pos += n
	return b
}

// Load decodes a raw .bsp file (spec.md §6 "BSP file").
func Load(data []byte) (*BSP, error) {
	r := &reader{data: data}
	version := r.i32()
	if r.err != nil {
		return nil, r.err
	}
	if version != Version {
		return nil, fmt.Errorf("bsp: version %d, want %d", version, Version)
	}

	var dirs [lumpCount]lumpDir
	for i := range dirs {
		dirs[i] = lumpDir{offset: r.i32(), length: r.i32()}
	}
	if r.err != nil {
		return nil, r.err
	}
	for i, d := range dirs {
		if d.offset < 0 || d.length < 0 || int(d.offset)+int(d.length) > len(data) {
			return nil, fmt.Errorf("bsp: lump %d extends past end of file", i)
		}
	}

	b := &BSP{}
	var err error
	if b.Entities, err = loadEntities(data, dirs[lumpEntities]); err != nil {
		return nil, err
	}
	if b.Planes, err = loadPlanes(r, dirs[lumpPlanes]); err != nil {
		return nil, err
	}
	if b.Textures, err = loadTextures(r, dirs[lumpTextures]); err != nil {
		return nil, err
	}
	if b.Vertices, err = loadVertices(r, dirs[lumpVertices]); err != nil {
		return nil, err
	}
	b.Visibility = append([]byte(nil), sliceLump(data, dirs[lumpVisibility])...)
	if b.Nodes, err = loadNodes(r, dirs[lumpNodes]); err != nil {
		return nil, err
	}
	if b.TexInfo, err = loadTexInfo(r, dirs[lumpTexInfo]); err != nil {
		return nil, err
	}
	if b.Faces, err = loadFaces(r, dirs[lumpFaces]); err != nil {
		return nil, err
	}
	b.Lightmaps = append([]byte(nil), sliceLump(data, dirs[lumpLightmaps])...)
	if b.ClipNodes, err = loadClipNodes(r, dirs[lumpClipNodes]); err != nil {
		return nil, err
	}
	if b.Leaves, err = loadLeaves(r, dirs[lumpLeaves]); err != nil {
		return nil, err
	}
	if b.MarkSurfaces, err = loadMarkSurfaces(r, dirs[lumpMarkSurfaces]); err != nil {
		return nil, err
	}
	if b.Edges, err = loadEdges(r, dirs[lumpEdges]); err != nil {
		return nil, err
	}
	if b.SurfEdges, err = loadSurfEdges(r, dirs[lumpSurfEdges]); err != nil {
		return nil, err
	}
	if b.Models, err = loadModels(r, dirs[lumpModels]); err != nil {
		return nil, err
	}
	return b, nil
}

func sliceLump(data []byte, d lumpDir) []byte {
	return data[d.offset : d.offset+d.length]
}

func loadEntities(data []byte, d lumpDir) ([]Entity, error) {
	raw := sliceLump(data, d)
	if i := indexByte(raw, 0); i >= 0 {
		raw = raw[:i]
	}
	return parseEntityString(string(raw)), nil
}

func indexByte(b []byte, c byte) int {
	for i, v := range b {
		if v == c {
			return i
		}
	}
	return -1
}

// parseEntityString splits the NUL-terminated ASCII entity string into
// an ordered list of key/value maps, one per `{ ... }` block (spec.md
// §4.2 "Loader").
func parseEntityString(s string) []Entity {
	var entities []Entity
	var cur Entity
	lines := strings.Split(s, "\n")
	for _, line := range lines {
		line = strings.TrimSpace(line)
		switch {
		case line == "{":
			cur = Entity{}
		case line == "}":
			if cur != nil {
				entities = append(entities, cur)
				cur = nil
			}
		case strings.HasPrefix(line, `"`):
			key, value, ok := parseKV(line)
			if ok && cur != nil {
				cur[key] = value
			}
		}
	}
	return entities
}

// parseKV parses a `"key" "value"` line.
func parseKV(line string) (key, value string, ok bool) {
	fields := strings.SplitN(line, `"`, 5)
	// fields: ["", key, "", value, ""]
	if len(fields) < 4 {
		return "", "", false
	}
	return fields[1], fields[3], true
}

func loadPlanes(r *reader, d lumpDir) ([]Plane, error) {
	if d.length%planeSize != 0 {
		return nil, fmt.Errorf("bsp: plane lump size %d not a multiple of %d", d.length, planeSize)
	}
	r.seek(d.offset)
	n := int(d.length) / planeSize
	planes := make([]Plane, n)
	for i := range planes {
		planes[i] = Plane{
			Normal: lin.V3{X: float64(r.f32()), Y: float64(r.f32()), Z: float64(r.f32())},
			Dist:   float64(r.f32()),
			Kind:   PlaneKind(r.i32()),
		}
	}
	return planes, r.err
}

func loadTextures(r *reader, d lumpDir) ([]Texture, error) {
	if d.length == 0 {
		return nil, nil
	}
	r.seek(d.offset)
	count := int(r.i32())
	offsets := make([]int32, count)
	for i := range offsets {
		offsets[i] = r.i32()
	}
	textures := make([]Texture, count)
	for i := range textures {
		if offsets[i] < 0 {
			continue // unused texture slot
		}
		r.seek(d.offset + offsets[i])
		name := r.bytes(texNameSize)
		width := r.u32()
		height := r.u32()
		var mipOffsets [mipLevels]int32
		for m := range mipOffsets {
			mipOffsets[m] = r.i32()
		}
		tex := Texture{Name: cString(name), Width: width, Height: height}
		for m := range mipOffsets {
			factor := uint32(1) << uint(m)
			size := int((width / factor) * (height / factor))
			r.seek(d.offset + offsets[i] + mipOffsets[m])
			tex.Mipmaps[m] = append([]byte(nil), r.bytes(size)...)
		}
		textures[i] = tex
	}
	return textures, r.err
}

func cString(b []byte) string {
	if i := indexByte(b, 0); i >= 0 {
		b = b[:i]
	}
	return string(b)
}

func loadVertices(r *reader, d lumpDir) ([]lin.V3, error) {
	if d.length%vertexSize != 0 {
		return nil, fmt.Errorf("bsp: vertex lump size %d not a multiple of %d", d.length, vertexSize)
	}
	r.seek(d.offset)
	n := int(d.length) / vertexSize
	verts := make([]lin.V3, n)
	for i := range verts {
		verts[i] = lin.V3{X: float64(r.f32()), Y: float64(r.f32()), Z: float64(r.f32())}
	}
	return verts, r.err
}

func loadNodes(r *reader, d lumpDir) ([]Node, error) {
	if d.length%nodeSize != 0 {
		return nil, fmt.Errorf("bsp: node lump size %d not a multiple of %d", d.length, nodeSize)
	}
	r.seek(d.offset)
	n := int(d.length) / nodeSize
	nodes := make([]Node, n)
	for i := range nodes {
		nodes[i].PlaneID = r.i32()
		nodes[i].Children = [2]int32{int32(r.i16()), int32(r.i16())}
		for a := 0; a < 3; a++ {
			nodes[i].Mins[a] = r.i16()
		}
		for a := 0; a < 3; a++ {
			nodes[i].Maxs[a] = r.i16()
		}
		nodes[i].FaceID = r.u16()
		nodes[i].FaceCount = r.u16()
	}
	return nodes, r.err
}

func loadTexInfo(r *reader, d lumpDir) ([]TexInfo, error) {
	if d.length%texInfoSize != 0 {
		return nil, fmt.Errorf("bsp: texinfo lump size %d not a multiple of %d", d.length, texInfoSize)
	}
	r.seek(d.offset)
	n := int(d.length) / texInfoSize
	infos := make([]TexInfo, n)
	for i := range infos {
		for a := 0; a < 3; a++ {
			infos[i].SVector[a] = r.f32()
		}
		infos[i].SOffset = r.f32()
		for a := 0; a < 3; a++ {
			infos[i].TVector[a] = r.f32()
		}
		infos[i].TOffset = r.f32()
		infos[i].TextureID = r.i32()
		infos[i].Flags = r.i32()
	}
	return infos, r.err
}

func loadFaces(r *reader, d lumpDir) ([]Face, error) {
	if d.length%faceSize != 0 {
		return nil, fmt.Errorf("bsp: face lump size %d not a multiple of %d", d.length, faceSize)
	}
	r.seek(d.offset)
	n := int(d.length) / faceSize
	faces := make([]Face, n)
	for i := range faces {
		faces[i].PlaneID = r.i16()
		faces[i].Side = r.i16()
		faces[i].EdgeID = r.i32()
		faces[i].EdgeCount = r.i16()
		if faces[i].EdgeCount < 3 {
			return nil, fmt.Errorf("bsp: face %d has %d edges, want >= 3", i, faces[i].EdgeCount)
		}
		faces[i].TexInfo = r.i16()
		for a := range faces[i].Styles {
			faces[i].Styles[a] = r.u8()
		}
		faces[i].LightOff = r.i32()
	}
	return faces, r.err
}

func loadClipNodes(r *reader, d lumpDir) ([]ClipNode, error) {
	if d.length%clipNodeSize != 0 {
		return nil, fmt.Errorf("bsp: clipnode lump size %d not a multiple of %d", d.length, clipNodeSize)
	}
	r.seek(d.offset)
	n := int(d.length) / clipNodeSize
	nodes := make([]ClipNode, n)
	for i := range nodes {
		nodes[i].PlaneID = r.i32()
		nodes[i].Children = [2]int32{int32(r.i16()), int32(r.i16())}
	}
	return nodes, r.err
}

func loadLeaves(r *reader, d lumpDir) ([]Leaf, error) {
	if d.length%leafSize != 0 {
		return nil, fmt.Errorf("bsp: leaf lump size %d not a multiple of %d", d.length, leafSize)
	}
	r.seek(d.offset)
	n := int(d.length) / leafSize
	leaves := make([]Leaf, n)
	for i := range leaves {
		leaves[i].Contents = Contents(r.i32())
		leaves[i].VisOffset = r.i32()
		for a := 0; a < 3; a++ {
			leaves[i].Mins[a] = r.i16()
		}
		for a := 0; a < 3; a++ {
			leaves[i].Maxs[a] = r.i16()
		}
		leaves[i].MarkSurfID = r.u16()
		leaves[i].MarkSurfCount = r.u16()
		for a := range leaves[i].Sounds {
			leaves[i].Sounds[a] = r.u8()
		}
	}
	return leaves, r.err
}

func loadMarkSurfaces(r *reader, d lumpDir) ([]uint16, error) {
	if d.length%markSurfSize != 0 {
		return nil, fmt.Errorf("bsp: marksurface lump size %d not a multiple of %d", d.length, markSurfSize)
	}
	r.seek(d.offset)
	n := int(d.length) / markSurfSize
	out := make([]uint16, n)
	for i := range out {
		out[i] = r.u16()
	}
	return out, r.err
}

func loadEdges(r *reader, d lumpDir) ([]Edge, error) {
	if d.length%edgeSize != 0 {
		return nil, fmt.Errorf("bsp: edge lump size %d not a multiple of %d", d.length, edgeSize)
	}
	r.seek(d.offset)
	n := int(d.length) / edgeSize
	edges := make([]Edge, n)
	for i := range edges {
		edges[i].V = [2]uint16{r.u16(), r.u16()}
		if edges[i].V[0] == edges[i].V[1] {
			return nil, fmt.Errorf("bsp: edge %d references the same vertex twice", i)
		}
	}
	return edges, r.err
}

func loadSurfEdges(r *reader, d lumpDir) ([]int32, error) {
	if d.length%surfEdgeSize != 0 {
		return nil, fmt.Errorf("bsp: surfedge lump size %d not a multiple of %d", d.length, surfEdgeSize)
	}
	r.seek(d.offset)
	n := int(d.length) / surfEdgeSize
	out := make([]int32, n)
	for i := range out {
		out[i] = r.i32()
	}
	return out, r.err
}

func loadModels(r *reader, d lumpDir) ([]Model, error) {
	if d.length%modelSize != 0 {
		return nil, fmt.Errorf("bsp: model lump size %d not a multiple of %d", d.length, modelSize)
	}
	r.seek(d.offset)
	n := int(d.length) / modelSize
	models := make([]Model, n)
	for i := range models {
		models[i].Mins = lin.V3{X: float64(r.f32()), Y: float64(r.f32()), Z: float64(r.f32())}
		models[i].Maxs = lin.V3{X: float64(r.f32()), Y: float64(r.f32()), Z: float64(r.f32())}
		models[i].Origin = lin.V3{X: float64(r.f32()), Y: float64(r.f32()), Z: float64(r.f32())}
		for a := range models[i].HullRoots {
			models[i].HullRoots[a] = r.i32()
		}
		models[i].LeafCount = r.i32()
		models[i].FaceID = r.i32()
		models[i].FaceCount = r.i32()
	}
	return models, r.err
}
