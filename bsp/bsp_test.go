package bsp

import (
	"bytes"
	"encoding/binary"
	"math"
	"testing"

	"github.com/cormac-obrien/richter-sub002/math/lin"
)

// build assembles a minimal but structurally valid .bsp file in memory:
// one splitting plane at x=0, one node/leaf pair either side of it, a
// matching one-node clip hull, and a single triangular face so
// Validate has something to check (spec.md §6 "BSP file", §8 scenario
// 2).
func build(t *testing.T) []byte {
	t.Helper()

	var lumps [lumpCount]bytes.Buffer

	lumps[lumpEntities].WriteString("{\n\"classname\" \"worldspawn\"\n}\n\x00")

	writeF32 := func(buf *bytes.Buffer, v float32) {
		binary.Write(buf, binary.LittleEndian, math.Float32bits(v))
	}
	writeI32 := func(buf *bytes.Buffer, v int32) { binary.Write(buf, binary.LittleEndian, v) }
	writeI16 := func(buf *bytes.Buffer, v int16) { binary.Write(buf, binary.LittleEndian, v) }
	writeU16 := func(buf *bytes.Buffer, v uint16) { binary.Write(buf, binary.LittleEndian, v) }

	// planes: one splitting plane normal=(1,0,0) dist=0.
	p := &lumps[lumpPlanes]
	writeF32(p, 1)
	writeF32(p, 0)
	writeF32(p, 0)
	writeF32(p, 0)
	writeI32(p, int32(PlaneAxialX))

	// textures: left empty (zero-length lump, loader skips the count read).

	// vertices: a small triangle.
	v := &lumps[lumpVertices]
	tri := [][3]float32{{0, 0, 0}, {1, 0, 0}, {0, 1, 0}}
	for _, vert := range tri {
		writeF32(v, vert[0])
		writeF32(v, vert[1])
		writeF32(v, vert[2])
	}

	// visibility: left empty.

	// nodes: node 0 splits on plane 0, front child -> leaf 0, back -> leaf 1.
	n := &lumps[lumpNodes]
	writeI32(n, 0)
	writeI16(n, ^int16(0))
	writeI16(n, ^int16(1))
	for i := 0; i < 6; i++ {
		writeI16(n, 0)
	}
	writeU16(n, 0)
	writeU16(n, 1)

	// texinfo: one zeroed entry.
	ti := &lumps[lumpTexInfo]
	for i := 0; i < 8; i++ {
		writeF32(ti, 0)
	}
	writeI32(ti, 0)
	writeI32(ti, 0)

	// faces: one triangle on plane 0, 3 edges starting at surfedge 0.
	f := &lumps[lumpFaces]
	writeI16(f, 0)
	writeI16(f, 0)
	writeI32(f, 0)
	writeI16(f, 3)
	writeI16(f, 0)
	for i := 0; i < 4; i++ {
		f.WriteByte(0xff)
	}
	writeI32(f, -1)

	// lightmaps: left empty.

	// clipnodes: mirrors the full-detail split, but children are raw
	// contents values rather than complemented leaf indices.
	cn := &lumps[lumpClipNodes]
	writeI32(cn, 0)
	writeI16(cn, int16(ContentsEmpty))
	writeI16(cn, int16(ContentsSolid))

	// leaves.
	lv := &lumps[lumpLeaves]
	writeI32(lv, int32(ContentsEmpty))
	writeI32(lv, -1)
	for i := 0; i < 6; i++ {
		writeI16(lv, 0)
	}
	writeU16(lv, 0)
	writeU16(lv, 0)
	for i := 0; i < numAmbients; i++ {
		lv.WriteByte(0)
	}
	writeI32(lv, int32(ContentsSolid))
	writeI32(lv, -1)
	for i := 0; i < 6; i++ {
		writeI16(lv, 0)
	}
	writeU16(lv, 0)
	writeU16(lv, 0)
	for i := 0; i < numAmbients; i++ {
		lv.WriteByte(0)
	}

	// marksurfaces: left empty.

	// edges: a closed triangle loop over vertices 0,1,2.
	e := &lumps[lumpEdges]
	pairs := [][2]uint16{{0, 1}, {1, 2}, {2, 0}}
	for _, pr := range pairs {
		writeU16(e, pr[0])
		writeU16(e, pr[1])
	}

	// surfedges.
	se := &lumps[lumpSurfEdges]
	writeI32(se, 0)
	writeI32(se, 1)
	writeI32(se, 2)

	// models: one model, hull 0 rooted at clipnode 0.
	m := &lumps[lumpModels]
	for i := 0; i < 9; i++ {
		writeF32(m, 0)
	}
	writeI32(m, 0)
	for i := 1; i < maxHulls; i++ {
		writeI32(m, 0)
	}
	writeI32(m, 2)
	writeI32(m, 0)
	writeI32(m, 1)

	var out bytes.Buffer
	writeI32(&out, Version)
	headerLen := 4 + lumpCount*8
	offset := int32(headerLen)
	var dirs [lumpCount][2]int32
	for i := range lumps {
		dirs[i] = [2]int32{offset, int32(lumps[i].Len())}
		offset += int32(lumps[i].Len())
	}
	for _, d := range dirs {
		writeI32(&out, d[0])
		writeI32(&out, d[1])
	}
	for i := range lumps {
		out.Write(lumps[i].Bytes())
	}
	return out.Bytes()
}

func TestLoadRoundTrip(t *testing.T) {
	b, err := Load(build(t))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(b.Entities) != 1 || b.Entities[0]["classname"] != "worldspawn" {
		t.Fatalf("Entities = %+v, want one worldspawn entity", b.Entities)
	}
	if len(b.Planes) != 1 || len(b.Nodes) != 1 || len(b.Leaves) != 2 {
		t.Fatalf("unexpected lump sizes: planes=%d nodes=%d leaves=%d", len(b.Planes), len(b.Nodes), len(b.Leaves))
	}
	if err := b.Validate(); err != nil {
		t.Fatalf("Validate: %v", err)
	}
}

func TestBadVersion(t *testing.T) {
	data := build(t)
	binary.LittleEndian.PutUint32(data[0:4], 30)
	if _, err := Load(data); err == nil {
		t.Fatal("expected error for bad version")
	}
}

// TestLeafLookup exercises the scenario from spec.md §8: a node 0 with
// plane (1,0,0,0) sends (1,0,0) into the front child and (-1,0,0) into
// the back child.
func TestLeafLookup(t *testing.T) {
	b, err := Load(build(t))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if got := b.LeafAt(&lin.V3{X: 1}); got != 0 {
		t.Fatalf("LeafAt(1,0,0) = %d, want 0", got)
	}
	if got := b.LeafAt(&lin.V3{X: -1}); got != 1 {
		t.Fatalf("LeafAt(-1,0,0) = %d, want 1", got)
	}
}

func TestHullTraceHitsSolid(t *testing.T) {
	b, err := Load(build(t))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	start := lin.V3{X: 2}
	end := lin.V3{X: -1}
	tr := b.TraceHull(0, start, end)
	if tr.AllSolid {
		t.Fatal("did not expect AllSolid for a trace starting in empty space")
	}
	if !tr.HitPlane {
		t.Fatal("expected the trace to hit the splitting plane")
	}
	if tr.Ratio <= 0 || tr.Ratio >= 1 {
		t.Fatalf("Ratio = %v, want strictly between 0 and 1", tr.Ratio)
	}
	want := tr.Ratio
	got := (tr.EndPos.X - start.X) / (end.X - start.X)
	if diff := got - want; diff > 1e-9 || diff < -1e-9 {
		t.Fatalf("EndPos does not correspond to Ratio: got frac %v, want %v", got, want)
	}
}

func TestHullTraceStartSolid(t *testing.T) {
	b, err := Load(build(t))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	start := lin.V3{X: -1}
	end := lin.V3{X: -2}
	tr := b.TraceHull(0, start, end)
	if !tr.AllSolid {
		t.Fatal("expected AllSolid for a trace that never leaves solid")
	}
	if tr.Ratio != 0 {
		t.Fatalf("Ratio = %v, want 0", tr.Ratio)
	}
}

func TestHullTraceAllEmpty(t *testing.T) {
	b, err := Load(build(t))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	start := lin.V3{X: 2}
	end := lin.V3{X: 1}
	tr := b.TraceHull(0, start, end)
	if tr.HitPlane {
		t.Fatal("did not expect a hit plane for a trace confined to empty space")
	}
	if tr.Ratio != 1 {
		t.Fatalf("Ratio = %v, want 1", tr.Ratio)
	}
}

func TestDecompressPVS(t *testing.T) {
	// 9 leaves means ceil(9/8) = 2 bytes of decompressed PVS, enough to
	// exercise both a zero-run and a literal byte.
	leaves := make([]Leaf, 9)
	leaves[1].VisOffset = 0
	b := &BSP{
		Leaves: leaves,
		// A zero byte followed by a run of 1, then a literal 0xff.
		Visibility: []byte{0x00, 0x01, 0xff},
	}
	got, err := b.DecompressPVS(1)
	if err != nil {
		t.Fatalf("DecompressPVS: %v", err)
	}
	want := []byte{0x00, 0xff}
	if !bytes.Equal(got, want) {
		t.Fatalf("DecompressPVS = %v, want %v", got, want)
	}
}

func TestAnimatedTexture(t *testing.T) {
	b := &BSP{Textures: []Texture{
		{Name: "+0wall"},
		{Name: "+1wall"},
	}}
	got := b.AnimatedTexture(0, 0, false)
	if got != 0 {
		t.Fatalf("AnimatedTexture at t=0 = %d, want 0", got)
	}
	got = b.AnimatedTexture(0, 0.2, false)
	if got != 1 {
		t.Fatalf("AnimatedTexture at t=0.2 = %d, want 1", got)
	}
}
