// Copyright © 2024 Galvanized Logic Inc.

package render

import (
	"testing"

	"github.com/cormac-obrien/richter-sub002/bsp"
	"github.com/cormac-obrien/richter-sub002/load"
	"github.com/cormac-obrien/richter-sub002/math/lin"
)

// fixtureMap builds the smallest BSP that exercises LeafAt, DecompressPVS
// and a single marksurface: a root node splitting on the Z=0 plane, with
// the camera landing in leaf 1, which owns one face.
func fixtureMap() *bsp.BSP {
	return &bsp.BSP{
		Planes: []bsp.Plane{{Normal: lin.V3{Z: 1}, Dist: 0}},
		Nodes: []bsp.Node{
			{PlaneID: 0, Children: [2]int32{^int32(1), ^int32(0)}},
		},
		Leaves: []bsp.Leaf{
			{VisOffset: -1},
			{VisOffset: -1, Mins: [3]int16{0, 0, 0}, Maxs: [3]int16{10, 10, 10}, MarkSurfID: 0, MarkSurfCount: 1},
		},
		MarkSurfaces: []uint16{0},
		Faces:        []bsp.Face{{TexInfo: 0}},
		TexInfo:      []bsp.TexInfo{{TextureID: 0}},
		Textures:     []bsp.Texture{{Name: "wall"}},
	}
}

func TestBuildWorldEmitsVisibleLeafFaces(t *testing.T) {
	scn := &Scene{Map: fixtureMap(), CameraPos: lin.V3{X: 0, Y: 0, Z: 10}}
	pass := NewPass()

	scn.BuildWorld(&pass)

	if len(pass.Packets) != 1 {
		t.Fatalf("got %d packets, want 1", len(pass.Packets))
	}
	p := pass.Packets[0]
	if len(p.TextureIDs) != 1 || p.TextureIDs[0] != 0 {
		t.Fatalf("packet texture ids = %v, want [0]", p.TextureIDs)
	}
	if p.Tag != 0 {
		t.Fatalf("packet tag = %d, want 0", p.Tag)
	}
}

func TestBuildWorldSkipsWithoutMap(t *testing.T) {
	scn := &Scene{}
	pass := NewPass()
	scn.BuildWorld(&pass) // must not panic
	if len(pass.Packets) != 0 {
		t.Fatalf("got %d packets, want 0", len(pass.Packets))
	}
}

func TestBuildEntitiesAssignsBucketsAndModelData(t *testing.T) {
	scn := &Scene{}
	pass := NewPass()
	ents := []Renderable{
		{Tag: 5, Origin: lin.V3{X: 1, Y: 2, Z: 3}, Alpha: 1},
		{Tag: 6, Origin: lin.V3{X: 4, Y: 5, Z: 6}, Alpha: 0.5},
	}

	scn.BuildEntities(&pass, ents)

	if len(pass.Packets) != 2 {
		t.Fatalf("got %d packets, want 2", len(pass.Packets))
	}
	opaque, transparent := pass.Packets[0], pass.Packets[1]
	if opaque.Tag != 5 || transparent.Tag != 6 {
		t.Fatalf("tags = %d, %d, want 5, 6", opaque.Tag, transparent.Tag)
	}
	if opaque.Bucket>>56 != Opaque {
		t.Fatalf("opaque entity bucket = %d, want bucket %d", opaque.Bucket>>56, Opaque)
	}
	if transparent.Bucket>>56 != Transparent {
		t.Fatalf("transparent entity bucket = %d, want bucket %d", transparent.Bucket>>56, Transparent)
	}
	model, ok := opaque.Data[load.MODEL]
	if !ok || len(model) != 16*4 {
		t.Fatalf("model uniform data = %d bytes, want 64", len(model))
	}
}

func TestPacketBucketOrdersOpaqueBeforeTransparentBeforeOverlay(t *testing.T) {
	o := packetBucket(Opaque, 9999)
	tr := packetBucket(Transparent, 0)
	ov := packetBucket(Overlay, 0)
	if !(o < tr && tr < ov) {
		t.Fatalf("bucket ordering broken: opaque=%d transparent=%d overlay=%d", o, tr, ov)
	}
}

func TestSortPacketsOrdersAscendingByBucket(t *testing.T) {
	packets := Packets{
		{Bucket: packetBucket(Overlay, 0)},
		{Bucket: packetBucket(Opaque, 5)},
		{Bucket: packetBucket(Transparent, 1)},
	}
	SortPackets(packets)
	for i := 1; i < len(packets); i++ {
		if packets[i-1].Bucket > packets[i].Bucket {
			t.Fatalf("packets not sorted ascending: %v", packets)
		}
	}
}

func TestFrameBuildOrdersWorldThenUI(t *testing.T) {
	f := NewFrame()
	scn := &Scene{Map: fixtureMap(), CameraPos: lin.V3{X: 0, Y: 0, Z: 10}}
	ents := []Renderable{{Tag: 1, Alpha: 1}}
	quads := []Packet{{}}

	f.Build(scn, ents, quads, nil)

	if len(f.World.Packets) != 2 {
		t.Fatalf("world packets = %d, want 2 (1 face + 1 entity)", len(f.World.Packets))
	}
	if len(f.UI.Packets) != 1 {
		t.Fatalf("UI packets = %d, want 1", len(f.UI.Packets))
	}
	if f.UI.Packets[0].Bucket>>56 != Overlay {
		t.Fatalf("UI packet bucket = %d, want overlay", f.UI.Packets[0].Bucket>>56)
	}
	passes := f.Passes()
	if len(passes) != 2 {
		t.Fatalf("got %d passes, want 2", len(passes))
	}
}
