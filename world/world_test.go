package world

import (
	"testing"

	"github.com/cormac-obrien/richter-sub002/progs"
)

func testImage() *progs.Image {
	img := progs.NewImage()
	img.FieldDefs = []progs.Def{
		{Type: progs.TypeVector, Offset: 0, NameID: img.InternRuntime("origin")},
		{Type: progs.TypeFloat, Offset: 3, NameID: img.InternRuntime("health")},
		{Type: progs.TypeString, Offset: 4, NameID: img.InternRuntime("classname")},
		{Type: progs.TypeVector, Offset: 5, NameID: img.InternRuntime("angles")},
		{Type: progs.TypeFloat, Offset: 8, NameID: img.InternRuntime("light_lev")},
	}
	return img
}

func testBounds() Bounds {
	return Bounds{Mins: [3]float32{-1000, -1000, -1000}, Maxs: [3]float32{1000, 1000, 1000}}
}

func TestAllocateAndFree(t *testing.T) {
	w := New(testImage(), testBounds())
	id, err := w.AllocateUninitialized()
	if err != nil {
		t.Fatalf("AllocateUninitialized: %v", err)
	}
	if id == WorldEntity {
		t.Fatal("allocated id collided with the reserved world entity")
	}
	if !w.Exists(id) {
		t.Fatal("entity should exist after allocation")
	}
	if err := w.Free(id); err != nil {
		t.Fatalf("Free: %v", err)
	}
	if w.Exists(id) {
		t.Fatal("entity should not exist after Free")
	}
}

func TestFieldRoundTrip(t *testing.T) {
	w := New(testImage(), testBounds())
	id, _ := w.AllocateUninitialized()
	off, ok := w.FieldOffset("origin")
	if !ok {
		t.Fatal("expected origin field to be registered")
	}
	w.SetVector(id, off, [3]float32{1, 2, 3})
	if got := w.GetVector(id, off); got != [3]float32{1, 2, 3} {
		t.Fatalf("GetVector = %v, want [1 2 3]", got)
	}
}

func TestAllocateFromMap(t *testing.T) {
	w := New(testImage(), testBounds())
	id, err := w.AllocateFromMap(map[string]string{
		"origin": "1 2 3",
		"health": "100",
	})
	if err != nil {
		t.Fatalf("AllocateFromMap: %v", err)
	}
	off, _ := w.FieldOffset("origin")
	if got := w.GetVector(id, off); got != [3]float32{1, 2, 3} {
		t.Fatalf("origin = %v, want [1 2 3]", got)
	}
	hoff, _ := w.FieldOffset("health")
	if got := w.GetFloat(id, hoff); got != 100 {
		t.Fatalf("health = %v, want 100", got)
	}
}

func TestAllocateFromMapAliases(t *testing.T) {
	w := New(testImage(), testBounds())
	id, err := w.AllocateFromMap(map[string]string{
		"angle": "90",
		"light": "200",
	})
	if err != nil {
		t.Fatalf("AllocateFromMap: %v", err)
	}
	aoff, _ := w.FieldOffset("angles")
	if got := w.GetVector(id, aoff); got[1] != 90 {
		t.Fatalf("angles[1] = %v, want 90", got[1])
	}
	loff, _ := w.FieldOffset("light_lev")
	if got := w.GetFloat(id, loff); got != 200 {
		t.Fatalf("light_lev = %v, want 200", got)
	}
}

func TestExhaustion(t *testing.T) {
	w := New(testImage(), testBounds())
	for i := 1; i < MaxEntities; i++ {
		if _, err := w.AllocateUninitialized(); err != nil {
			t.Fatalf("allocation %d: %v", i, err)
		}
	}
	if _, err := w.AllocateUninitialized(); err == nil {
		t.Fatal("expected an error once the registry is exhausted")
	}
}

func TestAreaQuery(t *testing.T) {
	w := New(testImage(), testBounds())
	a, _ := w.AllocateUninitialized()
	b, _ := w.AllocateUninitialized()
	w.Link(a, [3]float32{0, 0, 0}, [3]float32{1, 1, 1}, false)
	w.Link(b, [3]float32{500, 500, 500}, [3]float32{501, 501, 501}, true)

	near := w.AreaQuery([3]float32{-5, -5, -5}, [3]float32{5, 5, 5})
	if !containsID(near, a) {
		t.Fatalf("AreaQuery near origin should include entity %d, got %v", a, near)
	}
	if containsID(near, b) {
		t.Fatalf("AreaQuery near origin should not include entity %d, got %v", b, near)
	}
}

func containsID(ids []int32, want int32) bool {
	for _, id := range ids {
		if id == want {
			return true
		}
	}
	return false
}
