// Copyright © 2013-2015 Galvanized Logic Inc.
// Use is governed by a BSD-style license found in the LICENSE file.

package world

// Bounds is an axis-aligned box in world space.
type Bounds struct {
	Mins, Maxs [3]float32
}

func (b Bounds) extent(axis int) float32 { return b.Maxs[axis] - b.Mins[axis] }

// longestAxis returns the axis (0=X, 1=Y, 2=Z) along which b is
// longest, the rule the area tree uses to pick a split axis at each
// level (spec.md §3 "Area tree": "alternating split axis by longer
// extent at each level").
func (b Bounds) longestAxis() int {
	axis := 0
	best := b.extent(0)
	for a := 1; a < 3; a++ {
		if e := b.extent(a); e > best {
			best = e
			axis = a
		}
	}
	return axis
}

func (b Bounds) split(axis int) (lower, upper Bounds) {
	mid := (b.Mins[axis] + b.Maxs[axis]) / 2
	lower, upper = b, b
	lower.Maxs[axis] = mid
	upper.Mins[axis] = mid
	return lower, upper
}

func intersects(a, b Bounds) bool {
	for axis := 0; axis < 3; axis++ {
		if a.Maxs[axis] < b.Mins[axis] || a.Mins[axis] > b.Maxs[axis] {
			return false
		}
	}
	return true
}

func contains(outer, inner Bounds) bool {
	for axis := 0; axis < 3; axis++ {
		if inner.Mins[axis] < outer.Mins[axis] || inner.Maxs[axis] > outer.Maxs[axis] {
			return false
		}
	}
	return true
}

// areaNode is one node of the area tree: a bounding volume plus two
// entity lists, triggers and solids (spec.md §3 "Area tree").
type areaNode struct {
	bounds      Bounds
	children    [2]*areaNode
	triggers    map[int32]bool
	solids      map[int32]bool
}

func newAreaNode(bounds Bounds, depth int) *areaNode {
	n := &areaNode{bounds: bounds, triggers: map[int32]bool{}, solids: map[int32]bool{}}
	if depth > 0 {
		axis := bounds.longestAxis()
		lower, upper := bounds.split(axis)
		n.children[0] = newAreaNode(lower, depth-1)
		n.children[1] = newAreaNode(upper, depth-1)
	}
	return n
}

// AreaTree is a static BSP-style space partition of the world bounds,
// used to cull entity-vs-entity queries (spec.md §3 "Area tree", §4.6).
type AreaTree struct {
	root  *areaNode
	where map[int32]*areaNode // entity id -> node it is currently linked into.
	inTrigger map[int32]bool
}

// NewAreaTree builds a tree of the given depth over bounds. Quake's
// area tree is depth 4 (spec.md §3).
func NewAreaTree(bounds Bounds, depth int) *AreaTree {
	return &AreaTree{
		root:      newAreaNode(bounds, depth),
		where:     map[int32]*areaNode{},
		inTrigger: map[int32]bool{},
	}
}

// locate finds the smallest node fully containing box, descending as
// far as possible.
func (n *areaNode) locate(box Bounds) *areaNode {
	for _, child := range n.children {
		if child != nil && contains(child.bounds, box) {
			return child.locate(box)
		}
	}
	return n
}

// Link places id into the tree at the smallest node containing its
// [mins, maxs] box, in the triggers list if trigger is true, else the
// solids list. A prior link for id is removed first.
func (t *AreaTree) Link(id int32, mins, maxs [3]float32, trigger bool) {
	t.Unlink(id)
	node := t.root.locate(Bounds{Mins: mins, Maxs: maxs})
	if trigger {
		node.triggers[id] = true
		t.inTrigger[id] = true
	} else {
		node.solids[id] = true
		t.inTrigger[id] = false
	}
	t.where[id] = node
}

// Unlink removes id from whichever node it currently occupies, if any.
func (t *AreaTree) Unlink(id int32) {
	node, ok := t.where[id]
	if !ok {
		return
	}
	delete(node.triggers, id)
	delete(node.solids, id)
	delete(t.where, id)
	delete(t.inTrigger, id)
}

// Query returns every linked entity (trigger or solid) whose node
// overlaps [mins, maxs].
func (t *AreaTree) Query(mins, maxs [3]float32) []int32 {
	box := Bounds{Mins: mins, Maxs: maxs}
	var out []int32
	t.root.query(box, &out)
	return out
}

func (n *areaNode) query(box Bounds, out *[]int32) {
	if !intersects(n.bounds, box) {
		return
	}
	for id := range n.triggers {
		*out = append(*out, id)
	}
	for id := range n.solids {
		*out = append(*out, id)
	}
	for _, child := range n.children {
		if child != nil {
			child.query(box, out)
		}
	}
}
