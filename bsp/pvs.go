// Copyright © 2013-2015 Galvanized Logic Inc.
// Use is governed by a BSD-style license found in the LICENSE file.

package bsp

import (
	"fmt"

	"github.com/cormac-obrien/richter-sub002/math/lin"
)

// LeafAt walks the full-detail node tree from the root (node 0),
// evaluating each plane against point, and returns the index of the
// leaf containing it (spec.md §4.2 "Leaf lookup").
func (b *BSP) LeafAt(point *lin.V3) int32 {
	child := int32(0)
	for child >= 0 {
		node := &b.Nodes[child]
		plane := &b.Planes[node.PlaneID]
		if plane.Side(point) >= 0 {
			child = node.Children[0]
		} else {
			child = node.Children[1]
		}
	}
	return ^child
}

// DecompressPVS expands the run-length encoded visibility vector for
// leaf (1-indexed the way the on-disk format does: leaf 0 is the outer
// "solid" leaf and carries no visibility data), into one bit per leaf
// (spec.md §3 "PVS", §4.2 "PVS decompression").
//
// Encoding: a zero byte means "the following byte is a run length of
// zero bytes"; any other byte is a literal byte of the bit vector.
// Decompression stops once ceil(leafCount/8) bytes have been produced.
func (b *BSP) DecompressPVS(leaf int32) ([]byte, error) {
	if leaf <= 0 || int(leaf) >= len(b.Leaves) {
		return nil, fmt.Errorf("bsp: leaf %d out of range", leaf)
	}
	offset := b.Leaves[leaf].VisOffset
	if offset < 0 {
		// No visibility data: every leaf is potentially visible.
		want := (len(b.Leaves) + 7) / 8
		out := make([]byte, want)
		for i := range out {
			out[i] = 0xff
		}
		return out, nil
	}
	want := (len(b.Leaves) + 7) / 8
	out := make([]byte, 0, want)
	pos := int(offset)
	for len(out) < want {
		if pos >= len(b.Visibility) {
			return nil, fmt.Errorf("bsp: PVS for leaf %d ran past the visibility lump", leaf)
		}
		v := b.Visibility[pos]
		pos++
		if v != 0 {
			out = append(out, v)
			continue
		}
		if pos >= len(b.Visibility) {
			return nil, fmt.Errorf("bsp: PVS for leaf %d: truncated run", leaf)
		}
		run := int(b.Visibility[pos])
		pos++
		for i := 0; i < run && len(out) < want; i++ {
			out = append(out, 0)
		}
	}
	return out[:want], nil
}

// LeafVisible reports whether bit `leaf` is set in a PVS vector
// previously returned by DecompressPVS.
func LeafVisible(pvs []byte, leaf int32) bool {
	byteIdx := leaf >> 3
	if int(byteIdx) >= len(pvs) {
		return false
	}
	return pvs[byteIdx]&(1<<uint(leaf&7)) != 0
}
