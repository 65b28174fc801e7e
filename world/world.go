// Copyright © 2013-2015 Galvanized Logic Inc.
// Use is governed by a BSD-style license found in the LICENSE file.

// Package world owns the replicated entity registry the bytecode VM
// operates on (spec.md §3 "Entity", §4.6). It is grounded on the
// teacher's entity.go/eid.go slab-allocated identifier scheme,
// simplified from that scheme's generation/edition bits (entities here
// are fixed-capacity and never need a reuse-detection tag the way the
// teacher's unbounded, long-lived application entities do) down to a
// flat free-list over a fixed array, matching spec.md's "fixed-slot
// registry of capacity MAX_ENTITIES" and "entity IDs are stable".
package world

import (
	"fmt"

	"github.com/cormac-obrien/richter-sub002/progs"
)

// MaxEntities is the fixed capacity of the entity registry (spec.md §3).
const MaxEntities = 600

// World entity ID zero is reserved for the world itself (spec.md §3).
const WorldEntity int32 = 0

// World owns every entity's field storage and implements progs.Host so
// a VM can address entity memory directly (spec.md §3, "VM-visible
// field addresses").
type World struct {
	img            *progs.Image
	addrsPerEntity int32
	arena          []byte

	occupied []bool // occupied[id] reports whether slot id is live.
	free     []int32

	fieldOffset map[string]int32
	areas       *AreaTree
}

// New builds an empty registry sized for img's field-def table. img
// supplies the FieldDefs the entity layout is addressed against; the
// static prefix fields (origin, angles, ...) are ordinary field defs
// emitted by the compiler the same as any QuakeC-declared field, so no
// separate "standard fields" table is needed here (spec.md §3,
// "Entity").
func New(img *progs.Image, bounds Bounds) *World {
	w := &World{
		img:            img,
		addrsPerEntity: addrsPerEntity(img),
		occupied:       make([]bool, MaxEntities),
		fieldOffset:    map[string]int32{},
		areas:          NewAreaTree(bounds, 4),
	}
	w.arena = make([]byte, int(w.addrsPerEntity)*MaxEntities*4)
	w.occupied[WorldEntity] = true
	for _, def := range img.FieldDefs {
		if name, ok := fieldName(img, def); ok {
			w.fieldOffset[name] = int32(def.Offset)
		}
	}
	for id := int32(MaxEntities - 1); id >= 1; id-- {
		w.free = append(w.free, id)
	}
	return w
}

// addrsPerEntity sizes the per-entity layout to the largest field
// address the bytecode image declares, widened for vector fields
// (spec.md §3, "entity field area is ... sized to the layout's largest
// address").
func addrsPerEntity(img *progs.Image) int32 {
	var max int32 = 1
	for _, def := range img.FieldDefs {
		width := int32(1)
		if def.Type == progs.TypeVector {
			width = 3
		}
		if end := int32(def.Offset) + width; end > max {
			max = end
		}
	}
	return max
}

// AddrsPerEntity implements progs.Host.
func (w *World) AddrsPerEntity() int32 { return w.addrsPerEntity }

// EntityArena implements progs.Host.
func (w *World) EntityArena() []byte { return w.arena }

// FieldOffset resolves a named field to its word offset, used by the
// engine (outside the VM) to read/write standard fields like origin
// and movetype without going through bytecode.
func (w *World) FieldOffset(name string) (int32, bool) {
	off, ok := w.fieldOffset[name]
	return off, ok
}

// Exists reports whether id names a live entity.
func (w *World) Exists(id int32) bool {
	return id >= 0 && int(id) < MaxEntities && w.occupied[id]
}

// AllocateUninitialized reserves the next free slot and zeroes its
// field storage, for the VM's spawn builtin to populate (spec.md §3,
// "Ownership and lifecycle").
func (w *World) AllocateUninitialized() (int32, error) {
	if len(w.free) == 0 {
		return 0, fmt.Errorf("world: entity registry exhausted (max %d)", MaxEntities)
	}
	id := w.free[len(w.free)-1]
	w.free = w.free[:len(w.free)-1]
	w.occupied[id] = true
	w.zeroFields(id)
	return id, nil
}

// AllocateFromMap reserves a slot and applies kv field-by-field using
// the bytecode's field-def table, the path used for entities parsed
// out of the BSP entity string (spec.md §3, §4.2 "Loader").
func (w *World) AllocateFromMap(kv map[string]string) (int32, error) {
	id, err := w.AllocateUninitialized()
	if err != nil {
		return 0, err
	}
	for key, value := range kv {
		if off, ok := w.angleAlias(key); ok {
			if err := w.applyKV(id, off, progs.TypeFloat, value); err != nil {
				return 0, fmt.Errorf("world: entity %d field %q: %w", id, key, err)
			}
			continue
		}
		key = aliasName(key)
		off, ok := w.fieldOffset[key]
		if !ok {
			continue // unknown keys in the entity string are ignored, matching original engine tolerance.
		}
		def := w.fieldDef(key)
		if def == nil {
			continue
		}
		if err := w.applyKV(id, off, def.Type, value); err != nil {
			return 0, fmt.Errorf("world: entity %d field %q: %w", id, key, err)
		}
	}
	return id, nil
}

// aliasName maps an entity-string key to its canonical field name where
// the two differ (spec.md §4.6: "light" addresses "light_lev").
func aliasName(key string) string {
	if key == "light" {
		return "light_lev"
	}
	return key
}

// angleAlias handles "angle", which addresses the second (yaw) component
// of the vector field "angles" rather than a field of its own (spec.md
// §4.6: "angle -> second component of angles").
func (w *World) angleAlias(key string) (int32, bool) {
	if key != "angle" {
		return 0, false
	}
	base, ok := w.fieldOffset["angles"]
	if !ok {
		return 0, false
	}
	return base + 1, true
}

func (w *World) fieldDef(name string) *progs.Def {
	for i := range w.img.FieldDefs {
		if nm, ok := fieldName(w.img, w.img.FieldDefs[i]); ok && nm == name {
			return &w.img.FieldDefs[i]
		}
	}
	return nil
}

// fieldName resolves a field def's interned name, reporting false when
// the name does not resolve or img has no backing strtab.Table.
func fieldName(img *progs.Image, def progs.Def) (string, bool) {
	id, err := img.StringID(def.NameID)
	if err != nil || img.Strings == nil {
		return "", false
	}
	s, err := img.Strings.String(id)
	if err != nil {
		return "", false
	}
	return s, true
}

// Free marks id's slot vacant, unlinks it from the area tree, and
// zeroes its field storage (spec.md §3, "Ownership and lifecycle").
func (w *World) Free(id int32) error {
	if !w.Exists(id) || id == WorldEntity {
		return fmt.Errorf("world: cannot free entity %d", id)
	}
	w.areas.Unlink(id)
	w.occupied[id] = false
	w.zeroFields(id)
	w.free = append(w.free, id)
	return nil
}

func (w *World) zeroFields(id int32) {
	start := id * w.addrsPerEntity * 4
	end := start + w.addrsPerEntity*4
	for i := start; i < end; i++ {
		w.arena[i] = 0
	}
}

// Link places id in the area tree using the caller-supplied box
// [mins, maxs], under the triggers list if trigger is true or the
// solids list otherwise (spec.md §3 "Area tree", §4.6). It does not
// read the entity's origin, size or solid fields.
func (w *World) Link(id int32, mins, maxs [3]float32, trigger bool) {
	w.areas.Link(id, mins, maxs, trigger)
}

// AreaQuery returns every entity linked into an area-tree node whose
// bounds overlap [mins, maxs] (spec.md §4.6). The entities' own boxes
// are not tested, so the result can include entities outside the box.
func (w *World) AreaQuery(mins, maxs [3]float32) []int32 {
	return w.areas.Query(mins, maxs)
}
