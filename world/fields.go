// Copyright © 2013-2015 Galvanized Logic Inc.
// Use is governed by a BSD-style license found in the LICENSE file.

package world

import (
	"encoding/binary"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/cormac-obrien/richter-sub002/progs"
)

func (w *World) addr(id, fieldOffset int32) int32 {
	return (id*w.addrsPerEntity + fieldOffset) * 4
}

// GetFloat reads a float-typed field, bypassing the VM (spec.md §3,
// "VM-visible field addresses" — the engine round-trips through the
// same encoding the bytecode does).
func (w *World) GetFloat(id, fieldOffset int32) float32 {
	a := w.addr(id, fieldOffset)
	return math.Float32frombits(binary.LittleEndian.Uint32(w.arena[a : a+4]))
}

// SetFloat writes a float-typed field.
func (w *World) SetFloat(id, fieldOffset int32, v float32) {
	a := w.addr(id, fieldOffset)
	binary.LittleEndian.PutUint32(w.arena[a:a+4], math.Float32bits(v))
}

// GetVector reads a vector-typed (3-word) field.
func (w *World) GetVector(id, fieldOffset int32) [3]float32 {
	return [3]float32{
		w.GetFloat(id, fieldOffset),
		w.GetFloat(id, fieldOffset+1),
		w.GetFloat(id, fieldOffset+2),
	}
}

// SetVector writes a vector-typed field.
func (w *World) SetVector(id, fieldOffset int32, v [3]float32) {
	w.SetFloat(id, fieldOffset, v[0])
	w.SetFloat(id, fieldOffset+1, v[1])
	w.SetFloat(id, fieldOffset+2, v[2])
}

// GetInt reads an entity/field/function/int-typed (1-word) field.
func (w *World) GetInt(id, fieldOffset int32) int32 {
	a := w.addr(id, fieldOffset)
	return int32(binary.LittleEndian.Uint32(w.arena[a : a+4]))
}

// SetInt writes an entity/field/function/int-typed field.
func (w *World) SetInt(id, fieldOffset int32, v int32) {
	a := w.addr(id, fieldOffset)
	binary.LittleEndian.PutUint32(w.arena[a:a+4], uint32(v))
}

// applyKV parses value according to typ and writes it into id's field
// at off, following the same field-def table the VM uses (spec.md §3,
// "Ownership and lifecycle": "applied field-by-field using the
// field-def table").
func (w *World) applyKV(id, off int32, typ progs.Type, value string) error {
	switch typ {
	case progs.TypeFloat:
		f, err := strconv.ParseFloat(value, 32)
		if err != nil {
			return fmt.Errorf("float: %w", err)
		}
		w.SetFloat(id, off, float32(f))
	case progs.TypeVector:
		parts := strings.Fields(value)
		if len(parts) != 3 {
			return fmt.Errorf("vector: want 3 components, got %d", len(parts))
		}
		var v [3]float32
		for i, p := range parts {
			f, err := strconv.ParseFloat(p, 32)
			if err != nil {
				return fmt.Errorf("vector component %d: %w", i, err)
			}
			v[i] = float32(f)
		}
		w.SetVector(id, off, v)
	case progs.TypeString:
		w.SetInt(id, off, w.img.InternRuntime(value))
	case progs.TypeEntity, progs.TypeField, progs.TypeFunction:
		n, err := strconv.ParseInt(value, 10, 32)
		if err != nil {
			return fmt.Errorf("integer: %w", err)
		}
		w.SetInt(id, off, int32(n))
	default:
		return fmt.Errorf("unsupported field type %v", typ)
	}
	return nil
}
