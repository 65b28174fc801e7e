// Copyright © 2013-2015 Galvanized Logic Inc.
// Use is governed by a BSD-style license found in the LICENSE file.

// Package strtab interns bytecode strings with stable integer ids.
//
// The bytecode image ships a single byte arena of NUL-terminated strings
// (spec.md §3, "Bytecode image"). Rather than keep pointers into that
// arena live for the lifetime of the VM, every string the engine hands
// out is interned here once and thereafter referred to by a small
// integer id, the same way the teacher's load package keys loaded
// assets by name instead of re-reading file bytes (see load/src.go).
//
// Package strtab is provided as part of the richter-sub002 core engine.
package strtab

import "fmt"

// ID identifies an interned string. Bytecode StringId values (signed
// byte offsets into the original arena, spec.md §3) stay offsets in VM
// memory; progs.Image.StringID maps each one to its Table ID through
// the offset map built at load time.
type ID int32

// Table interns byte strings, handing back a stable ID for each unique
// value. Repeated insertion of the same bytes returns the same ID
// (spec.md §8, universal invariant 6).
type Table struct {
	strings []string
	byValue map[string]ID
}

// New returns an empty string table. ID 0 is reserved for the empty
// string, matching the bytecode convention that a zero StringId
// addresses the arena's leading NUL.
func New() *Table {
	t := &Table{byValue: map[string]ID{}}
	t.intern("")
	return t
}

// Intern adds s to the table if not already present and returns its ID.
func (t *Table) Intern(s string) ID {
	if id, ok := t.byValue[s]; ok {
		return id
	}
	return t.intern(s)
}

func (t *Table) intern(s string) ID {
	id := ID(len(t.strings))
	t.strings = append(t.strings, s)
	t.byValue[s] = id
	return id
}

// String returns the interned value for id, or an error if id is out
// of range.
func (t *Table) String(id ID) (string, error) {
	if id < 0 || int(id) >= len(t.strings) {
		return "", fmt.Errorf("strtab: id %d out of range", id)
	}
	return t.strings[id], nil
}

// MustString returns the interned value for id, panicking if id is out
// of range. Used only where the caller already validated id (e.g. the
// VM, which only ever holds ids it interned itself).
func (t *Table) MustString(id ID) string {
	s, err := t.String(id)
	if err != nil {
		panic(err)
	}
	return s
}

// Len returns the number of distinct strings interned so far.
func (t *Table) Len() int { return len(t.strings) }

// Find returns the ID of s if it has already been interned.
func (t *Table) Find(s string) (ID, bool) {
	id, ok := t.byValue[s]
	return id, ok
}
