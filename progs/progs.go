// Copyright © 2013-2015 Galvanized Logic Inc.
// Use is governed by a BSD-style license found in the LICENSE file.

// Package progs loads and executes the compiled QuakeC bytecode image
// (spec.md §4.1, §6 "Bytecode file"). The loader follows the teacher's
// load package convention of decoding a flat lump-header binary format
// into in-memory slices (see load/iqm.go), generalized here to the six
// bytecode lumps instead of a mesh/animation payload.
package progs

import (
	"encoding/binary"
	"fmt"

	"github.com/cormac-obrien/richter-sub002/strtab"
)

// Version and CRC the bytecode file header must carry (spec.md §6).
const (
	Version  = 6
	ChecksumRequired = 5927
)

const lumpCount = 6

// Lump indices within the bytecode header.
const (
	lumpStatements = iota
	lumpGlobalDefs
	lumpFieldDefs
	lumpFunctions
	lumpStrings
	lumpGlobals
)

// Type is a bytecode value type (spec.md §3).
type Type uint16

const (
	TypeVoid Type = iota
	TypeString
	TypeFloat
	TypeVector
	TypeEntity
	TypeField
	TypeFunction
	TypePointer
)

func (t Type) String() string {
	switch t {
	case TypeVoid:
		return "void"
	case TypeString:
		return "string"
	case TypeFloat:
		return "float"
	case TypeVector:
		return "vector"
	case TypeEntity:
		return "entity"
	case TypeField:
		return "field"
	case TypeFunction:
		return "function"
	case TypePointer:
		return "pointer"
	default:
		return fmt.Sprintf("type(%d)", uint16(t))
	}
}

const saveFlag = uint16(1) << 15

// Def describes a single global or field definition.
type Def struct {
	Save   bool
	Type   Type
	Offset uint16
	NameID int32
}

// Function describes a callable bytecode function. A negative or
// zero-or-less StatementStart indicates a builtin: its magnitude is the
// builtin index (spec.md §4.1, Execution protocol, step 1).
type Function struct {
	StatementStart int32
	ArgStart       int32
	Locals         int32
	NameID         int32
	SrcFileID      int32
	ArgC           int32
	ArgSizes       [8]byte
}

// IsBuiltin reports whether this function dispatches to an engine
// builtin rather than bytecode statements.
func (f *Function) IsBuiltin() bool { return f.StatementStart <= 0 }

// BuiltinIndex returns the builtin table index for a builtin function.
// Only valid when IsBuiltin() is true.
func (f *Function) BuiltinIndex() int32 { return -f.StatementStart }

// Statement is a single decoded bytecode instruction (spec.md §6).
type Statement struct {
	Op   Opcode
	A, B, C uint16
}

// Image is the fully decoded bytecode program: statements, defs,
// functions, interned strings, and the initial globals image.
type Image struct {
	Statements []Statement
	GlobalDefs []Def
	FieldDefs  []Def
	Functions  []Function
	Strings    *strtab.Table

	// FieldCount is the number of entity field defs (also present as
	// len(FieldDefs), kept for parity with the on-disk header field).
	FieldCount int32

	// Globals is the packed byte arena for the VM's global pool,
	// addressed in 4-byte slots (spec.md §4.1, Memory model).
	Globals []byte

	// stringOffsets maps a bytecode StringId (signed byte offset into
	// the original arena) to the strtab.ID produced at load time.
	stringOffsets map[int32]strtab.ID
}

// NewImage returns an empty Image ready to have its fields populated
// directly, for callers (tests, and the world package's entity-string
// field application) that build or extend an image without going
// through Load.
func NewImage() *Image {
	return &Image{
		Strings:       strtab.New(),
		stringOffsets: map[int32]strtab.ID{},
	}
}

type lump struct {
	offset int32
	count  int32
}

// Load decodes a bytecode image from raw file bytes.
func Load(data []byte) (*Image, error) {
	r := &reader{data: data}

	version := r.i32()
	crc := r.i32()
	if r.err != nil {
		return nil, fmt.Errorf("progs: %w", r.err)
	}
	if version != Version {
		return nil, fmt.Errorf("progs: bad version %d, want %d", version, Version)
	}
	if crc != ChecksumRequired {
		return nil, fmt.Errorf("progs: bad checksum %d, want %d", crc, ChecksumRequired)
	}

	var lumps [lumpCount]lump
	for i := range lumps {
		lumps[i] = lump{offset: r.i32(), count: r.i32()}
	}
	fieldCount := r.i32()
	if r.err != nil {
		return nil, fmt.Errorf("progs: %w", r.err)
	}

	img := &Image{FieldCount: fieldCount, stringOffsets: map[int32]strtab.ID{}}

	if err := r.seekErr(lumps[lumpStatements].offset); err != nil {
		return nil, err
	}
	img.Statements = make([]Statement, lumps[lumpStatements].count)
	for i := range img.Statements {
		img.Statements[i] = Statement{
			Op: Opcode(r.u16()),
			A:  r.u16(),
			B:  r.u16(),
			C:  r.u16(),
		}
	}

	readDefs := func(l lump) ([]Def, error) {
		if err := r.seekErr(l.offset); err != nil {
			return nil, err
		}
		defs := make([]Def, l.count)
		for i := range defs {
			raw := r.u16()
			defs[i] = Def{
				Save:   raw&saveFlag != 0,
				Type:   Type(raw &^ saveFlag),
				Offset: r.u16(),
				NameID: r.i32(),
			}
		}
		return defs, r.err
	}
	var err error
	if img.GlobalDefs, err = readDefs(lumps[lumpGlobalDefs]); err != nil {
		return nil, fmt.Errorf("progs: globaldefs: %w", err)
	}
	if img.FieldDefs, err = readDefs(lumps[lumpFieldDefs]); err != nil {
		return nil, fmt.Errorf("progs: fielddefs: %w", err)
	}

	if err := r.seekErr(lumps[lumpFunctions].offset); err != nil {
		return nil, err
	}
	img.Functions = make([]Function, lumps[lumpFunctions].count)
	for i := range img.Functions {
		fn := Function{
			StatementStart: r.i32(),
			ArgStart:       r.i32(),
			Locals:         r.i32(),
			NameID:         r.i32(),
			SrcFileID:      r.i32(),
			ArgC:           r.i32(),
		}
		for j := range fn.ArgSizes {
			fn.ArgSizes[j] = r.u8()
		}
		img.Functions[i] = fn
	}

	// Strings is a byte arena; every distinct NUL-terminated run
	// encountered while loading is interned so later lookups by
	// StringId (a byte offset) resolve through the string table
	// (spec.md §8, universal invariant 6).
	if err := r.seekErr(lumps[lumpStrings].offset); err != nil {
		return nil, err
	}
	arena := r.bytes(int(lumps[lumpStrings].count))
	if r.err != nil {
		return nil, fmt.Errorf("progs: strings: %w", r.err)
	}
	img.Strings = strtab.New()
	i := 0
	for i < len(arena) {
		start := i
		for i < len(arena) && arena[i] != 0 {
			i++
		}
		s := string(arena[start:i])
		img.stringOffsets[int32(start)] = img.Strings.Intern(s)
		i++ // skip NUL
	}

	if err := r.seekErr(lumps[lumpGlobals].offset); err != nil {
		return nil, err
	}
	img.Globals = append([]byte(nil), r.bytes(int(lumps[lumpGlobals].count)*4)...)
	if r.err != nil {
		return nil, fmt.Errorf("progs: globals: %w", err)
	}

	if err := img.validate(); err != nil {
		return nil, err
	}
	return img, nil
}

// StringID resolves a bytecode StringId (a signed byte offset into the
// original string arena) to a strtab.ID. Only offsets recorded at load
// time (the start of each NUL-terminated run) and offsets minted by
// InternRuntime resolve; any other offset, including one that points
// into the middle of a string, is an error.
func (img *Image) StringID(off int32) (strtab.ID, error) {
	if id, ok := img.stringOffsets[off]; ok {
		return id, nil
	}
	return 0, fmt.Errorf("progs: no interned string at offset %d", off)
}

// InternRuntime interns s (if not already present) and returns a
// StringId usable anywhere a bytecode string constant would be. Runtime
// strings have no position in the original arena, so they're minted a
// synthetic negative offset that can never collide with a real one
// (spec.md §3, "Bytecode image": "a StringId is a signed offset").
// Both the VM (for builtins like vtos) and the world package (for
// entity-string key/value field application) share this path so there
// is exactly one string-interning entry point per image.
func (img *Image) InternRuntime(s string) int32 {
	id := img.Strings.Intern(s)
	off := int32(-1) - int32(id)
	img.stringOffsets[off] = id
	return off
}

// validate performs the minimum bytecode sanity pass named as an open
// question in spec.md §9: every statement's operands must be in range
// for their opcode's addressing mode. It does not attempt full type
// checking (left to be discovered dynamically, matching the original
// engine's behavior of only failing at the point of use).
func (img *Image) validate() error {
	numGlobals := int32(len(img.Globals) / 4)
	for i, st := range img.Statements {
		if !st.Op.Valid() {
			return fmt.Errorf("progs: statement %d: bad opcode %d", i, st.Op)
		}
		for _, operand := range st.Op.GlobalOperands(st) {
			if operand < 0 || operand >= numGlobals {
				return fmt.Errorf("progs: statement %d: operand %d out of range", i, operand)
			}
		}
	}
	for i, fn := range img.Functions {
		if fn.IsBuiltin() {
			continue
		}
		if fn.StatementStart < 0 || int(fn.StatementStart) >= len(img.Statements) {
			return fmt.Errorf("progs: function %d: statement start %d out of range", i, fn.StatementStart)
		}
	}
	return nil
}

// reader is a small little-endian cursor over the bytecode file bytes,
// grounded on the teacher's load package decode-as-you-go style
// (see load/iqm.go) rather than a generic encoding/binary.Read over a
// struct, since the lump layout mixes fixed headers with variable runs.
type reader struct {
	data []byte
	pos  int
	err  error
}

func (r *reader) need(n int) bool {
	if r.err != nil {
		return false
	}
	if r.pos+n > len(r.data) {
		r.err = fmt.Errorf("unexpected end of file at offset %d", r.pos)
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

func (r *reader) bytes(n int) []byte {
	if !r.need(n) {
		return nil
	}
	b := r.data[r.pos : r.pos+n]
	r.pos += n
	return b
}

func (r *reader) seekErr(offset int32) error {
	if offset < 0 || int(offset) > len(r.data) {
		return fmt.Errorf("progs: seek offset %d out of range", offset)
	}
	r.pos = int(offset)
	return nil
}
