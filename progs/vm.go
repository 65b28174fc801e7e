// Copyright © 2013-2015 Galvanized Logic Inc.
// Use is governed by a BSD-style license found in the LICENSE file.

package progs

import (
	"math"
)

// Reserved global word offsets for the builtin call convention
// (spec.md §4.1, "Memory model"). Addresses 0..27 are reserved: slot 0
// is unused (OP_DONE reads it harmlessly), 1..3 hold the return value
// (vector-wide), and 4..27 hold eight 3-word-wide parameter slots.
const (
	OfsNull   int32 = 0
	OfsReturn int32 = 1
	OfsParm0  int32 = 4
	parmWidth int32 = 3
	maxArgs         = 8
	maxCallDepth    = 32

	// defaultStatementBudget caps statements executed per top-level
	// Execute call, guarding against runaway bytecode loops
	// (spec.md §4.1, Execution protocol, step 5).
	defaultStatementBudget = 10_000_000
)

// Host provides the engine-owned resources the VM needs but does not
// itself manage: the per-entity field arena and its stride. The world
// package implements Host (spec.md §3, "VM-visible field addresses").
type Host interface {
	// AddrsPerEntity is the word stride of one entity's field layout,
	// used in the addr = (entity_id*addrs_per_entity + field_addr) * 4
	// formula.
	AddrsPerEntity() int32

	// EntityArena returns the flat byte arena backing every entity's
	// field storage, indexed directly by the byte addresses produced
	// by that formula.
	EntityArena() []byte
}

// BuiltinFunc implements one engine builtin (spec.md §4.1, "Builtins").
// It reads arguments via the VM's Param* accessors and, if it produces
// a value, writes it with SetReturn*.
type BuiltinFunc func(vm *VM) error

type frame struct {
	funcID      int32
	returnPC    int
	savedLocals []byte
	localsStart int32
}

// VM executes one bytecode Image against a Host's entity memory.
type VM struct {
	img  *Image
	host Host

	globals  []byte
	builtins map[int32]BuiltinFunc

	stack   []frame
	self    int32 // cached offset of the "self" global, or -1
	other   int32
	world   int32
	time    int32
	frametm int32
}

// New creates a VM over img. The VM owns a private mutable copy of the
// image's initial globals; img itself is never modified.
func New(img *Image, host Host) *VM {
	vm := &VM{
		img:      img,
		host:     host,
		globals:  append([]byte(nil), img.Globals...),
		builtins: map[int32]BuiltinFunc{},
	}
	vm.self = vm.namedGlobal("self")
	vm.other = vm.namedGlobal("other")
	vm.world = vm.namedGlobal("world")
	vm.time = vm.namedGlobal("time")
	vm.frametm = vm.namedGlobal("frametime")
	return vm
}

// RegisterBuiltin installs the engine implementation for builtin index.
func (vm *VM) RegisterBuiltin(index int32, fn BuiltinFunc) { vm.builtins[index] = fn }

// namedGlobal resolves a global's word offset by name via the
// GlobalDefs table, returning -1 if not found. Self/other/world/time
// are resolved this way rather than at a hardcoded address: see
// DESIGN.md's resolution of the reserved-globals open question.
func (vm *VM) namedGlobal(name string) int32 {
	id, ok := vm.img.Strings.Find(name)
	if !ok {
		return -1
	}
	for _, def := range vm.img.GlobalDefs {
		if def.NameID == int32(id) {
			return int32(def.Offset)
		}
	}
	return -1
}

// SetTime updates the VM-visible time/frametime globals ahead of a
// dispatch, mirroring the engine's per-tick responsibility to keep
// these synced (spec.md §4.1).
func (vm *VM) SetTime(time, frametime float32) {
	if vm.time >= 0 {
		vm.SetFloat(vm.time, time)
	}
	if vm.frametm >= 0 {
		vm.SetFloat(vm.frametm, frametime)
	}
}

// SetGlobalEntity sets a named reserved global (self/other/world) to
// an entity id. Used by the caller before dispatching think/touch
// functions.
func (vm *VM) SetGlobalEntity(name string, entityID int32) {
	addr := vm.namedGlobal(name)
	if addr >= 0 {
		vm.SetEntity(addr, entityID)
	}
}

// Self, Other, World return the current values of those reserved
// globals.
func (vm *VM) Self() int32  { return vm.entityAt(vm.self) }
func (vm *VM) Other() int32 { return vm.entityAt(vm.other) }
func (vm *VM) World() int32 { return vm.entityAt(vm.world) }

func (vm *VM) entityAt(addr int32) int32 {
	if addr < 0 {
		return 0
	}
	return vm.GetEntity(addr)
}

// ===========================================================================
// Global accessors. Globals are addressed in 4-byte slots (spec.md §4.1).

func (vm *VM) wordOffset(addr int32) int { return int(addr) * 4 }

func (vm *VM) GetFloat(addr int32) float32 {
	o := vm.wordOffset(addr)
	if o < 0 || o+4 > len(vm.globals) {
		return 0
	}
	return math.Float32frombits(leUint32(vm.globals[o:]))
}

func (vm *VM) SetFloat(addr int32, v float32) {
	o := vm.wordOffset(addr)
	if o < 0 || o+4 > len(vm.globals) {
		return
	}
	lePutUint32(vm.globals[o:], math.Float32bits(v))
}

func (vm *VM) GetInt(addr int32) int32 {
	o := vm.wordOffset(addr)
	if o < 0 || o+4 > len(vm.globals) {
		return 0
	}
	return int32(leUint32(vm.globals[o:]))
}

func (vm *VM) SetInt(addr int32, v int32) {
	o := vm.wordOffset(addr)
	if o < 0 || o+4 > len(vm.globals) {
		return
	}
	lePutUint32(vm.globals[o:], uint32(v))
}

func (vm *VM) GetEntity(addr int32) int32   { return vm.GetInt(addr) }
func (vm *VM) SetEntity(addr int32, v int32) { vm.SetInt(addr, v) }
func (vm *VM) GetField(addr int32) int32    { return vm.GetInt(addr) }
func (vm *VM) SetField(addr int32, v int32)  { vm.SetInt(addr, v) }
func (vm *VM) GetFunction(addr int32) int32 { return vm.GetInt(addr) }
func (vm *VM) SetFunction(addr int32, v int32) { vm.SetInt(addr, v) }

// GetStringID returns the raw bytecode StringId stored at addr.
func (vm *VM) GetStringID(addr int32) int32 { return vm.GetInt(addr) }
func (vm *VM) SetStringID(addr int32, id int32) { vm.SetInt(addr, id) }

// GetString resolves the string stored at addr through the image's
// string table.
func (vm *VM) GetString(addr int32) string {
	id, err := vm.img.StringID(vm.GetStringID(addr))
	if err != nil {
		return ""
	}
	s, _ := vm.img.Strings.String(id)
	return s
}

type Vec3 struct{ X, Y, Z float32 }

func (vm *VM) GetVector(addr int32) Vec3 {
	return Vec3{vm.GetFloat(addr), vm.GetFloat(addr + 1), vm.GetFloat(addr + 2)}
}

func (vm *VM) SetVector(addr int32, v Vec3) {
	vm.SetFloat(addr, v.X)
	vm.SetFloat(addr+1, v.Y)
	vm.SetFloat(addr+2, v.Z)
}

// ===========================================================================
// Parameter/return accessors for builtins (spec.md §4.1, "Parameter passing").

func (vm *VM) paramAddr(i int) int32 { return OfsParm0 + int32(i)*parmWidth }

func (vm *VM) ParamFloat(i int) float32   { return vm.GetFloat(vm.paramAddr(i)) }
func (vm *VM) ParamVector(i int) Vec3     { return vm.GetVector(vm.paramAddr(i)) }
func (vm *VM) ParamEntity(i int) int32    { return vm.GetEntity(vm.paramAddr(i)) }
func (vm *VM) ParamString(i int) string   { return vm.GetString(vm.paramAddr(i)) }
func (vm *VM) ParamFunction(i int) int32  { return vm.GetFunction(vm.paramAddr(i)) }

func (vm *VM) SetReturnFloat(v float32)  { vm.SetFloat(OfsReturn, v) }
func (vm *VM) SetReturnVector(v Vec3)    { vm.SetVector(OfsReturn, v) }
func (vm *VM) SetReturnEntity(v int32)   { vm.SetEntity(OfsReturn, v) }
func (vm *VM) SetReturnString(id int32)  { vm.SetStringID(OfsReturn, id) }

// Intern is a convenience wrapper so builtins can produce new runtime
// strings (e.g. vtos) without reaching into the image directly.
func (vm *VM) Intern(s string) int32 {
	return vm.img.InternRuntime(s)
}

// ===========================================================================
// Entity field access, routed through Host per spec.md §3's addressing
// formula.

func (vm *VM) fieldByteAddr(entityID, fieldOff int32) int32 {
	return (entityID*vm.host.AddrsPerEntity() + fieldOff) * 4
}

func (vm *VM) entityBytes(entityID, fieldOff, width int32) []byte {
	arena := vm.host.EntityArena()
	start := vm.fieldByteAddr(entityID, fieldOff)
	end := start + width*4
	if start < 0 || int(end) > len(arena) {
		return nil
	}
	return arena[start:end]
}

// ===========================================================================
// Execution.

// Execute runs function funcID to completion (a RETURN/DONE at depth
// zero) and returns any fatal VM error.
func (vm *VM) Execute(funcID int32) error {
	if funcID < 0 || int(funcID) >= len(vm.img.Functions) {
		return vmErr(ErrNoSuchFunction, 0, "function id %d", funcID)
	}
	fn := &vm.img.Functions[funcID]
	if fn.IsBuiltin() {
		return vm.callBuiltin(fn, 0)
	}

	vm.stack = vm.stack[:0]
	pc := int(fn.StatementStart)
	budget := defaultStatementBudget

	for {
		if budget--; budget <= 0 {
			return vmErr(ErrRunawayLoop, pc, "exceeded statement budget")
		}
		if pc < 0 || pc >= len(vm.img.Statements) {
			return vmErr(ErrBadAddress, pc, "statement index out of range")
		}
		st := vm.img.Statements[pc]

		switch st.Op {
		case OpDone:
			if err := vm.ret(); err != nil {
				return err
			}
			if len(vm.stack) == 0 {
				return nil
			}
			pc = vm.popFrame()
			continue

		case OpReturn:
			vm.copyWords(int32(st.A), OfsReturn, parmWidth)
			if len(vm.stack) == 0 {
				return nil
			}
			pc = vm.popFrame()
			continue

		case OpMulF:
			vm.SetFloat(int32(st.C), vm.GetFloat(int32(st.A))*vm.GetFloat(int32(st.B)))
		case OpMulV:
			a, b := vm.GetVector(int32(st.A)), vm.GetVector(int32(st.B))
			vm.SetFloat(int32(st.C), a.X*b.X+a.Y*b.Y+a.Z*b.Z)
		case OpMulFV:
			f, v := vm.GetFloat(int32(st.A)), vm.GetVector(int32(st.B))
			vm.SetVector(int32(st.C), Vec3{f * v.X, f * v.Y, f * v.Z})
		case OpMulVF:
			v, f := vm.GetVector(int32(st.A)), vm.GetFloat(int32(st.B))
			vm.SetVector(int32(st.C), Vec3{v.X * f, v.Y * f, v.Z * f})
		case OpDiv:
			a, b := vm.GetFloat(int32(st.A)), vm.GetFloat(int32(st.B))
			if b == 0 {
				vm.SetFloat(int32(st.C), 0) // spec.md §4.1: division by zero yields 0, not a trap.
			} else {
				vm.SetFloat(int32(st.C), a/b)
			}
		case OpAddF:
			vm.SetFloat(int32(st.C), vm.GetFloat(int32(st.A))+vm.GetFloat(int32(st.B)))
		case OpAddV:
			a, b := vm.GetVector(int32(st.A)), vm.GetVector(int32(st.B))
			vm.SetVector(int32(st.C), Vec3{a.X + b.X, a.Y + b.Y, a.Z + b.Z})
		case OpSubF:
			vm.SetFloat(int32(st.C), vm.GetFloat(int32(st.A))-vm.GetFloat(int32(st.B)))
		case OpSubV:
			a, b := vm.GetVector(int32(st.A)), vm.GetVector(int32(st.B))
			vm.SetVector(int32(st.C), Vec3{a.X - b.X, a.Y - b.Y, a.Z - b.Z})

		case OpEqF:
			vm.setBool(int32(st.C), vm.GetFloat(int32(st.A)) == vm.GetFloat(int32(st.B)))
		case OpEqV:
			vm.setBool(int32(st.C), vm.GetVector(int32(st.A)) == vm.GetVector(int32(st.B)))
		case OpEqS:
			vm.setBool(int32(st.C), vm.GetString(int32(st.A)) == vm.GetString(int32(st.B)))
		case OpEqE:
			vm.setBool(int32(st.C), vm.GetEntity(int32(st.A)) == vm.GetEntity(int32(st.B)))
		case OpEqFnc:
			vm.setBool(int32(st.C), vm.GetFunction(int32(st.A)) == vm.GetFunction(int32(st.B)))
		case OpNeF:
			vm.setBool(int32(st.C), vm.GetFloat(int32(st.A)) != vm.GetFloat(int32(st.B)))
		case OpNeV:
			vm.setBool(int32(st.C), vm.GetVector(int32(st.A)) != vm.GetVector(int32(st.B)))
		case OpNeS:
			vm.setBool(int32(st.C), vm.GetString(int32(st.A)) != vm.GetString(int32(st.B)))
		case OpNeE:
			vm.setBool(int32(st.C), vm.GetEntity(int32(st.A)) != vm.GetEntity(int32(st.B)))
		case OpNeFnc:
			vm.setBool(int32(st.C), vm.GetFunction(int32(st.A)) != vm.GetFunction(int32(st.B)))

		case OpLe:
			vm.setBool(int32(st.C), vm.GetFloat(int32(st.A)) <= vm.GetFloat(int32(st.B)))
		case OpGe:
			vm.setBool(int32(st.C), vm.GetFloat(int32(st.A)) >= vm.GetFloat(int32(st.B)))
		case OpLt:
			vm.setBool(int32(st.C), vm.GetFloat(int32(st.A)) < vm.GetFloat(int32(st.B)))
		case OpGt:
			vm.setBool(int32(st.C), vm.GetFloat(int32(st.A)) > vm.GetFloat(int32(st.B)))

		case OpAnd:
			vm.setBool(int32(st.C), vm.GetFloat(int32(st.A)) != 0 && vm.GetFloat(int32(st.B)) != 0)
		case OpOr:
			vm.setBool(int32(st.C), vm.GetFloat(int32(st.A)) != 0 || vm.GetFloat(int32(st.B)) != 0)
		case OpBitAnd:
			vm.SetFloat(int32(st.C), float32(int32(vm.GetFloat(int32(st.A)))&int32(vm.GetFloat(int32(st.B)))))
		case OpBitOr:
			vm.SetFloat(int32(st.C), float32(int32(vm.GetFloat(int32(st.A)))|int32(vm.GetFloat(int32(st.B)))))

		case OpNotF:
			vm.setBool(int32(st.C), vm.GetFloat(int32(st.A)) == 0)
		case OpNotV:
			v := vm.GetVector(int32(st.A))
			vm.setBool(int32(st.C), v == Vec3{})
		case OpNotS:
			vm.setBool(int32(st.C), vm.GetString(int32(st.A)) == "")
		case OpNotEnt:
			vm.setBool(int32(st.C), vm.GetEntity(int32(st.A)) == 0)
		case OpNotFnc:
			vm.setBool(int32(st.C), vm.GetFunction(int32(st.A)) == 0)

		case OpStoreF, OpStoreEnt, OpStoreFld, OpStoreFnc, OpStoreS:
			vm.copyWords(int32(st.A), int32(st.B), 1)
		case OpStoreV:
			vm.copyWords(int32(st.A), int32(st.B), 3)

		case OpAddress:
			entityID := vm.GetEntity(int32(st.A))
			fieldOff := vm.GetField(int32(st.B))
			vm.SetInt(int32(st.C), vm.fieldByteAddr(entityID, fieldOff))

		case OpLoadF, OpLoadS, OpLoadEnt, OpLoadFld, OpLoadFnc:
			entityID := vm.GetEntity(int32(st.A))
			fieldOff := vm.GetField(int32(st.B))
			b := vm.entityBytes(entityID, fieldOff, 1)
			if b == nil {
				return vmErr(ErrBadAddress, pc, "entity %d field %d out of range", entityID, fieldOff)
			}
			lePutUint32(vm.globalWord(int32(st.C)), leUint32(b))
		case OpLoadV:
			entityID := vm.GetEntity(int32(st.A))
			fieldOff := vm.GetField(int32(st.B))
			b := vm.entityBytes(entityID, fieldOff, 3)
			if b == nil {
				return vmErr(ErrBadAddress, pc, "entity %d field %d out of range", entityID, fieldOff)
			}
			for i := 0; i < 3; i++ {
				lePutUint32(vm.globalWord(int32(st.C)+int32(i)), leUint32(b[i*4:]))
			}

		case OpStorePF, OpStorePS, OpStorePEnt, OpStorePFld, OpStorePFnc:
			if err := vm.storeIndirect(int32(st.A), int32(st.B), 1, pc); err != nil {
				return err
			}
		case OpStorePV:
			if err := vm.storeIndirect(int32(st.A), int32(st.B), 3, pc); err != nil {
				return err
			}

		case OpIf:
			if vm.GetFloat(int32(st.A)) != 0 {
				pc += int(int16(st.B))
				continue
			}
		case OpIfNot:
			if vm.GetFloat(int32(st.A)) == 0 {
				pc += int(int16(st.B))
				continue
			}
		case OpGoto:
			pc += int(int16(st.A))
			continue

		case OpState:
			self := vm.Self()
			frame := vm.GetFloat(int32(st.A))
			think := vm.GetFunction(int32(st.B))
			if !vm.setStandardField(self, "frame", frame) {
				return vmErr(ErrNoSuchField, pc, "entity has no 'frame' field")
			}
			if !vm.setStandardField(self, "nextthink", vm.GetFloat(vm.time)+0.1) {
				return vmErr(ErrNoSuchField, pc, "entity has no 'nextthink' field")
			}
			if !vm.setStandardFieldInt(self, "think", think) {
				return vmErr(ErrNoSuchField, pc, "entity has no 'think' field")
			}

		default:
			if argc, ok := st.Op.IsCall(); ok {
				next, err := vm.call(int32(st.A), argc, pc)
				if err != nil {
					return err
				}
				pc = next
				continue
			}
			return vmErr(ErrBadOpcode, pc, "opcode %d", st.Op)
		}
		pc++
	}
}

func (vm *VM) ret() error { return nil }

// setBool stores a QuakeC boolean (a float, 1 or 0) at addr.
func (vm *VM) setBool(addr int32, b bool) {
	if b {
		vm.SetFloat(addr, 1)
	} else {
		vm.SetFloat(addr, 0)
	}
}

func (vm *VM) globalWord(addr int32) []byte {
	o := vm.wordOffset(addr)
	if o < 0 || o+4 > len(vm.globals) {
		// Grow defensively; a well-formed image never needs this.
		grown := make([]byte, o+4)
		copy(grown, vm.globals)
		vm.globals = grown
	}
	return vm.globals[o : o+4]
}

func (vm *VM) copyWords(src, dst int32, words int32) {
	for i := int32(0); i < words; i++ {
		lePutUint32(vm.globalWord(dst+i), leUint32(vm.globalWord(src+i)))
	}
}

func (vm *VM) storeIndirect(srcAddr, ptrAddr int32, width int32, pc int) error {
	ptr := vm.GetInt(ptrAddr)
	arena := vm.host.EntityArena()
	end := ptr + width*4
	if ptr < 0 || int(end) > len(arena) {
		return vmErr(ErrBadAddress, pc, "pointer %d out of range", ptr)
	}
	for i := int32(0); i < width; i++ {
		lePutUint32(arena[ptr+i*4:], leUint32(vm.globalWord(srcAddr+i)))
	}
	return nil
}

// setStandardField/setStandardFieldInt resolve a field by name via
// FieldDefs and write it into entity memory. These back the STATE
// opcode's standardized frame/nextthink/think writes (spec.md §4.1).
func (vm *VM) setStandardField(entityID int32, name string, v float32) bool {
	off, ok := vm.fieldOffset(name)
	if !ok {
		return false
	}
	b := vm.entityBytes(entityID, off, 1)
	if b == nil {
		return false
	}
	lePutUint32(b, math.Float32bits(v))
	return true
}

func (vm *VM) setStandardFieldInt(entityID int32, name string, v int32) bool {
	off, ok := vm.fieldOffset(name)
	if !ok {
		return false
	}
	b := vm.entityBytes(entityID, off, 1)
	if b == nil {
		return false
	}
	lePutUint32(b, uint32(v))
	return true
}

func (vm *VM) fieldOffset(name string) (int32, bool) {
	id, ok := vm.img.Strings.Find(name)
	if !ok {
		return 0, false
	}
	for _, def := range vm.img.FieldDefs {
		if def.NameID == int32(id) {
			return int32(def.Offset), true
		}
	}
	return 0, false
}

// call handles CALL0..CALL8 (spec.md §4.1, Execution protocol).
func (vm *VM) call(funcAddr int32, argc int, returnPC int) (nextPC int, err error) {
	fid := vm.GetFunction(funcAddr)
	if fid < 0 || int(fid) >= len(vm.img.Functions) {
		return 0, vmErr(ErrNoSuchFunction, returnPC, "function id %d", fid)
	}
	fn := &vm.img.Functions[fid]

	if fn.IsBuiltin() {
		if err := vm.callBuiltin(fn, returnPC); err != nil {
			return 0, err
		}
		return returnPC + 1, nil
	}

	if int(fn.ArgC) != argc {
		return 0, vmErr(ErrBadArgCount, returnPC, "function %d wants %d args, call passed %d", fid, fn.ArgC, argc)
	}
	if len(vm.stack)+1 > maxCallDepth {
		return 0, vmErr(ErrStackOverflow, returnPC, "call depth exceeds %d", maxCallDepth)
	}

	localsStart := fn.ArgStart
	localWords := fn.Locals
	saved := append([]byte(nil), vm.globals[vm.wordOffset(localsStart):vm.wordOffset(localsStart)+int(localWords)*4]...)
	vm.stack = append(vm.stack, frame{
		funcID:      fid,
		returnPC:    returnPC + 1,
		savedLocals: saved,
		localsStart: localsStart,
	})

	// Copy actual parameters from the OFS_PARM slots into the callee's
	// locals, sized per the callee's declared per-argument word count
	// (spec.md §4.1: "copy actual args (per per-arg byte sizes)").
	dst := localsStart
	for i := 0; i < int(fn.ArgC) && i < maxArgs; i++ {
		width := int32(1)
		if fn.ArgSizes[i] == 3 {
			width = 3
		}
		vm.copyWords(vm.paramAddr(i), dst, width)
		dst += width
	}

	return int(fn.StatementStart), nil
}

// callBuiltin dispatches a builtin by its engine-registered function.
func (vm *VM) callBuiltin(fn *Function, pc int) error {
	idx := fn.BuiltinIndex()
	impl, ok := vm.builtins[idx]
	if !ok {
		return vmErr(ErrNoSuchFunction, pc, "unregistered builtin %d", idx)
	}
	return impl(vm)
}

// popFrame restores the caller's locals and returns its resume pc.
func (vm *VM) popFrame() int {
	top := vm.stack[len(vm.stack)-1]
	vm.stack = vm.stack[:len(vm.stack)-1]
	copy(vm.globals[vm.wordOffset(top.localsStart):], top.savedLocals)
	return top.returnPC
}

func leUint32(b []byte) uint32 {
	return uint32(b[0]) | uint32(b[1])<<8 | uint32(b[2])<<16 | uint32(b[3])<<24
}

func lePutUint32(b []byte, v uint32) {
	b[0] = byte(v)
	b[1] = byte(v >> 8)
	b[2] = byte(v >> 16)
	b[3] = byte(v >> 24)
}
