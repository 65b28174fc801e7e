package progs

import (
	"testing"

	"github.com/cormac-obrien/richter-sub002/strtab"
)

// fakeHost is a minimal Host for VM unit tests: a flat arena sized for
// a handful of entities with a small fixed field layout.
type fakeHost struct {
	addrsPerEntity int32
	arena          []byte
}

func newFakeHost(entities, addrsPerEntity int32) *fakeHost {
	return &fakeHost{addrsPerEntity: addrsPerEntity, arena: make([]byte, entities*addrsPerEntity*4)}
}

func (h *fakeHost) AddrsPerEntity() int32 { return h.addrsPerEntity }
func (h *fakeHost) EntityArena() []byte   { return h.arena }

func newTestImage(globalsWords int32) *Image {
	return &Image{
		Globals:       make([]byte, globalsWords*4),
		Strings:       strtab.New(),
		stringOffsets: map[int32]strtab.ID{},
	}
}

// TestVMArithmetic is spec.md §8 scenario 3: loading globals [3.0, 8.0]
// at addresses 1 and 2, executing MUL_F 1 2 3, globals[3] equals 24.0.
func TestVMArithmetic(t *testing.T) {
	img := newTestImage(4)
	img.Statements = []Statement{
		{Op: OpDone}, // statement 0 is unused: a StatementStart of 0 marks a builtin.
		{Op: OpMulF, A: 1, B: 2, C: 3},
		{Op: OpDone},
	}
	img.Functions = []Function{{StatementStart: 1, Locals: 4}}

	vm := New(img, newFakeHost(1, 4))
	vm.SetFloat(1, 3.0)
	vm.SetFloat(2, 8.0)

	if err := vm.Execute(0); err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if got := vm.GetFloat(3); got != 24.0 {
		t.Fatalf("globals[3] = %v, want 24.0", got)
	}
}

// TestDivisionByZero is the spec.md §8 boundary behavior: division by
// zero yields 0 without a fatal error.
func TestDivisionByZero(t *testing.T) {
	img := newTestImage(4)
	img.Statements = []Statement{
		{Op: OpDone}, // statement 0 is unused: a StatementStart of 0 marks a builtin.
		{Op: OpDiv, A: 1, B: 2, C: 3},
		{Op: OpDone},
	}
	img.Functions = []Function{{StatementStart: 1, Locals: 4}}

	vm := New(img, newFakeHost(1, 4))
	vm.SetFloat(1, 5.0)
	vm.SetFloat(2, 0.0)
	if err := vm.Execute(0); err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if got := vm.GetFloat(3); got != 0 {
		t.Fatalf("5/0 = %v, want 0", got)
	}
}

// TestCallDepthLimit checks that a call chain deeper than maxCallDepth
// (32) fails with ErrStackOverflow (spec.md §8).
func TestCallDepthLimit(t *testing.T) {
	const depth = 40
	img := newTestImage(100 + depth)

	// function i calls function i+1, except the last which just DONEs.
	// Each function's statements: CALL0 <funcGlobal>; DONE.
	// The call target is stored in a dedicated global per function.
	funcs := make([]Function, depth+1)
	stmts := []Statement{{Op: OpDone}} // statement 0 is unused: a StatementStart of 0 marks a builtin.
	for i := 0; i < depth; i++ {
		base := int32(len(stmts))
		// store function id i+1 into a scratch global, then call it.
		stmts = append(stmts,
			Statement{Op: OpStoreFnc, A: uint16(100 + i), B: 6}, // copy constant into call-target global
			Statement{Op: OpCall0, A: 6},
			Statement{Op: OpDone},
		)
		funcs[i] = Function{StatementStart: base, ArgStart: 7, Locals: 1, ArgC: 0}
	}
	funcs[depth] = Function{StatementStart: int32(len(stmts)), ArgStart: 7, Locals: 1, ArgC: 0}
	stmts = append(stmts, Statement{Op: OpDone})
	img.Statements = stmts
	img.Functions = funcs

	vm := New(img, newFakeHost(1, 4))
	// seed each "constant" global 100+i with function id i+1.
	for i := 0; i < depth; i++ {
		vm.SetFunction(100+int32(i), int32(i+1))
	}

	err := vm.Execute(0)
	if err == nil {
		t.Fatalf("expected stack overflow for call depth %d, got nil error", depth)
	}
	vmErr, ok := err.(*Error)
	if !ok || vmErr.Kind != ErrStackOverflow {
		t.Fatalf("got error %v, want ErrStackOverflow", err)
	}
}

func TestStringEquality(t *testing.T) {
	img := newTestImage(8)
	a := img.Strings.Intern("weapon_shotgun")
	img.stringOffsets[0] = a
	b := img.Strings.Intern("weapon_shotgun")
	img.stringOffsets[100] = b

	img.Statements = []Statement{
		{Op: OpDone}, // statement 0 is unused: a StatementStart of 0 marks a builtin.
		{Op: OpEqS, A: 1, B: 2, C: 3},
		{Op: OpDone},
	}
	img.Functions = []Function{{StatementStart: 1, Locals: 4}}

	vm := New(img, newFakeHost(1, 4))
	vm.SetStringID(1, 0)
	vm.SetStringID(2, 100)
	if err := vm.Execute(0); err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if vm.GetFloat(3) != 1 {
		t.Fatal("expected byte-identical strings to compare equal")
	}
}

func TestBuiltinDispatch(t *testing.T) {
	img := newTestImage(32)
	img.Functions = []Function{{StatementStart: -5}} // builtin index 5

	vm := New(img, newFakeHost(1, 4))
	called := false
	vm.RegisterBuiltin(5, func(vm *VM) error {
		called = true
		vm.SetReturnFloat(vm.ParamFloat(0) + 1)
		return nil
	})
	vm.SetFloat(vm.paramAddr(0), 41)
	if err := vm.Execute(0); err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if !called {
		t.Fatal("builtin was not invoked")
	}
	if vm.GetFloat(OfsReturn) != 42 {
		t.Fatalf("return = %v, want 42", vm.GetFloat(OfsReturn))
	}
}
