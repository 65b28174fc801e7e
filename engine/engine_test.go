// Copyright © 2024 Galvanized Logic Inc.

package engine

import (
	"testing"

	"github.com/cormac-obrien/richter-sub002/progs"
	"github.com/cormac-obrien/richter-sub002/strtab"
)

func testImage(t *testing.T, fnName string) *progs.Image {
	t.Helper()
	strings := strtab.New()
	id := strings.Intern(fnName)
	return &progs.Image{
		Strings: strings,
		Functions: []progs.Function{
			{NameID: int32(id), StatementStart: 1},
		},
	}
}

func TestFindFunctionLocatesByName(t *testing.T) {
	img := testImage(t, "StartFrame")
	eng := &Engine{img: img}

	idx, ok := eng.findFunction("StartFrame")
	if !ok {
		t.Fatal("expected StartFrame to be found")
	}
	if idx != 0 {
		t.Errorf("index = %d, want 0", idx)
	}

	if _, ok := eng.findFunction("PlayerPostThink"); ok {
		t.Error("expected PlayerPostThink to be absent from this fixture")
	}
}

func TestErrorKindString(t *testing.T) {
	cases := map[ErrorKind]string{
		ErrIO:      "io",
		ErrAsset:   "asset",
		ErrVM:      "vm",
		ErrNetwork: "network",
		ErrClient:  "client",
		ErrAudio:   "audio",
	}
	for k, want := range cases {
		if got := k.String(); got != want {
			t.Errorf("%d.String() = %q, want %q", k, got, want)
		}
	}
}

func TestEngineErrorFormatting(t *testing.T) {
	err := newErr("vm", ErrVM, "bad statement at %d", 42)
	want := "vm: vm: bad statement at 42"
	if err.Error() != want {
		t.Errorf("Error() = %q, want %q", err.Error(), want)
	}
}
