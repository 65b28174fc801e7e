package vfs

import (
	"encoding/binary"
	"os"
	"path/filepath"
	"testing"

	"github.com/cormac-obrien/richter-sub002/pak"
)

func TestDirTakesPrecedenceOverArchive(t *testing.T) {
	dir := t.TempDir()
	if err := os.MkdirAll(filepath.Join(dir, "maps"), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "maps/start.bsp"), []byte("disk"), 0o644); err != nil {
		t.Fatal(err)
	}

	// A one-entry PAK holding the same path with different contents.
	body := []byte("archive")
	raw := make([]byte, 12+len(body)+64)
	copy(raw, "PACK")
	binary.LittleEndian.PutUint32(raw[4:8], uint32(12+len(body)))
	binary.LittleEndian.PutUint32(raw[8:12], 64)
	copy(raw[12:], body)
	rec := raw[12+len(body):]
	copy(rec, "maps/start.bsp")
	binary.LittleEndian.PutUint32(rec[56:60], 12)
	binary.LittleEndian.PutUint32(rec[60:64], uint32(len(body)))
	a, err := pak.Open(raw)
	if err != nil {
		t.Fatal(err)
	}

	fs := New()
	fs.AddArchive(a)
	fs.AddDir(dir)
	data, err := fs.Open("maps/start.bsp")
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if string(data) != "disk" {
		t.Fatalf("got %q, want %q", data, "disk")
	}
}

func TestCleanNormalizesPath(t *testing.T) {
	cases := map[string]string{
		"/maps/start.bsp":  "maps/start.bsp",
		`maps\start.bsp`:   "maps/start.bsp",
		"maps/../start.bsp": "start.bsp",
	}
	for in, want := range cases {
		if got := Clean(in); got != want {
			t.Errorf("Clean(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestMissingAsset(t *testing.T) {
	fs := New()
	fs.AddDir(t.TempDir())
	if _, err := fs.Open("nope.bsp"); err == nil {
		t.Fatal("expected error for missing asset")
	}
}
