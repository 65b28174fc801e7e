// Copyright © 2013-2015 Galvanized Logic Inc.
// Use is governed by a BSD-style license found in the LICENSE file.

package audio

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/cormac-obrien/richter-sub002/math/lin"
	"github.com/cormac-obrien/richter-sub002/vfs"
)

func TestNoAudioBindAndPlay(t *testing.T) {
	a := New()
	if err := a.Init(); err != nil {
		t.Fatalf("Init: %v", err)
	}
	defer a.Dispose()

	d := &Data{}
	d.Set(1, 16, 11025, 4, []byte{0, 1, 2, 3})
	snd, buf := uint64(0), uint64(0)
	if err := a.BindSound(&snd, &buf, d); err != nil {
		t.Fatalf("BindSound: %v", err)
	}
	a.PlaceListener([3]float64{}, [3]float64{1, 0, 0})
	a.PlaySound(snd, [3]float64{}, 1, 0)
	a.StopSound(snd)
	a.ReleaseSound(buf)
}

func TestMixerGlobalChannelEviction(t *testing.T) {
	m := NewMixer(nil)
	listener := lin.V3{}
	m.SetListener(listener, lin.V3{X: 1})

	// Fill all 8 global channels with looping, high-priority sounds.
	for i := 0; i < GlobalChannels; i++ {
		ok := m.Play(float64(i), 0, 0, i, uint64(i+1), lin.V3{}, 1, 0, true, 10)
		if !ok {
			t.Fatalf("channel %d: expected Play to succeed filling the pool", i)
		}
	}

	// A lower-priority, non-looping sound must be dropped: every channel
	// is protected (looping and higher priority).
	if m.Play(100, 0, 0, 99, 999, lin.V3{}, 1, 0, false, 1) {
		t.Fatal("expected Play to be refused, all channels protected")
	}

	// A higher-priority sound can still steal the oldest channel.
	if !m.Play(100, 0, 0, 99, 999, lin.V3{}, 1, 0, true, 20) {
		t.Fatal("expected higher-priority sound to evict the oldest channel")
	}
}

func TestMixerPerEntityChannelsAreIndependent(t *testing.T) {
	m := NewMixer(nil)
	m.SetListener(lin.V3{}, lin.V3{X: 1})

	if !m.Play(0, 1, 1, 5, 111, lin.V3{}, 1, 1, false, 1) {
		t.Fatal("expected entity channel 1 to accept the sound")
	}
	if !m.Play(0, 1, 2, 6, 112, lin.V3{}, 1, 1, false, 1) {
		t.Fatal("expected entity channel 2 to accept the sound independently")
	}

	set := m.entitySet(1)
	if set[1].soundIndex != 5 || set[2].soundIndex != 6 {
		t.Fatalf("entity channels not independently addressed: %+v", set)
	}

	m.StopEntity(1)
	if set[1].active || set[2].active {
		t.Fatal("expected StopEntity to clear all of the entity's channels")
	}
}

func TestSpatialGainCutoffAndFalloff(t *testing.T) {
	if g := spatialGain(1, 0, 5000); g != 1 {
		t.Fatalf("unattenuated gain = %v, want 1", g)
	}
	if g := spatialGain(1, 1, attenuationCutoff); g != 0 {
		t.Fatalf("at-cutoff gain = %v, want 0", g)
	}
	near := spatialGain(1, 1, 10)
	far := spatialGain(1, 1, 500)
	if !(near > far && far > 0) {
		t.Fatalf("expected monotonic falloff, got near=%v far=%v", near, far)
	}
}

func TestStereoPanLeftAndRight(t *testing.T) {
	right := lin.V3{X: 1}
	listener := lin.V3{}

	onRight := stereoPan(right, lin.V3{X: 10}, listener)
	if onRight <= 0 {
		t.Fatalf("source to the right panned %v, want > 0", onRight)
	}
	onLeft := stereoPan(right, lin.V3{X: -10}, listener)
	if onLeft >= 0 {
		t.Fatalf("source to the left panned %v, want < 0", onLeft)
	}
	centered := stereoPan(right, listener, listener)
	if centered != 0 {
		t.Fatalf("coincident source panned %v, want 0", centered)
	}
}

func TestMusicSinkResolvesExtensionOrder(t *testing.T) {
	dir := t.TempDir()
	if err := os.Mkdir(filepath.Join(dir, "music"), 0o755); err != nil {
		t.Fatal(err)
	}
	// Only the .ogg form exists: Resolve must still find it after trying
	// flac/wav/mp3 first.
	if err := os.WriteFile(filepath.Join(dir, "music", "track03.ogg"), []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}

	fs := vfs.New()
	fs.AddDir(dir)
	sink := NewMusicSink(fs, nil)

	path, ok := sink.Resolve("track03")
	if !ok || path != "music/track03.ogg" {
		t.Fatalf("Resolve = %q,%v want music/track03.ogg,true", path, ok)
	}
	if _, ok := sink.Resolve("missing"); ok {
		t.Fatal("expected Resolve to fail for a track with no backing file")
	}
}

func TestMusicSinkPlayStopsPreviousTrack(t *testing.T) {
	sink := NewMusicSink(vfs.New(), nil)
	d := &Data{}
	d.Set(2, 16, 44100, 4, []byte{0, 0, 0, 0})

	if err := sink.Play("track01", d); err != nil {
		t.Fatalf("Play: %v", err)
	}
	if cur, ok := sink.Current(); !ok || cur != "track01" {
		t.Fatalf("Current = %q,%v want track01,true", cur, ok)
	}

	if err := sink.Play("track02", d); err != nil {
		t.Fatalf("Play (second track): %v", err)
	}
	if cur, _ := sink.Current(); cur != "track02" {
		t.Fatalf("Current = %q, want track02", cur)
	}

	sink.Stop()
	if _, ok := sink.Current(); ok {
		t.Fatal("expected Stop to clear the current track")
	}
}
