// Copyright © 2013-2016 Galvanized Logic Inc.
// Use is governed by a BSD-style license found in the LICENSE file.

// Package audio provides the channel-pool mixer described in spec.md
// §4.8: a fixed pool of channels selected by an eviction policy,
// inverse-distance spatial attenuation with a cutoff, stereo pan, and a
// single-track music sink. It is provided as part of the engine the
// same way the teacher's audio package was provided as part of the vu
// (virtual universe) 3D engine: Audio is the thin device-facing
// boundary (bind/release/play), Mixer and MusicSink sit above it and
// decide what gets played and at what gain/pan.
package audio

// Audio interacts with the underlying audio device. Init must succeed
// before sounds can be bound and played. Unlike the teacher's version,
// PlaySound/PlaceListener carry the gain/pan/orientation the Mixer
// already computed rather than raw positions, since spatialization is
// now the mixer's job, not the device's (spec.md §4.8).
type Audio interface {
	Init() error          // Get the audio layer up and running.
	Dispose()              // Closes and cleans up the audio layer.
	SetGain(gain float64) // Master volume control: valid values are 0->1.

	// BindSound copies the sound data to the sound card and returns
	// references that can be used to dispose of the sound with ReleaseSound.
	//     sound : updated reference to the bound sound.
	//     buff  : updated reference to the sound data buffer.
	//     d     : sound data bytes and settings to be bound.
	BindSound(sound, buff *uint64, d *Data) error
	ReleaseSound(sound uint64)

	// PlaceListener sets the single listener's world position and right
	// vector, the latter needed for stereo pan (spec.md §4.8: "stereo
	// pan is dot(listener_right, to_source)").
	PlaceListener(origin, right [3]float64)

	// PlaySound starts sound playing at the given gain (0-1, already
	// attenuated by distance) and pan (-1 left .. 1 right).
	PlaySound(sound uint64, origin [3]float64, gain, pan float64)

	// StopSound halts a currently playing sound without releasing its
	// buffer, used when the mixer evicts a channel (spec.md §4.8).
	StopSound(sound uint64)
}

// New provides a default audio implementation. No native backend ships
// in this module (the teacher's OpenAL cgo binding has no counterpart
// anywhere in the example corpus, see DESIGN.md); callers needing real
// output supply their own Audio and pass it to NewMixer.
func New() Audio { return &NoAudio{} }

// NoAudio is a mock used to exercise the mixer without a sound device,
// or as the fallback when audio initialization fails.
type NoAudio struct{}

func (na *NoAudio) Init() error                                  { return nil }
func (na *NoAudio) Dispose()                                     {}
func (na *NoAudio) SetGain(gain float64)                         {}
func (na *NoAudio) BindSound(sound, buff *uint64, d *Data) error { return nil }
func (na *NoAudio) ReleaseSound(sound uint64)                    {}
func (na *NoAudio) PlaceListener(origin, right [3]float64)       {}
func (na *NoAudio) PlaySound(sound uint64, origin [3]float64, gain, pan float64) {}
func (na *NoAudio) StopSound(sound uint64)                       {}
