// Copyright © 2013-2015 Galvanized Logic Inc.
// Use is governed by a BSD-style license found in the LICENSE file.

package audio

import "github.com/cormac-obrien/richter-sub002/math/lin"

// GlobalChannels and EntityChannels size the channel pool spec.md §4.8
// describes: "8 global + 8 per-entity". Global channels are shared and
// auto-picked; entity channels are addressed directly by the wire
// protocol's 3-bit channel number (protocol.SoundMessage.Channel, see
// protocol/sound.go) so a given entity's footsteps and weapon sound
// never fight over the same slot.
const (
	GlobalChannels = 8
	EntityChannels = 8
)

// attenuationCutoff is the distance beyond which a sound is inaudible
// regardless of its attenuation value, matching the original engine's
// sound_nominal_clip_dist constant (spec.md §4.8, "inverse-distance with
// cutoff").
const attenuationCutoff = 1000.0

// channel is one playing (or idle) mixer slot.
type channel struct {
	active     bool
	handle     uint64
	entity     int32
	soundIndex int
	looping    bool
	priority   int
	startTime  float64
	origin     lin.V3
	volume     float64
}

// Mixer implements the channel-pool sound selection, eviction, and
// spatialization rules of spec.md §4.8, driving an Audio device.
type Mixer struct {
	dev Audio

	global    [GlobalChannels]channel
	perEntity map[int32]*[EntityChannels]channel

	listenerOrigin lin.V3
	listenerRight  lin.V3
}

// NewMixer binds a Mixer to dev, using NoAudio if dev is nil.
func NewMixer(dev Audio) *Mixer {
	if dev == nil {
		dev = &NoAudio{}
	}
	return &Mixer{dev: dev, perEntity: map[int32]*[EntityChannels]channel{}}
}

// SetListener repositions the single sound listener, used both for
// attenuation distance and the stereo pan dot product (spec.md §4.8).
func (m *Mixer) SetListener(origin, right lin.V3) {
	m.listenerOrigin = origin
	m.listenerRight = right
	m.dev.PlaceListener(
		[3]float64{origin.X, origin.Y, origin.Z},
		[3]float64{right.X, right.Y, right.Z},
	)
}

// Play starts a sound on the appropriate channel (spec.md §4.8,
// "play(sound_index, origin, volume, attenuation)"). entity/slot
// address a specific per-entity channel when both are nonzero
// (mirroring the wire protocol's explicit channel field); slot zero or
// entity zero asks the mixer to auto-pick a global channel by the
// eviction policy.
// now is the current tick time, used to track channel age.
// Play reports whether the sound was actually assigned a channel: a
// global pick can fail when every channel holds a higher-priority
// loop, in which case the new sound is simply dropped (spec.md §4.8,
// "never evict a looping sound of higher priority").
func (m *Mixer) Play(now float64, entity int32, slot byte, soundIndex int, handle uint64, origin lin.V3, volume, attenuation float64, looping bool, priority int) bool {
	var c *channel
	if entity != 0 && slot != 0 {
		set := m.entitySet(entity)
		c = &set[int(slot)%EntityChannels]
	} else {
		var ok bool
		c, ok = m.pickGlobal(priority, looping)
		if !ok {
			return false
		}
	}
	if c.active {
		m.dev.StopSound(c.handle)
	}

	dist := origin.Dist(&m.listenerOrigin)
	gain := spatialGain(volume, attenuation, dist)
	pan := stereoPan(m.listenerRight, origin, m.listenerOrigin)

	*c = channel{
		active: true, handle: handle, entity: entity, soundIndex: soundIndex,
		looping: looping, priority: priority, startTime: now, origin: origin, volume: volume,
	}
	m.dev.PlaySound(handle, [3]float64{origin.X, origin.Y, origin.Z}, gain, pan)
	return true
}

// StopEntity silences every channel belonging to entity, used when the
// entity is freed (spec.md §4.6, "free(id)").
func (m *Mixer) StopEntity(entity int32) {
	set, ok := m.perEntity[entity]
	if !ok {
		return
	}
	for i := range set {
		if set[i].active {
			m.dev.StopSound(set[i].handle)
			set[i] = channel{}
		}
	}
}

func (m *Mixer) entitySet(id int32) *[EntityChannels]channel {
	set, ok := m.perEntity[id]
	if !ok {
		set = &[EntityChannels]channel{}
		m.perEntity[id] = set
	}
	return set
}

// pickGlobal implements spec.md §4.8's eviction policy: prefer an idle
// channel, else the longest-playing one, never evicting a looping
// channel of higher priority than the incoming sound.
func (m *Mixer) pickGlobal(priority int, looping bool) (*channel, bool) {
	for i := range m.global {
		if !m.global[i].active {
			return &m.global[i], true
		}
	}
	var best *channel
	for i := range m.global {
		c := &m.global[i]
		if c.looping && c.priority > priority {
			continue // protected.
		}
		if best == nil || c.startTime < best.startTime {
			best = c
		}
	}
	if best == nil {
		return nil, false
	}
	return best, true
}

// spatialGain computes inverse-distance attenuation with a hard cutoff
// (spec.md §4.8). attenuation <= 0 means the sound is not spatialized
// at all (HUD/UI sounds play at volume regardless of listener position).
func spatialGain(volume, attenuation, dist float64) float64 {
	if attenuation <= 0 {
		return volume
	}
	if dist >= attenuationCutoff {
		return 0
	}
	gain := volume / (1 + attenuation*dist/attenuationCutoff)
	switch {
	case gain < 0:
		return 0
	case gain > volume:
		return volume
	default:
		return gain
	}
}

// stereoPan computes dot(listener_right, to_source) (spec.md §4.8).
// A source exactly at the listener's position has no direction to pan
// toward and is treated as centered.
func stereoPan(right, origin, listener lin.V3) float64 {
	var toSource lin.V3
	toSource.Sub(&origin, &listener)
	if toSource.LenSqr() < 1e-9 {
		return 0
	}
	toSource.Unit()
	return right.Dot(&toSource)
}
