// Copyright © 2013-2015 Galvanized Logic Inc.
// Use is governed by a BSD-style license found in the LICENSE file.

package client

// Precache holds the model and sound name tables sent during Prespawn
// (spec.md §4.5, "Precache population"). Entries are appended in the
// order they arrive and never reordered or deduplicated, so an entity
// field referencing one by index stays valid for the life of the
// connection (spec.md: "preserving index stability").
type Precache struct {
	Models []string
	Sounds []string
}

// ModelIndex reports the precache index of name, or false if it was
// never precached. Indices are 1-based, index 0 is reserved by the
// original protocol for "no model" the same way entity 0 is reserved
// for the world.
func (p *Precache) ModelIndex(name string) (int, bool) {
	for i, m := range p.Models {
		if m == name {
			return i + 1, true
		}
	}
	return 0, false
}

// ModelName resolves a 1-based precache index back to its name.
func (p *Precache) ModelName(index int) (string, bool) {
	if index <= 0 || index > len(p.Models) {
		return "", false
	}
	return p.Models[index-1], true
}

// SoundIndex reports the precache index of name, or false if it was
// never precached.
func (p *Precache) SoundIndex(name string) (int, bool) {
	for i, s := range p.Sounds {
		if s == name {
			return i + 1, true
		}
	}
	return 0, false
}

// SoundName resolves a 1-based precache index back to its name.
func (p *Precache) SoundName(index int) (string, bool) {
	if index <= 0 || index > len(p.Sounds) {
		return "", false
	}
	return p.Sounds[index-1], true
}

// reset empties both tables, done on every new connection so a prior
// session's indices never leak into the next one.
func (p *Precache) reset() {
	p.Models = p.Models[:0]
	p.Sounds = p.Sounds[:0]
}
