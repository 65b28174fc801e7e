// Copyright © 2013-2015 Galvanized Logic Inc.
// Use is governed by a BSD-style license found in the LICENSE file.

package audio

import (
	"fmt"

	"github.com/cormac-obrien/richter-sub002/load"
	"github.com/cormac-obrien/richter-sub002/vfs"
)

// Bind resolves name under sound/ in fs, decodes it as a WAV file, and
// copies the PCM data to the sound device, returning the device handle
// Play expects. Binding happens once per precache name (spec.md §4.5's
// precache population, §4.8's "play(sound_index, ...)"), not on every
// play.
func (m *Mixer) Bind(fs *vfs.FS, name string) (uint64, error) {
	r, err := fs.OpenReader("sound/" + name)
	if err != nil {
		return 0, fmt.Errorf("audio: opening %s: %w", name, err)
	}
	defer r.Close()

	var sd load.SndData
	if err := load.Wav(r, &sd); err != nil {
		return 0, fmt.Errorf("audio: decoding %s: %w", name, err)
	}

	d := &Data{Name: name}
	d.Set(sd.Attrs.Channels, sd.Attrs.SampleBits, sd.Attrs.Frequency, sd.Attrs.DataSize, sd.Data)

	var sound, buf uint64
	if err := m.dev.BindSound(&sound, &buf, d); err != nil {
		return 0, fmt.Errorf("audio: binding %s: %w", name, err)
	}
	return sound, nil
}
