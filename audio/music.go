// Copyright © 2013-2015 Galvanized Logic Inc.
// Use is governed by a BSD-style license found in the LICENSE file.

package audio

import (
	"fmt"

	"github.com/cormac-obrien/richter-sub002/vfs"
)

// musicExtensions lists the codec extensions tried, in order, when
// resolving a CD/background music track name. The original engine
// played physical CD audio; this module has none, so named tracks stand
// in for CD track numbers and are looked up as files instead.
var musicExtensions = []string{"flac", "wav", "mp3", "ogg"}

// MusicSink plays a single background music track at a time, resolving
// track names against a virtual filesystem the same way the teacher's
// loader resolves model and texture names.
type MusicSink struct {
	fs     *vfs.FS
	dev    Audio
	handle uint64
	buf    uint64
	track  string
}

// NewMusicSink binds a sink to fs for track lookup and dev for playback.
func NewMusicSink(fs *vfs.FS, dev Audio) *MusicSink {
	if dev == nil {
		dev = &NoAudio{}
	}
	return &MusicSink{fs: fs, dev: dev}
}

// Resolve finds the file backing a named track by trying each codec
// extension under the music/ prefix in turn, returning the first path
// that exists.
func (m *MusicSink) Resolve(track string) (string, bool) {
	for _, ext := range musicExtensions {
		path := "music/" + track + "." + ext
		if m.fs.Has(path) {
			return path, true
		}
	}
	return "", false
}

// Play stops whatever track is currently playing and starts d, which
// the caller must already have loaded via Resolve+decode. The track is
// handed to the device once; the sink does not restart it when it ends.
func (m *MusicSink) Play(track string, d *Data) error {
	m.Stop()
	var sound, buf uint64
	if err := m.dev.BindSound(&sound, &buf, d); err != nil {
		return fmt.Errorf("music: bind %q: %w", track, err)
	}
	m.handle, m.buf, m.track = sound, buf, track
	m.dev.PlaySound(sound, [3]float64{}, 1, 0)
	return nil
}

// Stop halts and releases the current track, if any.
func (m *MusicSink) Stop() {
	if m.track == "" {
		return
	}
	m.dev.StopSound(m.handle)
	m.dev.ReleaseSound(m.buf)
	m.handle, m.buf, m.track = 0, 0, ""
}

// Current reports the name of the track playing, if any.
func (m *MusicSink) Current() (string, bool) {
	return m.track, m.track != ""
}
