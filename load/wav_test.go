// Copyright © 2024 Galvanized Logic Inc.

package load

import (
	"bytes"
	"encoding/binary"
	"testing"
)

func buildWav(channels uint16, frequency uint32, sampleBits uint16, data []byte) []byte {
	buf := &bytes.Buffer{}
	hdr := wavHeader{
		RiffID:      [4]byte{'R', 'I', 'F', 'F'},
		FileSize:    uint32(36 + len(data)),
		WaveID:      [4]byte{'W', 'A', 'V', 'E'},
		Fmt:         [4]byte{'f', 'm', 't', ' '},
		FmtSize:     16,
		AudioFormat: 1,
		Channels:    channels,
		Frequency:   frequency,
		ByteRate:    frequency * uint32(channels) * uint32(sampleBits) / 8,
		BlockAlign:  channels * sampleBits / 8,
		SampleBits:  sampleBits,
		DataID:      [4]byte{'d', 'a', 't', 'a'},
		DataSize:    uint32(len(data)),
	}
	binary.Write(buf, binary.LittleEndian, hdr)
	buf.Write(data)
	return buf.Bytes()
}

func TestLoadWav(t *testing.T) {
	pcm := []byte{1, 2, 3, 4, 5, 6, 7, 8}
	raw := buildWav(2, 44100, 16, pcm)

	d := &SndData{}
	if err := Wav(bytes.NewReader(raw), d); err != nil {
		t.Fatalf("Wav: %s", err)
	}
	if d.Attrs.Channels != 2 || d.Attrs.Frequency != 44100 || d.Attrs.SampleBits != 16 {
		t.Errorf("bad attrs: %+v", d.Attrs)
	}
	if !bytes.Equal(d.Data, pcm) {
		t.Errorf("got %v, want %v", d.Data, pcm)
	}
}

func TestLoadWavRejectsBadMagic(t *testing.T) {
	raw := buildWav(1, 8000, 8, []byte{9})
	raw[0] = 'X' // corrupt the RIFF id.

	d := &SndData{}
	if err := Wav(bytes.NewReader(raw), d); err == nil {
		t.Error("expected an error for a corrupt RIFF header")
	}
}
