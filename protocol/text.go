// Copyright © 2013-2015 Galvanized Logic Inc.
// Use is governed by a BSD-style license found in the LICENSE file.

package protocol

import (
	"fmt"
	"strings"

	"golang.org/x/text/encoding/charmap"
)

// DecodeText transcodes a Print/StuffText/CenterPrint/Finale/Cutscene
// payload to UTF-8. The wire charset is extended ASCII: bytes below 0x80
// are plain ASCII, and the 0x80-0xA0 range carries the original engine's
// accented/punctuation glyphs (original_source/src/console.rs), which
// line up with Windows-1252 closely enough to transcode through it.
func DecodeText(s string) (string, error) {
	if isASCII(s) {
		return s, nil
	}
	out, err := charmap.Windows1252.NewDecoder().String(s)
	if err != nil {
		return "", fmt.Errorf("text: decode: %w", err)
	}
	return out, nil
}

// EncodeText transcodes a UTF-8 string back to the wire's extended-ASCII
// charset, for server code composing Print/StuffText/CenterPrint bodies.
func EncodeText(s string) (string, error) {
	if isASCII(s) {
		return s, nil
	}
	out, err := charmap.Windows1252.NewEncoder().String(s)
	if err != nil {
		return "", fmt.Errorf("text: encode: %w", err)
	}
	return out, nil
}

func isASCII(s string) bool {
	return strings.IndexFunc(s, func(r rune) bool { return r > 0x7f }) == -1
}
