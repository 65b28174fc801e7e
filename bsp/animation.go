// Copyright © 2013-2015 Galvanized Logic Inc.
// Use is governed by a BSD-style license found in the LICENSE file.

package bsp

import "strconv"

// animFrameCount is the length of one texture animation cycle: frames
// named "+0..." through "+9..." form the base chain, "+a..." through
// "+j..." the alternate chain (spec.md §3 "Textures", §4.2 "Texture
// animation").
const animFrameCount = 10

// AnimatedTexture resolves the texture that should be displayed for
// base texture index tex at time t (spec.md §4.2 "Texture animation").
// alternate selects the "+a.." chain in place of the "+0.." chain,
// driven by a lightstyle bit in the real engine. Any frame of a cycle
// resolves through that cycle's frame 0. If tex is not named "+N..."
// or no frame 0 for its cycle exists, tex is returned unchanged.
func (b *BSP) AnimatedTexture(tex int32, t float64, alternate bool) int32 {
	if tex < 0 || int(tex) >= len(b.Textures) {
		return tex
	}
	base := b.animationBase(tex, alternate)
	if base < 0 {
		return tex
	}
	chain := b.animationChain(base, alternate)
	if len(chain) == 0 {
		return tex
	}
	ticks := int(t*10) % 20
	frame := (ticks / 2) % len(chain)
	return chain[frame]
}

// animationBase walks backward through ascending frame digits/letters
// to find frame 0 ('0' or 'a') of tex's cycle.
func (b *BSP) animationBase(tex int32, alternate bool) int32 {
	name := b.Textures[tex].Name
	if len(name) < 2 || name[0] != '+' {
		return -1
	}
	digit := name[1]
	if isAnimDigit(digit, false) && frameIndex(digit, false) == 0 {
		return tex
	}
	if isAnimDigit(digit, true) && frameIndex(digit, true) == 0 {
		return tex
	}
	// Search the whole texture table for a frame-0 sharing this name's
	// suffix (the real engine scans all loaded textures the same way).
	suffix := name[2:]
	for i, other := range b.Textures {
		if len(other.Name) < 2 || other.Name[0] != '+' || other.Name[2:] != suffix {
			continue
		}
		if frameIndex(other.Name[1], alternate) == 0 {
			return int32(i)
		}
	}
	return -1
}

// animationChain builds the ordered list of texture indices forming
// the cycle starting at base. The cycle ends at the first missing
// frame number.
func (b *BSP) animationChain(base int32, alternate bool) []int32 {
	suffix := b.Textures[base].Name[2:]
	chain := make([]int32, animFrameCount)
	for i := range chain {
		chain[i] = -1
	}
	for i, other := range b.Textures {
		if len(other.Name) < 2 || other.Name[0] != '+' || other.Name[2:] != suffix {
			continue
		}
		if !isAnimDigit(other.Name[1], alternate) {
			continue
		}
		idx := frameIndex(other.Name[1], alternate)
		if idx >= 0 && idx < animFrameCount {
			chain[idx] = int32(i)
		}
	}
	for n, idx := range chain {
		if idx < 0 {
			return chain[:n]
		}
	}
	return chain
}

func isAnimDigit(c byte, alternate bool) bool {
	if alternate {
		return c >= 'a' && c <= 'j'
	}
	return c >= '0' && c <= '9'
}

func frameIndex(c byte, alternate bool) int {
	if alternate {
		if c < 'a' || c > 'j' {
			return -1
		}
		return int(c - 'a')
	}
	n, err := strconv.Atoi(string(c))
	if err != nil {
		return -1
	}
	return n
}
