package console

import (
	"errors"
	"fmt"

	"tinygo.org/x/tinyfont"
)

// LineMetrics derives the terminal cell height and baseline offset of a
// monospace font from the extents of its printable ASCII glyphs.
func LineMetrics(font tinyfont.Fonter) (height, offset int16, err error) {
	if font == nil {
		return 0, 0, errors.New("nil font")
	}

	minY, maxY := 0, 0
	first := true
	for r := rune(0x21); r < 0x7f; r++ {
		g := font.GetGlyph(r)
		if g == nil {
			continue
		}
		info := g.Info()
		if info.Rune != r || info.Height == 0 {
			continue
		}
		top := int(info.YOffset)
		bottom := top + int(info.Height)
		if first {
			minY, maxY = top, bottom
			first = false
			continue
		}
		minY = min(minY, top)
		maxY = max(maxY, bottom)
	}
	if first {
		return 0, 0, errors.New("no glyphs")
	}

	h := int(font.GetYAdvance())
	if h <= 0 {
		h = maxY - minY
	}
	if h <= 0 || h > 127 {
		return 0, 0, fmt.Errorf("invalid line height %d", h)
	}

	// Balance top and bottom clipping for the chosen line height.
	off := (h - maxY - minY) / 2
	off = clampInt(off, 0, h)
	return int16(h), int16(off), nil
}
