package filterfield

import (
	"fmt"
	"math"
	"unicode/utf16"
)

// ColorFromName deterministically derives an RGBA hex color from a tag's
// string form, so every occurrence of the same tag renders with the same
// color without a lookup table.
//
// The hash folds UTF-16 code units into a 32-bit accumulator:
//
//	hash = codeUnit + ((hash << 5) - hash)
//
// wrapping two's-complement int32 arithmetic, folding over UTF-16 code
// units rather than runes, so names beyond the basic multilingual plane
// (emoji tags) contribute a surrogate pair of units and hash identically
// to a charCodeAt fold. The accumulator is masked to 24 bits and rendered
// as 6 uppercase hex digits, followed by a 2-digit alpha byte derived
// from opacity in [0,1].
//
// Edge cases:
//   - opacity is clamped to [0,1]; the alpha byte is round(opacity*255).
//   - The empty string hashes to 0 → "#000000" plus alpha.
func ColorFromName(name string, opacity float64) string {
	var hash int32
	for _, u := range utf16.Encode([]rune(name)) {
		hash = int32(u) + ((hash << 5) - hash)
	}
	rgb := uint32(hash) & 0x00ffffff

	if opacity < 0 {
		opacity = 0
	} else if opacity > 1 {
		opacity = 1
	}
	alpha := uint8(math.Round(opacity * 255))

	return fmt.Sprintf("#%06X%02X", rgb, alpha)
}
