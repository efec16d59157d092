package regmap

import (
	"fmt"
	"math/bits"
)

// MaxBitWidth is the widest register or field the generators can carry in a
// single integer value. Wider elements are rejected when the map is built.
const MaxBitWidth = 64

// Span is an inclusive range of bit positions within a register.
type Span struct {
	Lo uint
	Hi uint
}

func (s Span) Width() uint {
	return s.Hi - s.Lo + 1
}

func (s Span) Mask() uint64 {
	return MaskRange(s.Lo, s.Hi)
}

func (s Span) String() string {
	if s.Lo == s.Hi {
		return fmt.Sprintf("%d", s.Lo)
	}
	return fmt.Sprintf("%d-%d", s.Lo, s.Hi)
}

// BitMask returns a mask with the lowest width bits set.
func BitMask(width uint) uint64 {
	if width >= 64 {
		return ^uint64(0)
	}
	return (uint64(1) << width) - 1
}

// MaskRange returns a mask covering bits lo through hi, inclusive.
func MaskRange(lo, hi uint) uint64 {
	return BitMask(hi-lo+1) << lo
}

// MSBPos returns the position of the highest set bit, or 0 for a zero value.
func MSBPos(v uint64) uint {
	if v == 0 {
		return 0
	}
	return uint(bits.Len64(v)) - 1
}

// LSBPos returns the position of the lowest set bit, or 0 for a zero value.
func LSBPos(v uint64) uint {
	if v == 0 {
		return 0
	}
	return uint(bits.TrailingZeros64(v))
}

// MaskWidth returns the distance between the highest and lowest set bit,
// inclusive. Gaps inside the mask are counted.
func MaskWidth(mask uint64) uint {
	if mask == 0 {
		return 0
	}
	return MSBPos(mask) - LSBPos(mask) + 1
}

// FitsWidth reports whether v is representable in width bits.
func FitsWidth(v uint64, width uint) bool {
	return v&^BitMask(width) == 0
}

// MaskIsContiguous reports whether the set bits of mask form a single run.
func MaskIsContiguous(mask uint64) bool {
	if mask == 0 {
		return true
	}
	return MaskRange(LSBPos(mask), MSBPos(mask)) == mask
}

// MaskToSpans decomposes a mask into its maximal runs of set bits, ordered
// low to high.
func MaskToSpans(mask uint64) []Span {
	var spans []Span
	for pos := uint(0); pos < MaxBitWidth; {
		if mask&(uint64(1)<<pos) == 0 {
			pos++
			continue
		}
		lo := pos
		for pos < MaxBitWidth && mask&(uint64(1)<<pos) != 0 {
			pos++
		}
		spans = append(spans, Span{Lo: lo, Hi: pos - 1})
	}
	return spans
}

// SpansMask folds a span list back into a mask.
func SpansMask(spans []Span) uint64 {
	var mask uint64
	for _, s := range spans {
		mask |= s.Mask()
	}
	return mask
}

// SpansWidth is the total number of bits covered by the spans.
func SpansWidth(spans []Span) uint {
	var width uint
	for _, s := range spans {
		width += s.Width()
	}
	return width
}

// FittingUnsignedWidth rounds a bit width up to the next unsigned integer
// size available in the generated languages.
func FittingUnsignedWidth(width uint) uint {
	switch {
	case width <= 8:
		return 8
	case width <= 16:
		return 16
	case width <= 32:
		return 32
	default:
		return 64
	}
}
