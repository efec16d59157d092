package regmap

import (
	"fmt"

	"golang.org/x/exp/maps"
	"golang.org/x/exp/slices"
)

type Endianness int

const (
	LittleEndian Endianness = iota
	BigEndian
)

func (e Endianness) String() string {
	if e == BigEndian {
		return "big"
	}
	return "little"
}

// Suffix is the identifier fragment backends append to generated routine
// names, e.g. pack_le / pack_be.
func (e Endianness) Suffix() string {
	if e == BigEndian {
		return "be"
	}
	return "le"
}

func ParseEndianness(s string) (Endianness, error) {
	switch s {
	case "little", "le":
		return LittleEndian, nil
	case "big", "be":
		return BigEndian, nil
	default:
		return LittleEndian, fmt.Errorf("%w: unknown endianness %q", ErrSchema, s)
	}
}

// Policy decides what happens to bits no packed field wrote: preserved from
// the input byte sequence, or forced to zero. It applies uniformly to a
// whole generation run.
type Policy int

const (
	Preserve Policy = iota
	ZeroFill
)

func (p Policy) String() string {
	if p == ZeroFill {
		return "zero-fill"
	}
	return "preserve"
}

func ParsePolicy(s string) (Policy, error) {
	switch s {
	case "preserve", "":
		return Preserve, nil
	case "zero-fill", "zerofill", "zero":
		return ZeroFill, nil
	default:
		return Preserve, fmt.Errorf("%w: unknown unused-bit policy %q", ErrSchema, s)
	}
}

// Segment maps a slice of a field's value onto the packed byte sequence:
// the segment's Width bits sit at Offset within byte Byte, and correspond to
// the field value's bits starting at Shift.
type Segment struct {
	Byte   int
	Offset uint
	Width  uint
	Shift  uint
}

// ByteMask is the segment's mask within its byte.
func (s Segment) ByteMask() byte {
	return byte(BitMask(s.Width)) << s.Offset
}

type FieldLayout struct {
	Field    *Field
	Segments []Segment
}

func (fl FieldLayout) write(buf []byte, v uint64) {
	for _, seg := range fl.Segments {
		bits := byte((v>>seg.Shift)&BitMask(seg.Width)) << seg.Offset
		buf[seg.Byte] = buf[seg.Byte]&^seg.ByteMask() | bits
	}
}

func (fl FieldLayout) read(buf []byte) uint64 {
	var v uint64
	for _, seg := range fl.Segments {
		bits := uint64(buf[seg.Byte]>>seg.Offset) & BitMask(seg.Width)
		v |= bits << seg.Shift
	}
	return v
}

// ResolvedLayout is the concrete byte/bit segmentation of one register under
// one endianness. Resolution is pure: the same register and endianness
// always produce the same layout, in field declaration order.
type ResolvedLayout struct {
	Register   *Register
	Endianness Endianness
	Fields     []FieldLayout
}

// Resolve computes the byte/bit segmentation of every field. The register's
// logical bit numbering never changes; endianness only transposes which byte
// of the packed sequence carries which group of eight bits. Byte 0 holds
// bits 0-7 under little-endian and the topmost eight bits under big-endian.
func Resolve(r *Register, e Endianness) *ResolvedLayout {
	nbytes := r.ByteWidth()
	l := &ResolvedLayout{
		Register:   r,
		Endianness: e,
		Fields:     make([]FieldLayout, 0, len(r.Fields)),
	}

	for _, f := range r.Fields {
		fl := FieldLayout{Field: f}
		shift := uint(0)
		for _, span := range f.Spans {
			// Split the span at byte boundaries of the logical numbering.
			for pos := span.Lo; pos <= span.Hi; {
				logicalByte := int(pos / 8)
				chunkHi := span.Hi
				if last := uint(logicalByte*8 + 7); chunkHi > last {
					chunkHi = last
				}
				width := chunkHi - pos + 1

				index := logicalByte
				if e == BigEndian {
					index = nbytes - 1 - logicalByte
				}
				fl.Segments = append(fl.Segments, Segment{
					Byte:   index,
					Offset: pos % 8,
					Width:  width,
					Shift:  shift,
				})
				shift += width
				pos = chunkHi + 1
			}
		}
		l.Fields = append(l.Fields, fl)
	}
	return l
}

// FieldLayout returns the segmentation of the named field.
func (l *ResolvedLayout) FieldLayout(name string) (FieldLayout, bool) {
	for _, fl := range l.Fields {
		if fl.Field.Name == name {
			return fl, true
		}
	}
	return FieldLayout{}, false
}

// Pack writes the given field values into a copy of dst. Bits of fields not
// present in values, and bits no field owns, follow the policy: kept from
// dst under Preserve, forced to zero under ZeroFill. Fixed always-write
// fields are written on every call. dst is never modified.
func (l *ResolvedLayout) Pack(dst []byte, values map[string]uint64, policy Policy) ([]byte, error) {
	if len(dst) != l.Register.ByteWidth() {
		return nil, fmt.Errorf("%w: register %s packs into %d bytes, got %d",
			ErrBounds, l.Register.Name, l.Register.ByteWidth(), len(dst))
	}

	out := make([]byte, len(dst))
	if policy == Preserve {
		copy(out, dst)
	}

	names := maps.Keys(values)
	slices.Sort(names)
	for _, name := range names {
		fl, ok := l.FieldLayout(name)
		if !ok {
			return nil, fmt.Errorf("%w: register %s has no field %s", ErrReference, l.Register.Name, name)
		}
		if !fl.Field.Packable() {
			return nil, fmt.Errorf("%w: field %s carries a fixed value", ErrReference, name)
		}
		v := values[name]
		if !FitsWidth(v, fl.Field.Width()) {
			return nil, fmt.Errorf("%w: value %#x exceeds the %d-bit field %s", ErrWidth, v, fl.Field.Width(), name)
		}
		fl.write(out, v)
	}

	for _, fl := range l.Fields {
		if fl.Field.Fixed != nil {
			fl.write(out, *fl.Field.Fixed)
		}
	}
	return out, nil
}

// Unpack reassembles the value of every packable field from a packed byte
// sequence. Multi-span fields concatenate their spans in declared order,
// lowest span first.
func (l *ResolvedLayout) Unpack(src []byte) (map[string]uint64, error) {
	if len(src) != l.Register.ByteWidth() {
		return nil, fmt.Errorf("%w: register %s unpacks from %d bytes, got %d",
			ErrBounds, l.Register.Name, l.Register.ByteWidth(), len(src))
	}
	values := make(map[string]uint64, len(l.Fields))
	for _, fl := range l.Fields {
		if !fl.Field.Packable() {
			continue
		}
		values[fl.Field.Name] = fl.read(src)
	}
	return values, nil
}
