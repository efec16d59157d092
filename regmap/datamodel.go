package regmap

import "strings"

// AccessMode restricts which generated accessors exist for a field.
type AccessMode int

const (
	ReadWrite AccessMode = iota
	ReadOnly
	WriteOnly
)

func (m AccessMode) Readable() bool {
	return m == ReadWrite || m == ReadOnly
}

func (m AccessMode) Writable() bool {
	return m == ReadWrite || m == WriteOnly
}

func (m AccessMode) String() string {
	switch m {
	case ReadOnly:
		return "r"
	case WriteOnly:
		return "w"
	default:
		return "r/w"
	}
}

// Docs carries the optional brief/long documentation attached to an element.
type Docs struct {
	Brief string
	Doc   string
}

func (d Docs) Empty() bool {
	return d.Brief == "" && d.Doc == ""
}

// Lines renders the documentation one line at a time with the given comment
// prefix, for inclusion in generated source.
func (d Docs) Lines(prefix string) []string {
	var out []string
	if d.Brief != "" {
		out = append(out, prefix+d.Brief)
	}
	if d.Doc != "" {
		for _, line := range strings.Split(d.Doc, "\n") {
			out = append(out, prefix+line)
		}
	}
	return out
}

type EnumEntry struct {
	Name  string
	Value uint64
	Docs  Docs
}

// Enum is a named set of symbolic values with an explicit bit width.
type Enum struct {
	Name    string
	Width   uint
	Entries []EnumEntry
	Docs    Docs
}

// MaxValue returns the largest entry value.
func (e *Enum) MaxValue() uint64 {
	var max uint64
	for _, entry := range e.Entries {
		if entry.Value > max {
			max = entry.Value
		}
	}
	return max
}

// MinWidth is the smallest bit width able to represent every entry value.
func (e *Enum) MinWidth() uint {
	return MSBPos(e.MaxValue()) + 1
}

// Exhaustive reports whether every value representable in width bits maps to
// an entry, which lets generated unpack code skip failure paths.
func (e *Enum) Exhaustive(width uint) bool {
	if width > 16 {
		// Too large to enumerate; treat as fallible.
		return false
	}
	seen := map[uint64]bool{}
	for _, entry := range e.Entries {
		seen[entry.Value] = true
	}
	for v := uint64(0); v < uint64(1)<<width; v++ {
		if !seen[v] {
			return false
		}
	}
	return true
}

// Lookup returns the entry carrying the given value.
func (e *Enum) Lookup(value uint64) (EnumEntry, bool) {
	for _, entry := range e.Entries {
		if entry.Value == value {
			return entry, true
		}
	}
	return EnumEntry{}, false
}

type FieldKind int

const (
	FieldUInt FieldKind = iota
	FieldBool
	FieldEnum
	FieldRaw
)

func (k FieldKind) String() string {
	switch k {
	case FieldUInt:
		return "uint"
	case FieldBool:
		return "bool"
	case FieldEnum:
		return "enum"
	case FieldRaw:
		return "raw"
	default:
		return "unknown"
	}
}

// Field is a named, possibly non-contiguous bit range within a register.
type Field struct {
	Name   string
	Spans  []Span // declared order, low to high, pairwise disjoint
	Kind   FieldKind
	Access AccessMode
	Enum   *Enum // resolved handle, kind == FieldEnum only
	Docs   Docs

	// Default is the optional reset-time value of the field.
	Default *uint64

	// Fixed marks an always-write field: pack routines force this value
	// into the field's bits on every call.
	Fixed *uint64

	// Overlap marks a deliberately overlapping placeholder, exempt from
	// pairwise overlap validation when both parties carry the flag.
	Overlap bool
}

// Mask returns the register-relative bit mask the field occupies.
func (f *Field) Mask() uint64 {
	return SpansMask(f.Spans)
}

// Width is the number of bits the field's value carries.
func (f *Field) Width() uint {
	return SpansWidth(f.Spans)
}

// Packable reports whether the field carries a caller-supplied value.
// Always-write fields do not: their value is baked into pack routines.
func (f *Field) Packable() bool {
	return f.Fixed == nil
}

// Register is an addressable fixed-width storage unit composed of fields.
type Register struct {
	Name    string
	Address uint64
	Width   uint
	Fields  []*Field // declared order
	Reset   *uint64
	Docs    Docs
}

// FieldByName returns the named field, if present.
func (r *Register) FieldByName(name string) (*Field, bool) {
	for _, f := range r.Fields {
		if f.Name == name {
			return f, true
		}
	}
	return nil, false
}

// OwnedMask is the union of all field masks.
func (r *Register) OwnedMask() uint64 {
	var mask uint64
	for _, f := range r.Fields {
		mask |= f.Mask()
	}
	return mask
}

// UnusedMask covers the bits of the register no field claims.
func (r *Register) UnusedMask() uint64 {
	return BitMask(r.Width) &^ r.OwnedMask()
}

// ByteWidth is the size of the packed byte sequence backing the register.
func (r *Register) ByteWidth() int {
	return int(r.Width) / 8
}

// RegisterMap is the root of the resolved model. It is immutable once
// validated; generation stages only ever read it.
type RegisterMap struct {
	Name      string
	Docs      Docs
	Enums     []*Enum     // shared enums, declared order
	Registers []*Register // declared order
}

// EnumByName returns the named shared enum, if present.
func (m *RegisterMap) EnumByName(name string) (*Enum, bool) {
	for _, e := range m.Enums {
		if e.Name == name {
			return e, true
		}
	}
	return nil, false
}

// RegisterByName returns the named register, if present.
func (m *RegisterMap) RegisterByName(name string) (*Register, bool) {
	for _, r := range m.Registers {
		if r.Name == name {
			return r, true
		}
	}
	return nil, false
}

// MaxAddress returns the highest register address in the map.
func (m *RegisterMap) MaxAddress() uint64 {
	var max uint64
	for _, r := range m.Registers {
		if r.Address > max {
			max = r.Address
		}
	}
	return max
}
