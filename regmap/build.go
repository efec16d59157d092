package regmap

import (
	"errors"
	"fmt"
	"hash/fnv"

	"gonum.org/v1/gonum/graph"
	"gonum.org/v1/gonum/graph/multi"
	"gonum.org/v1/gonum/graph/topo"
)

// Build resolves a raw listing into a RegisterMap. Shared enums are resolved
// first, then shared layouts in dependency order, then the registers.
//
// Errors are collected rather than failing fast: a register that cannot be
// built is dropped from the map and reported, while the remaining registers
// build normally. The returned map is usable even when err is non-nil.
func Build(l *Listing) (*RegisterMap, error) {
	b := &mapBuilder{
		listing: l,
		enums:   map[string]*Enum{},
		layouts: map[string]*builtLayout{},
	}

	m := &RegisterMap{
		Name: l.Name,
		Docs: l.Docs,
	}

	var err error
	err = errors.Join(err, b.buildEnums(m))
	err = errors.Join(err, b.buildLayouts())

	seen := map[string]bool{}
	for _, rl := range l.Registers {
		if seen[rl.Name] {
			err = errors.Join(err, fmt.Errorf("%w: register %s", ErrNameCollision, rl.Name))
			continue
		}
		seen[rl.Name] = true

		reg, regErr := b.buildRegister(rl)
		if regErr != nil {
			err = errors.Join(err, fmt.Errorf("register %s: %w", rl.Name, regErr))
			continue
		}
		m.Registers = append(m.Registers, reg)
	}

	return m, err
}

type builtLayout struct {
	width  uint
	fields []*Field
}

type mapBuilder struct {
	listing *Listing
	enums   map[string]*Enum
	layouts map[string]*builtLayout
}

func (b *mapBuilder) buildEnums(m *RegisterMap) error {
	var err error
	for _, el := range b.listing.Enums {
		if _, ok := b.enums[el.Name]; ok {
			err = errors.Join(err, fmt.Errorf("%w: enum %s", ErrNameCollision, el.Name))
			continue
		}

		e := &Enum{
			Name:  el.Name,
			Width: el.Width,
			Docs:  Docs{Brief: el.Brief, Doc: el.Doc},
		}
		values := map[uint64]string{}
		var enumErr error
		for _, entry := range el.Entries {
			if prev, ok := values[entry.Val]; ok {
				enumErr = errors.Join(enumErr, fmt.Errorf("%w: enum %s: entries %s and %s share value %#x",
					ErrSchema, el.Name, prev, entry.Name, entry.Val))
				continue
			}
			values[entry.Val] = entry.Name
			e.Entries = append(e.Entries, EnumEntry{
				Name:  entry.Name,
				Value: entry.Val,
				Docs:  Docs{Brief: entry.Brief, Doc: entry.Doc},
			})
		}

		// An omitted width defaults to the smallest one that fits.
		if e.Width == 0 {
			e.Width = e.MinWidth()
		}
		if e.Width > MaxBitWidth {
			enumErr = errors.Join(enumErr, fmt.Errorf("%w: enum %s is %d bits wide", ErrWidth, el.Name, e.Width))
		} else {
			for _, entry := range e.Entries {
				if !FitsWidth(entry.Value, e.Width) {
					enumErr = errors.Join(enumErr, fmt.Errorf("%w: enum %s: value %#x of %s exceeds %d bits",
						ErrWidth, el.Name, entry.Value, entry.Name, e.Width))
				}
			}
		}
		if enumErr != nil {
			err = errors.Join(err, enumErr)
			continue
		}

		b.enums[el.Name] = e
		m.Enums = append(m.Enums, e)
	}
	return err
}

type layoutNode struct {
	name string
	id   int64
}

func (n *layoutNode) ID() int64 {
	return n.id
}

func makeLayoutNode(name string) *layoutNode {
	hasher := fnv.New64()
	hasher.Write([]byte(name))
	return &layoutNode{name: name, id: int64(hasher.Sum64())}
}

// buildLayouts resolves the shared layouts in dependency order. A layout
// field may pull in another layout by name, so the set is sorted
// topologically first; reference cycles cannot be flattened and are rejected.
func (b *mapBuilder) buildLayouts() error {
	var err error

	listings := map[string]*LayoutListing{}
	nodes := map[string]*layoutNode{}
	g := multi.NewDirectedGraph()

	for i := range b.listing.Layouts {
		ll := &b.listing.Layouts[i]
		if _, ok := listings[ll.Name]; ok {
			err = errors.Join(err, fmt.Errorf("%w: layout %s", ErrNameCollision, ll.Name))
			continue
		}
		listings[ll.Name] = ll
		node := makeLayoutNode(ll.Name)
		nodes[ll.Name] = node
		g.AddNode(node)
	}

	for name, ll := range listings {
		for _, fl := range ll.Fields {
			if fl.Use == "" {
				continue
			}
			if fl.Use == name {
				err = errors.Join(err, fmt.Errorf("%w: layout %s includes itself", ErrReference, name))
				continue
			}
			dep, ok := nodes[fl.Use]
			if !ok {
				err = errors.Join(err, fmt.Errorf("%w: layout %s uses unknown layout %s", ErrReference, name, fl.Use))
				continue
			}
			g.SetLine(g.NewLine(dep, nodes[name]))
		}
	}

	sorted, sortErr := topo.Sort(g)
	if sortErr != nil {
		return errors.Join(err, fmt.Errorf("%w: layout reference cycle: %v", ErrReference, sortErr))
	}

	for _, node := range sorted {
		name := node.(*layoutNode).name
		ll := listings[name]
		if ll.Bitwidth == 0 {
			err = errors.Join(err, fmt.Errorf("%w: layout %s has no bitwidth", ErrSchema, name))
			continue
		}
		fields, layoutErr := b.buildFields(ll.Fields, ll.Bitwidth)
		if layoutErr != nil {
			err = errors.Join(err, fmt.Errorf("layout %s: %w", name, layoutErr))
			continue
		}
		b.layouts[name] = &builtLayout{width: ll.Bitwidth, fields: fields}
	}
	return err
}

func (b *mapBuilder) buildRegister(rl RegisterListing) (*Register, error) {
	width := rl.Bitwidth
	if width == 0 {
		width = b.listing.Defaults.Bitwidth
	}
	if width == 0 {
		return nil, fmt.Errorf("%w: no bitwidth declared", ErrSchema)
	}
	if width > MaxBitWidth {
		return nil, fmt.Errorf("%w: register is %d bits wide, limit is %d", ErrWidth, width, MaxBitWidth)
	}

	reg := &Register{
		Name:    rl.Name,
		Address: rl.Adr,
		Width:   width,
		Reset:   rl.Reset,
		Docs:    Docs{Brief: rl.Brief, Doc: rl.Doc},
	}

	switch {
	case rl.Use != "" && len(rl.Fields) > 0:
		return nil, fmt.Errorf("%w: register declares both a layout and a layout reference", ErrSchema)
	case rl.Use != "":
		shared, ok := b.layouts[rl.Use]
		if !ok {
			return nil, fmt.Errorf("%w: unknown layout %s", ErrReference, rl.Use)
		}
		// Registers own their fields, so shared layouts are copied in.
		for _, f := range shared.fields {
			clone := *f
			reg.Fields = append(reg.Fields, &clone)
		}
	default:
		fields, err := b.buildFields(rl.Fields, width)
		if err != nil {
			return nil, err
		}
		reg.Fields = fields
	}

	return reg, nil
}

// buildFields resolves a field list against the enum table and shared
// layouts. width bounds only the structurally-impossible check here; partial
// overshoots are left for validation so they surface as diagnostics.
func (b *mapBuilder) buildFields(listings []FieldListing, width uint) ([]*Field, error) {
	var err error
	var fields []*Field
	seen := map[string]bool{}

	add := func(f *Field) {
		if seen[f.Name] {
			err = errors.Join(err, fmt.Errorf("%w: field %s", ErrNameCollision, f.Name))
			return
		}
		seen[f.Name] = true
		fields = append(fields, f)
	}

	for _, fl := range listings {
		spans, spanErr := checkSpans(fl.Name, fl.Bits, width)
		if spanErr != nil {
			err = errors.Join(err, spanErr)
			continue
		}

		access, accessErr := parseAccess(fl.Access, b.listing.Defaults.Access)
		if accessErr != nil {
			err = errors.Join(err, fmt.Errorf("field %s: %w", fl.Name, accessErr))
			continue
		}

		if fl.Use != "" {
			inlined, useErr := b.inlineLayout(fl, spans, access)
			if useErr != nil {
				err = errors.Join(err, useErr)
				continue
			}
			for _, f := range inlined {
				add(f)
			}
			continue
		}

		f := &Field{
			Name:    fl.Name,
			Spans:   spans,
			Access:  access,
			Default: fl.Default,
			Fixed:   fl.Value,
			Overlap: fl.Overlap,
			Docs:    Docs{Brief: fl.Brief, Doc: fl.Doc},
		}

		switch fl.Accepts {
		case "", "uint":
			f.Kind = FieldUInt
		case "bool":
			f.Kind = FieldBool
			if SpansWidth(spans) != 1 {
				err = errors.Join(err, fmt.Errorf("%w: bool field %s is %d bits wide", ErrSchema, fl.Name, SpansWidth(spans)))
				continue
			}
		case "raw":
			f.Kind = FieldRaw
		default:
			e, ok := b.enums[fl.Accepts]
			if !ok {
				err = errors.Join(err, fmt.Errorf("%w: field %s accepts unknown enum %s", ErrReference, fl.Name, fl.Accepts))
				continue
			}
			f.Kind = FieldEnum
			f.Enum = e
		}

		if f.Fixed != nil && f.Kind != FieldRaw {
			err = errors.Join(err, fmt.Errorf("%w: field %s: fixed values require a raw field", ErrSchema, fl.Name))
			continue
		}

		add(f)
	}
	return fields, err
}

// inlineLayout flattens a referenced layout into the position given by the
// field's bit span. The inlined field names are prefixed with the field name.
func (b *mapBuilder) inlineLayout(fl FieldListing, spans []Span, access AccessMode) ([]*Field, error) {
	if fl.Accepts != "" {
		return nil, fmt.Errorf("%w: field %s declares both accepts and use", ErrSchema, fl.Name)
	}
	shared, ok := b.layouts[fl.Use]
	if !ok {
		return nil, fmt.Errorf("%w: field %s uses unknown layout %s", ErrReference, fl.Name, fl.Use)
	}
	mask := SpansMask(spans)
	if !MaskIsContiguous(mask) {
		return nil, fmt.Errorf("%w: field %s: a layout reference needs one contiguous span", ErrSchema, fl.Name)
	}
	if MaskWidth(mask) < shared.width {
		return nil, fmt.Errorf("%w: field %s is %d bits wide but layout %s needs %d",
			ErrBounds, fl.Name, MaskWidth(mask), fl.Use, shared.width)
	}

	offset := LSBPos(mask)
	var out []*Field
	for _, f := range shared.fields {
		clone := *f
		clone.Name = fl.Name + "_" + f.Name
		clone.Spans = make([]Span, len(f.Spans))
		for i, s := range f.Spans {
			clone.Spans[i] = Span{Lo: s.Lo + offset, Hi: s.Hi + offset}
		}
		if clone.Access == ReadWrite {
			clone.Access = access
		}
		out = append(out, &clone)
	}
	return out, nil
}

// checkSpans enforces the structural span invariants: declared low to high,
// pairwise disjoint, and not entirely outside the declared width. A span
// that merely pokes past the width is left for the validator.
func checkSpans(field string, spans []Span, width uint) ([]Span, error) {
	if len(spans) == 0 {
		return nil, fmt.Errorf("%w: field %s has no bits", ErrSchema, field)
	}
	var mask uint64
	var prevHi uint
	for i, s := range spans {
		if i > 0 && s.Lo <= prevHi {
			return nil, fmt.Errorf("%w: field %s: spans must be declared low to high and disjoint", ErrSchema, field)
		}
		prevHi = s.Hi
		if s.Lo >= width {
			return nil, fmt.Errorf("%w: field %s: span %s lies outside the %d-bit register", ErrBounds, field, s, width)
		}
		mask |= s.Mask()
	}
	return spans, nil
}

func parseAccess(modes, defaults []string) (AccessMode, error) {
	if len(modes) == 0 {
		modes = defaults
	}
	if len(modes) == 0 {
		return ReadWrite, nil
	}
	var read, write bool
	for _, m := range modes {
		switch m {
		case "R", "r":
			read = true
		case "W", "w":
			write = true
		default:
			return ReadWrite, fmt.Errorf("%w: unknown access mode %q", ErrSchema, m)
		}
	}
	switch {
	case read && write:
		return ReadWrite, nil
	case read:
		return ReadOnly, nil
	default:
		return WriteOnly, nil
	}
}

var _ graph.Node = (*layoutNode)(nil)
