package regmap

import (
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// Listing is the raw descriptor as it appears on disk, before any resolution
// or validation. Mappings are decoded through yaml.Node so that enums,
// layouts, registers and fields keep their declaration order; everything
// downstream derives its output order from it.
type Listing struct {
	Name      string
	Docs      Docs
	Defaults  DefaultsListing
	Enums     []EnumListing
	Layouts   []LayoutListing
	Registers []RegisterListing
}

type DefaultsListing struct {
	Bitwidth uint     `yaml:"bitwidth"`
	Access   []string `yaml:"access"`
}

type EnumEntryListing struct {
	Name  string
	Val   uint64
	Brief string
	Doc   string
}

type EnumListing struct {
	Name    string
	Width   uint
	Brief   string
	Doc     string
	Entries []EnumEntryListing
}

type FieldListing struct {
	Name    string
	Bits    BitsListing `yaml:"bits"`
	Accepts string      `yaml:"accepts"`
	Use     string      `yaml:"use"`
	Access  []string    `yaml:"access"`
	Default *uint64     `yaml:"default"`
	Value   *uint64     `yaml:"value"`
	Overlap bool        `yaml:"overlap"`
	Brief   string      `yaml:"brief"`
	Doc     string      `yaml:"doc"`
}

type LayoutListing struct {
	Name     string
	Bitwidth uint
	Brief    string
	Doc      string
	Fields   []FieldListing
}

type RegisterListing struct {
	Name     string
	Adr      uint64
	Bitwidth uint
	Reset    *uint64
	Use      string
	Fields   []FieldListing
	Brief    string
	Doc      string
}

// BitsListing is a list of bit positions and inclusive ranges, e.g.
// [7], [0-3] or [1-3, 4, "6-7"]. Ranges are kept in declared order.
type BitsListing []Span

func (b *BitsListing) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind != yaml.SequenceNode {
		return fmt.Errorf("%w: line %d: bits must be a list", ErrSchema, node.Line)
	}
	var spans []Span
	for _, item := range node.Content {
		span, err := parseSpan(item)
		if err != nil {
			return err
		}
		spans = append(spans, span)
	}
	if len(spans) == 0 {
		return fmt.Errorf("%w: line %d: empty bit list", ErrSchema, node.Line)
	}
	*b = spans
	return nil
}

func parseSpan(node *yaml.Node) (Span, error) {
	// A bare integer addresses a single bit.
	var bit uint
	if err := node.Decode(&bit); err == nil {
		if bit >= MaxBitWidth {
			return Span{}, fmt.Errorf("%w: line %d: bit %d exceeds the %d-bit limit", ErrSchema, node.Line, bit, MaxBitWidth)
		}
		return Span{Lo: bit, Hi: bit}, nil
	}

	var s string
	if err := node.Decode(&s); err != nil {
		return Span{}, fmt.Errorf("%w: line %d: invalid bit range", ErrSchema, node.Line)
	}
	lo, hi, ok := splitRange(s)
	if !ok {
		return Span{}, fmt.Errorf("%w: line %d: invalid bit range %q", ErrSchema, node.Line, s)
	}
	if lo > hi || hi >= MaxBitWidth {
		return Span{}, fmt.Errorf("%w: line %d: invalid bit range %q", ErrSchema, node.Line, s)
	}
	return Span{Lo: lo, Hi: hi}, nil
}

func splitRange(s string) (lo, hi uint, ok bool) {
	parts := strings.SplitN(s, "-", 2)
	if len(parts) != 2 {
		return 0, 0, false
	}
	l, err := strconv.ParseUint(strings.TrimSpace(parts[0]), 0, 8)
	if err != nil {
		return 0, 0, false
	}
	h, err := strconv.ParseUint(strings.TrimSpace(parts[1]), 0, 8)
	if err != nil {
		return 0, 0, false
	}
	return uint(l), uint(h), true
}

func (l *Listing) UnmarshalYAML(node *yaml.Node) error {
	var aux struct {
		Name      string          `yaml:"name"`
		Brief     string          `yaml:"brief"`
		Doc       string          `yaml:"doc"`
		Defaults  DefaultsListing `yaml:"defaults"`
		Enums     yaml.Node       `yaml:"enums"`
		Layouts   yaml.Node       `yaml:"layouts"`
		Registers yaml.Node       `yaml:"registers"`
	}
	if err := node.Decode(&aux); err != nil {
		return err
	}
	l.Name = aux.Name
	l.Docs = Docs{Brief: aux.Brief, Doc: aux.Doc}
	l.Defaults = aux.Defaults

	err := eachNamed(&aux.Enums, func(name string, value *yaml.Node) error {
		e := EnumListing{Name: name}
		if err := e.decode(value); err != nil {
			return err
		}
		l.Enums = append(l.Enums, e)
		return nil
	})
	if err != nil {
		return err
	}

	err = eachNamed(&aux.Layouts, func(name string, value *yaml.Node) error {
		lay := LayoutListing{Name: name}
		if err := lay.decode(value); err != nil {
			return err
		}
		l.Layouts = append(l.Layouts, lay)
		return nil
	})
	if err != nil {
		return err
	}

	return eachNamed(&aux.Registers, func(name string, value *yaml.Node) error {
		r := RegisterListing{Name: name}
		if err := r.decode(value); err != nil {
			return err
		}
		l.Registers = append(l.Registers, r)
		return nil
	})
}

func (e *EnumListing) decode(node *yaml.Node) error {
	var aux struct {
		Width uint      `yaml:"width"`
		Brief string    `yaml:"brief"`
		Doc   string    `yaml:"doc"`
		Enum  yaml.Node `yaml:"enum"`
	}
	if err := node.Decode(&aux); err != nil {
		return err
	}
	e.Width = aux.Width
	e.Brief = aux.Brief
	e.Doc = aux.Doc
	return eachNamed(&aux.Enum, func(name string, value *yaml.Node) error {
		var entry struct {
			Val   *uint64 `yaml:"val"`
			Brief string  `yaml:"brief"`
			Doc   string  `yaml:"doc"`
		}
		if err := value.Decode(&entry); err != nil {
			return err
		}
		if entry.Val == nil {
			return fmt.Errorf("%w: enum entry %s.%s is missing a value", ErrSchema, e.Name, name)
		}
		e.Entries = append(e.Entries, EnumEntryListing{
			Name:  name,
			Val:   *entry.Val,
			Brief: entry.Brief,
			Doc:   entry.Doc,
		})
		return nil
	})
}

func (l *LayoutListing) decode(node *yaml.Node) error {
	var aux struct {
		Bitwidth uint      `yaml:"bitwidth"`
		Brief    string    `yaml:"brief"`
		Doc      string    `yaml:"doc"`
		Layout   yaml.Node `yaml:"layout"`
	}
	if err := node.Decode(&aux); err != nil {
		return err
	}
	l.Bitwidth = aux.Bitwidth
	l.Brief = aux.Brief
	l.Doc = aux.Doc
	fields, err := decodeFields(&aux.Layout)
	if err != nil {
		return err
	}
	l.Fields = fields
	return nil
}

func (r *RegisterListing) decode(node *yaml.Node) error {
	var aux struct {
		Adr      uint64    `yaml:"adr"`
		Bitwidth uint      `yaml:"bitwidth"`
		Reset    *uint64   `yaml:"reset"`
		Use      string    `yaml:"use"`
		Layout   yaml.Node `yaml:"layout"`
		Brief    string    `yaml:"brief"`
		Doc      string    `yaml:"doc"`
	}
	if err := node.Decode(&aux); err != nil {
		return err
	}
	r.Adr = aux.Adr
	r.Bitwidth = aux.Bitwidth
	r.Reset = aux.Reset
	r.Use = aux.Use
	r.Brief = aux.Brief
	r.Doc = aux.Doc
	fields, err := decodeFields(&aux.Layout)
	if err != nil {
		return err
	}
	r.Fields = fields
	return nil
}

func decodeFields(node *yaml.Node) ([]FieldListing, error) {
	var fields []FieldListing
	err := eachNamed(node, func(name string, value *yaml.Node) error {
		f := FieldListing{Name: name}
		if err := value.Decode(&f); err != nil {
			return err
		}
		fields = append(fields, f)
		return nil
	})
	return fields, err
}

// eachNamed walks a YAML mapping in document order, calling fn once per
// key/value pair. An absent or empty node is not an error.
func eachNamed(node *yaml.Node, fn func(name string, value *yaml.Node) error) error {
	if node == nil || node.Kind == 0 || node.Tag == "!!null" {
		return nil
	}
	if node.Kind != yaml.MappingNode {
		return fmt.Errorf("%w: line %d: expected a mapping", ErrSchema, node.Line)
	}
	for i := 0; i+1 < len(node.Content); i += 2 {
		var name string
		if err := node.Content[i].Decode(&name); err != nil {
			return err
		}
		if err := fn(name, node.Content[i+1]); err != nil {
			return err
		}
	}
	return nil
}

// FromYAML reads and decodes a register listing. Any decoding failure is a
// schema error: the run cannot proceed without a well-formed descriptor.
func FromYAML(r io.Reader) (*Listing, error) {
	buf, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	var l Listing
	if err := yaml.Unmarshal(buf, &l); err != nil {
		if errors.Is(err, ErrSchema) {
			return nil, err
		}
		return nil, errors.Join(ErrSchema, err)
	}
	if l.Name == "" {
		return nil, fmt.Errorf("%w: listing has no name", ErrSchema)
	}
	return &l, nil
}
