// Package golang emits a Go package with typed register values and field
// accessors, gofmt'd before it is written out.
package golang

import (
	"fmt"
	"go/format"
	"io"
	"strings"

	"omibyte.io/reginald/generator"
	"omibyte.io/reginald/regmap"
)

type gogen struct{}

func New() generator.Generator {
	return &gogen{}
}

func (g *gogen) Filename(m *regmap.RegisterMap) string {
	return strings.ToLower(ident(m.Name)) + ".go"
}

func (g *gogen) Generate(w io.Writer, m *regmap.RegisterMap, opts generator.Options) error {
	var buf strings.Builder
	fmt.Fprintln(&buf, "// Code generated by reginald. DO NOT EDIT.")
	fmt.Fprintln(&buf)
	if !m.Docs.Empty() {
		for _, line := range m.Docs.Lines("// ") {
			fmt.Fprintln(&buf, line)
		}
	}
	fmt.Fprintf(&buf, "package %s\n", strings.ToLower(ident(m.Name)))

	for _, e := range m.Enums {
		writeEnum(&buf, e, opts)
	}

	chunks, err := generator.EmitRegisters(m.Registers, opts, func(reg *regmap.Register) ([]byte, error) {
		var rb strings.Builder
		writeRegister(&rb, m, reg, opts)
		return []byte(rb.String()), nil
	})
	if err != nil {
		return err
	}
	for _, chunk := range chunks {
		buf.Write(chunk)
	}

	// Guard against emitter mistakes before anything reaches disk.
	formatted, err := format.Source([]byte(buf.String()))
	if err != nil {
		return fmt.Errorf("formatting generated package %s: %w", m.Name, err)
	}
	_, err = w.Write(formatted)
	return err
}

func writeEnum(w io.Writer, e *regmap.Enum, opts generator.Options) {
	name := enumName(e, opts)
	utype := uintType(e.Width)

	fmt.Fprintln(w)
	for _, line := range e.Docs.Lines("// ") {
		fmt.Fprintln(w, line)
	}
	fmt.Fprintf(w, "type %s %s\n", name, utype)
	fmt.Fprintln(w)
	fmt.Fprintln(w, "const (")
	for _, entry := range e.Entries {
		if entry.Docs.Brief != "" {
			fmt.Fprintf(w, "// %s\n", entry.Docs.Brief)
		}
		fmt.Fprintf(w, "%s%s %s = 0x%X\n", name, pascal(entry.Name), name, entry.Value)
	}
	fmt.Fprintln(w, ")")
}

func writeRegister(w io.Writer, m *regmap.RegisterMap, reg *regmap.Register, opts generator.Options) {
	name := pascal(reg.Name)
	raw := uintType(reg.Width)
	nbytes := reg.ByteWidth()

	fmt.Fprintln(w)
	for _, line := range reg.Docs.Lines("// ") {
		fmt.Fprintln(w, line)
	}
	fmt.Fprintf(w, "// %s is the %d-bit register at address 0x%X.\n", name, reg.Width, reg.Address)
	fmt.Fprintf(w, "type %s %s\n", name, raw)
	fmt.Fprintln(w)
	fmt.Fprintf(w, "const %sAddress = 0x%X\n", name, reg.Address)

	for _, endian := range opts.EndiannessSet() {
		if reg.Reset == nil {
			continue
		}
		layout := regmap.Resolve(reg, endian)
		fmt.Fprintln(w)
		fmt.Fprintf(w, "// %sReset%s is the %s-endian reset value of %s.\n",
			name, strings.ToUpper(endian.Suffix()), endian, name)
		fmt.Fprintf(w, "var %sReset%s = [%d]byte{%s}\n",
			name, strings.ToUpper(endian.Suffix()), nbytes, byteLiterals(resetBytes(layout, *reg.Reset)))
	}

	for _, f := range reg.Fields {
		writeFieldAccessors(w, name, f, opts)
	}

	for _, endian := range opts.EndiannessSet() {
		layout := regmap.Resolve(reg, endian)
		writeByteConversions(w, layout, opts)
	}
}

func writeFieldAccessors(w io.Writer, regName string, f *regmap.Field, opts generator.Options) {
	if !f.Packable() {
		return
	}
	fieldName := pascal(f.Name)

	if f.Access.Readable() {
		fmt.Fprintln(w)
		fmt.Fprintf(w, "// %s reads the %s field.\n", fieldName, f.Name)
		gather := gatherExpr(f)
		switch f.Kind {
		case regmap.FieldBool:
			fmt.Fprintf(w, "func (r %s) %s() bool {\n", regName, fieldName)
			fmt.Fprintf(w, "return %s != 0\n", gather)
		case regmap.FieldEnum:
			fmt.Fprintf(w, "func (r %s) %s() %s {\n", regName, fieldName, enumName(f.Enum, opts))
			fmt.Fprintf(w, "return %s(%s)\n", enumName(f.Enum, opts), gather)
		default:
			fmt.Fprintf(w, "func (r %s) %s() %s {\n", regName, fieldName, uintType(f.Width()))
			fmt.Fprintf(w, "return %s(%s)\n", uintType(f.Width()), gather)
		}
		fmt.Fprintln(w, "}")
	}

	if f.Access.Writable() {
		var vtype string
		switch f.Kind {
		case regmap.FieldBool:
			vtype = "bool"
		case regmap.FieldEnum:
			vtype = enumName(f.Enum, opts)
		default:
			vtype = uintType(f.Width())
		}
		fmt.Fprintln(w)
		fmt.Fprintf(w, "// Set%s writes the %s field.\n", fieldName, f.Name)
		fmt.Fprintf(w, "func (r *%s) Set%s(v %s) {\n", regName, fieldName, vtype)
		if f.Kind == regmap.FieldBool {
			span := f.Spans[0]
			fmt.Fprintf(w, "if v {\n*r |= 1 << %d\n} else {\n*r &^= 1 << %d\n}\n", span.Lo, span.Lo)
		} else {
			shift := uint(0)
			for _, span := range f.Spans {
				fmt.Fprintf(w, "*r = *r&^0x%X | %s(uint64(v)>>%d&0x%X)<<%d\n",
					span.Mask(), regName, shift, regmap.BitMask(span.Width()), span.Lo)
				shift += span.Width()
			}
		}
		fmt.Fprintln(w, "}")
	}
}

func writeByteConversions(w io.Writer, layout *regmap.ResolvedLayout, opts generator.Options) {
	reg := layout.Register
	name := pascal(reg.Name)
	nbytes := reg.ByteWidth()
	suffix := strings.ToUpper(layout.Endianness.Suffix())

	fmt.Fprintln(w)
	fmt.Fprintf(w, "// %sBytes returns the %s-endian form of the register.\n", suffix, layout.Endianness)
	fmt.Fprintf(w, "func (r %s) %sBytes() [%d]byte {\n", name, suffix, nbytes)
	fmt.Fprintf(w, "raw := %s\n", packedRawExpr(reg, opts))
	out := make([]string, nbytes)
	for i := 0; i < nbytes; i++ {
		logical := i
		if layout.Endianness == regmap.BigEndian {
			logical = nbytes - 1 - i
		}
		out[i] = fmt.Sprintf("byte(raw >> %d)", 8*logical)
	}
	fmt.Fprintf(w, "return [%d]byte{%s}\n", nbytes, strings.Join(out, ", "))
	fmt.Fprintln(w, "}")

	fmt.Fprintln(w)
	fmt.Fprintf(w, "// %sFrom%sBytes reads the register from its %s-endian form.\n", name, suffix, layout.Endianness)
	fmt.Fprintf(w, "func %sFrom%sBytes(b [%d]byte) %s {\n", name, suffix, nbytes, name)
	parts := make([]string, nbytes)
	for i := 0; i < nbytes; i++ {
		logical := i
		if layout.Endianness == regmap.BigEndian {
			logical = nbytes - 1 - i
		}
		parts[i] = fmt.Sprintf("%s(b[%d])<<%d", name, i, 8*logical)
	}
	fmt.Fprintf(w, "return %s\n", strings.Join(parts, " | "))
	fmt.Fprintln(w, "}")
}

// packedRawExpr applies the unused-bit policy and forces fixed always-write
// fields before the raw value is serialized.
func packedRawExpr(reg *regmap.Register, opts generator.Options) string {
	var fixedMask, fixedBits uint64
	for _, f := range reg.Fields {
		if f.Fixed == nil {
			continue
		}
		shift := uint(0)
		for _, span := range f.Spans {
			fixedMask |= span.Mask()
			fixedBits |= ((*f.Fixed >> shift) & regmap.BitMask(span.Width())) << span.Lo
			shift += span.Width()
		}
	}

	expr := "uint64(r)"
	if opts.UnusedBits == regmap.ZeroFill {
		expr = fmt.Sprintf("uint64(r) & 0x%X", reg.OwnedMask())
	}
	if fixedMask != 0 {
		expr = fmt.Sprintf("%s&^0x%X | 0x%X", expr, fixedMask, fixedBits)
	}
	return expr
}

// gatherExpr reassembles a field value from the register, concatenating split
// spans low to high.
func gatherExpr(f *regmap.Field) string {
	parts := make([]string, len(f.Spans))
	shift := uint(0)
	for i, span := range f.Spans {
		parts[i] = fmt.Sprintf("(uint64(r)>>%d&0x%X)<<%d", span.Lo, regmap.BitMask(span.Width()), shift)
		shift += span.Width()
	}
	if len(parts) == 1 {
		return parts[0]
	}
	return "(" + strings.Join(parts, " | ") + ")"
}

func resetBytes(layout *regmap.ResolvedLayout, reset uint64) []byte {
	nbytes := layout.Register.ByteWidth()
	out := make([]byte, nbytes)
	for logical := 0; logical < nbytes; logical++ {
		index := logical
		if layout.Endianness == regmap.BigEndian {
			index = nbytes - 1 - logical
		}
		out[index] = byte(reset >> (8 * logical))
	}
	return out
}

func byteLiterals(b []byte) string {
	parts := make([]string, len(b))
	for i, v := range b {
		parts[i] = fmt.Sprintf("0x%X", v)
	}
	return strings.Join(parts, ", ")
}

func enumName(e *regmap.Enum, opts generator.Options) string {
	return pascal(opts.EnumPrefix) + pascal(e.Name)
}

func uintType(width uint) string {
	return fmt.Sprintf("uint%d", regmap.FittingUnsignedWidth(width))
}

func pascal(s string) string {
	var b strings.Builder
	for _, w := range words(s) {
		b.WriteString(strings.ToUpper(w[:1]))
		b.WriteString(w[1:])
	}
	return b.String()
}

func words(s string) []string {
	var out []string
	var cur strings.Builder
	flush := func() {
		if cur.Len() > 0 {
			out = append(out, cur.String())
			cur.Reset()
		}
	}
	var prevLower bool
	for _, r := range s {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			cur.WriteRune(r)
			prevLower = true
		case r >= 'A' && r <= 'Z':
			if prevLower {
				flush()
			}
			cur.WriteRune(r + ('a' - 'A'))
			prevLower = false
		default:
			flush()
			prevLower = false
		}
	}
	flush()
	return out
}

func ident(s string) string {
	var b strings.Builder
	for _, r := range s {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			b.WriteRune(r)
		}
	}
	return b.String()
}
