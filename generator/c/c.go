// Package c emits a self-contained C header with funcpack routines: per
// register and endianness a pack/unpack pair over fixed-size byte arrays,
// plus in-place per-field accessors.
package c

import (
	"fmt"
	"io"
	"strings"

	"omibyte.io/reginald/generator"
	"omibyte.io/reginald/regmap"
)

type cgen struct{}

func New() generator.Generator {
	return &cgen{}
}

func (g *cgen) Filename(m *regmap.RegisterMap) string {
	return sanitize(strings.ToLower(m.Name)) + ".h"
}

func (g *cgen) Generate(w io.Writer, m *regmap.RegisterMap, opts generator.Options) error {
	devMacro := strings.ToUpper(sanitize(m.Name))

	var header strings.Builder
	fmt.Fprintln(&header, "/*")
	fmt.Fprintf(&header, " * %s register map.\n", m.Name)
	for _, line := range m.Docs.Lines(" * ") {
		fmt.Fprintln(&header, line)
	}
	fmt.Fprintln(&header, " * Note: do not edit: generated by reginald.")
	fmt.Fprintln(&header, " */")
	fmt.Fprintf(&header, "#ifndef %s_REGS_H_\n", devMacro)
	fmt.Fprintf(&header, "#define %s_REGS_H_\n", devMacro)
	fmt.Fprintln(&header)
	fmt.Fprintln(&header, "#include <stdbool.h>")
	fmt.Fprintln(&header, "#include <stdint.h>")

	if len(m.Enums) > 0 {
		fmt.Fprintln(&header)
		fmt.Fprintln(&header, sectionComment("Shared Enums"))
		for _, e := range m.Enums {
			writeEnum(&header, m, e, opts)
		}
	}
	if _, err := io.WriteString(w, header.String()); err != nil {
		return err
	}

	chunks, err := generator.EmitRegisters(m.Registers, opts, func(reg *regmap.Register) ([]byte, error) {
		var buf strings.Builder
		if err := writeRegister(&buf, m, reg, opts); err != nil {
			return nil, err
		}
		return []byte(buf.String()), nil
	})
	if err != nil {
		return err
	}
	if err := generator.WriteChunks(w, chunks); err != nil {
		return err
	}

	_, err = fmt.Fprintf(w, "\n#endif /* %s_REGS_H_ */\n", devMacro)
	return err
}

func writeEnum(w io.Writer, m *regmap.RegisterMap, e *regmap.Enum, opts generator.Options) {
	dev := strings.ToLower(sanitize(m.Name))

	fmt.Fprintln(w)
	for _, line := range e.Docs.Lines("// ") {
		fmt.Fprintln(w, line)
	}
	fmt.Fprintln(w, "typedef enum {")
	for _, entry := range e.Entries {
		if entry.Docs.Brief != "" {
			fmt.Fprintf(w, "  // %s\n", entry.Docs.Brief)
		}
		fmt.Fprintf(w, "  %s = 0x%XU,\n", enumConst(m, e, entry, opts), entry.Value)
	}
	fmt.Fprintf(w, "} %s_%s_t;\n", dev, strings.ToLower(sanitize(e.Name)))
}

func writeRegister(w io.Writer, m *regmap.RegisterMap, reg *regmap.Register, opts generator.Options) error {
	dev := strings.ToLower(sanitize(m.Name))
	devMacro := strings.ToUpper(sanitize(m.Name))
	regLower := strings.ToLower(sanitize(reg.Name))
	regMacro := strings.ToUpper(sanitize(reg.Name))
	structName := fmt.Sprintf("%s_%s_t", dev, regLower)
	nbytes := reg.ByteWidth()

	fmt.Fprintln(w)
	fmt.Fprintln(w, sectionComment(reg.Name+" Register"))
	for _, line := range reg.Docs.Lines("// ") {
		fmt.Fprintln(w, line)
	}
	fmt.Fprintln(w, "// Fields:")
	for _, f := range reg.Fields {
		spans := make([]string, len(f.Spans))
		for i, s := range f.Spans {
			spans[i] = s.String()
		}
		fmt.Fprintf(w, "//   [%s] %s (%s): %s\n", strings.Join(spans, ", "), f.Name, f.Access, f.Kind)
	}

	fmt.Fprintln(w)
	fmt.Fprintf(w, "#define %s_%s_ADDRESS (0x%XU)\n", devMacro, regMacro, reg.Address)

	for _, endian := range opts.EndiannessSet() {
		layout := regmap.Resolve(reg, endian)

		if reg.Reset != nil {
			fmt.Fprintf(w, "static const uint8_t %s_%s_RESET_%s[%d] = {%s};\n",
				devMacro, regMacro, strings.ToUpper(endian.Suffix()), nbytes,
				byteLiterals(resetBytes(layout, *reg.Reset)))
		}
	}

	// Value struct. Fixed fields carry no caller value and are omitted.
	fmt.Fprintln(w)
	fmt.Fprintf(w, "typedef struct {\n")
	for _, f := range reg.Fields {
		if !f.Packable() {
			continue
		}
		fmt.Fprintf(w, "  %s %s;\n", fieldType(m, f, opts), strings.ToLower(sanitize(f.Name)))
	}
	fmt.Fprintf(w, "} %s;\n", structName)

	for _, endian := range opts.EndiannessSet() {
		layout := regmap.Resolve(reg, endian)
		writePack(w, m, layout, opts)
		writeUnpack(w, m, layout, opts)
		writeAccessors(w, m, layout, opts)
	}
	return nil
}

func writePack(w io.Writer, m *regmap.RegisterMap, layout *regmap.ResolvedLayout, opts generator.Options) {
	reg := layout.Register
	dev := strings.ToLower(sanitize(m.Name))
	regLower := strings.ToLower(sanitize(reg.Name))
	structName := fmt.Sprintf("%s_%s_t", dev, regLower)
	nbytes := reg.ByteWidth()
	suffix := layout.Endianness.Suffix()

	fmt.Fprintln(w)
	fmt.Fprintf(w, "// Pack the %s value struct into a %d-byte %s-endian sequence.\n",
		reg.Name, nbytes, layout.Endianness)
	fmt.Fprintf(w, "static inline void %s_%s_pack_%s(const %s *r, const uint8_t in[%d], uint8_t out[%d]) {\n",
		dev, regLower, suffix, structName, nbytes, nbytes)

	unowned := unownedByteMasks(layout)
	for i := 0; i < nbytes; i++ {
		if opts.UnusedBits == regmap.Preserve && unowned[i] != 0 {
			fmt.Fprintf(w, "  out[%d] = (uint8_t)(in[%d] & 0x%XU);\n", i, i, unowned[i])
		} else {
			fmt.Fprintf(w, "  out[%d] = 0x0U;\n", i)
		}
	}

	for _, fl := range layout.Fields {
		f := fl.Field
		if f.Fixed != nil {
			fmt.Fprintf(w, "  // %s: fixed value.\n", f.Name)
			for _, seg := range fl.Segments {
				bits := byte((*f.Fixed>>seg.Shift)&regmap.BitMask(seg.Width)) << seg.Offset
				fmt.Fprintf(w, "  out[%d] |= 0x%XU;\n", seg.Byte, bits)
			}
			continue
		}
		fmt.Fprintf(w, "  // %s @ [%s]:\n", f.Name, spanList(f))
		expr := packValueExpr(m, f, opts)
		for _, seg := range fl.Segments {
			fmt.Fprintf(w, "  out[%d] |= (uint8_t)(((%s >> %dU) & 0x%XU) << %dU);\n",
				seg.Byte, expr, seg.Shift, regmap.BitMask(seg.Width), seg.Offset)
		}
	}
	fmt.Fprintln(w, "}")
}

func writeUnpack(w io.Writer, m *regmap.RegisterMap, layout *regmap.ResolvedLayout, opts generator.Options) {
	reg := layout.Register
	dev := strings.ToLower(sanitize(m.Name))
	regLower := strings.ToLower(sanitize(reg.Name))
	structName := fmt.Sprintf("%s_%s_t", dev, regLower)
	nbytes := reg.ByteWidth()
	suffix := layout.Endianness.Suffix()

	fmt.Fprintln(w)
	fmt.Fprintf(w, "// Unpack a %d-byte %s-endian sequence into the %s value struct.\n",
		nbytes, layout.Endianness, reg.Name)
	fmt.Fprintf(w, "static inline void %s_%s_unpack_%s(const uint8_t in[%d], %s *r) {\n",
		dev, regLower, suffix, nbytes, structName)

	for _, fl := range layout.Fields {
		f := fl.Field
		if !f.Packable() {
			continue
		}
		fmt.Fprintf(w, "  r->%s = %s;\n", strings.ToLower(sanitize(f.Name)), unpackValueExpr(m, fl, "in", opts))
	}
	fmt.Fprintln(w, "}")
}

func writeAccessors(w io.Writer, m *regmap.RegisterMap, layout *regmap.ResolvedLayout, opts generator.Options) {
	reg := layout.Register
	dev := strings.ToLower(sanitize(m.Name))
	regLower := strings.ToLower(sanitize(reg.Name))
	nbytes := reg.ByteWidth()
	suffix := layout.Endianness.Suffix()

	for _, fl := range layout.Fields {
		f := fl.Field
		if !f.Packable() {
			continue
		}
		fieldLower := strings.ToLower(sanitize(f.Name))
		ctype := fieldType(m, f, opts)

		if f.Access.Writable() {
			fmt.Fprintln(w)
			fmt.Fprintf(w, "static inline void %s_%s_set_%s_%s(uint8_t b[%d], %s v) {\n",
				dev, regLower, fieldLower, suffix, nbytes, ctype)
			expr := setterValueExpr(m, f, opts)
			for _, seg := range fl.Segments {
				fmt.Fprintf(w, "  b[%d] = (uint8_t)((b[%d] & 0x%XU) | (((%s >> %dU) & 0x%XU) << %dU));\n",
					seg.Byte, seg.Byte, 0xFF&^seg.ByteMask(), expr, seg.Shift, regmap.BitMask(seg.Width), seg.Offset)
			}
			fmt.Fprintln(w, "}")
		}

		if f.Access.Readable() {
			fmt.Fprintln(w)
			fmt.Fprintf(w, "static inline %s %s_%s_get_%s_%s(const uint8_t b[%d]) {\n",
				ctype, dev, regLower, fieldLower, suffix, nbytes)
			fmt.Fprintf(w, "  return %s;\n", unpackValueExpr(m, fl, "b", opts))
			fmt.Fprintln(w, "}")
		}
	}
}

// packValueExpr renders the field's struct member as an unsigned value
// suitable for shifting.
func packValueExpr(m *regmap.RegisterMap, f *regmap.Field, opts generator.Options) string {
	name := strings.ToLower(sanitize(f.Name))
	switch f.Kind {
	case regmap.FieldBool:
		return fmt.Sprintf("(uint8_t)(r->%s ? 1U : 0U)", name)
	case regmap.FieldEnum:
		return fmt.Sprintf("(%s)r->%s", uintType(f.Width()), name)
	default:
		return fmt.Sprintf("(%s)r->%s", uintType(f.Width()), name)
	}
}

// setterValueExpr is packValueExpr for a plain parameter.
func setterValueExpr(m *regmap.RegisterMap, f *regmap.Field, opts generator.Options) string {
	switch f.Kind {
	case regmap.FieldBool:
		return "(uint8_t)(v ? 1U : 0U)"
	default:
		return fmt.Sprintf("(%s)v", uintType(f.Width()))
	}
}

// unpackValueExpr reassembles a field value from the named byte array,
// concatenating split spans in declared order.
func unpackValueExpr(m *regmap.RegisterMap, fl regmap.FieldLayout, buf string, opts generator.Options) string {
	f := fl.Field
	utype := uintType(f.Width())

	parts := make([]string, len(fl.Segments))
	for i, seg := range fl.Segments {
		parts[i] = fmt.Sprintf("(((%s)(%s[%d] >> %dU) & 0x%XU) << %dU)",
			utype, buf, seg.Byte, seg.Offset, regmap.BitMask(seg.Width), seg.Shift)
	}
	expr := strings.Join(parts, " | ")

	switch f.Kind {
	case regmap.FieldBool:
		return fmt.Sprintf("(%s) != 0U", expr)
	case regmap.FieldEnum:
		return fmt.Sprintf("(%s)(%s)", fieldType(m, f, opts), expr)
	default:
		return fmt.Sprintf("(%s)(%s)", utype, expr)
	}
}

// unownedByteMasks computes, per output byte, the bits no field claims.
func unownedByteMasks(layout *regmap.ResolvedLayout) []byte {
	masks := make([]byte, layout.Register.ByteWidth())
	for i := range masks {
		masks[i] = 0xFF
	}
	for _, fl := range layout.Fields {
		for _, seg := range fl.Segments {
			masks[seg.Byte] &^= seg.ByteMask()
		}
	}
	return masks
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
		parts[i] = fmt.Sprintf("0x%XU", v)
	}
	return strings.Join(parts, ", ")
}

func fieldType(m *regmap.RegisterMap, f *regmap.Field, opts generator.Options) string {
	switch f.Kind {
	case regmap.FieldBool:
		return "bool"
	case regmap.FieldEnum:
		dev := strings.ToLower(sanitize(m.Name))
		return fmt.Sprintf("%s_%s_t", dev, strings.ToLower(sanitize(f.Enum.Name)))
	default:
		return uintType(f.Width())
	}
}

func uintType(width uint) string {
	return fmt.Sprintf("uint%d_t", regmap.FittingUnsignedWidth(width))
}

func enumConst(m *regmap.RegisterMap, e *regmap.Enum, entry regmap.EnumEntry, opts generator.Options) string {
	prefix := strings.ToUpper(sanitize(opts.EnumPrefix))
	devMacro := strings.ToUpper(sanitize(m.Name))
	return fmt.Sprintf("%s%s_%s_%s", prefix, devMacro, strings.ToUpper(sanitize(e.Name)), strings.ToUpper(sanitize(entry.Name)))
}

func spanList(f *regmap.Field) string {
	spans := make([]string, len(f.Spans))
	for i, s := range f.Spans {
		spans[i] = s.String()
	}
	return strings.Join(spans, ", ")
}

func sectionComment(title string) string {
	line := "// ==== " + title + " "
	if len(line) < 80 {
		line += strings.Repeat("=", 80-len(line))
	}
	return line
}

// sanitize folds a descriptor name into a C identifier.
func sanitize(s string) string {
	var b strings.Builder
	for _, r := range s {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '_':
			b.WriteRune(r)
		default:
			b.WriteRune('_')
		}
	}
	return b.String()
}
