// Package rust emits a Rust module in the bitfield style: one tuple struct
// per register wrapping the smallest fitting unsigned integer, with typed
// accessors and to/from byte conversions per selected endianness.
package rust

import (
	"fmt"
	"io"
	"strings"

	"omibyte.io/reginald/generator"
	"omibyte.io/reginald/regmap"
)

type rsgen struct{}

func New() generator.Generator {
	return &rsgen{}
}

func (g *rsgen) Filename(m *regmap.RegisterMap) string {
	return snake(m.Name) + ".rs"
}

func (g *rsgen) Generate(w io.Writer, m *regmap.RegisterMap, opts generator.Options) error {
	var header strings.Builder
	fmt.Fprintf(&header, "//! `%s` register map.\n", m.Name)
	for _, line := range m.Docs.Lines("//! ") {
		fmt.Fprintln(&header, line)
	}
	fmt.Fprintln(&header, "//!")
	fmt.Fprintln(&header, "//! Note: do not edit: generated by reginald.")
	fmt.Fprintln(&header, "#![allow(clippy::identity_op)]")
	fmt.Fprintln(&header, "#![allow(clippy::eq_op)]")

	if len(m.Enums) > 0 {
		fmt.Fprintln(&header)
		fmt.Fprintln(&header, sectionComment("Shared Enums"))
		for _, e := range m.Enums {
			writeEnum(&header, e, opts)
		}
	}
	if _, err := io.WriteString(w, header.String()); err != nil {
		return err
	}

	chunks, err := generator.EmitRegisters(m.Registers, opts, func(reg *regmap.Register) ([]byte, error) {
		var buf strings.Builder
		writeRegister(&buf, m, reg, opts)
		return []byte(buf.String()), nil
	})
	if err != nil {
		return err
	}
	return generator.WriteChunks(w, chunks)
}

func writeEnum(w io.Writer, e *regmap.Enum, opts generator.Options) {
	name := enumName(e, opts)
	utype := uintType(e.Width)

	fmt.Fprintln(w)
	fmt.Fprintf(w, "/// `%s`\n", e.Name)
	for _, line := range e.Docs.Lines("/// ") {
		fmt.Fprintln(w, line)
	}
	fmt.Fprintln(w, "#[derive(Clone, Copy, PartialEq, Eq, Debug)]")
	fmt.Fprintf(w, "#[repr(%s)]\n", utype)
	fmt.Fprintf(w, "pub enum %s {\n", name)
	for _, entry := range e.Entries {
		if entry.Docs.Brief != "" {
			fmt.Fprintf(w, "    /// %s\n", entry.Docs.Brief)
		}
		fmt.Fprintf(w, "    %s = 0x%X,\n", pascal(entry.Name), entry.Value)
	}
	fmt.Fprintln(w, "}")

	if e.Exhaustive(e.Width) {
		// Every value of the masked width names an entry, so conversion
		// never fails.
		fmt.Fprintln(w)
		fmt.Fprintf(w, "impl From<%s> for %s {\n", utype, name)
		fmt.Fprintf(w, "    fn from(value: %s) -> Self {\n", utype)
		fmt.Fprintf(w, "        match value & 0x%X {\n", regmap.BitMask(e.Width))
		for _, entry := range e.Entries {
			fmt.Fprintf(w, "            0x%X => Self::%s,\n", entry.Value, pascal(entry.Name))
		}
		fmt.Fprintln(w, "            _ => unreachable!(),")
		fmt.Fprintln(w, "        }")
		fmt.Fprintln(w, "    }")
		fmt.Fprintln(w, "}")
	} else {
		fmt.Fprintln(w)
		fmt.Fprintf(w, "impl TryFrom<%s> for %s {\n", utype, name)
		fmt.Fprintln(w, "    type Error = ();")
		fmt.Fprintln(w)
		fmt.Fprintf(w, "    fn try_from(value: %s) -> Result<Self, Self::Error> {\n", utype)
		fmt.Fprintln(w, "        match value {")
		for _, entry := range e.Entries {
			fmt.Fprintf(w, "            0x%X => Ok(Self::%s),\n", entry.Value, pascal(entry.Name))
		}
		fmt.Fprintln(w, "            _ => Err(()),")
		fmt.Fprintln(w, "        }")
		fmt.Fprintln(w, "    }")
		fmt.Fprintln(w, "}")
	}
}

func writeRegister(w io.Writer, m *regmap.RegisterMap, reg *regmap.Register, opts generator.Options) {
	name := pascal(reg.Name)
	raw := uintType(reg.Width)
	nbytes := reg.ByteWidth()
	addrType := uintType(regmap.MSBPos(m.MaxAddress()) + 1)

	fmt.Fprintln(w)
	fmt.Fprintln(w, sectionComment(reg.Name+" Register"))
	fmt.Fprintln(w)
	fmt.Fprintf(w, "/// `%s` register address\n", reg.Name)
	fmt.Fprintf(w, "pub const %s_ADDRESS: %s = 0x%X;\n", screaming(reg.Name), addrType, reg.Address)

	for _, endian := range opts.EndiannessSet() {
		if reg.Reset == nil {
			continue
		}
		layout := regmap.Resolve(reg, endian)
		fmt.Fprintln(w)
		fmt.Fprintf(w, "/// `%s` %s-endian reset value\n", reg.Name, endian)
		fmt.Fprintf(w, "pub const %s_RESET_%s: [u8; %d] = [%s];\n",
			screaming(reg.Name), strings.ToUpper(endian.Suffix()), nbytes,
			byteLiterals(resetBytes(layout, *reg.Reset)))
	}

	fmt.Fprintln(w)
	fmt.Fprintf(w, "/// `%s`\n", reg.Name)
	for _, line := range reg.Docs.Lines("/// ") {
		fmt.Fprintln(w, line)
	}
	fmt.Fprintln(w, "#[derive(Clone, Copy, PartialEq, Eq, Debug)]")
	fmt.Fprintf(w, "pub struct %s(pub %s);\n", name, raw)

	fmt.Fprintln(w)
	fmt.Fprintf(w, "impl %s {\n", name)
	fmt.Fprintln(w, "    /// Value with every bit zero.")
	fmt.Fprintln(w, "    pub const fn zeroed() -> Self {")
	fmt.Fprintln(w, "        Self(0)")
	fmt.Fprintln(w, "    }")

	for _, endian := range opts.EndiannessSet() {
		layout := regmap.Resolve(reg, endian)
		writeByteConversions(w, layout, opts)
	}

	for _, f := range reg.Fields {
		writeFieldAccessors(w, f, raw, opts)
	}
	fmt.Fprintln(w, "}")
}

func writeByteConversions(w io.Writer, layout *regmap.ResolvedLayout, opts generator.Options) {
	reg := layout.Register
	raw := uintType(reg.Width)
	nbytes := reg.ByteWidth()
	suffix := layout.Endianness.Suffix()

	fmt.Fprintln(w)
	fmt.Fprintf(w, "    /// Read the register from its %d-byte %s-endian form.\n", nbytes, layout.Endianness)
	fmt.Fprintf(w, "    pub fn from_%s_bytes(bytes: [u8; %d]) -> Self {\n", suffix, nbytes)
	parts := make([]string, nbytes)
	for i := 0; i < nbytes; i++ {
		logical := i
		if layout.Endianness == regmap.BigEndian {
			logical = nbytes - 1 - i
		}
		parts[i] = fmt.Sprintf("((bytes[%d] as %s) << %d)", i, raw, 8*logical)
	}
	fmt.Fprintf(w, "        Self(%s)\n", strings.Join(parts, " | "))
	fmt.Fprintln(w, "    }")

	fmt.Fprintln(w)
	fmt.Fprintf(w, "    /// Write the register into its %d-byte %s-endian form.\n", nbytes, layout.Endianness)
	fmt.Fprintf(w, "    pub fn to_%s_bytes(&self) -> [u8; %d] {\n", suffix, nbytes)
	fmt.Fprintf(w, "        let raw = %s;\n", packedRawExpr(reg, opts))
	out := make([]string, nbytes)
	for i := 0; i < nbytes; i++ {
		logical := i
		if layout.Endianness == regmap.BigEndian {
			logical = nbytes - 1 - i
		}
		out[i] = fmt.Sprintf("(raw >> %d) as u8", 8*logical)
	}
	fmt.Fprintf(w, "        [%s]\n", strings.Join(out, ", "))
	fmt.Fprintln(w, "    }")
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

	expr := "self.0"
	if opts.UnusedBits == regmap.ZeroFill {
		expr = fmt.Sprintf("(self.0 & 0x%X)", reg.OwnedMask())
	}
	if fixedMask != 0 {
		expr = fmt.Sprintf("(%s & !0x%X) | 0x%X", expr, fixedMask, fixedBits)
	}
	return expr
}

func writeFieldAccessors(w io.Writer, f *regmap.Field, raw string, opts generator.Options) {
	if !f.Packable() {
		return
	}
	name := snake(f.Name)

	if f.Access.Readable() {
		fmt.Fprintln(w)
		fmt.Fprintf(w, "    /// Read the `%s` field.\n", f.Name)
		if f.Docs.Brief != "" {
			fmt.Fprintln(w, "    ///")
			fmt.Fprintf(w, "    /// %s\n", f.Docs.Brief)
		}
		gather := gatherExpr(f, raw)
		switch {
		case f.Kind == regmap.FieldBool:
			fmt.Fprintf(w, "    pub fn %s(&self) -> bool {\n", name)
			fmt.Fprintf(w, "        (%s) != 0\n", gather)
		// Conversion shape must agree with the impl writeEnum generated
		// for this enum, whatever width the field itself has. The From
		// impl masks to the enum width, so headroom bits are dropped.
		case f.Kind == regmap.FieldEnum && f.Enum.Exhaustive(f.Enum.Width):
			fmt.Fprintf(w, "    pub fn %s(&self) -> %s {\n", name, enumName(f.Enum, opts))
			fmt.Fprintf(w, "        %s::from((%s) as %s)\n", enumName(f.Enum, opts), gather, uintType(f.Enum.Width))
		case f.Kind == regmap.FieldEnum:
			fmt.Fprintf(w, "    pub fn %s(&self) -> Result<%s, ()> {\n", name, enumName(f.Enum, opts))
			fmt.Fprintf(w, "        %s::try_from((%s) as %s)\n", enumName(f.Enum, opts), gather, uintType(f.Enum.Width))
		default:
			fmt.Fprintf(w, "    pub fn %s(&self) -> %s {\n", name, uintType(f.Width()))
			fmt.Fprintf(w, "        (%s) as %s\n", gather, uintType(f.Width()))
		}
		fmt.Fprintln(w, "    }")
	}

	if f.Access.Writable() {
		fmt.Fprintln(w)
		fmt.Fprintf(w, "    /// Write the `%s` field.\n", f.Name)
		var vtype, vexpr string
		switch f.Kind {
		case regmap.FieldBool:
			vtype = "bool"
			vexpr = fmt.Sprintf("(value as %s)", raw)
		case regmap.FieldEnum:
			vtype = enumName(f.Enum, opts)
			vexpr = fmt.Sprintf("(value as %s)", raw)
		default:
			vtype = uintType(f.Width())
			vexpr = fmt.Sprintf("(value as %s)", raw)
		}
		fmt.Fprintf(w, "    pub fn set_%s(&mut self, value: %s) {\n", name, vtype)
		shift := uint(0)
		for _, span := range f.Spans {
			fmt.Fprintf(w, "        self.0 = (self.0 & !0x%X) | (((%s >> %d) & 0x%X) << %d);\n",
				span.Mask(), vexpr, shift, regmap.BitMask(span.Width()), span.Lo)
			shift += span.Width()
		}
		fmt.Fprintln(w, "    }")
	}
}

// gatherExpr reassembles a field value from the raw register, concatenating
// split spans low to high.
func gatherExpr(f *regmap.Field, raw string) string {
	parts := make([]string, len(f.Spans))
	shift := uint(0)
	for i, span := range f.Spans {
		parts[i] = fmt.Sprintf("(((self.0 >> %d) & 0x%X) << %d)", span.Lo, regmap.BitMask(span.Width()), shift)
		shift += span.Width()
	}
	return strings.Join(parts, " | ")
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
	return fmt.Sprintf("u%d", regmap.FittingUnsignedWidth(width))
}

func sectionComment(title string) string {
	line := "// ==== " + title + " "
	if len(line) < 80 {
		line += strings.Repeat("=", 80-len(line))
	}
	return line
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

func pascal(s string) string {
	var b strings.Builder
	for _, w := range words(s) {
		b.WriteString(strings.ToUpper(w[:1]))
		b.WriteString(w[1:])
	}
	return b.String()
}

func snake(s string) string {
	return strings.Join(words(s), "_")
}

func screaming(s string) string {
	return strings.ToUpper(snake(s))
}
