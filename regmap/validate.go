package regmap

import "fmt"

// Validate checks every register of the map and returns the full set of
// findings. Nothing short-circuits: a register with ten problems yields ten
// diagnostics, and one register's problems never suppress another's.
func Validate(m *RegisterMap) Diagnostics {
	var diags Diagnostics
	for _, reg := range m.Registers {
		diags = append(diags, validateRegister(reg)...)
	}
	return diags
}

func validateRegister(reg *Register) Diagnostics {
	var diags Diagnostics

	fail := func(field string, err error) {
		diags = append(diags, Diagnostic{Severity: SeverityError, Register: reg.Name, Field: field, Err: err})
	}
	warn := func(field string, err error) {
		diags = append(diags, Diagnostic{Severity: SeverityWarning, Register: reg.Name, Field: field, Err: err})
	}

	if reg.Width%8 != 0 {
		fail("", fmt.Errorf("%w: register width %d is not a multiple of 8", ErrWidth, reg.Width))
	}

	if reg.Reset != nil && !FitsWidth(*reg.Reset, reg.Width) {
		fail("", fmt.Errorf("%w: reset value %#x exceeds %d bits", ErrWidth, *reg.Reset, reg.Width))
	}

	for _, f := range reg.Fields {
		if excess := f.Mask() &^ BitMask(reg.Width); excess != 0 {
			fail(f.Name, fmt.Errorf("%w: bits %v exceed the %d-bit register", ErrBounds, MaskToSpans(excess), reg.Width))
		}

		if f.Kind == FieldEnum {
			switch {
			case f.Width() < f.Enum.MinWidth():
				fail(f.Name, fmt.Errorf("%w: %d-bit field cannot hold enum %s (needs %d bits)",
					ErrWidth, f.Width(), f.Enum.Name, f.Enum.MinWidth()))
			case f.Width() > f.Enum.Width:
				// Headroom is legal, but worth pointing out.
				warn(f.Name, fmt.Errorf("%w: %d-bit field is wider than enum %s (%d bits)",
					ErrWidth, f.Width(), f.Enum.Name, f.Enum.Width))
			}
		}

		if f.Default != nil {
			if !FitsWidth(*f.Default, f.Width()) {
				fail(f.Name, fmt.Errorf("%w: default %#x exceeds %d bits", ErrWidth, *f.Default, f.Width()))
			} else if f.Kind == FieldEnum {
				if _, ok := f.Enum.Lookup(*f.Default); !ok {
					fail(f.Name, fmt.Errorf("%w: default %#x is not a value of enum %s", ErrWidth, *f.Default, f.Enum.Name))
				}
			}
		}

		if f.Fixed != nil && !FitsWidth(*f.Fixed, f.Width()) {
			fail(f.Name, fmt.Errorf("%w: fixed value %#x exceeds %d bits", ErrWidth, *f.Fixed, f.Width()))
		}
	}

	for i, a := range reg.Fields {
		for _, b := range reg.Fields[i+1:] {
			if a.Mask()&b.Mask() == 0 {
				continue
			}
			if a.Overlap && b.Overlap {
				// Both sides opted in, e.g. a reserved catch-all.
				continue
			}
			fail(a.Name, fmt.Errorf("%w: fields %s and %s share bits %v",
				ErrOverlap, a.Name, b.Name, MaskToSpans(a.Mask()&b.Mask())))
		}
	}

	return diags
}
