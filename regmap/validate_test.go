package regmap

import (
	"errors"
	"testing"
)

func u64(v uint64) *uint64 { return &v }

func TestValidateCleanMap(t *testing.T) {
	m := mustBuild(t, dummyDescriptor)
	diags := Validate(m)
	if len(diags.Errors()) != 0 {
		t.Errorf("unexpected errors: %v", diags.Errors())
	}
}

func TestValidateOverlap(t *testing.T) {
	reg := &Register{
		Name:  "R",
		Width: 8,
		Fields: []*Field{
			{Name: "A", Spans: []Span{{0, 3}}},
			{Name: "B", Spans: []Span{{2, 5}}},
		},
	}
	diags := Validate(&RegisterMap{Name: "X", Registers: []*Register{reg}})
	errs := diags.Errors()
	if len(errs) != 1 || !errors.Is(errs[0].Err, ErrOverlap) {
		t.Fatalf("diags = %v, want one overlap error", diags)
	}
	if !diags.FailedRegisters()["R"] {
		t.Error("R should be marked failed")
	}
}

func TestValidateFlaggedOverlapAllowed(t *testing.T) {
	reg := &Register{
		Name:  "R",
		Width: 8,
		Fields: []*Field{
			{Name: "ALL", Spans: []Span{{0, 7}}, Overlap: true},
			{Name: "LOW", Spans: []Span{{0, 3}}, Overlap: true},
		},
	}
	diags := Validate(&RegisterMap{Name: "X", Registers: []*Register{reg}})
	if len(diags.Errors()) != 0 {
		t.Errorf("flagged overlap should pass, got %v", diags)
	}
}

func TestValidateOneSidedOverlapFlag(t *testing.T) {
	reg := &Register{
		Name:  "R",
		Width: 8,
		Fields: []*Field{
			{Name: "A", Spans: []Span{{0, 3}}, Overlap: true},
			{Name: "B", Spans: []Span{{2, 5}}},
		},
	}
	diags := Validate(&RegisterMap{Name: "X", Registers: []*Register{reg}})
	if len(diags.Errors()) != 1 {
		t.Errorf("one-sided flag should still fail, got %v", diags)
	}
}

func TestValidateEnumFit(t *testing.T) {
	wide := &Enum{Name: "E", Width: 4, Entries: []EnumEntry{{Name: "A", Value: 0xF}}}

	tooNarrow := &Register{
		Name:  "NARROW",
		Width: 8,
		Fields: []*Field{
			{Name: "F", Spans: []Span{{0, 1}}, Kind: FieldEnum, Enum: wide},
		},
	}
	headroom := &Register{
		Name:  "WIDE",
		Width: 8,
		Fields: []*Field{
			{Name: "F", Spans: []Span{{0, 5}}, Kind: FieldEnum, Enum: wide},
		},
	}
	diags := Validate(&RegisterMap{Name: "X", Registers: []*Register{tooNarrow, headroom}})

	if failed := diags.FailedRegisters(); !failed["NARROW"] || failed["WIDE"] {
		t.Errorf("failed = %v", failed)
	}
	if len(diags.Warnings()) != 1 {
		t.Errorf("headroom should warn, got %v", diags)
	}
}

func TestValidateBounds(t *testing.T) {
	reg := &Register{
		Name:  "R",
		Width: 8,
		Fields: []*Field{
			{Name: "F", Spans: []Span{{6, 9}}},
		},
	}
	diags := Validate(&RegisterMap{Name: "X", Registers: []*Register{reg}})
	errs := diags.Errors()
	if len(errs) != 1 || !errors.Is(errs[0].Err, ErrBounds) {
		t.Fatalf("diags = %v, want bounds error", diags)
	}
}

func TestValidateValuesFit(t *testing.T) {
	e := &Enum{Name: "E", Width: 2, Entries: []EnumEntry{{Name: "A", Value: 0}, {Name: "B", Value: 1}}}

	tests := []struct {
		name string
		reg  *Register
		want error
	}{
		{
			"register width not byte multiple",
			&Register{Name: "R", Width: 12, Fields: []*Field{{Name: "F", Spans: []Span{{0, 0}}}}},
			ErrWidth,
		},
		{
			"reset too wide",
			&Register{Name: "R", Width: 8, Reset: u64(0x1FF), Fields: []*Field{{Name: "F", Spans: []Span{{0, 0}}}}},
			ErrWidth,
		},
		{
			"default too wide",
			&Register{Name: "R", Width: 8, Fields: []*Field{{Name: "F", Spans: []Span{{0, 1}}, Default: u64(0x4)}}},
			ErrWidth,
		},
		{
			"default not an enum value",
			&Register{Name: "R", Width: 8, Fields: []*Field{{Name: "F", Spans: []Span{{0, 1}}, Kind: FieldEnum, Enum: e, Default: u64(3)}}},
			ErrWidth,
		},
		{
			"fixed too wide",
			&Register{Name: "R", Width: 8, Fields: []*Field{{Name: "F", Spans: []Span{{0, 1}}, Kind: FieldRaw, Fixed: u64(0x7)}}},
			ErrWidth,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			diags := Validate(&RegisterMap{Name: "X", Registers: []*Register{tt.reg}})
			errs := diags.Errors()
			if len(errs) == 0 {
				t.Fatal("no errors reported")
			}
			if !errors.Is(errs[0].Err, tt.want) {
				t.Errorf("err = %v, want %v", errs[0].Err, tt.want)
			}
		})
	}
}
