package golang

import (
	"bytes"
	"go/parser"
	"go/token"
	"strings"
	"testing"

	"omibyte.io/reginald/generator"
	"omibyte.io/reginald/regmap"
)

func testMap() *regmap.RegisterMap {
	mode := &regmap.Enum{
		Name:  "MODE",
		Width: 2,
		Entries: []regmap.EnumEntry{
			{Name: "OFF", Value: 0},
			{Name: "ON", Value: 1},
			{Name: "SLEEP", Value: 2},
		},
	}
	ctrl := &regmap.Register{
		Name:    "CTRL",
		Address: 0x10,
		Width:   8,
		Reset:   u64(0x01),
		Fields: []*regmap.Field{
			{Name: "MODE", Spans: []regmap.Span{{Lo: 0, Hi: 1}}, Kind: regmap.FieldEnum, Enum: mode},
			{Name: "RSVD", Spans: []regmap.Span{{Lo: 4, Hi: 6}}, Kind: regmap.FieldRaw, Fixed: u64(0x7)},
			{Name: "EN", Spans: []regmap.Span{{Lo: 7, Hi: 7}}, Kind: regmap.FieldBool},
		},
	}
	stat := &regmap.Register{
		Name:    "STAT",
		Address: 0x11,
		Width:   16,
		Fields: []*regmap.Field{
			{Name: "COUNT", Spans: []regmap.Span{{Lo: 4, Hi: 11}}, Access: regmap.ReadOnly},
		},
	}
	return &regmap.RegisterMap{
		Name:      "DummyChip",
		Enums:     []*regmap.Enum{mode},
		Registers: []*regmap.Register{ctrl, stat},
	}
}

func u64(v uint64) *uint64 { return &v }

func generate(t *testing.T, opts generator.Options) string {
	t.Helper()
	var buf bytes.Buffer
	if err := New().Generate(&buf, testMap(), opts); err != nil {
		t.Fatalf("Generate: %v", err)
	}
	return buf.String()
}

func TestGenerateParses(t *testing.T) {
	out := generate(t, generator.Options{
		Endianness: []regmap.Endianness{regmap.LittleEndian, regmap.BigEndian},
	})
	fset := token.NewFileSet()
	if _, err := parser.ParseFile(fset, "dummychip.go", out, 0); err != nil {
		t.Fatalf("generated source does not parse: %v\n%s", err, out)
	}
}

func TestGenerateContent(t *testing.T) {
	out := generate(t, generator.Options{})

	for _, want := range []string{
		"// Code generated by reginald. DO NOT EDIT.",
		"package dummychip",
		"type Mode uint8",
		"ModeOff",
		"ModeSleep Mode = 0x2",
		"type Ctrl uint8",
		"const CtrlAddress = 0x10",
		"var CtrlResetLE = [1]byte{0x1}",
		"func (r Ctrl) Mode() Mode {",
		"func (r *Ctrl) SetMode(v Mode) {",
		"func (r Ctrl) En() bool {",
		"func (r Ctrl) LEBytes() [1]byte {",
		"func CtrlFromLEBytes(b [1]byte) Ctrl {",
		"type Stat uint16",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("output is missing %q", want)
		}
	}

	if strings.Contains(out, "Rsvd") {
		t.Error("fixed field leaked accessors")
	}
}

func TestGenerateAccessModes(t *testing.T) {
	out := generate(t, generator.Options{})
	if !strings.Contains(out, "func (r Stat) Count() uint8 {") {
		t.Error("read-only field needs a getter")
	}
	if strings.Contains(out, "SetCount") {
		t.Error("read-only field must not get a setter")
	}
}

func TestGenerateEnumPrefix(t *testing.T) {
	out := generate(t, generator.Options{EnumPrefix: "Hal"})
	if !strings.Contains(out, "type HalMode uint8") {
		t.Error("enum prefix not applied")
	}
}

func TestGenerateDeterministic(t *testing.T) {
	serial := generate(t, generator.Options{NumJobs: 1})
	parallel := generate(t, generator.Options{NumJobs: 8})
	if serial != parallel {
		t.Error("output depends on the number of jobs")
	}
}

func TestFilename(t *testing.T) {
	if got := New().Filename(testMap()); got != "dummychip.go" {
		t.Errorf("Filename = %q", got)
	}
}
