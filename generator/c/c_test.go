package c

import (
	"bytes"
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

func TestGenerateHeader(t *testing.T) {
	out := generate(t, generator.Options{})

	for _, want := range []string{
		"#ifndef DUMMYCHIP_REGS_H_",
		"#define DUMMYCHIP_REGS_H_",
		"#include <stdbool.h>",
		"#include <stdint.h>",
		"#endif /* DUMMYCHIP_REGS_H_ */",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("output is missing %q", want)
		}
	}
}

func TestGenerateEnum(t *testing.T) {
	out := generate(t, generator.Options{})

	for _, want := range []string{
		"typedef enum {",
		"DUMMYCHIP_MODE_OFF = 0x0U,",
		"DUMMYCHIP_MODE_ON = 0x1U,",
		"DUMMYCHIP_MODE_SLEEP = 0x2U,",
		"} dummychip_mode_t;",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("output is missing %q", want)
		}
	}
}

func TestGenerateEnumPrefix(t *testing.T) {
	out := generate(t, generator.Options{EnumPrefix: "HAL_"})
	if !strings.Contains(out, "HAL_DUMMYCHIP_MODE_OFF = 0x0U,") {
		t.Error("enum prefix not applied")
	}
}

func TestGenerateRegister(t *testing.T) {
	out := generate(t, generator.Options{})

	for _, want := range []string{
		"#define DUMMYCHIP_CTRL_ADDRESS (0x10U)",
		"static const uint8_t DUMMYCHIP_CTRL_RESET_LE[1] = {0x1U};",
		"typedef struct {",
		"dummychip_mode_t mode;",
		"bool en;",
		"} dummychip_ctrl_t;",
		"static inline void dummychip_ctrl_pack_le(const dummychip_ctrl_t *r, const uint8_t in[1], uint8_t out[1]) {",
		"static inline void dummychip_ctrl_unpack_le(const uint8_t in[1], dummychip_ctrl_t *r) {",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("output is missing %q", want)
		}
	}

	// The fixed field never surfaces in the value struct.
	if strings.Contains(out, "rsvd;") {
		t.Error("fixed field leaked into the value struct")
	}
	// Fixed bits are forced on every pack: 0x7 at bits 4-6.
	if !strings.Contains(out, "out[0] |= 0x70U;") {
		t.Error("fixed field bits not packed")
	}
}

func TestGeneratePolicy(t *testing.T) {
	// CTRL owns bits 0-1, 4-6 and 7; bits 2-3 are unowned.
	preserve := generate(t, generator.Options{UnusedBits: regmap.Preserve})
	if !strings.Contains(preserve, "out[0] = (uint8_t)(in[0] & 0xCU);") {
		t.Error("preserve pack should keep the unowned bits 2-3")
	}

	zero := generate(t, generator.Options{UnusedBits: regmap.ZeroFill})
	if strings.Contains(zero, "in[0] &") {
		t.Error("zero-fill pack should not read the input bytes")
	}
	if !strings.Contains(zero, "out[0] = 0x0U;") {
		t.Error("zero-fill pack should clear every byte")
	}
}

func TestGenerateAccessModes(t *testing.T) {
	out := generate(t, generator.Options{})

	if !strings.Contains(out, "dummychip_stat_get_count_le") {
		t.Error("read-only field needs a getter")
	}
	if strings.Contains(out, "dummychip_stat_set_count_le") {
		t.Error("read-only field must not get a setter")
	}
	if !strings.Contains(out, "dummychip_ctrl_set_en_le") || !strings.Contains(out, "dummychip_ctrl_get_en_le") {
		t.Error("read-write field needs both accessors")
	}
}

func TestGenerateBothEndian(t *testing.T) {
	out := generate(t, generator.Options{
		Endianness: []regmap.Endianness{regmap.LittleEndian, regmap.BigEndian},
	})
	for _, want := range []string{
		"dummychip_ctrl_pack_le",
		"dummychip_ctrl_pack_be",
		"dummychip_stat_unpack_le",
		"dummychip_stat_unpack_be",
		"DUMMYCHIP_CTRL_RESET_BE[1] = {0x1U};",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("output is missing %q", want)
		}
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
	if got := New().Filename(testMap()); got != "dummychip.h" {
		t.Errorf("Filename = %q", got)
	}
}
