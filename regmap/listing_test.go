package regmap

import (
	"errors"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
)

const dummyDescriptor = `
name: DummyChip
brief: An imaginary chip.
defaults:
  bitwidth: 8
enums:
  MODE:
    width: 2
    brief: Operating mode.
    enum:
      OFF:
        val: 0
      ON:
        val: 1
      SLEEP:
        val: 2
layouts:
  STATUS_BITS:
    bitwidth: 2
    layout:
      READY:
        bits: [0]
        accepts: bool
      ERR:
        bits: [1]
        accepts: bool
registers:
  CTRL:
    adr: 0x10
    reset: 0x00
    layout:
      MODE:
        bits: [0-1]
        accepts: MODE
      SPLIT:
        bits: [2, "4-5"]
      EN:
        bits: [7]
        accepts: bool
  STAT:
    adr: 0x11
    layout:
      BITS:
        bits: [0-1]
        use: STATUS_BITS
        access: [R]
`

func TestFromYAML(t *testing.T) {
	l, err := FromYAML(strings.NewReader(dummyDescriptor))
	if err != nil {
		t.Fatalf("FromYAML: %v", err)
	}

	if l.Name != "DummyChip" {
		t.Errorf("name = %q", l.Name)
	}
	if l.Defaults.Bitwidth != 8 {
		t.Errorf("defaults.bitwidth = %d", l.Defaults.Bitwidth)
	}

	if len(l.Enums) != 1 || l.Enums[0].Name != "MODE" {
		t.Fatalf("enums = %+v", l.Enums)
	}
	entryNames := make([]string, 0, 3)
	for _, e := range l.Enums[0].Entries {
		entryNames = append(entryNames, e.Name)
	}
	if diff := cmp.Diff([]string{"OFF", "ON", "SLEEP"}, entryNames); diff != "" {
		t.Errorf("entry order (-want +got):\n%s", diff)
	}

	if len(l.Registers) != 2 || l.Registers[0].Name != "CTRL" || l.Registers[1].Name != "STAT" {
		t.Fatalf("register order = %+v", l.Registers)
	}

	ctrl := l.Registers[0]
	if ctrl.Adr != 0x10 {
		t.Errorf("CTRL adr = %#x", ctrl.Adr)
	}
	if ctrl.Reset == nil || *ctrl.Reset != 0 {
		t.Errorf("CTRL reset = %v", ctrl.Reset)
	}
	fieldNames := make([]string, 0, 3)
	for _, f := range ctrl.Fields {
		fieldNames = append(fieldNames, f.Name)
	}
	if diff := cmp.Diff([]string{"MODE", "SPLIT", "EN"}, fieldNames); diff != "" {
		t.Errorf("field order (-want +got):\n%s", diff)
	}

	split := ctrl.Fields[1]
	if diff := cmp.Diff(BitsListing{{2, 2}, {4, 5}}, split.Bits); diff != "" {
		t.Errorf("SPLIT bits (-want +got):\n%s", diff)
	}

	stat := l.Registers[1]
	if stat.Fields[0].Use != "STATUS_BITS" {
		t.Errorf("STAT.BITS use = %q", stat.Fields[0].Use)
	}
	if diff := cmp.Diff([]string{"R"}, stat.Fields[0].Access); diff != "" {
		t.Errorf("STAT.BITS access (-want +got):\n%s", diff)
	}
}

func TestFromYAMLErrors(t *testing.T) {
	tests := []struct {
		name string
		in   string
	}{
		{"no name", `brief: nameless`},
		{"bad range", "name: X\nregisters:\n  R:\n    layout:\n      F:\n        bits: [\"3-\"]\n"},
		{"reversed range", "name: X\nregisters:\n  R:\n    layout:\n      F:\n        bits: [\"5-2\"]\n"},
		{"bit too high", "name: X\nregisters:\n  R:\n    layout:\n      F:\n        bits: [64]\n"},
		{"empty bits", "name: X\nregisters:\n  R:\n    layout:\n      F:\n        bits: []\n"},
		{"missing enum value", "name: X\nenums:\n  E:\n    enum:\n      A:\n        brief: no val\n"},
		{"not yaml", "{{{"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := FromYAML(strings.NewReader(tt.in))
			if !errors.Is(err, ErrSchema) {
				t.Errorf("err = %v, want ErrSchema", err)
			}
		})
	}
}

func TestBitsListingSingleBits(t *testing.T) {
	in := "name: X\nregisters:\n  R:\n    bitwidth: 8\n    layout:\n      F:\n        bits: [7]\n"
	l, err := FromYAML(strings.NewReader(in))
	if err != nil {
		t.Fatalf("FromYAML: %v", err)
	}
	got := l.Registers[0].Fields[0].Bits
	if diff := cmp.Diff(BitsListing{{7, 7}}, got); diff != "" {
		t.Errorf("bits (-want +got):\n%s", diff)
	}
}
