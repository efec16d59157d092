package generator

import (
	"errors"
	"fmt"
	"testing"

	"omibyte.io/reginald/regmap"
)

func emitRegs(names ...string) []*regmap.Register {
	regs := make([]*regmap.Register, len(names))
	for i, name := range names {
		regs[i] = &regmap.Register{Name: name, Width: 8}
	}
	return regs
}

func TestEmitRegistersOrder(t *testing.T) {
	regs := emitRegs("A", "B", "C", "D")

	for _, jobs := range []int{1, 4} {
		chunks, err := EmitRegisters(regs, Options{NumJobs: jobs}, func(r *regmap.Register) ([]byte, error) {
			return []byte(r.Name), nil
		})
		if err != nil {
			t.Fatalf("EmitRegisters(jobs=%d): %v", jobs, err)
		}
		var out string
		for _, chunk := range chunks {
			out += string(chunk)
		}
		if out != "ABCD" {
			t.Errorf("jobs=%d: assembled %q, want declaration order", jobs, out)
		}
	}
}

func TestEmitRegistersCollectsAllErrors(t *testing.T) {
	regs := emitRegs("A", "B", "C")
	errB := errors.New("B failed")
	errC := errors.New("C failed")

	for _, jobs := range []int{1, 4} {
		_, err := EmitRegisters(regs, Options{NumJobs: jobs}, func(r *regmap.Register) ([]byte, error) {
			switch r.Name {
			case "B":
				return nil, errB
			case "C":
				return nil, errC
			default:
				return []byte(r.Name), nil
			}
		})
		if !errors.Is(err, errB) || !errors.Is(err, errC) {
			t.Errorf("jobs=%d: err = %v, want both failures reported", jobs, err)
		}
	}
}

func TestEndiannessSetDefault(t *testing.T) {
	set := Options{}.EndiannessSet()
	if len(set) != 1 || set[0] != regmap.LittleEndian {
		t.Errorf("default set = %v, want little-endian only", set)
	}

	both := Options{Endianness: []regmap.Endianness{regmap.BigEndian, regmap.LittleEndian}}.EndiannessSet()
	if len(both) != 2 {
		t.Errorf("explicit set = %v", both)
	}
}

func TestEmitRegistersEmpty(t *testing.T) {
	chunks, err := EmitRegisters(nil, Options{}, func(r *regmap.Register) ([]byte, error) {
		return nil, fmt.Errorf("must not be called")
	})
	if err != nil || len(chunks) != 0 {
		t.Errorf("chunks = %v, err = %v", chunks, err)
	}
}
