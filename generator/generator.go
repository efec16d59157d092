// Package generator defines the contract every output backend implements.
// Backends consume a validated register map and emit pack/unpack source for
// one target language; adding a backend never requires touching the model.
package generator

import (
	"bytes"
	"errors"
	"io"
	"runtime"
	"sync"

	"omibyte.io/reginald/regmap"
)

type Generator interface {
	// Generate writes the complete output for the map to w.
	Generate(w io.Writer, m *regmap.RegisterMap, opts Options) error

	// Filename returns the output file name for the map.
	Filename(m *regmap.RegisterMap) string
}

type Options struct {
	// Endianness selects which byte orders to generate routines for.
	// Empty means little-endian only.
	Endianness []regmap.Endianness

	// EnumPrefix is prepended to every generated enum identifier.
	EnumPrefix string

	// UnusedBits is threaded into every generated pack routine.
	UnusedBits regmap.Policy

	// NumJobs caps the number of registers emitted concurrently.
	// Zero or negative means GOMAXPROCS.
	NumJobs int
}

// EndiannessSet returns the effective endianness selection.
func (o Options) EndiannessSet() []regmap.Endianness {
	if len(o.Endianness) == 0 {
		return []regmap.Endianness{regmap.LittleEndian}
	}
	return o.Endianness
}

func (o Options) jobs() int {
	if o.NumJobs > 0 {
		return o.NumJobs
	}
	return runtime.GOMAXPROCS(0)
}

// EmitRegisters runs emit for every register on a small worker pool and
// returns the chunks in register order, so concatenated output is identical
// no matter how the work was scheduled. Emission always completes; the
// failures of every register are reported together, in register order.
func EmitRegisters(regs []*regmap.Register, opts Options, emit func(*regmap.Register) ([]byte, error)) ([][]byte, error) {
	chunks := make([][]byte, len(regs))
	errs := make([]error, len(regs))

	jobs := opts.jobs()
	if jobs > len(regs) {
		jobs = len(regs)
	}
	if jobs <= 1 {
		for i, reg := range regs {
			chunks[i], errs[i] = emit(reg)
		}
	} else {
		indices := make(chan int)
		var wg sync.WaitGroup
		wg.Add(jobs)
		for w := 0; w < jobs; w++ {
			go func() {
				defer wg.Done()
				for i := range indices {
					chunks[i], errs[i] = emit(regs[i])
				}
			}()
		}
		for i := range regs {
			indices <- i
		}
		close(indices)
		wg.Wait()
	}

	if err := errors.Join(errs...); err != nil {
		return nil, err
	}
	return chunks, nil
}

// WriteChunks concatenates ordered chunks to w.
func WriteChunks(w io.Writer, chunks [][]byte) error {
	var buf bytes.Buffer
	for _, chunk := range chunks {
		buf.Write(chunk)
	}
	_, err := w.Write(buf.Bytes())
	return err
}
