// Package builder drives the full generation pipeline: load the descriptor,
// build and validate the model, prune registers that failed validation, and
// run every selected backend over what remains.
package builder

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"omibyte.io/reginald/generator"
	"omibyte.io/reginald/generator/c"
	"omibyte.io/reginald/generator/golang"
	"omibyte.io/reginald/generator/rust"
	"omibyte.io/reginald/regmap"
)

// Generate runs the pipeline described by opts. Registers with validation
// errors are reported and dropped; generation proceeds for the rest. It fails
// only when the descriptor itself cannot be loaded, nothing valid remains, or
// an output cannot be written.
func Generate(ctx context.Context, opts Options) error {
	opts = opts.withDefaults()

	m, err := loadMap(opts)
	if err != nil {
		if m == nil || len(m.Registers) == 0 {
			return err
		}
		// The model builder drops what it cannot resolve and keeps the
		// rest usable; report and generate what survived.
		fmt.Fprintln(opts.Stderr, err)
	}

	diags := regmap.Validate(m)
	for _, d := range diags {
		fmt.Fprintln(opts.Stderr, d.String())
	}
	if failed := diags.FailedRegisters(); len(failed) > 0 {
		m = pruneFailed(m, failed)
	}
	if len(m.Registers) == 0 {
		return fmt.Errorf("%w: %s", ErrEmptyMap, m.Name)
	}

	genOpts := generator.Options{
		Endianness: opts.Endianness,
		EnumPrefix: opts.EnumPrefix,
		UnusedBits: opts.UnusedBits,
		NumJobs:    opts.NumJobs,
	}

	if err := os.MkdirAll(opts.OutputDir, 0o755); err != nil {
		return err
	}

	for _, name := range opts.Backends {
		if err := ctx.Err(); err != nil {
			return err
		}
		gen, err := BackendFor(name)
		if err != nil {
			return err
		}
		path := filepath.Join(opts.OutputDir, gen.Filename(m))
		if err := writeOutput(path, m, gen, genOpts); err != nil {
			return err
		}
		fmt.Fprintf(opts.Stdout, "wrote %s\n", path)
	}
	return nil
}

// BackendFor maps a backend name to its generator.
func BackendFor(name string) (generator.Generator, error) {
	switch name {
	case "c":
		return c.New(), nil
	case "rust", "rs":
		return rust.New(), nil
	case "go", "golang":
		return golang.New(), nil
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnknownBackend, name)
	}
}

func loadMap(opts Options) (*regmap.RegisterMap, error) {
	if opts.Input == "" {
		return nil, ErrNoInput
	}

	var r io.Reader
	if opts.Input == "-" {
		r = os.Stdin
	} else {
		f, err := os.Open(opts.Input)
		if err != nil {
			return nil, err
		}
		defer f.Close()
		r = f
	}

	listing, err := regmap.FromYAML(r)
	if err != nil {
		return nil, err
	}
	return regmap.Build(listing)
}

// pruneFailed rebuilds the map without the registers validation rejected.
// Warnings never prune.
func pruneFailed(m *regmap.RegisterMap, failed map[string]bool) *regmap.RegisterMap {
	pruned := &regmap.RegisterMap{
		Name:  m.Name,
		Docs:  m.Docs,
		Enums: m.Enums,
	}
	for _, reg := range m.Registers {
		if !failed[reg.Name] {
			pruned.Registers = append(pruned.Registers, reg)
		}
	}
	return pruned
}

func writeOutput(path string, m *regmap.RegisterMap, gen generator.Generator, opts generator.Options) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := gen.Generate(f, m, opts); err != nil {
		f.Close()
		os.Remove(path)
		return err
	}
	return f.Close()
}
