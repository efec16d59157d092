package builder

import (
	"io"
	"os"

	"omibyte.io/reginald/regmap"
)

type Options struct {
	// Input is the path of the YAML register-map descriptor. "-" reads
	// standard input.
	Input string

	// OutputDir receives one generated file per backend. Created if it
	// does not exist.
	OutputDir string

	// Backends names the generators to run (c, rust, go). Empty means c.
	Backends []string

	// Endianness selects the byte orders generated routines cover.
	// Empty means little-endian only.
	Endianness []regmap.Endianness

	// EnumPrefix is prepended to every generated enum identifier.
	EnumPrefix string

	// UnusedBits decides whether pack routines preserve or zero bits no
	// field owns.
	UnusedBits regmap.Policy

	// NumJobs caps concurrent register emission. Zero means GOMAXPROCS.
	NumJobs int

	// Stdout and Stderr receive progress lines and diagnostics. Nil means
	// the process streams.
	Stdout io.Writer
	Stderr io.Writer
}

func (o Options) withDefaults() Options {
	if len(o.Backends) == 0 {
		o.Backends = []string{"c"}
	}
	if o.OutputDir == "" {
		o.OutputDir = "."
	}
	if o.Stdout == nil {
		o.Stdout = os.Stdout
	}
	if o.Stderr == nil {
		o.Stderr = os.Stderr
	}
	return o
}
