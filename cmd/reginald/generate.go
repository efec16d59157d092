package main

import (
	"context"
	"fmt"
	"os"
	"runtime"

	"github.com/spf13/cobra"

	"omibyte.io/reginald/builder"
	"omibyte.io/reginald/regmap"
)

var (
	generateOpts = struct {
		input      string
		output     string
		backends   []string
		endian     string
		enumPrefix string
		unusedBits string
		jobs       int
	}{}

	generateCmd = &cobra.Command{
		Use:   "generate",
		Short: "Generate pack/unpack code from a register-map descriptor",
		Long:  "Generate pack/unpack code from a YAML register-map descriptor for one or more backends.",
		RunE: func(cmd *cobra.Command, args []string) error {
			if generateOpts.input == "" && len(args) > 0 {
				generateOpts.input = args[0]
			}
			if generateOpts.input == "" {
				cmd.Help()
				return builder.ErrNoInput
			}

			opts := builder.Options{
				Input:      generateOpts.input,
				OutputDir:  generateOpts.output,
				Backends:   generateOpts.backends,
				EnumPrefix: generateOpts.enumPrefix,
				NumJobs:    generateOpts.jobs,
			}

			switch generateOpts.endian {
			case "both":
				opts.Endianness = []regmap.Endianness{regmap.LittleEndian, regmap.BigEndian}
			case "":
			default:
				e, err := regmap.ParseEndianness(generateOpts.endian)
				if err != nil {
					return err
				}
				opts.Endianness = []regmap.Endianness{e}
			}

			policy, err := regmap.ParsePolicy(generateOpts.unusedBits)
			if err != nil {
				return err
			}
			opts.UnusedBits = policy

			if err := builder.Generate(context.Background(), opts); err != nil {
				fmt.Fprintln(os.Stderr, "generate error:", err)
				return err
			}
			return nil
		},
	}
)

func init() {
	generateCmd.Flags().StringVarP(&generateOpts.input, "in", "i", "", "input descriptor file (- for stdin)")
	generateCmd.Flags().StringVarP(&generateOpts.output, "out", "o", ".", "output directory")
	generateCmd.Flags().StringSliceVarP(&generateOpts.backends, "backend", "b", []string{"c"}, "backends to run (c, rust, go)")
	generateCmd.Flags().StringVar(&generateOpts.endian, "endian", "little", "endianness to generate (little, big, both)")
	generateCmd.Flags().StringVar(&generateOpts.enumPrefix, "enum-prefix", "", "prefix for generated enum identifiers")
	generateCmd.Flags().StringVar(&generateOpts.unusedBits, "unused-bits", "preserve", "unused-bit policy (preserve, zero-fill)")
	generateCmd.Flags().IntVarP(&generateOpts.jobs, "jobs", "j", runtime.NumCPU(), "number of registers emitted concurrently")
}
