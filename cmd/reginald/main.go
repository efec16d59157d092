package main

import (
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "reginald",
	Short: "Register map code generator",
	Long:  "Reginald compiles YAML register-map descriptors into bit-exact pack/unpack code for C, Rust and Go.",
}

func main() {
	rootCmd.AddCommand(generateCmd)
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
