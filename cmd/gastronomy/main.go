package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var rootCmd *cobra.Command

func init() {
	rootCmd = &cobra.Command{
		Use:   "gastronomy",
		Short: "A small-step debugger for Untyped Plutus Core programs",
	}

	rootCmd.AddCommand(newRunCommand())
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "gastronomy:", err)
		os.Exit(1)
	}
}
