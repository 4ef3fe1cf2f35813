package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	// Global flags
	cfgFile string
	verbose bool
)

var rootCmd = &cobra.Command{
	Use:   "vega",
	Short: "Vega - payment decisioning service",
	Long: `Vega is a payment decisioning service.

It issues authentication, retry, and routing decisions driven by:
  - Operator-tunable parameters, decline codes, and route scores
  - Operator rules that can override any policy decision
  - Similarity and model-score enrichment with bounded timeouts
  - Deterministic A/B experiment assignment
  - An append-only decision and outcome audit log`,
	Version: Version,
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "config.yaml", "config file path")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
}
