package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"meridian-hq/vega/pkg/config"
)

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate a configuration file",
	Long: `Validate a configuration file without starting the service.

Checks YAML syntax, field values, and environment variable overrides.

Examples:
  vega validate
  vega validate --config /etc/vega/config.yaml`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.LoadConfigWithEnvOverrides(cfgFile)
		if err != nil {
			return err
		}
		fmt.Printf("✓ Configuration valid: %s\n", cfgFile)
		if verbose {
			fmt.Printf("  listen address: %s\n", cfg.Server.ListenAddress)
			fmt.Printf("  store path:     %s\n", cfg.Store.Path)
			fmt.Printf("  audit enabled:  %t\n", cfg.Audit.Enabled)
			fmt.Printf("  cache ttl:      %s\n", cfg.Decision.CacheTTL)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(validateCmd)
}
