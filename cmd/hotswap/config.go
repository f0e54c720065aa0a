package main

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/omarluq/hotswap/internal/config"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Configuration management commands",
}

var configValidateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate configuration file",
	Long: `Validate the configuration file without starting the server, applying
the same checks a reload does.`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		return validateConfigFile(cmd.OutOrStdout(), configPath())
	},
}

func init() {
	configCmd.AddCommand(configValidateCmd)
	rootCmd.AddCommand(configCmd)
}

func validateConfigFile(w io.Writer, path string) error {
	if _, err := config.LoadValidated(path); err != nil {
		fmt.Fprintf(w, "✗ Config validation failed: %s\n", config.Reason(err))
		return err
	}

	fmt.Fprintf(w, "✓ %s is valid\n", path)
	return nil
}
