// Package main is the entry point for hotswap.
package main

import (
	"context"
	"os"

	"charm.land/fang/v2"
	"github.com/spf13/cobra"

	"github.com/omarluq/hotswap/internal/config"
	"github.com/omarluq/hotswap/internal/version"
)

var cfgFile string

var rootCmd = &cobra.Command{
	Use:   "hotswap",
	Short: "HTTP service whose request handling can be replaced at runtime",
	Long: `hotswap serves HTTP through a handler that is swapped atomically when the
configuration is reloaded or the managed dependency is restarted. In-flight
requests always finish on the handler they started with.`,
	Version: version.Version,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "",
		"config file path (default: ./config.toml, ./config.yaml or ~/.config/hotswap/)")
}

// configPath returns the --config flag or the first config file found.
func configPath() string {
	if cfgFile != "" {
		return cfgFile
	}
	return config.FindConfigFile()
}

func main() {
	if err := fang.Execute(context.Background(), rootCmd); err != nil {
		os.Exit(1)
	}
}
