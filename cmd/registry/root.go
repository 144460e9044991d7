package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	// Global flags
	cfgFile string
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "registry",
	Short: "Content registry server with session-authenticated JSON API",
	Long: `Registry is a content registry service.

It keeps a catalog of files served to clients, tracks every change in
an action history, and exposes a session-authenticated JSON API. All
behavior is driven by a single configuration file.

Quick start:
  registry validate  # Check the configuration
  registry serve     # Start the server`,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	// Global flags
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "registry.ini", "config file path")
}
