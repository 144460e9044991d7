package main

import (
	"github.com/registryhq/registry/bootstrap"
	"github.com/spf13/cobra"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the registry server",
	Long: `Start the registry server.

The server will:
  - Load and validate the configuration file
  - Open the configured databases and apply migrations
  - Run the pre_init hooks listed under [stack]
  - Serve the JSON API on server.host:server.port
  - Run background tasks until SIGINT/SIGTERM

Examples:
  registry serve
  registry serve --config /etc/registry/registry.ini`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	a, err := bootstrap.New(cfgFile)
	if err != nil {
		return err
	}
	return a.Run()
}
