package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/registryhq/registry/config"
	"github.com/spf13/cobra"
)

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate configuration before deployment",
	Long: `Validate the registry configuration file.

Checks:
  - File syntax is valid
  - Required options are present
  - Option values pass schema validation

Examples:
  registry validate
  registry validate --config /etc/registry/registry.ini`,
	RunE: runValidate,
}

func init() {
	rootCmd.AddCommand(validateCmd)
}

func runValidate(cmd *cobra.Command, args []string) error {
	fmt.Printf("Validating %s...\n\n", cfgFile)

	if _, err := os.Stat(cfgFile); os.IsNotExist(err) {
		fmt.Printf("  %s Config file exists\n", crossMark)
		return fmt.Errorf("config file not found: %s", cfgFile)
	}
	fmt.Printf("  %s Config file exists\n", checkMark)

	data, err := os.ReadFile(cfgFile)
	if err != nil {
		return fmt.Errorf("read config: %w", err)
	}
	doc, err := config.Parse(data)
	if err != nil {
		fmt.Printf("  %s Config syntax valid\n", crossMark)
		return fmt.Errorf("config error: %w", err)
	}
	fmt.Printf("  %s Config syntax valid\n", checkMark)

	if err := config.Validate(doc); err != nil {
		fmt.Printf("  %s Schema validation\n", crossMark)
		return fmt.Errorf("config error: %w", err)
	}
	fmt.Printf("  %s Schema validation\n", checkMark)

	host, _ := doc.GetString("server", "host")
	port, _ := doc.GetInt("server", "port")
	backend, _ := doc.GetString("database", "backend")
	names, _ := doc.GetList("database", "names")
	root, _ := doc.GetString("registry", "root_path")
	fmt.Printf("  %s Listen: %s:%d\n", checkMark, host, port)
	fmt.Printf("  %s Content root: %s\n", checkMark, root)
	fmt.Printf("  %s Databases: %s (%s)\n", checkMark, strings.Join(names, ", "), backend)

	fmt.Println("\nConfiguration is valid.")
	return nil
}

// Emoji for CLI output
const (
	checkMark = "\033[32m✓\033[0m"
	crossMark = "\033[31m✗\033[0m"
)
