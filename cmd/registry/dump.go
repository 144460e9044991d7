package main

import (
	"fmt"
	"os"

	"github.com/registryhq/registry/config"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

var dumpFormat string

var dumpCmd = &cobra.Command{
	Use:   "dump",
	Short: "Print the parsed configuration",
	Long: `Parse, validate and print the configuration.

Useful to check what the server actually sees after parsing, or to
convert the file for external tooling.

Examples:
  registry dump
  registry dump --format yaml`,
	RunE: runDump,
}

func init() {
	rootCmd.AddCommand(dumpCmd)
	dumpCmd.Flags().StringVar(&dumpFormat, "format", "ini", "output format: ini or yaml")
}

func runDump(cmd *cobra.Command, args []string) error {
	doc, err := config.Load(cfgFile)
	if err != nil {
		return fmt.Errorf("config error: %w", err)
	}

	switch dumpFormat {
	case "ini":
		return doc.Encode(os.Stdout)
	case "yaml":
		out := make(map[string]map[string]any)
		for _, sec := range doc.Sections() {
			opts := make(map[string]any)
			for _, key := range doc.Options(sec) {
				v, err := doc.Get(sec, key)
				if err != nil {
					return err
				}
				if v.IsList {
					opts[key] = v.List
				} else {
					opts[key] = v.Scalar
				}
			}
			out[sec] = opts
		}
		data, err := yaml.Marshal(out)
		if err != nil {
			return fmt.Errorf("marshal yaml: %w", err)
		}
		_, err = os.Stdout.Write(data)
		return err
	default:
		return fmt.Errorf("unknown format %q", dumpFormat)
	}
}
