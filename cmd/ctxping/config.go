package main

import (
	"fmt"
	"io"

	"github.com/BurntSushi/toml"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/momentics/hioload-ctx/control"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Print the effective configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		format, _ := cmd.Flags().GetString("format")
		return printConfig(cmd.OutOrStdout(), cfg, format)
	},
}

func init() {
	rootCmd.AddCommand(configCmd)
	configCmd.Flags().String("format", "toml", "output format (toml or yaml)")
}

// loadConfig reads --config when given, otherwise the defaults.
func loadConfig(cmd *cobra.Command) (control.Config, error) {
	path, _ := cmd.Flags().GetString("config")
	if path == "" {
		return control.DefaultConfig(), nil
	}
	return control.LoadConfig(path)
}

func printConfig(w io.Writer, cfg control.Config, format string) error {
	switch format {
	case "toml":
		return toml.NewEncoder(w).Encode(cfg)
	case "yaml":
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(cfg); err != nil {
			return err
		}
		return enc.Close()
	default:
		return fmt.Errorf("unknown format %q", format)
	}
}
