package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "ctxping",
	Short: "Ping through a context-decorated connection pool",
	Long: `ctxping runs the ping protocol through a pooled client whose calls carry
an event loop preference, a logger and trace baggage.`,
	SilenceUsage: true,
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringP("config", "c", "", "TOML or YAML config file")
}
