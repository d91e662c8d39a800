// Package main is the entry point for the routegate binary.
package main

import (
	"os"

	"github.com/spf13/cobra"
)

var (
	flagConfig   string
	flagLogLevel string
	flagPretty   bool
)

var rootCmd = &cobra.Command{
	Use:   "routegate",
	Short: "Sequential access-control gate pipeline for HTTP navigation",
	Long: `routegate evaluates an ordered list of named gates in front of each
navigation, stopping at the first gate that denies the request and redirecting
the caller to a remediation step when one exists. The original destination is
preserved so navigation resumes once the blocking condition is resolved.`,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&flagConfig, "config", "routegate.yaml", "Path to configuration file")
	rootCmd.PersistentFlags().StringVar(&flagLogLevel, "log-level", "", "Log level override (debug, info, warn, error)")
	rootCmd.PersistentFlags().BoolVar(&flagPretty, "pretty", false, "Enable pretty console logging")

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(checkCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
