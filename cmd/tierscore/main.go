// Package main provides the tierscore CLI entry point.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var version = "dev"

func main() {
	rootCmd := newRootCmd()
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "tierscore",
		Short: "Batch-relative tier scoring for financial indicators",
		Long: `tierscore bins financial indicators into tiers T1 (best) to T8 (worst)
across a batch of companies, weights correlated indicators, and scores each
category of indicators.`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.PersistentFlags().String("config", "", "Path to config.yaml (default: search for .tierscore/config.yaml)")
	rootCmd.PersistentFlags().String("log-level", "warn", "Log level: debug, info, warn, error")

	rootCmd.AddCommand(
		newScoreCmd(),
		newCorrelateCmd(),
		newDescribeCmd(),
		newSampleCmd(),
	)
	return rootCmd
}
