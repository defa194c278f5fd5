package main

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/tierscore/tierscore/pkg/batch"
)

func newSampleCmd() *cobra.Command {
	var (
		n       int
		seed    uint64
		outPath string
	)

	cmd := &cobra.Command{
		Use:   "sample",
		Short: "Generate a reproducible synthetic batch",
		RunE: func(cmd *cobra.Command, args []string) error {
			if n <= 0 {
				return fmt.Errorf("--n must be positive")
			}
			b := batch.Sample(n, seed, nil)

			if strings.EqualFold(filepath.Ext(outPath), ".json") {
				if err := batch.SaveJSON(outPath, b); err != nil {
					return err
				}
				fmt.Fprintf(cmd.ErrOrStderr(), "Wrote %d companies to %s\n", n, outPath)
				return nil
			}

			w, closeOut, err := openOutput(cmd, outPath)
			if err != nil {
				return err
			}
			if err := batch.WriteCSV(w, b); err != nil {
				closeOut()
				return err
			}
			if outPath != "" {
				fmt.Fprintf(cmd.ErrOrStderr(), "Wrote %d companies to %s\n", n, outPath)
			}
			return closeOut()
		},
	}

	cmd.Flags().IntVar(&n, "n", 1000, "Number of companies")
	cmd.Flags().Uint64Var(&seed, "seed", 42, "Random seed")
	cmd.Flags().StringVar(&outPath, "out", "", "Output file: .csv or .json (default: CSV to stdout)")
	return cmd
}
