package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
)

func newDescribeCmd() *cobra.Command {
	var (
		input     inputFlags
		outputFmt string
		top       int
	)

	cmd := &cobra.Command{
		Use:   "describe",
		Short: "Summarize a batch: rows, indicators, sectors and missing values",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			b, err := input.load(cfg)
			if err != nil {
				return err
			}
			s := b.Describe()

			out := cmd.OutOrStdout()
			if outputFmt == "json" {
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				return enc.Encode(s)
			}

			fmt.Fprintf(out, "rows:       %d\n", s.Rows)
			fmt.Fprintf(out, "fields:     %d\n", s.Fields)
			fmt.Fprintf(out, "indicators: %d\n", s.Indicators)
			fmt.Fprintf(out, "sectors:    %d\n", len(s.Sectors))
			for i, sc := range s.Sectors {
				if i == top {
					fmt.Fprintf(out, "  ... and %d more\n", len(s.Sectors)-top)
					break
				}
				fmt.Fprintf(out, "  %-10s %d\n", sc.Name, sc.Count)
			}
			if len(s.Missing) == 0 {
				fmt.Fprintln(out, "missing:    none")
				return nil
			}
			fmt.Fprintln(out, "missing:")
			for i, m := range s.Missing {
				if i == top {
					fmt.Fprintf(out, "  ... and %d more\n", len(s.Missing)-top)
					break
				}
				fmt.Fprintf(out, "  %-14s %d (%.1f%%)\n", m.Name, m.Count, 100*float64(m.Count)/float64(s.Rows))
			}
			return nil
		},
	}

	input.register(cmd)
	cmd.Flags().StringVarP(&outputFmt, "output", "o", "text", "Output format: text or json")
	cmd.Flags().IntVar(&top, "top", 10, "Rows shown per section")
	return cmd
}
