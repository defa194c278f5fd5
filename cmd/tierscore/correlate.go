package main

import (
	"encoding/json"
	"fmt"
	"io"
	"math"
	"strings"

	"github.com/spf13/cobra"

	"github.com/tierscore/tierscore/pkg/batch"
	"github.com/tierscore/tierscore/pkg/scoring"
)

// categoryCorrelation is the correlation analysis of one category.
type categoryCorrelation struct {
	Category string                   `json:"category"`
	Members  []string                 `json:"members"`
	Matrix   [][]*float64             `json:"matrix"` // null where undefined
	Pairs    []scoring.CorrelatedPair `json:"pairs"`
	Weights  map[string]float64       `json:"weights"`
	Clusters [][]string               `json:"clusters"`
}

func newCorrelateCmd() *cobra.Command {
	var (
		input     inputFlags
		category  string
		threshold float64
		outputFmt string
	)

	cmd := &cobra.Command{
		Use:   "correlate",
		Short: "Show indicator correlations and the resulting weights per category",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			if !cmd.Flags().Changed("threshold") {
				threshold = cfg.Scoring.CorrelationThreshold
			}
			b, err := input.load(cfg)
			if err != nil {
				return err
			}

			var reports []categoryCorrelation
			for _, cat := range cfg.Categories {
				if category != "" && cat.Name != category {
					continue
				}
				rep, err := analyzeCategory(b, cat, threshold, cfg.Scoring.BaseWeight)
				if err != nil {
					return fmt.Errorf("category %s: %w", cat.Name, err)
				}
				reports = append(reports, rep)
			}
			if category != "" && len(reports) == 0 {
				return fmt.Errorf("unknown category %q", category)
			}

			if outputFmt == "json" {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(reports)
			}
			for _, rep := range reports {
				writeCorrelation(cmd.OutOrStdout(), rep)
			}
			return nil
		},
	}

	input.register(cmd)
	cmd.Flags().StringVar(&category, "category", "", "Only analyze this category")
	cmd.Flags().Float64Var(&threshold, "threshold", scoring.DefaultCorrelationThreshold, "Absolute correlation threshold")
	cmd.Flags().StringVarP(&outputFmt, "output", "o", "text", "Output format: text or json")
	return cmd
}

func analyzeCategory(b *batch.Batch, cat scoring.Category, threshold, baseWeight float64) (categoryCorrelation, error) {
	rep := categoryCorrelation{Category: cat.Name, Weights: map[string]float64{}}
	for _, ind := range cat.Indicators {
		if b.Has(ind) {
			rep.Members = append(rep.Members, ind)
		}
	}
	if len(rep.Members) == 0 {
		return rep, nil
	}

	corr := scoring.CorrelationMatrix(b, rep.Members)
	pairs, err := scoring.HighlyCorrelated(rep.Members, corr, threshold)
	if err != nil {
		return rep, err
	}
	cl, err := scoring.Clusterer{Threshold: threshold, BaseWeight: baseWeight}.Cluster(rep.Members, corr)
	if err != nil {
		return rep, err
	}

	rep.Pairs = pairs
	rep.Weights = cl.Weights
	rep.Clusters = cl.Clusters
	rep.Matrix = make([][]*float64, len(corr))
	for i, row := range corr {
		rep.Matrix[i] = make([]*float64, len(row))
		for j, v := range row {
			if !math.IsNaN(v) {
				v := v
				rep.Matrix[i][j] = &v
			}
		}
	}
	return rep, nil
}

func writeCorrelation(w io.Writer, rep categoryCorrelation) {
	fmt.Fprintf(w, "%s\n", rep.Category)
	if len(rep.Members) == 0 {
		fmt.Fprintf(w, "  no member indicators in this batch\n\n")
		return
	}
	if len(rep.Pairs) == 0 {
		fmt.Fprintf(w, "  no highly correlated pairs\n")
	}
	for _, p := range rep.Pairs {
		fmt.Fprintf(w, "  %-12s %-12s %+.3f\n", p.A, p.B, p.Correlation)
	}
	for _, cl := range rep.Clusters {
		parts := make([]string, len(cl))
		for i, m := range cl {
			parts[i] = fmt.Sprintf("%s=%.3g", m, rep.Weights[m])
		}
		fmt.Fprintf(w, "  cluster: %s\n", strings.Join(parts, ", "))
	}
	fmt.Fprintln(w)
}
