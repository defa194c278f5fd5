package main

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/tierscore/tierscore/pkg/config"
	"github.com/tierscore/tierscore/pkg/scoring"
	"github.com/tierscore/tierscore/pkg/surface"
)

type scoreOpts struct {
	input          inputFlags
	outputFmt      string
	outPath        string
	withIndicators bool
	aggregation    string
	noCorrelation  bool
	diagnostics    bool
	concurrency    int
	save           bool
	limit          int
}

func newScoreCmd() *cobra.Command {
	var opts scoreOpts

	cmd := &cobra.Command{
		Use:   "score",
		Short: "Score a batch of companies",
		Long: `Bins every indicator across the batch, weights correlated indicators,
aggregates each category and bins the category scores.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runScore(cmd, opts)
		},
	}

	opts.input.register(cmd)
	cmd.Flags().StringVarP(&opts.outputFmt, "output", "o", "text", "Output format: text, json, markdown, csv or xlsx")
	cmd.Flags().StringVar(&opts.outPath, "out", "", "Write output to a file instead of stdout")
	cmd.Flags().BoolVar(&opts.withIndicators, "indicators", false, "Include per-indicator labels in tabular output")
	cmd.Flags().StringVar(&opts.aggregation, "aggregation", "", "Override aggregation mode: raw or labels")
	cmd.Flags().BoolVar(&opts.noCorrelation, "no-correlation", false, "Disable correlation weighting")
	cmd.Flags().BoolVar(&opts.diagnostics, "diagnostics", false, "Run the Shapiro-Wilk normality diagnostic")
	cmd.Flags().IntVar(&opts.concurrency, "concurrency", 0, "Parallel workers (default: config)")
	cmd.Flags().BoolVar(&opts.save, "save", false, "Keep a JSON copy of the result in the cache directory")
	cmd.Flags().IntVar(&opts.limit, "limit", 20, "Rows shown by text output; negative shows all")

	return cmd
}

func runScore(cmd *cobra.Command, opts scoreOpts) error {
	logger := newLogger(cmd)

	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	renderer, ok := surface.ForFormat(opts.outputFmt, opts.withIndicators)
	if !ok {
		return fmt.Errorf("unknown output format %q", opts.outputFmt)
	}
	if t, isText := renderer.(*surface.TerminalRenderer); isText {
		t.Limit = opts.limit
	}
	if opts.outputFmt == "xlsx" && opts.outPath == "" {
		return fmt.Errorf("xlsx output requires --out")
	}

	b, err := opts.input.load(cfg)
	if err != nil {
		return err
	}

	var extra []scoring.Option
	if opts.aggregation != "" {
		mode, err := scoring.ParseAggregationMode(opts.aggregation)
		if err != nil {
			return err
		}
		extra = append(extra, scoring.WithAggregation(mode))
	}
	if opts.noCorrelation {
		extra = append(extra, scoring.WithCorrelation(false))
	}
	if opts.diagnostics {
		extra = append(extra, scoring.WithDiagnostics(true))
	}
	if opts.concurrency > 0 {
		extra = append(extra, scoring.WithConcurrency(opts.concurrency))
	}

	engine, err := cfg.NewEngine(extra...)
	if err != nil {
		return fmt.Errorf("building engine: %w", err)
	}
	engine.SetLogger(logger)

	start := time.Now()
	result, err := engine.Run(cmd.Context(), scoring.Input{Batch: b, Weights: cfg.Scoring.Weights})
	if err != nil {
		return fmt.Errorf("scoring: %w", err)
	}
	logger.Info().
		Int("entities", b.Len()).
		Int("indicators", len(result.Indicators)).
		Dur("elapsed", time.Since(start)).
		Msg("scored batch")

	if opts.save {
		saveResult(cmd, opts.input.path, result)
	}

	w, closeOut, err := openOutput(cmd, opts.outPath)
	if err != nil {
		return err
	}
	if err := renderer.Render(w, result); err != nil {
		closeOut()
		return fmt.Errorf("rendering: %w", err)
	}
	return closeOut()
}

// saveResult persists the JSON report to the result cache directory.
func saveResult(cmd *cobra.Command, input string, result *scoring.Result) {
	dir := config.ResultDir()
	if err := os.MkdirAll(dir, 0o755); err != nil {
		fmt.Fprintf(cmd.ErrOrStderr(), "Warning: failed to create result dir: %v\n", err)
		return
	}

	wrapped := struct {
		surface.Report
		Input    string `json:"input"`
		ScoredAt string `json:"scored_at"`
	}{
		Report:   surface.BuildReport(result, true),
		Input:    input,
		ScoredAt: time.Now().UTC().Format(time.RFC3339),
	}
	data, err := json.MarshalIndent(wrapped, "", "  ")
	if err != nil {
		fmt.Fprintf(cmd.ErrOrStderr(), "Warning: failed to marshal result: %v\n", err)
		return
	}

	name := strings.TrimSuffix(filepath.Base(input), filepath.Ext(input))
	path := filepath.Join(dir, fmt.Sprintf("%s_%s.json", name, time.Now().UTC().Format("20060102T150405")))
	if err := os.WriteFile(path, data, 0o644); err != nil {
		fmt.Fprintf(cmd.ErrOrStderr(), "Warning: failed to save result: %v\n", err)
		return
	}
	fmt.Fprintf(cmd.ErrOrStderr(), "Result saved: %s\n", path)
}
