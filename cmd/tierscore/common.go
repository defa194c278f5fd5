package main

import (
	"fmt"
	"io"
	"os"
	"unicode/utf8"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/tierscore/tierscore/internal/platform"
	"github.com/tierscore/tierscore/pkg/batch"
	"github.com/tierscore/tierscore/pkg/config"
)

// inputFlags are shared by every command that reads a batch.
type inputFlags struct {
	path      string
	delimiter string
	sheet     string
	raw       bool
}

func (f *inputFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&f.path, "input", "i", "", "Batch file: .csv, .xlsx or .json (required)")
	cmd.Flags().StringVar(&f.delimiter, "delimiter", ",", "CSV delimiter")
	cmd.Flags().StringVar(&f.sheet, "sheet", "", "XLSX sheet (default: first sheet)")
	cmd.Flags().BoolVar(&f.raw, "raw", false, "Skip column filtering and validation")
	_ = cmd.MarkFlagRequired("input")
}

// load reads, filters and validates the batch.
func (f *inputFlags) load(cfg *config.Config) (*batch.Batch, error) {
	delim, size := utf8.DecodeRuneInString(f.delimiter)
	if size == 0 || size != len(f.delimiter) {
		return nil, fmt.Errorf("delimiter must be a single character, got %q", f.delimiter)
	}

	b, err := batch.LoadFile(f.path, batch.LoadOptions{Delimiter: delim, Sheet: f.sheet})
	if err != nil {
		return nil, err
	}
	if f.raw {
		return b, nil
	}
	b = b.Preprocess(cfg.Columns.Keep, cfg.Columns.KeepPrefixes)
	if err := b.Validate(); err != nil {
		return nil, fmt.Errorf("invalid batch %s: %w", f.path, err)
	}
	return b, nil
}

// loadConfig reads --config, or the discovered config file, or defaults.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	path, _ := cmd.Flags().GetString("config")
	if path == "" {
		wd, err := os.Getwd()
		if err == nil {
			path = config.FindConfigFile(wd)
		}
	}
	if path == "" {
		return config.DefaultConfig(), nil
	}
	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("config %s: %w", path, err)
	}
	return config.Load(path)
}

func newLogger(cmd *cobra.Command) zerolog.Logger {
	level, _ := cmd.Flags().GetString("log-level")
	logger, _, err := platform.NewLogger(platform.LogConfig{Level: level, Format: "pretty"}, cmd.ErrOrStderr(), "tierscore")
	if err != nil {
		fmt.Fprintf(cmd.ErrOrStderr(), "Warning: %v\n", err)
		return zerolog.New(cmd.ErrOrStderr()).Level(zerolog.WarnLevel)
	}
	return logger
}

// openOutput returns the file at path, or stdout when path is empty.
func openOutput(cmd *cobra.Command, path string) (io.Writer, func() error, error) {
	if path == "" {
		return cmd.OutOrStdout(), func() error { return nil }, nil
	}
	f, err := os.Create(path)
	if err != nil {
		return nil, nil, fmt.Errorf("creating %s: %w", path, err)
	}
	return f, f.Close, nil
}
