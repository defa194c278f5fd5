// Package config handles loading and managing tierscore configuration.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/tierscore/tierscore/pkg/batch"
	"github.com/tierscore/tierscore/pkg/scoring"
)

// ErrUnknownDirection is returned for a direction tag other than high_good
// or low_good.
var ErrUnknownDirection = scoring.ErrUnknownDirection

// Config is the top-level configuration for tierscore.
type Config struct {
	Scoring    ScoringConfig      `yaml:"scoring"`
	Categories []scoring.Category `yaml:"categories"`
	Directions map[string]string  `yaml:"directions"`
	Overrides  scoring.Overrides  `yaml:"overrides"`
	Columns    ColumnsConfig      `yaml:"columns"`
}

// ScoringConfig controls binning, clustering and aggregation.
type ScoringConfig struct {
	LowerCut             float64            `yaml:"lower_cut"`
	UpperCut             float64            `yaml:"upper_cut"`
	CorrelationThreshold float64            `yaml:"correlation_threshold"`
	BaseWeight           float64            `yaml:"base_weight"`
	Correlate            bool               `yaml:"correlate"`
	Aggregation          string             `yaml:"aggregation"` // raw or labels
	Diagnostics          bool               `yaml:"diagnostics"`
	Weights              map[string]float64 `yaml:"weights"`
}

// ColumnsConfig controls which input columns survive preprocessing.
type ColumnsConfig struct {
	Keep         []string `yaml:"keep"`
	KeepPrefixes []string `yaml:"keep_prefixes"`
}

// DefaultConfig returns a Config with the built-in categories and directions.
func DefaultConfig() *Config {
	return &Config{
		Scoring: ScoringConfig{
			LowerCut:             scoring.DefaultCuts.Lower,
			UpperCut:             scoring.DefaultCuts.Upper,
			CorrelationThreshold: scoring.DefaultCorrelationThreshold,
			BaseWeight:           1.0,
			Correlate:            true,
			Aggregation:          string(scoring.AggregateRaw),
			Weights:              map[string]float64{},
		},
		Categories: DefaultCategories(),
		Directions: DefaultDirections(),
		Overrides:  scoring.DefaultOverrides(),
		Columns: ColumnsConfig{
			Keep:         append([]string(nil), batch.DefaultKeep...),
			KeepPrefixes: []string{batch.IndicatorPrefix},
		},
	}
}

// Load reads a config file from the given path.
// If the file does not exist, it returns the default config. Lists in the
// file replace the defaults; the directions and weights maps are merged.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, fmt.Errorf("reading config: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}
	return cfg, nil
}

// Validate checks the configuration without building an engine.
func (c *Config) Validate() error {
	if _, err := c.Policy(); err != nil {
		return err
	}
	if err := c.Cuts().Validate(); err != nil {
		return err
	}
	if t := c.Scoring.CorrelationThreshold; t < 0 || t > 1 {
		return scoring.ErrInvalidThreshold
	}
	if _, err := scoring.ParseAggregationMode(c.Scoring.Aggregation); err != nil {
		return err
	}
	if err := scoring.ValidateWeights(c.Scoring.Weights); err != nil {
		return err
	}
	return c.Overrides.Validate()
}

// Policy parses the direction tags.
func (c *Config) Policy() (scoring.DirectionPolicy, error) {
	p := make(scoring.DirectionPolicy, len(c.Directions))
	for ind, tag := range c.Directions {
		d, err := scoring.ParseDirection(tag)
		if err != nil {
			return nil, fmt.Errorf("direction for %s: %w", ind, err)
		}
		p[ind] = d
	}
	return p, nil
}

// Cuts returns the configured quantile cuts.
func (c *Config) Cuts() scoring.Cuts {
	return scoring.Cuts{Lower: c.Scoring.LowerCut, Upper: c.Scoring.UpperCut}
}

// NewEngine builds a scoring engine from the configuration. Extra options are
// applied last.
func (c *Config) NewEngine(extra ...scoring.Option) (*scoring.Engine, error) {
	policy, err := c.Policy()
	if err != nil {
		return nil, err
	}
	mode, err := scoring.ParseAggregationMode(c.Scoring.Aggregation)
	if err != nil {
		return nil, err
	}
	opts := []scoring.Option{
		scoring.WithCuts(c.Cuts()),
		scoring.WithGroupCuts(c.Cuts()),
		scoring.WithThreshold(c.Scoring.CorrelationThreshold),
		scoring.WithBaseWeight(c.Scoring.BaseWeight),
		scoring.WithCorrelation(c.Scoring.Correlate),
		scoring.WithAggregation(mode),
		scoring.WithDiagnostics(c.Scoring.Diagnostics),
		scoring.WithOverrides(c.Overrides),
	}
	return scoring.NewEngine(c.Categories, policy, append(opts, extra...)...)
}

// FindConfigFile looks for .tierscore/config.yaml in the given directory
// and its parents, returning the path if found, or "" if not.
func FindConfigFile(dir string) string {
	for {
		candidate := filepath.Join(dir, ".tierscore", "config.yaml")
		if _, err := os.Stat(candidate); err == nil {
			return candidate
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}
	return ""
}

// CacheDir returns the user-level cache directory for tierscore.
func CacheDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		// Fallback to temp dir if HOME isn't available
		home = os.TempDir()
	}
	return filepath.Join(home, ".cache", "tierscore")
}

// ResultDir returns the directory where the CLI keeps scored results.
func ResultDir() string {
	return filepath.Join(CacheDir(), "results")
}
