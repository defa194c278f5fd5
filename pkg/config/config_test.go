package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/tierscore/tierscore/pkg/scoring"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.Scoring.LowerCut != 0.05 || cfg.Scoring.UpperCut != 0.95 {
		t.Errorf("expected default cuts 0.05/0.95, got %v/%v", cfg.Scoring.LowerCut, cfg.Scoring.UpperCut)
	}
	if cfg.Scoring.CorrelationThreshold != 0.9 {
		t.Errorf("expected default threshold 0.9, got %v", cfg.Scoring.CorrelationThreshold)
	}
	if len(cfg.Categories) != 6 {
		t.Errorf("expected 6 default categories, got %d", len(cfg.Categories))
	}
	if len(cfg.Directions) != 39 {
		t.Errorf("expected 39 default directions, got %d", len(cfg.Directions))
	}
	if cfg.Directions["STD_RTD96"] != "low_good" {
		t.Errorf("expected STD_RTD96 low_good, got %q", cfg.Directions["STD_RTD96"])
	}
	if cfg.Scoring.Weights == nil {
		t.Error("expected Weights map to be initialized, got nil")
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("default config should validate: %v", err)
	}
}

func TestDefaultCategoriesHaveDirections(t *testing.T) {
	dirs := DefaultDirections()
	for _, c := range DefaultCategories() {
		for _, ind := range c.Indicators {
			if _, ok := dirs[ind]; !ok {
				t.Errorf("%s member %s has no direction", c.Name, ind)
			}
		}
	}
}

func TestLoad(t *testing.T) {
	tests := []struct {
		name    string
		yaml    string
		missing bool
		wantErr error
		check   func(t *testing.T, cfg *Config)
	}{
		{
			name:    "non-existent file returns defaults",
			missing: true,
			check: func(t *testing.T, cfg *Config) {
				if len(cfg.Categories) != 6 {
					t.Errorf("expected default categories, got %d", len(cfg.Categories))
				}
			},
		},
		{
			name: "valid YAML overrides defaults",
			yaml: `
scoring:
  lower_cut: 0.1
  upper_cut: 0.9
  correlation_threshold: 0.8
  correlate: false
  aggregation: labels
  weights:
    STD_RTD92: 2
categories:
  - name: Liquidity
    indicators: [STD_RTD92, STD_RTD93]
directions:
  STD_RTD93: low_good
`,
			check: func(t *testing.T, cfg *Config) {
				if cfg.Scoring.LowerCut != 0.1 || cfg.Scoring.UpperCut != 0.9 {
					t.Errorf("expected cuts 0.1/0.9, got %v/%v", cfg.Scoring.LowerCut, cfg.Scoring.UpperCut)
				}
				if cfg.Scoring.Correlate {
					t.Error("expected correlate false")
				}
				if len(cfg.Categories) != 1 || cfg.Categories[0].Name != "Liquidity" {
					t.Errorf("expected categories to be replaced, got %+v", cfg.Categories)
				}
				if cfg.Directions["STD_RTD93"] != "low_good" {
					t.Errorf("expected STD_RTD93 low_good, got %q", cfg.Directions["STD_RTD93"])
				}
				if cfg.Directions["STD_RTD71"] != "low_good" {
					t.Error("expected default directions to be kept")
				}
				if cfg.Scoring.Weights["STD_RTD92"] != 2 {
					t.Errorf("expected weight 2, got %v", cfg.Scoring.Weights["STD_RTD92"])
				}
			},
		},
		{
			name: "custom override rules",
			yaml: `
overrides:
  - indicator: STD_RTD92
    rules:
      - label: T8
        when:
          - {op: lt, value: 0}
`,
			check: func(t *testing.T, cfg *Config) {
				ov, ok := cfg.Overrides.For("STD_RTD92")
				if !ok {
					t.Fatal("expected STD_RTD92 override")
				}
				if ov.Rules[0].Label != scoring.T8 || ov.Rules[0].When[0].Op != scoring.OpLT {
					t.Errorf("unexpected rule %+v", ov.Rules[0])
				}
				if _, ok := cfg.Overrides.For("STD_RTD97"); ok {
					t.Error("expected override list to be replaced")
				}
			},
		},
		{
			name:    "unknown direction tag",
			yaml:    "directions:\n  STD_RTD92: sideways\n",
			wantErr: ErrUnknownDirection,
		},
		{
			name:    "inverted cuts",
			yaml:    "scoring:\n  lower_cut: 0.9\n  upper_cut: 0.1\n",
			wantErr: scoring.ErrInvalidCuts,
		},
		{
			name:    "negative weight",
			yaml:    "scoring:\n  weights:\n    STD_RTD92: -1\n",
			wantErr: scoring.ErrInvalidWeight,
		},
		{
			name:    "invalid YAML returns error",
			yaml:    "{{invalid yaml",
			wantErr: errors.New("any"),
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			dir := t.TempDir()
			path := filepath.Join(dir, "config.yaml")

			if !tc.missing {
				if err := os.WriteFile(path, []byte(tc.yaml), 0o644); err != nil {
					t.Fatalf("write test config: %v", err)
				}
			}

			cfg, err := Load(path)
			if tc.wantErr != nil {
				if err == nil {
					t.Fatal("expected error, got nil")
				}
				if tc.wantErr.Error() != "any" && !errors.Is(err, tc.wantErr) {
					t.Fatalf("expected %v, got %v", tc.wantErr, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if tc.check != nil {
				tc.check(t, cfg)
			}
		})
	}
}

func TestNewEngine(t *testing.T) {
	cfg := DefaultConfig()
	e, err := cfg.NewEngine()
	if err != nil {
		t.Fatalf("NewEngine: %v", err)
	}
	if len(e.Categories()) != 6 {
		t.Errorf("expected 6 categories, got %d", len(e.Categories()))
	}
	if d, _ := e.Policy().Lookup("STD_RTD81"); d != scoring.LowerIsBetter {
		t.Errorf("expected STD_RTD81 lower-is-better, got %s", d)
	}
}

func TestResultDir(t *testing.T) {
	dir := ResultDir()
	if !strings.HasSuffix(dir, filepath.Join(".cache", "tierscore", "results")) {
		t.Errorf("unexpected result dir %q", dir)
	}
}

func TestFindConfigFile(t *testing.T) {
	t.Run("found in current directory", func(t *testing.T) {
		root := t.TempDir()
		configDir := filepath.Join(root, ".tierscore")
		if err := os.MkdirAll(configDir, 0o755); err != nil {
			t.Fatalf("create config dir: %v", err)
		}
		configPath := filepath.Join(configDir, "config.yaml")
		if err := os.WriteFile(configPath, []byte("{}"), 0o644); err != nil {
			t.Fatalf("write config: %v", err)
		}

		got := FindConfigFile(root)
		if got != configPath {
			t.Errorf("FindConfigFile = %q, want %q", got, configPath)
		}
	})

	t.Run("found in parent directory", func(t *testing.T) {
		root := t.TempDir()
		configDir := filepath.Join(root, ".tierscore")
		if err := os.MkdirAll(configDir, 0o755); err != nil {
			t.Fatalf("create config dir: %v", err)
		}
		configPath := filepath.Join(configDir, "config.yaml")
		if err := os.WriteFile(configPath, []byte("{}"), 0o644); err != nil {
			t.Fatalf("write config: %v", err)
		}

		sub := filepath.Join(root, "data", "2023")
		if err := os.MkdirAll(sub, 0o755); err != nil {
			t.Fatalf("create sub: %v", err)
		}

		got := FindConfigFile(sub)
		if got != configPath {
			t.Errorf("FindConfigFile = %q, want %q", got, configPath)
		}
	})

	t.Run("not found", func(t *testing.T) {
		root := t.TempDir()
		got := FindConfigFile(root)
		if got != "" {
			t.Errorf("FindConfigFile = %q, want empty", got)
		}
	})
}
