package main

import (
	"bytes"
	"encoding/json"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestScoreCmdFlags(t *testing.T) {
	cmd := newScoreCmd()
	f := cmd.Flags()

	outputFmt, _ := f.GetString("output")
	if outputFmt != "text" {
		t.Errorf("default output = %q, want text", outputFmt)
	}
	limit, _ := f.GetInt("limit")
	if limit != 20 {
		t.Errorf("default limit = %d, want 20", limit)
	}

	for _, flag := range []string{"input", "delimiter", "sheet", "raw", "output", "out", "indicators",
		"aggregation", "no-correlation", "diagnostics", "concurrency", "save", "limit"} {
		if f.Lookup(flag) == nil {
			t.Errorf("missing flag: %s", flag)
		}
	}
}

func TestCorrelateCmdFlags(t *testing.T) {
	f := newCorrelateCmd().Flags()
	threshold, _ := f.GetFloat64("threshold")
	if threshold != 0.9 {
		t.Errorf("default threshold = %v, want 0.9", threshold)
	}
	for _, flag := range []string{"input", "category", "threshold", "output"} {
		if f.Lookup(flag) == nil {
			t.Errorf("missing flag: %s", flag)
		}
	}
}

func TestSampleCmdFlags(t *testing.T) {
	f := newSampleCmd().Flags()
	n, _ := f.GetInt("n")
	seed, _ := f.GetUint64("seed")
	if n != 1000 || seed != 42 {
		t.Errorf("defaults = (%d, %d), want (1000, 42)", n, seed)
	}
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	root := newRootCmd()
	var out, errOut bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&errOut)
	root.SetArgs(args)
	err := root.Execute()
	return out.String(), err
}

func TestSampleThenScore(t *testing.T) {
	dir := t.TempDir()
	csvPath := filepath.Join(dir, "batch.csv")

	_, err := execute(t, "sample", "--n", "60", "--seed", "7", "--out", csvPath)
	require.NoError(t, err)

	out, err := execute(t, "score", "-i", csvPath, "-o", "json")
	require.NoError(t, err)

	var report struct {
		Categories []struct {
			Name         string         `json:"name"`
			Distribution map[string]int `json:"distribution"`
		} `json:"categories"`
		Results []map[string]any `json:"results"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &report))
	assert.Len(t, report.Results, 60)
	require.NotEmpty(t, report.Categories)
	for _, c := range report.Categories {
		total := 0
		for _, n := range c.Distribution {
			total += n
		}
		assert.Equal(t, 60, total, c.Name)
	}
}

func TestSampleJSONThenDescribe(t *testing.T) {
	path := filepath.Join(t.TempDir(), "batch.json")
	_, err := execute(t, "sample", "--n", "25", "--out", path)
	require.NoError(t, err)

	out, err := execute(t, "describe", "-i", path)
	require.NoError(t, err)
	assert.Contains(t, out, "rows:       25")
	assert.Contains(t, out, "missing:")
}

func TestCorrelateJSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "batch.csv")
	_, err := execute(t, "sample", "--n", "40", "--out", path)
	require.NoError(t, err)

	out, err := execute(t, "correlate", "-i", path, "-o", "json", "--threshold", "0.5")
	require.NoError(t, err)

	var reports []categoryCorrelation
	require.NoError(t, json.Unmarshal([]byte(out), &reports))
	require.NotEmpty(t, reports)
	for _, r := range reports {
		assert.Len(t, r.Matrix, len(r.Members), r.Category)
		assert.Len(t, r.Weights, len(r.Members), r.Category)
	}
}

func TestCorrelateUnknownCategory(t *testing.T) {
	path := filepath.Join(t.TempDir(), "batch.csv")
	_, err := execute(t, "sample", "--n", "10", "--out", path)
	require.NoError(t, err)

	_, err = execute(t, "correlate", "-i", path, "--category", "Nope")
	require.Error(t, err)
	assert.True(t, strings.Contains(err.Error(), "unknown category"))
}

func TestScoreRejectsUnknownFormat(t *testing.T) {
	path := filepath.Join(t.TempDir(), "batch.csv")
	_, err := execute(t, "sample", "--n", "10", "--out", path)
	require.NoError(t, err)

	_, err = execute(t, "score", "-i", path, "-o", "yaml")
	assert.ErrorContains(t, err, "unknown output format")
}

func TestScoreXLSXNeedsOut(t *testing.T) {
	path := filepath.Join(t.TempDir(), "batch.csv")
	_, err := execute(t, "sample", "--n", "10", "--out", path)
	require.NoError(t, err)

	_, err = execute(t, "score", "-i", path, "-o", "xlsx")
	assert.ErrorContains(t, err, "requires --out")
}
