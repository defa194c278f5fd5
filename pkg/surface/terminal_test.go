package surface_test

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"math"
	"os"
	"strings"
	"testing"

	"github.com/xuri/excelize/v2"

	"github.com/tierscore/tierscore/pkg/scoring"
	"github.com/tierscore/tierscore/pkg/surface"
)

func sampleResult() *scoring.Result {
	return &scoring.Result{
		Entities: []scoring.EntityKey{
			{TaxCode: "0100100", Sector: "S1", Year: 2023},
			{TaxCode: "0100200", Sector: "S1", Year: 2023},
			{TaxCode: "0100300", Sector: "S2"},
		},
		Indicators: []scoring.IndicatorResult{
			{
				Indicator: "STD_RTD7",
				Labels:    []scoring.Label{scoring.T1, scoring.T5, scoring.T8},
				Present:   3,
				Normality: &scoring.Normality{N: 3, W: 0.75, PValue: 0.001, Normal: false},
			},
			{
				Indicator: "STD_RTD8",
				Labels:    []scoring.Label{scoring.T2, scoring.T4, scoring.Missing},
				Present:   2,
			},
		},
		Categories: []scoring.CategoryResult{
			{
				Name:     "Profitability",
				Members:  []string{"STD_RTD7", "STD_RTD8"},
				Weights:  map[string]float64{"STD_RTD7": 0.5, "STD_RTD8": 0.5},
				Clusters: [][]string{{"STD_RTD7", "STD_RTD8"}},
				Excluded: []string{"STD_RTD9"},
				Scores:   []float64{0.42, 0.11, math.NaN()},
				Labels:   []scoring.Label{scoring.T1, scoring.T8, scoring.Missing},
			},
			{
				Name:   "Leverage",
				Scores: []float64{math.NaN(), math.NaN(), math.NaN()},
				Labels: []scoring.Label{scoring.Missing, scoring.Missing, scoring.Missing},
			},
		},
	}
}

func TestTerminalRenderer_BasicOutput(t *testing.T) {
	t.Setenv("NO_COLOR", "1")

	r := &surface.TerminalRenderer{}
	var buf bytes.Buffer

	if err := r.Render(&buf, sampleResult()); err != nil {
		t.Fatalf("Render() error: %v", err)
	}

	output := buf.String()
	for _, want := range []string{
		"3 entities, 2 indicators, 2 categories",
		"Profitability",
		"T1:1",
		"T8:1",
		"missing:1",
		"correlated: STD_RTD7, STD_RTD8",
		"no member indicators in this batch",
		"0100300",
	} {
		if !strings.Contains(output, want) {
			t.Errorf("expected %q in output:\n%s", want, output)
		}
	}
	if strings.Contains(output, "\033[") {
		t.Error("expected no ANSI codes with NO_COLOR set")
	}
}

func TestTerminalRenderer_Limit(t *testing.T) {
	t.Setenv("NO_COLOR", "1")

	r := &surface.TerminalRenderer{Limit: 1}
	var buf bytes.Buffer
	if err := r.Render(&buf, sampleResult()); err != nil {
		t.Fatalf("Render() error: %v", err)
	}

	output := buf.String()
	if !strings.Contains(output, "... and 2 more") {
		t.Errorf("expected truncation marker, got:\n%s", output)
	}
	if strings.Contains(output, "0100200") {
		t.Error("expected second row to be cut")
	}
}

func TestTerminalRenderer_ColorRespected(t *testing.T) {
	os.Unsetenv("NO_COLOR")

	r := &surface.TerminalRenderer{}
	var buf bytes.Buffer
	if err := r.Render(&buf, sampleResult()); err != nil {
		t.Fatalf("Render() error: %v", err)
	}
	if !strings.Contains(buf.String(), "\033[") {
		t.Error("expected ANSI escape codes when NO_COLOR is not set")
	}
}

func TestSummarize(t *testing.T) {
	sums := surface.Summarize(sampleResult())
	if len(sums) != 2 {
		t.Fatalf("expected 2 summaries, got %d", len(sums))
	}
	p := sums[0]
	if p.Scored != 2 {
		t.Errorf("Scored = %d, want 2", p.Scored)
	}
	if p.MeanScore == nil || math.Abs(*p.MeanScore-0.265) > 1e-9 {
		t.Errorf("MeanScore = %v, want 0.265", p.MeanScore)
	}
	if p.Distribution["T1"] != 1 || p.Distribution["T8"] != 1 || p.Distribution["missing"] != 1 {
		t.Errorf("unexpected distribution %v", p.Distribution)
	}
	if sums[1].MeanScore != nil {
		t.Error("expected nil mean for an unscored category")
	}
}

func TestJSONRenderer(t *testing.T) {
	r := &surface.JSONRenderer{WithIndicators: true}
	var buf bytes.Buffer
	if err := r.Render(&buf, sampleResult()); err != nil {
		t.Fatalf("Render() error: %v", err)
	}

	var rep struct {
		Categories []surface.CategorySummary `json:"categories"`
		Normality  map[string]json.RawMessage `json:"normality"`
		Results    []map[string]any           `json:"results"`
	}
	if err := json.Unmarshal(buf.Bytes(), &rep); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	if len(rep.Results) != 3 {
		t.Fatalf("expected 3 rows, got %d", len(rep.Results))
	}
	if _, ok := rep.Normality["STD_RTD7"]; !ok {
		t.Error("expected normality diagnostics for STD_RTD7")
	}
	last := rep.Results[2]
	if last["Profitability_Score"] != nil || last["Profitability_TScore"] != nil {
		t.Errorf("expected nulls for a missing score, got %v", last)
	}
	if last["STD_RTD8_Tscore"] != nil {
		t.Errorf("expected null indicator label, got %v", last["STD_RTD8_Tscore"])
	}
	if rep.Results[0]["Profitability_TScore"] != "T1" {
		t.Errorf("first row label = %v, want T1", rep.Results[0]["Profitability_TScore"])
	}
}

func TestMarkdownSummary(t *testing.T) {
	md := surface.BuildMarkdownSummary(sampleResult())
	for _, want := range []string{
		"## tierscore: 3 entities",
		"| Profitability | 1 |",
		"STD_RTD7=0.5",
		"correlated: STD_RTD7, STD_RTD8",
		"_no member indicators in this batch_",
		"excluded (no direction): STD_RTD9",
		"### Non-normal indicators",
	} {
		if !strings.Contains(md, want) {
			t.Errorf("expected %q in markdown:\n%s", want, md)
		}
	}
}

func TestCSVRenderer(t *testing.T) {
	r := &surface.CSVRenderer{}
	var buf bytes.Buffer
	if err := r.Render(&buf, sampleResult()); err != nil {
		t.Fatalf("Render() error: %v", err)
	}

	rows, err := csv.NewReader(&buf).ReadAll()
	if err != nil {
		t.Fatalf("reading CSV: %v", err)
	}
	if len(rows) != 4 {
		t.Fatalf("expected header + 3 rows, got %d", len(rows))
	}
	want := []string{"taxcode", "sector_unique_id", "yearreport",
		"Profitability_Score", "Profitability_TScore", "Leverage_Score", "Leverage_TScore"}
	if strings.Join(rows[0], ",") != strings.Join(want, ",") {
		t.Errorf("header = %v, want %v", rows[0], want)
	}
	if rows[3][2] != "" || rows[3][3] != "" {
		t.Errorf("expected empty cells for missing values, got %v", rows[3])
	}
	if rows[1][3] != "0.42" {
		t.Errorf("score cell = %q, want 0.42", rows[1][3])
	}
}

func TestXLSXRenderer(t *testing.T) {
	r := &surface.XLSXRenderer{WithIndicators: true}
	var buf bytes.Buffer
	if err := r.Render(&buf, sampleResult()); err != nil {
		t.Fatalf("Render() error: %v", err)
	}

	f, err := excelize.OpenReader(&buf)
	if err != nil {
		t.Fatalf("opening workbook: %v", err)
	}
	defer f.Close()

	rows, err := f.GetRows("Scores")
	if err != nil {
		t.Fatalf("reading Scores: %v", err)
	}
	if len(rows) != 4 {
		t.Fatalf("expected 4 rows, got %d", len(rows))
	}
	if rows[0][0] != "taxcode" || rows[1][0] != "0100100" {
		t.Errorf("unexpected first column: %q, %q", rows[0][0], rows[1][0])
	}

	weights, err := f.GetRows("Weights")
	if err != nil {
		t.Fatalf("reading Weights: %v", err)
	}
	if len(weights) != 3 {
		t.Errorf("expected header + 2 weight rows, got %d", len(weights))
	}
}

func TestForFormat(t *testing.T) {
	for _, f := range []string{"text", "json", "markdown", "md", "csv", "xlsx"} {
		if _, ok := surface.ForFormat(f, false); !ok {
			t.Errorf("ForFormat(%q) not found", f)
		}
	}
	if _, ok := surface.ForFormat("yaml", false); ok {
		t.Error("expected unknown format to fail")
	}
}
