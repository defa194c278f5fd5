// Package surface defines output rendering for scoring results.
// Implementations handle different output targets: terminal, JSON, Markdown,
// CSV and XLSX.
package surface

import (
	"io"
	"math"

	"github.com/tierscore/tierscore/pkg/scoring"
)

// Renderer produces formatted output from a Result.
type Renderer interface {
	// Render writes the formatted result to the writer.
	Render(w io.Writer, result *scoring.Result) error
}

// CategorySummary is the per-category overview shared by the renderers.
type CategorySummary struct {
	Name         string                    `json:"name"`
	Members      []string                  `json:"members"`
	Weights      []scoring.IndicatorWeight `json:"weights"`
	Clusters     [][]string                `json:"clusters,omitempty"`
	Excluded     []string                  `json:"excluded,omitempty"`
	Distribution map[string]int            `json:"distribution"`
	Scored       int                       `json:"scored"`
	MeanScore    *float64                  `json:"mean_score"`
}

// Summarize builds one summary per category.
func Summarize(result *scoring.Result) []CategorySummary {
	out := make([]CategorySummary, 0, len(result.Categories))
	for i := range result.Categories {
		c := &result.Categories[i]
		d := scoring.Distribution(c.Labels)
		s := CategorySummary{
			Name:         c.Name,
			Members:      c.Members,
			Weights:      c.SortedWeights(),
			Clusters:     c.Clusters,
			Excluded:     c.Excluded,
			Distribution: make(map[string]int, scoring.Tiers+1),
		}
		for rank, n := range d {
			if rank == 0 {
				s.Distribution["missing"] = n
				continue
			}
			s.Distribution[string(scoring.LabelFromRank(rank))] = n
		}

		var sum float64
		for _, v := range c.Scores {
			if !math.IsNaN(v) {
				sum += v
				s.Scored++
			}
		}
		if s.Scored > 0 {
			mean := sum / float64(s.Scored)
			s.MeanScore = &mean
		}
		out = append(out, s)
	}
	return out
}

// ForFormat returns the renderer for an output format name.
func ForFormat(format string, withIndicators bool) (Renderer, bool) {
	switch format {
	case "text", "":
		return &TerminalRenderer{}, true
	case "json":
		return &JSONRenderer{WithIndicators: withIndicators}, true
	case "markdown", "md":
		return &MarkdownRenderer{}, true
	case "csv":
		return &CSVRenderer{WithIndicators: withIndicators}, true
	case "xlsx":
		return &XLSXRenderer{WithIndicators: withIndicators}, true
	}
	return nil, false
}
