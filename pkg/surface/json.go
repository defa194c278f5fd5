package surface

import (
	"encoding/json"
	"io"

	"github.com/tierscore/tierscore/pkg/scoring"
)

// JSONRenderer writes category summaries and the flat result table as
// indented JSON.
type JSONRenderer struct {
	WithIndicators bool
}

// Report is the JSON document written by JSONRenderer.
type Report struct {
	Categories []CategorySummary             `json:"categories"`
	Normality  map[string]*scoring.Normality `json:"normality,omitempty"`
	Results    []map[string]any              `json:"results"`
}

func (r *JSONRenderer) Render(w io.Writer, result *scoring.Result) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(BuildReport(result, r.WithIndicators))
}

// BuildReport assembles the JSON report for a result.
func BuildReport(result *scoring.Result, withIndicators bool) Report {
	rep := Report{
		Categories: Summarize(result),
		Results:    result.Records(withIndicators),
	}
	for _, ind := range result.Indicators {
		if ind.Normality == nil {
			continue
		}
		if rep.Normality == nil {
			rep.Normality = make(map[string]*scoring.Normality)
		}
		rep.Normality[ind.Indicator] = ind.Normality
	}
	return rep
}
