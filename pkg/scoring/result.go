// Package scoring turns raw financial indicators into batch-relative tiers.
// Each indicator is binned into T1 (best) through T8 (worst), correlated
// indicators share weight within their category, and the weighted category
// scores are binned again into a final category tier.
package scoring

import (
	"math"
	"sort"
)

// Column name suffixes of the output table.
const (
	IndicatorSuffix  = "_Tscore"
	GroupScoreSuffix = "_Score"
	GroupLabelSuffix = "_TScore"
)

// IndicatorColumn is the output column of an indicator label.
func IndicatorColumn(indicator string) string { return indicator + IndicatorSuffix }

// ScoreColumn is the output column of a category's raw score.
func ScoreColumn(category string) string { return category + GroupScoreSuffix }

// GroupColumn is the output column of a category's label.
func GroupColumn(category string) string { return category + GroupLabelSuffix }

// EntityKey identifies a row of the output table.
type EntityKey struct {
	TaxCode string `json:"taxcode"`
	Sector  string `json:"sector_unique_id"`
	Year    int    `json:"yearreport,omitempty"`
}

// CategoryResult holds one category's weights, raw scores and labels.
type CategoryResult struct {
	Name     string             `json:"name"`
	Members  []string           `json:"members"`
	Weights  map[string]float64 `json:"weights"`
	Clusters [][]string         `json:"clusters,omitempty"`
	// Excluded lists present indicators left out of label aggregation
	// because they have no direction and therefore no labels.
	Excluded []string  `json:"excluded,omitempty"`
	Scores   []float64 `json:"-"` // NaN when missing
	Labels   []Label   `json:"labels"`
}

// Result is the complete output of one run. Slices in Indicators and
// Categories are indexed like Entities.
type Result struct {
	Entities   []EntityKey       `json:"entities"`
	Indicators []IndicatorResult `json:"indicators"`
	Categories []CategoryResult  `json:"categories"`
}

// Columns returns the output table's column names: identity columns, then
// indicator labels, then each category's raw score and label.
func (r *Result) Columns(withIndicators bool) []string {
	cols := []string{"taxcode", "sector_unique_id", "yearreport"}
	if withIndicators {
		for _, ind := range r.Indicators {
			cols = append(cols, IndicatorColumn(ind.Indicator))
		}
	}
	for _, c := range r.Categories {
		cols = append(cols, ScoreColumn(c.Name), GroupColumn(c.Name))
	}
	return cols
}

// Records flattens the result into one map per entity keyed by column name.
// Missing scores and labels are nil.
func (r *Result) Records(withIndicators bool) []map[string]any {
	out := make([]map[string]any, len(r.Entities))
	for i, key := range r.Entities {
		rec := map[string]any{
			"taxcode":          key.TaxCode,
			"sector_unique_id": key.Sector,
		}
		if key.Year != 0 {
			rec["yearreport"] = key.Year
		} else {
			rec["yearreport"] = nil
		}
		if withIndicators {
			for _, ind := range r.Indicators {
				rec[IndicatorColumn(ind.Indicator)] = labelValue(ind.Labels[i])
			}
		}
		for _, c := range r.Categories {
			rec[ScoreColumn(c.Name)] = scoreValue(c.Scores[i])
			rec[GroupColumn(c.Name)] = labelValue(c.Labels[i])
		}
		out[i] = rec
	}
	return out
}

// Category returns the named category result.
func (r *Result) Category(name string) (*CategoryResult, bool) {
	for i := range r.Categories {
		if r.Categories[i].Name == name {
			return &r.Categories[i], true
		}
	}
	return nil, false
}

// Indicator returns the named indicator result.
func (r *Result) Indicator(name string) (*IndicatorResult, bool) {
	for i := range r.Indicators {
		if r.Indicators[i].Indicator == name {
			return &r.Indicators[i], true
		}
	}
	return nil, false
}

// Distribution counts labels per tier; index 0 counts Missing.
func Distribution(labels []Label) [Tiers + 1]int {
	var d [Tiers + 1]int
	for _, l := range labels {
		d[l.Rank()]++
	}
	return d
}

// SortedWeights returns a category's weights by descending weight, ties in
// member order.
func (c *CategoryResult) SortedWeights() []IndicatorWeight {
	out := make([]IndicatorWeight, 0, len(c.Weights))
	for _, m := range c.Members {
		out = append(out, IndicatorWeight{Indicator: m, Weight: c.Weights[m]})
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Weight > out[j].Weight })
	return out
}

// IndicatorWeight pairs an indicator with its effective weight.
type IndicatorWeight struct {
	Indicator string  `json:"indicator"`
	Weight    float64 `json:"weight"`
}

func labelValue(l Label) any {
	if l == Missing {
		return nil
	}
	return string(l)
}

func scoreValue(v float64) any {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return nil
	}
	return v
}
