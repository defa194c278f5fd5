package scoring

import (
	"math"

	"github.com/tierscore/tierscore/pkg/batch"
)

// minIndicatorValues is the fewest present values an indicator needs before
// it is binned at all.
const minIndicatorValues = 3

// IndicatorBinner turns one indicator column into labels relative to the rest
// of the batch.
type IndicatorBinner struct {
	Cuts      Cuts
	Overrides Overrides
	// Diagnose enables the Shapiro-Wilk diagnostic.
	Diagnose bool
}

// IndicatorResult is the labelling of one indicator across a batch.
type IndicatorResult struct {
	Indicator  string     `json:"indicator"`
	Direction  Direction  `json:"direction"`
	Labels     []Label    `json:"labels"`
	Present    int        `json:"present"`
	Overridden int        `json:"overridden"`
	Normality  *Normality `json:"normality,omitempty"`
}

// Bin labels every entity for one indicator. Entities without a value, or
// every entity when fewer than three values are present, get Missing.
func (ib *IndicatorBinner) Bin(b *batch.Batch, indicator string, dir Direction) IndicatorResult {
	res := IndicatorResult{
		Indicator: indicator,
		Direction: dir,
		Labels:    make([]Label, b.Len()),
	}

	col := b.Column(indicator)
	present := make([]int, 0, len(col))
	for i, v := range col {
		if !math.IsNaN(v) {
			present = append(present, i)
		}
	}
	res.Present = len(present)
	if len(present) < minIndicatorValues {
		return res
	}

	generic := present
	if ov, ok := ib.Overrides.For(indicator); ok && ov.appliesTo(b) {
		generic = make([]int, 0, len(present))
		for _, i := range present {
			if l, matched := ov.match(&b.Entities[i], col[i]); matched {
				res.Labels[i] = l
				res.Overridden++
				continue
			}
			generic = append(generic, i)
		}
	}
	if len(generic) < minIndicatorValues {
		return res
	}

	values := make([]float64, len(generic))
	for k, i := range generic {
		values[k] = col[i]
	}
	for k, l := range binPopulation(values, dir, ib.cuts()) {
		res.Labels[generic[k]] = l
	}

	if ib.Diagnose {
		if n, err := CheckNormality(values); err == nil {
			res.Normality = &n
		}
	}
	return res
}

func (ib *IndicatorBinner) cuts() Cuts {
	if ib.Cuts == (Cuts{}) {
		return DefaultCuts
	}
	return ib.Cuts
}
