package scoring

import "math"

// GroupBinner turns raw category scores into labels. Higher raw scores are
// better and no override rules apply.
type GroupBinner struct {
	Cuts Cuts
}

// Bin labels each score; NaN scores get Missing. Unlike indicators there is
// no minimum population, so a lone present score lands on T4.
func (gb *GroupBinner) Bin(scores []float64) []Label {
	labels := make([]Label, len(scores))

	idx := make([]int, 0, len(scores))
	values := make([]float64, 0, len(scores))
	for i, v := range scores {
		if !math.IsNaN(v) && !math.IsInf(v, 0) {
			idx = append(idx, i)
			values = append(values, v)
		}
	}

	cuts := gb.Cuts
	if cuts == (Cuts{}) {
		cuts = DefaultCuts
	}
	for k, l := range binPopulation(values, HigherIsBetter, cuts) {
		labels[idx[k]] = l
	}
	return labels
}
