package scoring

import "sort"

// Cuts are the lower and upper quantiles that separate the inlier population
// from the tails.
type Cuts struct {
	Lower float64 `yaml:"lower" json:"lower"`
	Upper float64 `yaml:"upper" json:"upper"`
}

// DefaultCuts trims 5% from each tail.
var DefaultCuts = Cuts{Lower: 0.05, Upper: 0.95}

// Validate requires 0 <= Lower < Upper <= 1.
func (c Cuts) Validate() error {
	if c.Lower < 0 || c.Upper > 1 || c.Lower >= c.Upper {
		return ErrInvalidCuts
	}
	return nil
}

// binPopulation assigns one label per value. values must be free of NaN.
//
// Values between the two cut quantiles (inclusive) form the inlier
// population. Eight equal-probability bins are drawn over the distinct
// inlier values; duplicate edges collapse. The favorable end of the
// population gets T1 and each step away from it one tier worse. Values
// beyond the edges clamp to T1 or T8 depending on which side they fall.
func binPopulation(values []float64, dir Direction, cuts Cuts) []Label {
	labels := make([]Label, len(values))
	if len(values) == 0 {
		return labels
	}

	sorted := sortedCopy(values)
	qLow := Quantile(sorted, cuts.Lower)
	qHigh := Quantile(sorted, cuts.Upper)

	inliers := make([]float64, 0, len(values))
	for _, v := range values {
		if v >= qLow && v <= qHigh {
			inliers = append(inliers, v)
		}
	}
	distinct := distinctSorted(inliers)

	below, above := T8, T1
	if dir == LowerIsBetter {
		below, above = T1, T8
	}

	if len(distinct) < 2 {
		for i, v := range values {
			switch {
			case v < qLow:
				labels[i] = below
			case v > qHigh:
				labels[i] = above
			default:
				labels[i] = T4
			}
		}
		return labels
	}

	edges := binEdges(distinct)
	bins := len(edges) - 1
	for i, v := range values {
		switch {
		case v < edges[0]:
			labels[i] = below
		case v > edges[bins]:
			labels[i] = above
		default:
			labels[i] = labelForBin(binIndex(edges, v), bins, dir)
		}
	}
	return labels
}

// binEdges returns the deduplicated 0, 12.5, ..., 100 percentiles of the
// sorted distinct values.
func binEdges(distinct []float64) []float64 {
	edges := make([]float64, 0, Tiers+1)
	for k := 0; k <= Tiers; k++ {
		edges = append(edges, Quantile(distinct, float64(k)/Tiers))
	}
	return distinctSorted(edges)
}

// binIndex locates v in right-closed bins (e[j-1], e[j]], with the first bin
// also closed on the left. v must lie within [e[0], e[last]].
func binIndex(edges []float64, v float64) int {
	j := sort.SearchFloat64s(edges, v)
	if j == 0 {
		return 0
	}
	return j - 1
}

// labelForBin numbers bins from the favorable end, so with fewer than eight
// bins the labels used are T1..Tn.
func labelForBin(idx, bins int, dir Direction) Label {
	if dir == LowerIsBetter {
		return LabelFromRank(idx + 1)
	}
	return LabelFromRank(bins - idx)
}
