package scoring

import (
	"math"

	"gonum.org/v1/gonum/stat"

	"github.com/tierscore/tierscore/pkg/batch"
)

// CorrelationMatrix computes Pearson correlations between indicator columns
// using, for each pair, only the entities where both values are present.
// Pairs with fewer than two shared observations or zero variance are NaN.
func CorrelationMatrix(b *batch.Batch, indicators []string) [][]float64 {
	cols := make([][]float64, len(indicators))
	for i, ind := range indicators {
		cols[i] = b.Column(ind)
	}

	m := make([][]float64, len(indicators))
	for i := range m {
		m[i] = make([]float64, len(indicators))
	}
	for i := range indicators {
		for j := i; j < len(indicators); j++ {
			r := pairwisePearson(cols[i], cols[j])
			m[i][j], m[j][i] = r, r
		}
	}
	return m
}

func pairwisePearson(x, y []float64) float64 {
	xs := make([]float64, 0, len(x))
	ys := make([]float64, 0, len(y))
	for k := range x {
		if math.IsNaN(x[k]) || math.IsNaN(y[k]) {
			continue
		}
		xs = append(xs, x[k])
		ys = append(ys, y[k])
	}
	if len(xs) < 2 {
		return math.NaN()
	}
	r := stat.Correlation(xs, ys, nil)
	if math.IsInf(r, 0) {
		return math.NaN()
	}
	return r
}

// CorrelatedPair is two indicators whose absolute correlation exceeds a
// threshold.
type CorrelatedPair struct {
	A           string  `json:"a"`
	B           string  `json:"b"`
	Correlation float64 `json:"correlation"`
}

// HighlyCorrelated lists the upper-triangle pairs with |r| above threshold.
func HighlyCorrelated(indicators []string, corr [][]float64, threshold float64) ([]CorrelatedPair, error) {
	if err := checkMatrix(indicators, corr); err != nil {
		return nil, err
	}
	var pairs []CorrelatedPair
	for i := range indicators {
		for j := i + 1; j < len(indicators); j++ {
			if math.Abs(corr[i][j]) > threshold {
				pairs = append(pairs, CorrelatedPair{A: indicators[i], B: indicators[j], Correlation: corr[i][j]})
			}
		}
	}
	return pairs, nil
}
