package scoring

import (
	"fmt"
	"math"
)

// AggregationMode selects what the aggregator combines.
type AggregationMode string

const (
	// AggregateRaw combines raw indicator values signed by direction.
	AggregateRaw AggregationMode = "raw"
	// AggregateLabels combines indicator labels on the T1=8..T8=1 scale.
	AggregateLabels AggregationMode = "labels"
)

// ParseAggregationMode accepts "raw" or "labels". Empty means raw.
func ParseAggregationMode(s string) (AggregationMode, error) {
	switch AggregationMode(s) {
	case "", AggregateRaw:
		return AggregateRaw, nil
	case AggregateLabels:
		return AggregateLabels, nil
	}
	return "", fmt.Errorf("unknown aggregation mode %q", s)
}

// Member is one indicator's column prepared for aggregation.
type Member struct {
	Indicator string
	Values    []float64 // NaN for missing
	Sign      float64   // +1 or -1
	Weight    float64
}

// Aggregate combines members into one raw score per entity: the weighted mean
// of the signed values that are present. Members with zero weight are
// ignored. Entities with no usable member get NaN. n is the entity count.
func Aggregate(members []Member, n int) []float64 {
	sum := make([]float64, n)
	total := make([]float64, n)

	for _, m := range members {
		if m.Weight == 0 {
			continue
		}
		w := math.Abs(m.Weight)
		for i := 0; i < n && i < len(m.Values); i++ {
			v := m.Values[i]
			if math.IsNaN(v) {
				continue
			}
			sum[i] += v * m.Weight * m.Sign
			total[i] += w
		}
	}

	out := make([]float64, n)
	for i := range out {
		if total[i] == 0 {
			out[i] = math.NaN()
			continue
		}
		s := sum[i] / total[i]
		if math.IsInf(s, 0) {
			s = math.NaN()
		}
		out[i] = s
	}
	return out
}

// ValidateWeights rejects negative or non-finite weights.
func ValidateWeights(weights map[string]float64) error {
	for k, w := range weights {
		if w < 0 || math.IsNaN(w) || math.IsInf(w, 0) {
			return fmt.Errorf("%w: %s=%v", ErrInvalidWeight, k, w)
		}
	}
	return nil
}
