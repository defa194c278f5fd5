package scoring

import (
	"fmt"
	"math"
)

// DefaultCorrelationThreshold is the absolute correlation above which two
// indicators share a cluster.
const DefaultCorrelationThreshold = 0.9

// Clusterer groups highly correlated indicators and splits a base weight
// evenly within each group.
type Clusterer struct {
	Threshold  float64
	BaseWeight float64
}

// Clustering is the outcome of one clustering pass.
type Clustering struct {
	Weights  map[string]float64 `json:"weights"`
	Clusters [][]string         `json:"clusters"`
}

// Cluster walks indicators in order. Each unvisited indicator opens a cluster
// and pulls in every later unvisited indicator whose absolute correlation
// with it exceeds the threshold. The result depends on input order and is
// not transitive. corr must be square and match indicators.
func (c Clusterer) Cluster(indicators []string, corr [][]float64) (Clustering, error) {
	if err := checkMatrix(indicators, corr); err != nil {
		return Clustering{}, err
	}
	if c.Threshold < 0 || c.Threshold > 1 || math.IsNaN(c.Threshold) {
		return Clustering{}, ErrInvalidThreshold
	}
	if c.BaseWeight < 0 || math.IsNaN(c.BaseWeight) || math.IsInf(c.BaseWeight, 0) {
		return Clustering{}, fmt.Errorf("%w: base weight %v", ErrInvalidWeight, c.BaseWeight)
	}

	out := Clustering{Weights: make(map[string]float64, len(indicators))}
	visited := make([]bool, len(indicators))
	for i := range indicators {
		if visited[i] {
			continue
		}
		members := []int{i}
		visited[i] = true
		for j := i + 1; j < len(indicators); j++ {
			if !visited[j] && math.Abs(corr[i][j]) > c.Threshold {
				members = append(members, j)
				visited[j] = true
			}
		}

		w := c.BaseWeight / float64(len(members))
		names := make([]string, len(members))
		for k, m := range members {
			names[k] = indicators[m]
			out.Weights[indicators[m]] = w
		}
		out.Clusters = append(out.Clusters, names)
	}
	return out, nil
}

func checkMatrix(indicators []string, corr [][]float64) error {
	if len(corr) != len(indicators) {
		return fmt.Errorf("%w: %d rows for %d indicators", ErrDimensionMismatch, len(corr), len(indicators))
	}
	for i, row := range corr {
		if len(row) != len(indicators) {
			return fmt.Errorf("%w: row %d has %d columns, want %d", ErrDimensionMismatch, i, len(row), len(indicators))
		}
	}
	return nil
}
