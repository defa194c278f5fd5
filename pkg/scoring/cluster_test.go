package scoring_test

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tierscore/tierscore/pkg/batch"
	"github.com/tierscore/tierscore/pkg/scoring"
)

func TestClusterSplitsWeight(t *testing.T) {
	inds := []string{"A", "B", "C"}
	corr := [][]float64{
		{1, 0.95, 0.2},
		{0.95, 1, 0.1},
		{0.2, 0.1, 1},
	}

	cl, err := scoring.Clusterer{Threshold: 0.9, BaseWeight: 1}.Cluster(inds, corr)
	require.NoError(t, err)

	assert.Equal(t, map[string]float64{"A": 0.5, "B": 0.5, "C": 1}, cl.Weights)
	assert.Equal(t, [][]string{{"A", "B"}, {"C"}}, cl.Clusters)
}

func TestClusterConservesBaseWeight(t *testing.T) {
	inds := []string{"A", "B", "C", "D", "E"}
	corr := [][]float64{
		{1, 0.95, -0.93, 0, 0},
		{0.95, 1, 0.5, 0, 0},
		{-0.93, 0.5, 1, 0, 0.99},
		{0, 0, 0, 1, math.NaN()},
		{0, 0, 0.99, math.NaN(), 1},
	}

	cl, err := scoring.Clusterer{Threshold: 0.9, BaseWeight: 2}.Cluster(inds, corr)
	require.NoError(t, err)

	for _, members := range cl.Clusters {
		var sum float64
		for _, m := range members {
			sum += cl.Weights[m]
		}
		assert.InDelta(t, 2.0, sum, 1e-12, "cluster %v", members)
	}
}

func TestClusterIsGreedyAndOrderSensitive(t *testing.T) {
	// A~B and B~C, but A and C are uncorrelated.
	corr := func(order []string) [][]float64 {
		pairs := map[[2]string]float64{
			{"A", "B"}: 0.95, {"B", "C"}: 0.95, {"A", "C"}: 0.1,
		}
		m := make([][]float64, len(order))
		for i := range order {
			m[i] = make([]float64, len(order))
			for j := range order {
				switch {
				case i == j:
					m[i][j] = 1
				default:
					if v, ok := pairs[[2]string{order[i], order[j]}]; ok {
						m[i][j] = v
					} else {
						m[i][j] = pairs[[2]string{order[j], order[i]}]
					}
				}
			}
		}
		return m
	}

	c := scoring.Clusterer{Threshold: 0.9, BaseWeight: 1}

	abc, err := c.Cluster([]string{"A", "B", "C"}, corr([]string{"A", "B", "C"}))
	require.NoError(t, err)
	assert.Equal(t, [][]string{{"A", "B"}, {"C"}}, abc.Clusters)

	bac, err := c.Cluster([]string{"B", "A", "C"}, corr([]string{"B", "A", "C"}))
	require.NoError(t, err)
	assert.Equal(t, [][]string{{"B", "A", "C"}}, bac.Clusters)
	assert.InDelta(t, 1.0/3, bac.Weights["C"], 1e-12)
}

func TestClusterThresholdIsStrict(t *testing.T) {
	cl, err := scoring.Clusterer{Threshold: 0.9, BaseWeight: 1}.Cluster(
		[]string{"A", "B"}, [][]float64{{1, 0.9}, {0.9, 1}})
	require.NoError(t, err)
	assert.Len(t, cl.Clusters, 2)
}

func TestClusterDimensionMismatch(t *testing.T) {
	c := scoring.Clusterer{Threshold: 0.9, BaseWeight: 1}

	_, err := c.Cluster([]string{"A", "B", "C"}, [][]float64{{1, 0}, {0, 1}})
	assert.ErrorIs(t, err, scoring.ErrDimensionMismatch)

	_, err = c.Cluster([]string{"A", "B"}, [][]float64{{1, 0}, {0}})
	assert.ErrorIs(t, err, scoring.ErrDimensionMismatch)
}

func TestCorrelationMatrixPairwise(t *testing.T) {
	b := &batch.Batch{}
	rows := [][3]any{
		{1.0, 2.0, 5.0},
		{2.0, 4.0, nil},
		{3.0, 6.0, 1.0},
		{4.0, 8.0, 7.0},
		{nil, 10.0, 3.0},
	}
	for i, r := range rows {
		b.Entities = append(b.Entities, batch.Entity{
			TaxCode: string(rune('a' + i)),
			Fields:  map[string]any{"X": r[0], "Y": r[1], "Z": r[2]},
		})
	}

	m := scoring.CorrelationMatrix(b, []string{"X", "Y", "Z"})

	assert.InDelta(t, 1.0, m[0][1], 1e-12)
	assert.InDelta(t, m[0][1], m[1][0], 0)
	assert.InDelta(t, 1.0, m[0][0], 1e-12)
	assert.False(t, math.IsNaN(m[1][2]))

	pairs, err := scoring.HighlyCorrelated([]string{"X", "Y", "Z"}, m, 0.9)
	require.NoError(t, err)
	require.Len(t, pairs, 1)
	assert.Equal(t, "X", pairs[0].A)
	assert.Equal(t, "Y", pairs[0].B)
}

func TestCorrelationMatrixConstantColumnIsNaN(t *testing.T) {
	b := &batch.Batch{}
	for i := 0; i < 5; i++ {
		b.Entities = append(b.Entities, batch.Entity{
			TaxCode: string(rune('a' + i)),
			Fields:  map[string]any{"X": float64(i), "K": 3.0},
		})
	}

	m := scoring.CorrelationMatrix(b, []string{"X", "K"})
	assert.True(t, math.IsNaN(m[0][1]))
}
