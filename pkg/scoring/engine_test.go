package scoring_test

import (
	"context"
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tierscore/tierscore/pkg/batch"
	"github.com/tierscore/tierscore/pkg/scoring"
)

var liquidity = scoring.Category{Name: "Liquidity", Indicators: []string{"STD_RTD92", "STD_RTD93"}}

func liquidityBatch() *batch.Batch {
	b := &batch.Batch{}
	for i := 0; i < 10; i++ {
		v := float64(i + 1)
		b.Entities = append(b.Entities, batch.Entity{
			TaxCode: string(rune('a' + i)),
			Sector:  "C",
			Year:    2023,
			Fields:  map[string]any{"STD_RTD92": v, "STD_RTD93": v},
		})
	}
	// The last entity has no liquidity data at all.
	b.Entities = append(b.Entities, batch.Entity{
		TaxCode: "z",
		Sector:  "C",
		Fields:  map[string]any{"STD_RTD92": nil, "STD_RTD93": "n/a"},
	})
	return b
}

func newLiquidityEngine(t *testing.T, opts ...scoring.Option) *scoring.Engine {
	t.Helper()
	policy := scoring.DirectionPolicy{
		"STD_RTD92": scoring.HigherIsBetter,
		"STD_RTD93": scoring.HigherIsBetter,
	}
	e, err := scoring.NewEngine([]scoring.Category{liquidity}, policy, opts...)
	require.NoError(t, err)
	return e
}

func TestRunPerfectlyCorrelatedPair(t *testing.T) {
	e := newLiquidityEngine(t)

	res, err := e.Run(context.Background(), scoring.Input{Batch: liquidityBatch()})
	require.NoError(t, err)

	cat, ok := res.Category("Liquidity")
	require.True(t, ok)
	assert.Equal(t, map[string]float64{"STD_RTD92": 0.5, "STD_RTD93": 0.5}, cat.Weights)
	assert.Equal(t, [][]string{{"STD_RTD92", "STD_RTD93"}}, cat.Clusters)
	for i := 0; i < 10; i++ {
		assert.InDelta(t, float64(i+1), cat.Scores[i], 1e-12, "entity %d", i)
	}
}

func TestRunEntityMissingWholeCategory(t *testing.T) {
	e := newLiquidityEngine(t)

	res, err := e.Run(context.Background(), scoring.Input{Batch: liquidityBatch()})
	require.NoError(t, err)

	cat, _ := res.Category("Liquidity")
	last := len(res.Entities) - 1
	assert.True(t, math.IsNaN(cat.Scores[last]))
	assert.Equal(t, scoring.Missing, cat.Labels[last], "missing, not T4")

	rec := res.Records(true)[last]
	assert.Nil(t, rec["Liquidity_Score"])
	assert.Nil(t, rec["Liquidity_TScore"])
	assert.Nil(t, rec["STD_RTD92_Tscore"])
	assert.Equal(t, "z", rec["taxcode"])
}

func TestRunColumnsAlwaysEmitted(t *testing.T) {
	policy := scoring.DirectionPolicy{"STD_RTD92": scoring.HigherIsBetter}
	cats := []scoring.Category{
		liquidity,
		{Name: "Growth", Indicators: []string{"STD_RTD11", "STD_RTD28"}},
	}
	e, err := scoring.NewEngine(cats, policy)
	require.NoError(t, err)

	res, err := e.Run(context.Background(), scoring.Input{Batch: liquidityBatch()})
	require.NoError(t, err)

	cols := res.Columns(false)
	assert.Contains(t, cols, "Growth_Score")
	assert.Contains(t, cols, "Growth_TScore")
	growth, _ := res.Category("Growth")
	for i := range res.Entities {
		assert.True(t, math.IsNaN(growth.Scores[i]))
		assert.Equal(t, scoring.Missing, growth.Labels[i])
	}
	// STD_RTD93 has no direction, so it is aggregated but never binned alone.
	_, binned := res.Indicator("STD_RTD93")
	assert.False(t, binned)
}

func TestRunExplicitWeightsWin(t *testing.T) {
	e := newLiquidityEngine(t)

	res, err := e.Run(context.Background(), scoring.Input{
		Batch:   liquidityBatch(),
		Weights: map[string]float64{"STD_RTD93": 0},
	})
	require.NoError(t, err)

	cat, _ := res.Category("Liquidity")
	assert.Equal(t, 0.5, cat.Weights["STD_RTD92"])
	assert.Equal(t, 0.0, cat.Weights["STD_RTD93"])
}

func TestRunSuppliedMatrix(t *testing.T) {
	e := newLiquidityEngine(t)

	res, err := e.Run(context.Background(), scoring.Input{
		Batch:    liquidityBatch(),
		Matrices: map[string][][]float64{"Liquidity": {{1, 0.1}, {0.1, 1}}},
	})
	require.NoError(t, err)
	cat, _ := res.Category("Liquidity")
	assert.Equal(t, 1.0, cat.Weights["STD_RTD92"])
	assert.Len(t, cat.Clusters, 2)

	_, err = e.Run(context.Background(), scoring.Input{
		Batch:    liquidityBatch(),
		Matrices: map[string][][]float64{"Liquidity": {{1}}},
	})
	assert.ErrorIs(t, err, scoring.ErrDimensionMismatch)
}

func TestRunRejectsNegativeWeights(t *testing.T) {
	e := newLiquidityEngine(t)

	_, err := e.Run(context.Background(), scoring.Input{
		Batch:   liquidityBatch(),
		Weights: map[string]float64{"STD_RTD92": -1},
	})
	assert.ErrorIs(t, err, scoring.ErrInvalidWeight)
}

func TestRunLowerIsBetterAggregation(t *testing.T) {
	policy := scoring.DirectionPolicy{
		"STD_RTD92": scoring.HigherIsBetter,
		"STD_RTD71": scoring.LowerIsBetter,
	}
	cat := scoring.Category{Name: "Mixed", Indicators: []string{"STD_RTD92", "STD_RTD71"}}
	e, err := scoring.NewEngine([]scoring.Category{cat}, policy, scoring.WithCorrelation(false))
	require.NoError(t, err)

	b := &batch.Batch{Entities: []batch.Entity{
		{TaxCode: "good", Fields: map[string]any{"STD_RTD92": 10.0, "STD_RTD71": 1.0}},
		{TaxCode: "mid", Fields: map[string]any{"STD_RTD92": 5.0, "STD_RTD71": 5.0}},
		{TaxCode: "bad", Fields: map[string]any{"STD_RTD92": 1.0, "STD_RTD71": 10.0}},
	}}
	res, err := e.Run(context.Background(), scoring.Input{Batch: b})
	require.NoError(t, err)

	mixed, _ := res.Category("Mixed")
	assert.InDelta(t, 4.5, mixed.Scores[0], 1e-12)
	assert.InDelta(t, 0, mixed.Scores[1], 1e-12)
	assert.InDelta(t, -4.5, mixed.Scores[2], 1e-12)
	assert.Equal(t, scoring.T1, mixed.Labels[0])
	assert.Equal(t, scoring.T8, mixed.Labels[2])
}

func TestRunLabelAggregation(t *testing.T) {
	e := newLiquidityEngine(t, scoring.WithAggregation(scoring.AggregateLabels))

	res, err := e.Run(context.Background(), scoring.Input{Batch: liquidityBatch()})
	require.NoError(t, err)

	ind, ok := res.Indicator("STD_RTD92")
	require.True(t, ok)
	cat, _ := res.Category("Liquidity")
	for i, l := range ind.Labels {
		if l == scoring.Missing {
			assert.True(t, math.IsNaN(cat.Scores[i]))
			continue
		}
		assert.InDelta(t, l.Numeric(), cat.Scores[i], 1e-12)
	}
}

func TestRunCancelled(t *testing.T) {
	e := newLiquidityEngine(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	res, err := e.Run(ctx, scoring.Input{Batch: liquidityBatch()})
	assert.Nil(t, res)
	assert.True(t, errors.Is(err, context.Canceled))
}

func TestRunSampleBatchEndToEnd(t *testing.T) {
	policy := scoring.DirectionPolicy{}
	var cats []scoring.Category
	for name, members := range map[string][]string{
		"Liquidity":     {"STD_RTD118", "STD_RTD92", "STD_RTD93", "STD_RTD94", "STD_RTD95", "STD_RTD147"},
		"Leverage_Debt": {"STD_RTD146", "STD_RTD71", "STD_RTD96", "STD_RTD97", "STD_RTD148"},
	} {
		cats = append(cats, scoring.Category{Name: name, Indicators: members})
		for _, m := range members {
			policy[m] = scoring.HigherIsBetter
		}
	}
	policy["STD_RTD71"] = scoring.LowerIsBetter
	policy["STD_RTD96"] = scoring.LowerIsBetter
	policy["STD_RTD148"] = scoring.LowerIsBetter

	e, err := scoring.NewEngine(cats, policy, scoring.WithDiagnostics(true), scoring.WithConcurrency(4))
	require.NoError(t, err)

	b := batch.Sample(500, 42, nil)
	res, err := e.Run(context.Background(), scoring.Input{Batch: b})
	require.NoError(t, err)

	assert.Len(t, res.Entities, 500)
	assert.Len(t, res.Indicators, 11)
	for _, c := range res.Categories {
		d := scoring.Distribution(c.Labels)
		assert.Equal(t, 0, d[0], "%s: every sample entity has at least one member", c.Name)
		assert.Greater(t, d[1], 0, "%s: some entity is T1", c.Name)
		assert.Greater(t, d[8], 0, "%s: some entity is T8", c.Name)
	}
}

func TestNewEngineValidation(t *testing.T) {
	policy := scoring.DirectionPolicy{}
	_, err := scoring.NewEngine(nil, policy, scoring.WithCuts(scoring.Cuts{Lower: 0.9, Upper: 0.1}))
	assert.ErrorIs(t, err, scoring.ErrInvalidCuts)

	_, err = scoring.NewEngine(nil, policy, scoring.WithThreshold(1.5))
	assert.ErrorIs(t, err, scoring.ErrInvalidThreshold)

	_, err = scoring.NewEngine(nil, policy, scoring.WithBaseWeight(-1))
	assert.ErrorIs(t, err, scoring.ErrInvalidWeight)

	_, err = scoring.NewEngine([]scoring.Category{{Name: "A"}, {Name: "A"}}, policy)
	assert.Error(t, err)
}

func TestRunUnknownMatrixCategory(t *testing.T) {
	e := newLiquidityEngine(t)

	_, err := e.Run(context.Background(), scoring.Input{
		Batch:    liquidityBatch(),
		Matrices: map[string][][]float64{"Solvency": {{1}}},
	})
	assert.ErrorIs(t, err, scoring.ErrUnknownCategory)
}

func TestRunLabelAggregationExcludesUndirected(t *testing.T) {
	policy := scoring.DirectionPolicy{"STD_RTD92": scoring.HigherIsBetter}
	e, err := scoring.NewEngine([]scoring.Category{liquidity}, policy, scoring.WithAggregation(scoring.AggregateLabels))
	require.NoError(t, err)

	res, err := e.Run(context.Background(), scoring.Input{
		Batch:    liquidityBatch(),
		Matrices: map[string][][]float64{"Liquidity": {{1, 0.99}, {0.99, 1}}},
	})
	require.NoError(t, err)

	cat, ok := res.Category("Liquidity")
	require.True(t, ok)
	assert.Equal(t, []string{"STD_RTD92"}, cat.Members)
	assert.Equal(t, []string{"STD_RTD93"}, cat.Excluded)
	assert.Equal(t, map[string]float64{"STD_RTD92": 1.0}, cat.Weights)
	assert.Equal(t, [][]string{{"STD_RTD92"}}, cat.Clusters)

	ind, _ := res.Indicator("STD_RTD92")
	for i, l := range ind.Labels {
		if l != scoring.Missing {
			assert.InDelta(t, l.Numeric(), cat.Scores[i], 1e-12)
		}
	}

	// Raw aggregation keeps undirected members as higher-is-better.
	raw, err := scoring.NewEngine([]scoring.Category{liquidity}, policy)
	require.NoError(t, err)
	res, err = raw.Run(context.Background(), scoring.Input{Batch: liquidityBatch()})
	require.NoError(t, err)
	cat, _ = res.Category("Liquidity")
	assert.Equal(t, []string{"STD_RTD92", "STD_RTD93"}, cat.Members)
	assert.Empty(t, cat.Excluded)
}
