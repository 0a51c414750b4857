package selection

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/quantfolio/internal/contracts"
	"github.com/wonny/quantfolio/pkg/logger"
)

func f(v float64) *float64 { return &v }

func record(sym string, pb, roe, mret float64) contracts.MetricRecord {
	return contracts.MetricRecord{Symbol: sym, PriceToBook: f(pb), ReturnOnEquity: f(roe), MonthlyReturn: f(mret)}
}

func TestPercentileOfScore(t *testing.T) {
	values := []float64{1, 2, 3, 4}

	tests := []struct {
		score float64
		want  float64
	}{
		{1, 12.5},
		{2, 37.5},
		{4, 87.5},
		{0, 0},
		{5, 100},
		{2.5, 50},
	}

	for _, tt := range tests {
		t.Run(fmt.Sprintf("%v", tt.score), func(t *testing.T) {
			assert.InDelta(t, tt.want, PercentileOfScore(values, tt.score), 1e-9)
		})
	}
}

func TestPercentileOfScore_Ties(t *testing.T) {
	// 2 of 4 equal: (1 + 3) * 50 / 4
	assert.InDelta(t, 50.0, PercentileOfScore([]float64{1, 2, 2, 3}, 2), 1e-9)
	assert.InDelta(t, 50.0, PercentileOfScore([]float64{7, 7, 7}, 7), 1e-9)
	assert.Zero(t, PercentileOfScore(nil, 1))
}

func TestRank_ThreeSymbolScenario(t *testing.T) {
	r := NewRanker(logger.Nop())

	ranked, err := r.Rank(context.Background(), []contracts.MetricRecord{
		record("A", 1, 0.10, 0.01),
		record("B", 2, 0.20, 0.02),
		record("C", 3, 0.05, 0.03),
	})
	require.NoError(t, err)
	require.Len(t, ranked, 3)

	low, mid, high := 100.0/6, 50.0, 500.0/6

	bySymbol := map[string]contracts.RankedSymbol{}
	for _, rs := range ranked {
		bySymbol[rs.Symbol] = rs
	}

	assert.InDelta(t, high, bySymbol["B"].Scores.ReturnOnEquity, 1e-9)
	assert.InDelta(t, low+mid+low, bySymbol["A"].CompositeScore, 1e-9)
	assert.InDelta(t, mid+high+mid, bySymbol["B"].CompositeScore, 1e-9)
	assert.InDelta(t, high+low+high, bySymbol["C"].CompositeScore, 1e-9)

	// B and C tie on 183.33; symbol order breaks it
	assert.Equal(t, []string{"B", "C", "A"}, TopSymbols(ranked, 3))
	assert.Equal(t, 1, ranked[0].Rank)
	assert.Equal(t, 3, ranked[2].Rank)
}

func TestRank_EqualCompositeOrderedBySymbol(t *testing.T) {
	r := NewRanker(logger.Nop())

	// A and B both sum to 7 rank counts, but their float composites
	// (16.67+16.67+83.33 vs 50+50+16.67) differ in the last bit.
	ranked, err := r.Rank(context.Background(), []contracts.MetricRecord{
		record("B", 1, 1, 0),
		record("C", 2, 2, 1),
		record("A", 0, 0, 2),
	})
	require.NoError(t, err)

	assert.Equal(t, []string{"C", "A", "B"}, TopSymbols(ranked, 3))
	assert.Equal(t, ranked[1].CompositeScore, ranked[2].CompositeScore)
}

func TestRank_TiesBrokenBySymbolForAllOrderings(t *testing.T) {
	r := NewRanker(logger.Nop())
	symbols := []string{"A", "B", "C"}
	perms := [][]float64{{0, 1, 2}, {0, 2, 1}, {1, 0, 2}, {1, 2, 0}, {2, 0, 1}, {2, 1, 0}}

	for _, pb := range perms {
		for _, roe := range perms {
			for _, mret := range perms {
				records := make([]contracts.MetricRecord, len(symbols))
				for i, sym := range symbols {
					records[i] = record(sym, pb[i], roe[i], mret[i])
				}

				ranked, err := r.Rank(context.Background(), records)
				require.NoError(t, err)

				for i := 1; i < len(ranked); i++ {
					prev, cur := ranked[i-1], ranked[i]
					require.GreaterOrEqual(t, prev.CompositeScore, cur.CompositeScore)
					if prev.CompositeScore == cur.CompositeScore {
						assert.Less(t, prev.Symbol, cur.Symbol, "pb=%v roe=%v mret=%v", pb, roe, mret)
					}
				}
			}
		}
	}
}

func TestRank_DropsIncomplete(t *testing.T) {
	r := NewRanker(logger.Nop())

	ranked, err := r.Rank(context.Background(), []contracts.MetricRecord{
		record("A", 1, 0.1, 0.01),
		{Symbol: "X", PriceToBook: f(5), ReturnOnEquity: f(0.5)},
		record("B", 2, 0.2, 0.02),
	})
	require.NoError(t, err)

	for _, rs := range ranked {
		assert.NotEqual(t, "X", rs.Symbol)
	}
	assert.Len(t, ranked, 2)
}

func TestRank_EmptyIsInsufficientData(t *testing.T) {
	r := NewRanker(logger.Nop())

	_, err := r.Rank(context.Background(), []contracts.MetricRecord{{Symbol: "X"}})

	var ide *contracts.InsufficientDataError
	require.True(t, errors.As(err, &ide))
	assert.Equal(t, []string{"X"}, ide.Dropped)
	assert.ErrorIs(t, err, contracts.ErrInsufficientData)

	_, err = r.Rank(context.Background(), nil)
	assert.ErrorIs(t, err, contracts.ErrInsufficientData)
}

func TestRank_Deterministic(t *testing.T) {
	r := NewRanker(logger.Nop())
	records := []contracts.MetricRecord{
		record("D", 1, 1, 1),
		record("A", 1, 1, 1),
		record("C", 2, 0, 0),
		record("B", 1, 1, 1),
	}
	reversed := make([]contracts.MetricRecord, len(records))
	for i := range records {
		reversed[len(records)-1-i] = records[i]
	}

	first, err := r.Rank(context.Background(), records)
	require.NoError(t, err)
	second, err := r.Rank(context.Background(), reversed)
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Equal(t, []string{"A", "B", "D", "C"}, TopSymbols(first, 4))
}

func TestTopSymbols(t *testing.T) {
	ranked := []contracts.RankedSymbol{{Symbol: "A", Rank: 1}, {Symbol: "B", Rank: 2}, {Symbol: "C", Rank: 3}}

	assert.Equal(t, []string{"A", "B"}, TopSymbols(ranked, 2))
	assert.Equal(t, []string{"A", "B", "C"}, TopSymbols(ranked, 10))
	assert.Nil(t, TopSymbols(ranked, 0))
}

func TestPercentileProperties(t *testing.T) {
	properties := gopter.NewProperties(nil)

	distinct := gen.SliceOfN(20, gen.Float64Range(-1000, 1000)).
		Map(func(vs []float64) []float64 {
			seen := map[float64]bool{}
			out := make([]float64, 0, len(vs))
			for _, v := range vs {
				if !seen[v] {
					seen[v] = true
					out = append(out, v)
				}
			}
			return out
		}).
		SuchThat(func(vs []float64) bool { return len(vs) > 0 })

	properties.Property("max of N distinct values sits at 100(N-0.5)/N", prop.ForAll(
		func(vs []float64) bool {
			maxV := vs[0]
			for _, v := range vs {
				if v > maxV {
					maxV = v
				}
			}
			n := float64(len(vs))
			return almostEqual(PercentileOfScore(vs, maxV), 100*(n-0.5)/n)
		},
		distinct,
	))

	properties.Property("min of N distinct values sits at 50/N", prop.ForAll(
		func(vs []float64) bool {
			minV := vs[0]
			for _, v := range vs {
				if v < minV {
					minV = v
				}
			}
			return almostEqual(PercentileOfScore(vs, minV), 50/float64(len(vs)))
		},
		distinct,
	))

	properties.Property("percentiles of a set average to 50", prop.ForAll(
		func(vs []float64) bool {
			sum := 0.0
			for _, v := range vs {
				sum += PercentileOfScore(vs, v)
			}
			return almostEqual(sum/float64(len(vs)), 50)
		},
		gen.SliceOfN(15, gen.IntRange(0, 5)).Map(func(is []int) []float64 {
			out := make([]float64, len(is))
			for i, v := range is {
				out[i] = float64(v)
			}
			return out
		}),
	))

	properties.Property("composite stays within 0-300 and ranks are 1..N", prop.ForAll(
		func(pbs []float64) bool {
			records := make([]contracts.MetricRecord, len(pbs))
			for i, v := range pbs {
				records[i] = record(fmt.Sprintf("S%02d", i), v, -v, v*v)
			}
			ranked, err := NewRanker(logger.Nop()).Rank(context.Background(), records)
			if err != nil {
				return false
			}
			for i, rs := range ranked {
				if rs.Rank != i+1 || rs.CompositeScore < 0 || rs.CompositeScore > 300 {
					return false
				}
				if i > 0 && ranked[i-1].CompositeScore < rs.CompositeScore {
					return false
				}
			}
			return len(ranked) == len(records)
		},
		gen.SliceOfN(12, gen.Float64Range(-10, 10)),
	))

	properties.TestingRun(t)
}

func almostEqual(a, b float64) bool {
	d := a - b
	return d < 1e-9 && d > -1e-9
}
