package selection

import (
	"context"
	"sort"

	"github.com/wonny/quantfolio/internal/contracts"
	"github.com/wonny/quantfolio/pkg/logger"
)

// Ranker blends metrics by percentile-of-score and orders the candidates
// ⭐ SSOT: 랭킹 로직은 여기서만
type Ranker struct {
	logger *logger.Logger
}

// NewRanker creates a new ranker
func NewRanker(logger *logger.Logger) *Ranker {
	return &Ranker{
		logger: logger,
	}
}

// PercentileOfScore locates score within values using the "mean" convention:
// the average of the strictly-below and at-or-below percentiles, 0–100.
func PercentileOfScore(values []float64, score float64) float64 {
	if len(values) == 0 {
		return 0
	}
	return percentile(rankCount(values, score), len(values))
}

// rankCount is below + atOrBelow, the exact integer form of the percentile
func rankCount(values []float64, score float64) int {
	var below, atOrBelow int
	for _, v := range values {
		if v < score {
			below++
		}
		if v <= score {
			atOrBelow++
		}
	}
	return below + atOrBelow
}

func percentile(count, n int) float64 {
	return float64(count) * 50 / float64(n)
}

// Rank scores each complete record against the candidate set.
// Composite = PB% + ROE% + monthly-return% (0–300); higher ranks first,
// equal composites are ordered by symbol.
// ⭐ 정렬 키: 정수 rank count 합, 동점이면 symbol 오름차순
func (r *Ranker) Rank(ctx context.Context, records []contracts.MetricRecord) ([]contracts.RankedSymbol, error) {
	complete := make([]contracts.MetricRecord, 0, len(records))
	var dropped []string
	for _, rec := range records {
		if !rec.Complete() {
			dropped = append(dropped, rec.Symbol)
			continue
		}
		complete = append(complete, rec)
	}

	if len(complete) == 0 {
		return nil, &contracts.InsufficientDataError{Requested: len(records), Dropped: dropped}
	}

	pb := make([]float64, len(complete))
	roe := make([]float64, len(complete))
	mret := make([]float64, len(complete))
	for i, rec := range complete {
		pb[i] = *rec.PriceToBook
		roe[i] = *rec.ReturnOnEquity
		mret[i] = *rec.MonthlyReturn
	}

	n := len(complete)
	type scored struct {
		contracts.RankedSymbol
		count int
	}

	rows := make([]scored, n)
	for i, rec := range complete {
		pbCount := rankCount(pb, pb[i])
		roeCount := rankCount(roe, roe[i])
		mretCount := rankCount(mret, mret[i])
		total := pbCount + roeCount + mretCount

		rows[i] = scored{
			RankedSymbol: contracts.RankedSymbol{
				Symbol:         rec.Symbol,
				CompositeScore: percentile(total, n),
				Scores: contracts.ScoreDetail{
					PriceToBook:    percentile(pbCount, n),
					ReturnOnEquity: percentile(roeCount, n),
					MonthlyReturn:  percentile(mretCount, n),
				},
			},
			count: total,
		}
	}

	// Sort by composite count (descending), then symbol
	sort.SliceStable(rows, func(i, j int) bool {
		if rows[i].count != rows[j].count {
			return rows[i].count > rows[j].count
		}
		return rows[i].Symbol < rows[j].Symbol
	})

	// Assign ranks
	ranked := make([]contracts.RankedSymbol, n)
	for i := range rows {
		ranked[i] = rows[i].RankedSymbol
		ranked[i].Rank = i + 1
	}

	r.logger.WithFields(map[string]interface{}{
		"total_symbols": len(ranked),
		"dropped":       len(dropped),
		"top_score":     ranked[0].CompositeScore,
		"top_symbol":    ranked[0].Symbol,
	}).Info("Ranking completed")

	return ranked, nil
}

// TopSymbols returns the first n symbols of a ranked list
func TopSymbols(ranked []contracts.RankedSymbol, n int) []string {
	if n <= 0 {
		return nil
	}
	out := make([]string, 0, n)
	for i := range ranked {
		if !ranked[i].IsTopRanked(n) {
			break
		}
		out = append(out, ranked[i].Symbol)
	}
	return out
}
