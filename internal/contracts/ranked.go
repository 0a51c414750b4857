package contracts

// RankedSymbol is the ranking result handed to portfolio construction
// ⭐ SSOT: 랭킹 결과 전달
type RankedSymbol struct {
	Symbol         string      `json:"symbol"`
	Rank           int         `json:"rank"`            // 1-based ranking
	CompositeScore float64     `json:"composite_score"` // 0 ~ 300
	Scores         ScoreDetail `json:"scores"`
}

// ScoreDetail holds the per-metric percentile ranks (0 ~ 100 each)
type ScoreDetail struct {
	PriceToBook    float64 `json:"price_to_book"`
	ReturnOnEquity float64 `json:"return_on_equity"`
	MonthlyReturn  float64 `json:"monthly_return"`
}

// IsTopRanked checks if the symbol is in top N ranks
func (r *RankedSymbol) IsTopRanked(n int) bool {
	return r.Rank <= n && r.Rank > 0
}
