package quality

import (
	"github.com/wonny/quantfolio/internal/contracts"
)

// QualityGate measures how much of a candidate list the providers actually covered
type QualityGate struct {
	config Config
}

// Config holds quality gate thresholds
type Config struct {
	MinPriceCoverage        float64 `yaml:"min_price_coverage"`        // 0.80
	MinFundamentalsCoverage float64 `yaml:"min_fundamentals_coverage"` // 0.80
}

// DefaultConfig returns the thresholds used when none are configured
func DefaultConfig() Config {
	return Config{
		MinPriceCoverage:        0.80,
		MinFundamentalsCoverage: 0.80,
	}
}

// Snapshot summarizes coverage for one collection cycle
type Snapshot struct {
	TotalSymbols int                `json:"total_symbols"`
	ValidSymbols int                `json:"valid_symbols"`
	Coverage     map[string]float64 `json:"coverage"`
	QualityScore float64            `json:"quality_score"`
	Passed       bool               `json:"passed"`
}

// NewQualityGate creates a new QualityGate instance
func NewQualityGate(config Config) *QualityGate {
	return &QualityGate{config: config}
}

// Check computes coverage of prices, fundamentals and complete records
// ⭐ SSOT: S0 → S2 품질 검증
func (g *QualityGate) Check(symbols []string, prices contracts.PriceSeries, fundamentals map[string]contracts.Fundamentals, records []contracts.MetricRecord) *Snapshot {
	snapshot := &Snapshot{
		TotalSymbols: len(symbols),
		ValidSymbols: len(records),
		Coverage:     make(map[string]float64),
	}

	if len(symbols) == 0 {
		return snapshot
	}

	total := float64(len(symbols))
	var withPrices, withRatios int
	for _, sym := range symbols {
		if len(prices[sym]) > 0 {
			withPrices++
		}
		if f, ok := fundamentals[sym]; ok && f.PriceToBook != nil && f.ReturnOnEquity != nil {
			withRatios++
		}
	}

	snapshot.Coverage["price"] = float64(withPrices) / total
	snapshot.Coverage["fundamentals"] = float64(withRatios) / total
	snapshot.Coverage["complete"] = float64(len(records)) / total

	snapshot.QualityScore = g.calculateScore(snapshot.Coverage)
	snapshot.Passed = snapshot.Coverage["price"] >= g.config.MinPriceCoverage &&
		snapshot.Coverage["fundamentals"] >= g.config.MinFundamentalsCoverage

	return snapshot
}

// calculateScore calculates overall quality score using weighted average
func (g *QualityGate) calculateScore(coverage map[string]float64) float64 {
	// 가중치 (합계 = 1.0)
	weights := map[string]float64{
		"price":        0.40,
		"fundamentals": 0.40,
		"complete":     0.20,
	}

	score := 0.0
	for key, weight := range weights {
		if cov, exists := coverage[key]; exists {
			score += cov * weight
		}
	}

	return score
}
