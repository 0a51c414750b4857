package contracts

import (
	"context"
)

// PriceProvider supplies close-only historical bars
type PriceProvider interface {
	HistoricalPrices(ctx context.Context, symbols []string, q PriceQuery) (PriceSeries, error)
}

// FundamentalsProvider supplies price-to-book and return-on-equity.
// A symbol the provider knows nothing about comes back with nil ratios, not an error.
type FundamentalsProvider interface {
	Fundamentals(ctx context.Context, symbols []string) (map[string]Fundamentals, error)
}

// UniverseProvider supplies the current index constituents
type UniverseProvider interface {
	Snapshot(ctx context.Context) (*Universe, error)
}

// MetricSource produces complete metric records for a candidate list
type MetricSource interface {
	Collect(ctx context.Context, symbols []string) ([]MetricRecord, error)
}

// Ranker orders metric records by composite score
type Ranker interface {
	Rank(ctx context.Context, records []MetricRecord) ([]RankedSymbol, error)
}

// PortfolioStore is the durable home of holdings, orders and value history
type PortfolioStore interface {
	Holdings(ctx context.Context) ([]Holding, error)
	Orders(ctx context.Context) ([]OrderRecord, error)
	Values(ctx context.Context) ([]ValueSnapshot, error)
	LatestValue(ctx context.Context) (ValueSnapshot, error)
	Commit(ctx context.Context, cs Changeset) error
}
