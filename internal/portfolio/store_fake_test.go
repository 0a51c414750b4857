package portfolio

import (
	"context"
	"errors"
	"sync"

	"github.com/wonny/quantfolio/internal/contracts"
)

// memoryStore is an in-memory PortfolioStore
type memoryStore struct {
	mu        sync.Mutex
	holdings  []contracts.Holding
	orders    []contracts.OrderRecord
	values    []contracts.ValueSnapshot
	commits   int
	commitErr error
}

func (s *memoryStore) Holdings(context.Context) ([]contracts.Holding, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]contracts.Holding(nil), s.holdings...), nil
}

func (s *memoryStore) Orders(context.Context) ([]contracts.OrderRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]contracts.OrderRecord(nil), s.orders...), nil
}

func (s *memoryStore) Values(context.Context) ([]contracts.ValueSnapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]contracts.ValueSnapshot(nil), s.values...), nil
}

func (s *memoryStore) LatestValue(context.Context) (contracts.ValueSnapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.values) == 0 {
		return contracts.ValueSnapshot{}, contracts.ErrNoSnapshot
	}
	return s.values[len(s.values)-1], nil
}

func (s *memoryStore) Commit(_ context.Context, cs contracts.Changeset) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.commitErr != nil {
		return s.commitErr
	}
	if cs.ReplaceHoldings {
		s.holdings = append([]contracts.Holding(nil), cs.Holdings...)
	}
	s.orders = append(s.orders, cs.Orders...)
	if cs.Snapshot != nil {
		s.values = append(s.values, *cs.Snapshot)
	}
	s.commits++
	return nil
}

type stubUniverse struct {
	universe *contracts.Universe
	err      error
}

func (s *stubUniverse) Snapshot(context.Context) (*contracts.Universe, error) {
	return s.universe, s.err
}

// stubMetrics returns a record per symbol whose metrics rise with the given score
type stubMetrics struct {
	scores map[string]float64
	err    error
	seen   []string
}

func (s *stubMetrics) Collect(_ context.Context, symbols []string) ([]contracts.MetricRecord, error) {
	s.seen = symbols
	if s.err != nil {
		return nil, s.err
	}
	out := make([]contracts.MetricRecord, 0, len(symbols))
	for _, sym := range symbols {
		v, ok := s.scores[sym]
		if !ok {
			continue
		}
		pb, roe, mret := v, v, v
		out = append(out, contracts.MetricRecord{Symbol: sym, PriceToBook: &pb, ReturnOnEquity: &roe, MonthlyReturn: &mret})
	}
	return out, nil
}

type stubPrices struct {
	closes map[string]float64
	err    error
}

func (s *stubPrices) HistoricalPrices(_ context.Context, symbols []string, _ contracts.PriceQuery) (contracts.PriceSeries, error) {
	if s.err != nil {
		return nil, s.err
	}
	out := contracts.PriceSeries{}
	for _, sym := range symbols {
		if c, ok := s.closes[sym]; ok {
			out[sym] = []contracts.PriceBar{{Close: c * 0.9}, {Close: c}}
		}
	}
	return out, nil
}

var errBoom = errors.New("boom")
