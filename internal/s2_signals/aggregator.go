package s2_signals

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/wonny/quantfolio/internal/contracts"
	"github.com/wonny/quantfolio/internal/s0_data"
	"github.com/wonny/quantfolio/internal/s0_data/quality"
	"github.com/wonny/quantfolio/pkg/logger"
)

// DefaultMomentumRange is the trailing window for monthly return
const DefaultMomentumRange = "3m"

// Aggregator joins fundamentals and momentum into metric records
// ⭐ SSOT: 시그널 조립(펀더멘털 + 모멘텀)은 여기서만
type Aggregator struct {
	prices        contracts.PriceProvider
	fundamentals  contracts.FundamentalsProvider
	momentum      *MomentumCalculator
	gate          *quality.QualityGate
	momentumRange string
	logger        *logger.Logger
}

// NewAggregator creates a new aggregator
func NewAggregator(
	prices contracts.PriceProvider,
	fundamentals contracts.FundamentalsProvider,
	momentum *MomentumCalculator,
	gate *quality.QualityGate,
	momentumRange string,
	log *logger.Logger,
) *Aggregator {
	if momentumRange == "" {
		momentumRange = DefaultMomentumRange
	}
	return &Aggregator{
		prices:        prices,
		fundamentals:  fundamentals,
		momentum:      momentum,
		gate:          gate,
		momentumRange: momentumRange,
		logger:        log.Component("aggregator"),
	}
}

// Collect fetches both sources concurrently and returns complete records
// in input symbol order. Rows missing any metric are dropped and logged.
func (a *Aggregator) Collect(ctx context.Context, symbols []string) ([]contracts.MetricRecord, error) {
	symbols, err := s0_data.NormalizeSymbols(symbols)
	if err != nil {
		return nil, err
	}

	var (
		series contracts.PriceSeries
		funds  map[string]contracts.Fundamentals
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		funds, err = a.fundamentals.Fundamentals(gctx, symbols)
		return err
	})
	g.Go(func() error {
		var err error
		series, err = a.prices.HistoricalPrices(gctx, symbols, contracts.PriceQuery{Range: a.momentumRange})
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("collect metrics: %w", err)
	}

	returns := a.momentum.MonthlyReturns(series)

	records := make([]contracts.MetricRecord, 0, len(symbols))
	var dropped []string
	for _, sym := range symbols {
		f := funds[sym]
		rec := contracts.MetricRecord{
			Symbol:         sym,
			PriceToBook:    f.PriceToBook,
			ReturnOnEquity: f.ReturnOnEquity,
			MonthlyReturn:  returns[sym],
		}
		if !rec.Complete() {
			dropped = append(dropped, sym)
			continue
		}
		records = append(records, rec)
	}

	if len(dropped) > 0 {
		a.logger.WithFields(map[string]interface{}{
			"dropped": dropped,
			"kept":    len(records),
		}).Warn("Dropped symbols with incomplete metrics")
	}

	if a.gate != nil {
		snap := a.gate.Check(symbols, series, funds, records)
		entry := a.logger.WithFields(map[string]interface{}{
			"total":         snap.TotalSymbols,
			"valid":         snap.ValidSymbols,
			"quality_score": snap.QualityScore,
		})
		if snap.Passed {
			entry.Debug("Metric coverage check passed")
		} else {
			entry.Warn("Metric coverage below threshold")
		}
	}

	return records, nil
}
