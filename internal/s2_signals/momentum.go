package s2_signals

import (
	"gonum.org/v1/gonum/stat"

	"github.com/wonny/quantfolio/internal/contracts"
	"github.com/wonny/quantfolio/pkg/logger"
)

// TradingDaysPerMonth scales mean daily change to a monthly figure
const TradingDaysPerMonth = 21

// MomentumCalculator calculates momentum signals
// ⭐ SSOT: 모멘텀 시그널 계산은 여기서만
type MomentumCalculator struct {
	tradingDays int
	logger      *logger.Logger
}

// NewMomentumCalculator creates a new momentum calculator.
// tradingDays <= 0 falls back to TradingDaysPerMonth.
func NewMomentumCalculator(tradingDays int, log *logger.Logger) *MomentumCalculator {
	if tradingDays <= 0 {
		tradingDays = TradingDaysPerMonth
	}
	return &MomentumCalculator{
		tradingDays: tradingDays,
		logger:      log,
	}
}

// MonthlyReturn is the mean daily change percent times the trading days in a month.
// Bars without a change are skipped; a series with none yields nil (metric missing).
func (c *MomentumCalculator) MonthlyReturn(bars []contracts.PriceBar) *float64 {
	changes := make([]float64, 0, len(bars))
	for _, b := range bars {
		if b.ChangePercent != nil {
			changes = append(changes, *b.ChangePercent)
		}
	}
	if len(changes) == 0 {
		return nil
	}

	monthly := stat.Mean(changes, nil) * float64(c.tradingDays)
	return &monthly
}

// MonthlyReturns computes MonthlyReturn for every symbol in series
func (c *MomentumCalculator) MonthlyReturns(series contracts.PriceSeries) map[string]*float64 {
	out := make(map[string]*float64, len(series))
	for sym, bars := range series {
		out[sym] = c.MonthlyReturn(bars)
	}

	c.logger.WithField("symbols", len(out)).Debug("Calculated monthly returns")
	return out
}
