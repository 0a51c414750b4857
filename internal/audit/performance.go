package audit

import (
	"fmt"
	"math"
	"strings"
	"time"

	"gonum.org/v1/gonum/stat"

	"github.com/wonny/quantfolio/internal/contracts"
	"github.com/wonny/quantfolio/pkg/logger"
)

const (
	tradingDaysPerYear = 252
	riskFreeRate       = 0.03 // 3% 무위험 수익률
)

// Analyzer computes performance statistics from the value history
// ⭐ SSOT: 성과 분석 로직은 여기서만
type Analyzer struct {
	logger *logger.Logger
	now    func() time.Time
}

// NewAnalyzer creates a new performance analyzer
func NewAnalyzer(log *logger.Logger) *Analyzer {
	return &Analyzer{
		logger: log.Component("audit"),
		now:    time.Now,
	}
}

// PerformanceReport represents performance analysis report
type PerformanceReport struct {
	Period       string    `json:"period"`
	StartDate    time.Time `json:"start_date"`
	EndDate      time.Time `json:"end_date"`
	Observations int       `json:"observations"`

	// 수익률
	StartValue   string  `json:"start_value"`
	EndValue     string  `json:"end_value"`
	TotalReturn  float64 `json:"total_return"`
	AnnualReturn float64 `json:"annual_return"`

	// 리스크 지표
	Volatility  float64 `json:"volatility"`
	Sharpe      float64 `json:"sharpe"`
	MaxDrawdown float64 `json:"max_drawdown"`

	// 트레이딩 지표
	OrderCount int     `json:"order_count"`
	Turnover   float64 `json:"turnover"` // traded notional / average value
}

// Analyze summarizes the snapshots (and orders) that fall inside period.
// Each snapshot is one observation; consecutive snapshots define one return.
func (a *Analyzer) Analyze(period string, values []contracts.ValueSnapshot, orders []contracts.OrderRecord) (*PerformanceReport, error) {
	period = strings.ToUpper(strings.TrimSpace(period))
	if period == "" {
		period = "ALL"
	}
	start, ok := a.periodStart(period)
	if !ok {
		return nil, &contracts.InvalidInputError{Field: "period", Reason: fmt.Sprintf("unknown period %q", period)}
	}

	series := make([]float64, 0, len(values))
	var first, last contracts.ValueSnapshot
	for _, v := range values {
		if v.Date.Before(start) {
			continue
		}
		if len(series) == 0 {
			first = v
		}
		last = v
		series = append(series, v.TotalValue.InexactFloat64())
	}
	if len(series) == 0 {
		return nil, fmt.Errorf("no value snapshots in period %s: %w", period, contracts.ErrInsufficientData)
	}

	report := &PerformanceReport{
		Period:       period,
		StartDate:    first.Date,
		EndDate:      last.Date,
		Observations: len(series),
		StartValue:   first.TotalValue.StringFixed(2),
		EndValue:     last.TotalValue.StringFixed(2),
	}

	returns := periodReturns(series)
	report.TotalReturn = totalReturn(series)
	report.AnnualReturn = annualize(report.TotalReturn, len(returns))
	report.Volatility = volatility(returns)
	if report.Volatility > 0 {
		report.Sharpe = (report.AnnualReturn - riskFreeRate) / report.Volatility
	}
	report.MaxDrawdown = maxDrawdown(series)

	var notional float64
	for _, o := range orders {
		if o.Date.Before(start) {
			continue
		}
		report.OrderCount++
		notional += o.Notional().InexactFloat64()
	}
	if avg := stat.Mean(series, nil); avg > 0 {
		report.Turnover = notional / avg
	}

	a.logger.WithFields(map[string]interface{}{
		"period":       period,
		"observations": report.Observations,
		"total_return": report.TotalReturn,
		"max_drawdown": report.MaxDrawdown,
	}).Debug("Performance analysis completed")

	return report, nil
}

// periodStart parses period string to the first included date
func (a *Analyzer) periodStart(period string) (time.Time, bool) {
	now := a.now().UTC()
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)

	switch period {
	case "1M":
		return today.AddDate(0, -1, 0), true
	case "3M":
		return today.AddDate(0, -3, 0), true
	case "6M":
		return today.AddDate(0, -6, 0), true
	case "1Y":
		return today.AddDate(-1, 0, 0), true
	case "YTD":
		return time.Date(today.Year(), 1, 1, 0, 0, 0, 0, time.UTC), true
	case "ALL":
		return time.Time{}, true
	default:
		return time.Time{}, false
	}
}

// periodReturns converts a value series into simple returns
func periodReturns(series []float64) []float64 {
	returns := make([]float64, 0, len(series))
	for i := 1; i < len(series); i++ {
		if series[i-1] == 0 {
			continue
		}
		returns = append(returns, series[i]/series[i-1]-1)
	}
	return returns
}

// totalReturn calculates cumulative return
func totalReturn(series []float64) float64 {
	if len(series) < 2 || series[0] == 0 {
		return 0
	}
	return series[len(series)-1]/series[0] - 1
}

// annualize converts return to annualized return; snapshots count as trading days
func annualize(total float64, periods int) float64 {
	if periods == 0 {
		return 0
	}
	return math.Pow(1.0+total, float64(tradingDaysPerYear)/float64(periods)) - 1.0
}

// volatility calculates annualized volatility
func volatility(returns []float64) float64 {
	if len(returns) < 2 {
		return 0
	}
	return stat.StdDev(returns, nil) * math.Sqrt(tradingDaysPerYear)
}

// maxDrawdown calculates maximum peak-to-trough decline (<= 0)
func maxDrawdown(series []float64) float64 {
	if len(series) == 0 {
		return 0
	}

	peak := series[0]
	maxDD := 0.0
	for _, v := range series {
		if v > peak {
			peak = v
		}
		if peak == 0 {
			continue
		}
		if dd := (v - peak) / peak; dd < maxDD {
			maxDD = dd
		}
	}
	return maxDD
}
