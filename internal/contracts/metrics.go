package contracts

import "time"

// MetricRecord is one symbol's raw factor vector for a single ranking cycle.
// A nil field means the provider could not supply the metric.
type MetricRecord struct {
	Symbol         string   `json:"symbol"`
	PriceToBook    *float64 `json:"price_to_book"`
	ReturnOnEquity *float64 `json:"return_on_equity"`
	MonthlyReturn  *float64 `json:"monthly_return"`
}

// Complete reports whether every metric is present
func (m MetricRecord) Complete() bool {
	return m.PriceToBook != nil && m.ReturnOnEquity != nil && m.MonthlyReturn != nil
}

// Fundamentals holds the balance-sheet ratios for one symbol
type Fundamentals struct {
	Symbol         string   `json:"symbol"`
	PriceToBook    *float64 `json:"price_to_book"`
	ReturnOnEquity *float64 `json:"return_on_equity"`
}

// Empty reports whether the provider returned neither ratio
func (f Fundamentals) Empty() bool {
	return f.PriceToBook == nil && f.ReturnOnEquity == nil
}

// PriceBar is one close-only bar of a historical series.
// ChangePercent is nil when the provider neither reported it nor could derive it.
type PriceBar struct {
	Date          time.Time `json:"date"`
	Close         float64   `json:"close"`
	ChangePercent *float64  `json:"change_percent,omitempty"`
}

// PriceSeries maps symbol → bars in ascending date order
type PriceSeries map[string][]PriceBar

// LastClose returns the most recent close for symbol
func (s PriceSeries) LastClose(symbol string) (float64, bool) {
	bars := s[symbol]
	if len(bars) == 0 {
		return 0, false
	}
	return bars[len(bars)-1].Close, true
}

// PriceQuery selects the window of a historical price request.
// Range uses provider notation ("3m", "5d"); Date asks for a single day.
// When both are empty the provider default applies.
type PriceQuery struct {
	Range string
	Date  time.Time
}

// UniverseEntry is one index constituent as listed by the universe provider
type UniverseEntry struct {
	Symbol        string  `json:"symbol"`
	Company       string  `json:"company"`
	Weight        float64 `json:"weight"`
	Price         float64 `json:"price"`
	PercentChange float64 `json:"percent_change"`
}

// Universe is an ordered constituent list (index-weight order)
type Universe struct {
	AsOf    time.Time       `json:"as_of"`
	Entries []UniverseEntry `json:"entries"`
}

// Symbols returns the first n symbols (all when n <= 0)
func (u *Universe) Symbols(n int) []string {
	if n <= 0 || n > len(u.Entries) {
		n = len(u.Entries)
	}
	out := make([]string, 0, n)
	for _, e := range u.Entries[:n] {
		out = append(out, e.Symbol)
	}
	return out
}

// PriceOf finds the listed price for symbol
func (u *Universe) PriceOf(symbol string) (float64, bool) {
	for _, e := range u.Entries {
		if e.Symbol == symbol {
			return e.Price, true
		}
	}
	return 0, false
}
