package contracts

import (
	"time"

	"github.com/shopspring/decimal"
)

// DateLayout is the calendar-date rendering used in order and value logs
const DateLayout = "20060102"

// Holding is one position of the simulated portfolio
type Holding struct {
	Symbol       string          `json:"symbol"`
	ShareCount   decimal.Decimal `json:"share_count"`
	HoldingValue decimal.Decimal `json:"holding_value"` // ShareCount × last observed price
}

// LastPrice derives the price the holding was last marked at
func (h Holding) LastPrice() decimal.Decimal {
	if h.ShareCount.IsZero() {
		return decimal.Zero
	}
	return h.HoldingValue.Div(h.ShareCount)
}

// Side of an order
type Side string

const (
	SideBuy  Side = "BUY"
	SideSell Side = "SELL"
)

// OrderRecord is one entry of the append-only order log
type OrderRecord struct {
	Date        time.Time       `json:"date"`
	Symbol      string          `json:"symbol"`
	SharesDelta decimal.Decimal `json:"shares_delta"` // > 0 buy, < 0 sell
	Price       decimal.Decimal `json:"price"`
}

// Side derives BUY/SELL from the sign of the delta
func (o OrderRecord) Side() Side {
	if o.SharesDelta.IsNegative() {
		return SideSell
	}
	return SideBuy
}

// Notional is |delta| × price
func (o OrderRecord) Notional() decimal.Decimal {
	return o.SharesDelta.Abs().Mul(o.Price)
}

// ValueSnapshot is one entry of the append-only value log
type ValueSnapshot struct {
	Date       time.Time       `json:"date"`
	TotalValue decimal.Decimal `json:"total_value"`
}

// Portfolio is the persisted aggregate
type Portfolio struct {
	Holdings []Holding       `json:"holdings"`
	Orders   []OrderRecord   `json:"orders"`
	Values   []ValueSnapshot `json:"values"`
}

// CurrentValue is the latest snapshot's total, zero before creation
func (p *Portfolio) CurrentValue() decimal.Decimal {
	if len(p.Values) == 0 {
		return decimal.Zero
	}
	return p.Values[len(p.Values)-1].TotalValue
}

// Holding finds a holding by symbol
func (p *Portfolio) Holding(symbol string) (Holding, bool) {
	for _, h := range p.Holdings {
		if h.Symbol == symbol {
			return h, true
		}
	}
	return Holding{}, false
}

// SumHoldingValues totals HoldingValue across holdings
func SumHoldingValues(holdings []Holding) decimal.Decimal {
	total := decimal.Zero
	for _, h := range holdings {
		total = total.Add(h.HoldingValue)
	}
	return total
}

// Changeset is everything one portfolio operation writes.
// Stores must apply it atomically.
type Changeset struct {
	// Holdings replaces the full holding set when ReplaceHoldings is true
	ReplaceHoldings bool
	Holdings        []Holding
	Orders          []OrderRecord
	Snapshot        *ValueSnapshot
}
