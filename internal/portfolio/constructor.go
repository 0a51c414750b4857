package portfolio

import (
	"github.com/shopspring/decimal"

	"github.com/wonny/quantfolio/internal/contracts"
	"github.com/wonny/quantfolio/pkg/logger"
)

// Storage precision of share counts and money amounts
const (
	sharePlaces = 10
	moneyPlaces = 6
)

// Constructor turns a ranking into equal-dollar target holdings
// ⭐ SSOT: 포트폴리오 구성 로직은 여기서만
type Constructor struct {
	topN        int
	constraints Constraints
	logger      *logger.Logger
}

// Target is one sized position of the target portfolio
type Target struct {
	Symbol string
	Shares decimal.Decimal
	Price  decimal.Decimal
	Value  decimal.Decimal
}

// Holding converts the target into a persisted holding
func (t Target) Holding() contracts.Holding {
	return contracts.Holding{Symbol: t.Symbol, ShareCount: t.Shares, HoldingValue: t.Value}
}

// NewConstructor creates a new portfolio constructor
func NewConstructor(topN int, constraints Constraints, logger *logger.Logger) *Constructor {
	return &Constructor{
		topN:        topN,
		constraints: constraints,
		logger:      logger,
	}
}

// Build selects the best-ranked priceable symbols (up to topN) and gives each
// notional / len(selected) dollars, converted to shares at the universe price.
func (c *Constructor) Build(ranked []contracts.RankedSymbol, universe *contracts.Universe, notional decimal.Decimal) ([]Target, error) {
	if !notional.IsPositive() {
		return nil, &contracts.InvalidInputError{Field: "portfolio_value", Reason: "must be positive"}
	}

	type pick struct {
		symbol string
		price  decimal.Decimal
	}

	picks := make([]pick, 0, c.topN)
	var skipped []string
	for _, rs := range ranked {
		if len(picks) == c.topN {
			break
		}
		if c.constraints.IsBlackListed(rs.Symbol) {
			skipped = append(skipped, rs.Symbol)
			continue
		}
		price, ok := universe.PriceOf(rs.Symbol)
		if !ok || price <= 0 {
			skipped = append(skipped, rs.Symbol)
			continue
		}
		picks = append(picks, pick{symbol: rs.Symbol, price: decimal.NewFromFloat(price)})
	}

	if len(picks) == 0 {
		return nil, &contracts.InsufficientDataError{Requested: len(ranked), Dropped: skipped}
	}

	perSymbol := notional.Div(decimal.NewFromInt(int64(len(picks))))

	targets := make([]Target, 0, len(picks))
	for _, p := range picks {
		shares := perSymbol.Div(p.price).Round(sharePlaces)
		targets = append(targets, Target{
			Symbol: p.symbol,
			Shares: shares,
			Price:  p.price,
			Value:  shares.Mul(p.price).Round(moneyPlaces),
		})
	}

	c.logger.WithFields(map[string]interface{}{
		"positions":  len(targets),
		"notional":   notional.StringFixed(2),
		"per_symbol": perSymbol.StringFixed(2),
		"skipped":    skipped,
	}).Info("Portfolio constructed")

	return targets, nil
}
