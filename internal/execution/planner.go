package execution

import (
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"github.com/wonny/quantfolio/internal/contracts"
	"github.com/wonny/quantfolio/pkg/logger"
)

// Planner turns a target holding set into the order records that reach it
// ⭐ SSOT: 주문 계획(목표 보유 → 주문 델타) 로직은 여기서만
type Planner struct {
	logger *logger.Logger
}

// TargetPosition is one symbol of the desired holding set
type TargetPosition struct {
	Symbol string
	Shares decimal.Decimal
	Price  decimal.Decimal
}

// ExitPrice returns the price a dropped holding is sold at
type ExitPrice func(h contracts.Holding) decimal.Decimal

// NewPlanner creates a new order planner
func NewPlanner(log *logger.Logger) *Planner {
	return &Planner{
		logger: log.Component("planner"),
	}
}

// Plan diffs current against targets.
//  1. 목표 종목: 목표 수량 - 보유 수량 (0이면 주문 없음), 목표 순서대로
//  2. 탈락 종목: 전량 매도, 심볼 오름차순, exit 가격
func (p *Planner) Plan(date time.Time, current []contracts.Holding, targets []TargetPosition, exit ExitPrice) []contracts.OrderRecord {
	held := make(map[string]contracts.Holding, len(current))
	for _, h := range current {
		held[h.Symbol] = h
	}

	orders := make([]contracts.OrderRecord, 0, len(targets)+len(current))
	targeted := make(map[string]struct{}, len(targets))

	for _, t := range targets {
		targeted[t.Symbol] = struct{}{}

		delta := t.Shares
		if h, ok := held[t.Symbol]; ok {
			delta = t.Shares.Sub(h.ShareCount)
		}
		if delta.IsZero() {
			continue
		}
		orders = append(orders, contracts.OrderRecord{Date: date, Symbol: t.Symbol, SharesDelta: delta, Price: t.Price})
	}

	dropped := make([]contracts.Holding, 0)
	for _, h := range current {
		if _, ok := targeted[h.Symbol]; !ok && h.ShareCount.IsPositive() {
			dropped = append(dropped, h)
		}
	}
	sort.Slice(dropped, func(i, j int) bool { return dropped[i].Symbol < dropped[j].Symbol })
	for _, h := range dropped {
		price := h.LastPrice()
		if exit != nil {
			price = exit(h)
		}
		orders = append(orders, contracts.OrderRecord{Date: date, Symbol: h.Symbol, SharesDelta: h.ShareCount.Neg(), Price: price})
	}

	p.logger.WithFields(map[string]interface{}{
		"total_orders": len(orders),
		"sell_orders":  countSide(orders, contracts.SideSell),
		"buy_orders":   countSide(orders, contracts.SideBuy),
		"dropped":      len(dropped),
	}).Debug("Order plan created")

	return orders
}

func countSide(orders []contracts.OrderRecord, side contracts.Side) int {
	n := 0
	for _, o := range orders {
		if o.Side() == side {
			n++
		}
	}
	return n
}
