// Package book reconstructs the two-sided price ladder from the flat order
// lists the competition service returns.
package book

import (
	"sort"

	"github.com/shopspring/decimal"

	"github.com/barbosa7/bookdesk/internal/domain"
)

// PriceScale is the competition tick precision in decimal places. Ladder
// levels are keyed at this precision; it must match the service's 0.01 tick.
const PriceScale = 2

// Aggregate collapses the buy and sell order lists into a single ladder with
// one level per distinct price, sorted by price descending. A price resting on
// only one side gets a zero quantity on the other. When the same side carries
// more than one order at a price, the last one in the list wins; the service
// keeps at most one resting order per price per side, so this only matters for
// malformed input.
//
// The output depends only on the set of (price, side, quantity) tuples, not on
// input ordering, so repeated polls over the same book render identically.
func Aggregate(buys, sells []domain.Order) []domain.PriceLevel {
	byPrice := make(map[string]*domain.PriceLevel, len(buys)+len(sells))

	level := func(price decimal.Decimal) *domain.PriceLevel {
		key := price.StringFixed(PriceScale)
		if lvl, ok := byPrice[key]; ok {
			return lvl
		}
		lvl := &domain.PriceLevel{Price: price}
		byPrice[key] = lvl
		return lvl
	}

	for _, o := range buys {
		level(o.Price).BidQuantity = o.Quantity
	}
	for _, o := range sells {
		level(o.Price).AskQuantity = o.Quantity
	}

	ladder := make([]domain.PriceLevel, 0, len(byPrice))
	for _, lvl := range byPrice {
		ladder = append(ladder, *lvl)
	}

	sort.Slice(ladder, func(i, j int) bool {
		return ladder[i].Price.GreaterThan(ladder[j].Price)
	})

	return ladder
}

// BestBid returns the highest price with resting bid quantity, or false when
// the bid side is empty. The ladder must already be sorted descending.
func BestBid(ladder []domain.PriceLevel) (decimal.Decimal, bool) {
	for _, lvl := range ladder {
		if lvl.BidQuantity > 0 {
			return lvl.Price, true
		}
	}
	return decimal.Decimal{}, false
}

// BestAsk returns the lowest price with resting ask quantity, or false when
// the ask side is empty.
func BestAsk(ladder []domain.PriceLevel) (decimal.Decimal, bool) {
	for i := len(ladder) - 1; i >= 0; i-- {
		if ladder[i].AskQuantity > 0 {
			return ladder[i].Price, true
		}
	}
	return decimal.Decimal{}, false
}
