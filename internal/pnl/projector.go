// Package pnl derives the display-ready portfolio view from raw participant
// account state.
package pnl

import (
	"sort"

	"github.com/shopspring/decimal"

	"github.com/barbosa7/bookdesk/internal/domain"
)

// DefaultInitialCash is the balance the competition service seeds every
// participant account with. P&L is computed against this constant, so it must
// stay in sync with the service's starting-balance configuration; if the two
// drift, every displayed P&L is biased by the difference.
var DefaultInitialCash = decimal.NewFromInt(1_000_000)

// Project derives the realized-cash-basis P&L and holdings from an account
// snapshot. TotalPnL is cash minus initialCash; open positions are not marked
// to market here: each position's MarketValue is the service's own figure,
// passed through untouched. Positions are emitted sorted by symbol so
// successive polls render in a stable order.
func Project(acct domain.ParticipantAccount, initialCash decimal.Decimal) domain.Portfolio {
	positions := make([]domain.PortfolioPosition, 0, len(acct.Positions))
	for symbol, pos := range acct.Positions {
		positions = append(positions, domain.PortfolioPosition{
			Symbol:       symbol,
			Quantity:     pos.Quantity,
			AveragePrice: pos.AveragePrice,
			MarketValue:  pos.MarketValue,
		})
	}
	sort.Slice(positions, func(i, j int) bool {
		return positions[i].Symbol < positions[j].Symbol
	})

	return domain.Portfolio{
		TotalPnL:  acct.Cash.Sub(initialCash),
		Cash:      acct.Cash,
		Positions: positions,
	}
}
