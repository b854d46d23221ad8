package pnl

import (
	"testing"

	"github.com/shopspring/decimal"

	"github.com/barbosa7/bookdesk/internal/domain"
)

func d(f float64) decimal.Decimal {
	return decimal.NewFromFloat(f)
}

func TestProject_CashOnlyPnL(t *testing.T) {
	acct := domain.ParticipantAccount{
		ID:       "alice",
		Cash:     d(1_050_000),
		Positions: map[string]domain.Position{},
	}

	p := Project(acct, decimal.NewFromInt(1_000_000))

	if !p.TotalPnL.Equal(d(50_000)) {
		t.Errorf("expected total P&L 50000, got %s", p.TotalPnL)
	}
	if !p.Cash.Equal(d(1_050_000)) {
		t.Errorf("expected cash 1050000, got %s", p.Cash)
	}
	if len(p.Positions) != 0 {
		t.Errorf("expected no positions, got %d", len(p.Positions))
	}
}

func TestProject_NegativePnL(t *testing.T) {
	acct := domain.ParticipantAccount{Cash: d(925_500.25)}
	p := Project(acct, decimal.NewFromInt(1_000_000))
	if !p.TotalPnL.Equal(d(-74_499.75)) {
		t.Errorf("expected total P&L -74499.75, got %s", p.TotalPnL)
	}
}

func TestProject_PositionsSortedAndPassedThrough(t *testing.T) {
	acct := domain.ParticipantAccount{
		Cash: d(1_000_000),
		Positions: map[string]domain.Position{
			"ZZZ": {Quantity: 5, AveragePrice: d(101.25), MarketValue: d(510)},
			"AAA": {Quantity: -3, AveragePrice: d(99.50), MarketValue: d(-300)},
		},
	}

	p := Project(acct, decimal.NewFromInt(1_000_000))

	if len(p.Positions) != 2 {
		t.Fatalf("expected 2 positions, got %d", len(p.Positions))
	}
	if p.Positions[0].Symbol != "AAA" || p.Positions[1].Symbol != "ZZZ" {
		t.Errorf("positions not sorted by symbol: %s, %s",
			p.Positions[0].Symbol, p.Positions[1].Symbol)
	}
	// Market value must be the service's own figure, not recomputed from
	// quantity and average price.
	if !p.Positions[1].MarketValue.Equal(d(510)) {
		t.Errorf("market value must be passed through, got %s", p.Positions[1].MarketValue)
	}
	if p.Positions[0].Quantity != -3 {
		t.Errorf("expected short quantity -3, got %d", p.Positions[0].Quantity)
	}
	if !p.TotalPnL.IsZero() {
		t.Errorf("flat cash must project zero P&L, got %s", p.TotalPnL)
	}
}
