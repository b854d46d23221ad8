package domain

import "github.com/shopspring/decimal"

// UserInfo is a directory entry from the competition's user listing.
type UserInfo struct {
	ID       string `json:"id"`
	Username string `json:"username"`
}

// Position is a single holding inside a participant account. MarketValue is
// computed by the service and passed through untouched.
type Position struct {
	Quantity     int64           `json:"quantity"`
	AveragePrice decimal.Decimal `json:"average_price"`
	MarketValue  decimal.Decimal `json:"market_value"`
}

// ParticipantAccount is the raw account state the service holds for one
// competitor. The client treats it as read-only and re-derives the portfolio
// projection on every poll.
type ParticipantAccount struct {
	ID        string              `json:"id"`
	Username  string              `json:"username"`
	Cash      decimal.Decimal     `json:"cash"`
	Positions map[string]Position `json:"positions"`
}

// LeaderboardEntry is one row of the service-computed standings. Rank is
// authoritative from the service and never recomputed client-side.
type LeaderboardEntry struct {
	UserID   string          `json:"user_id"`
	TotalPnL decimal.Decimal `json:"total_pnl"`
	Rank     int             `json:"rank"`
}

// PortfolioPosition is a display-ready holding inside a Portfolio.
type PortfolioPosition struct {
	Symbol       string          `json:"symbol"`
	Quantity     int64           `json:"quantity"`
	AveragePrice decimal.Decimal `json:"average_price"`
	MarketValue  decimal.Decimal `json:"market_value"`
}

// Portfolio is the derived P&L view of a ParticipantAccount.
type Portfolio struct {
	TotalPnL  decimal.Decimal     `json:"total_pnl"`
	Cash      decimal.Decimal     `json:"cash"`
	Positions []PortfolioPosition `json:"positions"`
}
