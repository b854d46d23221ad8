package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Trade is an immutable execution from the competition's trade tape.
type Trade struct {
	Price    decimal.Decimal `json:"price"`
	Quantity int64           `json:"quantity"`
	BuyerID  string          `json:"buyer_id"`
	SellerID string          `json:"seller_id"`
}

// ResolvedTrade is a Trade with its counterparty ids resolved to display
// names. Ids absent from the user directory resolve to "Unknown".
type ResolvedTrade struct {
	Price      decimal.Decimal `json:"price"`
	Quantity   int64           `json:"quantity"`
	BuyerID    string          `json:"buyer_id"`
	SellerID   string          `json:"seller_id"`
	BuyerName  string          `json:"buyer_name"`
	SellerName string          `json:"seller_name"`
}

// JournalTrade is a tape entry persisted by the trade journal. SeqNo is the
// trade's position in the tape snapshot and doubles as the dedupe key: the
// tape only ever grows, so (competition, symbol, seq_no) identifies a trade
// across polls and restarts.
type JournalTrade struct {
	ID            int64
	CompetitionID string
	Symbol        string
	SeqNo         int
	Price         decimal.Decimal
	Quantity      int64
	BuyerID       string
	SellerID      string
	ObservedAt    time.Time
}
