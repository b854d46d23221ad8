package domain

import "github.com/shopspring/decimal"

// OrderBookSnapshot is the full order book state returned by the service.
// It is replaced wholesale on every poll; there is no incremental merge.
type OrderBookSnapshot struct {
	BuyOrders  []Order `json:"buy_orders"`
	SellOrders []Order `json:"sell_orders"`
	Trades     []Trade `json:"trades"`
}

// PriceLevel is one rung of the aggregated two-sided price ladder. A price
// present on only one side still gets a level, with the missing side's
// quantity at zero.
type PriceLevel struct {
	Price       decimal.Decimal `json:"price"`
	BidQuantity int64           `json:"bid_quantity"`
	AskQuantity int64           `json:"ask_quantity"`
}
