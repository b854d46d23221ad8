package domain

import "github.com/shopspring/decimal"

// OrderSide is the direction of an order.
type OrderSide string

const (
	SideBuy  OrderSide = "BUY"
	SideSell OrderSide = "SELL"
)

// Order is a single resting order as the competition service reports it.
// Orders are ephemeral and owned by the service; the client only renders them.
type Order struct {
	Price    decimal.Decimal `json:"price"`
	Quantity int64           `json:"quantity"`
	UserID   string          `json:"user_id"`
}

// OrderTicket is a user's order entry before validation. Quantity arrives as a
// decimal because the entry surface does not constrain it to an integer; the
// order service floors it before submission.
type OrderTicket struct {
	CompetitionID string
	Symbol        string
	Side          OrderSide
	Quantity      decimal.Decimal
	Price         decimal.Decimal
}

// OrderAck is the service's acknowledgement of a placed order.
type OrderAck struct {
	OrderID       string `json:"order_id"`
	ClientOrderID string `json:"client_order_id,omitempty"`
	Status        string `json:"status"`
}
