package domain

import "context"

// Bus channels carrying rendered view updates to attached consumers.
const (
	ChannelLadder      = "ladder"
	ChannelTape        = "tape"
	ChannelLeaderboard = "leaderboard"
	ChannelPortfolio   = "portfolio"
	ChannelOrders      = "orders"
	ChannelSession     = "session"
)

// LadderCache stores the latest aggregated price ladder per competition so a
// restarted client can warm-start its order book view before the first poll
// lands.
type LadderCache interface {
	SetLadder(ctx context.Context, competitionID string, levels []PriceLevel) error
	GetLadder(ctx context.Context, competitionID string) ([]PriceLevel, error)
}

// SignalBus provides pub/sub fan-out of rendered view payloads.
type SignalBus interface {
	Publish(ctx context.Context, channel string, payload []byte) error
	Subscribe(ctx context.Context, channel string) (<-chan []byte, error)
}
