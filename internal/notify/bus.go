package notify

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/barbosa7/bookdesk/internal/domain"
)

// BusSender publishes alerts on the signal bus so attached front ends (the
// websocket hub, for one) can surface them without a dedicated channel.
type BusSender struct {
	bus domain.SignalBus
}

func NewBusSender(bus domain.SignalBus) *BusSender {
	return &BusSender{bus: bus}
}

func (b *BusSender) Name() string { return "bus" }

func (b *BusSender) Send(ctx context.Context, title, message string) error {
	payload, err := json.Marshal(map[string]string{
		"title":   title,
		"message": message,
	})
	if err != nil {
		return fmt.Errorf("bus: marshal alert: %w", err)
	}
	if err := b.bus.Publish(ctx, domain.ChannelOrders, payload); err != nil {
		return fmt.Errorf("bus: publish alert: %w", err)
	}
	return nil
}
