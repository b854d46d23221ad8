package view

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/barbosa7/bookdesk/internal/book"
	"github.com/barbosa7/bookdesk/internal/domain"
	"github.com/barbosa7/bookdesk/internal/metrics"
	"github.com/barbosa7/bookdesk/internal/poll"
)

// BookFetcher fetches the full order book snapshot.
type BookFetcher interface {
	OrderBook(ctx context.Context, competitionID string) (domain.OrderBookSnapshot, error)
}

// OrderBookView polls the shared book and renders the aggregated price
// ladder.
type OrderBookView struct {
	competitionID string
	client        BookFetcher
	session       Session
	state         *State[[]domain.PriceLevel]
	poller        *poll.Poller
	handle        *poll.Handle
	bus           domain.SignalBus
	cache         domain.LadderCache
	logger        *slog.Logger
}

// NewOrderBookView creates the binding. bus and cache may be nil.
func NewOrderBookView(
	competitionID string,
	client BookFetcher,
	session Session,
	interval time.Duration,
	bus domain.SignalBus,
	cache domain.LadderCache,
	logger *slog.Logger,
) *OrderBookView {
	return &OrderBookView{
		competitionID: competitionID,
		client:        client,
		session:       session,
		state:         NewState[[]domain.PriceLevel]("orderbook"),
		poller:        poll.New("orderbook", interval, logger),
		bus:           bus,
		cache:         cache,
		logger:        logger.With(slog.String("view", "orderbook")),
	}
}

// Start begins polling. It fails when no session is held; the caller rebinds
// after login. A cached ladder, if present, seeds the view so a restarted
// client is not blank before its first poll lands.
func (v *OrderBookView) Start(ctx context.Context) error {
	if !v.session.Authenticated() {
		return domain.ErrNoSession
	}

	if v.cache != nil {
		if ladder, err := v.cache.GetLadder(ctx, v.competitionID); err == nil && len(ladder) > 0 {
			v.state.Seed(ladder)
		}
	}

	v.handle = v.poller.Start(ctx, v.refresh)
	return nil
}

// Stop unbinds the view. Results of cycles still in flight are discarded.
func (v *OrderBookView) Stop() {
	v.state.Close()
	if v.handle != nil {
		v.handle.Stop()
	}
}

// Snapshot returns the current rendered state.
func (v *OrderBookView) Snapshot() Snapshot[[]domain.PriceLevel] {
	return v.state.Snapshot()
}

func (v *OrderBookView) refresh(ctx context.Context, seq uint64) error {
	epoch := v.session.Epoch()

	snap, err := v.client.OrderBook(ctx, v.competitionID)
	if err != nil {
		if domain.IsAuthError(err) {
			v.session.Invalidate(ctx, "order book fetch rejected")
			return err
		}
		if v.session.Epoch() == epoch {
			v.state.Fail(seq, err.Error())
		}
		return err
	}

	ladder := book.Aggregate(snap.BuyOrders, snap.SellOrders)

	// A login/logout while the request was in flight makes this result a
	// leftover of the previous identity; drop it.
	if v.session.Epoch() != epoch {
		metrics.StaleDrops.WithLabelValues("orderbook").Inc()
		return nil
	}

	if !v.state.Apply(seq, ladder) {
		return nil
	}

	if v.cache != nil {
		if err := v.cache.SetLadder(ctx, v.competitionID, ladder); err != nil {
			v.logger.Warn("ladder cache write failed", slog.String("error", err.Error()))
		}
	}
	v.publish(ctx, ladder)
	return nil
}

func (v *OrderBookView) publish(ctx context.Context, ladder []domain.PriceLevel) {
	if v.bus == nil {
		return
	}
	payload, err := json.Marshal(ladder)
	if err != nil {
		return
	}
	if err := v.bus.Publish(ctx, domain.ChannelLadder, payload); err != nil {
		v.logger.Warn("ladder publish failed", slog.String("error", err.Error()))
	}
}
