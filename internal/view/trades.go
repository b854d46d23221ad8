package view

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/barbosa7/bookdesk/internal/domain"
	"github.com/barbosa7/bookdesk/internal/metrics"
	"github.com/barbosa7/bookdesk/internal/poll"
)

// UnknownParty is the display name for a counterparty id missing from the
// user directory. A stale directory never fails the view.
const UnknownParty = "Unknown"

// UserLister fetches the competition's user directory.
type UserLister interface {
	Users(ctx context.Context, competitionID string) ([]domain.UserInfo, error)
}

// TapeFetcher is the pair of calls the trade tape join needs.
type TapeFetcher interface {
	BookFetcher
	UserLister
}

// TradeTapeView polls the trade tape, joins it against the user directory to
// resolve counterparty names, and optionally records observed trades to the
// journal.
type TradeTapeView struct {
	competitionID string
	symbol        string
	client        TapeFetcher
	session       Session
	state         *State[[]domain.ResolvedTrade]
	poller        *poll.Poller
	handle        *poll.Handle
	bus           domain.SignalBus
	journal       domain.TradeJournal
	logger        *slog.Logger
}

// NewTradeTapeView creates the binding. bus and journal may be nil.
func NewTradeTapeView(
	competitionID, symbol string,
	client TapeFetcher,
	session Session,
	interval time.Duration,
	bus domain.SignalBus,
	journal domain.TradeJournal,
	logger *slog.Logger,
) *TradeTapeView {
	return &TradeTapeView{
		competitionID: competitionID,
		symbol:        symbol,
		client:        client,
		session:       session,
		state:         NewState[[]domain.ResolvedTrade]("tape"),
		poller:        poll.New("tape", interval, logger),
		bus:           bus,
		journal:       journal,
		logger:        logger.With(slog.String("view", "tape")),
	}
}

// Start begins polling.
func (v *TradeTapeView) Start(ctx context.Context) error {
	if !v.session.Authenticated() {
		return domain.ErrNoSession
	}
	v.handle = v.poller.Start(ctx, v.refresh)
	return nil
}

// Stop unbinds the view.
func (v *TradeTapeView) Stop() {
	v.state.Close()
	if v.handle != nil {
		v.handle.Stop()
	}
}

// Snapshot returns the current rendered state.
func (v *TradeTapeView) Snapshot() Snapshot[[]domain.ResolvedTrade] {
	return v.state.Snapshot()
}

func (v *TradeTapeView) refresh(ctx context.Context, seq uint64) error {
	epoch := v.session.Epoch()

	// The tape and the user directory are independent reads; fetch them
	// concurrently and join afterwards.
	var (
		snap  domain.OrderBookSnapshot
		users []domain.UserInfo
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		snap, err = v.client.OrderBook(gctx, v.competitionID)
		return err
	})
	g.Go(func() error {
		var err error
		users, err = v.client.Users(gctx, v.competitionID)
		return err
	})
	if err := g.Wait(); err != nil {
		if domain.IsAuthError(err) {
			v.session.Invalidate(ctx, "trade tape fetch rejected")
			return err
		}
		if v.session.Epoch() == epoch {
			v.state.Fail(seq, err.Error())
		}
		return err
	}

	tape := Resolve(snap.Trades, users)

	if v.session.Epoch() != epoch {
		metrics.StaleDrops.WithLabelValues("tape").Inc()
		return nil
	}

	if !v.state.Apply(seq, tape) {
		return nil
	}

	v.record(ctx, snap.Trades)
	v.publish(ctx, tape)
	return nil
}

// Resolve joins trades against the user directory, substituting UnknownParty
// for ids without a directory entry.
func Resolve(trades []domain.Trade, users []domain.UserInfo) []domain.ResolvedTrade {
	names := make(map[string]string, len(users))
	for _, u := range users {
		names[u.ID] = u.Username
	}

	lookup := func(id string) string {
		if name, ok := names[id]; ok && name != "" {
			return name
		}
		return UnknownParty
	}

	out := make([]domain.ResolvedTrade, len(trades))
	for i, t := range trades {
		out[i] = domain.ResolvedTrade{
			Price:      t.Price,
			Quantity:   t.Quantity,
			BuyerID:    t.BuyerID,
			SellerID:   t.SellerID,
			BuyerName:  lookup(t.BuyerID),
			SellerName: lookup(t.SellerID),
		}
	}
	return out
}

// record persists the observed tape. The tape is a snapshot that only grows,
// and the journal dedupes on (competition, symbol, seq_no), so re-recording
// the whole tape each poll is idempotent.
func (v *TradeTapeView) record(ctx context.Context, trades []domain.Trade) {
	if v.journal == nil || len(trades) == 0 {
		return
	}

	now := time.Now().UTC()
	rows := make([]domain.JournalTrade, len(trades))
	for i, t := range trades {
		rows[i] = domain.JournalTrade{
			CompetitionID: v.competitionID,
			Symbol:        v.symbol,
			SeqNo:         i,
			Price:         t.Price,
			Quantity:      t.Quantity,
			BuyerID:       t.BuyerID,
			SellerID:      t.SellerID,
			ObservedAt:    now,
		}
	}
	if err := v.journal.Record(ctx, rows); err != nil {
		v.logger.Warn("trade journal write failed", slog.String("error", err.Error()))
		return
	}
	metrics.JournaledTrades.Add(float64(len(rows)))
}

func (v *TradeTapeView) publish(ctx context.Context, tape []domain.ResolvedTrade) {
	if v.bus == nil {
		return
	}
	payload, err := json.Marshal(tape)
	if err != nil {
		return
	}
	if err := v.bus.Publish(ctx, domain.ChannelTape, payload); err != nil {
		v.logger.Warn("tape publish failed", slog.String("error", err.Error()))
	}
}
