package view

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/shopspring/decimal"

	"github.com/barbosa7/bookdesk/internal/domain"
	"github.com/barbosa7/bookdesk/internal/metrics"
	"github.com/barbosa7/bookdesk/internal/pnl"
	"github.com/barbosa7/bookdesk/internal/poll"
)

// ParticipantFetcher fetches one competitor's raw account state.
type ParticipantFetcher interface {
	Participant(ctx context.Context, competitionID, userID string) (domain.ParticipantAccount, error)
}

// PortfolioView polls the session user's account and projects it into the
// P&L display. initialCash must match the service's seed balance; the
// projection is biased otherwise.
type PortfolioView struct {
	competitionID string
	initialCash   decimal.Decimal
	client        ParticipantFetcher
	session       Session
	state         *State[domain.Portfolio]
	poller        *poll.Poller
	handle        *poll.Handle
	bus           domain.SignalBus
	logger        *slog.Logger
}

// NewPortfolioView creates the binding. bus may be nil.
func NewPortfolioView(
	competitionID string,
	initialCash decimal.Decimal,
	client ParticipantFetcher,
	session Session,
	interval time.Duration,
	bus domain.SignalBus,
	logger *slog.Logger,
) *PortfolioView {
	return &PortfolioView{
		competitionID: competitionID,
		initialCash:   initialCash,
		client:        client,
		session:       session,
		state:         NewState[domain.Portfolio]("portfolio"),
		poller:        poll.New("portfolio", interval, logger),
		bus:           bus,
		logger:        logger.With(slog.String("view", "portfolio")),
	}
}

// Start begins polling.
func (v *PortfolioView) Start(ctx context.Context) error {
	if !v.session.Authenticated() {
		return domain.ErrNoSession
	}
	v.handle = v.poller.Start(ctx, v.refresh)
	return nil
}

// Stop unbinds the view.
func (v *PortfolioView) Stop() {
	v.state.Close()
	if v.handle != nil {
		v.handle.Stop()
	}
}

// Snapshot returns the current rendered state.
func (v *PortfolioView) Snapshot() Snapshot[domain.Portfolio] {
	return v.state.Snapshot()
}

func (v *PortfolioView) refresh(ctx context.Context, seq uint64) error {
	epoch := v.session.Epoch()

	user, ok := v.session.User()
	if !ok {
		return domain.ErrNoSession
	}

	acct, err := v.client.Participant(ctx, v.competitionID, user.ID)
	if err != nil {
		if domain.IsAuthError(err) {
			v.session.Invalidate(ctx, "participant fetch rejected")
			return err
		}
		if v.session.Epoch() == epoch {
			v.state.Fail(seq, err.Error())
		}
		return err
	}

	portfolio := pnl.Project(acct, v.initialCash)

	if v.session.Epoch() != epoch {
		metrics.StaleDrops.WithLabelValues("portfolio").Inc()
		return nil
	}

	if !v.state.Apply(seq, portfolio) {
		return nil
	}

	if v.bus != nil {
		if payload, err := json.Marshal(portfolio); err == nil {
			if err := v.bus.Publish(ctx, domain.ChannelPortfolio, payload); err != nil {
				v.logger.Warn("portfolio publish failed", slog.String("error", err.Error()))
			}
		}
	}
	return nil
}
