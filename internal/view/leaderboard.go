package view

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/barbosa7/bookdesk/internal/domain"
	"github.com/barbosa7/bookdesk/internal/metrics"
	"github.com/barbosa7/bookdesk/internal/poll"
)

// LeaderboardFetcher fetches the service-computed standings.
type LeaderboardFetcher interface {
	Leaderboard(ctx context.Context, competitionID string) ([]domain.LeaderboardEntry, error)
}

// LeaderboardView polls the standings. Rank ordering is the service's;
// nothing is recomputed here.
type LeaderboardView struct {
	competitionID string
	client        LeaderboardFetcher
	session       Session
	state         *State[[]domain.LeaderboardEntry]
	poller        *poll.Poller
	handle        *poll.Handle
	bus           domain.SignalBus
	logger        *slog.Logger
}

// NewLeaderboardView creates the binding. bus may be nil.
func NewLeaderboardView(
	competitionID string,
	client LeaderboardFetcher,
	session Session,
	interval time.Duration,
	bus domain.SignalBus,
	logger *slog.Logger,
) *LeaderboardView {
	return &LeaderboardView{
		competitionID: competitionID,
		client:        client,
		session:       session,
		state:         NewState[[]domain.LeaderboardEntry]("leaderboard"),
		poller:        poll.New("leaderboard", interval, logger),
		bus:           bus,
		logger:        logger.With(slog.String("view", "leaderboard")),
	}
}

// Start begins polling.
func (v *LeaderboardView) Start(ctx context.Context) error {
	if !v.session.Authenticated() {
		return domain.ErrNoSession
	}
	v.handle = v.poller.Start(ctx, v.refresh)
	return nil
}

// Stop unbinds the view.
func (v *LeaderboardView) Stop() {
	v.state.Close()
	if v.handle != nil {
		v.handle.Stop()
	}
}

// Snapshot returns the current rendered state.
func (v *LeaderboardView) Snapshot() Snapshot[[]domain.LeaderboardEntry] {
	return v.state.Snapshot()
}

func (v *LeaderboardView) refresh(ctx context.Context, seq uint64) error {
	epoch := v.session.Epoch()

	entries, err := v.client.Leaderboard(ctx, v.competitionID)
	if err != nil {
		if domain.IsAuthError(err) {
			v.session.Invalidate(ctx, "leaderboard fetch rejected")
			return err
		}
		if v.session.Epoch() == epoch {
			v.state.Fail(seq, err.Error())
		}
		return err
	}

	if v.session.Epoch() != epoch {
		metrics.StaleDrops.WithLabelValues("leaderboard").Inc()
		return nil
	}

	if !v.state.Apply(seq, entries) {
		return nil
	}

	if v.bus != nil {
		if payload, err := json.Marshal(entries); err == nil {
			if err := v.bus.Publish(ctx, domain.ChannelLeaderboard, payload); err != nil {
				v.logger.Warn("leaderboard publish failed", slog.String("error", err.Error()))
			}
		}
	}
	return nil
}
