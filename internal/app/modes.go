package app

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"github.com/barbosa7/bookdesk/internal/domain"
	"github.com/barbosa7/bookdesk/internal/pipeline"
	"github.com/barbosa7/bookdesk/internal/server"
	"github.com/barbosa7/bookdesk/internal/server/handler"
	"github.com/barbosa7/bookdesk/internal/server/ws"
	"github.com/barbosa7/bookdesk/internal/view"
)

// sessionWaitInterval is how often the view runner re-checks for a session
// before binding the views.
const sessionWaitInterval = 500 * time.Millisecond

// modeOptions selects the optional surfaces a mode runs.
type modeOptions struct {
	journal bool
	archive bool
	server  bool
}

// DeskMode polls and renders the four views with no persistence.
func (a *App) DeskMode(ctx context.Context, deps *Dependencies) error {
	a.logger.InfoContext(ctx, "starting desk mode")
	return a.run(ctx, deps, modeOptions{server: a.cfg.Server.Enabled})
}

// RecordMode is desk mode plus the trade journal.
func (a *App) RecordMode(ctx context.Context, deps *Dependencies) error {
	a.logger.InfoContext(ctx, "starting record mode")
	return a.run(ctx, deps, modeOptions{journal: true, server: a.cfg.Server.Enabled})
}

// FullMode runs everything: views, journal, archival, and the API server.
func (a *App) FullMode(ctx context.Context, deps *Dependencies) error {
	a.logger.InfoContext(ctx, "starting full mode")
	return a.run(ctx, deps, modeOptions{journal: true, archive: a.cfg.Archive.Enabled, server: true})
}

func (a *App) run(ctx context.Context, deps *Dependencies, opts modeOptions) error {
	// A previously persisted session lets the desk skip the login prompt.
	if err := deps.Sessions.Restore(); err != nil {
		a.logger.Warn("session restore failed", slog.String("error", err.Error()))
	}
	if !deps.Sessions.Authenticated() && a.cfg.Exchange.Username != "" {
		if _, err := deps.Auth.Login(ctx, a.cfg.Exchange.Username, a.cfg.Exchange.Password); err != nil {
			a.logger.Warn("configured login failed", slog.String("error", err.Error()))
		}
	}

	g, ctx := errgroup.WithContext(ctx)

	var journal domain.TradeJournal
	if opts.journal {
		journal = deps.Journal
	}

	g.Go(func() error {
		return a.runViews(ctx, deps, journal)
	})

	if opts.archive && deps.Journal != nil && deps.Blobs != nil {
		archiver := pipeline.NewArchiver(deps.Journal, deps.Blobs, deps.Notifier,
			a.cfg.Archive.RetentionDays, a.logger)
		g.Go(func() error {
			err := archiver.RunCron(ctx, a.cfg.Archive.Cron)
			if errors.Is(err, context.Canceled) {
				return ctx.Err()
			}
			return err
		})
	}

	if opts.server {
		if err := a.startServer(ctx, g, deps, journal); err != nil {
			return err
		}
	}

	return g.Wait()
}

// runViews waits for a session, then binds the four pollers until shutdown.
// Each poller keeps its own cadence; a failure in one never stops another.
func (a *App) runViews(ctx context.Context, deps *Dependencies, journal domain.TradeJournal) error {
	ticker := time.NewTicker(sessionWaitInterval)
	defer ticker.Stop()
	for !deps.Sessions.Authenticated() {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}

	interval := a.cfg.PollInterval()
	compID := a.cfg.Exchange.CompetitionID
	initialCash := decimal.NewFromFloat(a.cfg.PnL.InitialCash)

	book := view.NewOrderBookView(compID, deps.Exchange, deps.Sessions, interval,
		deps.Bus, deps.Ladders, a.logger)
	tape := view.NewTradeTapeView(compID, a.cfg.Exchange.Symbol, deps.Exchange, deps.Sessions,
		interval, deps.Bus, journal, a.logger)
	board := view.NewLeaderboardView(compID, deps.Exchange, deps.Sessions, interval,
		deps.Bus, a.logger)
	portfolio := view.NewPortfolioView(compID, initialCash, deps.Exchange, deps.Sessions,
		interval, deps.Bus, a.logger)

	a.views.set(book, tape, board, portfolio)

	for _, v := range []interface {
		Start(context.Context) error
	}{book, tape, board, portfolio} {
		if err := v.Start(ctx); err != nil {
			return err
		}
	}
	defer func() {
		portfolio.Stop()
		board.Stop()
		tape.Stop()
		book.Stop()
	}()

	a.logger.InfoContext(ctx, "views bound",
		slog.String("competition_id", compID),
		slog.Duration("interval", interval),
	)

	<-ctx.Done()
	return ctx.Err()
}

// startServer builds the API handlers over the bound views and runs the HTTP
// server plus the WebSocket hub under the group.
func (a *App) startServer(ctx context.Context, g *errgroup.Group, deps *Dependencies, journal domain.TradeJournal) error {
	hub := ws.NewHub(deps.Bus, strings.ToLower(a.cfg.Mode), a.logger)

	handlers := server.Handlers{
		Health:  handler.NewHealthHandler(a.logger),
		Session: handler.NewSessionHandler(deps.Auth, deps.Sessions, a.logger),
		Market: handler.NewMarketHandler(
			a.views.book(), a.views.tape(), a.views.board(), a.views.portfolio(),
			journal, a.cfg.Exchange.CompetitionID, a.logger),
		Orders: handler.NewOrderHandler(deps.Orders,
			a.cfg.Exchange.CompetitionID, a.cfg.Exchange.Symbol, a.logger),
	}

	srv := server.New(server.Config{
		Port:        a.cfg.Server.Port,
		CORSOrigins: a.cfg.Server.CORSOrigins,
		APIKey:      a.cfg.Server.APIKey,
	}, handlers, hub, a.logger)

	g.Go(func() error {
		err := hub.Run(ctx)
		if errors.Is(err, context.Canceled) {
			return ctx.Err()
		}
		return err
	})
	g.Go(srv.Start)
	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return err
		}
		return ctx.Err()
	})
	return nil
}
