package handler

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/barbosa7/bookdesk/internal/domain"
	"github.com/barbosa7/bookdesk/internal/view"
)

// View snapshot providers, one per polled surface.
type (
	BookView interface {
		Snapshot() view.Snapshot[[]domain.PriceLevel]
	}
	TapeView interface {
		Snapshot() view.Snapshot[[]domain.ResolvedTrade]
	}
	BoardView interface {
		Snapshot() view.Snapshot[[]domain.LeaderboardEntry]
	}
	PortfolioView interface {
		Snapshot() view.Snapshot[domain.Portfolio]
	}
)

// MarketHandler serves the rendered view snapshots and journal history.
type MarketHandler struct {
	book      BookView
	tape      TapeView
	board     BoardView
	portfolio PortfolioView
	journal   domain.TradeJournal
	compID    string
	logger    *slog.Logger
}

// NewMarketHandler creates the handler. journal may be nil when the desk
// runs without a database; history then answers 404.
func NewMarketHandler(book BookView, tape TapeView, board BoardView, portfolio PortfolioView,
	journal domain.TradeJournal, competitionID string, logger *slog.Logger) *MarketHandler {
	return &MarketHandler{
		book:      book,
		tape:      tape,
		board:     board,
		portfolio: portfolio,
		journal:   journal,
		compID:    competitionID,
		logger:    logHandler(logger, "market"),
	}
}

// snapshotBody is the wire shape of a view snapshot.
type snapshotBody[T any] struct {
	Data    T      `json:"data"`
	HasData bool   `json:"has_data"`
	Loading bool   `json:"loading"`
	Error   string `json:"error,omitempty"`
}

func renderSnapshot[T any](w http.ResponseWriter, snap view.Snapshot[T]) {
	writeJSON(w, http.StatusOK, snapshotBody[T]{
		Data:    snap.Data,
		HasData: snap.HasData,
		Loading: snap.Loading,
		Error:   snap.Error,
	})
}

// Book serves the aggregated price ladder.
// GET /api/book
func (h *MarketHandler) Book(w http.ResponseWriter, r *http.Request) {
	renderSnapshot(w, h.book.Snapshot())
}

// Trades serves the resolved trade tape.
// GET /api/trades
func (h *MarketHandler) Trades(w http.ResponseWriter, r *http.Request) {
	renderSnapshot(w, h.tape.Snapshot())
}

// Leaderboard serves the competition standings.
// GET /api/leaderboard
func (h *MarketHandler) Leaderboard(w http.ResponseWriter, r *http.Request) {
	renderSnapshot(w, h.board.Snapshot())
}

// Portfolio serves the projected account view.
// GET /api/portfolio
func (h *MarketHandler) Portfolio(w http.ResponseWriter, r *http.Request) {
	renderSnapshot(w, h.portfolio.Snapshot())
}

// History serves journaled trades that survived restarts.
// GET /api/trades/history?limit=N
func (h *MarketHandler) History(w http.ResponseWriter, r *http.Request) {
	if h.journal == nil {
		writeError(w, http.StatusNotFound, "trade journal is not enabled")
		return
	}

	trades, err := h.journal.Recent(r.Context(), h.compID, parseLimit(r, 100))
	if err != nil {
		h.logger.ErrorContext(r.Context(), "journal query failed", slog.String("error", err.Error()))
		writeError(w, http.StatusInternalServerError, "journal query failed")
		return
	}

	type row struct {
		Symbol     string `json:"symbol"`
		SeqNo      int    `json:"seq_no"`
		Price      string `json:"price"`
		Quantity   int64  `json:"quantity"`
		BuyerID    string `json:"buyer_id"`
		SellerID   string `json:"seller_id"`
		ObservedAt string `json:"observed_at"`
	}
	rows := make([]row, len(trades))
	for i, t := range trades {
		rows[i] = row{
			Symbol:     t.Symbol,
			SeqNo:      t.SeqNo,
			Price:      t.Price.StringFixed(2),
			Quantity:   t.Quantity,
			BuyerID:    t.BuyerID,
			SellerID:   t.SellerID,
			ObservedAt: t.ObservedAt.UTC().Format(time.RFC3339),
		}
	}
	writeJSON(w, http.StatusOK, map[string]any{"trades": rows})
}
