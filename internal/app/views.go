package app

import (
	"sync"

	"github.com/barbosa7/bookdesk/internal/domain"
	"github.com/barbosa7/bookdesk/internal/view"
)

// viewSet holds the bound view pollers. The API server starts before a
// session exists, so the handlers read through these accessors and get a
// loading snapshot until the views are bound.
type viewSet struct {
	mu        sync.RWMutex
	bookView  *view.OrderBookView
	tapeView  *view.TradeTapeView
	boardView *view.LeaderboardView
	portView  *view.PortfolioView
}

func (s *viewSet) set(book *view.OrderBookView, tape *view.TradeTapeView,
	board *view.LeaderboardView, portfolio *view.PortfolioView) {
	s.mu.Lock()
	s.bookView = book
	s.tapeView = tape
	s.boardView = board
	s.portView = portfolio
	s.mu.Unlock()
}

func (s *viewSet) book() bookHandle           { return bookHandle{s} }
func (s *viewSet) tape() tapeHandle           { return tapeHandle{s} }
func (s *viewSet) board() boardHandle         { return boardHandle{s} }
func (s *viewSet) portfolio() portfolioHandle { return portfolioHandle{s} }

func pending[T any]() view.Snapshot[T] {
	return view.Snapshot[T]{Loading: true}
}

type bookHandle struct{ s *viewSet }

func (h bookHandle) Snapshot() view.Snapshot[[]domain.PriceLevel] {
	h.s.mu.RLock()
	v := h.s.bookView
	h.s.mu.RUnlock()
	if v == nil {
		return pending[[]domain.PriceLevel]()
	}
	return v.Snapshot()
}

type tapeHandle struct{ s *viewSet }

func (h tapeHandle) Snapshot() view.Snapshot[[]domain.ResolvedTrade] {
	h.s.mu.RLock()
	v := h.s.tapeView
	h.s.mu.RUnlock()
	if v == nil {
		return pending[[]domain.ResolvedTrade]()
	}
	return v.Snapshot()
}

type boardHandle struct{ s *viewSet }

func (h boardHandle) Snapshot() view.Snapshot[[]domain.LeaderboardEntry] {
	h.s.mu.RLock()
	v := h.s.boardView
	h.s.mu.RUnlock()
	if v == nil {
		return pending[[]domain.LeaderboardEntry]()
	}
	return v.Snapshot()
}

type portfolioHandle struct{ s *viewSet }

func (h portfolioHandle) Snapshot() view.Snapshot[domain.Portfolio] {
	h.s.mu.RLock()
	v := h.s.portView
	h.s.mu.RUnlock()
	if v == nil {
		return pending[domain.Portfolio]()
	}
	return v.Snapshot()
}
