// Package view binds each rendered screen (order book, trade tape,
// leaderboard, portfolio) to its own poller. Views are independent: each owns
// its poller, its loading/error/data triple, and its failures.
package view

import (
	"context"
	"sync"

	"github.com/barbosa7/bookdesk/internal/domain"
	"github.com/barbosa7/bookdesk/internal/metrics"
)

// Session is the read surface a view needs from the session store, plus the
// one write that must escape the view boundary: credential rejection.
type Session interface {
	Authenticated() bool
	User() (domain.UserIdentity, bool)
	Epoch() uint64
	Invalidate(ctx context.Context, reason string)
}

// Snapshot is a point-in-time copy of a view's observable state. Data is the
// last successfully rendered value and survives failed polls, so consumers
// keep showing known-good content with a non-blocking error indicator.
type Snapshot[T any] struct {
	Data    T      `json:"data"`
	HasData bool   `json:"has_data"`
	Loading bool   `json:"loading"`
	Error   string `json:"error,omitempty"`
}

// State holds one view's loading/data/error triple behind the liveness and
// cycle-ordering guards from the concurrency model: a result is applied only
// while the view is bound and only if no later cycle has landed first.
type State[T any] struct {
	name string

	mu      sync.Mutex
	alive   bool
	loading bool
	hasData bool
	data    T
	err     string
	lastSeq uint64
}

// NewState creates a live State in the loading phase. name labels stale-drop
// metrics.
func NewState[T any](name string) *State[T] {
	return &State[T]{name: name, alive: true, loading: true}
}

// Apply installs a successful cycle result and clears any error. It reports
// false, mutating nothing, when the view has been closed or a cycle newer
// than seq already landed.
func (s *State[T]) Apply(seq uint64, v T) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.alive || seq <= s.lastSeq {
		metrics.StaleDrops.WithLabelValues(s.name).Inc()
		return false
	}

	s.lastSeq = seq
	s.data = v
	s.hasData = true
	s.loading = false
	s.err = ""
	return true
}

// Fail records a cycle failure. Previously rendered data is retained; only
// the error indicator and loading flag change. Ordering and liveness guards
// match Apply.
func (s *State[T]) Fail(seq uint64, msg string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.alive || seq <= s.lastSeq {
		metrics.StaleDrops.WithLabelValues(s.name).Inc()
		return false
	}

	s.lastSeq = seq
	s.loading = false
	s.err = msg
	return true
}

// Seed installs warm-start data (e.g. from the snapshot cache) without
// leaving the loading phase: the view still reports loading until its first
// real fetch settles.
func (s *State[T]) Seed(v T) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.alive || s.hasData {
		return
	}
	s.data = v
	s.hasData = true
}

// Close unbinds the state. Any in-flight cycle that resolves afterwards is
// discarded; Close is idempotent.
func (s *State[T]) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.alive = false
}

// Snapshot returns a copy of the current observable state.
func (s *State[T]) Snapshot() Snapshot[T] {
	s.mu.Lock()
	defer s.mu.Unlock()
	return Snapshot[T]{
		Data:    s.data,
		HasData: s.hasData,
		Loading: s.loading,
		Error:   s.err,
	}
}
