package view

import (
	"context"
	"errors"
	"log/slog"
	"sync/atomic"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/barbosa7/bookdesk/internal/domain"
)

func testLogger() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}

func d(f float64) decimal.Decimal {
	return decimal.NewFromFloat(f)
}

// fakeSession implements Session with a controllable epoch.
type fakeSession struct {
	epoch       atomic.Uint64
	invalidated atomic.Int64
}

func (s *fakeSession) Authenticated() bool { return true }
func (s *fakeSession) User() (domain.UserIdentity, bool) {
	return domain.UserIdentity{ID: "alice", Username: "alice"}, true
}
func (s *fakeSession) Epoch() uint64 { return s.epoch.Load() }
func (s *fakeSession) Invalidate(ctx context.Context, reason string) {
	s.invalidated.Add(1)
	s.epoch.Add(1)
}

// fakeClient serves canned responses and lets tests hook each call.
type fakeClient struct {
	book    domain.OrderBookSnapshot
	bookErr error
	users   []domain.UserInfo
	acct    domain.ParticipantAccount
	board   []domain.LeaderboardEntry
	onBook  func()
}

func (c *fakeClient) OrderBook(ctx context.Context, competitionID string) (domain.OrderBookSnapshot, error) {
	if c.onBook != nil {
		c.onBook()
	}
	return c.book, c.bookErr
}

func (c *fakeClient) Users(ctx context.Context, competitionID string) ([]domain.UserInfo, error) {
	return c.users, nil
}

func (c *fakeClient) Participant(ctx context.Context, competitionID, userID string) (domain.ParticipantAccount, error) {
	return c.acct, nil
}

func (c *fakeClient) Leaderboard(ctx context.Context, competitionID string) ([]domain.LeaderboardEntry, error) {
	return c.board, nil
}

func bookWith(price float64, qty int64) domain.OrderBookSnapshot {
	return domain.OrderBookSnapshot{
		BuyOrders: []domain.Order{{Price: d(price), Quantity: qty, UserID: "u1"}},
	}
}

func TestState_OutOfOrderCycleDiscarded(t *testing.T) {
	st := NewState[int]("test")

	// Cycle 2's (faster) response lands first; cycle 1's slow response must
	// not overwrite it.
	if !st.Apply(2, 22) {
		t.Fatal("cycle 2 apply rejected")
	}
	if st.Apply(1, 11) {
		t.Error("stale cycle 1 must be discarded")
	}
	if snap := st.Snapshot(); snap.Data != 22 {
		t.Errorf("expected cycle 2 data to win, got %d", snap.Data)
	}
}

func TestState_NoMutationAfterClose(t *testing.T) {
	st := NewState[int]("test")
	st.Close()

	if st.Apply(1, 11) {
		t.Error("apply after close must be a no-op")
	}
	if st.Fail(1, "boom") {
		t.Error("fail after close must be a no-op")
	}
	snap := st.Snapshot()
	if snap.HasData || snap.Error != "" {
		t.Errorf("closed state mutated: %+v", snap)
	}
}

func TestState_FailRetainsLastGoodData(t *testing.T) {
	st := NewState[int]("test")
	st.Apply(1, 41)
	st.Fail(2, "network down")

	snap := st.Snapshot()
	if !snap.HasData || snap.Data != 41 {
		t.Errorf("failed poll must retain last-known-good data: %+v", snap)
	}
	if snap.Error != "network down" {
		t.Errorf("expected error recorded, got %q", snap.Error)
	}

	// Next success clears the error.
	st.Apply(3, 42)
	snap = st.Snapshot()
	if snap.Error != "" || snap.Data != 42 {
		t.Errorf("success must clear error: %+v", snap)
	}
}

func TestState_LoadingUntilFirstSettledFetch(t *testing.T) {
	st := NewState[int]("test")
	if snap := st.Snapshot(); !snap.Loading {
		t.Error("fresh state must report loading")
	}

	st.Seed(7)
	snap := st.Snapshot()
	if !snap.Loading || !snap.HasData || snap.Data != 7 {
		t.Errorf("seeded state must keep loading with warm data: %+v", snap)
	}

	st.Fail(1, "boom")
	if snap := st.Snapshot(); snap.Loading {
		t.Error("loading must end on first settled fetch, even a failure")
	}
}

func TestOrderBookView_StopBeforeFirstResolveAppliesNothing(t *testing.T) {
	sess := &fakeSession{}
	release := make(chan struct{})
	client := &fakeClient{book: bookWith(100, 5), onBook: func() { <-release }}

	v := NewOrderBookView("comp-1", client, sess, time.Hour, nil, nil, testLogger())
	if err := v.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}

	// Unbind while the first fetch is still blocked, then let it resolve.
	go v.Stop()
	close(release)

	// Give the in-flight cycle a moment to finish unwinding.
	time.Sleep(20 * time.Millisecond)

	snap := v.Snapshot()
	if snap.HasData {
		t.Error("a cycle resolving after Stop must not mutate view state")
	}
	if !snap.Loading {
		t.Error("stopped-before-first-fetch view must still report loading")
	}
}

func TestOrderBookView_LogoutMidFlightDiscardsResult(t *testing.T) {
	sess := &fakeSession{}
	client := &fakeClient{book: bookWith(100, 5)}
	// Bump the epoch while the request is "in flight".
	client.onBook = func() { sess.epoch.Add(1) }

	v := NewOrderBookView("comp-1", client, sess, time.Hour, nil, nil, testLogger())
	if err := v.refresh(context.Background(), 1); err != nil {
		t.Fatalf("refresh: %v", err)
	}

	if v.Snapshot().HasData {
		t.Error("result fetched under an old session epoch must be discarded")
	}
}

func TestOrderBookView_AuthErrorInvalidatesSession(t *testing.T) {
	sess := &fakeSession{}
	client := &fakeClient{bookErr: domain.NewRequestError(401, "Invalid token")}

	v := NewOrderBookView("comp-1", client, sess, time.Hour, nil, nil, testLogger())
	if err := v.refresh(context.Background(), 1); err == nil {
		t.Fatal("expected error")
	}

	if sess.invalidated.Load() != 1 {
		t.Error("401 must propagate past the view and invalidate the session")
	}
}

func TestOrderBookView_RefreshRendersLadder(t *testing.T) {
	sess := &fakeSession{}
	client := &fakeClient{book: domain.OrderBookSnapshot{
		BuyOrders:  []domain.Order{{Price: d(100), Quantity: 5, UserID: "u1"}},
		SellOrders: []domain.Order{{Price: d(101), Quantity: 3, UserID: "u2"}},
	}}

	v := NewOrderBookView("comp-1", client, sess, time.Hour, nil, nil, testLogger())
	if err := v.refresh(context.Background(), 1); err != nil {
		t.Fatalf("refresh: %v", err)
	}

	snap := v.Snapshot()
	if !snap.HasData || len(snap.Data) != 2 {
		t.Fatalf("expected 2-level ladder, got %+v", snap)
	}
	if !snap.Data[0].Price.Equal(d(101)) || snap.Data[0].AskQuantity != 3 {
		t.Errorf("unexpected top level: %+v", snap.Data[0])
	}
	if snap.Data[1].BidQuantity != 5 || snap.Data[1].AskQuantity != 0 {
		t.Errorf("unexpected bottom level: %+v", snap.Data[1])
	}
}

func TestTradeTapeView_UnresolvedPartyRendersUnknown(t *testing.T) {
	sess := &fakeSession{}
	client := &fakeClient{
		book: domain.OrderBookSnapshot{
			Trades: []domain.Trade{
				{Price: d(100), Quantity: 2, BuyerID: "alice", SellerID: "ghost"},
			},
		},
		users: []domain.UserInfo{{ID: "alice", Username: "Alice"}},
	}

	v := NewTradeTapeView("comp-1", "ACME", client, sess, time.Hour, nil, nil, testLogger())
	if err := v.refresh(context.Background(), 1); err != nil {
		t.Fatalf("refresh: %v", err)
	}

	snap := v.Snapshot()
	if len(snap.Data) != 1 {
		t.Fatalf("expected 1 trade, got %d", len(snap.Data))
	}
	if snap.Data[0].BuyerName != "Alice" {
		t.Errorf("expected buyer Alice, got %q", snap.Data[0].BuyerName)
	}
	if snap.Data[0].SellerName != UnknownParty {
		t.Errorf("unresolved seller must render %q, got %q", UnknownParty, snap.Data[0].SellerName)
	}
}

func TestTradeTapeView_RecordsTapeToJournal(t *testing.T) {
	sess := &fakeSession{}
	client := &fakeClient{
		book: domain.OrderBookSnapshot{
			Trades: []domain.Trade{
				{Price: d(100), Quantity: 2, BuyerID: "a", SellerID: "b"},
				{Price: d(101), Quantity: 1, BuyerID: "b", SellerID: "a"},
			},
		},
	}
	journal := &fakeJournal{}

	v := NewTradeTapeView("comp-1", "ACME", client, sess, time.Hour, nil, journal, testLogger())
	if err := v.refresh(context.Background(), 1); err != nil {
		t.Fatalf("refresh: %v", err)
	}

	if len(journal.rows) != 2 {
		t.Fatalf("expected 2 journaled trades, got %d", len(journal.rows))
	}
	if journal.rows[0].SeqNo != 0 || journal.rows[1].SeqNo != 1 {
		t.Errorf("journal rows must carry tape positions: %+v", journal.rows)
	}
	if journal.rows[1].Symbol != "ACME" || journal.rows[1].CompetitionID != "comp-1" {
		t.Errorf("journal rows must carry competition and symbol: %+v", journal.rows[1])
	}
}

type fakeJournal struct {
	rows []domain.JournalTrade
}

func (j *fakeJournal) Record(ctx context.Context, trades []domain.JournalTrade) error {
	j.rows = append(j.rows, trades...)
	return nil
}
func (j *fakeJournal) Recent(ctx context.Context, competitionID string, limit int) ([]domain.JournalTrade, error) {
	return j.rows, nil
}
func (j *fakeJournal) OlderThan(ctx context.Context, before time.Time) ([]domain.JournalTrade, error) {
	return nil, nil
}
func (j *fakeJournal) DeleteBefore(ctx context.Context, before time.Time) (int64, error) {
	return 0, nil
}

func TestPortfolioView_ProjectsAccount(t *testing.T) {
	sess := &fakeSession{}
	client := &fakeClient{acct: domain.ParticipantAccount{
		ID:   "alice",
		Cash: d(1_050_000),
		Positions: map[string]domain.Position{
			"ACME": {Quantity: 10, AveragePrice: d(99.5), MarketValue: d(1010)},
		},
	}}

	v := NewPortfolioView("comp-1", decimal.NewFromInt(1_000_000), client, sess,
		time.Hour, nil, testLogger())
	if err := v.refresh(context.Background(), 1); err != nil {
		t.Fatalf("refresh: %v", err)
	}

	snap := v.Snapshot()
	if !snap.Data.TotalPnL.Equal(d(50_000)) {
		t.Errorf("expected P&L 50000, got %s", snap.Data.TotalPnL)
	}
	if len(snap.Data.Positions) != 1 || snap.Data.Positions[0].Symbol != "ACME" {
		t.Errorf("unexpected positions: %+v", snap.Data.Positions)
	}
}

func TestLeaderboardView_FailureKeepsPolling(t *testing.T) {
	sess := &fakeSession{}
	client := &fakeClient{board: []domain.LeaderboardEntry{
		{UserID: "alice", TotalPnL: d(10), Rank: 1},
	}}

	v := NewLeaderboardView("comp-1", client, sess, time.Hour, nil, testLogger())

	if err := v.refresh(context.Background(), 1); err != nil {
		t.Fatalf("refresh: %v", err)
	}

	// A later failing cycle keeps the standings and records the error.
	failing := &failingBoard{err: errors.New("connection refused")}
	v.client = failing
	if err := v.refresh(context.Background(), 2); err == nil {
		t.Fatal("expected refresh error")
	}

	snap := v.Snapshot()
	if !snap.HasData || len(snap.Data) != 1 {
		t.Errorf("failure must retain last standings: %+v", snap)
	}
	if snap.Error == "" {
		t.Error("failure must surface a view-local error")
	}
	if sess.invalidated.Load() != 0 {
		t.Error("a network failure must not invalidate the session")
	}
}

type failingBoard struct {
	err error
}

func (f *failingBoard) Leaderboard(ctx context.Context, competitionID string) ([]domain.LeaderboardEntry, error) {
	return nil, f.err
}
