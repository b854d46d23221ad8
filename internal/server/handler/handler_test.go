package handler

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/barbosa7/bookdesk/internal/domain"
	"github.com/barbosa7/bookdesk/internal/view"
)

func testLogger() *slog.Logger { return slog.New(slog.DiscardHandler) }

type stubAuth struct {
	user     domain.UserIdentity
	loginErr error
	logouts  int
}

func (a *stubAuth) Login(ctx context.Context, username, password string) (domain.UserIdentity, error) {
	return a.user, a.loginErr
}

func (a *stubAuth) Logout(ctx context.Context) error {
	a.logouts++
	return nil
}

type stubSession struct {
	user *domain.UserIdentity
}

func (s *stubSession) Authenticated() bool { return s.user != nil }
func (s *stubSession) User() (domain.UserIdentity, bool) {
	if s.user == nil {
		return domain.UserIdentity{}, false
	}
	return *s.user, true
}

func TestSessionHandler_Login(t *testing.T) {
	auth := &stubAuth{user: domain.UserIdentity{ID: "u1", Username: "alice"}}
	h := NewSessionHandler(auth, &stubSession{}, testLogger())

	req := httptest.NewRequest(http.MethodPost, "/api/session/login",
		strings.NewReader(`{"username":"alice","password":"pw"}`))
	rec := httptest.NewRecorder()
	h.Login(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status %d: %s", rec.Code, rec.Body)
	}
	var body struct {
		User domain.UserIdentity `json:"user"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body.User.Username != "alice" {
		t.Errorf("unexpected user: %+v", body.User)
	}
}

func TestSessionHandler_LoginRejectsBadCredentials(t *testing.T) {
	auth := &stubAuth{loginErr: domain.NewRequestError(401, "bad credentials")}
	h := NewSessionHandler(auth, &stubSession{}, testLogger())

	req := httptest.NewRequest(http.MethodPost, "/api/session/login",
		strings.NewReader(`{"username":"alice","password":"wrong"}`))
	rec := httptest.NewRecorder()
	h.Login(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
}

func TestSessionHandler_LoginRequiresCredentials(t *testing.T) {
	h := NewSessionHandler(&stubAuth{}, &stubSession{}, testLogger())

	req := httptest.NewRequest(http.MethodPost, "/api/session/login",
		strings.NewReader(`{"username":"alice"}`))
	rec := httptest.NewRecorder()
	h.Login(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}

func TestSessionHandler_Status(t *testing.T) {
	h := NewSessionHandler(&stubAuth{},
		&stubSession{user: &domain.UserIdentity{ID: "u1", Username: "alice"}}, testLogger())

	rec := httptest.NewRecorder()
	h.Status(rec, httptest.NewRequest(http.MethodGet, "/api/session", nil))

	var body map[string]any
	json.Unmarshal(rec.Body.Bytes(), &body)
	if body["authenticated"] != true {
		t.Errorf("expected authenticated status: %v", body)
	}
}

type stubPlacer struct {
	gotTicket domain.OrderTicket
	ack       domain.OrderAck
	err       error
}

func (p *stubPlacer) Place(ctx context.Context, ticket domain.OrderTicket) (domain.OrderAck, error) {
	p.gotTicket = ticket
	return p.ack, p.err
}

func (p *stubPlacer) Cancel(ctx context.Context, competitionID, orderID string) error {
	return p.err
}

func TestOrderHandler_PlaceFillsTicketFromConfig(t *testing.T) {
	placer := &stubPlacer{ack: domain.OrderAck{Status: "processed", ClientOrderID: "c1"}}
	h := NewOrderHandler(placer, "comp-1", "ACME", testLogger())

	req := httptest.NewRequest(http.MethodPost, "/api/orders",
		strings.NewReader(`{"side":"BUY","price":101.25,"quantity":10}`))
	rec := httptest.NewRecorder()
	h.Place(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status %d: %s", rec.Code, rec.Body)
	}
	if placer.gotTicket.CompetitionID != "comp-1" || placer.gotTicket.Symbol != "ACME" {
		t.Errorf("ticket must carry configured competition and symbol: %+v", placer.gotTicket)
	}
	if !placer.gotTicket.Price.Equal(decimal.NewFromFloat(101.25)) {
		t.Errorf("unexpected price %s", placer.gotTicket.Price)
	}
}

func TestOrderHandler_PlaceMapsSentinelsToStatus(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"no session", domain.ErrNoSession, http.StatusUnauthorized},
		{"invalid", domain.ErrInvalidOrder, http.StatusUnprocessableEntity},
		{"rejected", domain.NewRequestError(422, "insufficient funds"), http.StatusUnprocessableEntity},
		{"rate limited", domain.NewRequestError(429, "slow down"), http.StatusTooManyRequests},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := NewOrderHandler(&stubPlacer{err: tt.err}, "comp-1", "ACME", testLogger())

			req := httptest.NewRequest(http.MethodPost, "/api/orders",
				strings.NewReader(`{"side":"BUY","price":100,"quantity":1}`))
			rec := httptest.NewRecorder()
			h.Place(rec, req)

			if rec.Code != tt.want {
				t.Errorf("expected %d, got %d", tt.want, rec.Code)
			}
		})
	}
}

type stubBook struct {
	snap view.Snapshot[[]domain.PriceLevel]
}

func (s *stubBook) Snapshot() view.Snapshot[[]domain.PriceLevel] { return s.snap }

func TestMarketHandler_BookRendersSnapshot(t *testing.T) {
	book := &stubBook{snap: view.Snapshot[[]domain.PriceLevel]{
		Data: []domain.PriceLevel{
			{Price: decimal.NewFromInt(101), AskQuantity: 3},
			{Price: decimal.NewFromInt(100), BidQuantity: 5},
		},
		HasData: true,
	}}
	h := NewMarketHandler(book, nil, nil, nil, nil, "comp-1", testLogger())

	rec := httptest.NewRecorder()
	h.Book(rec, httptest.NewRequest(http.MethodGet, "/api/book", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status %d", rec.Code)
	}
	var body struct {
		Data    []map[string]any `json:"data"`
		HasData bool             `json:"has_data"`
		Loading bool             `json:"loading"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !body.HasData || len(body.Data) != 2 {
		t.Errorf("unexpected body: %s", rec.Body)
	}
}

func TestMarketHandler_HistoryWithoutJournal(t *testing.T) {
	h := NewMarketHandler(nil, nil, nil, nil, nil, "comp-1", testLogger())

	rec := httptest.NewRecorder()
	h.History(rec, httptest.NewRequest(http.MethodGet, "/api/trades/history", nil))

	if rec.Code != http.StatusNotFound {
		t.Errorf("expected 404 without a journal, got %d", rec.Code)
	}
}
