package exchange

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/barbosa7/bookdesk/internal/domain"
)

// staticToken is a TokenSource returning a fixed credential.
type staticToken string

func (t staticToken) Token() string { return string(t) }

func TestClient_AttachesBearerWhenTokenHeld(t *testing.T) {
	var gotAuth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		_ = json.NewEncoder(w).Encode(domain.OrderBookSnapshot{})
	}))
	defer srv.Close()

	c := NewClient(srv.URL, staticToken("tok-1"))
	if _, err := c.OrderBook(context.Background(), "comp-1"); err != nil {
		t.Fatalf("OrderBook: %v", err)
	}
	if gotAuth != "Bearer tok-1" {
		t.Errorf("expected Authorization \"Bearer tok-1\", got %q", gotAuth)
	}
}

func TestClient_NoTokenSendsUnauthenticated(t *testing.T) {
	var gotAuth string
	var sawHeader bool
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		_, sawHeader = r.Header["Authorization"]
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"detail":"Not authenticated"}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, staticToken(""))
	_, err := c.OrderBook(context.Background(), "comp-1")
	if err == nil {
		t.Fatal("expected error from 401 response")
	}
	if sawHeader {
		t.Errorf("request must carry no Authorization header without a session, got %q", gotAuth)
	}
	if !domain.IsAuthError(err) {
		t.Errorf("401 must classify as auth error, got %v", err)
	}
}

func TestClient_StatusToSentinelMapping(t *testing.T) {
	tests := []struct {
		status int
		want   error
	}{
		{http.StatusUnauthorized, domain.ErrUnauthorized},
		{http.StatusForbidden, domain.ErrUnauthorized},
		{http.StatusNotFound, domain.ErrNotFound},
		{http.StatusTooManyRequests, domain.ErrRateLimited},
		{http.StatusBadRequest, domain.ErrRejected},
	}

	for _, tt := range tests {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(tt.status)
			_, _ = w.Write([]byte(`{"detail":"nope"}`))
		}))

		c := NewClient(srv.URL, staticToken("tok"))
		_, err := c.Leaderboard(context.Background(), "comp-1")
		srv.Close()

		if !errors.Is(err, tt.want) {
			t.Errorf("status %d: expected sentinel %v, got %v", tt.status, tt.want, err)
		}
		var reqErr *domain.RequestError
		if !errors.As(err, &reqErr) {
			t.Errorf("status %d: expected RequestError in chain", tt.status)
		} else if reqErr.Status != tt.status || reqErr.Message != "nope" {
			t.Errorf("status %d: got %+v", tt.status, reqErr)
		}
	}
}

func TestClient_Login(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/auth/login" || r.Method != http.MethodPost {
			t.Errorf("unexpected request: %s %s", r.Method, r.URL.Path)
		}
		if r.Header.Get("Authorization") != "" {
			t.Error("login must not carry a bearer header")
		}
		var req loginRequest
		_ = json.NewDecoder(r.Body).Decode(&req)
		if req.Username != "alice" || req.Password != "pw" {
			t.Errorf("unexpected credentials: %+v", req)
		}
		_, _ = w.Write([]byte(`{"access_token":"tok-9","user":{"id":"alice","username":"alice"}}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, staticToken(""))
	sess, err := c.Login(context.Background(), "alice", "pw")
	if err != nil {
		t.Fatalf("Login: %v", err)
	}
	if sess.Token != "tok-9" || sess.User.ID != "alice" {
		t.Errorf("unexpected session: %+v", sess)
	}
}

func TestClient_LeaderboardCoercesMalformedRows(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`[
			{"user_id":"bob","total_pnl":120.5,"rank":1},
			{"total_pnl":null}
		]`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, staticToken("tok"))
	entries, err := c.Leaderboard(context.Background(), "comp-1")
	if err != nil {
		t.Fatalf("Leaderboard: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(entries))
	}
	if entries[0].UserID != "bob" || entries[0].Rank != 1 {
		t.Errorf("unexpected first entry: %+v", entries[0])
	}
	if entries[1].UserID != "Unknown" {
		t.Errorf("missing user_id must default to Unknown, got %q", entries[1].UserID)
	}
	if entries[1].Rank != 0 || !entries[1].TotalPnL.IsZero() {
		t.Errorf("missing fields must default to zero: %+v", entries[1])
	}
}

func TestClient_PlaceOrderWireFormat(t *testing.T) {
	var raw map[string]json.RawMessage
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/order" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		_ = json.NewDecoder(r.Body).Decode(&raw)
		_, _ = w.Write([]byte(`{"status":"processed","trades":1}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, staticToken("tok"))
	ack, err := c.PlaceOrder(context.Background(), "alice", domain.OrderTicket{
		CompetitionID: "comp-1",
		Symbol:        "ACME",
		Side:          domain.SideSell,
		Quantity:      decimal.NewFromInt(10),
		Price:         decimal.RequireFromString("101.25"),
	})
	if err != nil {
		t.Fatalf("PlaceOrder: %v", err)
	}
	if ack.Status != "processed" {
		t.Errorf("unexpected ack: %+v", ack)
	}

	// Price must travel as a bare JSON number, not a quoted string.
	if string(raw["price"]) != "101.25" {
		t.Errorf("expected price 101.25 unquoted, got %s", raw["price"])
	}
	if string(raw["quantity"]) != "10" {
		t.Errorf("expected quantity 10, got %s", raw["quantity"])
	}
	if string(raw["user_id"]) != `"alice"` {
		t.Errorf("expected user_id alice, got %s", raw["user_id"])
	}
}

func TestClient_OrderBookDecode(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{
			"buy_orders":[{"price":100.5,"quantity":5,"user_id":"u1"}],
			"sell_orders":[],
			"trades":[{"price":100.5,"quantity":2,"buyer_id":"u1","seller_id":"u2"}]
		}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, staticToken("tok"))
	snap, err := c.OrderBook(context.Background(), "comp-1")
	if err != nil {
		t.Fatalf("OrderBook: %v", err)
	}
	if len(snap.BuyOrders) != 1 || len(snap.Trades) != 1 {
		t.Fatalf("unexpected snapshot: %+v", snap)
	}
	if !snap.BuyOrders[0].Price.Equal(decimal.RequireFromString("100.5")) {
		t.Errorf("decimal price decode mismatch: %s", snap.BuyOrders[0].Price)
	}
}
