package service

import (
	"context"
	"errors"
	"log/slog"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/barbosa7/bookdesk/internal/domain"
)

type fakePoster struct {
	gotUserID string
	gotTicket domain.OrderTicket
	ack       domain.OrderAck
	err       error
	canceled  []string
}

func (p *fakePoster) PlaceOrder(ctx context.Context, userID string, ticket domain.OrderTicket) (domain.OrderAck, error) {
	p.gotUserID = userID
	p.gotTicket = ticket
	return p.ack, p.err
}

func (p *fakePoster) CancelOrder(ctx context.Context, competitionID, orderID string) error {
	p.canceled = append(p.canceled, orderID)
	return p.err
}

type fakeAuth struct {
	active      bool
	invalidated int
}

func (s *fakeAuth) Authenticated() bool { return s.active }
func (s *fakeAuth) User() (domain.UserIdentity, bool) {
	if !s.active {
		return domain.UserIdentity{}, false
	}
	return domain.UserIdentity{ID: "alice", Username: "alice"}, true
}
func (s *fakeAuth) Invalidate(ctx context.Context, reason string) {
	s.invalidated++
	s.active = false
}

func ticket(side domain.OrderSide, price, qty float64) domain.OrderTicket {
	return domain.OrderTicket{
		CompetitionID: "comp-1",
		Symbol:        "ACME",
		Side:          side,
		Quantity:      decimal.NewFromFloat(qty),
		Price:         decimal.NewFromFloat(price),
	}
}

func newService(poster *fakePoster, sess *fakeAuth) *OrderService {
	return NewOrderService(poster, sess, nil, slog.New(slog.DiscardHandler))
}

func TestPlace_FloorsFractionalQuantity(t *testing.T) {
	poster := &fakePoster{ack: domain.OrderAck{Status: "processed"}}
	svc := newService(poster, &fakeAuth{active: true})

	ack, err := svc.Place(context.Background(), ticket(domain.SideBuy, 101.25, 10.7))
	if err != nil {
		t.Fatalf("Place: %v", err)
	}
	if got := poster.gotTicket.Quantity; !got.Equal(decimal.NewFromInt(10)) {
		t.Errorf("quantity 10.7 must floor to 10, got %s", got)
	}
	if poster.gotUserID != "alice" {
		t.Errorf("expected submission as alice, got %q", poster.gotUserID)
	}
	if ack.ClientOrderID == "" {
		t.Error("ack must carry a client order id")
	}
}

func TestPlace_ValidationRejects(t *testing.T) {
	tests := []struct {
		name   string
		ticket domain.OrderTicket
	}{
		{"zero price", ticket(domain.SideBuy, 0, 10)},
		{"negative price", ticket(domain.SideSell, -1, 10)},
		{"zero quantity", ticket(domain.SideBuy, 100, 0)},
		{"fractional below one", ticket(domain.SideBuy, 100, 0.9)},
		{"bad side", domain.OrderTicket{CompetitionID: "c", Symbol: "ACME", Side: "HOLD",
			Quantity: decimal.NewFromInt(1), Price: decimal.NewFromInt(100)}},
		{"missing symbol", domain.OrderTicket{CompetitionID: "c", Side: domain.SideBuy,
			Quantity: decimal.NewFromInt(1), Price: decimal.NewFromInt(100)}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			poster := &fakePoster{}
			svc := newService(poster, &fakeAuth{active: true})

			_, err := svc.Place(context.Background(), tt.ticket)
			if !errors.Is(err, domain.ErrInvalidOrder) {
				t.Fatalf("expected ErrInvalidOrder, got %v", err)
			}
			if poster.gotTicket.Symbol != "" {
				t.Error("invalid ticket must not reach the poster")
			}
		})
	}
}

func TestPlace_NoSession(t *testing.T) {
	svc := newService(&fakePoster{}, &fakeAuth{active: false})
	_, err := svc.Place(context.Background(), ticket(domain.SideBuy, 100, 1))
	if !errors.Is(err, domain.ErrNoSession) {
		t.Fatalf("expected ErrNoSession, got %v", err)
	}
}

func TestPlace_AuthErrorInvalidatesSession(t *testing.T) {
	poster := &fakePoster{err: domain.NewRequestError(401, "Invalid token")}
	sess := &fakeAuth{active: true}
	svc := newService(poster, sess)

	_, err := svc.Place(context.Background(), ticket(domain.SideBuy, 100, 1))
	if err == nil {
		t.Fatal("expected error")
	}
	if sess.invalidated != 1 {
		t.Error("401 on submission must invalidate the session")
	}
}

func TestPlace_RejectionPreservesSentinel(t *testing.T) {
	poster := &fakePoster{err: domain.NewRequestError(422, "Insufficient funds")}
	svc := newService(poster, &fakeAuth{active: true})

	_, err := svc.Place(context.Background(), ticket(domain.SideBuy, 100, 1))
	if !errors.Is(err, domain.ErrRejected) {
		t.Fatalf("expected ErrRejected, got %v", err)
	}
}

func TestCancel(t *testing.T) {
	poster := &fakePoster{}
	svc := newService(poster, &fakeAuth{active: true})

	if err := svc.Cancel(context.Background(), "comp-1", "ord-9"); err != nil {
		t.Fatalf("Cancel: %v", err)
	}
	if len(poster.canceled) != 1 || poster.canceled[0] != "ord-9" {
		t.Errorf("unexpected cancels: %v", poster.canceled)
	}
}

func TestFormatPrice(t *testing.T) {
	tests := []struct {
		in   float64
		want string
	}{
		{101.005, "101.01"},
		{100, "100.00"},
		{99.5, "99.50"},
	}
	for _, tt := range tests {
		if got := FormatPrice(decimal.NewFromFloat(tt.in)); got != tt.want {
			t.Errorf("FormatPrice(%v) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
