package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/barbosa7/bookdesk/internal/domain"
	"github.com/barbosa7/bookdesk/internal/notify"
)

// OrderPoster submits validated orders to the competition service.
type OrderPoster interface {
	PlaceOrder(ctx context.Context, userID string, ticket domain.OrderTicket) (domain.OrderAck, error)
	CancelOrder(ctx context.Context, competitionID, orderID string) error
}

// SessionSource exposes the authenticated user the desk acts as.
type SessionSource interface {
	Authenticated() bool
	User() (domain.UserIdentity, bool)
	Invalidate(ctx context.Context, reason string)
}

// OrderService validates order tickets and submits them one at a time. Each
// submission resolves exactly once, to an ack or an error, and is reported
// through the notifier either way.
type OrderService struct {
	poster   OrderPoster
	session  SessionSource
	notifier *notify.Notifier
	logger   *slog.Logger
}

func NewOrderService(poster OrderPoster, session SessionSource, notifier *notify.Notifier, logger *slog.Logger) *OrderService {
	return &OrderService{
		poster:   poster,
		session:  session,
		notifier: notifier,
		logger:   logger.With(slog.String("component", "order_service")),
	}
}

// Place validates the ticket, floors a fractional quantity to a whole number
// of units, and submits it. The returned ack carries a client order id
// assigned here so the submission can be correlated in logs and alerts.
func (s *OrderService) Place(ctx context.Context, ticket domain.OrderTicket) (domain.OrderAck, error) {
	user, ok := s.session.User()
	if !ok {
		return domain.OrderAck{}, domain.ErrNoSession
	}

	ticket.Quantity = ticket.Quantity.Floor()
	if err := validateTicket(ticket); err != nil {
		s.notifyRejected(ctx, ticket, err)
		return domain.OrderAck{}, err
	}

	clientOrderID := uuid.NewString()
	log := s.logger.With(
		slog.String("client_order_id", clientOrderID),
		slog.String("symbol", ticket.Symbol),
		slog.String("side", string(ticket.Side)),
		slog.String("price", ticket.Price.StringFixed(2)),
		slog.Int64("quantity", ticket.Quantity.IntPart()),
	)

	ack, err := s.poster.PlaceOrder(ctx, user.ID, ticket)
	if err != nil {
		if domain.IsAuthError(err) {
			s.session.Invalidate(ctx, "order submission rejected")
		}
		log.ErrorContext(ctx, "order rejected", slog.String("error", err.Error()))
		s.notifyRejected(ctx, ticket, err)
		return domain.OrderAck{}, fmt.Errorf("place order: %w", err)
	}
	ack.ClientOrderID = clientOrderID

	log.InfoContext(ctx, "order placed", slog.String("status", ack.Status))
	s.notify(ctx, notify.EventOrderPlaced, "Order placed",
		fmt.Sprintf("%s %d %s @ %s (%s)",
			ticket.Side, ticket.Quantity.IntPart(), ticket.Symbol,
			ticket.Price.StringFixed(2), ack.Status))
	return ack, nil
}

// Cancel withdraws a resting order.
func (s *OrderService) Cancel(ctx context.Context, competitionID, orderID string) error {
	if !s.session.Authenticated() {
		return domain.ErrNoSession
	}
	if err := s.poster.CancelOrder(ctx, competitionID, orderID); err != nil {
		if domain.IsAuthError(err) {
			s.session.Invalidate(ctx, "order cancel rejected")
		}
		return fmt.Errorf("cancel order: %w", err)
	}
	s.notify(ctx, notify.EventOrderCanceled, "Order canceled",
		fmt.Sprintf("order %s withdrawn", orderID))
	return nil
}

func validateTicket(t domain.OrderTicket) error {
	if t.CompetitionID == "" || t.Symbol == "" {
		return fmt.Errorf("%w: missing competition or symbol", domain.ErrInvalidOrder)
	}
	if t.Side != domain.SideBuy && t.Side != domain.SideSell {
		return fmt.Errorf("%w: side %q", domain.ErrInvalidOrder, t.Side)
	}
	if !t.Price.IsPositive() {
		return fmt.Errorf("%w: price must be positive, got %s", domain.ErrInvalidOrder, t.Price)
	}
	if !t.Quantity.IsPositive() {
		return fmt.Errorf("%w: quantity must be at least 1", domain.ErrInvalidOrder)
	}
	return nil
}

func (s *OrderService) notifyRejected(ctx context.Context, t domain.OrderTicket, cause error) {
	msg := fmt.Sprintf("%s %s @ %s: %v", t.Side, t.Symbol, t.Price.StringFixed(2), cause)
	if errors.Is(cause, domain.ErrInvalidOrder) {
		msg = fmt.Sprintf("%s %s: %v", t.Side, t.Symbol, cause)
	}
	s.notify(ctx, notify.EventOrderRejected, "Order rejected", msg)
}

func (s *OrderService) notify(ctx context.Context, event, title, message string) {
	if s.notifier == nil {
		return
	}
	if err := s.notifier.Notify(ctx, event, title, message); err != nil {
		s.logger.WarnContext(ctx, "alert delivery failed", slog.String("error", err.Error()))
	}
}

// FormatPrice renders a price at the display precision used across the desk.
func FormatPrice(p decimal.Decimal) string {
	return p.StringFixed(2)
}
