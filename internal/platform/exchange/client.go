// Package exchange is the REST client for the trading-competition service.
// Every call attaches the session's bearer credential when one is held; with
// no credential the request goes out unauthenticated and the service rejects
// it, which is surfaced like any other failure rather than crashing the call.
package exchange

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/barbosa7/bookdesk/internal/domain"
	"github.com/barbosa7/bookdesk/internal/metrics"
)

// TokenSource supplies the current bearer credential. An empty string means
// no session is held.
type TokenSource interface {
	Token() string
}

// Client is the typed REST client. It performs no retries; the pollers'
// fixed-interval schedule is the retry.
type Client struct {
	baseURL    string
	tokens     TokenSource
	httpClient *http.Client
}

// NewClient creates a Client for the service at baseURL, e.g.
// "http://localhost:8000".
func NewClient(baseURL string, tokens TokenSource) *Client {
	return &Client{
		baseURL: baseURL,
		tokens:  tokens,
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

// Login exchanges credentials for a session. It never sends a bearer header.
func (c *Client) Login(ctx context.Context, username, password string) (domain.Session, error) {
	body, err := c.do(ctx, "login", http.MethodPost, "/auth/login", loginRequest{
		Username: username,
		Password: password,
	})
	if err != nil {
		return domain.Session{}, fmt.Errorf("exchange: login: %w", err)
	}

	var resp loginResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return domain.Session{}, fmt.Errorf("exchange: decode login response: %w", err)
	}

	return domain.Session{
		User:  domain.UserIdentity{ID: resp.User.ID, Username: resp.User.Username},
		Token: resp.AccessToken,
	}, nil
}

// OrderBook returns the current full book snapshot including the trade tape.
func (c *Client) OrderBook(ctx context.Context, competitionID string) (domain.OrderBookSnapshot, error) {
	path := fmt.Sprintf("/competition/%s/orderbook", url.PathEscape(competitionID))

	body, err := c.do(ctx, "orderbook", http.MethodGet, path, nil)
	if err != nil {
		return domain.OrderBookSnapshot{}, fmt.Errorf("exchange: get orderbook: %w", err)
	}

	var snap domain.OrderBookSnapshot
	if err := json.Unmarshal(body, &snap); err != nil {
		return domain.OrderBookSnapshot{}, fmt.Errorf("exchange: decode orderbook: %w", err)
	}
	return snap, nil
}

// Leaderboard returns the service-computed standings. Malformed rows are
// coerced rather than failing the fetch: a missing user id renders "Unknown"
// and a missing rank stays 0.
func (c *Client) Leaderboard(ctx context.Context, competitionID string) ([]domain.LeaderboardEntry, error) {
	path := fmt.Sprintf("/competition/%s/leaderboard", url.PathEscape(competitionID))

	body, err := c.do(ctx, "leaderboard", http.MethodGet, path, nil)
	if err != nil {
		return nil, fmt.Errorf("exchange: get leaderboard: %w", err)
	}

	var entries []domain.LeaderboardEntry
	if err := json.Unmarshal(body, &entries); err != nil {
		return nil, fmt.Errorf("exchange: decode leaderboard: %w", err)
	}

	for i := range entries {
		if entries[i].UserID == "" {
			entries[i].UserID = "Unknown"
		}
	}
	return entries, nil
}

// Participant returns the raw account state for one competitor.
func (c *Client) Participant(ctx context.Context, competitionID, userID string) (domain.ParticipantAccount, error) {
	path := fmt.Sprintf("/competition/%s/participant/%s",
		url.PathEscape(competitionID), url.PathEscape(userID))

	body, err := c.do(ctx, "participant", http.MethodGet, path, nil)
	if err != nil {
		return domain.ParticipantAccount{}, fmt.Errorf("exchange: get participant %s: %w", userID, err)
	}

	var acct domain.ParticipantAccount
	if err := json.Unmarshal(body, &acct); err != nil {
		return domain.ParticipantAccount{}, fmt.Errorf("exchange: decode participant: %w", err)
	}
	return acct, nil
}

// Users returns the competition's user directory.
func (c *Client) Users(ctx context.Context, competitionID string) ([]domain.UserInfo, error) {
	path := fmt.Sprintf("/competition/%s/users", url.PathEscape(competitionID))

	body, err := c.do(ctx, "users", http.MethodGet, path, nil)
	if err != nil {
		return nil, fmt.Errorf("exchange: get users: %w", err)
	}

	var users []domain.UserInfo
	if err := json.Unmarshal(body, &users); err != nil {
		return nil, fmt.Errorf("exchange: decode users: %w", err)
	}
	return users, nil
}

// PlaceOrder submits a validated order. quantity must already be an integer;
// flooring a fractional entry is the order service's job, not the wire
// layer's.
func (c *Client) PlaceOrder(ctx context.Context, userID string, ticket domain.OrderTicket) (domain.OrderAck, error) {
	req := placeOrderRequest{
		CompetitionID: ticket.CompetitionID,
		UserID:        userID,
		Symbol:        ticket.Symbol,
		Side:          string(ticket.Side),
		Quantity:      ticket.Quantity.IntPart(),
		Price:         json.Number(ticket.Price.String()),
	}

	body, err := c.do(ctx, "place_order", http.MethodPost, "/order", req)
	if err != nil {
		return domain.OrderAck{}, fmt.Errorf("exchange: place order: %w", err)
	}

	var resp placeOrderResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return domain.OrderAck{}, fmt.Errorf("exchange: decode order ack: %w", err)
	}
	return domain.OrderAck{Status: resp.Status}, nil
}

// CancelOrder cancels a resting order by id.
func (c *Client) CancelOrder(ctx context.Context, competitionID, orderID string) error {
	path := fmt.Sprintf("/competition/%s/order/%s",
		url.PathEscape(competitionID), url.PathEscape(orderID))

	if _, err := c.do(ctx, "cancel_order", http.MethodDelete, path, nil); err != nil {
		return fmt.Errorf("exchange: cancel order %s: %w", orderID, err)
	}
	return nil
}

// JoinCompetition registers the current user as a participant.
func (c *Client) JoinCompetition(ctx context.Context, competitionID string) error {
	path := "/competition/join?competition_id=" + url.QueryEscape(competitionID)

	if _, err := c.do(ctx, "join", http.MethodPost, path, nil); err != nil {
		return fmt.Errorf("exchange: join competition: %w", err)
	}
	return nil
}

// --------------------------------------------------------------------------
// Internal helpers
// --------------------------------------------------------------------------

// do builds, authenticates, sends, and reads an HTTP request against the
// service.
func (c *Client) do(ctx context.Context, op, method, path string, reqBody any) ([]byte, error) {
	var bodyReader io.Reader
	if reqBody != nil {
		jsonBody, err := json.Marshal(reqBody)
		if err != nil {
			return nil, fmt.Errorf("marshal request body: %w", err)
		}
		bodyReader = bytes.NewReader(jsonBody)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, bodyReader)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	if reqBody != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")

	if token := c.tokens.Token(); token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		metrics.RequestsTotal.WithLabelValues(op, "network_error").Inc()
		return nil, fmt.Errorf("http request: %w", err)
	}
	defer resp.Body.Close()

	metrics.RequestsTotal.WithLabelValues(op, strconv.Itoa(resp.StatusCode)).Inc()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		var apiErr apiError
		_ = json.Unmarshal(respBody, &apiErr)
		return nil, domain.NewRequestError(resp.StatusCode, apiErr.text())
	}

	return respBody, nil
}
