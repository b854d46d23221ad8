package exchange

import "encoding/json"

// Wire types for the competition REST API. Prices travel as JSON numbers; the
// service side is strict about that, so outbound payloads use json.Number
// rather than the quoted form decimals marshal to by default.

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type loginResponse struct {
	AccessToken string `json:"access_token"`
	User        struct {
		ID       string `json:"id"`
		Username string `json:"username"`
	} `json:"user"`
}

type placeOrderRequest struct {
	CompetitionID string      `json:"competition_id"`
	UserID        string      `json:"user_id"`
	Symbol        string      `json:"symbol"`
	Side          string      `json:"side"`
	Quantity      int64       `json:"quantity"`
	Price         json.Number `json:"price"`
}

type placeOrderResponse struct {
	Status string `json:"status"`
	Trades int    `json:"trades"`
}

// apiError is the error envelope; FastAPI-style services use "detail",
// others "error" or "message".
type apiError struct {
	Detail  string `json:"detail"`
	Error   string `json:"error"`
	Message string `json:"message"`
}

func (e apiError) text() string {
	switch {
	case e.Detail != "":
		return e.Detail
	case e.Error != "":
		return e.Error
	default:
		return e.Message
	}
}
