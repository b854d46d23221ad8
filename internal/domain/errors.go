package domain

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	ErrNotFound     = errors.New("not found")
	ErrUnauthorized = errors.New("unauthorized")
	ErrRateLimited  = errors.New("rate limited")
	ErrRejected     = errors.New("rejected by service")
	ErrInvalidOrder = errors.New("invalid order parameters")
	ErrNoSession    = errors.New("no active session")
)

// RequestError is the failure type returned by the exchange client for any
// non-2xx response. It wraps one of the sentinel errors above so callers can
// branch with errors.Is while still seeing the service's own message.
type RequestError struct {
	Status  int
	Message string
	kind    error
}

// NewRequestError maps an HTTP status code and service message to a
// RequestError carrying the matching sentinel.
func NewRequestError(status int, message string) *RequestError {
	var kind error
	switch status {
	case http.StatusUnauthorized, http.StatusForbidden:
		kind = ErrUnauthorized
	case http.StatusNotFound:
		kind = ErrNotFound
	case http.StatusTooManyRequests:
		kind = ErrRateLimited
	case http.StatusBadRequest, http.StatusConflict, http.StatusUnprocessableEntity:
		kind = ErrRejected
	}
	return &RequestError{Status: status, Message: message, kind: kind}
}

func (e *RequestError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("HTTP %d", e.Status)
	}
	return fmt.Sprintf("HTTP %d: %s", e.Status, e.Message)
}

// Unwrap exposes the sentinel classification, if any.
func (e *RequestError) Unwrap() error {
	return e.kind
}

// IsAuthError reports whether err is a credential rejection (401/403). This is
// the one failure class that must escape the view boundary and invalidate the
// session rather than stay view-local.
func IsAuthError(err error) bool {
	return errors.Is(err, ErrUnauthorized)
}
