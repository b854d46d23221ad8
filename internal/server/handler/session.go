package handler

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/barbosa7/bookdesk/internal/domain"
)

// LoginFlow is the slice of the auth service the session handler needs.
type LoginFlow interface {
	Login(ctx context.Context, username, password string) (domain.UserIdentity, error)
	Logout(ctx context.Context) error
}

// SessionReader exposes the currently held session for status responses.
type SessionReader interface {
	Authenticated() bool
	User() (domain.UserIdentity, bool)
}

// SessionHandler serves login, logout, and session status.
type SessionHandler struct {
	auth    LoginFlow
	session SessionReader
	logger  *slog.Logger
}

func NewSessionHandler(auth LoginFlow, session SessionReader, logger *slog.Logger) *SessionHandler {
	return &SessionHandler{
		auth:    auth,
		session: session,
		logger:  logHandler(logger, "session"),
	}
}

type loginBody struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// Login authenticates against the competition service and activates the
// desk session.
// POST /api/session/login
func (h *SessionHandler) Login(w http.ResponseWriter, r *http.Request) {
	var body loginBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if body.Username == "" || body.Password == "" {
		writeError(w, http.StatusBadRequest, "username and password are required")
		return
	}

	user, err := h.auth.Login(r.Context(), body.Username, body.Password)
	if err != nil {
		h.logger.WarnContext(r.Context(), "login failed",
			slog.String("username", body.Username),
			slog.String("error", err.Error()),
		)
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"user": user,
	})
}

// Logout drops the desk session.
// DELETE /api/session
func (h *SessionHandler) Logout(w http.ResponseWriter, r *http.Request) {
	if err := h.auth.Logout(r.Context()); err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "logged_out"})
}

// Status reports whether a session is held and for whom.
// GET /api/session
func (h *SessionHandler) Status(w http.ResponseWriter, r *http.Request) {
	if user, ok := h.session.User(); ok {
		writeJSON(w, http.StatusOK, map[string]any{
			"authenticated": true,
			"user":          user,
		})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"authenticated": false})
}
