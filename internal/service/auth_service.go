package service

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/barbosa7/bookdesk/internal/domain"
)

// Authenticator exchanges credentials for a bearer session.
type Authenticator interface {
	Login(ctx context.Context, username, password string) (domain.Session, error)
	JoinCompetition(ctx context.Context, competitionID string) error
}

// SessionStore is the write side of the session held by the desk.
type SessionStore interface {
	Set(ctx context.Context, sess domain.Session) error
	Clear(ctx context.Context) error
	Authenticated() bool
}

// AuthService drives the login and logout flows. Login authenticates against
// the competition service, stores the resulting session, and joins the
// configured competition so the account shows up in standings.
type AuthService struct {
	client        Authenticator
	sessions      SessionStore
	competitionID string
	logger        *slog.Logger
}

func NewAuthService(client Authenticator, sessions SessionStore, competitionID string, logger *slog.Logger) *AuthService {
	return &AuthService{
		client:        client,
		sessions:      sessions,
		competitionID: competitionID,
		logger:        logger.With(slog.String("component", "auth_service")),
	}
}

// Login authenticates and activates the session. Joining the competition is
// best-effort: an already-joined account answers with a conflict, which is
// not a failure.
func (s *AuthService) Login(ctx context.Context, username, password string) (domain.UserIdentity, error) {
	sess, err := s.client.Login(ctx, username, password)
	if err != nil {
		return domain.UserIdentity{}, fmt.Errorf("login: %w", err)
	}
	if err := s.sessions.Set(ctx, sess); err != nil {
		return domain.UserIdentity{}, fmt.Errorf("store session: %w", err)
	}

	if s.competitionID != "" {
		if err := s.client.JoinCompetition(ctx, s.competitionID); err != nil {
			s.logger.WarnContext(ctx, "competition join failed",
				slog.String("competition_id", s.competitionID),
				slog.String("error", err.Error()),
			)
		}
	}

	s.logger.InfoContext(ctx, "logged in", slog.String("username", sess.User.Username))
	return sess.User, nil
}

// Logout drops the session. It is safe to call when no session is held.
func (s *AuthService) Logout(ctx context.Context) error {
	if !s.sessions.Authenticated() {
		return nil
	}
	if err := s.sessions.Clear(ctx); err != nil {
		return fmt.Errorf("clear session: %w", err)
	}
	s.logger.InfoContext(ctx, "logged out")
	return nil
}
