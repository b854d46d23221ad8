// Package session owns the authenticated identity and bearer credential.
// The Store is the single writer; every other component only reads it.
package session

import (
	"context"
	"log/slog"
	"sync"

	"github.com/barbosa7/bookdesk/internal/domain"
)

// Vault persists a session across client restarts.
type Vault interface {
	Save(sess domain.Session) error
	Load() (domain.Session, bool, error)
	Clear() error
}

// Store holds the current session. Writes happen only through Set, Clear, and
// Invalidate; each write bumps the epoch so results fetched under a previous
// credential can be recognised and discarded.
type Store struct {
	mu     sync.RWMutex
	sess   domain.Session
	active bool
	epoch  uint64

	vault  Vault
	bus    domain.SignalBus
	logger *slog.Logger
}

// New creates a Store. vault and bus may be nil; persistence and session
// events are then disabled.
func New(vault Vault, bus domain.SignalBus, logger *slog.Logger) *Store {
	return &Store{
		vault:  vault,
		bus:    bus,
		logger: logger.With(slog.String("component", "session")),
	}
}

// Restore loads a previously persisted session from the vault, if any.
// Called once at startup, before any poller starts.
func (s *Store) Restore() error {
	if s.vault == nil {
		return nil
	}
	sess, ok, err := s.vault.Load()
	if err != nil {
		return err
	}
	if !ok {
		return nil
	}

	s.mu.Lock()
	s.sess = sess
	s.active = true
	s.epoch++
	s.mu.Unlock()

	s.logger.Info("session restored",
		slog.String("user_id", sess.User.ID),
	)
	return nil
}

// Set installs a new session after a successful login and persists it.
func (s *Store) Set(ctx context.Context, sess domain.Session) error {
	s.mu.Lock()
	s.sess = sess
	s.active = true
	s.epoch++
	s.mu.Unlock()

	s.logger.Info("session established", slog.String("user_id", sess.User.ID))
	s.publish(ctx, `{"event":"login","user_id":"`+sess.User.ID+`"}`)

	if s.vault != nil {
		if err := s.vault.Save(sess); err != nil {
			return err
		}
	}
	return nil
}

// Clear destroys the session on explicit logout.
func (s *Store) Clear(ctx context.Context) error {
	s.drop(ctx, "logout")
	if s.vault != nil {
		return s.vault.Clear()
	}
	return nil
}

// Invalidate destroys the session because the service rejected the
// credential. It is idempotent: a second rejection arriving from another
// view's in-flight request is a no-op.
func (s *Store) Invalidate(ctx context.Context, reason string) {
	s.mu.RLock()
	active := s.active
	s.mu.RUnlock()
	if !active {
		return
	}

	s.logger.Warn("session invalidated", slog.String("reason", reason))
	s.drop(ctx, "expired")
	if s.vault != nil {
		if err := s.vault.Clear(); err != nil {
			s.logger.Warn("vault clear failed", slog.String("error", err.Error()))
		}
	}
}

func (s *Store) drop(ctx context.Context, event string) {
	s.mu.Lock()
	s.sess = domain.Session{}
	s.active = false
	s.epoch++
	s.mu.Unlock()

	s.publish(ctx, `{"event":"`+event+`"}`)
}

func (s *Store) publish(ctx context.Context, payload string) {
	if s.bus == nil {
		return
	}
	if err := s.bus.Publish(ctx, domain.ChannelSession, []byte(payload)); err != nil {
		s.logger.Warn("session event publish failed", slog.String("error", err.Error()))
	}
}

// Authenticated reports whether a session is currently held.
func (s *Store) Authenticated() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.active
}

// User returns the current identity; ok is false when logged out.
func (s *Store) User() (domain.UserIdentity, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.sess.User, s.active
}

// Token returns the bearer credential, or "" when no session is held. An
// empty token means requests go out unauthenticated and the service rejects
// them; the call itself must not fail.
func (s *Store) Token() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.active {
		return ""
	}
	return s.sess.Token
}

// Epoch returns the session generation. A view captures the epoch before a
// fetch and discards the result if the epoch moved while the request was in
// flight.
func (s *Store) Epoch() uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.epoch
}
