package session

import (
	"context"
	"log/slog"
	"path/filepath"
	"testing"

	"github.com/barbosa7/bookdesk/internal/domain"
)

func testLogger() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}

func testSession() domain.Session {
	return domain.Session{
		User:  domain.UserIdentity{ID: "alice", Username: "alice"},
		Token: "tok-123",
	}
}

func TestStore_LoginLogoutLifecycle(t *testing.T) {
	ctx := context.Background()
	s := New(nil, nil, testLogger())

	if s.Authenticated() {
		t.Fatal("fresh store must not be authenticated")
	}
	if s.Token() != "" {
		t.Fatal("fresh store must have empty token")
	}

	if err := s.Set(ctx, testSession()); err != nil {
		t.Fatalf("Set: %v", err)
	}
	if !s.Authenticated() {
		t.Error("store must be authenticated after Set")
	}
	if s.Token() != "tok-123" {
		t.Errorf("expected token tok-123, got %q", s.Token())
	}
	user, ok := s.User()
	if !ok || user.ID != "alice" {
		t.Errorf("expected user alice, got %+v (ok=%v)", user, ok)
	}

	if err := s.Clear(ctx); err != nil {
		t.Fatalf("Clear: %v", err)
	}
	if s.Authenticated() || s.Token() != "" {
		t.Error("store must be empty after Clear")
	}
}

func TestStore_EpochBumpsOnEveryWrite(t *testing.T) {
	ctx := context.Background()
	s := New(nil, nil, testLogger())

	e0 := s.Epoch()
	_ = s.Set(ctx, testSession())
	e1 := s.Epoch()
	if e1 <= e0 {
		t.Errorf("epoch must increase on login: %d -> %d", e0, e1)
	}

	_ = s.Clear(ctx)
	e2 := s.Epoch()
	if e2 <= e1 {
		t.Errorf("epoch must increase on logout: %d -> %d", e1, e2)
	}
}

func TestStore_InvalidateIsIdempotent(t *testing.T) {
	ctx := context.Background()
	s := New(nil, nil, testLogger())
	_ = s.Set(ctx, testSession())

	s.Invalidate(ctx, "401 from leaderboard")
	e1 := s.Epoch()
	if s.Authenticated() {
		t.Error("store must not be authenticated after Invalidate")
	}

	// A second rejection from another in-flight view must be a no-op.
	s.Invalidate(ctx, "401 from order book")
	if s.Epoch() != e1 {
		t.Errorf("repeated Invalidate must not bump epoch: %d -> %d", e1, s.Epoch())
	}
}

func TestFileVault_RoundTripPlaintext(t *testing.T) {
	v := NewFileVault(filepath.Join(t.TempDir(), "session.json"), "")

	if _, ok, err := v.Load(); err != nil || ok {
		t.Fatalf("empty vault: ok=%v err=%v", ok, err)
	}

	if err := v.Save(testSession()); err != nil {
		t.Fatalf("Save: %v", err)
	}
	sess, ok, err := v.Load()
	if err != nil || !ok {
		t.Fatalf("Load: ok=%v err=%v", ok, err)
	}
	if sess.Token != "tok-123" || sess.User.ID != "alice" {
		t.Errorf("round trip mismatch: %+v", sess)
	}

	if err := v.Clear(); err != nil {
		t.Fatalf("Clear: %v", err)
	}
	if _, ok, _ := v.Load(); ok {
		t.Error("vault must be empty after Clear")
	}
	if err := v.Clear(); err != nil {
		t.Errorf("clearing an empty vault must not fail: %v", err)
	}
}

func TestFileVault_RoundTripEncrypted(t *testing.T) {
	path := filepath.Join(t.TempDir(), "session.json")
	v := NewFileVault(path, "hunter2")

	if err := v.Save(testSession()); err != nil {
		t.Fatalf("Save: %v", err)
	}

	sess, ok, err := v.Load()
	if err != nil || !ok {
		t.Fatalf("Load: ok=%v err=%v", ok, err)
	}
	if sess.Token != "tok-123" {
		t.Errorf("round trip mismatch: %+v", sess)
	}

	// The wrong password must not yield a session.
	wrong := NewFileVault(path, "not-hunter2")
	if _, _, err := wrong.Load(); err == nil {
		t.Error("expected decryption failure with wrong password")
	}
}

func TestStore_RestoreFromVault(t *testing.T) {
	path := filepath.Join(t.TempDir(), "session.json")
	v := NewFileVault(path, "")
	if err := v.Save(testSession()); err != nil {
		t.Fatalf("Save: %v", err)
	}

	s := New(v, nil, testLogger())
	if err := s.Restore(); err != nil {
		t.Fatalf("Restore: %v", err)
	}
	if !s.Authenticated() || s.Token() != "tok-123" {
		t.Error("restored store must hold the persisted session")
	}
}
