package session

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	go_json "github.com/goccy/go-json"
	"github.com/viiraa/healthsync/internal/analytics"
	"github.com/viiraa/healthsync/internal/client/supabase"
	"github.com/viiraa/healthsync/internal/credstore"
)

type fakeAuth struct {
	session    *supabase.Session
	refreshErr error
	signOutErr error

	refreshCalls int
	signOutCalls int
}

func (f *fakeAuth) SignInWithPassword(context.Context, string, string) (*supabase.Session, error) {
	return f.session, nil
}

func (f *fakeAuth) SignUp(context.Context, string, string) (*supabase.Session, error) {
	return f.session, nil
}

func (f *fakeAuth) Refresh(context.Context, string) (*supabase.Session, error) {
	f.refreshCalls++
	if f.refreshErr != nil {
		return nil, f.refreshErr
	}
	return f.session, nil
}

func (f *fakeAuth) SignOut(context.Context, string) error {
	f.signOutCalls++
	return f.signOutErr
}

func wireSession(userID string) *supabase.Session {
	return &supabase.Session{
		AccessToken:  "at-" + userID,
		RefreshToken: "rt-" + userID,
		ExpiresIn:    3600,
		TokenType:    "bearer",
		User:         supabase.User{ID: userID, Email: userID + "@example.com"},
	}
}

func newTestManager(auth AuthAPI) (*Manager, *credstore.Memory, *analytics.Recorder) {
	store := credstore.NewMemory()
	recorder := analytics.NewRecorder()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewManager(auth, store, recorder, logger), store, recorder
}

func TestSignInPersistsAndNotifies(t *testing.T) {
	t.Parallel()

	auth := &fakeAuth{session: wireSession("u1")}
	m, store, recorder := newTestManager(auth)

	events, cancel := m.Subscribe()
	defer cancel()

	ctx := context.Background()
	s, err := m.SignInWithPassword(ctx, "u1@example.com", "pw")
	if err != nil {
		t.Fatalf("SignInWithPassword() error = %v", err)
	}
	if s.User.ID != "u1" {
		t.Errorf("User.ID = %q, want u1", s.User.ID)
	}

	select {
	case e := <-events:
		if e.Kind != EventSignedIn {
			t.Errorf("event kind = %q, want signed-in", e.Kind)
		}
		if e.Session == nil || e.Session.User.ID != "u1" {
			t.Errorf("event session = %+v, want user u1", e.Session)
		}
	case <-time.After(time.Second):
		t.Fatal("no event received")
	}

	blob, err := store.Load(ctx, credentialKey)
	if err != nil {
		t.Fatalf("persisted session missing: %v", err)
	}
	var persisted Session
	if err := go_json.Unmarshal(blob, &persisted); err != nil {
		t.Fatalf("persisted session corrupt: %v", err)
	}
	if persisted.User.ID != "u1" {
		t.Errorf("persisted User.ID = %q, want u1", persisted.User.ID)
	}

	if recorder.Identified() != "u1" {
		t.Errorf("Identified() = %q, want u1", recorder.Identified())
	}
}

func TestRestoreRefreshesExpired(t *testing.T) {
	t.Parallel()

	auth := &fakeAuth{session: wireSession("u1")}
	m, store, _ := newTestManager(auth)

	ctx := context.Background()
	expired := Session{
		AccessToken:  "stale",
		RefreshToken: "rt-old",
		ExpiresIn:    3600,
		TokenType:    "bearer",
		User:         User{ID: "u1"},
		IssuedAt:     time.Now().Add(-2 * time.Hour),
	}
	blob, _ := go_json.Marshal(expired)
	if err := store.Save(ctx, credentialKey, blob); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	s, err := m.Restore(ctx)
	if err != nil {
		t.Fatalf("Restore() error = %v", err)
	}
	if auth.refreshCalls != 1 {
		t.Errorf("refresh calls = %d, want 1", auth.refreshCalls)
	}
	if s.AccessToken != "at-u1" {
		t.Errorf("AccessToken = %q, want refreshed at-u1", s.AccessToken)
	}
}

func TestRestoreClearsUnrefreshable(t *testing.T) {
	t.Parallel()

	auth := &fakeAuth{session: wireSession("u1"), refreshErr: errors.New("revoked")}
	m, store, _ := newTestManager(auth)

	ctx := context.Background()
	expired := Session{
		AccessToken:  "stale",
		RefreshToken: "rt-old",
		ExpiresIn:    60,
		User:         User{ID: "u1"},
		IssuedAt:     time.Now().Add(-time.Hour),
	}
	blob, _ := go_json.Marshal(expired)
	_ = store.Save(ctx, credentialKey, blob)

	if _, err := m.Restore(ctx); !errors.Is(err, ErrNoSession) {
		t.Fatalf("Restore() error = %v, want ErrNoSession", err)
	}
	if _, err := store.Load(ctx, credentialKey); !errors.Is(err, credstore.ErrNotFound) {
		t.Errorf("persisted session not cleared, err = %v", err)
	}
}

func TestSignOutClearsState(t *testing.T) {
	t.Parallel()

	auth := &fakeAuth{session: wireSession("u1")}
	m, store, _ := newTestManager(auth)

	ctx := context.Background()
	if _, err := m.SignInWithPassword(ctx, "u1@example.com", "pw"); err != nil {
		t.Fatalf("SignInWithPassword() error = %v", err)
	}

	events, cancel := m.Subscribe()
	defer cancel()

	if err := m.SignOut(ctx); err != nil {
		t.Fatalf("SignOut() error = %v", err)
	}

	if m.Current() != nil {
		t.Error("Current() != nil after sign-out")
	}
	if _, err := store.Load(ctx, credentialKey); !errors.Is(err, credstore.ErrNotFound) {
		t.Errorf("credential not cleared, err = %v", err)
	}
	if auth.signOutCalls != 1 {
		t.Errorf("remote sign-out calls = %d, want 1", auth.signOutCalls)
	}

	select {
	case e := <-events:
		if e.Kind != EventSignedOut {
			t.Errorf("event kind = %q, want signed-out", e.Kind)
		}
		if e.Session != nil {
			t.Error("signed-out event carries a session")
		}
	case <-time.After(time.Second):
		t.Fatal("no sign-out event received")
	}
}

func TestRefreshCurrentEmitsRefreshed(t *testing.T) {
	t.Parallel()

	auth := &fakeAuth{session: wireSession("u1")}
	m, _, _ := newTestManager(auth)

	ctx := context.Background()
	if _, err := m.SignInWithPassword(ctx, "u1@example.com", "pw"); err != nil {
		t.Fatalf("SignInWithPassword() error = %v", err)
	}

	events, cancel := m.Subscribe()
	defer cancel()

	if _, err := m.RefreshCurrent(ctx); err != nil {
		t.Fatalf("RefreshCurrent() error = %v", err)
	}

	select {
	case e := <-events:
		if e.Kind != EventRefreshed {
			t.Errorf("event kind = %q, want refreshed", e.Kind)
		}
	case <-time.After(time.Second):
		t.Fatal("no refresh event received")
	}
}
