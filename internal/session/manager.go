package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	go_json "github.com/goccy/go-json"
	"github.com/viiraa/healthsync/internal/analytics"
	"github.com/viiraa/healthsync/internal/client/supabase"
	"github.com/viiraa/healthsync/internal/credstore"
	"github.com/viiraa/healthsync/internal/xslog"
)

const credentialKey = "session"

var ErrNoSession = errors.New("no active session - please sign in")

// AuthAPI is the slice of the auth backend the manager needs.
type AuthAPI interface {
	SignInWithPassword(ctx context.Context, email, password string) (*supabase.Session, error)
	SignUp(ctx context.Context, email, password string) (*supabase.Session, error)
	Refresh(ctx context.Context, refreshToken string) (*supabase.Session, error)
	SignOut(ctx context.Context, accessToken string) error
}

type EventKind string

const (
	EventSignedIn  EventKind = "signed-in"
	EventRefreshed EventKind = "refreshed"
	EventSignedOut EventKind = "signed-out"
)

// Event is delivered to subscribers on every session change. Session is
// nil for EventSignedOut.
type Event struct {
	Kind    EventKind
	Session *Session
}

// Manager is the sole owner of the current session. Consumers get
// read-only copies through Current or subscription events.
type Manager struct {
	auth      AuthAPI
	store     credstore.Store
	collector analytics.Collector
	logger    *slog.Logger

	mu      sync.Mutex
	current *Session
	subs    map[int]chan Event
	nextSub int
}

func NewManager(auth AuthAPI, store credstore.Store, collector analytics.Collector, logger *slog.Logger) *Manager {
	return &Manager{
		auth:      auth,
		store:     store,
		collector: collector,
		logger:    logger,
		subs:      make(map[int]chan Event),
	}
}

// Subscribe returns a channel of session events and a cancel function.
// Events are dropped, not blocked on, if a subscriber falls behind.
func (m *Manager) Subscribe() (<-chan Event, func()) {
	m.mu.Lock()
	defer m.mu.Unlock()

	id := m.nextSub
	m.nextSub++

	ch := make(chan Event, 8)
	m.subs[id] = ch

	cancel := func() {
		m.mu.Lock()
		defer m.mu.Unlock()
		if _, ok := m.subs[id]; ok {
			delete(m.subs, id)
			close(ch)
		}
	}
	return ch, cancel
}

// Current returns the active session, or nil when signed out.
func (m *Manager) Current() *Session {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.current
}

func (m *Manager) SignInWithPassword(ctx context.Context, email, password string) (*Session, error) {
	ws, err := m.auth.SignInWithPassword(ctx, email, password)
	if err != nil {
		return nil, err
	}
	return m.adopt(ctx, fromWire(ws), EventSignedIn, "password"), nil
}

func (m *Manager) SignUp(ctx context.Context, email, password string) (*Session, error) {
	ws, err := m.auth.SignUp(ctx, email, password)
	if err != nil {
		return nil, err
	}
	return m.adopt(ctx, fromWire(ws), EventSignedIn, "signup"), nil
}

// AdoptWireSession installs a session obtained outside the manager, e.g.
// from the browser OAuth flow.
func (m *Manager) AdoptWireSession(ctx context.Context, ws *supabase.Session, method string) *Session {
	return m.adopt(ctx, fromWire(ws), EventSignedIn, method)
}

// Restore loads the persisted session on startup, refreshing it when
// expired. A session that can neither be used nor refreshed is cleared.
func (m *Manager) Restore(ctx context.Context) (*Session, error) {
	blob, err := m.store.Load(ctx, credentialKey)
	if errors.Is(err, credstore.ErrNotFound) {
		return nil, ErrNoSession
	}
	if err != nil {
		return nil, fmt.Errorf("loading persisted session: %w", err)
	}

	var s Session
	if err := go_json.Unmarshal(blob, &s); err != nil {
		m.logger.WarnContext(ctx, "discarding corrupt persisted session", xslog.Error(err))
		_ = m.store.Clear(ctx, credentialKey)
		return nil, ErrNoSession
	}

	if s.Valid() {
		return m.adopt(ctx, &s, EventSignedIn, "restore"), nil
	}

	if s.RefreshToken == "" {
		_ = m.store.Clear(ctx, credentialKey)
		return nil, ErrNoSession
	}

	ws, err := m.auth.Refresh(ctx, s.RefreshToken)
	if err != nil {
		m.logger.WarnContext(ctx, "failed to refresh persisted session", xslog.Error(err))
		_ = m.store.Clear(ctx, credentialKey)
		return nil, ErrNoSession
	}
	return m.adopt(ctx, fromWire(ws), EventSignedIn, "restore"), nil
}

// RefreshCurrent replaces the session with a freshly issued one for the
// same user. Subscribers see EventRefreshed, not EventSignedIn.
func (m *Manager) RefreshCurrent(ctx context.Context) (*Session, error) {
	m.mu.Lock()
	current := m.current
	m.mu.Unlock()

	if current == nil {
		return nil, ErrNoSession
	}

	ws, err := m.auth.Refresh(ctx, current.RefreshToken)
	if err != nil {
		return nil, fmt.Errorf("refreshing session: %w", err)
	}
	return m.adopt(ctx, fromWire(ws), EventRefreshed, ""), nil
}

func (m *Manager) SignOut(ctx context.Context) error {
	m.mu.Lock()
	current := m.current
	m.current = nil
	m.mu.Unlock()

	if err := m.store.Clear(ctx, credentialKey); err != nil {
		m.logger.WarnContext(ctx, "failed to clear persisted session", xslog.Error(err))
	}

	if current != nil {
		if err := m.auth.SignOut(ctx, current.AccessToken); err != nil {
			// Local state is already cleared; revocation failure only
			// shortens nothing, the token lapses on its own.
			m.logger.WarnContext(ctx, "remote sign-out failed", xslog.Error(err))
		}
	}

	m.collector.Track(ctx, "user_signed_out", nil)
	m.collector.Reset(ctx)
	m.publish(Event{Kind: EventSignedOut})
	return nil
}

func (m *Manager) adopt(ctx context.Context, s *Session, kind EventKind, method string) *Session {
	m.mu.Lock()
	m.current = s
	m.mu.Unlock()

	if blob, err := go_json.Marshal(s); err == nil {
		if err := m.store.Save(ctx, credentialKey, blob); err != nil {
			m.logger.WarnContext(ctx, "failed to persist session", xslog.Error(err))
		}
	}

	if kind == EventSignedIn {
		m.collector.Identify(ctx, s.User.ID, analytics.Properties{"email": s.User.Email})
		m.collector.Track(ctx, "user_signed_in", analytics.Properties{"method": method})
	}

	m.logger.InfoContext(ctx, "session adopted",
		xslog.UserID(s.User.ID),
		xslog.Status(string(kind)))

	m.publish(Event{Kind: kind, Session: s})
	return s
}

func (m *Manager) publish(e Event) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, ch := range m.subs {
		select {
		case ch <- e:
		default:
			m.logger.Warn("dropping session event for slow subscriber", xslog.Status(string(e.Kind)))
		}
	}
}
