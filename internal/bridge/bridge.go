// Package bridge makes the hosted web dashboard trust the local
// session without a second login. It injects the session into the
// page's storage exactly once per (navigation, user) pair, guarded so
// the page's own reaction to the injection can never trigger an
// injection loop.
package bridge

import (
	"context"
	"log/slog"
	"sync"

	"github.com/viiraa/healthsync/internal/analytics"
	"github.com/viiraa/healthsync/internal/healthstore"
	"github.com/viiraa/healthsync/internal/session"
	"github.com/viiraa/healthsync/internal/xslog"
)

// Surface is an embedded web content instance that can run script.
type Surface interface {
	ID() string
	Evaluate(ctx context.Context, script string) error
}

// SessionControl is the slice of the session manager the bridge needs.
type SessionControl interface {
	Current() *session.Session
	SignOut(ctx context.Context) error
}

// HealthDataProvider assembles the vitals snapshot pushed to the page.
type HealthDataProvider interface {
	Summary(ctx context.Context) (healthstore.HealthSummary, error)
}

// PermissionRequester prompts for health-store access.
type PermissionRequester interface {
	RequestPermissions(ctx context.Context) error
}

// marker tracks what this surface has already received. It lives only
// as long as the surface; a new surface starts clean.
type marker struct {
	lastInjectedUserID string
	postLoadInjected   bool
}

type Bridge struct {
	surface     Surface
	control     SessionControl
	health      HealthDataProvider
	permissions PermissionRequester
	collector   analytics.Collector
	navigation  NavigationPolicy
	storageKey  string
	logger      *slog.Logger

	mu     sync.Mutex
	marker marker
}

type Config struct {
	Surface     Surface
	Sessions    SessionControl
	Health      HealthDataProvider
	Permissions PermissionRequester
	Collector   analytics.Collector
	Navigation  NavigationPolicy

	// StorageKey is the dashboard's session storage key, derived from
	// the auth backend URL via StorageKeyForURL.
	StorageKey string

	Logger *slog.Logger
}

func New(cfg Config) *Bridge {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Bridge{
		surface:     cfg.Surface,
		control:     cfg.Sessions,
		health:      cfg.Health,
		permissions: cfg.Permissions,
		collector:   cfg.Collector,
		navigation:  cfg.Navigation,
		storageKey:  cfg.StorageKey,
		logger:      logger,
	}
}

// Attach performs the document-start injection for a fresh surface. A
// missing session is not an error; the caller shows a sign-in
// affordance instead of the page.
func (b *Bridge) Attach(ctx context.Context) {
	current := b.control.Current()
	if current == nil {
		return
	}
	b.inject(ctx, current, "attach")
}

// NavigationStarted marks the beginning of a page load, re-arming the
// post-load injection for it.
func (b *Bridge) NavigationStarted() {
	b.mu.Lock()
	b.marker.postLoadInjected = false
	b.mu.Unlock()
}

// NavigationFinished runs the post-load injection, at most once per
// load no matter how many completion callbacks fire. The guard exists
// because the page reacts to the injected event by re-rendering, which
// on some loads fires completion again; without it the two sides chase
// each other forever.
func (b *Bridge) NavigationFinished(ctx context.Context) {
	current := b.control.Current()
	if current == nil {
		return
	}

	b.mu.Lock()
	if b.marker.postLoadInjected {
		b.mu.Unlock()
		return
	}
	b.marker.postLoadInjected = true
	b.mu.Unlock()

	b.inject(ctx, current, "navigation-finished")
}

// SetSession reacts to a session replacement. A refresh for the same
// user changes nothing on the page and is skipped; only a different
// user id forces a re-injection. A nil session clears the injected
// state.
func (b *Bridge) SetSession(ctx context.Context, current *session.Session) {
	if current == nil {
		b.mu.Lock()
		b.marker = marker{}
		b.mu.Unlock()
		b.evaluate(ctx, clearSessionScript(b.storageKey), "clear")
		return
	}

	b.mu.Lock()
	same := b.marker.lastInjectedUserID == current.User.ID
	b.mu.Unlock()
	if same {
		return
	}
	b.inject(ctx, current, "user-change")
}

// inject evaluates the session script. Evaluation errors are logged
// only; the worst case is the page falls back to its own login flow.
func (b *Bridge) inject(ctx context.Context, current *session.Session, reason string) {
	script, err := sessionScript(b.storageKey, current)
	if err != nil {
		b.logger.Error("building session script", xslog.Error(err))
		return
	}
	if b.evaluate(ctx, script, reason) {
		b.mu.Lock()
		b.marker.lastInjectedUserID = current.User.ID
		b.mu.Unlock()
	}
}

func (b *Bridge) evaluate(ctx context.Context, script string, reason string) bool {
	if err := b.surface.Evaluate(ctx, script); err != nil {
		b.logger.Warn("script evaluation failed",
			xslog.SurfaceID(b.surface.ID()),
			xslog.Status(reason),
			xslog.Error(err),
		)
		return false
	}
	b.logger.Debug("script injected",
		xslog.SurfaceID(b.surface.ID()),
		xslog.Status(reason),
	)
	return true
}

// DecideNavigation applies the navigation policy to an outbound target.
func (b *Bridge) DecideNavigation(rawURL string) Decision {
	if b.navigation == nil {
		return DecisionInPlace
	}
	return b.navigation.Decide(rawURL)
}

// pushHealthData injects the latest vitals snapshot into the page.
func (b *Bridge) pushHealthData(ctx context.Context) {
	summary, err := b.health.Summary(ctx)
	if err != nil {
		b.logger.Warn("health summary unavailable", xslog.Error(err))
		return
	}
	encoded, err := summary.ToJSON()
	if err != nil {
		b.logger.Error("encoding health summary", xslog.Error(err))
		return
	}
	b.evaluate(ctx, healthDataScript(encoded), "health-data")
}
