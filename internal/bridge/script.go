package bridge

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	go_json "github.com/goccy/go-json"

	"github.com/viiraa/healthsync/internal/session"
)

// ProtocolVersion tags the handshake payload so the dashboard can
// reject injections from an incompatible host. Bump on any change to
// the injected session shape or event contract.
const ProtocolVersion = 1

const (
	// AuthReadyEvent is dispatched after the session lands in storage.
	AuthReadyEvent = "native-auth-ready"

	// HealthDataReadyEvent is dispatched when a vitals snapshot is
	// pushed into the page.
	HealthDataReadyEvent = "native-health-data-ready"
)

// StorageKeyForURL derives the dashboard's session storage key from the
// auth backend URL. The web client keeps its session under
// "sb-<project-ref>-auth-token" where the project ref is the first host
// label.
func StorageKeyForURL(supabaseURL string) (string, error) {
	u, err := url.Parse(supabaseURL)
	if err != nil {
		return "", fmt.Errorf("parsing auth url: %w", err)
	}
	host := u.Hostname()
	if host == "" {
		return "", fmt.Errorf("auth url %q has no host", supabaseURL)
	}
	ref, _, _ := strings.Cut(host, ".")
	return "sb-" + ref + "-auth-token", nil
}

// webSession is the storage shape the dashboard's auth client expects.
// It mirrors another system's schema, which makes it a compatibility
// risk: any upstream change to that schema breaks the handshake.
type webSession struct {
	AccessToken  string  `json:"access_token"`
	RefreshToken string  `json:"refresh_token"`
	ExpiresIn    int     `json:"expires_in"`
	ExpiresAt    int64   `json:"expires_at"`
	TokenType    string  `json:"token_type"`
	User         webUser `json:"user"`
}

type webUser struct {
	ID               string         `json:"id"`
	Email            string         `json:"email"`
	Aud              string         `json:"aud"`
	Role             string         `json:"role"`
	EmailConfirmedAt *time.Time     `json:"email_confirmed_at"`
	AppMetadata      map[string]any `json:"app_metadata"`
	UserMetadata     map[string]any `json:"user_metadata"`
}

func toWebSession(s *session.Session) webSession {
	var confirmed *time.Time
	if !s.User.CreatedAt.IsZero() {
		t := s.User.CreatedAt
		confirmed = &t
	}
	return webSession{
		AccessToken:  s.AccessToken,
		RefreshToken: s.RefreshToken,
		ExpiresIn:    s.ExpiresIn,
		ExpiresAt:    s.ExpiresAt().Unix(),
		TokenType:    s.TokenType,
		User: webUser{
			ID:               s.User.ID,
			Email:            s.User.Email,
			Aud:              "authenticated",
			Role:             "authenticated",
			EmailConfirmedAt: confirmed,
			AppMetadata:      map[string]any{"provider": "email", "providers": []string{"email"}},
			UserMetadata:     map[string]any{},
		},
	}
}

// escapeForSingleQuotes makes a string safe to interpolate into a
// single-quoted JS literal.
func escapeForSingleQuotes(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	s = strings.ReplaceAll(s, `'`, `\'`)
	s = strings.ReplaceAll(s, "\n", `\n`)
	return s
}

// sessionScript seeds the page's storage with the session, sets the
// natively-authenticated flags, and replays both the custom handshake
// event and a storage event so framework auth listeners react without
// polling.
func sessionScript(storageKey string, s *session.Session) (string, error) {
	encoded, err := go_json.Marshal(toWebSession(s))
	if err != nil {
		return "", fmt.Errorf("encoding web session: %w", err)
	}

	key := escapeForSingleQuotes(storageKey)
	payload := escapeForSingleQuotes(string(encoded))

	return fmt.Sprintf(`(function() {
	var key = '%s';
	var raw = '%s';
	try {
		window.localStorage.setItem(key, raw);
	} catch (e) {
		console.warn('native auth storage write failed', e);
	}
	var session = JSON.parse(raw);
	window.__nativeAuth = { authenticated: true, version: %d, userId: session.user.id };
	window.dispatchEvent(new CustomEvent('%s', {
		detail: { session: session, authenticated: true, source: 'native', version: %d }
	}));
	window.dispatchEvent(new StorageEvent('storage', {
		key: key,
		newValue: raw,
		storageArea: window.localStorage
	}));
})();`, key, payload, ProtocolVersion, AuthReadyEvent, ProtocolVersion), nil
}

// healthDataScript pushes a JSON vitals snapshot into the page.
func healthDataScript(summaryJSON []byte) string {
	payload := escapeForSingleQuotes(string(summaryJSON))
	return fmt.Sprintf(`(function() {
	var data = JSON.parse('%s');
	window.__nativeHealthData = data;
	window.dispatchEvent(new CustomEvent('%s', {
		detail: { data: data, source: 'native', version: %d }
	}));
})();`, payload, HealthDataReadyEvent, ProtocolVersion)
}

// clearSessionScript removes the injected session on sign-out.
func clearSessionScript(storageKey string) string {
	key := escapeForSingleQuotes(storageKey)
	return fmt.Sprintf(`(function() {
	try {
		window.localStorage.removeItem('%s');
	} catch (e) {}
	window.__nativeAuth = { authenticated: false, version: %d };
})();`, key, ProtocolVersion)
}
