package bridge

import (
	"strings"
	"testing"
	"time"

	"github.com/viiraa/healthsync/internal/session"
)

func TestStorageKeyForURL(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		url     string
		want    string
		wantErr bool
	}{
		{name: "hosted project", url: "https://abcdefgh.supabase.co", want: "sb-abcdefgh-auth-token"},
		{name: "custom domain", url: "https://auth.viiraa.com/auth/v1", want: "sb-auth-auth-token"},
		{name: "no host", url: "not-a-url", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got, err := StorageKeyForURL(tt.url)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("StorageKeyForURL(%q) error = nil, want error", tt.url)
				}
				return
			}
			if err != nil {
				t.Fatalf("StorageKeyForURL(%q) error = %v", tt.url, err)
			}
			if got != tt.want {
				t.Errorf("StorageKeyForURL(%q) = %q, want %q", tt.url, got, tt.want)
			}
		})
	}
}

func TestSessionScriptEscapesQuotes(t *testing.T) {
	t.Parallel()

	s := &session.Session{
		AccessToken: "token'with'quotes",
		ExpiresIn:   3600,
		TokenType:   "bearer",
		User:        session.User{ID: "user-a", Email: "o'brien@example.com"},
		IssuedAt:    time.Now(),
	}

	script, err := sessionScript("sb-ref-auth-token", s)
	if err != nil {
		t.Fatalf("sessionScript() error = %v", err)
	}

	if strings.Contains(script, "token'with'quotes") {
		t.Error("unescaped single quotes in script")
	}
	if !strings.Contains(script, `token\'with\'quotes`) {
		t.Error("escaped token not present in script")
	}
}

func TestSessionScriptShape(t *testing.T) {
	t.Parallel()

	s := &session.Session{
		AccessToken:  "access",
		RefreshToken: "refresh",
		ExpiresIn:    3600,
		TokenType:    "bearer",
		User:         session.User{ID: "user-a", Email: "a@example.com", CreatedAt: time.Now()},
		IssuedAt:     time.Now(),
	}

	script, err := sessionScript("sb-ref-auth-token", s)
	if err != nil {
		t.Fatalf("sessionScript() error = %v", err)
	}

	for _, want := range []string{
		"sb-ref-auth-token",
		`"aud":"authenticated"`,
		`"role":"authenticated"`,
		`"expires_at":`,
		AuthReadyEvent,
		"StorageEvent",
		"localStorage.setItem",
	} {
		if !strings.Contains(script, want) {
			t.Errorf("script missing %q", want)
		}
	}
}
