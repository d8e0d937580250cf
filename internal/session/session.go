// Package session owns the authenticated session for the app: the token
// bundle, its persistence, and change notification for downstream
// consumers (connector, dashboard bridge).
package session

import (
	"time"

	"github.com/viiraa/healthsync/internal/client/supabase"
)

// Session is an immutable value; it is replaced wholesale on refresh or
// re-authentication and destroyed on sign-out.
type Session struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	ExpiresIn    int    `json:"expires_in"`
	TokenType    string `json:"token_type"`
	User         User   `json:"user"`

	// IssuedAt anchors ExpiresIn; set when the session is received.
	IssuedAt time.Time `json:"issued_at"`
}

type User struct {
	ID           string     `json:"id"`
	Email        string     `json:"email"`
	CreatedAt    time.Time  `json:"created_at"`
	LastSignInAt *time.Time `json:"last_sign_in_at"`
}

func (s *Session) ExpiresAt() time.Time {
	return s.IssuedAt.Add(time.Duration(s.ExpiresIn) * time.Second)
}

// Valid reports whether the access token is still usable, with a small
// margin so a token is refreshed before it actually lapses.
func (s *Session) Valid() bool {
	const margin = 30 * time.Second
	return s.AccessToken != "" && time.Now().Add(margin).Before(s.ExpiresAt())
}

func fromWire(ws *supabase.Session) *Session {
	return &Session{
		AccessToken:  ws.AccessToken,
		RefreshToken: ws.RefreshToken,
		ExpiresIn:    ws.ExpiresIn,
		TokenType:    ws.TokenType,
		User: User{
			ID:           ws.User.ID,
			Email:        ws.User.Email,
			CreatedAt:    ws.User.CreatedAt,
			LastSignInAt: ws.User.LastSignInAt,
		},
		IssuedAt: time.Now(),
	}
}
