package supabase

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
)

const sessionBody = `{
	"access_token": "at-1",
	"refresh_token": "rt-1",
	"expires_in": 3600,
	"token_type": "bearer",
	"user": {
		"id": "user-1",
		"email": "a@example.com",
		"created_at": "2025-01-02T03:04:05Z",
		"last_sign_in_at": "2025-06-07T08:09:10Z"
	}
}`

func wantSession() *Session {
	last := time.Date(2025, 6, 7, 8, 9, 10, 0, time.UTC)
	return &Session{
		AccessToken:  "at-1",
		RefreshToken: "rt-1",
		ExpiresIn:    3600,
		TokenType:    "bearer",
		User: User{
			ID:           "user-1",
			Email:        "a@example.com",
			CreatedAt:    time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC),
			LastSignInAt: &last,
		},
	}
}

func TestSignInWithPassword(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/auth/v1/token" {
			t.Errorf("path = %q, want /auth/v1/token", r.URL.Path)
		}
		if got := r.URL.Query().Get("grant_type"); got != "password" {
			t.Errorf("grant_type = %q, want password", got)
		}
		if got := r.Header.Get("apikey"); got != "anon-key" {
			t.Errorf("apikey header = %q, want anon-key", got)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(sessionBody))
	}))
	defer srv.Close()

	client := New(srv.URL, "anon-key")
	session, err := client.SignInWithPassword(context.Background(), "a@example.com", "pw")
	if err != nil {
		t.Fatalf("SignInWithPassword() error = %v", err)
	}

	if diff := cmp.Diff(wantSession(), session); diff != "" {
		t.Errorf("session mismatch (-want +got):\n%s", diff)
	}
}

func TestSignInWithPasswordError(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"error_description":"Invalid login credentials"}`))
	}))
	defer srv.Close()

	client := New(srv.URL, "anon-key")
	_, err := client.SignInWithPassword(context.Background(), "a@example.com", "bad")

	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("error = %v, want *APIError", err)
	}
	if apiErr.StatusCode != http.StatusBadRequest {
		t.Errorf("StatusCode = %d, want 400", apiErr.StatusCode)
	}
	if apiErr.Message != "Invalid login credentials" {
		t.Errorf("Message = %q, want Invalid login credentials", apiErr.Message)
	}
}

func TestSignUpConfirmationRequired(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":"user-1","email":"a@example.com"}`))
	}))
	defer srv.Close()

	client := New(srv.URL, "anon-key")
	_, err := client.SignUp(context.Background(), "a@example.com", "pw")
	if !errors.Is(err, ErrConfirmationRequired) {
		t.Errorf("SignUp() error = %v, want ErrConfirmationRequired", err)
	}
}

func TestRefresh(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.URL.Query().Get("grant_type"); got != "refresh_token" {
			t.Errorf("grant_type = %q, want refresh_token", got)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(sessionBody))
	}))
	defer srv.Close()

	client := New(srv.URL, "anon-key")
	session, err := client.Refresh(context.Background(), "rt-0")
	if err != nil {
		t.Fatalf("Refresh() error = %v", err)
	}
	if session.AccessToken != "at-1" {
		t.Errorf("AccessToken = %q, want at-1", session.AccessToken)
	}
}
