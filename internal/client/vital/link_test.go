package vital

import (
	"context"
	"errors"
	"net/http"
	"testing"
)

func TestConnectDemoCreated(t *testing.T) {
	t.Parallel()

	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v2/link/connect/demo" {
			t.Errorf("path = %q, want /v2/link/connect/demo", r.URL.Path)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"success":true}`))
	})

	created, err := client.Link.ConnectDemo(context.Background(), "vital-1", ProviderFreestyleLibre)
	if err != nil {
		t.Fatalf("ConnectDemo() error = %v", err)
	}
	if !created {
		t.Error("created = false, want true")
	}
}

func TestConnectDemoAlreadyConnected(t *testing.T) {
	t.Parallel()

	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"detail":"demo connection already exists for this user"}`))
	})

	created, err := client.Link.ConnectDemo(context.Background(), "vital-1", ProviderFreestyleLibre)
	if err != nil {
		t.Fatalf("ConnectDemo() error = %v, want duplicate treated as success", err)
	}
	if created {
		t.Error("created = true, want false for existing connection")
	}
}

func TestConnectDemoFailure(t *testing.T) {
	t.Parallel()

	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
		_, _ = w.Write([]byte(`{"detail":"demo mode is disabled for this team"}`))
	})

	_, err := client.Link.ConnectDemo(context.Background(), "vital-1", ProviderFreestyleLibre)

	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("ConnectDemo() error = %v, want *APIError", err)
	}
	if apiErr.StatusCode != http.StatusForbidden {
		t.Errorf("StatusCode = %d, want 403", apiErr.StatusCode)
	}
}
