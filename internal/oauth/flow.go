// Package oauth implements the browser-based provider sign-in flow: open
// the auth backend's authorize URL, catch the redirect on a loopback
// server, and exchange the code (PKCE) for a session.
package oauth

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os/exec"
	"runtime"
	"time"

	"github.com/viiraa/healthsync/internal/client/supabase"
	"github.com/viiraa/healthsync/internal/xhttp"
	"golang.org/x/oauth2"
)

const (
	callbackPath = "/callback"
	shutdownTime = 5 * time.Second
)

type Flow struct {
	client   *supabase.Client
	provider string
	state    string
	verifier string
}

type sessionResult struct {
	session *supabase.Session
	err     error
}

// NewFlow prepares a flow for one provider sign-in attempt. Each attempt
// gets fresh state and PKCE verifier values.
func NewFlow(client *supabase.Client, provider string) (*Flow, error) {
	state, err := GenerateState()
	if err != nil {
		return nil, fmt.Errorf("failed to generate state: %w", err)
	}
	return &Flow{
		client:   client,
		provider: provider,
		state:    state,
		verifier: oauth2.GenerateVerifier(),
	}, nil
}

func (f *Flow) Run(ctx context.Context) (*supabase.Session, error) {
	resultCh := make(chan sessionResult, 1)

	server, port, err := f.startCallbackServer(resultCh)
	if err != nil {
		return nil, fmt.Errorf("failed to start callback server: %w", err)
	}

	redirectTo := fmt.Sprintf("http://127.0.0.1:%s%s", port, callbackPath)
	url := f.client.AuthorizeURL(f.provider, redirectTo, f.state, oauth2.S256ChallengeFromVerifier(f.verifier))

	fmt.Printf("Opening browser for authorization...\n")
	fmt.Printf("If the browser doesn't open, visit:\n%s\n\n", url)

	if err := openBrowser(url); err != nil {
		fmt.Printf("Failed to open browser: %v\n", err)
	}

	select {
	case result := <-resultCh:
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTime)
		defer cancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			fmt.Printf("Warning: failed to shutdown server: %v\n", err)
		}

		if result.err != nil {
			return nil, result.err
		}
		return result.session, nil

	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTime)
		defer cancel()

		_ = server.Shutdown(shutdownCtx)

		return nil, ctx.Err()
	}
}

func (f *Flow) startCallbackServer(resultCh chan<- sessionResult) (*http.Server, string, error) {
	mux := http.NewServeMux()

	mux.HandleFunc(callbackPath, func(w http.ResponseWriter, r *http.Request) {
		session, err := f.handleCallback(w, r)
		if err != nil {
			resultCh <- sessionResult{err: err}
			return
		}
		writeSuccessHTML(w)
		resultCh <- sessionResult{session: session}
	})

	listener, err := net.Listen("tcp", net.JoinHostPort("127.0.0.1", "0"))
	if err != nil {
		return nil, "", fmt.Errorf("failed to start listener: %w", err)
	}

	_, port, _ := net.SplitHostPort(listener.Addr().String())

	server := &http.Server{
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		if err := server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			resultCh <- sessionResult{err: fmt.Errorf("server error: %w", err)}
		}
	}()

	return server, port, nil
}

func (f *Flow) handleCallback(w http.ResponseWriter, r *http.Request) (*supabase.Session, error) {
	if !ValidateState(f.state, r.URL.Query().Get("state")) {
		http.Error(w, "Invalid state parameter", http.StatusBadRequest)
		return nil, errors.New("invalid state parameter")
	}

	if errParam := r.URL.Query().Get("error"); errParam != "" {
		errDesc := r.URL.Query().Get("error_description")
		http.Error(w, fmt.Sprintf("OAuth error: %s", errDesc), http.StatusBadRequest)
		return nil, fmt.Errorf("oauth error: %s - %s", errParam, errDesc)
	}

	code := r.URL.Query().Get("code")
	if code == "" {
		http.Error(w, "Missing authorization code", http.StatusBadRequest)
		return nil, errors.New("missing authorization code")
	}

	session, err := f.client.ExchangeCode(r.Context(), code, f.verifier)
	if err != nil {
		http.Error(w, "Failed to exchange authorization code", http.StatusInternalServerError)
		return nil, fmt.Errorf("failed to exchange code: %w", err)
	}

	return session, nil
}

func writeSuccessHTML(w http.ResponseWriter) {
	xhttp.SetHeaderContentTypeTextHTML(w)
	_, _ = fmt.Fprint(w, `<!DOCTYPE html>
<html>
<head><title>Authorization Successful</title></head>
<body>
<h1>Authorization Successful</h1>
<p>You can close this window and return to the terminal.</p>
</body>
</html>`)
}

func openBrowser(url string) error {
	var cmd *exec.Cmd

	switch runtime.GOOS {
	case "darwin":
		cmd = exec.Command("open", url)
	case "linux":
		cmd = exec.Command("xdg-open", url)
	case "windows":
		cmd = exec.Command("rundll32", "url.dll,FileProtocolHandler", url)
	default:
		return fmt.Errorf("unsupported platform: %s", runtime.GOOS)
	}

	return cmd.Start()
}
