// Package supabase is a minimal client for the product backend's auth API.
// It covers only what the app needs: password/signup/refresh grants, the
// PKCE code exchange used by the browser sign-in flow, logout, and user
// lookup.
package supabase

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	go_json "github.com/goccy/go-json"
	"github.com/viiraa/healthsync/internal/xhttp"
)

type Client struct {
	baseURL    string
	anonKey    string
	httpClient *http.Client
	logger     *slog.Logger
}

type clientConfig struct {
	logger  *slog.Logger
	timeout time.Duration
}

type Option func(*clientConfig)

func WithLogger(logger *slog.Logger) Option {
	return func(cfg *clientConfig) { cfg.logger = logger }
}

func WithTimeout(d time.Duration) Option {
	return func(cfg *clientConfig) { cfg.timeout = d }
}

func New(baseURL, anonKey string, opts ...Option) *Client {
	cfg := &clientConfig{
		logger:  slog.Default(),
		timeout: 15 * time.Second,
	}
	for _, opt := range opts {
		opt(cfg)
	}

	transport := &supabaseTransport{
		base:    xhttp.NewTransport(),
		anonKey: anonKey,
	}

	return &Client{
		baseURL:    baseURL,
		anonKey:    anonKey,
		httpClient: &http.Client{Transport: transport, Timeout: cfg.timeout},
		logger:     cfg.logger,
	}
}

func (c *Client) do(ctx context.Context, method string, path string, query url.Values, body any, bearer string, result any) error {
	u := c.baseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}

	var reqBody io.Reader
	if body != nil {
		encoded, err := go_json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encoding request: %w", err)
		}
		reqBody = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, method, u, reqBody)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	if body != nil {
		req.Header.Set(xhttp.ContentType, "application/json")
	}
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("executing request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode >= 400 {
		return parseAPIError(resp)
	}

	if result != nil && resp.StatusCode != http.StatusNoContent {
		respBody, err := io.ReadAll(resp.Body)
		if err != nil {
			return fmt.Errorf("reading response: %w", err)
		}
		if err := go_json.NewDecoder(bytes.NewReader(respBody)).Decode(result); err != nil {
			return fmt.Errorf("decoding response: %w\nbody: %s", err, string(respBody))
		}
	}

	return nil
}

type supabaseTransport struct {
	base    http.RoundTripper
	anonKey string
}

var _ http.RoundTripper = (*supabaseTransport)(nil)

func (t *supabaseTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	req.Header.Set("apikey", t.anonKey)
	req.Header.Set("Accept", "application/json")

	resp, err := t.base.RoundTrip(req)
	if err != nil {
		return nil, fmt.Errorf("round trip: %w", err)
	}
	return resp, nil
}
