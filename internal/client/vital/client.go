// Package vital is a client for the health-data aggregator's REST API,
// covering the calls the connector makes directly: user create/resolve,
// sign-in token issuance, provider link creation, and the glucose
// timeseries read used for sync verification.
package vital

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

// APIKeyHeader is the aggregator's auth header.
const APIKeyHeader = "x-vital-api-key"

type Client struct {
	User       UserService
	Link       LinkService
	Timeseries TimeseriesService

	baseURL    string
	env        Environment
	httpClient *http.Client
	logger     *slog.Logger
}

func New(apiKey string, opts ...Option) *Client {
	environment := EnvironmentForKey(apiKey)

	cfg := &clientConfig{
		baseURL: environment.BaseURL(),
		logger:  slog.Default(),
		timeout: 30 * time.Second,
	}
	for _, opt := range opts {
		opt(cfg)
	}

	transport := &vitalTransport{
		base:   xhttp.NewTransport(),
		apiKey: apiKey,
	}

	c := &Client{
		baseURL:    cfg.baseURL,
		env:        environment,
		httpClient: &http.Client{Transport: transport, Timeout: cfg.timeout},
		logger:     cfg.logger,
	}

	c.User = &userService{client: c}
	c.Link = &linkService{client: c}
	c.Timeseries = &timeseriesService{client: c}

	return c
}

// Env returns the environment derived from the API key prefix.
func (c *Client) Env() Environment {
	return c.env
}

type clientConfig struct {
	baseURL string
	logger  *slog.Logger
	timeout time.Duration
}

type Option func(*clientConfig)

// WithBaseURL overrides the environment-derived base URL; used in tests.
func WithBaseURL(baseURL string) Option {
	return func(cfg *clientConfig) { cfg.baseURL = baseURL }
}

func WithLogger(logger *slog.Logger) Option {
	return func(cfg *clientConfig) { cfg.logger = logger }
}

func WithTimeout(d time.Duration) Option {
	return func(cfg *clientConfig) { cfg.timeout = d }
}

func (c *Client) do(ctx context.Context, method string, path string, query url.Values, body any, result any) error {
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

// doRaw performs a request and hands back the status code and body
// without classifying non-2xx responses; callers that need to inspect
// error payloads (duplicate-user, duplicate-connection) use this.
func (c *Client) doRaw(ctx context.Context, method string, path string, body any) (int, []byte, error) {
	var reqBody io.Reader
	if body != nil {
		encoded, err := go_json.Marshal(body)
		if err != nil {
			return 0, nil, fmt.Errorf("encoding request: %w", err)
		}
		reqBody = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reqBody)
	if err != nil {
		return 0, nil, fmt.Errorf("creating request: %w", err)
	}
	if body != nil {
		req.Header.Set(xhttp.ContentType, "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, nil, fmt.Errorf("executing request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return resp.StatusCode, nil, fmt.Errorf("reading response: %w", err)
	}
	return resp.StatusCode, respBody, nil
}

type vitalTransport struct {
	base   http.RoundTripper
	apiKey string
}

var _ http.RoundTripper = (*vitalTransport)(nil)

func (t *vitalTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	req.Header.Set(APIKeyHeader, t.apiKey)
	req.Header.Set("Accept", "application/json")

	resp, err := t.base.RoundTrip(req)
	if err != nil {
		return nil, fmt.Errorf("round trip: %w", err)
	}
	return resp, nil
}
