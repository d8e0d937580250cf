package analytics

import (
	"bytes"
	"context"
	"log/slog"
	"net/http"
	"sync"
	"time"

	go_json "github.com/goccy/go-json"
	"github.com/google/uuid"
	"github.com/viiraa/healthsync/internal/xhttp"
	"github.com/viiraa/healthsync/internal/xslog"
)

// PostHog delivers events to the PostHog capture API. Failures are logged
// and dropped; analytics never block or fail product flows.
type PostHog struct {
	host       string
	apiKey     string
	httpClient *http.Client
	logger     *slog.Logger

	mu         sync.RWMutex
	distinctID string
}

var _ Collector = (*PostHog)(nil)

func NewPostHog(host, apiKey string, logger *slog.Logger) *PostHog {
	return &PostHog{
		host:       host,
		apiKey:     apiKey,
		httpClient: xhttp.NewHTTPClient(xhttp.WithTimeout(10 * time.Second)),
		logger:     logger,
		distinctID: uuid.NewString(),
	}
}

type captureRequest struct {
	APIKey     string     `json:"api_key"`
	Event      string     `json:"event"`
	DistinctID string     `json:"distinct_id"`
	Properties Properties `json:"properties,omitempty"`
	Timestamp  time.Time  `json:"timestamp"`
}

func (p *PostHog) Identify(ctx context.Context, userID string, traits Properties) {
	p.mu.Lock()
	p.distinctID = userID
	p.mu.Unlock()

	props := Properties{}
	for k, v := range traits {
		props["$set_"+k] = v
	}
	p.Track(ctx, "$identify", props)
}

func (p *PostHog) Track(ctx context.Context, event string, properties Properties) {
	p.mu.RLock()
	distinctID := p.distinctID
	p.mu.RUnlock()

	body, err := go_json.Marshal(captureRequest{
		APIKey:     p.apiKey,
		Event:      event,
		DistinctID: distinctID,
		Properties: properties,
		Timestamp:  time.Now().UTC(),
	})
	if err != nil {
		p.logger.WarnContext(ctx, "failed to encode analytics event", xslog.Event(event), xslog.Error(err))
		return
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.host+"/capture/", bytes.NewReader(body))
	if err != nil {
		p.logger.WarnContext(ctx, "failed to build analytics request", xslog.Event(event), xslog.Error(err))
		return
	}
	req.Header.Set(xhttp.ContentType, "application/json")

	resp, err := p.httpClient.Do(req)
	if err != nil {
		p.logger.WarnContext(ctx, "failed to deliver analytics event", xslog.Event(event), xslog.Error(err))
		return
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode >= 400 {
		p.logger.WarnContext(ctx, "analytics event rejected",
			xslog.Event(event),
			xslog.HTTPStatus(resp.StatusCode))
	}
}

func (p *PostHog) Reset(_ context.Context) {
	p.mu.Lock()
	p.distinctID = uuid.NewString()
	p.mu.Unlock()
}
