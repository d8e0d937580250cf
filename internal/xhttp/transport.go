package xhttp

import (
	"fmt"
	"net/http"

	"github.com/viiraa/healthsync/internal/version"
)

type healthsyncTransport struct {
	base http.RoundTripper
}

var _ http.RoundTripper = (*healthsyncTransport)(nil)

func (t *healthsyncTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	req.Header.Set("User-Agent", "healthsync/"+version.Get())
	req.Header.Set(version.Header, version.Get())
	resp, err := t.base.RoundTrip(req)
	if err != nil {
		return nil, fmt.Errorf("failed to perform round trip: %w", err)
	}
	return resp, nil
}

// NewTransport returns an http.RoundTripper with standard healthsync headers.
func NewTransport() http.RoundTripper {
	return &healthsyncTransport{base: http.DefaultTransport}
}
