package xhttp

import (
	"net/http"
	"time"
)

// defaultTimeout bounds every outbound call; the auth and aggregator
// APIs are request/response only, nothing streams.
const defaultTimeout = 30 * time.Second

type ClientOption func(*http.Client)

func WithTimeout(d time.Duration) ClientOption {
	return func(c *http.Client) { c.Timeout = d }
}

func NewHTTPClient(opts ...ClientOption) *http.Client {
	c := &http.Client{
		Transport: NewTransport(),
		Timeout:   defaultTimeout,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}
