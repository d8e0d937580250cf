// Package connector links a local authenticated user to the health-data
// aggregator and keeps device-collected vitals flowing to it. It owns the
// account link, the sync schedule, and nothing else; auth and storage are
// injected collaborators.
package connector

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/viiraa/healthsync/internal/analytics"
	"github.com/viiraa/healthsync/internal/client/vital"
	"github.com/viiraa/healthsync/internal/healthstore"
	"github.com/viiraa/healthsync/internal/vitaldevice"
	"github.com/viiraa/healthsync/internal/xslog"
)

// requiredSampleTypes is the minimal authorization set. Glucose is listed
// explicitly: it is a nested permission category that silently drops CGM
// data when omitted.
var requiredSampleTypes = []healthstore.SampleType{
	healthstore.SampleGlucose,
	healthstore.SampleWeight,
	healthstore.SampleSteps,
	healthstore.SampleActiveEnergy,
	healthstore.SampleExerciseMinutes,
}

var defaultProviders = []vital.ProviderSlug{
	vital.ProviderAppleHealthKit,
	vital.ProviderFreestyleLibre,
}

type Connector struct {
	device    vitaldevice.Device
	health    healthstore.Store
	collector analytics.Collector
	logger    *slog.Logger

	syncInterval    time.Duration
	syncGracePeriod time.Duration
	providers       []vital.ProviderSlug
	clientOpts      []vital.Option

	mu         sync.Mutex
	configured bool
	env        vital.Environment
	user       vital.UserService
	link       vital.LinkService
	timeseries vital.TimeseriesService
	state      State
	account    *AccountLink
	syncState  SyncState
	stopSync   func()
	syncDone   chan struct{}
}

type connectorConfig struct {
	syncInterval    time.Duration
	syncGracePeriod time.Duration
	providers       []vital.ProviderSlug
	clientOpts      []vital.Option
	logger          *slog.Logger

	user       vital.UserService
	link       vital.LinkService
	timeseries vital.TimeseriesService
}

type Option func(*connectorConfig)

// WithSyncInterval sets the recurring sync period.
func WithSyncInterval(d time.Duration) Option {
	return func(cfg *connectorConfig) { cfg.syncInterval = d }
}

// WithSyncGracePeriod sets how long SyncNow waits after triggering
// before declaring success.
func WithSyncGracePeriod(d time.Duration) Option {
	return func(cfg *connectorConfig) { cfg.syncGracePeriod = d }
}

// WithProviders overrides the provider connections established on
// connect.
func WithProviders(providers ...vital.ProviderSlug) Option {
	return func(cfg *connectorConfig) { cfg.providers = providers }
}

// WithClientOptions forwards options to the aggregator client built by
// Configure.
func WithClientOptions(opts ...vital.Option) Option {
	return func(cfg *connectorConfig) { cfg.clientOpts = opts }
}

func WithLogger(logger *slog.Logger) Option {
	return func(cfg *connectorConfig) { cfg.logger = logger }
}

// WithAPI injects aggregator services directly, bypassing the client
// Configure would build. Used in tests.
func WithAPI(user vital.UserService, link vital.LinkService, timeseries vital.TimeseriesService) Option {
	return func(cfg *connectorConfig) {
		cfg.user = user
		cfg.link = link
		cfg.timeseries = timeseries
	}
}

func New(device vitaldevice.Device, health healthstore.Store, collector analytics.Collector, opts ...Option) *Connector {
	cfg := &connectorConfig{
		syncInterval:    time.Hour,
		syncGracePeriod: 1500 * time.Millisecond,
		providers:       defaultProviders,
		logger:          slog.Default(),
	}
	for _, opt := range opts {
		opt(cfg)
	}

	return &Connector{
		device:          device,
		health:          health,
		collector:       collector,
		logger:          cfg.logger,
		syncInterval:    cfg.syncInterval,
		syncGracePeriod: cfg.syncGracePeriod,
		providers:       cfg.providers,
		clientOpts:      cfg.clientOpts,
		user:            cfg.user,
		link:            cfg.link,
		timeseries:      cfg.timeseries,
		state:           StateDisconnected,
		syncState:       SyncState{Status: SyncIdle},
	}
}

// Configure derives the aggregator environment from the API key prefix
// and builds the API client. It must be called before Connect.
func (c *Connector) Configure(apiKey string) error {
	if apiKey == "" {
		return ErrInvalidAPIKey
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	c.env = vital.EnvironmentForKey(apiKey)
	if c.user == nil {
		client := vital.New(apiKey, c.clientOpts...)
		c.user = client.User
		c.link = client.Link
		c.timeseries = client.Timeseries
	}
	c.configured = true

	c.logger.Info("connector configured", xslog.Status(string(c.env)))
	c.collector.Track(context.Background(), "junction_configured", analytics.Properties{
		"environment": string(c.env),
	})
	return nil
}

// Status returns a snapshot for display.
func (c *Connector) Status() Status {
	c.mu.Lock()
	defer c.mu.Unlock()

	s := Status{
		State:       c.state,
		Environment: c.env,
		Sync:        c.syncState,
		AutoSync:    c.stopSync != nil,
	}
	if c.account != nil {
		s.ClientUserID = c.account.ClientUserID
		s.RemoteUserID = c.account.RemoteUserID
		s.Providers = c.account.connectedProviders()
	}
	return s
}
