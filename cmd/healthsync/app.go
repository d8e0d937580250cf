package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/viiraa/healthsync/internal/analytics"
	"github.com/viiraa/healthsync/internal/client/supabase"
	"github.com/viiraa/healthsync/internal/config"
	"github.com/viiraa/healthsync/internal/connector"
	"github.com/viiraa/healthsync/internal/credstore"
	"github.com/viiraa/healthsync/internal/healthstore"
	"github.com/viiraa/healthsync/internal/paths"
	xredis "github.com/viiraa/healthsync/internal/redis"
	"github.com/viiraa/healthsync/internal/session"
	"github.com/viiraa/healthsync/internal/vitaldevice"
	"github.com/viiraa/healthsync/internal/xslog"
)

// app is the composition root: every service is constructed here and
// passed down explicitly.
type app struct {
	cfg       config.Config
	logger    *slog.Logger
	supabase  *supabase.Client
	sessions  *session.Manager
	creds     credstore.Store
	health    *healthstore.SQLite
	device    vitaldevice.Device
	connector *connector.Connector
	collector analytics.Collector
}

func newApp(ctx context.Context) (*app, func(), error) {
	cfg, err := config.Read()
	if err != nil {
		return nil, nil, fmt.Errorf("reading config: %w", err)
	}

	logger := xslog.NewLoggerFromEnv(os.Stderr)
	slog.SetDefault(logger)

	dir, err := paths.EnsureDir()
	if err != nil {
		return nil, nil, err
	}

	var creds credstore.Store
	if cfg.RedisURL != "" {
		client, err := xredis.New(ctx, xredis.Config{URL: cfg.RedisURL})
		if err != nil {
			return nil, nil, fmt.Errorf("connecting redis: %w", err)
		}
		creds = credstore.NewRedis(client)
	} else {
		creds, err = credstore.NewFile(dir)
		if err != nil {
			return nil, nil, err
		}
	}

	var collector analytics.Collector = analytics.Nop{}
	if cfg.PostHog.APIKey != "" {
		collector = analytics.NewPostHog(cfg.PostHog.Host, cfg.PostHog.APIKey, logger)
	}

	sb := supabase.New(cfg.Supabase.URL, cfg.Supabase.AnonKey, supabase.WithLogger(logger))
	sessions := session.NewManager(sb, creds, collector, logger)

	dbPath, err := paths.DB()
	if err != nil {
		return nil, nil, err
	}
	health, err := healthstore.NewSQLite(dbPath)
	if err != nil {
		return nil, nil, err
	}

	device := vitaldevice.NewPersistentDevice(creds, logger)
	conn := connector.New(device, health, collector,
		connector.WithSyncInterval(cfg.Vital.SyncInterval),
		connector.WithSyncGracePeriod(cfg.Vital.SyncGracePeriod),
		connector.WithLogger(logger),
	)
	if cfg.Vital.APIKey != "" {
		if err := conn.Configure(cfg.Vital.APIKey); err != nil {
			health.Close()
			return nil, nil, err
		}
	}

	a := &app{
		cfg:       cfg,
		logger:    logger,
		supabase:  sb,
		sessions:  sessions,
		creds:     creds,
		health:    health,
		device:    device,
		connector: conn,
		collector: collector,
	}
	cleanup := func() {
		_ = health.Close()
	}
	return a, cleanup, nil
}

// restoreSession loads the persisted session, refreshing it if stale.
func (a *app) restoreSession(ctx context.Context) (*session.Session, error) {
	current, err := a.sessions.Restore(ctx)
	if err != nil {
		return nil, fmt.Errorf("restoring session: %w", err)
	}
	return current, nil
}
