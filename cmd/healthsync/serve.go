package main

import (
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/spf13/cobra"

	"github.com/viiraa/healthsync/internal/bridge"
	"github.com/viiraa/healthsync/internal/bridge/proxy"
	"github.com/viiraa/healthsync/internal/healthstore"
	"github.com/viiraa/healthsync/internal/session"
	"github.com/viiraa/healthsync/internal/xslog"
)

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Serve the dashboard locally with the session bridged in",
		Long:  "Runs the local dashboard proxy with the native session injected, and keeps automatic sync running while it is up.",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			a, cleanup, err := newApp(ctx)
			if err != nil {
				return err
			}
			defer cleanup()

			current, err := a.restoreSession(ctx)
			if err != nil && !errors.Is(err, session.ErrNoSession) {
				return err
			}

			upstream, err := url.Parse(a.cfg.Dashboard.URL)
			if err != nil {
				return fmt.Errorf("parsing dashboard url: %w", err)
			}
			storageKey, err := bridge.StorageKeyForURL(a.cfg.Supabase.URL)
			if err != nil {
				return err
			}

			if current != nil && a.cfg.Vital.APIKey != "" {
				if err := a.connector.Connect(ctx, current.User.ID); err != nil {
					a.logger.Warn("account link failed at startup", xslog.Error(err))
				} else {
					a.connector.StartAutomaticSync()
					defer a.connector.StopAutomaticSync()
				}
			}

			summarizer := healthstore.NewSummarizer(a.health, 14*24*time.Hour)
			policy := &bridge.DomainPolicy{ProductHost: upstream.Hostname()}

			// Each websocket connection is one page instance with its
			// own bridge; the registry fans session changes out to all
			// of them.
			var (
				mu      sync.Mutex
				bridges = make(map[string]*bridge.Bridge)
			)
			factory := func(surface bridge.Surface) (*bridge.Bridge, func()) {
				b := bridge.New(bridge.Config{
					Surface:     surface,
					Sessions:    a.sessions,
					Health:      summarizer,
					Permissions: a.connector,
					Collector:   a.collector,
					Navigation:  policy,
					StorageKey:  storageKey,
					Logger:      a.logger,
				})
				mu.Lock()
				bridges[surface.ID()] = b
				mu.Unlock()
				return b, func() {
					mu.Lock()
					delete(bridges, surface.ID())
					mu.Unlock()
				}
			}

			events, cancel := a.sessions.Subscribe()
			defer cancel()
			go func() {
				for event := range events {
					mu.Lock()
					for _, b := range bridges {
						b.SetSession(ctx, event.Session)
					}
					mu.Unlock()
				}
			}()

			server := proxy.NewServer(upstream, a.sessions, factory, a.logger)
			httpServer := &http.Server{
				Addr:    a.cfg.Dashboard.ListenAddr,
				Handler: server.Handler(),
			}
			go func() {
				<-ctx.Done()
				_ = httpServer.Close()
			}()

			fmt.Printf("Dashboard at http://%s\n", a.cfg.Dashboard.ListenAddr)
			if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return err
			}
			return nil
		},
	}
}
