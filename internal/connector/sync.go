package connector

import (
	"context"
	"time"

	"github.com/viiraa/healthsync/internal/analytics"
	"github.com/viiraa/healthsync/internal/xslog"
)

// StartAutomaticSync performs one immediate sync and then repeats on the
// configured interval until stopped. Idempotent: calling it while a
// timer is already running is a no-op, so there is never more than one
// active schedule.
func (c *Connector) StartAutomaticSync() {
	c.mu.Lock()
	if c.stopSync != nil {
		c.mu.Unlock()
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	c.stopSync = cancel
	c.syncDone = done
	interval := c.syncInterval
	c.mu.Unlock()

	go func() {
		defer close(done)

		if err := c.SyncNow(ctx); err != nil {
			c.logger.Warn("initial sync failed", xslog.Error(err))
		}

		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				// Each tick is independent; a failed or slow sync
				// never blocks the next one.
				if err := c.SyncNow(ctx); err != nil {
					c.logger.Warn("scheduled sync failed", xslog.Error(err))
				}
			}
		}
	}()
}

// StopAutomaticSync cancels the recurring schedule. An in-flight sync is
// allowed to finish. Idempotent.
func (c *Connector) StopAutomaticSync() {
	c.mu.Lock()
	stop := c.stopSync
	done := c.syncDone
	c.stopSync = nil
	c.syncDone = nil
	c.mu.Unlock()

	if stop == nil {
		return
	}
	stop()
	<-done
}

// SyncNow triggers a device-side sync and waits the grace period before
// declaring success. The upload itself is asynchronous and unconfirmed
// by this call: success means "trigger accepted", not "data arrived".
// VerifySync is the only real confirmation.
func (c *Connector) SyncNow(ctx context.Context) error {
	c.mu.Lock()
	if !c.configured {
		c.mu.Unlock()
		return ErrNotConfigured
	}
	if c.account == nil {
		c.mu.Unlock()
		return ErrUserNotConnected
	}
	remoteUserID := c.account.RemoteUserID
	c.syncState.Status = SyncRunning
	grace := c.syncGracePeriod
	c.mu.Unlock()

	start := time.Now()
	if err := c.device.SyncData(ctx); err != nil {
		syncErr := &SyncError{Cause: err}
		c.mu.Lock()
		c.syncState = SyncState{Status: SyncFailed, LastSyncAt: c.syncState.LastSyncAt, LastError: syncErr}
		c.mu.Unlock()

		c.collector.Track(ctx, "junction_sync_failed", analytics.Properties{
			"junction_user_id": remoteUserID,
			"error":            err.Error(),
		})
		return syncErr
	}

	select {
	case <-ctx.Done():
		// The trigger was sent but the wait was abandoned; leaving the
		// status at running would show "syncing" forever.
		c.mu.Lock()
		c.syncState = SyncState{Status: SyncIdle, LastSyncAt: c.syncState.LastSyncAt}
		c.mu.Unlock()
		return ctx.Err()
	case <-time.After(grace):
	}

	c.mu.Lock()
	c.syncState = SyncState{Status: SyncSuccess, LastSyncAt: time.Now()}
	c.mu.Unlock()

	c.collector.Track(ctx, "junction_sync_success", analytics.Properties{
		"junction_user_id": remoteUserID,
	})
	c.logger.Info("sync completed",
		xslog.RemoteUserID(remoteUserID),
		xslog.Duration(time.Since(start)),
	)
	return nil
}
