package connector

import (
	"context"
	"errors"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/viiraa/healthsync/internal/client/vital"
	"github.com/viiraa/healthsync/internal/healthstore"
	"github.com/viiraa/healthsync/internal/xslog"
)

// verifyWindow is the trailing window compared between local and remote
// readings.
const verifyWindow = 24 * time.Hour

// VerifySync checks whether glucose readings have actually arrived at
// the aggregator, comparing a trailing window against the local store.
// True means the remote side holds at least one reading. False is
// inconclusive rather than a failure: the platform delays device data by
// hours, so a recently synced reading is expected to be absent.
func (c *Connector) VerifySync(ctx context.Context) (bool, error) {
	c.mu.Lock()
	if !c.configured {
		c.mu.Unlock()
		return false, ErrNotConfigured
	}
	if c.account == nil {
		c.mu.Unlock()
		return false, ErrUserNotConnected
	}
	remoteUserID := c.account.RemoteUserID
	c.mu.Unlock()

	end := time.Now()
	start := end.Add(-verifyWindow)

	var (
		local  []healthstore.GlucoseReading
		remote []vital.GlucoseReading
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		readings, err := c.health.GlucoseReadings(gctx, start, end)
		if err != nil {
			// No authorization means no local baseline, not a broken
			// verification.
			if errors.Is(err, healthstore.ErrNotAuthorized) {
				return nil
			}
			return err
		}
		local = readings
		return nil
	})
	g.Go(func() error {
		readings, err := c.timeseries.Glucose(gctx, remoteUserID, start, end)
		if err != nil {
			return classifyAPIError("read remote glucose", err)
		}
		remote = readings
		return nil
	})
	if err := g.Wait(); err != nil {
		return false, err
	}

	c.logger.Info("sync verification",
		xslog.RemoteUserID(remoteUserID),
		xslog.Start(start),
		xslog.End(end),
		xslog.Count(len(local)),
		xslog.Status(verdict(len(remote))),
	)
	return len(remote) > 0, nil
}

func verdict(remoteCount int) string {
	if remoteCount > 0 {
		return "verified"
	}
	return "inconclusive"
}
