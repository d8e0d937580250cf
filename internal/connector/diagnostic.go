package connector

import (
	"context"
	"errors"
	"time"

	"github.com/viiraa/healthsync/internal/client/vital"
	"github.com/viiraa/healthsync/internal/healthstore"
	"github.com/viiraa/healthsync/internal/vitaldevice"
)

// Report aggregates the connector's observable health into one
// read-only snapshot. RunDiagnostic has no side effects beyond logging.
type Report struct {
	GeneratedAt time.Time
	Environment vital.Environment
	State       State

	DeviceSignedIn bool
	RemoteUserID   string

	LocalAuthorized   bool
	LocalReadingCount int

	RemoteVerified   bool
	VerifyError      string
	LastSync         SyncState
	Remediation      []string
}

// RunDiagnostic inspects every layer the connection depends on and
// assembles a remediation checklist for whatever it finds missing.
func (c *Connector) RunDiagnostic(ctx context.Context) Report {
	report := Report{
		GeneratedAt: time.Now(),
	}

	c.mu.Lock()
	report.Environment = c.env
	report.State = c.state
	report.LastSync = c.syncState
	configured := c.configured
	hasLink := c.account != nil
	c.mu.Unlock()

	if userID, err := c.device.SignedInUser(ctx); err == nil {
		report.DeviceSignedIn = true
		report.RemoteUserID = userID
	} else if !errors.Is(err, vitaldevice.ErrNotSignedIn) {
		report.Remediation = append(report.Remediation, "device sign-in state unreadable: "+err.Error())
	}

	report.LocalAuthorized = c.health.Authorized(requiredSampleTypes...)
	if count, err := c.health.SampleCount(ctx, healthstore.SampleGlucose); err == nil {
		report.LocalReadingCount = count
	}

	if configured && hasLink {
		verified, err := c.VerifySync(ctx)
		if err != nil {
			report.VerifyError = err.Error()
		}
		report.RemoteVerified = verified
	}

	report.Remediation = append(report.Remediation, remediationSteps(report, configured)...)
	return report
}

func remediationSteps(r Report, configured bool) []string {
	var steps []string
	if !configured {
		steps = append(steps, "configure an aggregator API key")
	}
	if !r.DeviceSignedIn {
		steps = append(steps, "run connect to sign the device in")
	}
	if !r.LocalAuthorized {
		steps = append(steps, "grant health-store access, including glucose")
	}
	if r.LocalReadingCount == 0 {
		steps = append(steps, "no local glucose readings; record or seed data first")
	}
	if r.DeviceSignedIn && !r.RemoteVerified && r.VerifyError == "" {
		steps = append(steps, "remote readings absent; data can lag by hours, re-check later")
	}
	return steps
}
