package connector

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/viiraa/healthsync/internal/analytics"
	"github.com/viiraa/healthsync/internal/client/vital"
	"github.com/viiraa/healthsync/internal/vitaldevice"
	"github.com/viiraa/healthsync/internal/xslog"
)

// Connect links localUserID to an aggregator account: create or resolve
// the remote user, authenticate the device with a sign-in token, then
// establish provider connections. Callers must not invoke it
// concurrently for the same user; it is expected once per sign-in.
func (c *Connector) Connect(ctx context.Context, localUserID string) error {
	c.mu.Lock()
	if !c.configured {
		c.mu.Unlock()
		return ErrNotConfigured
	}
	if localUserID == "" {
		c.mu.Unlock()
		return ErrInvalidUserID
	}
	c.state = StateLinking
	c.mu.Unlock()

	// Fast path: a persisted device sign-in means the remote user was
	// linked on an earlier run. Creating again would mint duplicate
	// users and tokens on every start.
	remoteUserID, err := c.device.SignedInUser(ctx)
	reconnection := err == nil && remoteUserID != ""

	if !reconnection {
		remoteUserID, err = c.establishRemoteUser(ctx, localUserID)
		if err != nil {
			c.resetToDisconnected()
			return err
		}

		if err := c.signInDevice(ctx, remoteUserID); err != nil {
			// The remote user stays resolvable for the next attempt;
			// only the device authentication is rolled back.
			c.recordLinkFailure(localUserID, remoteUserID, err)
			return err
		}
	}

	c.connectProviders(ctx, remoteUserID)

	c.mu.Lock()
	c.account = &AccountLink{
		ClientUserID: localUserID,
		RemoteUserID: remoteUserID,
		SignedIn:     true,
		Providers:    c.providerSet(),
	}
	if c.health.Authorized(requiredSampleTypes...) {
		c.state = StateConnected
	} else {
		c.state = StatePermissionsPending
	}
	c.mu.Unlock()

	event := "junction_user_connected"
	if reconnection {
		event = "junction_user_reconnected"
	}
	c.collector.Track(ctx, event, analytics.Properties{
		"user_id":          localUserID,
		"junction_user_id": remoteUserID,
	})
	c.logger.Info("user connected",
		xslog.UserID(localUserID),
		xslog.RemoteUserID(remoteUserID),
		xslog.Event(event),
	)
	return nil
}

// establishRemoteUser creates the aggregator user with localUserID as
// the idempotency key, recovering the existing id from a duplicate-key
// response. An error body in an unexpected shape falls back to the
// resolve lookup.
func (c *Connector) establishRemoteUser(ctx context.Context, localUserID string) (string, error) {
	result, err := c.user.Create(ctx, localUserID)
	if err == nil {
		if result.Outcome == vital.OutcomeAlreadyExists {
			c.logger.Info("remote user already exists", xslog.RemoteUserID(result.UserID))
		}
		return result.UserID, nil
	}

	var apiErr *vital.APIError
	if errors.As(err, &apiErr) && (apiErr.StatusCode == http.StatusBadRequest || apiErr.StatusCode == http.StatusConflict) {
		c.logger.Warn("create user error body unrecognized, resolving by key", xslog.Error(err))
		ref, resolveErr := c.user.Resolve(ctx, localUserID)
		if resolveErr != nil {
			return "", classifyAPIError("resolve user", resolveErr)
		}
		return ref.UserID, nil
	}

	return "", classifyAPIError("create user", err)
}

// signInDevice exchanges a short-lived sign-in token and authenticates
// the device SDK with it. Skipping this leaves the remote account
// created but receiving no data, so failure here fails Connect.
func (c *Connector) signInDevice(ctx context.Context, remoteUserID string) error {
	token, err := c.user.SignInToken(ctx, remoteUserID)
	if err != nil {
		return classifyAPIError("issue sign-in token", err)
	}

	if _, err := c.device.SignIn(ctx, token.SignInToken); err != nil {
		return fmt.Errorf("authenticating device: %w", err)
	}
	return nil
}

// connectProviders establishes each provider connection best-effort.
// Duplicates are success; other failures are logged and left for a
// later sync attempt to repair.
func (c *Connector) connectProviders(ctx context.Context, remoteUserID string) {
	for _, provider := range c.providers {
		created, err := c.link.ConnectDemo(ctx, remoteUserID, provider)
		if err != nil {
			c.logger.Warn("provider connection failed",
				xslog.Provider(string(provider)),
				xslog.Error(err),
			)
			continue
		}
		if created {
			c.logger.Info("provider connected", xslog.Provider(string(provider)))
		}
	}
}

func (c *Connector) providerSet() map[vital.ProviderSlug]bool {
	set := make(map[vital.ProviderSlug]bool, len(c.providers))
	for _, provider := range c.providers {
		set[provider] = true
	}
	return set
}

func (c *Connector) resetToDisconnected() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.state = StateDisconnected
}

func (c *Connector) recordLinkFailure(localUserID, remoteUserID string, cause error) {
	c.mu.Lock()
	c.state = StateDisconnected
	c.account = &AccountLink{
		ClientUserID: localUserID,
		RemoteUserID: remoteUserID,
		SignedIn:     false,
		Providers:    map[vital.ProviderSlug]bool{},
	}
	c.syncState = SyncState{Status: SyncFailed, LastError: &SyncError{Cause: cause}}
	c.mu.Unlock()

	c.logger.Error("device sign-in failed",
		xslog.UserID(localUserID),
		xslog.RemoteUserID(remoteUserID),
		xslog.Error(cause),
	)
}

// RequestPermissions prompts for health-store access to the required
// sample types. Failures propagate; a granted prompt moves a pending
// connection to Connected.
func (c *Connector) RequestPermissions(ctx context.Context) error {
	if err := c.health.RequestAuthorization(ctx, requiredSampleTypes...); err != nil {
		return fmt.Errorf("%w: %v", ErrPermissionDenied, err)
	}

	c.mu.Lock()
	if c.state == StatePermissionsPending && c.account != nil {
		c.state = StateConnected
	}
	c.mu.Unlock()

	c.collector.Track(ctx, "junction_healthkit_authorized", nil)
	return nil
}

// Disconnect tears the connection down: the sync timer is cancelled, the
// device is signed out, and all in-memory link state resets. Idempotent;
// an in-flight sync is not aborted.
func (c *Connector) Disconnect(ctx context.Context) {
	c.StopAutomaticSync()

	c.mu.Lock()
	hadLink := c.account != nil
	localUserID := ""
	if c.account != nil {
		localUserID = c.account.ClientUserID
	}
	c.account = nil
	c.state = StateDisconnected
	c.syncState = SyncState{Status: SyncIdle}
	c.mu.Unlock()

	if err := c.device.SignOut(ctx); err != nil && !errors.Is(err, vitaldevice.ErrNotSignedIn) {
		c.logger.Warn("device sign-out failed", xslog.Error(err))
	}

	if hadLink {
		c.collector.Track(ctx, "junction_user_disconnected", analytics.Properties{
			"user_id": localUserID,
		})
	}
}
