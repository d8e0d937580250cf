// Package vitaldevice tracks which aggregator user this machine is signed
// in as. Sign-in state survives restarts so a relaunch can skip the
// user-provisioning round trips entirely.
package vitaldevice

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	go_json "github.com/goccy/go-json"
	"github.com/golang-jwt/jwt/v5"

	"github.com/viiraa/healthsync/internal/credstore"
	"github.com/viiraa/healthsync/internal/xslog"
)

// ErrNotSignedIn is returned by SignedInUser when no sign-in state exists.
var ErrNotSignedIn = errors.New("vitaldevice: not signed in")

// Device is the local counterpart of an aggregator user. Implementations
// persist sign-in state across process restarts.
type Device interface {
	// SignedInUser returns the aggregator user id this device is signed
	// in as, or ErrNotSignedIn.
	SignedInUser(ctx context.Context) (string, error)

	// SignIn redeems a sign-in token and records the resulting user id.
	// Signing in while already signed in as a different user returns an
	// error; the caller must sign out first.
	SignIn(ctx context.Context, token string) (string, error)

	SignOut(ctx context.Context) error

	// SyncData asks the device side to push its collected samples to the
	// aggregator. The upload itself is asynchronous; a nil return means
	// the trigger was accepted, not that data has arrived remotely.
	SyncData(ctx context.Context) error
}

const stateKey = "vital_device"

type deviceState struct {
	UserID     string    `json:"user_id"`
	SignedInAt time.Time `json:"signed_in_at"`
}

// PersistentDevice stores sign-in state in a credential store.
type PersistentDevice struct {
	store  credstore.Store
	logger *slog.Logger
}

var _ Device = (*PersistentDevice)(nil)

func NewPersistentDevice(store credstore.Store, logger *slog.Logger) *PersistentDevice {
	if logger == nil {
		logger = slog.Default()
	}
	return &PersistentDevice{store: store, logger: logger}
}

func (d *PersistentDevice) SignedInUser(ctx context.Context) (string, error) {
	raw, err := d.store.Load(ctx, stateKey)
	if err != nil {
		if errors.Is(err, credstore.ErrNotFound) {
			return "", ErrNotSignedIn
		}
		return "", fmt.Errorf("loading device state: %w", err)
	}

	var state deviceState
	if err := go_json.Unmarshal(raw, &state); err != nil || state.UserID == "" {
		// Unreadable state is treated as signed out rather than
		// wedging every startup on it.
		d.logger.Warn("discarding unreadable device state", xslog.Error(err))
		_ = d.store.Clear(ctx, stateKey)
		return "", ErrNotSignedIn
	}
	return state.UserID, nil
}

func (d *PersistentDevice) SignIn(ctx context.Context, token string) (string, error) {
	userID, err := userIDFromToken(token)
	if err != nil {
		return "", err
	}

	if current, err := d.SignedInUser(ctx); err == nil && current != userID {
		return "", fmt.Errorf("vitaldevice: already signed in as %s", current)
	}

	state := deviceState{UserID: userID, SignedInAt: time.Now().UTC()}
	raw, err := go_json.Marshal(state)
	if err != nil {
		return "", fmt.Errorf("encoding device state: %w", err)
	}
	if err := d.store.Save(ctx, stateKey, raw); err != nil {
		return "", fmt.Errorf("persisting device state: %w", err)
	}

	d.logger.Info("device signed in", xslog.RemoteUserID(userID))
	return userID, nil
}

func (d *PersistentDevice) SyncData(ctx context.Context) error {
	userID, err := d.SignedInUser(ctx)
	if err != nil {
		return err
	}
	d.logger.Info("sync triggered", xslog.RemoteUserID(userID))
	return nil
}

func (d *PersistentDevice) SignOut(ctx context.Context) error {
	if err := d.store.Clear(ctx, stateKey); err != nil {
		return fmt.Errorf("clearing device state: %w", err)
	}
	return nil
}

// userIDFromToken pulls the aggregator user id out of a sign-in token.
// The token is minted server-side moments before redemption; its claims
// are read without signature verification because this process holds no
// key to verify against.
func userIDFromToken(token string) (string, error) {
	claims := jwt.MapClaims{}
	parser := jwt.NewParser()
	if _, _, err := parser.ParseUnverified(token, claims); err != nil {
		return "", fmt.Errorf("parsing sign-in token: %w", err)
	}

	for _, key := range []string{"user_id", "uid", "sub"} {
		if id, ok := claims[key].(string); ok && id != "" {
			return id, nil
		}
	}
	return "", errors.New("vitaldevice: sign-in token carries no user id")
}
