package connector

import (
	"time"

	"github.com/viiraa/healthsync/internal/client/vital"
)

// State is the connection lifecycle of the current account link.
type State string

const (
	StateDisconnected       State = "disconnected"
	StateLinking            State = "linking"
	StatePermissionsPending State = "permissions_pending"
	StateConnected          State = "connected"
)

// SyncStatus is the outcome of the most recent sync attempt.
type SyncStatus string

const (
	SyncIdle    SyncStatus = "idle"
	SyncRunning SyncStatus = "syncing"
	SyncSuccess SyncStatus = "success"
	SyncFailed  SyncStatus = "failed"
)

// SyncState is transient per-connection sync bookkeeping. It resets to
// idle on disconnect.
type SyncState struct {
	Status     SyncStatus
	LastSyncAt time.Time
	LastError  error
}

// AccountLink associates the local user with their aggregator account.
// It lives for the duration of the authenticated session and is cleared
// on disconnect.
type AccountLink struct {
	ClientUserID string
	RemoteUserID string
	SignedIn     bool
	Providers    map[vital.ProviderSlug]bool
}

func (l *AccountLink) connectedProviders() []vital.ProviderSlug {
	providers := make([]vital.ProviderSlug, 0, len(l.Providers))
	for p := range l.Providers {
		providers = append(providers, p)
	}
	return providers
}

// Status is a read-only snapshot of the connector for display.
type Status struct {
	State        State
	Environment  vital.Environment
	ClientUserID string
	RemoteUserID string
	Providers    []vital.ProviderSlug
	Sync         SyncState
	AutoSync     bool
}
