package connector

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/viiraa/healthsync/internal/client/vital"
)

var (
	// ErrNotConfigured is returned when an operation requires Configure
	// to have been called first.
	ErrNotConfigured = errors.New("connector: not configured")

	// ErrUserNotConnected is returned when an operation requires an
	// established account link.
	ErrUserNotConnected = errors.New("connector: user not connected")

	ErrInvalidAPIKey = errors.New("connector: invalid api key")
	ErrInvalidUserID = errors.New("connector: invalid user id")
	ErrRateLimited   = errors.New("connector: rate limited")

	// ErrPermissionDenied is returned when health-store authorization
	// was refused.
	ErrPermissionDenied = errors.New("connector: permission denied")
)

// SyncError records why a sync attempt failed. It is retained in the
// connector's sync state for display and retry.
type SyncError struct {
	Cause error
}

func (e *SyncError) Error() string {
	return fmt.Sprintf("connector: sync failed: %v", e.Cause)
}

func (e *SyncError) Unwrap() error {
	return e.Cause
}

// NetworkError wraps a failed aggregator call with the operation that
// issued it.
type NetworkError struct {
	Op  string
	Err error
}

func (e *NetworkError) Error() string {
	return fmt.Sprintf("connector: %s: %v", e.Op, e.Err)
}

func (e *NetworkError) Unwrap() error {
	return e.Err
}

// classifyAPIError maps aggregator responses onto the connector's error
// taxonomy. Anything unrecognized becomes a NetworkError.
func classifyAPIError(op string, err error) error {
	var apiErr *vital.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.StatusCode {
		case http.StatusUnauthorized, http.StatusForbidden:
			return fmt.Errorf("%w: %v", ErrInvalidAPIKey, err)
		case http.StatusTooManyRequests:
			return fmt.Errorf("%w: %v", ErrRateLimited, err)
		}
	}
	return &NetworkError{Op: op, Err: err}
}
