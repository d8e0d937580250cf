// Package analytics defines the event collection capability and its
// implementations.
package analytics

import "context"

type Properties map[string]any

type Collector interface {
	// Identify associates the current device with a user.
	Identify(ctx context.Context, userID string, traits Properties)

	// Track records a named event. Implementations must never fail the
	// caller; delivery is best effort.
	Track(ctx context.Context, event string, properties Properties)

	// Reset detaches the device from the identified user.
	Reset(ctx context.Context)
}
