// Package credstore provides opaque credential blob storage, the stand-in
// for the platform keychain. Callers decide what the blob contains.
package credstore

import (
	"context"
	"errors"
)

var ErrNotFound = errors.New("credential not found")

type Store interface {
	// Save persists a blob under key, replacing any existing value.
	Save(ctx context.Context, key string, blob []byte) error

	// Load returns the blob stored under key.
	// Returns ErrNotFound if nothing is stored.
	Load(ctx context.Context, key string) ([]byte, error)

	// Clear removes the blob stored under key. Clearing a missing key
	// is not an error.
	Clear(ctx context.Context, key string) error
}
