package oauth

import (
	"crypto/rand"
	"encoding/base64"
	"fmt"
)

const stateLength = 32

// GenerateState produces the opaque value round-tripped through the
// provider and checked again on the loopback callback.
func GenerateState() (string, error) {
	b := make([]byte, stateLength)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("failed to read random bytes: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}

// ValidateState rejects callbacks whose state does not match the one
// issued for this flow. An empty expected state never validates.
func ValidateState(expected string, received string) bool {
	return expected != "" && expected == received
}
