// Package security provides identifiers, secrets and demo session tokens.
package security

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/oklog/ulid/v2"
	"golang.org/x/crypto/sha3"
)

// GenerateULID generates a new ULID string.
func GenerateULID() string {
	return ulid.Make().String()
}

// NewID returns a ULID with a kind prefix, e.g. "story_01J...".
func NewID(kind string) string {
	return kind + "_" + strings.ToLower(GenerateULID())
}

// GenerateSecureKey creates a cryptographically secure random key and returns it as a hex string.
// This is ideal for generating JWT secrets.
func GenerateSecureKey(length int) (string, error) {
	bytes := make([]byte, length/2) // Each byte becomes two hex characters
	if _, err := rand.Read(bytes); err != nil {
		return "", fmt.Errorf("failed to generate secure key: %w", err)
	}
	return hex.EncodeToString(bytes), nil
}

// MockTransactionRef derives an opaque 0x-prefixed keccak-256 reference for a
// demo vote, shaped like a transaction hash.
func MockTransactionRef(parts ...string) string {
	h := sha3.NewLegacyKeccak256()
	for _, p := range parts {
		h.Write([]byte(p))
		h.Write([]byte{0})
	}
	return "0x" + hex.EncodeToString(h.Sum(nil))
}
