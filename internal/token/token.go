// Package token generates the random secrets cmdgate hands to operators:
// API keys and token signing secrets.
package token //nolint:revive // intentional: does not conflict at import path level

import (
	"crypto/rand"
	"encoding/hex"
	"strings"
)

// TokenBytes is the number of random bytes in a generated secret.
const TokenBytes = 32

// KeyPrefix marks generated API keys so they are recognizable in
// config files and secret scanners.
const KeyPrefix = "cgk_"

// Generate returns TokenBytes random bytes as 64 lowercase hex characters.
func Generate() string {
	b := make([]byte, TokenBytes)
	if _, err := rand.Read(b); err != nil {
		// crypto/rand.Read never returns an error on supported platforms.
		panic("crypto/rand.Read failed: " + err.Error())
	}
	return hex.EncodeToString(b)
}

// GenerateAPIKey returns a new API key: KeyPrefix followed by Generate().
func GenerateAPIKey() string {
	return KeyPrefix + Generate()
}

// IsGeneratedKey reports whether key has the shape GenerateAPIKey produces.
func IsGeneratedKey(key string) bool {
	rest, ok := strings.CutPrefix(key, KeyPrefix)
	if !ok || len(rest) != 2*TokenBytes {
		return false
	}
	_, err := hex.DecodeString(rest)
	return err == nil && strings.ToLower(rest) == rest
}
