// Package testutil provides shared test helpers for cmdgate tests.
package testutil

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
)

// BinaryEnvVar overrides the cmdgate binary used by end-to-end tests.
const BinaryEnvVar = "CMDGATE_BINARY"

// FindBinary locates the cmdgate binary: $CMDGATE_BINARY if set, otherwise
// ./cmdgate at the repository root.
func FindBinary() (string, error) {
	if p := os.Getenv(BinaryEnvVar); p != "" {
		if _, err := os.Stat(p); err != nil {
			return "", fmt.Errorf("%s=%s: %w", BinaryEnvVar, p, err)
		}
		return p, nil
	}
	_, thisFile, _, ok := runtime.Caller(0)
	if !ok {
		return "", errors.New("could not determine test file location")
	}
	repoRoot := filepath.Join(filepath.Dir(thisFile), "..", "..")
	p := filepath.Join(repoRoot, "cmdgate")
	if _, err := os.Stat(p); err != nil {
		return "", fmt.Errorf("cmdgate binary not found at %s (run 'go build ./cmd/cmdgate' first)", p)
	}
	return p, nil
}
