package clog

import (
	"fmt"
	"os"
	"path/filepath"
)

// OpenLogFile opens path for appending, creating parent directories.
// Log and audit files are readable by the owner's group only.
func OpenLogFile(path string) (*os.File, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return nil, fmt.Errorf("create log directory: %w", err)
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o640)
	if err != nil {
		return nil, fmt.Errorf("open log file: %w", err)
	}
	return f, nil
}

// StateDir returns $XDG_STATE_HOME/cmdgate, defaulting to
// ~/.local/state/cmdgate.
func StateDir() string {
	base := os.Getenv("XDG_STATE_HOME")
	if base == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			home = "."
		}
		base = filepath.Join(home, ".local", "state")
	}
	return filepath.Join(base, "cmdgate")
}

// DefaultLogPath is the operational log inside StateDir.
func DefaultLogPath() string {
	return filepath.Join(StateDir(), "cmdgate.log")
}

// DefaultAuditPath is the audit log inside StateDir.
func DefaultAuditPath() string {
	return filepath.Join(StateDir(), "audit.log")
}
