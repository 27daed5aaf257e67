package config

import (
	"fmt"
	"os"

	"github.com/xdg/cmdgate/internal/pathutil"
)

// Dir returns the cmdgate configuration directory path.
// By default, this is ~/.config/cmdgate/. If the XDG_CONFIG_HOME
// environment variable is set, it uses $XDG_CONFIG_HOME/cmdgate/ instead.
// The returned path always has a trailing slash.
func Dir() string {
	base := os.Getenv("XDG_CONFIG_HOME")
	if base == "" {
		base = "~/.config"
	}
	return pathutil.ExpandHome(base) + "/cmdgate/"
}

// EnsureDir creates the configuration directory if it doesn't exist,
// with 0700 permissions.
func EnsureDir() error {
	if err := os.MkdirAll(Dir(), 0o700); err != nil {
		return fmt.Errorf("ensure config dir: %w", err)
	}
	return nil
}

// Path returns the full path to the configuration file.
func Path() string {
	return Dir() + "config.yaml"
}

// UsersPath returns the default user store file.
func UsersPath() string {
	return Dir() + "users.yaml"
}
