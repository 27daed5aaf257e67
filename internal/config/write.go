package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/xdg/cmdgate/internal/pathutil"
)

// WriteDefaultConfig creates the configuration file at path (or Path())
// with the commented default template. If the file already exists, it
// returns false without overwriting. The parent directory is created with
// 0700 permissions and the file is written with 0600.
func WriteDefaultConfig(path string) (bool, error) {
	if path == "" {
		path = Path()
	}
	path = pathutil.ExpandHome(path)

	_, err := os.Stat(path)
	if err == nil {
		return false, nil
	}
	if !errors.Is(err, os.ErrNotExist) {
		return false, fmt.Errorf("stat config file: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return false, fmt.Errorf("ensure config dir: %w", err)
	}
	if err := os.WriteFile(path, []byte(defaultConfigTemplate), 0o600); err != nil {
		return false, fmt.Errorf("write default config: %w", err)
	}
	return true, nil
}
