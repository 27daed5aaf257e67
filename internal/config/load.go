package config

import (
	"errors"
	"fmt"
	"os"

	"github.com/xdg/cmdgate/internal/clog"
	"github.com/xdg/cmdgate/internal/pathutil"
)

// Environment variables that override file settings.
const (
	EnvAPIKey      = "CMDGATE_API_KEY" //nolint:gosec // G101: variable name, not a credential
	EnvJWTSecret   = "CMDGATE_JWT_SECRET"
	EnvDatabaseURL = "CMDGATE_DATABASE_URL"
	EnvListen      = "CMDGATE_LISTEN"
)

// envKeyName names the API key supplied through EnvAPIKey.
const envKeyName = "env"

// Load loads the configuration from path, or from Path() when path is
// empty. A missing file yields DefaultConfig. Environment overrides are
// applied before validation, and ~ is expanded in all path fields.
func Load(path string) (*Config, error) {
	if path == "" {
		path = Path()
	}
	clog.Debug("config: loading %s", path)

	var cfg *Config
	data, err := os.ReadFile(pathutil.ExpandHome(path))
	switch {
	case errors.Is(err, os.ErrNotExist):
		clog.Debug("config: %s not found, using defaults", path)
		cfg = DefaultConfig()
	case err != nil:
		return nil, fmt.Errorf("read config: %w", err)
	default:
		cfg, err = Parse(data)
		if err != nil {
			return nil, fmt.Errorf("load config %s: %w", path, err)
		}
	}

	ApplyEnv(cfg, os.LookupEnv)

	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("load config %s: %w", path, err)
	}

	expandPaths(cfg)
	return cfg, nil
}

// ApplyEnv overlays environment overrides onto cfg. lookup is usually
// os.LookupEnv.
func ApplyEnv(cfg *Config, lookup func(string) (string, bool)) {
	if v, ok := lookup(EnvAPIKey); ok && v != "" {
		cfg.Auth.APIKeys = append(cfg.Auth.APIKeys, APIKeyEntry{Name: envKeyName, Key: v})
	}
	if v, ok := lookup(EnvJWTSecret); ok && v != "" {
		cfg.Auth.JWTSecret = v
	}
	if v, ok := lookup(EnvDatabaseURL); ok && v != "" {
		cfg.Auth.DatabaseURL = v
	}
	if v, ok := lookup(EnvListen); ok && v != "" {
		cfg.Server.Listen = v
	}
}

// expandPaths expands ~ in path fields and fills path defaults.
func expandPaths(cfg *Config) {
	if cfg.Auth.UsersFile == "" {
		cfg.Auth.UsersFile = UsersPath()
	}
	cfg.Auth.UsersFile = pathutil.ExpandHome(cfg.Auth.UsersFile)
	if cfg.Log.File == "" {
		cfg.Log.File = clog.DefaultLogPath()
	}
	cfg.Log.File = pathutil.ExpandHome(cfg.Log.File)
	if cfg.Log.AuditFile == "" {
		cfg.Log.AuditFile = clog.DefaultAuditPath()
	}
	cfg.Log.AuditFile = pathutil.ExpandHome(cfg.Log.AuditFile)
}
