package config

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/xdg/cmdgate/internal/auth"
	"github.com/xdg/cmdgate/internal/executor"
	"github.com/xdg/cmdgate/internal/policy"
)

// validLogLevels defines the allowed log level values.
var validLogLevels = map[string]bool{
	"debug": true,
	"info":  true,
	"warn":  true,
	"error": true,
}

// maxWorkers bounds executor.workers.
const maxWorkers = 1024

// Validate checks that all fields of cfg contain valid values. It returns
// an error naming the first invalid field.
//
// Deny patterns are not validated here: an invalid pattern is logged and
// skipped when the policy is built.
func Validate(cfg *Config) error {
	if cfg.Server.Listen != "" {
		if err := validateListenAddr(cfg.Server.Listen, "server.listen"); err != nil {
			return err
		}
	}
	if cfg.Server.MaxBodyBytes < 0 {
		return fmt.Errorf("server.max_body_bytes: must be non-negative, got %d", cfg.Server.MaxBodyBytes)
	}

	if _, err := policy.ParseMode(cfg.Policy.Mode); err != nil {
		return fmt.Errorf("policy.mode: %w", err)
	}
	for i, entry := range cfg.Policy.Allow {
		if err := validateAllowEntry(entry, fmt.Sprintf("policy.allow[%d]", i)); err != nil {
			return err
		}
	}

	if cfg.Governor.MaxConcurrent < 0 {
		return fmt.Errorf("governor.max_concurrent: must be non-negative, got %d", cfg.Governor.MaxConcurrent)
	}

	if cfg.Executor.Workers < 0 || cfg.Executor.Workers > maxWorkers {
		return fmt.Errorf("executor.workers: must be 0-%d, got %d", maxWorkers, cfg.Executor.Workers)
	}
	if cfg.Executor.MaxOutputBytes < 0 {
		return fmt.Errorf("executor.max_output_bytes: must be non-negative, got %d", cfg.Executor.MaxOutputBytes)
	}
	for i, name := range cfg.Executor.InheritEnv {
		if name == "" || strings.ContainsAny(name, "= \t") {
			return fmt.Errorf("executor.inherit_env[%d]: invalid variable name %q", i, name)
		}
		if strings.HasPrefix(name, executor.ReservedEnvPrefix) {
			return fmt.Errorf("executor.inherit_env[%d]: %s variables hold gateway secrets and are never inherited", i, executor.ReservedEnvPrefix)
		}
	}

	if err := validateAuth(cfg.Auth); err != nil {
		return err
	}

	if cfg.Log.Level != "" {
		if !validLogLevels[cfg.Log.Level] {
			return fmt.Errorf("log.level: invalid value %q, must be one of: debug, info, warn, error", cfg.Log.Level)
		}
	}

	return nil
}

func validateAuth(a AuthConfig) error {
	names := make(map[string]bool, len(a.APIKeys))
	for i, k := range a.APIKeys {
		if k.Name == "" {
			return fmt.Errorf("auth.api_keys[%d].name: required", i)
		}
		if names[k.Name] {
			return fmt.Errorf("auth.api_keys[%d].name: duplicate name %q", i, k.Name)
		}
		names[k.Name] = true
		if len(k.Key) < 16 {
			return fmt.Errorf("auth.api_keys[%d].key: must be at least 16 characters", i)
		}
	}
	if a.JWTSecret != "" && len(a.JWTSecret) < auth.MinSecretLength {
		return fmt.Errorf("auth.jwt_secret: must be at least %d characters", auth.MinSecretLength)
	}
	if a.TokenTTL != "" {
		if err := validateDuration(a.TokenTTL, "auth.token_ttl"); err != nil {
			return err
		}
		if a.TTL() <= 0 {
			return fmt.Errorf("auth.token_ttl: must be positive, got %q", a.TokenTTL)
		}
	}
	return nil
}

// validateAllowEntry accepts a program name, optionally ending in "*".
func validateAllowEntry(entry, field string) error {
	trimmed := strings.TrimSuffix(entry, "*")
	if trimmed == "" {
		return fmt.Errorf("%s: empty entry", field)
	}
	if strings.ContainsAny(trimmed, " \t*") {
		return fmt.Errorf("%s: invalid entry %q, expected a program name", field, entry)
	}
	return nil
}

// validateListenAddr validates a listen address in the format ":port" or "host:port".
// Port must be in the range 1-65535.
func validateListenAddr(addr, field string) error {
	colonIdx := strings.LastIndex(addr, ":")
	if colonIdx == -1 {
		return fmt.Errorf("%s: invalid format %q, expected host:port or :port", field, addr)
	}

	portStr := addr[colonIdx+1:]
	port, err := strconv.Atoi(portStr)
	if err != nil {
		return fmt.Errorf("%s: invalid port %q in %q", field, portStr, addr)
	}
	if port < 1 || port > 65535 {
		return fmt.Errorf("%s: invalid port number %d, must be 1-65535", field, port)
	}

	return nil
}

// validateDuration validates that a duration string can be parsed by time.ParseDuration.
func validateDuration(d, field string) error {
	_, err := time.ParseDuration(d)
	if err != nil {
		return fmt.Errorf("%s: invalid duration %q", field, d)
	}
	return nil
}
