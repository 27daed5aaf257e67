// Package config provides the cmdgate configuration types. These types map
// to the YAML configuration file.
package config

import "time"

// Config represents the cmdgate configuration.
// It is typically stored at ~/.config/cmdgate/config.yaml.
type Config struct {
	Server   ServerConfig   `yaml:"server,omitempty"`
	Policy   PolicyConfig   `yaml:"policy,omitempty"`
	Governor GovernorConfig `yaml:"governor,omitempty"`
	Executor ExecutorConfig `yaml:"executor,omitempty"`
	Auth     AuthConfig     `yaml:"auth,omitempty"`
	Log      LogConfig      `yaml:"log,omitempty"`
}

// ServerConfig contains HTTP listener settings.
type ServerConfig struct {
	Listen       string `yaml:"listen,omitempty"`
	MaxBodyBytes int64  `yaml:"max_body_bytes,omitempty"`
}

// PolicyConfig selects and configures the command policy.
type PolicyConfig struct {
	// Mode is "allowlist" or "blocklist".
	Mode  string   `yaml:"mode,omitempty"`
	Allow []string `yaml:"allow,omitempty"`
	Deny  []string `yaml:"deny,omitempty"`
	// AllowRegisteredTools admits every catalog tool's executable for tool
	// dispatch in allowlist mode. Direct commands never get it. Nil means true.
	AllowRegisteredTools *bool `yaml:"allow_registered_tools,omitempty"`
}

// RegisteredToolsAllowed reports the effective AllowRegisteredTools value.
func (p PolicyConfig) RegisteredToolsAllowed() bool {
	return p.AllowRegisteredTools == nil || *p.AllowRegisteredTools
}

// GovernorConfig contains admission ceilings.
type GovernorConfig struct {
	MaxConcurrent int    `yaml:"max_concurrent,omitempty"`
	MaxMemoryMB   uint64 `yaml:"max_memory_mb,omitempty"`
}

// ExecutorConfig contains child process settings.
type ExecutorConfig struct {
	Workers        int      `yaml:"workers,omitempty"`
	InheritEnv     []string `yaml:"inherit_env,omitempty"`
	MaxOutputBytes int      `yaml:"max_output_bytes,omitempty"`
}

// AuthConfig contains credential settings.
type AuthConfig struct {
	APIKeys     []APIKeyEntry `yaml:"api_keys,omitempty"`
	JWTSecret   string        `yaml:"jwt_secret,omitempty"`
	TokenTTL    string        `yaml:"token_ttl,omitempty"`
	UsersFile   string        `yaml:"users_file,omitempty"`
	DatabaseURL string        `yaml:"database_url,omitempty"`
}

// TTL returns the parsed token lifetime, or zero if unset or invalid.
func (a AuthConfig) TTL() time.Duration {
	d, err := time.ParseDuration(a.TokenTTL)
	if err != nil {
		return 0
	}
	return d
}

// APIKeyEntry is a named static API key.
type APIKeyEntry struct {
	Name string `yaml:"name"`
	Key  string `yaml:"key"`
}

// LogConfig contains logging settings.
type LogConfig struct {
	File      string `yaml:"file,omitempty"`
	AuditFile string `yaml:"audit_file,omitempty"`
	Level     string `yaml:"level,omitempty"`
}
