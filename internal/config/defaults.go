package config

// boolPtr returns a pointer to a bool value.
func boolPtr(b bool) *bool {
	return &b
}

// DefaultConfig returns a Config with all defaults populated.
//
// The default allowlist holds only programs that read system state. Tool
// executables are admitted separately through allow_registered_tools.
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Listen:       "127.0.0.1:8080",
			MaxBodyBytes: 65536,
		},
		Policy: PolicyConfig{
			Mode: "allowlist",
			Allow: []string{
				"echo",
				"date",
				"uname",
				"hostname",
				"whoami",
				"uptime",
				"pwd",
				"ls",
			},
			AllowRegisteredTools: boolPtr(true),
		},
		Governor: GovernorConfig{
			MaxConcurrent: 10,
			MaxMemoryMB:   1024,
		},
		Executor: ExecutorConfig{
			Workers:        10,
			InheritEnv:     []string{"PATH", "HOME", "LANG", "LC_ALL", "TERM", "TMPDIR", "USER"},
			MaxOutputBytes: 1 << 20,
		},
		Auth: AuthConfig{
			TokenTTL: "30m",
		},
		Log: LogConfig{
			Level: "info",
		},
	}
}

// defaultConfigTemplate is written by WriteDefaultConfig. It must parse to
// a config equivalent to DefaultConfig.
const defaultConfigTemplate = `# cmdgate configuration
# Values left commented out use the built-in default.

# HTTP listener
server:
  listen: "127.0.0.1:8080"
  max_body_bytes: 65536

# Command policy
#   allowlist: only listed programs run (an entry ending in * matches by prefix)
#   blocklist: anything runs unless it matches a dangerous pattern
policy:
  mode: "allowlist"
  allow:
    - "echo"
    - "date"
    - "uname"
    - "hostname"
    - "whoami"
    - "uptime"
    - "pwd"
    - "ls"
  # Regular expressions matched against "command args..." in both modes.
  # deny:
  #   - "^ls /root"
  # Admit every catalog tool's executable on POST /tools/{name} only.
  # POST /execute still needs the program listed in allow.
  allow_registered_tools: true

# Admission ceilings
governor:
  max_concurrent: 10
  max_memory_mb: 1024

# Child processes
executor:
  workers: 10
  # Gateway variables passed to children. An empty list passes none, and
  # CMDGATE_* variables are refused.
  inherit_env: ["PATH", "HOME", "LANG", "LC_ALL", "TERM", "TMPDIR", "USER"]
  max_output_bytes: 1048576

# Credentials. Prefer CMDGATE_API_KEY and CMDGATE_JWT_SECRET over storing
# secrets here.
auth:
  # api_keys:
  #   - name: "ci"
  #     key: "generate with: cmdgate key generate"
  # jwt_secret: ""
  token_ttl: "30m"
  # users_file: "~/.config/cmdgate/users.yaml"
  # database_url: "postgres://cmdgate@localhost/cmdgate"

log:
  # file: "~/.local/state/cmdgate/cmdgate.log"
  # audit_file: "~/.local/state/cmdgate/audit.log"
  level: "info"
`
