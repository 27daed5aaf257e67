package config

import (
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
)

func TestDefaultTemplateMatchesDefaults(t *testing.T) {
	var cfg Config
	if err := strictUnmarshal([]byte(defaultConfigTemplate), &cfg); err != nil {
		t.Fatalf("template does not parse: %v", err)
	}
	if !reflect.DeepEqual(&cfg, DefaultConfig()) {
		t.Errorf("template config = %+v\nwant %+v", cfg, *DefaultConfig())
	}
	if err := Validate(DefaultConfig()); err != nil {
		t.Errorf("Validate(DefaultConfig()) = %v", err)
	}
}

func TestParse_OverlaysDefaults(t *testing.T) {
	cfg, err := Parse([]byte(`
policy:
  mode: blocklist
governor:
  max_concurrent: 3
`))
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	if cfg.Policy.Mode != "blocklist" || cfg.Governor.MaxConcurrent != 3 {
		t.Errorf("parsed values not applied: %+v", cfg)
	}
	if cfg.Governor.MaxMemoryMB != 1024 || cfg.Server.Listen != "127.0.0.1:8080" {
		t.Errorf("defaults not kept: %+v", cfg)
	}
	if !cfg.Policy.RegisteredToolsAllowed() {
		t.Error("allow_registered_tools should default to true")
	}
}

func TestParse_Strict(t *testing.T) {
	tests := []struct {
		name string
		yaml string
	}{
		{"unknown top-level", "sever:\n  listen: \":1\"\n"},
		{"unknown nested", "policy:\n  mdoe: allowlist\n"},
		{"type mismatch", "governor:\n  max_concurrent: lots\n"},
		{"malformed", "policy: [\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := Parse([]byte(tt.yaml)); err == nil {
				t.Error("Parse() error = nil, want error")
			}
		})
	}
}

func TestParse_Empty(t *testing.T) {
	cfg, err := Parse(nil)
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(cfg, DefaultConfig()) {
		t.Error("empty input should yield defaults")
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"bad listen", func(c *Config) { c.Server.Listen = "localhost" }, "server.listen"},
		{"bad port", func(c *Config) { c.Server.Listen = ":70000" }, "server.listen"},
		{"negative body", func(c *Config) { c.Server.MaxBodyBytes = -1 }, "server.max_body_bytes"},
		{"bad mode", func(c *Config) { c.Policy.Mode = "denylist" }, "policy.mode"},
		{"bad allow", func(c *Config) { c.Policy.Allow = []string{"rm -rf"} }, "policy.allow[0]"},
		{"empty allow", func(c *Config) { c.Policy.Allow = []string{"*"} }, "policy.allow[0]"},
		{"negative concurrency", func(c *Config) { c.Governor.MaxConcurrent = -1 }, "governor.max_concurrent"},
		{"too many workers", func(c *Config) { c.Executor.Workers = 5000 }, "executor.workers"},
		{"bad inherit env", func(c *Config) { c.Executor.InheritEnv = []string{"A=B"} }, "executor.inherit_env[0]"},
		{"reserved inherit env", func(c *Config) { c.Executor.InheritEnv = []string{"PATH", "CMDGATE_JWT_SECRET"} }, "executor.inherit_env[1]"},
		{"short key", func(c *Config) { c.Auth.APIKeys = []APIKeyEntry{{Name: "a", Key: "short"}} }, "auth.api_keys[0].key"},
		{"unnamed key", func(c *Config) { c.Auth.APIKeys = []APIKeyEntry{{Key: strings.Repeat("k", 20)}} }, "auth.api_keys[0].name"},
		{"duplicate key name", func(c *Config) {
			k := strings.Repeat("k", 20)
			c.Auth.APIKeys = []APIKeyEntry{{Name: "a", Key: k}, {Name: "a", Key: k}}
		}, "duplicate"},
		{"short secret", func(c *Config) { c.Auth.JWTSecret = "abc" }, "auth.jwt_secret"},
		{"bad ttl", func(c *Config) { c.Auth.TokenTTL = "soon" }, "auth.token_ttl"},
		{"negative ttl", func(c *Config) { c.Auth.TokenTTL = "-1m" }, "auth.token_ttl"},
		{"bad level", func(c *Config) { c.Log.Level = "verbose" }, "log.level"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			err := Validate(cfg)
			if err == nil {
				t.Fatal("Validate() error = nil, want error")
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("Validate() error = %q, want containing %q", err.Error(), tt.wantErr)
			}
		})
	}
}

func TestParse_NullInheritEnvInheritsNothing(t *testing.T) {
	cfg, err := Parse([]byte("executor:\n  inherit_env:\n"))
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	if err := Validate(cfg); err != nil {
		t.Fatalf("Validate() error = %v", err)
	}
	if len(cfg.Executor.InheritEnv) != 0 {
		t.Errorf("InheritEnv = %#v, want empty", cfg.Executor.InheritEnv)
	}
}

func TestValidate_PrefixAllowEntry(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Policy.Allow = []string{"python*"}
	if err := Validate(cfg); err != nil {
		t.Errorf("Validate() error = %v", err)
	}
}

func TestApplyEnv(t *testing.T) {
	env := map[string]string{
		EnvAPIKey:      "from-env-0123456789",
		EnvJWTSecret:   strings.Repeat("s", 32),
		EnvDatabaseURL: "postgres://u:p@db/cmdgate",
		EnvListen:      ":9090",
	}
	cfg := DefaultConfig()
	ApplyEnv(cfg, func(k string) (string, bool) {
		v, ok := env[k]
		return v, ok
	})

	if len(cfg.Auth.APIKeys) != 1 || cfg.Auth.APIKeys[0].Key != env[EnvAPIKey] || cfg.Auth.APIKeys[0].Name != "env" {
		t.Errorf("APIKeys = %+v", cfg.Auth.APIKeys)
	}
	if cfg.Auth.JWTSecret != env[EnvJWTSecret] || cfg.Auth.DatabaseURL != env[EnvDatabaseURL] || cfg.Server.Listen != ":9090" {
		t.Errorf("overrides not applied: %+v", cfg)
	}
}

func TestLoad(t *testing.T) {
	tmp := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", tmp)
	t.Setenv("XDG_STATE_HOME", filepath.Join(tmp, "state"))
	t.Setenv(EnvListen, "")
	t.Setenv(EnvAPIKey, "")
	t.Setenv(EnvJWTSecret, "")
	t.Setenv(EnvDatabaseURL, "")

	// Missing file yields defaults and does not create the file.
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Server.Listen != "127.0.0.1:8080" {
		t.Errorf("Listen = %q", cfg.Server.Listen)
	}
	if cfg.Auth.UsersFile != UsersPath() {
		t.Errorf("UsersFile = %q, want %q", cfg.Auth.UsersFile, UsersPath())
	}
	if cfg.Log.AuditFile == "" || strings.HasPrefix(cfg.Log.AuditFile, "~") {
		t.Errorf("AuditFile = %q, want expanded default", cfg.Log.AuditFile)
	}
	if _, err := os.Stat(Path()); !os.IsNotExist(err) {
		t.Errorf("Load() should not create %s", Path())
	}

	if err := EnsureDir(); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(Path(), []byte("governor:\n  max_concurrent: -4\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(""); err == nil || !strings.Contains(err.Error(), "governor.max_concurrent") {
		t.Errorf("Load() error = %v, want validation error", err)
	}

	t.Setenv(EnvListen, ":7070")
	if err := os.WriteFile(Path(), []byte("auth:\n  users_file: ~/u.yaml\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	cfg, err = Load(Path())
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Server.Listen != ":7070" {
		t.Errorf("env override ignored: Listen = %q", cfg.Server.Listen)
	}
	if strings.HasPrefix(cfg.Auth.UsersFile, "~") {
		t.Errorf("UsersFile not expanded: %q", cfg.Auth.UsersFile)
	}
}

func TestWriteDefaultConfig(t *testing.T) {
	tmp := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", tmp)

	created, err := WriteDefaultConfig("")
	if err != nil || !created {
		t.Fatalf("WriteDefaultConfig() = %v, %v", created, err)
	}
	info, err := os.Stat(Path())
	if err != nil {
		t.Fatal(err)
	}
	if perm := info.Mode().Perm(); perm != 0o600 {
		t.Errorf("config file permissions = %o, want 0600", perm)
	}

	if err := os.WriteFile(Path(), []byte("log:\n  level: debug\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	created, err = WriteDefaultConfig("")
	if err != nil || created {
		t.Errorf("second WriteDefaultConfig() = %v, %v; want false, nil", created, err)
	}
	data, _ := os.ReadFile(Path())
	if string(data) != "log:\n  level: debug\n" {
		t.Error("existing config was overwritten")
	}
}

func TestRedacted(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Auth.APIKeys = []APIKeyEntry{{Name: "ci", Key: "super-secret-key-value"}}
	cfg.Auth.JWTSecret = strings.Repeat("j", 32)
	cfg.Auth.DatabaseURL = "postgres://app:hunter2@db:5432/cmdgate"

	data, err := Marshal(Redacted(cfg))
	if err != nil {
		t.Fatal(err)
	}
	out := string(data)
	for _, secret := range []string{"super-secret-key-value", cfg.Auth.JWTSecret, "hunter2"} {
		if strings.Contains(out, secret) {
			t.Errorf("output leaks %q:\n%s", secret, out)
		}
	}
	if !strings.Contains(out, "name: ci") || !strings.Contains(out, "db:5432") {
		t.Errorf("redaction removed too much:\n%s", out)
	}
	if cfg.Auth.APIKeys[0].Key != "super-secret-key-value" {
		t.Error("Redacted mutated the input")
	}
}
