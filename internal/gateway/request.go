package gateway

import (
	"fmt"
	"regexp"
	"sort"
	"strings"
	"time"
	"unicode/utf8"
)

// Request limits.
const (
	MaxCommandLength      = 200
	MaxArgs               = 10
	MaxEnv                = 5
	MaxCwdLength          = 100
	DefaultTimeoutSeconds = 30
	MaxTimeoutSeconds     = 300
)

var envKeyRe = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// loaderVars may not be set by callers; they redirect the dynamic loader.
var loaderVars = map[string]bool{
	"LD_PRELOAD":      true,
	"LD_LIBRARY_PATH": true,
	"LD_AUDIT":        true,
}

// CommandRequest is a caller's request to run one program.
type CommandRequest struct {
	Command string            `json:"command"`
	Args    []string          `json:"args,omitempty"`
	Env     map[string]string `json:"env,omitempty"`
	// Timeout in seconds. Zero selects DefaultTimeoutSeconds.
	Timeout int    `json:"timeout,omitempty"`
	Cwd     string `json:"cwd,omitempty"`
}

// Validate checks the request shape. It does not apply the command policy.
func (r CommandRequest) Validate() error {
	if strings.TrimSpace(r.Command) == "" {
		return invalid("command is required", nil)
	}
	if n := utf8.RuneCountInString(r.Command); n > MaxCommandLength {
		return invalid(fmt.Sprintf("command exceeds %d characters", MaxCommandLength), nil)
	}
	if len(r.Args) > MaxArgs {
		return invalid(fmt.Sprintf("too many arguments: %d (max %d)", len(r.Args), MaxArgs), nil)
	}
	for i, a := range r.Args {
		if strings.ContainsRune(a, 0) {
			return invalid(fmt.Sprintf("argument %d contains NUL byte", i), nil)
		}
	}
	if len(r.Env) > MaxEnv {
		return invalid(fmt.Sprintf("too many environment variables: %d (max %d)", len(r.Env), MaxEnv), nil)
	}
	for k, v := range r.Env {
		if !envKeyRe.MatchString(k) {
			return invalid(fmt.Sprintf("invalid environment variable name %q", k), nil)
		}
		if loaderVars[k] || strings.HasPrefix(k, "DYLD_") {
			return invalid(fmt.Sprintf("environment variable %s is not allowed", k), nil)
		}
		if strings.ContainsRune(v, 0) {
			return invalid(fmt.Sprintf("environment variable %s contains NUL byte", k), nil)
		}
	}
	if r.Timeout < 0 || r.Timeout > MaxTimeoutSeconds {
		return invalid(fmt.Sprintf("timeout must be between 1 and %d seconds", MaxTimeoutSeconds), nil)
	}
	if utf8.RuneCountInString(r.Cwd) > MaxCwdLength {
		return invalid(fmt.Sprintf("cwd exceeds %d characters", MaxCwdLength), nil)
	}
	if strings.ContainsRune(r.Cwd, 0) {
		return invalid("cwd contains NUL byte", nil)
	}
	return nil
}

// TimeoutDuration returns the effective timeout.
func (r CommandRequest) TimeoutDuration() time.Duration {
	if r.Timeout <= 0 {
		return DefaultTimeoutSeconds * time.Second
	}
	return time.Duration(r.Timeout) * time.Second
}

// EnvKeys returns the sorted environment variable names. Values are never
// exposed outside the executor.
func (r CommandRequest) EnvKeys() []string {
	if len(r.Env) == 0 {
		return nil
	}
	keys := make([]string, 0, len(r.Env))
	for k := range r.Env {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
