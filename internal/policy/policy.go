// Package policy decides whether a requested command may run.
//
// Two strategies exist and exactly one is active per deployment. The
// allow-list strategy is fail-closed: only known program names pass. The
// block-list strategy is fail-open: anything not matching a known-dangerous
// pattern passes. Arguments are never inspected for shell metacharacters
// because they are handed to the process as a discrete argv and never reach
// a shell.
package policy

import (
	"errors"
	"fmt"
	"strings"
)

// Mode selects the validation strategy.
type Mode string

const (
	// ModeAllowlist accepts only commands whose program is listed.
	ModeAllowlist Mode = "allowlist"
	// ModeBlocklist rejects commands matching a dangerous pattern.
	ModeBlocklist Mode = "blocklist"
)

// ParseMode converts a configuration string to a Mode.
func ParseMode(s string) (Mode, error) {
	switch Mode(strings.ToLower(strings.TrimSpace(s))) {
	case ModeAllowlist, "":
		return ModeAllowlist, nil
	case ModeBlocklist:
		return ModeBlocklist, nil
	default:
		return "", fmt.Errorf("unknown policy mode %q (want %q or %q)", s, ModeAllowlist, ModeBlocklist)
	}
}

// Validator decides whether a command with the given arguments may run.
// It returns nil when permitted and a *Rejection otherwise.
type Validator interface {
	Validate(command string, args []string) error
	Mode() Mode
}

// Rejection is the validation error returned for a refused command.
type Rejection struct {
	Reason  string
	Pattern string // the rule that matched, if any
}

func (r *Rejection) Error() string {
	return "command rejected: " + r.Reason
}

// IsRejection reports whether err is a policy rejection and returns it.
func IsRejection(err error) (*Rejection, bool) {
	var r *Rejection
	if errors.As(err, &r) {
		return r, true
	}
	return nil, false
}

// Config configures New.
type Config struct {
	Mode Mode
	// Allow lists program names for the allow-list strategy. An entry ending
	// in "*" matches any program starting with the text before it.
	Allow []string
	// ImplicitAllow is merged into Allow. Used for registered tool executables.
	ImplicitAllow []string
	// Deny holds regular expressions matched against the full command line
	// in both modes. Invalid expressions are logged and skipped.
	Deny []string
}

// New builds the Validator for cfg.Mode.
func New(cfg Config) (Validator, error) {
	mode, err := ParseMode(string(cfg.Mode))
	if err != nil {
		return nil, err
	}
	switch mode {
	case ModeBlocklist:
		return NewBlocklist(cfg.Deny), nil
	default:
		allow := make([]string, 0, len(cfg.Allow)+len(cfg.ImplicitAllow))
		allow = append(allow, cfg.Allow...)
		allow = append(allow, cfg.ImplicitAllow...)
		return NewAllowlist(allow, cfg.Deny), nil
	}
}

// checkNUL rejects any NUL byte in the command or its arguments. A NUL would
// silently truncate the value at the exec boundary.
func checkNUL(command string, args []string) error {
	if strings.ContainsRune(command, 0) {
		return &Rejection{Reason: "command contains NUL byte"}
	}
	for i, a := range args {
		if strings.ContainsRune(a, 0) {
			return &Rejection{Reason: fmt.Sprintf("argument %d contains NUL byte", i)}
		}
	}
	return nil
}
