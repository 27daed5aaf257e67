package policy

import (
	"fmt"
	"sort"
	"strings"
)

// Allowlist accepts a command only if its program is a listed name.
type Allowlist struct {
	exact    map[string]struct{}
	prefixes []string
	deny     denyList
}

// NewAllowlist builds an Allowlist from entries. Entries ending in "*" are
// prefix matches; all others must match exactly. Empty entries are ignored.
// deny holds extra regexes checked after the allow-list passes.
func NewAllowlist(entries, deny []string) *Allowlist {
	a := &Allowlist{exact: make(map[string]struct{}, len(entries)), deny: compileDeny(deny)}
	for _, e := range entries {
		e = strings.TrimSpace(e)
		if e == "" || e == "*" {
			continue
		}
		if strings.HasSuffix(e, "*") {
			a.prefixes = append(a.prefixes, strings.TrimSuffix(e, "*"))
			continue
		}
		a.exact[e] = struct{}{}
	}
	return a
}

// Mode returns ModeAllowlist.
func (a *Allowlist) Mode() Mode { return ModeAllowlist }

// Validate checks the program named by command. The command must be a single
// token; arguments belong in args.
func (a *Allowlist) Validate(command string, args []string) error {
	if err := checkNUL(command, args); err != nil {
		return err
	}
	fields := strings.Fields(command)
	if len(fields) == 0 {
		return &Rejection{Reason: "empty command"}
	}
	if len(fields) > 1 {
		return &Rejection{Reason: "command must be a single program name; pass arguments separately"}
	}
	if !a.allowed(fields[0]) {
		return &Rejection{Reason: fmt.Sprintf("program %q is not in the allow-list", fields[0])}
	}
	return a.deny.check(command, args)
}

// allowed matches the token exactly as given. A path such as "/bin/ls" is
// not admitted by an "ls" entry.
func (a *Allowlist) allowed(program string) bool {
	if _, ok := a.exact[program]; ok {
		return true
	}
	for _, p := range a.prefixes {
		if strings.HasPrefix(program, p) {
			return true
		}
	}
	return false
}

// Entries returns the configured entries sorted, with prefix entries
// rendered with their trailing "*".
func (a *Allowlist) Entries() []string {
	out := make([]string, 0, len(a.exact)+len(a.prefixes))
	for e := range a.exact {
		out = append(out, e)
	}
	for _, p := range a.prefixes {
		out = append(out, p+"*")
	}
	sort.Strings(out)
	return out
}
