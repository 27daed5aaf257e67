package policy

import (
	"regexp"
	"strings"

	"github.com/xdg/cmdgate/internal/clog"
)

// denyList is the operator's extra deny regexes, matched against the
// space-joined command line in both modes.
type denyList []*regexp.Regexp

// compileDeny compiles patterns, logging and dropping any that fail.
func compileDeny(patterns []string) denyList {
	d := make(denyList, 0, len(patterns))
	for _, p := range patterns {
		re, err := regexp.Compile(p)
		if err != nil {
			clog.Warn("policy: skipping deny pattern %q: %v", p, err)
			continue
		}
		d = append(d, re)
	}
	return d
}

func (d denyList) check(command string, args []string) error {
	if len(d) == 0 {
		return nil
	}
	line := command
	if len(args) > 0 {
		line += " " + strings.Join(args, " ")
	}
	for _, re := range d {
		if re.MatchString(line) {
			return &Rejection{Reason: "command matches deny pattern", Pattern: re.String()}
		}
	}
	return nil
}
