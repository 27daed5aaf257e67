package policy

import (
	"fmt"
	"path/filepath"
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"
	"mvdan.cc/sh/v3/syntax"
)

// BlockedSubstrings are matched case-insensitively against the NFKC-normalized
// command string.
var BlockedSubstrings = []string{
	// destructive file operations
	"rm ", "rmdir", "dd ", "shred",
	// power state
	"shutdown", "reboot", "halt", "poweroff",
	// filesystem formatting
	"mkfs", "fdisk",
	// redirection, pipes, chaining, substitution
	">", "<", "|", "&", ";", "$(", "`",
}

// blockedPrograms catch a bare program name that the substring list misses
// because it has no trailing space ("rm" with arguments passed separately).
var blockedPrograms = map[string]struct{}{
	"rm": {}, "rmdir": {}, "dd": {}, "shred": {}, "wipefs": {},
	"shutdown": {}, "reboot": {}, "halt": {}, "poweroff": {},
	"mkfs": {}, "fdisk": {}, "sfdisk": {}, "parted": {},
}

// Blocklist rejects commands matching a known-dangerous pattern. Everything
// else is permitted.
type Blocklist struct {
	deny denyList
}

// NewBlocklist builds a Blocklist with additional deny regexes.
func NewBlocklist(deny []string) *Blocklist {
	return &Blocklist{deny: compileDeny(deny)}
}

// Mode returns ModeBlocklist.
func (b *Blocklist) Mode() Mode { return ModeBlocklist }

// Validate applies, in order: NUL and control characters, blocked
// substrings, blocked program names, shell structure, then deny patterns.
func (b *Blocklist) Validate(command string, args []string) error {
	if err := checkNUL(command, args); err != nil {
		return err
	}
	normalized := strings.ToLower(norm.NFKC.String(command))
	if strings.TrimSpace(normalized) == "" {
		return &Rejection{Reason: "empty command"}
	}
	for _, r := range normalized {
		if unicode.IsControl(r) {
			return &Rejection{Reason: "command contains control character"}
		}
	}
	for _, s := range BlockedSubstrings {
		if strings.Contains(normalized, s) {
			return &Rejection{Reason: fmt.Sprintf("blocked pattern %q", s), Pattern: s}
		}
	}
	if prog := programName(normalized); prog != "" {
		if _, ok := blockedPrograms[prog]; ok {
			return &Rejection{Reason: fmt.Sprintf("blocked program %q", prog), Pattern: prog}
		}
		if strings.HasPrefix(prog, "mkfs.") {
			return &Rejection{Reason: fmt.Sprintf("blocked program %q", prog), Pattern: "mkfs"}
		}
	}
	if err := checkShellStructure(normalized); err != nil {
		return err
	}
	return b.deny.check(command, args)
}

func programName(command string) string {
	fields := strings.Fields(command)
	if len(fields) == 0 {
		return ""
	}
	return filepath.Base(fields[0])
}

// checkShellStructure parses the command as shell source and rejects anything
// beyond one simple command: lists, pipelines, redirections, substitutions,
// subshells, compound statements, background jobs and variable expansion.
func checkShellStructure(command string) error {
	parser := syntax.NewParser(syntax.KeepComments(false), syntax.Variant(syntax.LangBash))
	file, err := parser.Parse(strings.NewReader(command), "")
	if err != nil {
		return &Rejection{Reason: "command is not a plain program invocation"}
	}
	if len(file.Stmts) != 1 {
		return &Rejection{Reason: "command contains more than one statement"}
	}

	var reason string
	syntax.Walk(file, func(node syntax.Node) bool {
		if reason != "" {
			return false
		}
		switch n := node.(type) {
		case *syntax.Stmt:
			switch {
			case n.Background:
				reason = "background job"
			case n.Coprocess:
				reason = "coprocess"
			case len(n.Redirs) > 0:
				reason = "redirection"
			case n.Cmd != nil:
				if _, ok := n.Cmd.(*syntax.CallExpr); !ok {
					reason = "compound command"
				}
			}
		case *syntax.CallExpr:
			if len(n.Assigns) > 0 {
				reason = "variable assignment"
			}
		case *syntax.BinaryCmd:
			reason = "command list or pipeline"
		case *syntax.Subshell:
			reason = "subshell"
		case *syntax.CmdSubst:
			reason = "command substitution"
		case *syntax.ProcSubst:
			reason = "process substitution"
		case *syntax.ArithmExp:
			reason = "arithmetic expansion"
		case *syntax.ParamExp:
			reason = "variable expansion"
		case *syntax.Redirect:
			reason = "redirection"
		}
		return reason == ""
	})
	if reason != "" {
		return &Rejection{Reason: "shell construct not permitted: " + reason}
	}
	return nil
}
