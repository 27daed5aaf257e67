package audit

import "strings"

// CommandLine renders command and args as one POSIX-shell-quoted line for
// the audit trail. Nothing ever executes it.
//
//	("nmap", ["-sV", "example.com"]) → nmap -sV example.com
//	("echo", ["it's"])               → echo 'it'\''s'
//	("ls", ["-la; rm -rf /"])        → ls '-la; rm -rf /'
func CommandLine(command string, args []string) string {
	if command == "" && len(args) == 0 {
		return ""
	}
	var b strings.Builder
	b.WriteString(quoteWord(command))
	for _, a := range args {
		b.WriteByte(' ')
		b.WriteString(quoteWord(a))
	}
	return b.String()
}

func quoteWord(s string) string {
	switch {
	case s == "":
		return "''"
	case !strings.ContainsFunc(s, needsQuoting):
		return s
	default:
		return "'" + strings.ReplaceAll(s, "'", `'\''`) + "'"
	}
}

// needsQuoting reports whether r is outside [A-Za-z0-9] and -_./:@+=.
func needsQuoting(r rune) bool {
	switch {
	case 'a' <= r && r <= 'z', 'A' <= r && r <= 'Z', '0' <= r && r <= '9':
		return false
	}
	return !strings.ContainsRune("-_./:@+=", r)
}
