// Package prompt reads operator input for the cmdgate CLI: hidden password
// entry and yes/no confirmations. Each prompt has a mock for tests.
package prompt

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/term"
)

// ErrMismatch is returned by ReadNewPassword when the confirmation differs.
var ErrMismatch = errors.New("passwords do not match")

// CredentialReader reads a secret without echoing it.
type CredentialReader interface {
	ReadCredential(prompt string) (string, error)
}

// TerminalCredentialReader implements CredentialReader on a real terminal.
type TerminalCredentialReader struct {
	In  *os.File
	Out io.Writer

	lines *bufio.Reader // non-terminal input, created on first read
}

// NewTerminalCredentialReader creates a TerminalCredentialReader that reads
// from in (typically os.Stdin) and writes prompts to out.
func NewTerminalCredentialReader(in *os.File, out io.Writer) *TerminalCredentialReader {
	return &TerminalCredentialReader{In: in, Out: out}
}

// IsTerminal reports whether the reader is attached to a terminal.
func (r *TerminalCredentialReader) IsTerminal() bool {
	return term.IsTerminal(int(r.In.Fd()))
}

// ReadCredential displays the prompt and reads input with echoing disabled.
// When In is not a terminal a single line is read instead, so passwords
// can be piped in.
func (r *TerminalCredentialReader) ReadCredential(prompt string) (string, error) {
	_, _ = fmt.Fprint(r.Out, prompt)

	if !r.IsTerminal() {
		if r.lines == nil {
			r.lines = bufio.NewReader(r.In)
		}
		line, err := r.lines.ReadString('\n')
		if err != nil && !errors.Is(err, io.EOF) {
			return "", fmt.Errorf("read credential: %w", err)
		}
		_, _ = fmt.Fprintln(r.Out)
		return strings.TrimRight(line, "\r\n"), nil
	}

	credential, err := term.ReadPassword(int(r.In.Fd()))
	if err != nil {
		return "", fmt.Errorf("read credential: %w", err)
	}
	// ReadPassword swallows the newline.
	_, _ = fmt.Fprintln(r.Out)
	return string(credential), nil
}

// ReadNewPassword asks for a password and returns it when it is at least
// minLen bytes long. Interactive readers are asked twice and both entries
// must match; a reader whose IsTerminal reports false is read once.
func ReadNewPassword(r CredentialReader, minLen int) (string, error) {
	pw, err := r.ReadCredential("Password: ")
	if err != nil {
		return "", err
	}
	if len(pw) < minLen {
		return "", fmt.Errorf("password must be at least %d characters", minLen)
	}
	if t, ok := r.(interface{ IsTerminal() bool }); ok && !t.IsTerminal() {
		return pw, nil
	}
	confirm, err := r.ReadCredential("Confirm password: ")
	if err != nil {
		return "", err
	}
	if pw != confirm {
		return "", ErrMismatch
	}
	return pw, nil
}

// MockCredentialReader returns queued credentials for tests.
type MockCredentialReader struct {
	Credentials []string
	// Errors, when non-nil at the call's index, is returned instead.
	Errors []error
	// Calls records every prompt shown.
	Calls []string

	callIndex int
}

// NewMockCredentialReader creates a MockCredentialReader with the given credentials.
func NewMockCredentialReader(credentials ...string) *MockCredentialReader {
	return &MockCredentialReader{Credentials: credentials}
}

// ReadCredential returns the next queued credential, or "" once exhausted.
func (m *MockCredentialReader) ReadCredential(prompt string) (string, error) {
	m.Calls = append(m.Calls, prompt)
	i := m.callIndex
	m.callIndex++

	if i < len(m.Errors) && m.Errors[i] != nil {
		return "", m.Errors[i]
	}
	if i < len(m.Credentials) {
		return m.Credentials[i], nil
	}
	return "", nil
}

// YesNoPrompter asks for a confirmation.
type YesNoPrompter interface {
	// PromptYesNo returns defaultYes when the user just presses Enter.
	PromptYesNo(prompt string, defaultYes bool) (bool, error)
}

// StdinYesNoPrompter implements YesNoPrompter on plain reader and writer.
type StdinYesNoPrompter struct {
	In  io.Reader
	Out io.Writer
}

// NewStdinYesNoPrompter creates a StdinYesNoPrompter that reads from r and writes to w.
func NewStdinYesNoPrompter(r io.Reader, w io.Writer) *StdinYesNoPrompter {
	return &StdinYesNoPrompter{In: r, Out: w}
}

// PromptYesNo accepts y/yes and n/no in any case.
func (p *StdinYesNoPrompter) PromptYesNo(prompt string, defaultYes bool) (bool, error) {
	hint := " [y/N] "
	if defaultYes {
		hint = " [Y/n] "
	}
	_, _ = fmt.Fprint(p.Out, prompt+hint)

	line, err := bufio.NewReader(p.In).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return false, fmt.Errorf("read input: %w", err)
	}

	switch input := strings.ToLower(strings.TrimSpace(line)); input {
	case "":
		return defaultYes, nil
	case "y", "yes":
		return true, nil
	case "n", "no":
		return false, nil
	default:
		return false, fmt.Errorf("invalid input %q: expected y/n", input)
	}
}

// MockYesNoPrompter returns queued answers for tests.
type MockYesNoPrompter struct {
	Responses []bool
	Errors    []error
	Calls     []string

	callIndex int
}

// NewMockYesNoPrompter creates a MockYesNoPrompter with the given responses.
func NewMockYesNoPrompter(responses ...bool) *MockYesNoPrompter {
	return &MockYesNoPrompter{Responses: responses}
}

// PromptYesNo returns the next queued answer, or defaultYes once exhausted.
func (m *MockYesNoPrompter) PromptYesNo(prompt string, defaultYes bool) (bool, error) {
	m.Calls = append(m.Calls, prompt)
	i := m.callIndex
	m.callIndex++

	if i < len(m.Errors) && m.Errors[i] != nil {
		return false, m.Errors[i]
	}
	if i < len(m.Responses) {
		return m.Responses[i], nil
	}
	return defaultYes, nil
}
