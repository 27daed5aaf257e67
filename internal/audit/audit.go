// Package audit records every execution and authentication decision made by
// the gateway. Log entries follow a key=value format suitable for parsing and
// analysis. Environment values are never recorded, only their keys, and
// credentials in command lines and reasons are masked with clog.Redact.
package audit

import (
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/xdg/cmdgate/internal/clog"
)

// EventType represents the type of audit event.
type EventType string

// Event types for command execution.
const (
	EventRequest   EventType = "REQUEST"
	EventAdmitDeny EventType = "ADMIT_DENY"
	EventDeny      EventType = "DENY"
	EventComplete  EventType = "COMPLETE"
	EventTimeout   EventType = "TIMEOUT"
	EventFault     EventType = "FAULT"
)

// Event types for authentication.
const (
	EventLogin     EventType = "LOGIN"
	EventLoginFail EventType = "LOGIN_FAIL"
)

// Event represents an audit log entry.
type Event struct {
	Timestamp time.Time
	Type      EventType

	// RequestID correlates all events of one inbound request.
	RequestID string

	// Principal is the authenticated caller, or the attempted user for
	// authentication events.
	Principal string

	// Method is how the principal authenticated (api_key, bearer, password).
	Method string

	// Tool is the registered tool name for tool dispatch.
	Tool string

	// Cmd is the canonical shell-quoted command line. It is redacted on output.
	Cmd string

	// EnvKeys lists environment override names. Values are never logged.
	EnvKeys []string

	// Cause is the admission denial cause (ADMIT_DENY).
	Cause string

	// RetryAfter is the advisory retry delay (ADMIT_DENY).
	RetryAfter time.Duration

	// Reason explains a denial, fault or failed login.
	Reason string

	// Pattern is the policy rule that rejected the command (DENY).
	Pattern string

	// ExitCode is the command exit code (COMPLETE).
	ExitCode int

	// Duration is the execution time (COMPLETE, TIMEOUT, FAULT).
	Duration time.Duration
}

// Format returns the log entry as a formatted string.
// Format: 2024-01-15T14:32:05Z EXEC REQUEST id=5f0c... principal="alice" cmd="nmap -sV example.com"
// Format: 2024-01-15T14:32:05Z AUTH LOGIN principal="alice" method="password"
func (e *Event) Format() string {
	var b strings.Builder

	b.WriteString(e.Timestamp.UTC().Format(time.RFC3339))

	if e.isAuthEvent() {
		b.WriteString(" AUTH ")
	} else {
		b.WriteString(" EXEC ")
	}
	b.WriteString(string(e.Type))

	if e.RequestID != "" {
		b.WriteString(" id=")
		b.WriteString(e.RequestID)
	}
	b.WriteString(" principal=")
	b.WriteString(quoteValue(e.Principal))

	if e.isAuthEvent() {
		writeOptionalField(&b, "method", e.Method)
		writeOptionalField(&b, "reason", clog.Redact(e.Reason))
		return b.String()
	}

	writeOptionalField(&b, "tool", e.Tool)
	if e.Cmd != "" || e.Type == EventRequest {
		b.WriteString(" cmd=")
		b.WriteString(quoteValue(clog.Redact(e.Cmd)))
	}

	e.formatTypeSpecificFields(&b)

	return b.String()
}

func (e *Event) isAuthEvent() bool {
	return e.Type == EventLogin || e.Type == EventLoginFail
}

// formatTypeSpecificFields appends type-specific key=value pairs to the builder.
func (e *Event) formatTypeSpecificFields(b *strings.Builder) {
	switch e.Type {
	case EventRequest:
		writeOptionalField(b, "method", e.Method)
		if len(e.EnvKeys) > 0 {
			keys := append([]string(nil), e.EnvKeys...)
			sort.Strings(keys)
			writeOptionalField(b, "env", strings.Join(keys, ","))
		}
	case EventAdmitDeny:
		writeOptionalField(b, "cause", e.Cause)
		b.WriteString(" retry_after=")
		b.WriteString(strconv.Itoa(int(e.RetryAfter / time.Second)))
	case EventDeny:
		writeOptionalField(b, "reason", clog.Redact(e.Reason))
		writeOptionalField(b, "pattern", e.Pattern)
	case EventComplete:
		b.WriteString(" exit=")
		b.WriteString(strconv.Itoa(e.ExitCode))
		b.WriteString(" duration=")
		b.WriteString(formatDuration(e.Duration))
	case EventTimeout:
		b.WriteString(" duration=")
		b.WriteString(formatDuration(e.Duration))
	case EventFault:
		writeOptionalField(b, "reason", clog.Redact(e.Reason))
		if e.Duration > 0 {
			b.WriteString(" duration=")
			b.WriteString(formatDuration(e.Duration))
		}
	}
}

// writeOptionalField appends " key=quoted_value" to the builder if value is non-empty.
func writeOptionalField(b *strings.Builder, key, value string) {
	if value == "" {
		return
	}
	b.WriteString(" ")
	b.WriteString(key)
	b.WriteString("=")
	b.WriteString(quoteValue(value))
}

// quoteValue returns a quoted string value.
// Values are always quoted for consistency and to handle spaces/special chars.
func quoteValue(s string) string {
	return fmt.Sprintf("%q", s)
}

// formatDuration formats a duration as a human-readable string (e.g., "2.3s", "1m30s").
func formatDuration(d time.Duration) string {
	if d < time.Second {
		return fmt.Sprintf("%.1fms", float64(d)/float64(time.Millisecond))
	}
	if d < time.Minute {
		return fmt.Sprintf("%.1fs", d.Seconds())
	}
	return d.Round(time.Second).String()
}

// Logger writes audit events to an io.Writer. A nil *Logger discards events.
type Logger struct {
	mu  sync.Mutex
	w   io.Writer
	now func() time.Time
}

// NewLogger creates a new audit logger that writes to the given writer.
func NewLogger(w io.Writer) *Logger {
	return &Logger{w: w, now: time.Now}
}

// Log writes an event to the audit log. A zero Timestamp is filled in.
func (l *Logger) Log(e *Event) error {
	if l == nil || l.w == nil {
		return nil
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if e.Timestamp.IsZero() {
		e.Timestamp = l.now()
	}
	line := e.Format() + "\n"
	_, err := l.w.Write([]byte(line))
	if err != nil {
		return fmt.Errorf("write audit event: %w", err)
	}
	return nil
}

// Exec carries the identifying fields shared by every execution event of a
// request.
type Exec struct {
	RequestID string
	Principal string
	Method    string
	Tool      string
	Cmd       string
}

func (l *Logger) logExec(x Exec, e Event) error {
	e.RequestID = x.RequestID
	e.Principal = x.Principal
	e.Tool = x.Tool
	e.Cmd = x.Cmd
	return l.Log(&e)
}

// LogRequest logs an EXEC REQUEST event.
func (l *Logger) LogRequest(x Exec, envKeys []string) error {
	return l.logExec(x, Event{Type: EventRequest, Method: x.Method, EnvKeys: envKeys})
}

// LogAdmitDeny logs an EXEC ADMIT_DENY event.
func (l *Logger) LogAdmitDeny(x Exec, cause string, retryAfter time.Duration) error {
	return l.logExec(x, Event{Type: EventAdmitDeny, Cause: cause, RetryAfter: retryAfter})
}

// LogDeny logs an EXEC DENY event.
func (l *Logger) LogDeny(x Exec, reason, pattern string) error {
	return l.logExec(x, Event{Type: EventDeny, Reason: reason, Pattern: pattern})
}

// LogComplete logs an EXEC COMPLETE event.
func (l *Logger) LogComplete(x Exec, exitCode int, duration time.Duration) error {
	return l.logExec(x, Event{Type: EventComplete, ExitCode: exitCode, Duration: duration})
}

// LogTimeout logs an EXEC TIMEOUT event.
func (l *Logger) LogTimeout(x Exec, duration time.Duration) error {
	return l.logExec(x, Event{Type: EventTimeout, Duration: duration})
}

// LogFault logs an EXEC FAULT event.
func (l *Logger) LogFault(x Exec, reason string, duration time.Duration) error {
	return l.logExec(x, Event{Type: EventFault, Reason: reason, Duration: duration})
}

// LogLogin logs an AUTH LOGIN event.
func (l *Logger) LogLogin(user, method string) error {
	return l.Log(&Event{Type: EventLogin, Principal: user, Method: method})
}

// LogLoginFail logs an AUTH LOGIN_FAIL event.
func (l *Logger) LogLoginFail(user, method, reason string) error {
	return l.Log(&Event{Type: EventLoginFail, Principal: user, Method: method, Reason: reason})
}
