// Package clog is the operational log of cmdgate: what the gateway is doing,
// for the operator. User-facing CLI output lives in internal/term and the
// security trail in internal/audit.
//
// Every line goes to the log file at or above the configured level. Warn
// and Error are also echoed to stderr unless the logger is quiet. Messages
// pass through Redact before they reach any output.
package clog

import (
	"fmt"
	"io"
	"strings"
	"sync"
	"time"
)

// Level is the severity of a log line.
type Level int8

const (
	LevelDebug Level = iota
	LevelInfo
	LevelWarn
	LevelError
)

var levelNames = [...]string{"DEBUG", "INFO", "WARN", "ERROR"}

func (l Level) String() string {
	if l < LevelDebug || l > LevelError {
		return "UNKNOWN"
	}
	return levelNames[l]
}

// ParseLevel maps a config value to a Level. Unknown values mean Info;
// config validation rejects them earlier.
func ParseLevel(s string) Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return LevelDebug
	case "warn", "warning":
		return LevelWarn
	case "error", "err":
		return LevelError
	default:
		return LevelInfo
	}
}

// Logger writes leveled, redacted lines to a file and to stderr.
type Logger struct {
	mu     sync.Mutex
	level  Level
	file   io.Writer
	stderr io.Writer
	quiet  bool
	now    func() time.Time
}

// New creates a Logger. Either writer may be nil.
func New(file, stderr io.Writer, level Level) *Logger {
	return &Logger{level: level, file: file, stderr: stderr, now: time.Now}
}

// SetLevel sets the minimum level written anywhere.
func (l *Logger) SetLevel(level Level) {
	l.mu.Lock()
	l.level = level
	l.mu.Unlock()
}

// SetFile replaces the file output. nil disables it.
func (l *Logger) SetFile(w io.Writer) {
	l.mu.Lock()
	l.file = w
	l.mu.Unlock()
}

// SetStderr replaces the stderr output. nil disables it.
func (l *Logger) SetStderr(w io.Writer) {
	l.mu.Lock()
	l.stderr = w
	l.mu.Unlock()
}

// SetQuiet stops the stderr echo of warnings and errors.
func (l *Logger) SetQuiet(quiet bool) {
	l.mu.Lock()
	l.quiet = quiet
	l.mu.Unlock()
}

// Logf writes one line at level.
func (l *Logger) Logf(level Level, format string, args ...any) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if level < l.level {
		return
	}

	msg := strings.TrimRight(Redact(fmt.Sprintf(format, args...)), "\n")
	if l.file != nil {
		ts := l.now().UTC().Format(time.RFC3339)
		_, _ = fmt.Fprintf(l.file, "%s %-5s %s\n", ts, level, msg)
	}
	if !l.quiet && l.stderr != nil && level >= LevelWarn {
		_, _ = fmt.Fprintf(l.stderr, "cmdgate: %s: %s\n", strings.ToLower(level.String()), msg)
	}
}

func (l *Logger) Debug(format string, args ...any) { l.Logf(LevelDebug, format, args...) }
func (l *Logger) Info(format string, args ...any)  { l.Logf(LevelInfo, format, args...) }
func (l *Logger) Warn(format string, args ...any)  { l.Logf(LevelWarn, format, args...) }
func (l *Logger) Error(format string, args ...any) { l.Logf(LevelError, format, args...) }

// close closes the file output if it is closable and detaches it.
func (l *Logger) close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	c, ok := l.file.(io.Closer)
	l.file = nil
	if !ok {
		return nil
	}
	return c.Close()
}
