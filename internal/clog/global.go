package clog

import (
	"io"
	"log"
	"os"
	"strings"
	"sync/atomic"
)

var std atomic.Pointer[Logger]

func init() {
	Reset()
}

func global() *Logger { return std.Load() }

// Configure opens logPath (if non-empty) as the global file output and sets
// the level. quiet keeps warnings and errors off stderr, for runs where
// the operator only wants the file.
func Configure(logPath string, debug, quiet bool) error {
	l := global()
	if debug {
		l.SetLevel(LevelDebug)
	}
	l.SetQuiet(quiet)
	if logPath == "" {
		return nil
	}
	f, err := OpenLogFile(logPath)
	if err != nil {
		return err
	}
	l.SetFile(f)
	return nil
}

// SetLevel sets the global minimum level.
func SetLevel(level Level) { global().SetLevel(level) }

func Debug(format string, args ...any) { global().Logf(LevelDebug, format, args...) }
func Info(format string, args ...any)  { global().Logf(LevelInfo, format, args...) }
func Warn(format string, args ...any)  { global().Logf(LevelWarn, format, args...) }
func Error(format string, args ...any) { global().Logf(LevelError, format, args...) }

// Close closes the global log file, if one was configured.
func Close() error {
	return global().close()
}

// Reset restores the default global logger: stderr only, Info level.
func Reset() {
	std.Store(New(nil, os.Stderr, LevelInfo))
}

// Discard drops all global output. Tests call it to keep logs quiet.
func Discard() {
	std.Store(New(nil, nil, LevelError+1))
}

// Capture sends every global line at or above Debug to w and returns a
// func restoring the previous logger.
func Capture(w io.Writer) (restore func()) {
	prev := std.Swap(New(w, nil, LevelDebug))
	return func() { std.Store(prev) }
}

// StdLogger returns a standard library logger that writes each line to the
// global logger at level. Used for http.Server.ErrorLog.
func StdLogger(level Level) *log.Logger {
	return log.New(levelWriter(level), "", 0)
}

type levelWriter Level

func (w levelWriter) Write(p []byte) (int, error) {
	global().Logf(Level(w), "%s", strings.TrimRight(string(p), "\n"))
	return len(p), nil
}
