// Package executor runs gateway commands as child processes and bounds how
// many of them run at once.
package executor

import (
	"context"
	"fmt"
	"time"
)

// Executor executes commands on the host system.
type Executor interface {
	Execute(ctx context.Context, req Request) Result
}

// Request contains the command execution parameters.
// Command and Args are passed to the process as a discrete argv; they are
// never joined into a string or handed to a shell.
type Request struct {
	Command string
	Args    []string
	Workdir string
	Env     map[string]string
	Timeout time.Duration
}

// Result contains the outcome of a command execution.
type Result struct {
	// Succeeded is true only when the process ran to completion with exit code 0.
	Succeeded bool
	// ExitCode is nil when the process did not run to completion.
	ExitCode *int
	Stdout   string
	Stderr   string
	// Error is set exactly when execution could not run to completion.
	Error    string
	Status   string // "completed", "timeout", "error"
	Duration time.Duration
}

// Status constants for Result.Status.
const (
	StatusCompleted = "completed"
	StatusTimeout   = "timeout"
	StatusError     = "error"
)

// Completed builds the result of a process that exited on its own.
func Completed(exitCode int, stdout, stderr string) Result {
	code := exitCode
	return Result{
		Succeeded: exitCode == 0,
		ExitCode:  &code,
		Stdout:    stdout,
		Stderr:    stderr,
		Status:    StatusCompleted,
	}
}

// TimedOut builds the result of a process that was killed at its deadline.
// No exit code and no partial output are reported.
func TimedOut(timeout time.Duration) Result {
	return Result{
		Status: StatusTimeout,
		Error:  TimeoutMessage(timeout),
	}
}

// Failed builds the result of a process that could not be started.
func Failed(msg string) Result {
	return Result{
		Status: StatusError,
		Error:  msg,
	}
}

// TimeoutMessage formats the error string reported for a timed out command.
func TimeoutMessage(timeout time.Duration) string {
	secs := int(timeout.Round(time.Second) / time.Second)
	if secs < 1 && timeout > 0 {
		return fmt.Sprintf("timed out after %s", timeout)
	}
	return fmt.Sprintf("timed out after %ds", secs)
}

// ExitCodeValue returns the exit code, or -1 if there is none.
func (r Result) ExitCodeValue() int {
	if r.ExitCode == nil {
		return -1
	}
	return *r.ExitCode
}
