package executor

import (
	"bytes"
	"context"
	"errors"
	"io/fs"
	"os"
	"os/exec"
	"strings"
	"time"
)

// DefaultTimeout applies when a Request carries no timeout.
const DefaultTimeout = 30 * time.Second

// DefaultMaxOutputBytes caps each of stdout and stderr.
const DefaultMaxOutputBytes = 1 << 20

// TruncationMarker is appended to output that exceeded the cap.
const TruncationMarker = "\n[output truncated]"

// DefaultInheritEnv lists the variables a child inherits from the gateway
// process when no explicit list is configured.
var DefaultInheritEnv = []string{"PATH", "HOME", "LANG", "LC_ALL", "TERM", "TMPDIR", "USER"}

// ReservedEnvPrefix marks the gateway's own settings, which hold secrets.
// Variables with this prefix are never inherited, even when listed.
const ReservedEnvPrefix = "CMDGATE_"

// RealExecutor executes commands using os/exec.
type RealExecutor struct {
	inheritEnv     []string
	maxOutputBytes int
}

// Option configures a RealExecutor.
type Option func(*RealExecutor)

// WithInheritEnv sets the names of gateway environment variables passed
// through to children. An empty or nil list inherits nothing.
func WithInheritEnv(names []string) Option {
	return func(e *RealExecutor) {
		e.inheritEnv = names
	}
}

// WithMaxOutputBytes caps each captured stream. Zero or negative disables the cap.
func WithMaxOutputBytes(n int) Option {
	return func(e *RealExecutor) {
		e.maxOutputBytes = n
	}
}

// NewRealExecutor creates a new RealExecutor.
func NewRealExecutor(opts ...Option) *RealExecutor {
	e := &RealExecutor{
		inheritEnv:     DefaultInheritEnv,
		maxOutputBytes: DefaultMaxOutputBytes,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Execute runs a command and returns the result.
func (e *RealExecutor) Execute(ctx context.Context, req Request) Result {
	start := time.Now()
	res := e.execute(ctx, req)
	res.Duration = time.Since(start)
	return res
}

func (e *RealExecutor) execute(ctx context.Context, req Request) Result {
	timeout := req.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	runCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	cmd := exec.CommandContext(runCtx, req.Command, req.Args...)
	if req.Workdir != "" {
		cmd.Dir = req.Workdir
	}
	cmd.Env = e.environ(req.Env)
	setupProcessGroup(cmd)

	stdout := newCappedBuffer(e.maxOutputBytes)
	stderr := newCappedBuffer(e.maxOutputBytes)
	cmd.Stdout = stdout
	cmd.Stderr = stderr

	if err := cmd.Start(); err != nil {
		return Failed(spawnMessage(req, err))
	}

	err := cmd.Wait()

	// Deadline wins over whatever Wait reported: the group was killed.
	if errors.Is(runCtx.Err(), context.DeadlineExceeded) && ctx.Err() == nil {
		return TimedOut(timeout)
	}
	if ctx.Err() != nil {
		return Failed("execution canceled")
	}

	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			return Completed(exitErr.ExitCode(), stdout.String(), stderr.String())
		}
		// Grandchildren holding the pipes open past WaitDelay; the child itself exited.
		if errors.Is(err, exec.ErrWaitDelay) && cmd.ProcessState != nil {
			return Completed(cmd.ProcessState.ExitCode(), stdout.String(), stderr.String())
		}
		return Failed(err.Error())
	}

	return Completed(0, stdout.String(), stderr.String())
}

// environ builds the child environment from the inherited allow-list plus
// the request overrides. Overrides win.
func (e *RealExecutor) environ(overrides map[string]string) []string {
	env := make([]string, 0, len(e.inheritEnv)+len(overrides))
	for _, name := range e.inheritEnv {
		if strings.HasPrefix(name, ReservedEnvPrefix) {
			continue
		}
		if v, ok := os.LookupEnv(name); ok {
			env = append(env, name+"="+v)
		}
	}
	for k, v := range overrides {
		env = append(env, k+"="+v)
	}
	return env
}

// spawnMessage describes a start failure without echoing host paths back.
func spawnMessage(req Request, err error) string {
	var execErr *exec.Error
	if errors.As(err, &execErr) {
		return "executable not found: " + req.Command
	}
	var pathErr *fs.PathError
	if errors.As(err, &pathErr) && pathErr.Op == "chdir" {
		return "working directory unavailable: " + req.Workdir
	}
	if errors.Is(err, fs.ErrPermission) {
		return "permission denied: " + req.Command
	}
	if errors.Is(err, fs.ErrNotExist) {
		return "executable not found: " + req.Command
	}
	return "failed to start command: " + req.Command
}

// cappedBuffer keeps at most limit bytes and silently drops the rest.
type cappedBuffer struct {
	buf       bytes.Buffer
	limit     int
	truncated bool
}

func newCappedBuffer(limit int) *cappedBuffer {
	return &cappedBuffer{limit: limit}
}

// Write never fails so the child is not killed by EPIPE once the cap is hit.
func (b *cappedBuffer) Write(p []byte) (int, error) {
	if b.limit <= 0 {
		return b.buf.Write(p)
	}
	room := b.limit - b.buf.Len()
	if room <= 0 {
		b.truncated = len(p) > 0 || b.truncated
		return len(p), nil
	}
	if len(p) > room {
		b.buf.Write(p[:room])
		b.truncated = true
		return len(p), nil
	}
	b.buf.Write(p)
	return len(p), nil
}

func (b *cappedBuffer) String() string {
	if !b.truncated {
		return b.buf.String()
	}
	var sb strings.Builder
	sb.Grow(b.buf.Len() + len(TruncationMarker))
	sb.Write(b.buf.Bytes())
	sb.WriteString(TruncationMarker)
	return sb.String()
}
