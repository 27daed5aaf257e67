// Package gateway runs caller requests through authentication, admission,
// validation and execution, in that order.
//
// Each request holds a governor slot from admission until its result is
// shaped, and the slot is released on every exit path. Failures are
// reported as *Error; a command that runs and exits non-zero is a normal
// result.
package gateway

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/xdg/cmdgate/internal/audit"
	"github.com/xdg/cmdgate/internal/auth"
	"github.com/xdg/cmdgate/internal/clog"
	"github.com/xdg/cmdgate/internal/executor"
	"github.com/xdg/cmdgate/internal/governor"
	"github.com/xdg/cmdgate/internal/metrics"
	"github.com/xdg/cmdgate/internal/policy"
	"github.com/xdg/cmdgate/internal/tools"
)

// Execution kinds used for metrics labels.
const (
	kindCommand = "command"
	kindTool    = "tool"
)

// internalReason is the only detail a caller sees for a recovered fault.
const internalReason = "internal error"

// Authenticator verifies a caller credential.
type Authenticator interface {
	Verify(ctx context.Context, cred auth.Credential) (*auth.Principal, error)
}

// Options configures New. Auth, Governor, Policy and Pool are required.
// Policy validates direct commands and ToolPolicy validates rendered tool
// commands; ToolPolicy defaults to Policy. Tools defaults to the builtin
// catalog.
type Options struct {
	Auth       Authenticator
	Governor   *governor.Governor
	Policy     policy.Validator
	ToolPolicy policy.Validator
	Pool       *executor.Pool
	Tools      *tools.Registry
	Audit      *audit.Logger
	Metrics    *metrics.Metrics
}

// Response is the result of a completed or faulted execution.
type Response struct {
	Success    bool   `json:"success"`
	ExitCode   *int   `json:"exit_code,omitempty"`
	Stdout     string `json:"stdout"`
	Stderr     string `json:"stderr"`
	Error      string `json:"error,omitempty"`
	Status     string `json:"status"`
	DurationMS int64  `json:"duration_ms"`
}

// Gateway coordinates one request end to end.
type Gateway struct {
	auth    Authenticator
	gov     *governor.Governor
	policy  policy.Validator
	toolPol policy.Validator
	pool    *executor.Pool
	tools   *tools.Registry
	audit   *audit.Logger
	metrics *metrics.Metrics
}

// New builds a Gateway.
func New(opts Options) (*Gateway, error) {
	switch {
	case opts.Auth == nil:
		return nil, errors.New("gateway: authenticator is required")
	case opts.Governor == nil:
		return nil, errors.New("gateway: governor is required")
	case opts.Policy == nil:
		return nil, errors.New("gateway: policy is required")
	case opts.Pool == nil:
		return nil, errors.New("gateway: executor pool is required")
	}
	reg := opts.Tools
	if reg == nil {
		reg = tools.NewRegistry()
	}
	toolPol := opts.ToolPolicy
	if toolPol == nil {
		toolPol = opts.Policy
	}
	return &Gateway{
		auth:    opts.Auth,
		gov:     opts.Governor,
		policy:  opts.Policy,
		toolPol: toolPol,
		pool:    opts.Pool,
		tools:   reg,
		audit:   opts.Audit,
		metrics: opts.Metrics,
	}, nil
}

// Tools returns the tool registry.
func (g *Gateway) Tools() *tools.Registry {
	return g.tools
}

// Execute runs a single command on behalf of the caller holding cred.
func (g *Gateway) Execute(ctx context.Context, cred auth.Credential, req CommandRequest) (Response, error) {
	x := audit.Exec{RequestID: RequestID(ctx), Cmd: audit.CommandLine(req.Command, req.Args)}
	return g.run(ctx, cred, kindCommand, &x, req.EnvKeys(), func() (executor.Request, error) {
		if err := req.Validate(); err != nil {
			return executor.Request{}, err
		}
		return executor.Request{
			Command: req.Command,
			Args:    req.Args,
			Env:     req.Env,
			Workdir: req.Cwd,
			Timeout: req.TimeoutDuration(),
		}, nil
	})
}

// RunTool resolves the named tool and runs it on behalf of the caller
// holding cred. An unknown tool yields a validation error wrapping
// tools.ErrNotFound.
func (g *Gateway) RunTool(ctx context.Context, cred auth.Credential, name string, req tools.Request) (Response, error) {
	req.Name = name
	x := audit.Exec{RequestID: RequestID(ctx), Tool: name}
	// Rendered up front so the REQUEST event carries the command.
	inv, berr := g.tools.Build(req)
	if berr == nil {
		x.Cmd = audit.CommandLine(inv.Command, inv.Args)
	}
	return g.run(ctx, cred, kindTool, &x, nil, func() (executor.Request, error) {
		if berr != nil {
			return executor.Request{}, invalid(berr.Error(), berr)
		}
		return executor.Request{
			Command: inv.Command,
			Args:    inv.Args,
			Timeout: inv.Timeout,
		}, nil
	})
}

// run is the fixed pipeline shared by Execute and RunTool. prepare performs
// request-specific validation and produces the child request.
func (g *Gateway) run(ctx context.Context, cred auth.Credential, kind string, x *audit.Exec,
	envKeys []string, prepare func() (executor.Request, error)) (resp Response, err error) {
	principal, aerr := g.auth.Verify(ctx, cred)
	if aerr != nil {
		g.metrics.RecordAuthFailure(string(cred.Method()))
		return Response{}, &Error{Kind: KindAuthDenied, Reason: "unauthorized", Err: aerr}
	}
	x.Principal = principal.Subject
	x.Method = string(principal.Method)
	_ = g.audit.LogRequest(*x, envKeys)

	slot, aerr := g.gov.Admit()
	if aerr != nil {
		d, ok := governor.IsDenied(aerr)
		if !ok {
			return Response{}, &Error{Kind: KindInternal, Reason: internalReason, Err: aerr}
		}
		_ = g.audit.LogAdmitDeny(*x, string(d.Cause), d.RetryAfter)
		g.metrics.RecordAdmissionDenied(string(d.Cause))
		return Response{}, &Error{
			Kind:       KindAdmissionDenied,
			Reason:     d.Error(),
			Cause:      string(d.Cause),
			RetryAfter: d.RetryAfter,
			Err:        d,
		}
	}
	defer slot.Release()

	start := time.Now()
	defer func() {
		if r := recover(); r != nil {
			clog.Error("gateway: panic handling request %s (%s): %v", x.RequestID, x.Cmd, r)
			d := time.Since(start)
			_ = g.audit.LogFault(*x, internalReason, d)
			g.metrics.RecordExecution(kind, metrics.OutcomeInternal, d)
			resp = Response{Status: executor.StatusError, Error: internalReason, DurationMS: d.Milliseconds()}
			err = &Error{Kind: KindInternal, Reason: internalReason, Err: fmt.Errorf("panic: %v", r)}
		}
	}()

	execReq, verr := prepare()
	if verr != nil {
		return g.reject(*x, kind, verr)
	}
	validator := g.policy
	if kind == kindTool {
		validator = g.toolPol
	}
	if verr := validator.Validate(execReq.Command, execReq.Args); verr != nil {
		return g.reject(*x, kind, verr)
	}

	res, rerr := g.pool.Run(ctx, execReq)
	if rerr != nil {
		reason := "request canceled"
		if errors.Is(rerr, executor.ErrPoolClosed) {
			reason = "gateway shutting down"
		}
		_ = g.audit.LogFault(*x, reason, time.Since(start))
		return Response{}, &Error{Kind: KindInternal, Reason: reason, Err: rerr}
	}
	return g.shape(*x, kind, res)
}

// reject records a validation or policy failure.
func (g *Gateway) reject(x audit.Exec, kind string, err error) (Response, error) {
	var pattern string
	if r, ok := policy.IsRejection(err); ok {
		pattern = r.Pattern
	}
	e, ok := AsError(err)
	if !ok {
		e = invalid(err.Error(), err)
	}
	_ = g.audit.LogDeny(x, e.Reason, pattern)
	g.metrics.RecordValidationRejected(kind)
	return Response{}, e
}

// shape maps an executor result to the response and records it.
func (g *Gateway) shape(x audit.Exec, kind string, res executor.Result) (Response, error) {
	resp := Response{
		Success:    res.Succeeded,
		ExitCode:   res.ExitCode,
		Stdout:     res.Stdout,
		Stderr:     res.Stderr,
		Error:      res.Error,
		Status:     res.Status,
		DurationMS: res.Duration.Milliseconds(),
	}

	switch res.Status {
	case executor.StatusCompleted:
		_ = g.audit.LogComplete(x, res.ExitCodeValue(), res.Duration)
		outcome := metrics.OutcomeSuccess
		if !res.Succeeded {
			outcome = metrics.OutcomeFailure
		}
		g.metrics.RecordExecution(kind, outcome, res.Duration)
		return resp, nil
	case executor.StatusTimeout:
		_ = g.audit.LogTimeout(x, res.Duration)
		g.metrics.RecordExecution(kind, metrics.OutcomeTimeout, res.Duration)
		return resp, &Error{Kind: KindExecutionFault, Fault: FaultTimeout, Reason: res.Error}
	default:
		_ = g.audit.LogFault(x, res.Error, res.Duration)
		g.metrics.RecordExecution(kind, metrics.OutcomeSpawn, res.Duration)
		return resp, &Error{Kind: KindExecutionFault, Fault: FaultSpawn, Reason: res.Error}
	}
}

// Authenticate verifies cred without admitting a request.
func (g *Gateway) Authenticate(ctx context.Context, cred auth.Credential) (*auth.Principal, error) {
	p, err := g.auth.Verify(ctx, cred)
	if err != nil {
		g.metrics.RecordAuthFailure(string(cred.Method()))
		return nil, &Error{Kind: KindAuthDenied, Reason: "unauthorized", Err: err}
	}
	return p, nil
}
