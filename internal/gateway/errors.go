package gateway

import (
	"errors"
	"time"
)

// Kind classifies a gateway failure.
type Kind string

const (
	KindAuthDenied         Kind = "auth_denied"
	KindAdmissionDenied    Kind = "admission_denied"
	KindValidationRejected Kind = "validation_rejected"
	KindExecutionFault     Kind = "execution_fault"
	KindInternal           Kind = "internal"
)

// Fault distinguishes execution faults.
type Fault string

const (
	FaultTimeout Fault = "timeout"
	FaultSpawn   Fault = "spawn"
)

// Error is returned by every gateway operation that does not complete
// normally. A non-zero exit status is not an Error.
type Error struct {
	Kind   Kind
	Reason string

	// Cause and RetryAfter are set for KindAdmissionDenied.
	Cause      string
	RetryAfter time.Duration

	// Fault is set for KindExecutionFault.
	Fault Fault

	Err error
}

func (e *Error) Error() string {
	if e.Reason != "" {
		return e.Reason
	}
	return string(e.Kind)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// AsError returns err as an *Error when it is one.
func AsError(err error) (*Error, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e, true
	}
	return nil, false
}

// IsKind reports whether err is a gateway Error of kind k.
func IsKind(err error, k Kind) bool {
	e, ok := AsError(err)
	return ok && e.Kind == k
}

func invalid(reason string, err error) *Error {
	return &Error{Kind: KindValidationRejected, Reason: reason, Err: err}
}
