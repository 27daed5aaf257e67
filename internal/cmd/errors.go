package cmd

import (
	"errors"
	"fmt"

	"github.com/xdg/cmdgate/internal/auth"
)

// Exit codes other than the generic 1.
const (
	// ExitDenied is returned by `cmdgate check` when the policy refuses the
	// command.
	ExitDenied = 2
)

// ExitCodeError is an error that carries a specific process exit code.
// main inspects it with errors.As.
type ExitCodeError struct {
	Code int
}

// NewExitCodeError creates an ExitCodeError for code.
func NewExitCodeError(code int) *ExitCodeError {
	return &ExitCodeError{Code: code}
}

func (e *ExitCodeError) Error() string {
	return fmt.Sprintf("exit code %d", e.Code)
}

// userStoreError turns store sentinels into operator-facing messages.
func userStoreError(username string, err error) error {
	switch {
	case errors.Is(err, auth.ErrUserNotFound):
		return fmt.Errorf("user %q does not exist", username)
	case errors.Is(err, auth.ErrUserExists):
		return fmt.Errorf("user %q already exists", username)
	default:
		return err
	}
}
