package cli

import (
	"errors"
	"fmt"

	"github.com/dejobratic/orderflow/internal/orders/app"
	"github.com/dejobratic/orderflow/internal/orders/domain"
)

// Exit codes for CLI commands.
const (
	ExitSuccess          = 0
	ExitFailure          = 1 // internal, database, or setup failure
	ExitValidation       = 2 // bad input, including bad flags
	ExitUnauthorized     = 3
	ExitNotFound         = 4
	ExitAlreadyFulfilled = 5
)

// ExitError carries an exit code out of a command. A nil Err with an empty
// Message means the outcome was already reported on stdout.
type ExitError struct {
	Code    int
	Message string
	Err     error
}

func (e *ExitError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *ExitError) Unwrap() error {
	return e.Err
}

func (e *ExitError) silent() bool {
	return e.Err == nil && e.Message == ""
}

func NewExitError(code int, message string) *ExitError {
	return &ExitError{Code: code, Message: message}
}

func WrapExitError(code int, message string, err error) *ExitError {
	return &ExitError{Code: code, Message: message, Err: err}
}

// GetExitCode extracts the exit code from an error. Errors raised by cobra
// itself (unknown command, missing flag) count as bad input.
func GetExitCode(err error) int {
	if err == nil {
		return ExitSuccess
	}
	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		return exitErr.Code
	}
	return ExitValidation
}

// ExitCodeFor maps a service response onto a process exit code.
func ExitCodeFor(resp app.Response) int {
	if resp.OK {
		return ExitSuccess
	}
	return exitCodeForCode(resp.ErrorCode())
}

func exitCodeForCode(code domain.Code) int {
	switch {
	case code.IsClientInput():
		return ExitValidation
	case code == domain.CodeUnauthorized:
		return ExitUnauthorized
	case code == domain.CodeOrderNotFound:
		return ExitNotFound
	case code == domain.CodeOrderAlreadyFulfilled:
		return ExitAlreadyFulfilled
	default:
		return ExitFailure
	}
}
