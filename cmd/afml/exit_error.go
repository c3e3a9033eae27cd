// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"errors"
	"fmt"

	"github.com/afml/afml/pkg/types"
)

// ExitError carries the process exit code out of a RunE handler.
type ExitError struct {
	Code types.ExitCode
	Err  error
}

// Error returns the wrapped message, or the exit status.
func (e *ExitError) Error() string {
	if e.Err != nil {
		return e.Err.Error()
	}
	return fmt.Sprintf("exit status %d", e.Code)
}

// Unwrap returns the underlying error, if any.
func (e *ExitError) Unwrap() error { return e.Err }

// exitCode maps a command error to the process status: the code of an
// ExitError, 1 otherwise.
func exitCode(err error) int {
	if err == nil {
		return 0
	}
	var ee *ExitError
	if errors.As(err, &ee) && !ee.Code.IsSuccess() {
		return int(ee.Code)
	}
	return 1
}
