// SPDX-License-Identifier: MPL-2.0

package engine

import (
	"errors"
	"fmt"

	"github.com/afml/afml/pkg/types"
)

// ErrStepFailed is the sentinel wrapped by StepFailedError.
var ErrStepFailed = errors.New("step failed")

type (
	// StepFailedError reports a step that exited non-zero.
	StepFailedError struct {
		Job      string
		Step     string
		ExitCode types.ExitCode
	}

	// EntityError attaches the job and step being resolved to a formatting,
	// lookup or spawn error.
	EntityError struct {
		Job string
		// Step is empty for job-level errors.
		Step string
		Err  error
	}
)

// Error implements the error interface.
func (e *StepFailedError) Error() string {
	return fmt.Sprintf("step %q of job %q failed with exit code %d", e.Step, e.Job, e.ExitCode)
}

// Unwrap returns ErrStepFailed for errors.Is() compatibility.
func (e *StepFailedError) Unwrap() error { return ErrStepFailed }

// Error implements the error interface.
func (e *EntityError) Error() string {
	if e.Step == "" {
		return fmt.Sprintf("job %q: %v", e.Job, e.Err)
	}
	return fmt.Sprintf("job %q, step %q: %v", e.Job, e.Step, e.Err)
}

// Unwrap returns the underlying error.
func (e *EntityError) Unwrap() error { return e.Err }
