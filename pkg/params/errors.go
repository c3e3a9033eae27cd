// SPDX-License-Identifier: MPL-2.0

package params

import (
	"errors"
	"fmt"
)

var (
	// ErrMissingName is the sentinel wrapped by MissingNameError.
	ErrMissingName = errors.New("name not found")

	// ErrMalformed is the sentinel wrapped by MalformedError.
	ErrMalformed = errors.New("malformed expression")
)

type (
	// MissingNameError is returned when a replacement field references a name,
	// attribute or index that the scope does not provide.
	MissingNameError struct {
		Name  string
		Input string
	}

	// MalformedError is returned when a string cannot be parsed as a format
	// template or its expression cannot be evaluated.
	MalformedError struct {
		Input  string
		Reason string
	}
)

// Error implements the error interface.
func (e *MissingNameError) Error() string {
	if e.Input == "" {
		return fmt.Sprintf("'%s' not found", e.Name)
	}
	return fmt.Sprintf("'%s' not found when formatting '%s'", e.Name, e.Input)
}

// Unwrap returns ErrMissingName for errors.Is() compatibility.
func (e *MissingNameError) Unwrap() error { return ErrMissingName }

// Error implements the error interface.
func (e *MalformedError) Error() string {
	if e.Input == "" {
		return e.Reason
	}
	return fmt.Sprintf("cannot format '%s': %s", e.Input, e.Reason)
}

// Unwrap returns ErrMalformed for errors.Is() compatibility.
func (e *MalformedError) Unwrap() error { return ErrMalformed }

func malformed(format string, args ...any) error {
	return &MalformedError{Reason: fmt.Sprintf(format, args...)}
}

// withInput attaches the offending input string to formatter errors that were
// raised deep in the template machinery.
func withInput(err error, input string) error {
	if err == nil {
		return nil
	}
	var missing *MissingNameError
	if errors.As(err, &missing) && missing.Input == "" {
		missing.Input = input
		return missing
	}
	var bad *MalformedError
	if errors.As(err, &bad) && bad.Input == "" {
		bad.Input = input
		return bad
	}
	return err
}
