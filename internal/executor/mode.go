// SPDX-License-Identifier: MPL-2.0

package executor

import (
	"errors"
	"fmt"
)

const (
	// ModeAuto infers the variant from the definition keys.
	ModeAuto Mode = "auto"
	// ModePython runs the interpreter variant.
	ModePython Mode = "python"
	// ModePythonModule runs the interpreter variant with -m.
	ModePythonModule Mode = "python-module"
	// ModeShell runs the shell variant.
	ModeShell Mode = "shell"

	// ShellNative runs commands through the host shell.
	ShellNative ShellRuntime = "native"
	// ShellVirtual runs commands through the embedded shell interpreter.
	ShellVirtual ShellRuntime = "virtual"

	// DefaultInterpreter is used when no interpreter is configured.
	DefaultInterpreter = "python"
)

var (
	// ErrInvalidMode is returned for unknown mode values.
	ErrInvalidMode = errors.New("invalid executor mode")

	// ErrInvalidShellRuntime is returned for unknown shell runtimes.
	ErrInvalidShellRuntime = errors.New("invalid shell runtime")

	// ErrNoShell is returned when no host shell can be found.
	ErrNoShell = errors.New("no shell found")
)

type (
	// Mode is the declared executor variant.
	Mode string

	// ShellRuntime selects how shell steps are run.
	ShellRuntime string
)

// IsValid returns whether the mode is one of the defined values.
func (m Mode) IsValid() (bool, []error) {
	switch m {
	case ModeAuto, ModePython, ModePythonModule, ModeShell:
		return true, nil
	default:
		return false, []error{fmt.Errorf("%w: %q (expected auto, python, python-module or shell)", ErrInvalidMode, string(m))}
	}
}

// String returns the string representation of the Mode.
func (m Mode) String() string { return string(m) }

// IsValid returns whether the runtime is one of the defined values.
func (r ShellRuntime) IsValid() (bool, []error) {
	switch r {
	case ShellNative, ShellVirtual:
		return true, nil
	default:
		return false, []error{fmt.Errorf("%w: %q (expected native or virtual)", ErrInvalidShellRuntime, string(r))}
	}
}

// String returns the string representation of the ShellRuntime.
func (r ShellRuntime) String() string { return string(r) }
