// SPDX-License-Identifier: MPL-2.0

// Package condition evaluates the `if` gates attached to jobs and steps.
package condition

import (
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/afml/afml/pkg/params"
)

const (
	// KindFile passes when the formatted path names an existing regular file.
	KindFile Kind = "file"
	// KindNotFile passes when the formatted path is not an existing regular file.
	KindNotFile Kind = "not_file"

	// PolicyLenient logs unknown kinds and lets them pass.
	PolicyLenient Policy = "lenient"
	// PolicyStrict rejects unknown kinds.
	PolicyStrict Policy = "strict"
)

var (
	// ErrUnknownKind is the sentinel wrapped by UnknownKindError.
	ErrUnknownKind = errors.New("unknown condition kind")

	// ErrInvalidPolicy is returned when a policy string is not recognised.
	ErrInvalidPolicy = errors.New("invalid condition policy")
)

type (
	// Kind names a condition predicate.
	Kind string

	// Policy decides how unknown kinds are treated.
	Policy string

	// UnknownKindError is returned under PolicyStrict for unrecognised kinds.
	UnknownKindError struct {
		Kind string
	}

	// Evaluator checks condition sets.
	Evaluator struct {
		Policy Policy
		// Stat defaults to os.Stat.
		Stat func(string) (os.FileInfo, error)
	}
)

// Error implements the error interface.
func (e *UnknownKindError) Error() string {
	return fmt.Sprintf("'%s' is not a valid condition", e.Kind)
}

// Unwrap returns ErrUnknownKind for errors.Is() compatibility.
func (e *UnknownKindError) Unwrap() error { return ErrUnknownKind }

// IsValid returns whether the policy is one of the defined values.
func (p Policy) IsValid() (bool, []error) {
	switch p {
	case PolicyLenient, PolicyStrict, "":
		return true, nil
	default:
		return false, []error{fmt.Errorf("%w: %q", ErrInvalidPolicy, string(p))}
	}
}

// Evaluate checks every condition of conds in declaration order: each key is
// a kind, each value an expression formatted against the scope. Evaluation
// stops at the first failing condition. An empty set passes.
func (e Evaluator) Evaluate(conds *params.Map, s *params.Scope) (bool, error) {
	for kind, expr := range conds.All() {
		ok, err := e.check(Kind(kind), expr, s)
		if err != nil {
			return false, err
		}
		if !ok {
			return false, nil
		}
	}
	return true, nil
}

func (e Evaluator) check(kind Kind, expr any, s *params.Scope) (bool, error) {
	switch kind {
	case KindFile, KindNotFile:
	default:
		if e.Policy == PolicyStrict {
			return false, &UnknownKindError{Kind: string(kind)}
		}
		slog.Warn("ignoring unknown condition", "kind", string(kind))
		return true, nil
	}

	v, err := params.Format(expr, s)
	if err != nil {
		return false, fmt.Errorf("condition %s: %w", kind, err)
	}
	exists := e.isFile(params.Str(v))
	if kind == KindFile {
		return exists, nil
	}
	return !exists, nil
}

func (e Evaluator) isFile(path string) bool {
	stat := e.Stat
	if stat == nil {
		stat = os.Stat
	}
	info, err := stat(path)
	return err == nil && info.Mode().IsRegular()
}
