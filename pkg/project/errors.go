// SPDX-License-Identifier: MPL-2.0

package project

import (
	"errors"
	"fmt"

	"github.com/afml/afml/pkg/params"
)

var (
	// ErrInvalidDefinition is the sentinel wrapped by DefinitionError.
	ErrInvalidDefinition = errors.New("invalid definition")

	// ErrNotFound is the sentinel wrapped by LookupError.
	ErrNotFound = errors.New("not found")

	// ErrInvalidReference is the sentinel wrapped by RefTypeError.
	ErrInvalidReference = errors.New("invalid reference")

	// ErrInvalidDefinitionPolicy is returned for unknown policy values.
	ErrInvalidDefinitionPolicy = errors.New("invalid definition policy")
)

type (
	// DefinitionError reports an incomplete or malformed entity definition.
	DefinitionError struct {
		// Kind is dataset, model, job or step.
		Kind string
		// Position is the 1-based position of the definition in its list.
		Position int
		// Key is the missing or invalid key.
		Key string
		// Reason overrides the default "missing required key" message.
		Reason string
		// Definition is the offending definition.
		Definition *params.Map
	}

	// LookupError reports a reference to an entity the project does not
	// define.
	LookupError struct {
		Kind string
		Name string
	}

	// RefTypeError reports a reference that formatted to an unusable value.
	RefTypeError struct {
		Kind  string
		Value any
	}
)

// Error implements the error interface.
func (e *DefinitionError) Error() string {
	reason := e.Reason
	if reason == "" {
		reason = fmt.Sprintf("missing required key %q", e.Key)
	}
	label := e.Kind
	if e.Position > 0 {
		label += fmt.Sprintf(" #%d", e.Position)
	}
	if e.Definition != nil {
		return fmt.Sprintf("%s %s: %s", label, e.Definition, reason)
	}
	return label + ": " + reason
}

// Unwrap returns ErrInvalidDefinition for errors.Is() compatibility.
func (e *DefinitionError) Unwrap() error { return ErrInvalidDefinition }

// Error implements the error interface.
func (e *LookupError) Error() string {
	if e.Name == "" {
		return fmt.Sprintf("no %s name provided", e.Kind)
	}
	return fmt.Sprintf("%s %q not found", e.Kind, e.Name)
}

// Unwrap returns ErrNotFound for errors.Is() compatibility.
func (e *LookupError) Unwrap() error { return ErrNotFound }

// Error implements the error interface.
func (e *RefTypeError) Error() string {
	return fmt.Sprintf("%s reference resolved to %s, expected a name or a definition", e.Kind, params.Repr(e.Value))
}

// Unwrap returns ErrInvalidReference for errors.Is() compatibility.
func (e *RefTypeError) Unwrap() error { return ErrInvalidReference }
