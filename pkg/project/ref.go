// SPDX-License-Identifier: MPL-2.0

package project

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/afml/afml/pkg/params"
)

const (
	// RefNone means no entity was referenced.
	RefNone RefKind = iota
	// RefName references a project entity by name; the name may contain
	// replacement fields.
	RefName
	// RefInline carries a definition built on the fly.
	RefInline
)

type (
	// RefKind tags the declared form of a reference.
	RefKind int

	// Ref is a dataset or model reference as written in a job or step. Value
	// holds the unformatted declaration.
	Ref struct {
		Kind  RefKind
		Value any
	}

	// Resolver turns references into entities for a given scope.
	Resolver struct {
		Project *Project
		// Policy applies to inline definitions; lenient resolution treats an
		// incomplete one as absent.
		Policy DefinitionPolicy
	}
)

// NewRef tags a raw declaration.
func NewRef(v any) Ref {
	switch v.(type) {
	case nil:
		return Ref{Kind: RefNone}
	case *params.Map:
		return Ref{Kind: RefInline, Value: v}
	default:
		return Ref{Kind: RefName, Value: v}
	}
}

// IsZero reports whether the reference is absent.
func (r Ref) IsZero() bool { return r.Kind == RefNone }

// String renders the declaration.
func (k RefKind) String() string {
	switch k {
	case RefName:
		return "name"
	case RefInline:
		return "inline"
	default:
		return "none"
	}
}

// Dataset resolves ref against the scope. The reference is formatted first;
// the result then decides: nil means no dataset, a string is looked up by
// name, a mapping builds an unregistered dataset and an existing *Dataset is
// used as-is. Looked-up datasets are returned as copies with folder and
// params formatted against the scope.
func (r Resolver) Dataset(ref Ref, s *params.Scope) (*Dataset, error) {
	if ref.IsZero() {
		return nil, nil
	}
	v, err := params.Format(ref.Value, s)
	if err != nil {
		return nil, fmt.Errorf("dataset reference: %w", err)
	}
	switch t := v.(type) {
	case nil:
		return nil, nil
	case *Dataset:
		return t, nil
	case *params.Map:
		d, err := ParseDataset(t)
		return lenient(r.Policy, d, err)
	case string:
		d, err := r.Project.Dataset(t)
		if err != nil {
			return nil, err
		}
		return d.resolve(s)
	}
	return nil, &RefTypeError{Kind: "dataset", Value: v}
}

// Model resolves ref against the scope, like Dataset.
func (r Resolver) Model(ref Ref, s *params.Scope) (*Model, error) {
	if ref.IsZero() {
		return nil, nil
	}
	v, err := params.Format(ref.Value, s)
	if err != nil {
		return nil, fmt.Errorf("model reference: %w", err)
	}
	switch t := v.(type) {
	case nil:
		return nil, nil
	case *Model:
		return t, nil
	case *params.Map:
		m, err := ParseModel(t)
		return lenient(r.Policy, m, err)
	case string:
		m, err := r.Project.Model(t)
		if err != nil {
			return nil, err
		}
		return m.resolve(s)
	}
	return nil, &RefTypeError{Kind: "model", Value: v}
}

func lenient[T any](policy DefinitionPolicy, v *T, err error) (*T, error) {
	var de *DefinitionError
	if err != nil && policy == DefinitionsLenient && errors.As(err, &de) {
		slog.Warn("ignoring invalid inline definition", "kind", de.Kind, "reason", de.Error())
		return nil, nil
	}
	return v, err
}

func (d *Dataset) resolve(s *params.Scope) (*Dataset, error) {
	out := *d
	folder, err := params.Text(d.Folder, s)
	if err != nil {
		return nil, fmt.Errorf("dataset %s folder: %w", d.DisplayName(), err)
	}
	out.Folder = folder
	if out.Params, err = params.FormatMap(d.Params, s); err != nil {
		return nil, fmt.Errorf("dataset %s params: %w", d.DisplayName(), err)
	}
	if out.Name == "" {
		out.Name = d.DisplayName()
	}
	return &out, nil
}

func (m *Model) resolve(s *params.Scope) (*Model, error) {
	out := *m
	var err error
	if out.Params, err = params.FormatMap(m.Params, s); err != nil {
		return nil, fmt.Errorf("model %s params: %w", m.DisplayName(), err)
	}
	return &out, nil
}
