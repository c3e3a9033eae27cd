// SPDX-License-Identifier: MPL-2.0

package project

import (
	"fmt"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/afml/afml/pkg/matrix"
	"github.com/afml/afml/pkg/params"
)

const (
	// DefinitionsStrict fails the load on the first invalid definition.
	DefinitionsStrict DefinitionPolicy = "strict"
	// DefinitionsLenient drops invalid definitions with a warning.
	DefinitionsLenient DefinitionPolicy = "lenient"
)

type (
	// DefinitionPolicy decides what happens to incomplete definitions.
	DefinitionPolicy string

	// Project is the root of a loaded definition.
	Project struct {
		// Path is the file the project was loaded from, if any.
		Path     string
		Datasets []*Dataset
		Models   []*Model
		Jobs     []*Job
		Matrix   matrix.Matrix
		Params   *params.Map
	}

	// Dataset is a named data folder.
	Dataset struct {
		// Name is the declared name; empty means derived from Folder.
		Name   string
		Folder string
		Params *params.Map
	}

	// Model is a callable in a source file or module, written "path:callable".
	Model struct {
		// Name is the declared name; empty means derived from Module.
		Name     string
		Module   string
		Callable string
		Params   *params.Map
	}

	// Job is an ordered list of steps run for every matrix instance.
	Job struct {
		Name       string
		Index      int
		Steps      []*Step
		Dataset    Ref
		Model      Ref
		Params     *params.Map
		Conditions *params.Map
		Matrix     matrix.Matrix
	}

	// Step is one process launch. Definition keeps the raw mapping so the
	// executor can be built from its variant keys.
	Step struct {
		Name       string
		Index      int
		Definition *params.Map
		Dataset    Ref
		Model      Ref
		Params     *params.Map
		Conditions *params.Map
	}
)

// IsValid returns whether the policy is one of the defined values.
func (p DefinitionPolicy) IsValid() (bool, []error) {
	switch p {
	case DefinitionsStrict, DefinitionsLenient, "":
		return true, nil
	default:
		return false, []error{fmt.Errorf("%w: %q", ErrInvalidDefinitionPolicy, string(p))}
	}
}

// Dir returns the directory holding the project file, or "." when the
// project was not loaded from disk.
func (p *Project) Dir() string {
	if p.Path == "" {
		return "."
	}
	return filepath.Dir(p.Path)
}

// Dataset returns the dataset with the given name.
func (p *Project) Dataset(name string) (*Dataset, error) {
	if name != "" {
		for _, d := range p.Datasets {
			if d.DisplayName() == name {
				return d, nil
			}
		}
	}
	return nil, &LookupError{Kind: "dataset", Name: name}
}

// Model returns the model with the given name.
func (p *Project) Model(name string) (*Model, error) {
	if name != "" {
		for _, m := range p.Models {
			if m.DisplayName() == name {
				return m, nil
			}
		}
	}
	return nil, &LookupError{Kind: "model", Name: name}
}

// Job finds a job by name, display name ("Job 2") or 1-based position.
func (p *Project) Job(selector string) (*Job, error) {
	if selector != "" {
		pos, posErr := strconv.Atoi(selector)
		for i, j := range p.Jobs {
			if j.Name == selector || j.DisplayName() == selector || (posErr == nil && pos == i+1) {
				return j, nil
			}
		}
	}
	return nil, &LookupError{Kind: "job", Name: selector}
}

// DisplayName returns the declared name or the folder's stem.
func (d *Dataset) DisplayName() string {
	if d.Name != "" {
		return d.Name
	}
	return stem(d.Folder)
}

// String returns the display name.
func (d *Dataset) String() string { return d.DisplayName() }

// Attributes exposes the dataset to replacement fields.
func (d *Dataset) Attributes() *params.Map {
	return params.Of("name", d.DisplayName(), "folder", d.Folder, "params", d.Params.Clone())
}

// Source returns the "path:callable" form.
func (m *Model) Source() string { return m.Module + ":" + m.Callable }

// DisplayName returns the declared name or one derived from the module: the
// file stem for paths, the last component for dotted module names.
func (m *Model) DisplayName() string {
	if m.Name != "" {
		return m.Name
	}
	if strings.ContainsAny(m.Module, `/\`) || strings.HasSuffix(m.Module, ".py") {
		return stem(m.Module)
	}
	if i := strings.LastIndexByte(m.Module, '.'); i >= 0 {
		return m.Module[i+1:]
	}
	return m.Module
}

// String returns the display name.
func (m *Model) String() string { return m.DisplayName() }

// Attributes exposes the model to replacement fields.
func (m *Model) Attributes() *params.Map {
	return params.Of(
		"name", m.DisplayName(),
		"src", m.Source(),
		"module", m.Module,
		"callable", m.Callable,
		"params", m.Params.Clone(),
	)
}

// DisplayName returns the declared name or "Job <n>".
func (j *Job) DisplayName() string {
	if j.Name != "" {
		return j.Name
	}
	return fmt.Sprintf("Job %d", j.Index+1)
}

// String returns the display name.
func (j *Job) String() string { return j.DisplayName() }

// Attributes exposes the job to replacement fields.
func (j *Job) Attributes() *params.Map {
	return params.Of("name", j.DisplayName(), "index", j.Index, "params", j.Params.Clone())
}

// DisplayName returns the declared name or "Step <n>".
func (s *Step) DisplayName() string {
	if s.Name != "" {
		return s.Name
	}
	return fmt.Sprintf("Step %d", s.Index+1)
}

// String returns the display name.
func (s *Step) String() string { return s.DisplayName() }

// Attributes exposes the step to replacement fields.
func (s *Step) Attributes() *params.Map {
	return params.Of("name", s.DisplayName(), "index", s.Index, "params", s.Params.Clone())
}

func stem(path string) string {
	base := filepath.Base(filepath.Clean(strings.ReplaceAll(path, `\`, "/")))
	if base == "." || base == "/" {
		return ""
	}
	return strings.TrimSuffix(base, filepath.Ext(base))
}
