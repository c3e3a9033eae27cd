// SPDX-License-Identifier: MPL-2.0

package project

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/afml/afml/pkg/matrix"
	"github.com/afml/afml/pkg/params"
)

type (
	// Counter hands out consecutive display indexes starting at zero.
	Counter struct {
		next int
	}

	// ParseOptions controls how definitions are turned into a Project.
	ParseOptions struct {
		// Policy defaults to DefinitionsStrict.
		Policy DefinitionPolicy
	}

	parser struct {
		policy DefinitionPolicy
		jobs   Counter
		steps  Counter
	}
)

// Next returns the next index.
func (c *Counter) Next() int {
	i := c.next
	c.next++
	return i
}

// Parse builds a Project from a decoded document.
func Parse(doc *params.Map, opts ParseOptions) (*Project, error) {
	policy := opts.Policy
	if policy == "" {
		policy = DefinitionsStrict
	}
	if ok, errs := policy.IsValid(); !ok {
		return nil, errs[0]
	}
	p := &parser{policy: policy}
	return p.project(doc)
}

func (p *parser) project(doc *params.Map) (*Project, error) {
	proj := &Project{}
	var err error

	if proj.Params, err = mappingKey(doc, "params", "project"); err != nil {
		return nil, err
	}
	if proj.Matrix, err = matrixKey(doc, "project"); err != nil {
		return nil, err
	}

	datasets, err := listKey(doc, "datasets", "project")
	if err != nil {
		return nil, err
	}
	for i, raw := range datasets {
		def, err := asMapping(raw, "dataset", i)
		if err != nil {
			if err = p.keep(err, i); err != nil {
				return nil, err
			}
			continue
		}
		d, err := ParseDataset(def)
		if err = p.keep(err, i); err != nil {
			return nil, err
		}
		if d != nil {
			proj.Datasets = append(proj.Datasets, d)
		}
	}

	models, err := listKey(doc, "models", "project")
	if err != nil {
		return nil, err
	}
	for i, raw := range models {
		def, err := asMapping(raw, "model", i)
		if err != nil {
			if err = p.keep(err, i); err != nil {
				return nil, err
			}
			continue
		}
		m, err := ParseModel(def)
		if err = p.keep(err, i); err != nil {
			return nil, err
		}
		if m != nil {
			proj.Models = append(proj.Models, m)
		}
	}

	jobs, err := listKey(doc, "jobs", "project")
	if err != nil {
		return nil, err
	}
	for i, raw := range jobs {
		def, err := asMapping(raw, "job", i)
		if err != nil {
			if err = p.keep(err, i); err != nil {
				return nil, err
			}
			continue
		}
		j, err := p.job(def)
		if err = p.keep(err, i); err != nil {
			return nil, err
		}
		if j != nil {
			proj.Jobs = append(proj.Jobs, j)
		}
	}
	return proj, nil
}

// keep applies the definition policy to err: lenient parsing logs and drops
// the definition, strict parsing returns the error.
func (p *parser) keep(err error, i int) error {
	if err == nil {
		return nil
	}
	var de *DefinitionError
	if errors.As(err, &de) {
		if de.Position == 0 {
			de.Position = i + 1
		}
		if p.policy == DefinitionsLenient {
			slog.Warn("dropping invalid definition", "kind", de.Kind, "position", de.Position, "reason", de.Error())
			return nil
		}
	}
	return err
}

func (p *parser) job(def *params.Map) (*Job, error) {
	rawSteps, ok := def.Get("steps")
	if !ok {
		return nil, &DefinitionError{Kind: "job", Key: "steps", Definition: def}
	}
	list, ok := rawSteps.([]any)
	if !ok && rawSteps != nil {
		return nil, &DefinitionError{Kind: "job", Key: "steps", Reason: "steps must be a list", Definition: def}
	}

	j := &Job{}
	for i, raw := range list {
		sdef, err := asMapping(raw, "step", i)
		if err != nil {
			if err = p.keep(err, i); err != nil {
				return nil, err
			}
			continue
		}
		s, err := p.step(sdef)
		if err = p.keep(err, i); err != nil {
			return nil, err
		}
		if s != nil {
			j.Steps = append(j.Steps, s)
		}
	}

	var err error
	if j.Name, err = stringKey(def, "name", "job"); err != nil {
		return nil, err
	}
	if j.Params, err = mappingKey(def, "params", "job"); err != nil {
		return nil, err
	}
	if j.Conditions, err = mappingKey(def, "if", "job"); err != nil {
		return nil, err
	}
	if j.Matrix, err = matrixKey(def, "job"); err != nil {
		return nil, err
	}
	j.Dataset = refKey(def, "dataset")
	j.Model = refKey(def, "model")
	j.Index = p.jobs.Next()
	return j, nil
}

func (p *parser) step(def *params.Map) (*Step, error) {
	s := &Step{Definition: def.Clone()}
	var err error
	if s.Name, err = stringKey(def, "name", "step"); err != nil {
		return nil, err
	}
	if s.Params, err = mappingKey(def, "params", "step"); err != nil {
		return nil, err
	}
	if s.Conditions, err = mappingKey(def, "if", "step"); err != nil {
		return nil, err
	}
	s.Dataset = refKey(def, "dataset")
	s.Model = refKey(def, "model")
	s.Index = p.steps.Next()
	return s, nil
}

// ParseDataset builds a dataset from an inline definition. `folder` is
// required.
func ParseDataset(def *params.Map) (*Dataset, error) {
	folder, ok := def.Get("folder")
	if !ok || folder == nil {
		return nil, &DefinitionError{Kind: "dataset", Key: "folder", Definition: def}
	}
	name, err := stringKey(def, "name", "dataset")
	if err != nil {
		return nil, err
	}
	ps, err := mappingKey(def, "params", "dataset")
	if err != nil {
		return nil, err
	}
	return &Dataset{Name: name, Folder: params.Str(folder), Params: ps}, nil
}

// ParseModel builds a model from an inline definition. `src` is required and
// must have the form "path:callable"; it is split at the last colon.
func ParseModel(def *params.Map) (*Model, error) {
	raw, ok := def.Get("src")
	if !ok || raw == nil {
		return nil, &DefinitionError{Kind: "model", Key: "src", Definition: def}
	}
	src := params.Str(raw)
	i := strings.LastIndexByte(src, ':')
	if i <= 0 || i == len(src)-1 {
		return nil, &DefinitionError{
			Kind:       "model",
			Key:        "src",
			Reason:     fmt.Sprintf("src %q must have the form \"path:callable\"", src),
			Definition: def,
		}
	}
	name, err := stringKey(def, "name", "model")
	if err != nil {
		return nil, err
	}
	ps, err := mappingKey(def, "params", "model")
	if err != nil {
		return nil, err
	}
	return &Model{Name: name, Module: src[:i], Callable: src[i+1:], Params: ps}, nil
}

func asMapping(raw any, kind string, i int) (*params.Map, error) {
	m, ok := raw.(*params.Map)
	if !ok {
		return nil, &DefinitionError{
			Kind:     kind,
			Position: i + 1,
			Reason:   fmt.Sprintf("expected a mapping, got %s", params.Repr(raw)),
		}
	}
	return m, nil
}

func stringKey(def *params.Map, key, kind string) (string, error) {
	v, ok := def.Get(key)
	if !ok || v == nil {
		return "", nil
	}
	switch v.(type) {
	case *params.Map, []any:
		return "", &DefinitionError{Kind: kind, Key: key, Reason: fmt.Sprintf("%s must be a scalar", key), Definition: def}
	}
	return params.Str(v), nil
}

func mappingKey(def *params.Map, key, kind string) (*params.Map, error) {
	v, ok := def.Get(key)
	if !ok || v == nil {
		return params.NewMap(), nil
	}
	m, ok := v.(*params.Map)
	if !ok {
		return nil, &DefinitionError{Kind: kind, Key: key, Reason: fmt.Sprintf("%s must be a mapping", key), Definition: def}
	}
	return m, nil
}

func listKey(def *params.Map, key, kind string) ([]any, error) {
	v, ok := def.Get(key)
	if !ok || v == nil {
		return nil, nil
	}
	l, ok := v.([]any)
	if !ok {
		return nil, &DefinitionError{Kind: kind, Key: key, Reason: fmt.Sprintf("%s must be a list", key)}
	}
	return l, nil
}

func matrixKey(def *params.Map, kind string) (matrix.Matrix, error) {
	m, err := mappingKey(def, "matrix", kind)
	if err != nil {
		return matrix.Matrix{}, err
	}
	mx, err := matrix.FromMap(m)
	if err != nil {
		return matrix.Matrix{}, &DefinitionError{Kind: kind, Key: "matrix", Reason: err.Error(), Definition: def}
	}
	return mx, nil
}

func refKey(def *params.Map, key string) Ref {
	v, _ := def.Get(key)
	return NewRef(v)
}
