// SPDX-License-Identifier: MPL-2.0

package project

import (
	_ "embed"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"cuelang.org/go/cue"
	"gopkg.in/yaml.v3"

	"github.com/afml/afml/pkg/cueutil"
	"github.com/afml/afml/pkg/params"
)

// DefaultFile is the project file looked up when no path is given.
const DefaultFile = "project.yml"

//go:embed project_schema.cue
var projectSchema []byte

// Load reads and parses the project file at path. Files ending in .cue are
// validated against the project schema; anything else is read as YAML.
func Load(path string, opts ParseOptions) (*Project, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read project: %w", err)
	}
	doc, err := Decode(data, path)
	if err != nil {
		return nil, err
	}
	p, err := Parse(doc, opts)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	p.Path = path
	return p, nil
}

// Decode turns raw document bytes into an ordered mapping. filename selects
// the format and labels errors.
func Decode(data []byte, filename string) (*params.Map, error) {
	if strings.EqualFold(filepath.Ext(filename), ".cue") {
		return decodeCUE(data, filename)
	}
	return decodeYAML(data, filename)
}

func decodeYAML(data []byte, filename string) (*params.Map, error) {
	var node yaml.Node
	if err := yaml.Unmarshal(data, &node); err != nil {
		return nil, fmt.Errorf("%s: %w", filename, err)
	}
	if node.Kind == 0 {
		return params.NewMap(), nil
	}
	v, err := params.FromYAML(&node)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", filename, err)
	}
	return asDocument(v, filename)
}

func decodeCUE(data []byte, filename string) (*params.Map, error) {
	unified, err := cueutil.Unify(projectSchema, data, "#Project", cueutil.WithFilename(filename))
	if err != nil {
		return nil, err
	}
	v, err := fromCUE(unified)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", filename, err)
	}
	return asDocument(v, filename)
}

func asDocument(v any, filename string) (*params.Map, error) {
	switch t := v.(type) {
	case nil:
		return params.NewMap(), nil
	case *params.Map:
		return t, nil
	}
	return nil, fmt.Errorf("%s: project document must be a mapping, got %s", filename, params.Repr(v))
}

// fromCUE converts a concrete CUE value, keeping struct field order.
func fromCUE(v cue.Value) (any, error) {
	switch v.Kind() {
	case cue.NullKind:
		return nil, nil
	case cue.BoolKind:
		return v.Bool()
	case cue.IntKind:
		i, err := v.Int64()
		return int(i), err
	case cue.FloatKind, cue.NumberKind:
		return v.Float64()
	case cue.StringKind:
		return v.String()
	case cue.ListKind:
		it, err := v.List()
		if err != nil {
			return nil, err
		}
		var out []any
		for it.Next() {
			item, err := fromCUE(it.Value())
			if err != nil {
				return nil, err
			}
			out = append(out, item)
		}
		if out == nil {
			out = []any{}
		}
		return out, nil
	case cue.StructKind:
		it, err := v.Fields()
		if err != nil {
			return nil, err
		}
		out := params.NewMap()
		for it.Next() {
			item, err := fromCUE(it.Value())
			if err != nil {
				return nil, err
			}
			out.Set(it.Selector().Unquoted(), item)
		}
		return out, nil
	}
	return nil, fmt.Errorf("%s: unsupported CUE value of kind %s", v.Path(), v.Kind())
}
