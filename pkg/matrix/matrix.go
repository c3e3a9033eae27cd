// SPDX-License-Identifier: MPL-2.0

// Package matrix expands named parameter axes into their cartesian product.
package matrix

import (
	"errors"
	"fmt"
	"iter"
	"strings"

	"github.com/afml/afml/pkg/params"
)

// ErrInvalidMatrix is returned when a matrix definition cannot be expanded.
var ErrInvalidMatrix = errors.New("invalid matrix")

type (
	// Axis is one named dimension of a matrix.
	Axis struct {
		Name   string
		Values []any
	}

	// Matrix is an ordered list of axes. The zero value is the empty matrix,
	// which expands to a single empty instance.
	Matrix struct {
		axes []Axis
	}

	// Instance is one point of the expansion: an ordered name→value binding.
	// Instances are immutable.
	Instance struct {
		values *params.Map
	}
)

// New builds a matrix from axes in the given order.
func New(axes ...Axis) Matrix {
	return Matrix{axes: append([]Axis(nil), axes...)}
}

// FromMap builds a matrix from a definition mapping. List values become axes;
// a scalar becomes a single-value axis.
func FromMap(m *params.Map) (Matrix, error) {
	axes := make([]Axis, 0, m.Len())
	for name, v := range m.All() {
		switch vals := v.(type) {
		case []any:
			axes = append(axes, Axis{Name: name, Values: vals})
		case *params.Map:
			return Matrix{}, fmt.Errorf("%w: axis %q must be a list, got a mapping", ErrInvalidMatrix, name)
		default:
			axes = append(axes, Axis{Name: name, Values: []any{v}})
		}
	}
	return Matrix{axes: axes}, nil
}

// Axes returns the axes in declaration order.
func (m Matrix) Axes() []Axis {
	return append([]Axis(nil), m.axes...)
}

// IsEmpty reports whether the matrix has no axes.
func (m Matrix) IsEmpty() bool {
	return len(m.axes) == 0
}

// Len returns the number of instances All yields: the product of axis
// sizes, or 1 for an empty matrix.
func (m Matrix) Len() int {
	n := 1
	for _, a := range m.axes {
		n *= len(a.Values)
	}
	return n
}

// All yields every instance in odometer order: the last axis varies fastest.
// The sequence is lazy and can be ranged over any number of times.
func (m Matrix) All() iter.Seq[Instance] {
	return func(yield func(Instance) bool) {
		if m.Len() == 0 {
			return
		}
		idx := make([]int, len(m.axes))
		for {
			values := params.NewMap()
			for i, a := range m.axes {
				values.Set(a.Name, a.Values[idx[i]])
			}
			if !yield(Instance{values: values}) {
				return
			}

			i := len(idx) - 1
			for ; i >= 0; i-- {
				idx[i]++
				if idx[i] < len(m.axes[i].Values) {
					break
				}
				idx[i] = 0
			}
			if i < 0 {
				return
			}
		}
	}
}

// NewInstance builds an instance from a mapping.
func NewInstance(values *params.Map) Instance {
	return Instance{values: values.Clone()}
}

// Len returns the number of bindings.
func (in Instance) Len() int {
	return in.values.Len()
}

// Get returns the value bound to name.
func (in Instance) Get(name string) (any, bool) {
	return in.values.Get(name)
}

// Map returns a copy of the bindings.
func (in Instance) Map() *params.Map {
	return in.values.Clone()
}

// Attributes exposes the bindings to replacement fields such as
// {matrix.lr}.
func (in Instance) Attributes() *params.Map {
	return in.values.Clone()
}

// String renders the instance as "lr=0.1, bs=32".
func (in Instance) String() string {
	parts := make([]string, 0, in.values.Len())
	for k, v := range in.values.All() {
		parts = append(parts, k+"="+params.Str(v))
	}
	return strings.Join(parts, ", ")
}

// Merge returns the union of base and override; override wins on shared
// names. Base names keep their order, new override names follow.
func Merge(base, override Instance) Instance {
	out := base.values.Clone()
	out.Merge(override.values)
	return Instance{values: out}
}
