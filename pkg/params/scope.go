// SPDX-License-Identifier: MPL-2.0

package params

// Scope is the set of names visible to replacement fields. Later bindings
// shadow earlier ones.
type Scope struct {
	vars *Map
}

// NewScope returns a scope holding the entries of layers, merged left to
// right. Layers are bound as-is, without formatting.
func NewScope(layers ...*Map) *Scope {
	s := &Scope{vars: NewMap()}
	for _, l := range layers {
		s.vars.Merge(l)
	}
	return s
}

// Set binds name to value.
func (s *Scope) Set(name string, value any) {
	s.vars.Set(name, value)
}

// Lookup returns the value bound to name.
func (s *Scope) Lookup(name string) (any, bool) {
	return s.vars.Get(name)
}

// Clone returns an independent copy of the scope.
func (s *Scope) Clone() *Scope {
	return &Scope{vars: s.vars.Clone()}
}

// Vars returns a copy of every binding in order.
func (s *Scope) Vars() *Map {
	return s.vars.Clone()
}

// Update formats m against the scope, binds every formatted entry and returns
// the formatted layer.
func (s *Scope) Update(m *Map) (*Map, error) {
	formatted, err := FormatMap(m, s)
	if err != nil {
		return nil, err
	}
	s.vars.Merge(formatted)
	return formatted, nil
}
