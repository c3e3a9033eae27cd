// SPDX-License-Identifier: MPL-2.0

package params

import (
	"bytes"
	"encoding/json"
	"fmt"
	"iter"
	"slices"
	"time"

	"gopkg.in/yaml.v3"
)

type (
	// Map is an insertion-ordered string-keyed mapping. Values are nil, bool,
	// int, float64, string, []any, *Map or an Attributer. The zero value and a
	// nil *Map are both empty and read-safe.
	Map struct {
		keys   []string
		values map[string]any
	}

	// Attributer is implemented by objects that can be referenced from
	// replacement fields, e.g. `{dataset.folder}`.
	Attributer interface {
		Attributes() *Map
	}
)

// NewMap returns an empty Map.
func NewMap() *Map {
	return &Map{values: make(map[string]any)}
}

// Of builds a Map from alternating key/value arguments. It panics when a key
// is not a string, which makes it suitable for literals only.
func Of(pairs ...any) *Map {
	if len(pairs)%2 != 0 {
		panic("params.Of: odd number of arguments")
	}
	m := NewMap()
	for i := 0; i < len(pairs); i += 2 {
		key, ok := pairs[i].(string)
		if !ok {
			panic(fmt.Sprintf("params.Of: key %v is not a string", pairs[i]))
		}
		m.Set(key, pairs[i+1])
	}
	return m
}

// Len returns the number of entries.
func (m *Map) Len() int {
	if m == nil {
		return 0
	}
	return len(m.keys)
}

// Get returns the value stored under key.
func (m *Map) Get(key string) (any, bool) {
	if m == nil || m.values == nil {
		return nil, false
	}
	v, ok := m.values[key]
	return v, ok
}

// Has reports whether key is present.
func (m *Map) Has(key string) bool {
	_, ok := m.Get(key)
	return ok
}

// Set stores value under key. Existing keys keep their position.
func (m *Map) Set(key string, value any) {
	if m.values == nil {
		m.values = make(map[string]any)
	}
	if _, exists := m.values[key]; !exists {
		m.keys = append(m.keys, key)
	}
	m.values[key] = value
}

// Delete removes key if present.
func (m *Map) Delete(key string) {
	if m == nil || m.values == nil {
		return
	}
	if _, ok := m.values[key]; !ok {
		return
	}
	delete(m.values, key)
	m.keys = slices.DeleteFunc(m.keys, func(k string) bool { return k == key })
}

// Keys returns the keys in insertion order.
func (m *Map) Keys() []string {
	if m == nil {
		return nil
	}
	return slices.Clone(m.keys)
}

// All iterates entries in insertion order.
func (m *Map) All() iter.Seq2[string, any] {
	return func(yield func(string, any) bool) {
		if m == nil {
			return
		}
		for _, k := range m.keys {
			if !yield(k, m.values[k]) {
				return
			}
		}
	}
}

// Clone returns a shallow copy. Cloning a nil Map yields an empty one.
func (m *Map) Clone() *Map {
	out := NewMap()
	if m == nil {
		return out
	}
	out.keys = slices.Clone(m.keys)
	for k, v := range m.values {
		out.values[k] = v
	}
	return out
}

// Merge copies every entry of other into m; other wins on conflicts.
func (m *Map) Merge(other *Map) {
	for k, v := range other.All() {
		m.Set(k, v)
	}
}

// String renders the map the way replacement fields stringify it.
func (m *Map) String() string {
	return Str(m)
}

// MarshalJSON encodes the map as a JSON object preserving key order.
func (m *Map) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, k := range m.Keys() {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(k)
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')
		val, err := json.Marshal(plain(m.values[k]))
		if err != nil {
			return nil, fmt.Errorf("encode %q: %w", k, err)
		}
		buf.Write(val)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// UnmarshalJSON decodes a JSON object preserving key order. Integral numbers
// decode to int, others to float64.
func (m *Map) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	v, err := decodeJSONValue(dec)
	if err != nil {
		return err
	}
	decoded, ok := v.(*Map)
	if !ok {
		if v == nil {
			*m = *NewMap()
			return nil
		}
		return fmt.Errorf("expected JSON object, got %T", v)
	}
	*m = *decoded
	return nil
}

// MarshalYAML encodes the map as a YAML mapping preserving key order.
func (m *Map) MarshalYAML() (any, error) {
	node := &yaml.Node{Kind: yaml.MappingNode, Tag: "!!map"}
	for _, k := range m.Keys() {
		val := &yaml.Node{}
		if err := val.Encode(plain(m.values[k])); err != nil {
			return nil, fmt.Errorf("encode %q: %w", k, err)
		}
		node.Content = append(node.Content, &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: k}, val)
	}
	return node, nil
}

// plain swaps entities for their attribute view so encoders see the same
// fields replacement fields do.
func plain(v any) any {
	switch t := v.(type) {
	case Attributer:
		return t.Attributes()
	case []any:
		out := make([]any, len(t))
		for i, e := range t {
			out[i] = plain(e)
		}
		return out
	}
	return v
}

// UnmarshalYAML decodes a YAML mapping preserving key order.
func (m *Map) UnmarshalYAML(node *yaml.Node) error {
	v, err := FromYAML(node)
	if err != nil {
		return err
	}
	switch decoded := v.(type) {
	case nil:
		*m = *NewMap()
	case *Map:
		*m = *decoded
	default:
		return fmt.Errorf("line %d: expected a mapping, got %s", node.Line, Str(v))
	}
	return nil
}

func decodeJSONValue(dec *json.Decoder) (any, error) {
	tok, err := dec.Token()
	if err != nil {
		return nil, err
	}
	switch t := tok.(type) {
	case json.Delim:
		switch t {
		case '{':
			out := NewMap()
			for dec.More() {
				keyTok, err := dec.Token()
				if err != nil {
					return nil, err
				}
				key, _ := keyTok.(string)
				val, err := decodeJSONValue(dec)
				if err != nil {
					return nil, err
				}
				out.Set(key, val)
			}
			if _, err := dec.Token(); err != nil {
				return nil, err
			}
			return out, nil
		case '[':
			out := []any{}
			for dec.More() {
				val, err := decodeJSONValue(dec)
				if err != nil {
					return nil, err
				}
				out = append(out, val)
			}
			if _, err := dec.Token(); err != nil {
				return nil, err
			}
			return out, nil
		}
		return nil, fmt.Errorf("unexpected delimiter %q", t)
	case json.Number:
		if i, err := t.Int64(); err == nil {
			return int(i), nil
		}
		return t.Float64()
	default:
		return t, nil
	}
}

// FromYAML converts a decoded YAML node into formatter values, keeping
// mapping order. Aliases are followed and merge keys (`<<`) are honoured.
func FromYAML(node *yaml.Node) (any, error) {
	switch node.Kind {
	case yaml.DocumentNode:
		if len(node.Content) == 0 {
			return nil, nil
		}
		return FromYAML(node.Content[0])
	case yaml.AliasNode:
		return FromYAML(node.Alias)
	case yaml.SequenceNode:
		out := make([]any, 0, len(node.Content))
		for _, child := range node.Content {
			v, err := FromYAML(child)
			if err != nil {
				return nil, err
			}
			out = append(out, v)
		}
		return out, nil
	case yaml.MappingNode:
		out := NewMap()
		for i := 0; i+1 < len(node.Content); i += 2 {
			keyNode, valNode := node.Content[i], node.Content[i+1]
			if keyNode.Tag == "!!merge" {
				if err := mergeYAML(out, valNode); err != nil {
					return nil, err
				}
				continue
			}
			var key any
			if err := keyNode.Decode(&key); err != nil {
				return nil, err
			}
			val, err := FromYAML(valNode)
			if err != nil {
				return nil, err
			}
			out.Set(fmt.Sprint(key), val)
		}
		return out, nil
	case yaml.ScalarNode:
		var v any
		if err := node.Decode(&v); err != nil {
			return nil, fmt.Errorf("line %d: %w", node.Line, err)
		}
		return normalizeScalar(v), nil
	}
	return nil, fmt.Errorf("line %d: unsupported YAML node", node.Line)
}

func mergeYAML(dst *Map, node *yaml.Node) error {
	v, err := FromYAML(node)
	if err != nil {
		return err
	}
	sources := []any{v}
	if list, ok := v.([]any); ok {
		sources = list
	}
	for _, src := range sources {
		m, ok := src.(*Map)
		if !ok {
			return fmt.Errorf("line %d: merge key expects a mapping", node.Line)
		}
		for k, val := range m.All() {
			if !dst.Has(k) {
				dst.Set(k, val)
			}
		}
	}
	return nil
}

func normalizeScalar(v any) any {
	switch t := v.(type) {
	case int64:
		return int(t)
	case uint64:
		return float64(t)
	case float32:
		return float64(t)
	case time.Time:
		return t.Format(time.RFC3339)
	default:
		return v
	}
}
