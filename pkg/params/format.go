// SPDX-License-Identifier: MPL-2.0

package params

import "strings"

// maxSpecDepth bounds replacement fields nested inside format specs.
const maxSpecDepth = 1

// Format resolves replacement fields in value against the scope. Strings are
// formatted, lists element-wise, mappings left to right with sibling
// visibility; any other value is returned unchanged.
func Format(value any, s *Scope) (any, error) {
	switch v := value.(type) {
	case string:
		return FormatString(v, s)
	case []any:
		out := make([]any, len(v))
		for i, e := range v {
			fe, err := Format(e, s)
			if err != nil {
				return nil, err
			}
			out[i] = fe
		}
		return out, nil
	case *Map:
		return FormatMap(v, s)
	default:
		return value, nil
	}
}

// FormatMap formats each entry of m in order. Every formatted entry is visible
// to the entries after it; the scope itself is not modified.
func FormatMap(m *Map, s *Scope) (*Map, error) {
	out := NewMap()
	if m.Len() == 0 {
		return out, nil
	}
	local := s.Clone()
	for k, v := range m.All() {
		fv, err := Format(v, local)
		if err != nil {
			return nil, err
		}
		out.Set(k, fv)
		local.Set(k, fv)
	}
	return out, nil
}

// FormatString formats a single string. A lone `{expr}` yields the
// expression's native value; anything else yields a string.
func FormatString(in string, s *Scope) (any, error) {
	segs, err := parseTemplate(in)
	if err != nil {
		return nil, withInput(err, in)
	}
	if isBare(segs) {
		v, err := evaluate(segs[0].field.name, s)
		if err != nil {
			return nil, withInput(err, in)
		}
		return v, nil
	}
	out, err := render(segs, s, 0)
	if err != nil {
		return nil, withInput(err, in)
	}
	return out, nil
}

// Text formats in and always returns a string, stringifying native results.
func Text(in string, s *Scope) (string, error) {
	v, err := FormatString(in, s)
	if err != nil {
		return "", err
	}
	return Str(v), nil
}

func render(segs []segment, s *Scope, depth int) (string, error) {
	var b strings.Builder
	for _, seg := range segs {
		if seg.field == nil {
			b.WriteString(seg.literal)
			continue
		}
		text, err := renderField(seg.field, s, depth)
		if err != nil {
			return "", err
		}
		b.WriteString(text)
	}
	return b.String(), nil
}

func renderField(f *field, s *Scope, depth int) (string, error) {
	v, err := resolveField(f.name, s)
	if err != nil {
		return "", err
	}
	switch f.conversion {
	case 's':
		v = Str(v)
	case 'r':
		v = Repr(v)
	case 'a':
		v = asciiOnly(Repr(v))
	}

	spec := f.spec
	if strings.ContainsAny(spec, "{}") {
		if depth >= maxSpecDepth {
			return "", malformed("max string recursion exceeded")
		}
		nested, err := parseTemplate(spec)
		if err != nil {
			return "", err
		}
		if spec, err = render(nested, s, depth+1); err != nil {
			return "", err
		}
	}
	return formatValue(v, spec)
}
