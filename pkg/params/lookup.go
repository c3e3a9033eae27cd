// SPDX-License-Identifier: MPL-2.0

package params

import (
	"strconv"
	"strings"
)

// builtins are names every expression can use when the scope does not bind
// them.
var builtins = map[string]any{
	"None":  nil,
	"True":  true,
	"False": false,
}

func lookupRoot(name string, s *Scope) (any, bool) {
	if v, ok := s.Lookup(name); ok {
		return v, true
	}
	v, ok := builtins[name]
	return v, ok
}

// resolveField resolves a replacement field name: a root name followed by
// any number of `.attr` and `[key]` accessors. Keys made of digits index
// lists; everything else is a mapping key.
func resolveField(name string, s *Scope) (any, error) {
	end := strings.IndexAny(name, ".[")
	if end < 0 {
		end = len(name)
	}
	root := name[:end]
	if root == "" {
		return nil, malformed("empty field name")
	}
	if _, err := strconv.Atoi(root); err == nil {
		return nil, malformed("positional field {%s} is not supported", root)
	}
	v, ok := lookupRoot(root, s)
	if !ok {
		return nil, &MissingNameError{Name: root}
	}

	path := root
	rest := name[end:]
	for rest != "" {
		switch rest[0] {
		case '.':
			rest = rest[1:]
			n := strings.IndexAny(rest, ".[")
			if n < 0 {
				n = len(rest)
			}
			attr := rest[:n]
			if attr == "" {
				return nil, malformed("empty attribute in format string")
			}
			path += "." + attr
			if v, ok = attribute(v, attr); !ok {
				return nil, &MissingNameError{Name: path}
			}
			rest = rest[n:]
		case '[':
			closing := strings.IndexByte(rest, ']')
			if closing < 0 {
				return nil, malformed("missing ']' in format string")
			}
			key := rest[1:closing]
			if key == "" {
				return nil, malformed("empty attribute in format string")
			}
			path += "[" + key + "]"
			if v, ok = index(v, key); !ok {
				return nil, &MissingNameError{Name: path}
			}
			rest = rest[closing+1:]
			if rest != "" && rest[0] != '.' && rest[0] != '[' {
				return nil, malformed("only '.' or '[' may follow ']' in format field specifier")
			}
		default:
			return nil, malformed("unexpected %q in field name", rest[0])
		}
	}
	return v, nil
}

// attribute returns the named attribute of a mapping or entity.
func attribute(v any, name string) (any, bool) {
	switch t := v.(type) {
	case *Map:
		return t.Get(name)
	case Attributer:
		return t.Attributes().Get(name)
	}
	return nil, false
}

// index returns v[key]. Lists and strings take integer keys, negative keys
// count from the end.
func index(v any, key string) (any, bool) {
	switch t := v.(type) {
	case *Map:
		return t.Get(key)
	case Attributer:
		return t.Attributes().Get(key)
	case []any:
		i, ok := position(key, len(t))
		if !ok {
			return nil, false
		}
		return t[i], true
	case string:
		runes := []rune(t)
		i, ok := position(key, len(runes))
		if !ok {
			return nil, false
		}
		return string(runes[i]), true
	}
	return nil, false
}

func position(key string, n int) (int, bool) {
	i, err := strconv.Atoi(key)
	if err != nil {
		return 0, false
	}
	if i < 0 {
		i += n
	}
	if i < 0 || i >= n {
		return 0, false
	}
	return i, true
}
