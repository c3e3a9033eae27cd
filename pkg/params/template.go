// SPDX-License-Identifier: MPL-2.0

package params

import "strings"

type (
	// segment is either literal text or a replacement field.
	segment struct {
		literal string
		field   *field
	}

	// field is one `{name!conv:spec}` replacement field.
	field struct {
		name       string
		conversion byte
		spec       string
	}
)

// isBare reports whether the template is a single field with neither a
// conversion nor a format spec.
func isBare(segs []segment) bool {
	return len(segs) == 1 && segs[0].field != nil &&
		segs[0].field.conversion == 0 && segs[0].field.spec == ""
}

// parseTemplate splits s into literal and field segments. Doubled braces are
// literal braces.
func parseTemplate(s string) ([]segment, error) {
	var (
		segs []segment
		lit  strings.Builder
	)
	flush := func() {
		if lit.Len() > 0 {
			segs = append(segs, segment{literal: lit.String()})
			lit.Reset()
		}
	}

	for i := 0; i < len(s); {
		switch c := s[i]; c {
		case '{':
			if i+1 < len(s) && s[i+1] == '{' {
				lit.WriteByte('{')
				i += 2
				continue
			}
			end, err := fieldEnd(s, i)
			if err != nil {
				return nil, err
			}
			f, err := parseField(s[i+1 : end])
			if err != nil {
				return nil, err
			}
			flush()
			segs = append(segs, segment{field: f})
			i = end + 1
		case '}':
			if i+1 < len(s) && s[i+1] == '}' {
				lit.WriteByte('}')
				i += 2
				continue
			}
			return nil, malformed("single '}' encountered in format string")
		default:
			lit.WriteByte(c)
			i++
		}
	}
	flush()
	return segs, nil
}

// fieldEnd returns the index of the brace closing the field opened at start.
func fieldEnd(s string, start int) (int, error) {
	depth := 0
	for i := start; i < len(s); i++ {
		switch s[i] {
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return i, nil
			}
		}
	}
	return 0, malformed("expected '}' before end of string")
}

func parseField(text string) (*field, error) {
	i := 0
scan:
	for i < len(text) {
		switch text[i] {
		case '[':
			if j := strings.IndexByte(text[i:], ']'); j >= 0 {
				i += j + 1
				continue
			}
			i = len(text)
		case '(':
			i = skipParens(text, i)
		case '{':
			return nil, malformed("unexpected '{' in field name")
		case '!':
			if i+1 < len(text) && text[i+1] == '=' {
				i += 2
				continue
			}
			break scan
		case ':':
			break scan
		default:
			i++
		}
	}

	f := &field{name: text[:i]}
	if f.name == "" {
		return nil, malformed("empty field name")
	}
	rest := text[i:]
	if strings.HasPrefix(rest, "!") {
		if len(rest) < 2 {
			return nil, malformed("end of string while looking for conversion specifier")
		}
		f.conversion = rest[1]
		switch f.conversion {
		case 's', 'r', 'a':
		default:
			return nil, malformed("unknown conversion specifier %c", f.conversion)
		}
		rest = rest[2:]
		if rest != "" && rest[0] != ':' {
			return nil, malformed("expected ':' after conversion specifier")
		}
	}
	if strings.HasPrefix(rest, ":") {
		f.spec = rest[1:]
	}
	return f, nil
}

func skipParens(text string, i int) int {
	depth := 0
	for ; i < len(text); i++ {
		switch text[i] {
		case '(':
			depth++
		case ')':
			depth--
			if depth == 0 {
				return i + 1
			}
		}
	}
	return len(text)
}
