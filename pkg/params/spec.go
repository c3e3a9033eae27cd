// SPDX-License-Identifier: MPL-2.0

package params

import (
	"math"
	"strconv"
	"strings"
	"unicode/utf8"
)

// formatSpec is a parsed `[[fill]align][sign][#][0][width][grouping][.precision][type]`.
type formatSpec struct {
	fill      rune
	align     byte
	sign      byte
	alt       bool
	width     int
	grouping  byte
	precision int
	typ       byte
}

func parseSpec(s string) (formatSpec, error) {
	spec := formatSpec{fill: ' ', precision: -1}
	if s == "" {
		return spec, nil
	}

	isAlign := func(c byte) bool { return c == '<' || c == '>' || c == '=' || c == '^' }
	r, size := utf8.DecodeRuneInString(s)
	switch {
	case size < len(s) && isAlign(s[size]):
		spec.fill, spec.align = r, s[size]
		s = s[size+1:]
	case isAlign(s[0]):
		spec.align = s[0]
		s = s[1:]
	}

	if s != "" && (s[0] == '+' || s[0] == '-' || s[0] == ' ') {
		spec.sign = s[0]
		s = s[1:]
	}
	if s != "" && s[0] == 'z' {
		s = s[1:]
	}
	if s != "" && s[0] == '#' {
		spec.alt = true
		s = s[1:]
	}
	if s != "" && s[0] == '0' {
		if spec.align == 0 {
			spec.fill, spec.align = '0', '='
		}
		s = s[1:]
	}

	n := leadingDigits(s)
	if n > 0 {
		spec.width, _ = strconv.Atoi(s[:n])
		s = s[n:]
	}
	if s != "" && (s[0] == ',' || s[0] == '_') {
		spec.grouping = s[0]
		s = s[1:]
	}
	if s != "" && s[0] == '.' {
		n = leadingDigits(s[1:])
		if n == 0 {
			return spec, malformed("format specifier missing precision")
		}
		spec.precision, _ = strconv.Atoi(s[1 : 1+n])
		s = s[1+n:]
	}
	if len(s) > 1 {
		return spec, malformed("invalid format specifier")
	}
	if s != "" {
		spec.typ = s[0]
	}
	return spec, nil
}

func leadingDigits(s string) int {
	n := 0
	for n < len(s) && s[n] >= '0' && s[n] <= '9' {
		n++
	}
	return n
}

// formatValue applies a format spec to v. An empty spec is plain Str.
func formatValue(v any, raw string) (string, error) {
	if raw == "" {
		return Str(v), nil
	}
	spec, err := parseSpec(raw)
	if err != nil {
		return "", err
	}

	switch t := v.(type) {
	case bool:
		if t {
			return formatInt(1, spec)
		}
		return formatInt(0, spec)
	case int:
		return formatInt(int64(t), spec)
	case int64:
		return formatInt(t, spec)
	case float64:
		return formatFloat(t, spec)
	default:
		return formatStr(Str(v), spec)
	}
}

func formatStr(s string, spec formatSpec) (string, error) {
	if spec.typ != 0 && spec.typ != 's' {
		return "", malformed("unknown format code '%c' for a string", spec.typ)
	}
	if spec.sign != 0 {
		return "", malformed("sign not allowed in string format specifier")
	}
	if spec.align == '=' {
		return "", malformed("'=' alignment not allowed in string format specifier")
	}
	if spec.precision >= 0 {
		if runes := []rune(s); len(runes) > spec.precision {
			s = string(runes[:spec.precision])
		}
	}
	return pad("", s, spec, '<'), nil
}

func formatInt(i int64, spec formatSpec) (string, error) {
	switch spec.typ {
	case 'e', 'E', 'f', 'F', 'g', 'G', '%':
		return formatFloat(float64(i), spec)
	case 'c':
		if spec.sign != 0 {
			return "", malformed("sign not allowed with integer format specifier 'c'")
		}
		return pad("", string(rune(i)), spec, '>'), nil
	}
	if spec.precision >= 0 {
		return "", malformed("precision not allowed in integer format specifier")
	}

	neg := i < 0
	abs := uint64(i)
	if neg {
		abs = uint64(-i)
	}

	var (
		digits string
		prefix string
		group  = 3
	)
	switch spec.typ {
	case 0, 'd', 'n':
		digits = strconv.FormatUint(abs, 10)
	case 'b':
		digits, prefix, group = strconv.FormatUint(abs, 2), "0b", 4
	case 'o':
		digits, prefix, group = strconv.FormatUint(abs, 8), "0o", 4
	case 'x':
		digits, prefix, group = strconv.FormatUint(abs, 16), "0x", 4
	case 'X':
		digits, prefix, group = strings.ToUpper(strconv.FormatUint(abs, 16)), "0X", 4
	default:
		return "", malformed("unknown format code '%c' for an integer", spec.typ)
	}
	if spec.grouping != 0 {
		digits = groupDigits(digits, spec.grouping, group)
	}
	if !spec.alt {
		prefix = ""
	}
	return pad(signOf(neg, spec.sign)+prefix, digits, spec, '>'), nil
}

func formatFloat(f float64, spec formatSpec) (string, error) {
	neg := math.Signbit(f) && !math.IsNaN(f)
	abs := math.Abs(f)
	prec := spec.precision

	var body string
	switch spec.typ {
	case 'f', 'F':
		if prec < 0 {
			prec = 6
		}
		body = strconv.FormatFloat(abs, 'f', prec, 64)
	case 'e', 'E':
		if prec < 0 {
			prec = 6
		}
		body = strconv.FormatFloat(abs, 'e', prec, 64)
	case 'g', 'G':
		if prec < 0 {
			prec = 6
		}
		if prec == 0 {
			prec = 1
		}
		body = strconv.FormatFloat(abs, 'g', prec, 64)
	case '%':
		if prec < 0 {
			prec = 6
		}
		body = strconv.FormatFloat(abs*100, 'f', prec, 64) + "%"
	case 0, 'n':
		if prec < 0 {
			body = floatRepr(abs)
			break
		}
		if prec == 0 {
			prec = 1
		}
		body = strconv.FormatFloat(abs, 'g', prec, 64)
		if !strings.ContainsAny(body, ".e") && !math.IsInf(abs, 0) && !math.IsNaN(abs) {
			body += ".0"
		}
	default:
		return "", malformed("unknown format code '%c' for a float", spec.typ)
	}

	switch {
	case math.IsInf(abs, 0):
		body = "inf"
		if spec.typ == '%' {
			body += "%"
		}
	case math.IsNaN(abs):
		body = "nan"
	}
	if spec.typ == 'F' || spec.typ == 'E' || spec.typ == 'G' {
		body = strings.ToUpper(body)
	}
	if spec.alt && !strings.Contains(body, ".") && !math.IsInf(abs, 0) && !math.IsNaN(abs) {
		if mant, exp, ok := strings.Cut(body, "e"); ok {
			body = mant + ".e" + exp
		} else if mant, ok := strings.CutSuffix(body, "%"); ok {
			body = mant + ".%"
		} else {
			body += "."
		}
	}
	if spec.grouping != 0 {
		intPart, frac := splitNumber(body)
		body = groupDigits(intPart, spec.grouping, 3) + frac
	}
	return pad(signOf(neg, spec.sign), body, spec, '>'), nil
}

// splitNumber separates the leading run of digits from the rest.
func splitNumber(body string) (string, string) {
	n := leadingDigits(body)
	return body[:n], body[n:]
}

func groupDigits(digits string, sep byte, every int) string {
	if len(digits) <= every {
		return digits
	}
	var b strings.Builder
	first := len(digits) % every
	if first > 0 {
		b.WriteString(digits[:first])
	}
	for i := first; i < len(digits); i += every {
		if b.Len() > 0 {
			b.WriteByte(sep)
		}
		b.WriteString(digits[i : i+every])
	}
	return b.String()
}

func signOf(neg bool, mode byte) string {
	switch {
	case neg:
		return "-"
	case mode == '+':
		return "+"
	case mode == ' ':
		return " "
	}
	return ""
}

// pad applies width, fill and alignment. prefix (sign and radix marker) stays
// in front of the fill for '=' alignment.
func pad(prefix, body string, spec formatSpec, defaultAlign byte) string {
	text := prefix + body
	n := spec.width - utf8.RuneCountInString(text)
	if n <= 0 {
		return text
	}
	align := spec.align
	if align == 0 {
		align = defaultAlign
	}
	fill := strings.Repeat(string(spec.fill), n)
	switch align {
	case '<':
		return text + fill
	case '^':
		left := n / 2
		return strings.Repeat(string(spec.fill), left) + text + strings.Repeat(string(spec.fill), n-left)
	case '=':
		return prefix + fill + body
	default:
		return fill + text
	}
}
