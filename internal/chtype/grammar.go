package chtype

import (
	"fmt"
	"strconv"
	"strings"
)

// Spec is a parsed TYPE token: `TypeName [ "(" args ")" ] | "Nullable(" ... ")"`
// Spec mirrors the grammar's Nullable(Type(args)) shape.
// PrecisionSet/ScaleSet record whether the text
// carried an explicit argument, so Normalize can apply defaults correctly.
type Spec struct {
	Type         DataType
	Nullable     bool
	Precision    int
	Scale        int
	Timezone     string
	PrecisionSet bool
	ScaleSet     bool
}

// ParseType parses a TYPE token (everything after the column identifier) and
// returns the parsed Spec plus any unconsumed trailing text (there should
// be none for a well-formed column line). Defaults and clamping are not
// applied here; callers pass the Spec through Normalize.
func ParseType(s string) (Spec, string, error) {
	s = strings.TrimLeft(s, " \t")

	nullable := false
	if rest, ok := stripPrefix(s, "Nullable"); ok && strings.HasPrefix(rest, "(") {
		inner, tail, err := splitParen(rest)
		if err != nil {
			return Spec{}, "", fmt.Errorf("chtype: Nullable(...): %w", err)
		}
		nullable = true
		spec, leftover, err := parseBareType(inner)
		if err != nil {
			return Spec{}, "", err
		}
		if strings.TrimSpace(leftover) != "" {
			return Spec{}, "", fmt.Errorf("chtype: unexpected trailing data inside Nullable(): %q", leftover)
		}
		spec.Nullable = true
		return spec, tail, nil
	}

	spec, tail, err := parseBareTypeWithRest(s)
	if err != nil {
		return Spec{}, "", err
	}
	spec.Nullable = nullable
	return spec, tail, nil
}

// parseBareType parses a type name plus optional "(args)" with nothing left
// over expected (used inside Nullable(...)).
func parseBareType(s string) (Spec, string, error) {
	return parseBareTypeWithRest(s)
}

// parseBareTypeWithRest parses "TypeName[(args)]" from the front of s and
// returns whatever text follows.
func parseBareTypeWithRest(s string) (Spec, string, error) {
	name, rest := splitName(s)
	t := DataType(name)
	if !t.Valid() {
		return Spec{}, "", fmt.Errorf("chtype: unknown type %q", name)
	}

	var argsStr string
	hasArgs := false
	if strings.HasPrefix(rest, "(") {
		var err error
		argsStr, rest, err = splitParen(rest)
		if err != nil {
			return Spec{}, "", err
		}
		hasArgs = true
	}

	spec := Spec{Type: t}
	if !hasArgs {
		return spec, rest, nil
	}

	args := splitArgs(argsStr)

	switch t {
	case Decimal:
		if len(args) >= 1 {
			if p, err := strconv.Atoi(strings.TrimSpace(args[0])); err == nil {
				spec.Precision = p
				spec.PrecisionSet = true
			}
		}
		if len(args) >= 2 {
			if sc, err := strconv.Atoi(strings.TrimSpace(args[1])); err == nil {
				spec.Scale = sc
				spec.ScaleSet = true
			}
		}
	case Decimal32, Decimal64, Decimal128:
		if len(args) >= 1 {
			if sc, err := strconv.Atoi(strings.TrimSpace(args[0])); err == nil {
				spec.Scale = sc
				spec.ScaleSet = true
			}
		}
	case DateTime, DateTime64:
		// DateTime64 may carry (scale, 'tz') or just ('tz'); DateTime only ('tz').
		idx := 0
		if t == DateTime64 && len(args) > 0 {
			if sc, err := strconv.Atoi(strings.TrimSpace(args[0])); err == nil {
				spec.Scale = sc
				spec.ScaleSet = true
				idx = 1
			}
		}
		if idx < len(args) {
			if tz, ok := unquote(strings.TrimSpace(args[idx])); ok {
				spec.Timezone = tz
			}
		}
	default:
		// Args for other types are discarded; no warning is emitted.
	}

	return spec, rest, nil
}

// Format renders a Spec back to its textual form. Precision/scale are always
// emitted for types where they're meaningful (even at default values) so
// parse(Format(parse(x))) reproduces x for well-formed input.
func Format(s Spec) string {
	var inner string
	switch s.Type {
	case Decimal:
		inner = fmt.Sprintf("%s(%d,%d)", s.Type, s.Precision, s.Scale)
	case Decimal32, Decimal64, Decimal128:
		inner = fmt.Sprintf("%s(%d)", s.Type, s.Scale)
	case DateTime64:
		if s.Timezone != "" {
			inner = fmt.Sprintf("%s(%d,'%s')", s.Type, s.Scale, s.Timezone)
		} else {
			inner = fmt.Sprintf("%s(%d)", s.Type, s.Scale)
		}
	case DateTime:
		if s.Timezone != "" {
			inner = fmt.Sprintf("%s('%s')", s.Type, s.Timezone)
		} else {
			inner = string(s.Type)
		}
	default:
		inner = string(s.Type)
	}

	if s.Nullable {
		return "Nullable(" + inner + ")"
	}
	return inner
}

func stripPrefix(s, prefix string) (string, bool) {
	if strings.HasPrefix(s, prefix) {
		return s[len(prefix):], true
	}
	return s, false
}

// splitName reads a bare identifier (letters/digits) from the front of s.
func splitName(s string) (name string, rest string) {
	i := 0
	for i < len(s) {
		c := s[i]
		if (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || (c >= '0' && c <= '9') {
			i++
			continue
		}
		break
	}
	return s[:i], s[i:]
}

// splitParen consumes a balanced "(...)" from the front of s (s must start
// with '('), returning the inner text and whatever follows the closing ')'.
func splitParen(s string) (inner string, rest string, err error) {
	if len(s) == 0 || s[0] != '(' {
		return "", "", fmt.Errorf("chtype: expected '(' in %q", s)
	}
	depth := 0
	inQuote := false
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case '\'':
			inQuote = !inQuote
		case '(':
			if !inQuote {
				depth++
			}
		case ')':
			if !inQuote {
				depth--
				if depth == 0 {
					return s[1:i], s[i+1:], nil
				}
			}
		}
	}
	return "", "", fmt.Errorf("chtype: unbalanced parens in %q", s)
}

// splitArgs splits a comma-separated argument list, respecting single-quoted
// strings so a timezone like 'Europe/Moscow' isn't split on its own commas
// (it never contains one, but this stays correct in general).
func splitArgs(s string) []string {
	var args []string
	var cur strings.Builder
	inQuote := false
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case c == '\'':
			inQuote = !inQuote
			cur.WriteByte(c)
		case c == ',' && !inQuote:
			args = append(args, cur.String())
			cur.Reset()
		default:
			cur.WriteByte(c)
		}
	}
	if cur.Len() > 0 || len(args) > 0 {
		args = append(args, cur.String())
	}
	return args
}

func unquote(s string) (string, bool) {
	if len(s) >= 2 && s[0] == '\'' && s[len(s)-1] == '\'' {
		return s[1 : len(s)-1], true
	}
	return "", false
}
