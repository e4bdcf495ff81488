package request

import "strings"

// NormalizeQuery rewrites q for the backend: if q contains
// " FROM " followed by a quoted identifier, the inner name replaces the
// whole query (ClickHouse sends a synthetic "SELECT ... FROM `real_query`"
// wrapper whose quoted identifier carries the actual query text). The result
// is also C-style unescaped. A second pass returns the result unchanged when
// it holds no " FROM " followed by a quoted identifier and no backslash
// escape; a result that still holds either (e.g. the first pass turns \\n
// into \n, which a second pass turns into a newline) is rewritten again.
func NormalizeQuery(q string) string {
	if inner, ok := extractFromQuoted(q); ok {
		return unescapeCStyle(inner)
	}
	return unescapeCStyle(q)
}

// ExtractTableName returns the first
// quoted identifier following FROM, or, when FROM is followed by an unquoted
// name, that name up to the next whitespace, or the whole string if there's
// no FROM.
func ExtractTableName(q string) string {
	if inner, ok := extractFromQuoted(q); ok {
		return inner
	}
	idx := findFromKeyword(q)
	if idx < 0 {
		return q
	}
	rest := strings.TrimSpace(q[idx+len(" FROM "):])
	end := strings.IndexAny(rest, " \t\n")
	if end < 0 {
		return rest
	}
	return rest[:end]
}

// findFromKeyword returns the index of the first case-sensitive " FROM "
// token (ClickHouse always emits it upper-case in the synthetic wrapper), or
// -1.
func findFromKeyword(q string) int {
	return strings.Index(q, " FROM ")
}

// extractFromQuoted finds " FROM " and, if what follows is a quoted
// identifier (optionally schema-qualified, e.g. `schema`.`t`), returns its
// innermost unescaped name. The last dotted segment wins, so
// `schema`.`t` → t.
func extractFromQuoted(q string) (string, bool) {
	idx := findFromKeyword(q)
	if idx < 0 {
		return "", false
	}
	rest := strings.TrimLeft(q[idx+len(" FROM "):], " \t")
	if rest == "" {
		return "", false
	}

	quote := rest[0]
	if quote != '`' && quote != '"' {
		return "", false
	}

	name, remainder, ok := consumeQuotedIdentifier(rest, quote)
	if !ok {
		return "", false
	}

	// schema-qualified: `schema`.`table` — keep consuming dotted segments.
	for strings.HasPrefix(remainder, ".") {
		next := remainder[1:]
		if next == "" || (next[0] != '`' && next[0] != '"') {
			break
		}
		n, r, ok := consumeQuotedIdentifier(next, next[0])
		if !ok {
			break
		}
		name, remainder = n, r
	}

	return name, true
}

// consumeQuotedIdentifier parses a quote-delimited identifier (doubled-quote
// escaping) from the front of s, returning its unescaped content and
// whatever trails it.
func consumeQuotedIdentifier(s string, quote byte) (name string, rest string, ok bool) {
	var b strings.Builder
	i := 1
	for i < len(s) {
		if s[i] == quote {
			if i+1 < len(s) && s[i+1] == quote {
				b.WriteByte(quote)
				i += 2
				continue
			}
			return b.String(), s[i+1:], true
		}
		b.WriteByte(s[i])
		i++
	}
	return "", "", false
}

// unescapeCStyle unescapes the standard C-style escapes this bridge
// recognizes: \t \b \n \r \f \' \" \\. A string with no backslash is
// returned as is; "\\" collapses to a single backslash, so a second pass
// over such output can unescape again.
func unescapeCStyle(s string) string {
	if !strings.ContainsRune(s, '\\') {
		return s
	}
	var b strings.Builder
	b.Grow(len(s))
	for i := 0; i < len(s); i++ {
		c := s[i]
		if c != '\\' || i+1 >= len(s) {
			b.WriteByte(c)
			continue
		}
		next := s[i+1]
		switch next {
		case 't':
			b.WriteByte('\t')
		case 'b':
			b.WriteByte('\b')
		case 'n':
			b.WriteByte('\n')
		case 'r':
			b.WriteByte('\r')
		case 'f':
			b.WriteByte('\f')
		case '\'':
			b.WriteByte('\'')
		case '"':
			b.WriteByte('"')
		case '\\':
			b.WriteByte('\\')
		default:
			b.WriteByte(c)
			b.WriteByte(next)
			i++
			continue
		}
		i++
	}
	return b.String()
}
