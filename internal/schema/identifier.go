package schema

import (
	"fmt"
	"strings"
)

// quoteIdentifier renders name as a backtick-quoted identifier, doubling any
// embedded backtick.
func quoteIdentifier(name string) string {
	return "`" + strings.ReplaceAll(name, "`", "``") + "`"
}

// parseIdentifier parses one of the three identifier forms from the front of
// line: backtick-quoted, double-quoted, or bare (up to whitespace). It
// returns the unescaped name and whatever text follows it.
func parseIdentifier(line string) (name string, rest string, err error) {
	line = strings.TrimLeft(line, " \t")
	if line == "" {
		return "", "", fmt.Errorf("schema: empty identifier")
	}

	switch line[0] {
	case '`':
		return parseQuoted(line, '`')
	case '"':
		return parseQuoted(line, '"')
	default:
		i := strings.IndexAny(line, " \t")
		if i < 0 {
			return "", "", fmt.Errorf("schema: identifier %q has no following type", line)
		}
		return line[:i], line[i:], nil
	}
}

// parseQuoted consumes a quote-delimited identifier where the delimiter is
// escaped by doubling it (``` `` ``` inside a backtick-quoted name, `""` for
// double-quoted), returning the unescaped content and the remaining text.
func parseQuoted(line string, quote byte) (name string, rest string, err error) {
	var b strings.Builder
	i := 1
	for i < len(line) {
		if line[i] == quote {
			if i+1 < len(line) && line[i+1] == quote {
				b.WriteByte(quote)
				i += 2
				continue
			}
			return b.String(), line[i+1:], nil
		}
		b.WriteByte(line[i])
		i++
	}
	return "", "", fmt.Errorf("schema: unterminated quoted identifier in %q", line)
}
