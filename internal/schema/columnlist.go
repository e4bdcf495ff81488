package schema

import (
	"fmt"
	"strconv"
	"strings"

	"chbridge/internal/chtype"
)

// DefaultVersion is the columns-format version written when a ColumnList is
// constructed fresh rather than parsed from an existing header.
const DefaultVersion = 1

// ColumnList is an ordered set of columns plus the header's format version.
// It round-trips through String()/ParseColumnList.
type ColumnList struct {
	Version int
	Columns []ColumnInfo
}

// New builds a ColumnList at DefaultVersion.
func New(columns ...ColumnInfo) ColumnList {
	return ColumnList{Version: DefaultVersion, Columns: columns}
}

// Size returns the number of columns.
func (l ColumnList) Size() int { return len(l.Columns) }

// Column returns the column at position i.
func (l ColumnList) Column(i int) (ColumnInfo, error) {
	if i < 0 || i >= len(l.Columns) {
		return ColumnInfo{}, fmt.Errorf("schema: column index %d out of range [0,%d)", i, len(l.Columns))
	}
	return l.Columns[i], nil
}

// ContainsColumn reports whether a column with the given name exists.
func (l ColumnList) ContainsColumn(name string) bool {
	_, ok := l.find(name)
	return ok
}

func (l ColumnList) find(name string) (int, bool) {
	for i, c := range l.Columns {
		if c.Name == name {
			return i, true
		}
	}
	return -1, false
}

// Append returns a new ColumnList with extra columns added at the end.
func (l ColumnList) Append(extra ...ColumnInfo) ColumnList {
	cp := make([]ColumnInfo, 0, len(l.Columns)+len(extra))
	cp = append(cp, l.Columns...)
	cp = append(cp, extra...)
	return ColumnList{Version: l.Version, Columns: cp}
}

// Prepend returns a new ColumnList with extra columns added at the front,
// used by the debug/diagnostic paths that prefix a datasource column and any
// custom columns ahead of the query's own columns.
func (l ColumnList) Prepend(extra ...ColumnInfo) ColumnList {
	cp := make([]ColumnInfo, 0, len(l.Columns)+len(extra))
	cp = append(cp, extra...)
	cp = append(cp, l.Columns...)
	return ColumnList{Version: l.Version, Columns: cp}
}

// UpdateValues copies default values from same-named entries in ref into l,
// column by column.
func (l ColumnList) UpdateValues(ref ColumnList) ColumnList {
	cp := make([]ColumnInfo, len(l.Columns))
	copy(cp, l.Columns)
	for i, c := range cp {
		if j, ok := ref.find(c.Name); ok && ref.Columns[j].HasDefault {
			cp[i] = c.WithDefault(ref.Columns[j].Default)
		}
	}
	return ColumnList{Version: l.Version, Columns: cp}
}

// Equal compares two lists column-by-column and by version.
func (l ColumnList) Equal(o ColumnList) bool {
	if l.Version != o.Version || len(l.Columns) != len(o.Columns) {
		return false
	}
	for i := range l.Columns {
		if !l.Columns[i].Equal(o.Columns[i]) {
			return false
		}
	}
	return true
}

// String renders the ClickHouse columns header:
//
//	columns format version: <version>
//	<N> columns:
//	`<name>` [Nullable(]<TypeSpec>[)]
//	...
func (l ColumnList) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "columns format version: %d\n", l.Version)
	fmt.Fprintf(&b, "%d columns:\n", len(l.Columns))
	for _, c := range l.Columns {
		spec := chtype.Spec{
			Type:      c.Type,
			Nullable:  c.Nullable,
			Precision: c.Precision,
			Scale:     c.Scale,
			Timezone:  c.Timezone,
		}
		fmt.Fprintf(&b, "%s %s\n", quoteIdentifier(c.Name), chtype.Format(spec))
	}
	return b.String()
}

// ParseColumnList parses a ClickHouse columns header, the inverse of String.
func ParseColumnList(header string) (ColumnList, error) {
	lines := splitLines(header)
	if len(lines) == 0 {
		return ColumnList{}, fmt.Errorf("schema: empty columns header")
	}

	const versionPrefix = "columns format version: "
	if !strings.HasPrefix(lines[0], versionPrefix) {
		return ColumnList{}, fmt.Errorf("schema: missing %q prefix", versionPrefix)
	}
	version, err := strconv.Atoi(strings.TrimSpace(lines[0][len(versionPrefix):]))
	if err != nil {
		return ColumnList{}, fmt.Errorf("schema: invalid version: %w", err)
	}

	if len(lines) < 2 {
		return ColumnList{}, fmt.Errorf("schema: missing column count line")
	}
	const countSuffix = " columns:"
	if !strings.HasSuffix(lines[1], countSuffix) {
		return ColumnList{}, fmt.Errorf("schema: missing %q suffix", countSuffix)
	}
	count, err := strconv.Atoi(strings.TrimSpace(strings.TrimSuffix(lines[1], countSuffix)))
	if err != nil {
		return ColumnList{}, fmt.Errorf("schema: invalid column count: %w", err)
	}

	columns := make([]ColumnInfo, 0, count)
	for i := 0; i < count; i++ {
		lineIdx := 2 + i
		if lineIdx >= len(lines) {
			return ColumnList{}, fmt.Errorf("schema: expected %d columns, found %d", count, len(lines)-2)
		}
		col, err := parseColumnLine(lines[lineIdx])
		if err != nil {
			return ColumnList{}, fmt.Errorf("schema: column %d: %w", i, err)
		}
		columns = append(columns, col)
	}

	return ColumnList{Version: version, Columns: columns}, nil
}

func splitLines(s string) []string {
	s = strings.TrimRight(s, "\n")
	if s == "" {
		return nil
	}
	return strings.Split(s, "\n")
}

func parseColumnLine(line string) (ColumnInfo, error) {
	name, rest, err := parseIdentifier(line)
	if err != nil {
		return ColumnInfo{}, err
	}
	rest = strings.TrimLeft(rest, " \t")

	spec, trailing, err := chtype.ParseType(rest)
	if err != nil {
		return ColumnInfo{}, err
	}
	if strings.TrimSpace(trailing) != "" {
		return ColumnInfo{}, fmt.Errorf("unexpected trailing text %q", trailing)
	}

	return NewColumnWithArgs(name, spec.Type, spec.Nullable, spec.Precision, spec.Scale, spec.Timezone, spec.PrecisionSet, spec.ScaleSet)
}
