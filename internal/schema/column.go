// Package schema implements the column metadata model: typed column
// descriptors, ordered column lists, and the textual "columns
// format version: N" header ClickHouse and the bridge exchange.
package schema

import (
	"fmt"

	"chbridge/internal/chtype"
)

// Value is a typed default value attached to a column. Only one of the
// fields is meaningful, selected by the owning ColumnInfo.Type.
type Value struct {
	Int     int64
	Float   float64
	Str     string
	Bool    bool
	Present bool
}

// ColumnInfo describes a single column: name, type, nullability, and the
// type-specific precision/scale/timezone qualifiers.
type ColumnInfo struct {
	Name         string
	Type         chtype.DataType
	Nullable     bool
	Precision    int
	Scale        int
	Timezone     string // only meaningful for DateTime/DateTime64
	Default      Value
	HasDefault   bool
	index        int // resolved position in an outer (named query) column list; -1 = unresolved
}

// NewColumn builds a ColumnInfo with precision/scale/timezone normalized per
// the type's own defaulting table.
func NewColumn(name string, t chtype.DataType, nullable bool) (ColumnInfo, error) {
	return NewColumnWithArgs(name, t, nullable, 0, 0, "", false, false)
}

// NewColumnWithArgs is the fully-specified constructor used by the grammar
// parser and by data sources building columns from driver metadata.
func NewColumnWithArgs(name string, t chtype.DataType, nullable bool, precision, scale int, timezone string, precisionSet, scaleSet bool) (ColumnInfo, error) {
	if !t.Valid() {
		return ColumnInfo{}, fmt.Errorf("schema: unknown column type %q", t)
	}

	p, s, err := chtype.Normalize(t, precision, scale, precisionSet, scaleSet)
	if err != nil {
		return ColumnInfo{}, fmt.Errorf("schema: column %q: %w", name, err)
	}

	tz := timezone
	if !chtype.UsesTimezone(t) {
		tz = ""
	}
	if !chtype.UsesPrecisionScale(t) {
		p, s = 0, 0
	}

	return ColumnInfo{
		Name:      name,
		Type:      t,
		Nullable:  nullable,
		Precision: p,
		Scale:     s,
		Timezone:  tz,
		index:     -1,
	}, nil
}

// Index returns the resolved position of this column in an outer (named
// query) column list, or -1 if unresolved.
func (c ColumnInfo) Index() int { return c.index }

// WithIndex returns a copy of c with its index resolved. It is an error to
// resolve an already-resolved index; the index can be set at most once.
func (c ColumnInfo) WithIndex(i int) (ColumnInfo, error) {
	if c.index != -1 {
		return ColumnInfo{}, fmt.Errorf("schema: column %q index already resolved to %d", c.Name, c.index)
	}
	cp := c
	cp.index = i
	return cp, nil
}

// WithDefault returns a copy of c carrying the given default value.
func (c ColumnInfo) WithDefault(v Value) ColumnInfo {
	cp := c
	cp.Default = v
	cp.HasDefault = true
	return cp
}

// Equal compares two ColumnInfo values by their externally visible fields
// (index is excluded: it's resolved per-request, not part of the column's
// identity for the round-trip.
func (c ColumnInfo) Equal(o ColumnInfo) bool {
	return c.Name == o.Name &&
		c.Type == o.Type &&
		c.Nullable == o.Nullable &&
		c.Precision == o.Precision &&
		c.Scale == o.Scale &&
		c.Timezone == o.Timezone
}
