// Package chtype implements the closed set of ClickHouse data types the
// bridge understands: their defaulting rules and their
// textual grammar, used to parse and format the "columns format version: N"
// header ClickHouse and the bridge exchange.
package chtype

import "fmt"

// DataType is the closed enum of ClickHouse scalar types this bridge speaks.
type DataType string

const (
	Int8       DataType = "Int8"
	Int16      DataType = "Int16"
	Int32      DataType = "Int32"
	Int64      DataType = "Int64"
	UInt8      DataType = "UInt8"
	UInt16     DataType = "UInt16"
	UInt32     DataType = "UInt32"
	UInt64     DataType = "UInt64"
	Float32    DataType = "Float32"
	Float64    DataType = "Float64"
	Date       DataType = "Date"
	DateTime   DataType = "DateTime"
	DateTime64 DataType = "DateTime64"
	Decimal    DataType = "Decimal"
	Decimal32  DataType = "Decimal32"
	Decimal64  DataType = "Decimal64"
	Decimal128 DataType = "Decimal128"
	String     DataType = "String"
)

// knownTypes backs Valid() and is walked in a stable order by nothing in
// particular; it exists so unknown type names fail fast instead of silently
// round-tripping as strings.
var knownTypes = map[DataType]struct{}{
	Int8: {}, Int16: {}, Int32: {}, Int64: {},
	UInt8: {}, UInt16: {}, UInt32: {}, UInt64: {},
	Float32: {}, Float64: {},
	Date: {}, DateTime: {}, DateTime64: {},
	Decimal: {}, Decimal32: {}, Decimal64: {}, Decimal128: {},
	String: {},
}

// Valid reports whether t is one of the 18 supported type names.
func (t DataType) Valid() bool {
	_, ok := knownTypes[t]
	return ok
}

// MaxDecimalPrecision is the largest precision representable by Decimal128.
const MaxDecimalPrecision = 38

// MaxDateTime64Scale is the largest fractional-second scale DateTime64
// accepts (nanosecond resolution).
const MaxDateTime64Scale = 9

// defaultPrecisionScale returns this bridge's defaulting values. Scale
// is later clamped to [0, effective precision] by Normalize.
func defaultPrecisionScale(t DataType) (precision, scale int) {
	switch t {
	case Decimal:
		return 10, 4
	case Decimal32:
		return 9, 2
	case Decimal64:
		return 18, 4
	case Decimal128:
		return 38, 8
	case DateTime64:
		return 0, 3
	default:
		return 0, 0
	}
}

// FixedPrecision returns the precision fixed by the type name itself, and
// whether that fixing applies (Decimal32/64/128 ignore any explicit p arg).
func FixedPrecision(t DataType) (precision int, fixed bool) {
	switch t {
	case Decimal32:
		return 9, true
	case Decimal64:
		return 18, true
	case Decimal128:
		return 38, true
	default:
		return 0, false
	}
}

// Normalize applies the defaulting and clamping rules: unset precision/scale
// for Decimal*/DateTime64 fall back to the table defaults, fixed-precision
// Decimal variants ignore any supplied precision, Decimal* scale is clamped
// into [0, precision], and DateTime64 scale is clamped into [0,
// MaxDateTime64Scale] independent of precision (DateTime64's precision is
// the datetime field width, not a scale ceiling).
func Normalize(t DataType, precision, scale int, precisionSet, scaleSet bool) (int, int, error) {
	defP, defS := defaultPrecisionScale(t)

	if fixedP, fixed := FixedPrecision(t); fixed {
		precision = fixedP
		if !scaleSet {
			scale = defS
		}
	} else {
		if !precisionSet {
			precision = defP
		}
		if !scaleSet {
			scale = defS
		}
	}

	if precision > MaxDecimalPrecision {
		return 0, 0, fmt.Errorf("chtype: precision %d exceeds maximum %d", precision, MaxDecimalPrecision)
	}
	if scale < 0 {
		scale = 0
	}
	if t == DateTime64 {
		if scale > MaxDateTime64Scale {
			scale = MaxDateTime64Scale
		}
	} else if scale > precision {
		scale = precision
	}

	return precision, scale, nil
}

// UsesPrecisionScale reports whether precision/scale are meaningful for t:
// only Decimal* and DateTime64 carry them.
func UsesPrecisionScale(t DataType) bool {
	switch t {
	case Decimal, Decimal32, Decimal64, Decimal128, DateTime64:
		return true
	default:
		return false
	}
}

// UsesTimezone reports whether a timezone argument is meaningful for t.
func UsesTimezone(t DataType) bool {
	return t == DateTime || t == DateTime64
}
