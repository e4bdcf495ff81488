package datasource

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"chbridge/internal/chtype"
	"chbridge/internal/schema"
	"chbridge/internal/wire"
)

// loadLocation resolves a column's timezone name, defaulting to UTC when
// unset or unresolvable.
func loadLocation(tz string) *time.Location {
	if tz == "" {
		return time.UTC
	}
	loc, err := time.LoadLocation(tz)
	if err != nil {
		return time.UTC
	}
	return loc
}

// writeValue dispatches a scanned driver value to the matching wire.Encoder
// write method by col.Type.
func writeValue(enc *wire.Encoder, col schema.ColumnInfo, val interface{}) error {
	switch col.Type {
	case chtype.Int8, chtype.Int16, chtype.Int32, chtype.Int64,
		chtype.UInt8, chtype.UInt16, chtype.UInt32, chtype.UInt64:
		n, err := toInt64(val)
		if err != nil {
			return err
		}
		return writeIntOfType(enc, col.Type, n)

	case chtype.Float32:
		f, err := toFloat64(val)
		if err != nil {
			return err
		}
		return enc.WriteFloat32(float32(f))

	case chtype.Float64:
		f, err := toFloat64(val)
		if err != nil {
			return err
		}
		return enc.WriteFloat64(f)

	case chtype.String:
		return enc.WriteString(toString(val))

	case chtype.Date:
		t, err := toTime(val)
		if err != nil {
			return err
		}
		return enc.WriteDate(t, loadLocation(col.Timezone))

	case chtype.DateTime:
		t, err := toTime(val)
		if err != nil {
			return err
		}
		return enc.WriteDateTime(t, loadLocation(col.Timezone))

	case chtype.DateTime64:
		t, err := toTime(val)
		if err != nil {
			return err
		}
		return enc.WriteDateTime64(t, loadLocation(col.Timezone))

	case chtype.Decimal, chtype.Decimal32, chtype.Decimal64, chtype.Decimal128:
		d, err := toDecimal(val)
		if err != nil {
			return err
		}
		return enc.WriteDecimal(d, col.Precision, col.Scale)

	default:
		return fmt.Errorf("datasource: unsupported column type %q", col.Type)
	}
}

// writeColumnDefault writes col's configured default (if any) or its
// type-appropriate zero value, used for customColumns prefix values and for
// nullAsDefault substitution.
func writeColumnDefault(enc *wire.Encoder, col schema.ColumnInfo) error {
	if col.HasDefault {
		switch col.Type {
		case chtype.String:
			return enc.WriteString(col.Default.Str)
		case chtype.Float32, chtype.Float64, chtype.Decimal, chtype.Decimal32, chtype.Decimal64, chtype.Decimal128:
			if col.Default.Present {
				return writeValue(enc, col, col.Default.Float)
			}
		default:
			if col.Default.Present {
				return writeIntOfType(enc, col.Type, col.Default.Int)
			}
		}
	}

	return enc.WriteDefaultValue(wire.DefaultTarget{
		Type:      string(col.Type),
		Precision: col.Precision,
		Scale:     col.Scale,
		Timezone:  loadLocation(col.Timezone),
	})
}

func writeIntOfType(enc *wire.Encoder, t chtype.DataType, n int64) error {
	switch t {
	case chtype.Int8:
		return enc.WriteInt8(n)
	case chtype.Int16:
		return enc.WriteInt16(n)
	case chtype.Int32:
		return enc.WriteInt32(n)
	case chtype.Int64:
		return enc.WriteInt64(n)
	case chtype.UInt8:
		return enc.WriteUInt8(n)
	case chtype.UInt16:
		return enc.WriteUInt16(n)
	case chtype.UInt32:
		return enc.WriteUInt32(n)
	case chtype.UInt64:
		if n < 0 {
			return fmt.Errorf("datasource: negative value %d for UInt64", n)
		}
		return enc.WriteUInt64(uint64(n))
	default:
		return fmt.Errorf("datasource: %q is not an integer type", t)
	}
}

func toInt64(val interface{}) (int64, error) {
	switch v := val.(type) {
	case int64:
		return v, nil
	case int32:
		return int64(v), nil
	case int:
		return int64(v), nil
	case []byte:
		d, err := decimal.NewFromString(string(v))
		if err != nil {
			return 0, fmt.Errorf("datasource: parse int %q: %w", v, err)
		}
		return d.IntPart(), nil
	case string:
		d, err := decimal.NewFromString(v)
		if err != nil {
			return 0, fmt.Errorf("datasource: parse int %q: %w", v, err)
		}
		return d.IntPart(), nil
	case bool:
		if v {
			return 1, nil
		}
		return 0, nil
	default:
		return 0, fmt.Errorf("datasource: cannot convert %T to int64", val)
	}
}

func toFloat64(val interface{}) (float64, error) {
	switch v := val.(type) {
	case float64:
		return v, nil
	case float32:
		return float64(v), nil
	case []byte:
		d, err := decimal.NewFromString(string(v))
		if err != nil {
			return 0, fmt.Errorf("datasource: parse float %q: %w", v, err)
		}
		f, _ := d.Float64()
		return f, nil
	case string:
		d, err := decimal.NewFromString(v)
		if err != nil {
			return 0, fmt.Errorf("datasource: parse float %q: %w", v, err)
		}
		f, _ := d.Float64()
		return f, nil
	default:
		return 0, fmt.Errorf("datasource: cannot convert %T to float64", val)
	}
}

func toString(val interface{}) string {
	switch v := val.(type) {
	case []byte:
		return string(v)
	case string:
		return v
	default:
		return fmt.Sprintf("%v", v)
	}
}

func toTime(val interface{}) (time.Time, error) {
	switch v := val.(type) {
	case time.Time:
		return v, nil
	case []byte:
		return parseTimeString(string(v))
	case string:
		return parseTimeString(v)
	default:
		return time.Time{}, fmt.Errorf("datasource: cannot convert %T to time.Time", val)
	}
}

var timeLayouts = []string{
	"2006-01-02 15:04:05.999999999",
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05.999999999Z07:00",
	"2006-01-02T15:04:05Z07:00",
	"2006-01-02",
}

func parseTimeString(s string) (time.Time, error) {
	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("datasource: cannot parse time %q", s)
}

func toDecimal(val interface{}) (decimal.Decimal, error) {
	switch v := val.(type) {
	case []byte:
		return decimal.NewFromString(string(v))
	case string:
		return decimal.NewFromString(v)
	case float64:
		return decimal.NewFromFloat(v), nil
	case float32:
		return decimal.NewFromFloat32(v), nil
	case int64:
		return decimal.NewFromInt(v), nil
	case int32:
		return decimal.NewFromInt32(v), nil
	default:
		return decimal.Decimal{}, fmt.Errorf("datasource: cannot convert %T to decimal", val)
	}
}
