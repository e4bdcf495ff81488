// Package wire implements the native row binary encoder:
// a growable byte buffer whose operations append ClickHouse-native,
// little-endian wire values. Decimal scaling uses shopspring/decimal for
// exact arbitrary-precision rounding rather than hand-rolled float math.
package wire

import (
	"encoding/binary"
	"fmt"
	"math"
	"math/big"
	"time"

	"github.com/shopspring/decimal"
)

// ErrEncoding wraps every out-of-range or malformed write; it maps to a HTTP
// 500 at the server boundary.
type ErrEncoding struct {
	Op  string
	Val interface{}
}

func (e *ErrEncoding) Error() string {
	return fmt.Sprintf("wire: %s: value %v out of range", e.Op, e.Val)
}

// maxSecondsClamp is (2^32*1000-1)/1000 truncated, i.e. 2^32-1: the largest
// second value a DateTime's UInt32 wire slot can hold.
const maxSecondsClamp = math.MaxUint32

// maxMillisForDateTime is the raw millisecond bound DateTime64 clamps to:
// 2^32·1000 − 1.
const maxMillisForDateTime = uint64(math.MaxUint32+1)*1000 - 1

// Encoder accumulates native-format bytes for one response row stream. It
// carries an optional default timezone used by Date/DateTime/DateTime64 when
// no per-column timezone is set.
type Encoder struct {
	buf             []byte
	defaultLocation *time.Location
}

// NewEncoder returns an Encoder with no buffered bytes yet.
func NewEncoder(defaultLocation *time.Location) *Encoder {
	loc := defaultLocation
	if loc == nil {
		loc = time.UTC
	}
	return &Encoder{defaultLocation: loc}
}

// Bytes returns the accumulated buffer.
func (e *Encoder) Bytes() []byte { return e.buf }

// Reset empties the buffer for reuse across rows without reallocating.
func (e *Encoder) Reset() { e.buf = e.buf[:0] }

// WriteUnsignedLeb128 appends n as an unsigned LEB128 varint.
func (e *Encoder) WriteUnsignedLeb128(n uint64) error {
	for {
		b := byte(n & 0x7f)
		n >>= 7
		if n != 0 {
			b |= 0x80
		}
		e.buf = append(e.buf, b)
		if n == 0 {
			return nil
		}
	}
}

func (e *Encoder) WriteInt8(v int64) error {
	if v < math.MinInt8 || v > math.MaxInt8 {
		return &ErrEncoding{"WriteInt8", v}
	}
	e.buf = append(e.buf, byte(int8(v)))
	return nil
}

func (e *Encoder) WriteInt16(v int64) error {
	if v < math.MinInt16 || v > math.MaxInt16 {
		return &ErrEncoding{"WriteInt16", v}
	}
	var b [2]byte
	binary.LittleEndian.PutUint16(b[:], uint16(int16(v)))
	e.buf = append(e.buf, b[:]...)
	return nil
}

func (e *Encoder) WriteInt32(v int64) error {
	if v < math.MinInt32 || v > math.MaxInt32 {
		return &ErrEncoding{"WriteInt32", v}
	}
	var b [4]byte
	binary.LittleEndian.PutUint32(b[:], uint32(int32(v)))
	e.buf = append(e.buf, b[:]...)
	return nil
}

func (e *Encoder) WriteInt64(v int64) error {
	var b [8]byte
	binary.LittleEndian.PutUint64(b[:], uint64(v))
	e.buf = append(e.buf, b[:]...)
	return nil
}

func (e *Encoder) WriteUInt8(v int64) error {
	if v < 0 || v > math.MaxUint8 {
		return &ErrEncoding{"WriteUInt8", v}
	}
	e.buf = append(e.buf, byte(v))
	return nil
}

func (e *Encoder) WriteUInt16(v int64) error {
	if v < 0 || v > math.MaxUint16 {
		return &ErrEncoding{"WriteUInt16", v}
	}
	var b [2]byte
	binary.LittleEndian.PutUint16(b[:], uint16(v))
	e.buf = append(e.buf, b[:]...)
	return nil
}

func (e *Encoder) WriteUInt32(v int64) error {
	if v < 0 || v > math.MaxUint32 {
		return &ErrEncoding{"WriteUInt32", v}
	}
	var b [4]byte
	binary.LittleEndian.PutUint32(b[:], uint32(v))
	e.buf = append(e.buf, b[:]...)
	return nil
}

func (e *Encoder) WriteUInt64(v uint64) error {
	var b [8]byte
	binary.LittleEndian.PutUint64(b[:], v)
	e.buf = append(e.buf, b[:]...)
	return nil
}

func (e *Encoder) WriteFloat32(v float32) error {
	return e.WriteUInt32Raw(math.Float32bits(v))
}

// WriteUInt32Raw writes the four bytes of a bit pattern without range
// checking (used internally for float bit patterns).
func (e *Encoder) WriteUInt32Raw(v uint32) error {
	var b [4]byte
	binary.LittleEndian.PutUint32(b[:], v)
	e.buf = append(e.buf, b[:]...)
	return nil
}

func (e *Encoder) WriteFloat64(v float64) error {
	var b [8]byte
	binary.LittleEndian.PutUint64(b[:], math.Float64bits(v))
	e.buf = append(e.buf, b[:]...)
	return nil
}

// WriteString appends LEB128(len(utf8 bytes)) followed by the bytes.
func (e *Encoder) WriteString(s string) error {
	if err := e.WriteUnsignedLeb128(uint64(len(s))); err != nil {
		return err
	}
	e.buf = append(e.buf, s...)
	return nil
}

// WriteBoolean appends a single 0/1 byte.
func (e *Encoder) WriteBoolean(b bool) error {
	if b {
		e.buf = append(e.buf, 1)
		return nil
	}
	e.buf = append(e.buf, 0)
	return nil
}

// WriteNull marks a nullable column's value as absent (1 = null).
func (e *Encoder) WriteNull() error {
	e.buf = append(e.buf, 1)
	return nil
}

// WriteNonNull marks a nullable column's value as present (0 = present). The
// value payload itself must follow immediately.
func (e *Encoder) WriteNonNull() error {
	e.buf = append(e.buf, 0)
	return nil
}

func (e *Encoder) locationOrDefault(loc *time.Location) *time.Location {
	if loc != nil {
		return loc
	}
	return e.defaultLocation
}

// WriteDate writes days since 1970-01-01 as a UInt16, computed from
// local-midnight of d in tz (or the encoder's default timezone).
func (e *Encoder) WriteDate(d time.Time, tz *time.Location) error {
	loc := e.locationOrDefault(tz)
	wall := d.In(loc)
	midnight := time.Date(wall.Year(), wall.Month(), wall.Day(), 0, 0, 0, 0, loc)
	days := midnight.Unix() / 86400
	if days < 0 {
		days = 0
	}
	if days > math.MaxUint16 {
		days = math.MaxUint16
	}
	var b [2]byte
	binary.LittleEndian.PutUint16(b[:], uint16(days))
	e.buf = append(e.buf, b[:]...)
	return nil
}

// clampSeconds clamps to [1, 2^32-1] (2^32·1000 − 1 divided by 1000
// truncates to exactly 2^32-1).
func clampSeconds(sec int64) uint32 {
	if sec < 1 {
		return 1
	}
	if sec > maxSecondsClamp {
		return maxSecondsClamp
	}
	return uint32(sec)
}

// WriteDateTime writes seconds-since-epoch as a clamped UInt32. Go's
// time.Time already carries an absolute instant, so tz does not shift the
// encoded value; it is accepted for API symmetry with WriteDate/WriteDateTime64
// and for sources that need to attach a display timezone to the column.
func (e *Encoder) WriteDateTime(t time.Time, tz *time.Location) error {
	return e.WriteUInt32Raw(clampSeconds(t.Unix()))
}

// WriteDateTime64 writes milliseconds-since-epoch as a UInt64, clamped to
// [1, 2^32*1000-1].
func (e *Encoder) WriteDateTime64(t time.Time, tz *time.Location) error {
	ms := t.UnixMilli()
	if ms < 1 {
		ms = 1
	}
	if uint64(ms) > maxMillisForDateTime {
		ms = int64(maxMillisForDateTime)
	}
	return e.WriteUInt64(uint64(ms))
}

// WriteDecimal dispatches to Decimal32/64/128 by precision threshold
// (9/18).
func (e *Encoder) WriteDecimal(v decimal.Decimal, precision, scale int) error {
	switch {
	case precision <= 9:
		return e.WriteDecimal32(v, scale)
	case precision <= 18:
		return e.WriteDecimal64(v, scale)
	default:
		return e.WriteDecimal128(v, scale)
	}
}

func scaledInt(v decimal.Decimal, scale int) *big.Int {
	return v.Shift(int32(scale)).Round(0).Coefficient()
}

func (e *Encoder) WriteDecimal32(v decimal.Decimal, scale int) error {
	scaled := scaledInt(v, scale)
	if !scaled.IsInt64() {
		return &ErrEncoding{"WriteDecimal32", v.String()}
	}
	return e.WriteInt32(scaled.Int64())
}

func (e *Encoder) WriteDecimal64(v decimal.Decimal, scale int) error {
	scaled := scaledInt(v, scale)
	if !scaled.IsInt64() {
		return &ErrEncoding{"WriteDecimal64", v.String()}
	}
	return e.WriteInt64(scaled.Int64())
}

// WriteDecimal128 writes the scaled value as two's-complement little-endian,
// zero-padded (positive) or sign-extended (negative) to exactly 16 bytes.
func (e *Encoder) WriteDecimal128(v decimal.Decimal, scale int) error {
	scaled := scaledInt(v, scale)

	var unsigned big.Int
	if scaled.Sign() < 0 {
		// two's complement: 2^128 + scaled
		mod := new(big.Int).Lsh(big.NewInt(1), 128)
		unsigned.Add(mod, scaled)
	} else {
		unsigned.Set(scaled)
	}

	be := unsigned.Bytes() // big-endian, no leading zero guarantee on length
	if len(be) > 16 {
		return &ErrEncoding{"WriteDecimal128", v.String()}
	}

	var out [16]byte
	// be is big-endian; place it right-aligned then reverse to little-endian.
	copy(out[16-len(be):], be)
	for i, j := 0, 15; i < j; i, j = i+1, j-1 {
		out[i], out[j] = out[j], out[i]
	}
	e.buf = append(e.buf, out[:]...)
	return nil
}

// WriteDefaultValue writes a zero-ish value for col.Type, used when
// nullAsDefault=true and the backend returned null.
func (e *Encoder) WriteDefaultValue(t DefaultTarget) error {
	switch t.Type {
	case "Int8", "Int16", "Int32", "UInt8", "UInt16", "UInt32":
		return e.writeIntDefault(t.Type)
	case "Int64", "UInt64":
		return e.WriteInt64(0)
	case "Float32":
		return e.WriteFloat32(0)
	case "Float64":
		return e.WriteFloat64(0)
	case "Date":
		return e.WriteDate(time.Unix(0, 0).UTC(), t.Timezone)
	case "DateTime":
		return e.WriteDateTime(time.Unix(0, 0).UTC(), t.Timezone)
	case "DateTime64":
		return e.WriteDateTime64(time.Unix(0, 0).UTC(), t.Timezone)
	case "Decimal", "Decimal32", "Decimal64", "Decimal128":
		return e.WriteDecimal(decimal.Zero, t.Precision, t.Scale)
	case "String":
		return e.WriteString("")
	default:
		return &ErrEncoding{"WriteDefaultValue", t.Type}
	}
}

func (e *Encoder) writeIntDefault(typeName string) error {
	switch typeName {
	case "Int8":
		return e.WriteInt8(0)
	case "Int16":
		return e.WriteInt16(0)
	case "Int32":
		return e.WriteInt32(0)
	case "UInt8":
		return e.WriteUInt8(0)
	case "UInt16":
		return e.WriteUInt16(0)
	case "UInt32":
		return e.WriteUInt32(0)
	}
	return nil
}

// DefaultTarget carries just enough column metadata for WriteDefaultValue;
// it mirrors schema.ColumnInfo's relevant fields without importing schema
// (wire sits below schema in the dependency graph).
type DefaultTarget struct {
	Type      string
	Precision int
	Scale     int
	Timezone  *time.Location
}
