package wire

import (
	"encoding/binary"
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

func TestLeb128RoundTrip(t *testing.T) {
	cases := []uint64{0, 1, 127, 128, 300, 1 << 20, 1 << 40}
	for _, n := range cases {
		e := NewEncoder(nil)
		if err := e.WriteUnsignedLeb128(n); err != nil {
			t.Fatalf("write %d: %v", n, err)
		}
		got, consumed := decodeLeb128(e.Bytes())
		if got != n || consumed != len(e.Bytes()) {
			t.Errorf("leb128(%d) round trip got %d (consumed %d/%d)", n, got, consumed, len(e.Bytes()))
		}
	}
}

func decodeLeb128(b []byte) (uint64, int) {
	var result uint64
	var shift uint
	for i, c := range b {
		result |= uint64(c&0x7f) << shift
		if c&0x80 == 0 {
			return result, i + 1
		}
		shift += 7
	}
	return result, len(b)
}

func TestWriteIntRangeChecks(t *testing.T) {
	e := NewEncoder(nil)
	if err := e.WriteInt8(127); err != nil {
		t.Fatalf("WriteInt8(127): %v", err)
	}
	if err := e.WriteInt8(128); err == nil {
		t.Fatal("expected range error for Int8(128)")
	}
	if err := e.WriteUInt8(-1); err == nil {
		t.Fatal("expected range error for UInt8(-1)")
	}
	if err := e.WriteUInt32(1 << 40); err == nil {
		t.Fatal("expected range error for UInt32 overflow")
	}
}

func TestWriteStringLengthPrefixed(t *testing.T) {
	e := NewEncoder(nil)
	if err := e.WriteString("hello"); err != nil {
		t.Fatalf("WriteString: %v", err)
	}
	b := e.Bytes()
	if b[0] != 5 {
		t.Fatalf("length prefix = %d, want 5", b[0])
	}
	if string(b[1:]) != "hello" {
		t.Fatalf("payload = %q", b[1:])
	}
}

func TestWriteFloat32BitPattern(t *testing.T) {
	e := NewEncoder(nil)
	if err := e.WriteFloat32(1.5); err != nil {
		t.Fatalf("WriteFloat32: %v", err)
	}
	got := binary.LittleEndian.Uint32(e.Bytes())
	if got != 0x3FC00000 {
		t.Fatalf("bit pattern = %#x", got)
	}
}

func TestWriteDateUsesLocalMidnight(t *testing.T) {
	e := NewEncoder(nil)
	d := time.Date(1970, 1, 2, 15, 30, 0, 0, time.UTC)
	if err := e.WriteDate(d, time.UTC); err != nil {
		t.Fatalf("WriteDate: %v", err)
	}
	got := binary.LittleEndian.Uint16(e.Bytes())
	if got != 1 {
		t.Fatalf("days since epoch = %d, want 1", got)
	}
}

func TestWriteDateTimeClamping(t *testing.T) {
	e := NewEncoder(nil)
	past := time.Date(1900, 1, 1, 0, 0, 0, 0, time.UTC)
	if err := e.WriteDateTime(past, nil); err != nil {
		t.Fatalf("WriteDateTime: %v", err)
	}
	got := binary.LittleEndian.Uint32(e.Bytes())
	if got != 1 {
		t.Fatalf("clamped seconds = %d, want 1", got)
	}
}

func TestWriteDateTime64Clamping(t *testing.T) {
	e := NewEncoder(nil)
	past := time.Unix(-1000, 0).UTC()
	if err := e.WriteDateTime64(past, nil); err != nil {
		t.Fatalf("WriteDateTime64: %v", err)
	}
	got := binary.LittleEndian.Uint64(e.Bytes())
	if got != 1 {
		t.Fatalf("clamped ms = %d, want 1", got)
	}
}

func TestWriteDecimal32(t *testing.T) {
	e := NewEncoder(nil)
	v := decimal.RequireFromString("12.345")
	if err := e.WriteDecimal32(v, 3); err != nil {
		t.Fatalf("WriteDecimal32: %v", err)
	}
	got := int32(binary.LittleEndian.Uint32(e.Bytes()))
	if got != 12345 {
		t.Fatalf("scaled = %d, want 12345", got)
	}
}

func TestWriteDecimal128Negative(t *testing.T) {
	e := NewEncoder(nil)
	v := decimal.RequireFromString("-1")
	if err := e.WriteDecimal128(v, 0); err != nil {
		t.Fatalf("WriteDecimal128: %v", err)
	}
	b := e.Bytes()
	if len(b) != 16 {
		t.Fatalf("length = %d, want 16", len(b))
	}
	for _, by := range b {
		if by != 0xFF {
			t.Fatalf("expected all-0xFF two's complement -1, got %x", b)
		}
	}
}

func TestWriteNullNonNull(t *testing.T) {
	e := NewEncoder(nil)
	_ = e.WriteNull()
	_ = e.WriteNonNull()
	b := e.Bytes()
	if b[0] != 1 || b[1] != 0 {
		t.Fatalf("null markers = %v, want [1 0]", b)
	}
}
