package datasource

import (
	"encoding/binary"
	"testing"

	"chbridge/internal/chtype"
	"chbridge/internal/schema"
	"chbridge/internal/wire"
)

func TestWriteValueInt(t *testing.T) {
	col, _ := schema.NewColumn("a", chtype.Int32, false)
	enc := wire.NewEncoder(nil)
	if err := writeValue(enc, col, int64(42)); err != nil {
		t.Fatalf("writeValue: %v", err)
	}
	got := int32(binary.LittleEndian.Uint32(enc.Bytes()))
	if got != 42 {
		t.Fatalf("got %d, want 42", got)
	}
}

func TestWriteValueString(t *testing.T) {
	col, _ := schema.NewColumn("a", chtype.String, false)
	enc := wire.NewEncoder(nil)
	if err := writeValue(enc, col, []byte("hi")); err != nil {
		t.Fatalf("writeValue: %v", err)
	}
	b := enc.Bytes()
	if b[0] != 2 || string(b[1:]) != "hi" {
		t.Fatalf("got %v", b)
	}
}

func TestWriteValueDecimal(t *testing.T) {
	col, err := schema.NewColumnWithArgs("a", chtype.Decimal, false, 10, 2, "", true, true)
	if err != nil {
		t.Fatalf("NewColumnWithArgs: %v", err)
	}
	enc := wire.NewEncoder(nil)
	if err := writeValue(enc, col, "12.34"); err != nil {
		t.Fatalf("writeValue: %v", err)
	}
	got := int32(binary.LittleEndian.Uint32(enc.Bytes()))
	if got != 1234 {
		t.Fatalf("got %d, want 1234", got)
	}
}

func TestWriteColumnDefaultZeroValue(t *testing.T) {
	col, _ := schema.NewColumn("a", chtype.UInt8, false)
	enc := wire.NewEncoder(nil)
	if err := writeColumnDefault(enc, col); err != nil {
		t.Fatalf("writeColumnDefault: %v", err)
	}
	if enc.Bytes()[0] != 0 {
		t.Fatalf("got %v, want zero default", enc.Bytes())
	}
}

func TestToInt64Conversions(t *testing.T) {
	if n, err := toInt64(int64(7)); err != nil || n != 7 {
		t.Fatalf("int64: n=%d err=%v", n, err)
	}
	if n, err := toInt64([]byte("123")); err != nil || n != 123 {
		t.Fatalf("[]byte: n=%d err=%v", n, err)
	}
	if _, err := toInt64(3.5); err == nil {
		t.Fatal("expected error for unsupported type")
	}
}
