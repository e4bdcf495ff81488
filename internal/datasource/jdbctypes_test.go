package datasource

import (
	"testing"

	"chbridge/internal/chtype"
)

func TestMapDriverType(t *testing.T) {
	cases := []struct {
		in     string
		signed bool
		want   chtype.DataType
	}{
		{"BOOLEAN", true, chtype.UInt8},
		{"TINYINT", true, chtype.Int8},
		{"TINYINT", false, chtype.UInt8},
		{"BIGINT", true, chtype.Int64},
		{"VARCHAR(255)", true, chtype.String},
		{"DECIMAL", true, chtype.Decimal},
		{"DATE", true, chtype.Date},
		{"TIMESTAMP", true, chtype.DateTime64},
		{"SOMETHING_UNKNOWN", true, chtype.String},
	}
	for _, c := range cases {
		got := mapDriverType(c.in, c.signed)
		if got != c.want {
			t.Errorf("mapDriverType(%q, %v) = %v, want %v", c.in, c.signed, got, c.want)
		}
	}
}

func TestColumnSigned(t *testing.T) {
	if columnSigned("INT UNSIGNED") {
		t.Fatal("expected unsigned")
	}
	if !columnSigned("INT") {
		t.Fatal("expected signed")
	}
}
