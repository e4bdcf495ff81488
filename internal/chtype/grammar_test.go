package chtype

import "testing"

func TestParseTypeRoundTrip(t *testing.T) {
	cases := []string{
		"UInt8",
		"Int64",
		"String",
		"Nullable(String)",
		"Decimal(10,3)",
		"Nullable(Decimal(10,3))",
		"Decimal32(3)",
		"Nullable(Decimal32(3))",
		"DateTime",
		"DateTime('UTC')",
		"DateTime64(3)",
		"DateTime64(6,'Europe/Moscow')",
		"Nullable(DateTime64(6,'Europe/Moscow'))",
	}

	for _, in := range cases {
		spec, rest, err := ParseType(in)
		if err != nil {
			t.Fatalf("ParseType(%q): %v", in, err)
		}
		if rest != "" {
			t.Fatalf("ParseType(%q): unexpected trailing %q", in, rest)
		}
		out := Format(spec)
		if out != in {
			t.Errorf("round trip mismatch: in=%q out=%q", in, out)
		}
	}
}

func TestParseTypeUnknown(t *testing.T) {
	if _, _, err := ParseType("Frobnicate"); err == nil {
		t.Fatal("expected error for unknown type")
	}
}

func TestParseTypeTrailingText(t *testing.T) {
	spec, rest, err := ParseType("String extra")
	if err != nil {
		t.Fatalf("ParseType: %v", err)
	}
	if spec.Type != String {
		t.Fatalf("got type %v", spec.Type)
	}
	if rest != " extra" {
		t.Fatalf("rest = %q", rest)
	}
}

func TestNormalizeDefaults(t *testing.T) {
	p, s, err := Normalize(Decimal, 0, 0, false, false)
	if err != nil || p != 10 || s != 4 {
		t.Fatalf("Decimal default: p=%d s=%d err=%v", p, s, err)
	}

	p, s, err = Normalize(Decimal32, 5, 9, true, true)
	if err != nil || p != 9 || s != 9 {
		t.Fatalf("Decimal32 fixed precision: p=%d s=%d err=%v", p, s, err)
	}

	if _, _, err = Normalize(Decimal, 100, 0, true, false); err == nil {
		t.Fatal("expected error for precision over max")
	}

	p, s, err = Normalize(DateTime64, 0, 0, false, false)
	if err != nil || s != 3 {
		t.Fatalf("DateTime64 default scale: s=%d err=%v", s, err)
	}
}
