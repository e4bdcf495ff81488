package request

import (
	"net/http"
	"net/url"
	"strings"
	"testing"
)

func TestParseFormFields(t *testing.T) {
	body := "connection_string=ch&schema=s&table=t&columns=cols&query=query%3Dselect+1"
	r, err := http.NewRequest(http.MethodPost, "/?max_block_size=256", strings.NewReader(body))
	if err != nil {
		t.Fatalf("NewRequest: %v", err)
	}
	r.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	f, opts, err := Parse(r, "")
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if f.ConnectionString != "ch" || f.Schema != "s" || f.Table != "t" || f.Columns != "cols" {
		t.Fatalf("unexpected fields: %+v", f)
	}
	if f.Query != "query=select 1" {
		t.Fatalf("query field = %q", f.Query)
	}
	if opts.MaxBlockSize != 256 {
		t.Fatalf("MaxBlockSize = %d, want 256", opts.MaxBlockSize)
	}
}

func TestParseRawBodyQueryFallback(t *testing.T) {
	r, err := http.NewRequest(http.MethodPost, "/", nil)
	if err != nil {
		t.Fatalf("NewRequest: %v", err)
	}
	r.URL.RawQuery = url.Values{"connection_string": {"ch"}}.Encode()

	f, _, err := Parse(r, "query=select 1")
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if f.Query != "select 1" {
		t.Fatalf("query = %q, want %q", f.Query, "select 1")
	}
}
