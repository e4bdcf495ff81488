package datasource

import (
	"errors"
	"testing"

	"chbridge/internal/chtype"
	"chbridge/internal/schema"
)

func TestRemapColumnsByName(t *testing.T) {
	namedA, _ := schema.NewColumn("a", chtype.Int32, false)
	namedB, _ := schema.NewColumn("b", chtype.String, false)
	named := schema.New(namedA, namedB)

	reqB, _ := schema.NewColumn("b", chtype.String, false)
	requested := schema.New(reqB)

	out, err := remapColumns(requested, named)
	if err != nil {
		t.Fatalf("remapColumns: %v", err)
	}
	col, err := out.Column(0)
	if err != nil {
		t.Fatalf("Column(0): %v", err)
	}
	if col.Index() != 1 {
		t.Fatalf("resolved index = %d, want 1 (b is named[1])", col.Index())
	}
}

func TestRemapColumnsEmptyRequestUsesNamed(t *testing.T) {
	namedA, _ := schema.NewColumn("a", chtype.Int32, false)
	named := schema.New(namedA)

	out, err := remapColumns(schema.New(), named)
	if err != nil {
		t.Fatalf("remapColumns: %v", err)
	}
	if !out.Equal(named) {
		t.Fatalf("expected named columns unchanged: %+v", out)
	}
}

func TestRemapColumnsMissingNameErrors(t *testing.T) {
	namedA, _ := schema.NewColumn("a", chtype.Int32, false)
	named := schema.New(namedA)

	missing, _ := schema.NewColumn("nope", chtype.Int32, false)
	requested := schema.New(missing)

	if _, err := remapColumns(requested, named); err == nil {
		t.Fatal("expected error for unresolvable column name")
	}
}

func TestLoadSavedQueryAsNeededReadsFile(t *testing.T) {
	calls := 0
	readFile := func(name string) ([]byte, error) {
		calls++
		if name != "/home/foo.query" {
			t.Fatalf("unexpected path %q", name)
		}
		return []byte("select * from t"), nil
	}

	got, err := LoadSavedQueryAsNeeded(readFile, "/home", "foo.query")
	if err != nil {
		t.Fatalf("LoadSavedQueryAsNeeded: %v", err)
	}
	if got != "select * from t" {
		t.Fatalf("got %q", got)
	}
	if calls != 1 {
		t.Fatalf("readFile called %d times, want 1", calls)
	}
}

func TestLoadSavedQueryAsNeededPassesThroughLiteral(t *testing.T) {
	readFile := func(name string) ([]byte, error) { return nil, errors.New("should not be called") }

	got, err := LoadSavedQueryAsNeeded(readFile, "/home", "select 1\nfrom dual")
	if err != nil {
		t.Fatalf("LoadSavedQueryAsNeeded: %v", err)
	}
	if got != "select 1\nfrom dual" {
		t.Fatalf("got %q", got)
	}
}

func TestLoadSavedQueryAsNeededMissingFileFallsBackToLiteral(t *testing.T) {
	readFile := func(name string) ([]byte, error) { return nil, errors.New("not found") }
	got, err := LoadSavedQueryAsNeeded(readFile, "/home", "missing.sql")
	if err != nil {
		t.Fatalf("LoadSavedQueryAsNeeded: %v", err)
	}
	if got != "missing.sql" {
		t.Fatalf("got %q", got)
	}
}
