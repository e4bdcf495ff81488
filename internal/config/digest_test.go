package config

import (
	"encoding/json"
	"testing"
)

func TestDigestStableUnderKeyOrder(t *testing.T) {
	a := json.RawMessage(`{"id": "x", "type": "sql", "connectionString": "jdbc:mysql://h/db"}`)
	b := json.RawMessage(`{"connectionString":"jdbc:mysql://h/db","type":"sql","id":"x"}`)

	da, err := Digest(a)
	if err != nil {
		t.Fatalf("Digest(a): %v", err)
	}
	db, err := Digest(b)
	if err != nil {
		t.Fatalf("Digest(b): %v", err)
	}
	if da != db {
		t.Fatalf("documents differing only in key order digest differently: %s != %s", da, db)
	}
}

func TestDigestChangesOnContentChange(t *testing.T) {
	a := DataSourceConfig{ID: "x", ConnectionString: "jdbc:mysql://h1/db"}
	b := DataSourceConfig{ID: "x", ConnectionString: "jdbc:mysql://h2/db"}

	da, _ := Digest(a)
	db, _ := Digest(b)
	if da == db {
		t.Fatal("different configs should digest differently")
	}
}

func TestDigestReloadIsNoOpLaw(t *testing.T) {
	cfg := map[string]DataSourceConfig{"a": {ID: "a", ConnectionString: "jdbc:mysql://h/db"}}
	d1, _ := Digest(cfg)
	d2, _ := Digest(cfg)
	if d1 != d2 {
		t.Fatal("reload(cfg); reload(cfg) must hash identically")
	}
}
